package demandcast

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpulse/demandcast/artifact"
	"github.com/jobpulse/demandcast/evaluate"
	"github.com/jobpulse/demandcast/lstm"
	"github.com/jobpulse/demandcast/scaler"
	"github.com/jobpulse/demandcast/timeseries"
)

type fakeHistory struct {
	mu     sync.Mutex
	series *timeseries.Series
	err    error
	calls  int
}

func (f *fakeHistory) LoadSeries(role, location string, maxWeeks int) (*timeseries.Series, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if maxWeeks > 0 {
		return f.series.Tail(maxWeeks), nil
	}
	return f.series, nil
}

func weeklySeries(t *testing.T, start time.Time, counts []float64) *timeseries.Series {
	t.Helper()
	dates := make([]time.Time, len(counts))
	for i := range counts {
		dates[i] = start.AddDate(0, 0, 7*i)
	}
	series, err := timeseries.New(dates, counts)
	require.Nil(t, err)
	return series
}

func exportTestArtifact(t *testing.T, dir string, windowSize int) *artifact.Store {
	t.Helper()

	net, err := lstm.New(lstm.Config{InputSize: 1, HiddenSize: 8, NumLayers: 1, Dropout: 0}, 7)
	require.Nil(t, err)

	sc, err := scaler.New(scaler.Standard)
	require.Nil(t, err)
	require.Nil(t, sc.Fit([]float64{100, 110, 120, 130, 140}))

	store := artifact.NewStore(dir)
	_, err = store.Export(net, sc, windowSize, artifact.MetricsReport{
		LSTM: evaluate.Metrics{RMSE: 2},
	}, "Software Engineer", "Austin, TX", artifact.DateRange{Start: "2024-01-01", End: "2024-06-24"})
	require.Nil(t, err)
	return store
}

func TestForecast(t *testing.T) {
	const windowSize = 4
	store := exportTestArtifact(t, t.TempDir(), windowSize)

	history := &fakeHistory{series: weeklySeries(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]float64{100, 105, 110, 108, 115, 120, 118, 125},
	)}
	svc := NewForecastService(store, history, nil)

	res, err := svc.Forecast("Software Engineer", "Austin, TX", 3)
	require.Nil(t, err)

	assert.Equal(t, "Software Engineer", res.Role)
	assert.Equal(t, "Austin, TX", res.Location)
	assert.Equal(t, "lstm", res.Model.Type)
	assert.Equal(t, windowSize, res.Model.Window)

	// history echoes the loaded weekly series
	require.Len(t, res.History, 8)
	assert.Equal(t, "2024-01-01", res.History[0].WeekStart)
	assert.Equal(t, "2024-02-19", res.History[7].WeekStart)

	// forecast points are consecutive weeks after the last historical date
	require.Len(t, res.Forecast, 3)
	assert.Equal(t, "2024-02-26", res.Forecast[0].WeekStart)
	assert.Equal(t, "2024-03-04", res.Forecast[1].WeekStart)
	assert.Equal(t, "2024-03-11", res.Forecast[2].WeekStart)
	for _, p := range res.Forecast {
		assert.GreaterOrEqual(t, p.Value, 0.0)
	}
}

func TestForecastDeterministic(t *testing.T) {
	store := exportTestArtifact(t, t.TempDir(), 4)
	history := &fakeHistory{series: weeklySeries(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]float64{100, 105, 110, 108, 115, 120},
	)}
	svc := NewForecastService(store, history, nil)

	first, err := svc.Forecast("Software Engineer", "Austin, TX", 4)
	require.Nil(t, err)
	second, err := svc.Forecast("Software Engineer", "Austin, TX", 4)
	require.Nil(t, err)
	assert.Equal(t, first.Forecast, second.Forecast)
}

func TestForecastInvalidHorizon(t *testing.T) {
	store := exportTestArtifact(t, t.TempDir(), 4)
	svc := NewForecastService(store, &fakeHistory{}, &ServiceOptions{MaxHistoryWeeks: 104, MaxHorizon: 52})

	testData := map[string]struct {
		horizon int
	}{
		"zero":         {horizon: 0},
		"negative":     {horizon: -1},
		"over maximum": {horizon: 53},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Forecast("Software Engineer", "Austin, TX", td.horizon)
			assert.ErrorIs(t, err, ErrInvalidHorizon)
		})
	}
}

func TestForecastArtifactNotFound(t *testing.T) {
	store := artifact.NewStore(t.TempDir())
	svc := NewForecastService(store, &fakeHistory{}, nil)

	_, err := svc.Forecast("Unknown Role", "Nowhere", 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForecastInsufficientHistory(t *testing.T) {
	store := exportTestArtifact(t, t.TempDir(), 4)
	history := &fakeHistory{series: weeklySeries(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]float64{100, 105, 110},
	)}
	svc := NewForecastService(store, history, nil)

	_, err := svc.Forecast("Software Engineer", "Austin, TX", 4)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestForecastHistoryFailure(t *testing.T) {
	store := exportTestArtifact(t, t.TempDir(), 4)
	svc := NewForecastService(store, &fakeHistory{err: fmt.Errorf("disk on fire")}, nil)

	_, err := svc.Forecast("Software Engineer", "Austin, TX", 4)
	assert.NotNil(t, err)
}

func TestForecastCachesArtifact(t *testing.T) {
	dir := t.TempDir()
	store := exportTestArtifact(t, dir, 4)
	history := &fakeHistory{series: weeklySeries(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]float64{100, 105, 110, 108, 115, 120},
	)}
	svc := NewForecastService(store, history, nil)

	_, err := svc.Forecast("Software Engineer", "Austin, TX", 2)
	require.Nil(t, err)

	// remove the backing files; the cached artifact must keep serving
	require.Nil(t, os.RemoveAll(dir))

	res, err := svc.Forecast("Software Engineer", "Austin, TX", 2)
	require.Nil(t, err)
	assert.Len(t, res.Forecast, 2)
}

func TestForecastConcurrentRequests(t *testing.T) {
	store := exportTestArtifact(t, t.TempDir(), 4)
	history := &fakeHistory{series: weeklySeries(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]float64{100, 105, 110, 108, 115, 120},
	)}
	svc := NewForecastService(store, history, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Forecast("Software Engineer", "Austin, TX", 3)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.Nil(t, err)
	}
}
