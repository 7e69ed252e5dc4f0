package demandcast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpulse/demandcast/scaler"
)

type constPredictor struct {
	value float64
	seen  [][]float64
}

func (p *constPredictor) Predict(window []float64) (float64, error) {
	snapshot := make([]float64, len(window))
	copy(snapshot, window)
	p.seen = append(p.seen, snapshot)
	return p.value, nil
}

type failingPredictor struct{}

func (failingPredictor) Predict([]float64) (float64, error) {
	return 0, errors.New("predict exploded")
}

func fittedScaler(t *testing.T, data []float64) *scaler.Scaler {
	t.Helper()
	sc, err := scaler.New(scaler.MinMax)
	require.Nil(t, err)
	require.Nil(t, sc.Fit(data))
	return sc
}

func TestRecursiveForecastSlidesWindow(t *testing.T) {
	sc := fittedScaler(t, []float64{0, 10})

	p := &constPredictor{value: 0.5}
	preds, err := RecursiveForecast(p, sc, []float64{0, 10, 0}, 3)
	require.Nil(t, err)
	require.Len(t, preds, 3)

	// scaled seed is [0, 1, 0]; each step drops the oldest value and appends
	// the previous prediction
	require.Len(t, p.seen, 3)
	assert.Equal(t, []float64{0, 1, 0}, p.seen[0])
	assert.Equal(t, []float64{1, 0, 0.5}, p.seen[1])
	assert.Equal(t, []float64{0, 0.5, 0.5}, p.seen[2])

	// min-max inverse of 0.5 over [0, 10]
	assert.Equal(t, []float64{5, 5, 5}, preds)
}

func TestRecursiveForecastClampsNegative(t *testing.T) {
	sc := fittedScaler(t, []float64{0, 10})

	p := &constPredictor{value: -0.2}
	preds, err := RecursiveForecast(p, sc, []float64{2, 4, 6}, 2)
	require.Nil(t, err)
	assert.Equal(t, []float64{0, 0}, preds)
}

func TestRecursiveForecastErrors(t *testing.T) {
	sc := fittedScaler(t, []float64{0, 10})

	testData := map[string]struct {
		seed    []float64
		horizon int
		err     error
	}{
		"empty seed":       {seed: nil, horizon: 4, err: ErrEmptySeedWindow},
		"zero horizon":     {seed: []float64{1, 2}, horizon: 0, err: ErrInvalidHorizon},
		"negative horizon": {seed: []float64{1, 2}, horizon: -3, err: ErrInvalidHorizon},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := RecursiveForecast(&constPredictor{}, sc, td.seed, td.horizon)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestRecursiveForecastPredictorFailure(t *testing.T) {
	sc := fittedScaler(t, []float64{0, 10})

	_, err := RecursiveForecast(failingPredictor{}, sc, []float64{1, 2, 3}, 2)
	assert.NotNil(t, err)
}
