package baseline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictBeforeFit(t *testing.T) {
	testData := map[string]struct {
		model Model
	}{
		"naive":          {model: NewNaive()},
		"moving average": {model: NewMovingAverage(4)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := td.model.Predict(4)
			assert.ErrorIs(t, err, ErrNotFitted)
		})
	}
}

func TestNaive(t *testing.T) {
	n := NewNaive()
	require.Nil(t, n.Fit([]float64{3, 8, 5}))

	pred, err := n.Predict(4)
	require.Nil(t, err)
	assert.Equal(t, []float64{5, 5, 5, 5}, pred)
}

func TestNaiveNoData(t *testing.T) {
	assert.ErrorIs(t, NewNaive().Fit(nil), ErrNoFitData)
}

func TestMovingAverage(t *testing.T) {
	testData := map[string]struct {
		window   int
		train    []float64
		expected float64
	}{
		"window smaller than train": {
			window:   2,
			train:    []float64{1, 2, 3, 4},
			expected: 3.5,
		},
		"window larger than train": {
			window:   10,
			train:    []float64{2, 4},
			expected: 3,
		},
		"non-positive window defaults to four": {
			window:   0,
			train:    []float64{0, 4, 4, 4, 4},
			expected: 4,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			m := NewMovingAverage(td.window)
			require.Nil(t, m.Fit(td.train))

			pred, err := m.Predict(3)
			require.Nil(t, err)
			require.Len(t, pred, 3)
			for _, v := range pred {
				assert.InDelta(t, td.expected, v, 1e-9)
			}
		})
	}
}

func TestARIMAUnavailable(t *testing.T) {
	RegisterFitter(nil)

	a := NewARIMA(Order{P: 1, D: 1, Q: 1})
	assert.False(t, a.Available())
	assert.ErrorIs(t, a.Fit([]float64{1, 2, 3}), ErrUnavailable)
	_, err := a.Predict(3)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestARIMAFitFailureFallsBackToNaive(t *testing.T) {
	RegisterFitter(func(_ []float64, _ Order) (func(int) ([]float64, error), error) {
		return nil, errors.New("singular design matrix")
	})
	defer RegisterFitter(nil)

	a := NewARIMA(Order{P: 1, D: 0, Q: 0})
	require.Nil(t, a.Fit([]float64{2, 4, 6}))

	pred, err := a.Predict(3)
	require.Nil(t, err)
	assert.Equal(t, []float64{6, 6, 6}, pred)
}

func TestARIMAForecastFailureFallsBackToNaive(t *testing.T) {
	RegisterFitter(func(_ []float64, _ Order) (func(int) ([]float64, error), error) {
		return func(_ int) ([]float64, error) {
			return nil, errors.New("forecast blew up")
		}, nil
	})
	defer RegisterFitter(nil)

	a := NewARIMA(Order{P: 1, D: 0, Q: 0})
	require.Nil(t, a.Fit([]float64{1, 9}))

	pred, err := a.Predict(2)
	require.Nil(t, err)
	assert.Equal(t, []float64{9, 9}, pred)
}

func TestARIMAForecastDelegates(t *testing.T) {
	RegisterFitter(func(train []float64, _ Order) (func(int) ([]float64, error), error) {
		last := train[len(train)-1]
		return func(horizon int) ([]float64, error) {
			out := make([]float64, horizon)
			for i := range out {
				out[i] = last + float64(i+1)
			}
			return out, nil
		}, nil
	})
	defer RegisterFitter(nil)

	a := NewARIMA(Order{P: 1, D: 0, Q: 0})
	require.Nil(t, a.Fit([]float64{1, 2, 3}))

	pred, err := a.Predict(3)
	require.Nil(t, err)
	assert.Equal(t, []float64{4, 5, 6}, pred)
}
