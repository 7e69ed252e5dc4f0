// Package baseline provides the comparator forecast models evaluated
// alongside the recurrent predictor: naive persistence, moving average, and
// an optional ARIMA variant.
package baseline

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted = errors.New("baseline must be fit before predicting")
	ErrNoFitData = errors.New("no training data to fit baseline")
)

// Model is the common two-operation contract shared by all baselines. Fit
// consumes the raw training values and Predict produces horizon future
// values.
type Model interface {
	Name() string
	Fit(train []float64) error
	Predict(horizon int) ([]float64, error)
}

// Naive repeats the last observed training value for every future step.
type Naive struct {
	last   float64
	fitted bool
}

// NewNaive returns an unfitted naive persistence baseline.
func NewNaive() *Naive {
	return &Naive{}
}

func (n *Naive) Name() string {
	return "naive"
}

func (n *Naive) Fit(train []float64) error {
	if len(train) == 0 {
		return ErrNoFitData
	}
	n.last = train[len(train)-1]
	n.fitted = true
	return nil
}

func (n *Naive) Predict(horizon int) ([]float64, error) {
	if !n.fitted {
		return nil, ErrNotFitted
	}
	return repeat(n.last, horizon), nil
}

// MovingAverage repeats the mean of the last window training values. When
// the training data is shorter than the window the mean of all of it is
// used.
type MovingAverage struct {
	window int
	mean   float64
	fitted bool
}

// NewMovingAverage returns an unfitted moving average baseline. A
// non-positive window defaults to 4 weeks.
func NewMovingAverage(window int) *MovingAverage {
	if window < 1 {
		window = 4
	}
	return &MovingAverage{window: window}
}

func (m *MovingAverage) Name() string {
	return "moving_average"
}

func (m *MovingAverage) Fit(train []float64) error {
	if len(train) == 0 {
		return ErrNoFitData
	}
	tail := train
	if len(train) > m.window {
		tail = train[len(train)-m.window:]
	}
	m.mean = stat.Mean(tail, nil)
	m.fitted = true
	return nil
}

func (m *MovingAverage) Predict(horizon int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	return repeat(m.mean, horizon), nil
}

func repeat(val float64, n int) []float64 {
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = val
	}
	return out
}
