// Package demandcast forecasts weekly job-posting demand per (role,
// location) pair by rolling a one-step-ahead recurrent model forward
// autoregressively, and orchestrates artifact loading and history retrieval
// to serve forecast requests.
package demandcast

import (
	"errors"
	"fmt"

	"github.com/jobpulse/demandcast/scaler"
)

var ErrEmptySeedWindow = errors.New("seed window is empty")

// Predictor produces a one-step-ahead prediction in scaled space from a
// scaled input window.
type Predictor interface {
	Predict(window []float64) (float64, error)
}

// RecursiveForecast rolls the predictor forward horizon steps. The raw seed
// window is scaled once, each prediction is appended to the window while the
// oldest element is dropped, and the full predicted sequence is
// inverse-transformed in one batch and clamped at zero. Every step past the
// first consumes previously predicted values, so errors compound across the
// horizon; this is a multi-step-ahead approximation rather than horizon
// independent one-step forecasts.
func RecursiveForecast(p Predictor, sc *scaler.Scaler, seed []float64, horizon int) ([]float64, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeedWindow
	}
	if horizon < 1 {
		return nil, fmt.Errorf("got %d, %w", horizon, ErrInvalidHorizon)
	}

	window, err := sc.Transform(seed)
	if err != nil {
		return nil, fmt.Errorf("unable to scale seed window, %w", err)
	}

	preds := make([]float64, 0, horizon)
	for i := 0; i < horizon; i++ {
		next, err := p.Predict(window)
		if err != nil {
			return nil, fmt.Errorf("unable to predict step %d, %w", i+1, err)
		}
		preds = append(preds, next)
		copy(window, window[1:])
		window[len(window)-1] = next
	}

	raw, err := sc.Inverse(preds)
	if err != nil {
		return nil, fmt.Errorf("unable to inverse transform forecast, %w", err)
	}
	for i, v := range raw {
		if v < 0 {
			raw[i] = 0
		}
	}
	return raw, nil
}
