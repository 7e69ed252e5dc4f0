// Package evaluate computes the fit metrics shared by the recurrent
// predictor and the baseline comparators.
package evaluate

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

const mapeZeroThreshold = 1e-6

// Metrics tracks the evaluation scores for one model. Undefined scores are
// NaN in memory and serialize as JSON null, since JSON has no NaN.
type Metrics struct {
	RMSE                float64
	MAPE                float64
	DirectionalAccuracy float64
}

// metricsJSON is the wire form of Metrics with nil standing in for NaN.
type metricsJSON struct {
	RMSE                *float64 `json:"rmse"`
	MAPE                *float64 `json:"mape"`
	DirectionalAccuracy *float64 `json:"directional_accuracy"`
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		RMSE:                nullableScore(m.RMSE),
		MAPE:                nullableScore(m.MAPE),
		DirectionalAccuracy: nullableScore(m.DirectionalAccuracy),
	})
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	var mj metricsJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return err
	}
	m.RMSE = scoreFromNullable(mj.RMSE)
	m.MAPE = scoreFromNullable(mj.MAPE)
	m.DirectionalAccuracy = scoreFromNullable(mj.DirectionalAccuracy)
	return nil
}

func nullableScore(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func scoreFromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// NewMetrics calculates the scores given the actual and predicted slices.
func NewMetrics(actual, predicted []float64) (Metrics, error) {
	rmse, err := RMSE(actual, predicted)
	if err != nil {
		return Metrics{}, fmt.Errorf("unable to compute root mean squared error, %w", err)
	}
	mape, err := MAPE(actual, predicted)
	if err != nil {
		return Metrics{}, fmt.Errorf("unable to compute mean absolute percent error, %w", err)
	}
	da, err := DirectionalAccuracy(actual, predicted)
	if err != nil {
		return Metrics{}, fmt.Errorf("unable to compute directional accuracy, %w", err)
	}
	return Metrics{RMSE: rmse, MAPE: mape, DirectionalAccuracy: da}, nil
}

// RMSE computes the root mean squared error over all points. A score of 0
// means a perfect match.
func RMSE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}

	mse := 0.0
	for i := 0; i < len(actual); i++ {
		diff := actual[i] - predicted[i]
		mse += diff * diff
	}
	mse /= float64(len(actual))
	return math.Sqrt(mse), nil
}

// MAPE computes the mean absolute percent error as a percentage, skipping
// indices where the actual value is within 1e-6 of zero. NaN is returned
// when no index qualifies.
func MAPE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}

	mape := 0.0
	cnt := 0
	for i := 0; i < len(actual); i++ {
		if math.Abs(actual[i]) <= mapeZeroThreshold {
			continue
		}
		mape += math.Abs((actual[i] - predicted[i]) / actual[i])
		cnt++
	}
	if cnt == 0 {
		return math.NaN(), nil
	}
	return mape / float64(cnt) * 100.0, nil
}

// DirectionalAccuracy computes the percentage of consecutive deltas whose
// direction matches between actual and predicted. NaN is returned for series
// with fewer than 2 points.
func DirectionalAccuracy(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	if len(actual) < 2 {
		return math.NaN(), nil
	}

	match := 0
	for i := 1; i < len(actual); i++ {
		actualUp := actual[i]-actual[i-1] > 0
		predictedUp := predicted[i]-predicted[i-1] > 0
		if actualUp == predictedUp {
			match++
		}
	}
	return float64(match) / float64(len(actual)-1) * 100.0, nil
}
