// Package scaler provides leakage-safe normalization for the forecasting
// pipeline. A scaler is fit exactly once on the raw training segment and the
// same fitted instance is reused for validation, test, and inference
// transforms.
package scaler

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted     = errors.New("scaler must be fit before transforming")
	ErrAlreadyFitted = errors.New("scaler already fitted")
	ErrUnknownKind   = errors.New("unknown scaler kind")
	ErrNoFitData     = errors.New("no data to fit scaler")
)

// Kind selects the normalization variant.
type Kind string

const (
	// Standard subtracts the train mean and divides by the train standard
	// deviation.
	Standard Kind = "standard"
	// MinMax rescales to [0, 1] using the train minimum and maximum.
	MinMax Kind = "minmax"
)

// Scaler normalizes values using parameters computed from the training
// segment only. Once fit the parameters are immutable.
type Scaler struct {
	kind   Kind
	fitted bool

	mean   float64
	stddev float64
	min    float64
	max    float64
}

// New returns an unfitted scaler of the requested kind.
func New(kind Kind) (*Scaler, error) {
	switch kind {
	case Standard, MinMax:
		return &Scaler{kind: kind}, nil
	default:
		return nil, fmt.Errorf("got %q, %w", kind, ErrUnknownKind)
	}
}

// Fit computes and stores the normalization parameters from the raw training
// values. Refitting an already fitted scaler is a programming error.
func (s *Scaler) Fit(train []float64) error {
	if s.fitted {
		return ErrAlreadyFitted
	}
	if len(train) == 0 {
		return ErrNoFitData
	}

	switch s.kind {
	case Standard:
		mean, stddev := stat.MeanStdDev(train, nil)
		if len(train) < 2 || stddev == 0 {
			// degenerate segment, fall back to identity spread
			stddev = 1.0
		}
		s.mean = mean
		s.stddev = stddev
	case MinMax:
		minVal, maxVal := train[0], train[0]
		for _, v := range train[1:] {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
		s.min = minVal
		s.max = maxVal
	default:
		return fmt.Errorf("got %q, %w", s.kind, ErrUnknownKind)
	}
	s.fitted = true
	return nil
}

// Transform maps raw values into the normalized space. The input is not
// modified.
func (s *Scaler) Transform(xs []float64) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(xs))
	switch s.kind {
	case Standard:
		for i, v := range xs {
			out[i] = (v - s.mean) / s.stddev
		}
	case MinMax:
		spread := s.max - s.min
		if spread == 0 {
			spread = 1.0
		}
		for i, v := range xs {
			out[i] = (v - s.min) / spread
		}
	}
	return out, nil
}

// Inverse maps normalized values back into the raw space.
func (s *Scaler) Inverse(xs []float64) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(xs))
	switch s.kind {
	case Standard:
		for i, v := range xs {
			out[i] = v*s.stddev + s.mean
		}
	case MinMax:
		spread := s.max - s.min
		if spread == 0 {
			spread = 1.0
		}
		for i, v := range xs {
			out[i] = v*spread + s.min
		}
	}
	return out, nil
}

// Kind returns the scaler variant.
func (s *Scaler) Kind() Kind {
	return s.kind
}

// State is the serializable form of a fitted scaler.
type State struct {
	Kind   Kind    `json:"kind"`
	Fitted bool    `json:"fitted"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// State returns the current fitted parameters for serialization.
func (s *Scaler) State() State {
	return State{
		Kind:   s.kind,
		Fitted: s.fitted,
		Mean:   s.mean,
		StdDev: s.stddev,
		Min:    s.min,
		Max:    s.max,
	}
}

// FromState reconstructs a scaler from previously exported state.
func FromState(st State) (*Scaler, error) {
	s, err := New(st.Kind)
	if err != nil {
		return nil, err
	}
	s.fitted = st.Fitted
	s.mean = st.Mean
	s.stddev = st.StdDev
	s.min = st.Min
	s.max = st.Max
	if s.fitted && s.kind == Standard && s.stddev == 0 {
		s.stddev = 1.0
	}
	return s, nil
}
