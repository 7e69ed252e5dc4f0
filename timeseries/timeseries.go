// Package timeseries holds the weekly posting-count series container along
// with the chronological splitting and sliding-window utilities used to
// prepare training data.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrNoData             = errors.New("no series data")
	ErrSeriesLenMismatch  = errors.New("time feature has a different length than observations")
	ErrBadSplitRatios     = errors.New("split ratios must sum to 1.0")
	ErrNegativeSplitRatio = errors.New("split ratios must be non-negative")
)

const ratioTolerance = 1e-6

// Series represents a weekly time series storing a slice of week start dates
// and posting counts. Both must be of the same length.
type Series struct {
	T []time.Time
	Y []float64
}

// New returns a Series given a date and value slice. The input slices are
// copied and sorted ascending by date so downstream splits are always
// chronological.
func New(t []time.Time, y []float64) (*Series, error) {
	if len(y) == 0 {
		return nil, ErrNoData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"date feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrSeriesLenMismatch,
		)
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(y))
	copy(tSeries, t)
	copy(ySeries, y)

	s := &Series{T: tSeries, Y: ySeries}
	s.sortByDate()
	return s, nil
}

func (s *Series) sortByDate() {
	idx := make([]int, len(s.T))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.T[idx[a]].Before(s.T[idx[b]])
	})

	tSorted := make([]time.Time, len(s.T))
	ySorted := make([]float64, len(s.Y))
	for i, j := range idx {
		tSorted[i] = s.T[j]
		ySorted[i] = s.Y[j]
	}
	s.T, s.Y = tSorted, ySorted
}

// Len returns the number of observations in the series.
func (s *Series) Len() int {
	return len(s.Y)
}

// StartDate returns the first date of the series or the zero time if empty.
func (s *Series) StartDate() time.Time {
	var t time.Time
	if s.Len() == 0 {
		return t
	}
	return s.T[0]
}

// EndDate returns the last date of the series or the zero time if empty.
func (s *Series) EndDate() time.Time {
	var t time.Time
	if s.Len() == 0 {
		return t
	}
	return s.T[len(s.T)-1]
}

// Copy returns a deep copy of the series.
func (s *Series) Copy() *Series {
	tSeries := make([]time.Time, len(s.T))
	ySeries := make([]float64, len(s.Y))
	copy(tSeries, s.T)
	copy(ySeries, s.Y)
	return &Series{T: tSeries, Y: ySeries}
}

// Tail returns a copy of the series truncated to the most recent n
// observations. A non-positive n or n larger than the series returns the
// whole series.
func (s *Series) Tail(n int) *Series {
	c := s.Copy()
	if n <= 0 || n >= c.Len() {
		return c
	}
	return &Series{T: c.T[c.Len()-n:], Y: c.Y[c.Len()-n:]}
}

// SplitRatios configures the chronological train/validation/test partition.
// The three ratios must sum to 1.0 within a 1e-6 tolerance.
type SplitRatios struct {
	Train      float64 `yaml:"train"`
	Validation float64 `yaml:"validation"`
	Test       float64 `yaml:"test"`
}

// NewDefaultSplitRatios returns the standard 70/15/15 chronological split.
func NewDefaultSplitRatios() SplitRatios {
	return SplitRatios{Train: 0.7, Validation: 0.15, Test: 0.15}
}

func (r SplitRatios) validate() error {
	if r.Train < 0 || r.Validation < 0 || r.Test < 0 {
		return ErrNegativeSplitRatio
	}
	if math.Abs(r.Train+r.Validation+r.Test-1.0) > ratioTolerance {
		return fmt.Errorf("got %f+%f+%f, %w", r.Train, r.Validation, r.Test, ErrBadSplitRatios)
	}
	return nil
}

// Split partitions the series into contiguous, chronologically ordered
// train, validation and test segments. Cut points are the integer floor of
// the cumulative ratios so no observation is shuffled or dropped. The
// observations are re-sorted by date first so a hand-built Series still
// splits chronologically; the receiver is not modified.
func (s *Series) Split(r SplitRatios) (train, validation, test *Series, err error) {
	if err := r.validate(); err != nil {
		return nil, nil, nil, err
	}

	c := s.Copy()
	c.sortByDate()
	n := c.Len()
	trainEnd := int(math.Floor(float64(n) * r.Train))
	valEnd := int(math.Floor(float64(n) * (r.Train + r.Validation)))

	train = &Series{T: c.T[:trainEnd], Y: c.Y[:trainEnd]}
	validation = &Series{T: c.T[trainEnd:valEnd], Y: c.Y[trainEnd:valEnd]}
	test = &Series{T: c.T[valEnd:], Y: c.Y[valEnd:]}
	return train, validation, test, nil
}
