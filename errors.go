package demandcast

import "errors"

var (
	// ErrNotFound reports a missing history file or artifact directory for
	// a (role, location) pair.
	ErrNotFound = errors.New("no data or trained model for role and location")
	// ErrInsufficientHistory reports a history shorter than the model's
	// window size.
	ErrInsufficientHistory = errors.New("insufficient history for seed window")
	// ErrInvalidHorizon reports a horizon outside the allowed range.
	ErrInvalidHorizon = errors.New("forecast horizon out of range")
)
