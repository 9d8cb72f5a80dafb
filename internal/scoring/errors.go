package scoring

import "errors"

var (
	// ErrInsufficientSignal means no usable weighted component was present.
	ErrInsufficientSignal = errors.New("insufficient signal")
	// ErrInvalidProfile means a weighting profile failed load-time validation.
	ErrInvalidProfile = errors.New("invalid weighting profile")
	// ErrInsufficientHistory means fewer than two history points were available for a trend.
	ErrInsufficientHistory = errors.New("insufficient score history")
	ErrInvalidSignal       = errors.New("invalid signal")
	ErrInvalidTransition   = errors.New("invalid risk signal transition")
)
