package accu

import "errors"

// Common errors.
var (
	ErrCapacityExceeded = errors.New("accumulator capacity exceeded")
	ErrShapeMismatch    = errors.New("sample shape mismatch")
	ErrEmpty            = errors.New("accumulator is empty")
	ErrInvalidDecay     = errors.New("generation decay must lie in [0, 1]")
	ErrNegativeCapacity = errors.New("capacity must be non-negative")
	ErrNoFiniteWeight   = errors.New("no generation has a finite importance weight")
)
