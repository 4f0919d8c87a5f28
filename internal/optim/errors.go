package optim

import "errors"

// Common errors.
var (
	ErrInvalidConfig  = errors.New("invalid solver configuration")
	ErrLossLength     = errors.New("loss returned a batch of the wrong length")
	ErrChainExhausted = errors.New("all scheduled steps were taken")
)
