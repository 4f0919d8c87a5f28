package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOutOfBounds        = errors.New("section extends beyond payload")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrMissingSection     = errors.New("missing section")
)

// ValidationError provides detailed information about malformed checkpoints.
type ValidationError struct {
	Type    string // Type of error (e.g., "shape", "out_of_bounds")
	Section string // Section involved
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s: section %q: %s", e.Type, e.Section, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}
