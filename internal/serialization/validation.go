package serialization

import (
	"fmt"
	"sort"
)

// Validation limits for resource protection.
const (
	MaxSectionCount = 64      // Maximum number of sections in a file
	MaxGenerations  = 1 << 20 // Maximum number of replayed generations
)

// ValidateSections checks for negative, out-of-bounds and overlapping sections.
// dataLen is the payload length in float64 elements.
func ValidateSections(sections []SectionMeta, dataLen int64) error {
	if len(sections) > MaxSectionCount {
		return &ValidationError{
			Type:    "too_many_sections",
			Details: fmt.Sprintf("got %d, max %d", len(sections), MaxSectionCount),
		}
	}

	sorted := make([]SectionMeta, len(sections))
	copy(sorted, sections)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, s := range sorted {
		// Negative values could wrap the size computation.
		if s.Offset < 0 || s.Rows < 0 || s.Cols < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Section: s.Name,
				Details: fmt.Sprintf("offset=%d, rows=%d, cols=%d (negative values not allowed)", s.Offset, s.Rows, s.Cols),
			}
		}
		if s.Cols == 0 && s.Rows > 1 {
			return &ValidationError{
				Type:    "shape",
				Section: s.Name,
				Details: fmt.Sprintf("%d rows of zero columns", s.Rows),
			}
		}

		// Compare by division so rows*cols cannot overflow.
		if s.Offset > dataLen || (s.Cols > 0 && int64(s.Rows) > (dataLen-s.Offset)/int64(s.Cols)) {
			return fmt.Errorf("section %q: offset %d, %dx%d, payload %d: %w",
				s.Name, s.Offset, s.Rows, s.Cols, dataLen, ErrOutOfBounds)
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if s.Offset+s.Len() > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Section: s.Name,
					Details: fmt.Sprintf("regions [%d-%d] and %q at %d overlap",
						s.Offset, s.Offset+s.Len(), next.Name, next.Offset),
				}
			}
		}
	}
	return nil
}

// ValidateHeader checks the header dimensions and its section table.
func ValidateHeader(h Header, dataLen int64) error {
	if h.ParamDim < 0 || h.SampleDim < 0 {
		return &ValidationError{
			Type:    "shape",
			Details: fmt.Sprintf("param_dim=%d, sample_dim=%d (negative values not allowed)", h.ParamDim, h.SampleDim),
		}
	}
	if h.Capacity < 0 {
		return &ValidationError{Type: "capacity", Details: fmt.Sprintf("negative capacity %d", h.Capacity)}
	}
	if h.NGen < 0 || h.NGen > MaxGenerations {
		return &ValidationError{
			Type:    "generations",
			Details: fmt.Sprintf("n_gen %d outside [0, %d]", h.NGen, MaxGenerations),
		}
	}
	return ValidateSections(h.Sections, dataLen)
}
