package serialization

import (
	"crypto/sha256"
	"time"
)

// Format constants.
const (
	MagicBytes      = "BCAL"
	FormatVersion   = 1
	ChecksumSize    = 32                 // SHA-256 checksum size (32 bytes)
	FixedHeaderSize = 4 + 4 + 4 + 8 + 32 // Magic, version, flags, header size, checksum
	MaxHeaderSize   = 16 * 1024 * 1024   // 16MB
)

// Flags for the .bcal format.
const (
	FlagConverged uint32 = 1 << 0 // bit 0: run converged
	FlagHasBinLog uint32 = 1 << 1 // bit 1: rejected records included
)

// Section names.
const (
	SectionSamples     = "samples"
	SectionValues      = "values"
	SectionLogDens     = "log_dens"
	SectionGenerations = "generations"
	SectionEndParam    = "end_param"
	SectionLog         = "log"
	SectionBinLog      = "bin_log"
)

// Header represents the JSON header in a .bcal file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	RunID         string            `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	SampleDim     int               `json:"sample_dim"`
	ParamDim      int               `json:"param_dim"`
	Capacity      int               `json:"capacity"`
	NGen          int               `json:"n_gen"`
	Sections      []SectionMeta     `json:"sections"`
	Metadata      map[string]string `json:"metadata"`
}

// SectionMeta describes a float64 array in the payload.
type SectionMeta struct {
	Name   string `json:"name"`
	Offset int64  `json:"offset"` // In float64 elements from the payload start
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
}

// Len returns the number of elements of the section.
func (s SectionMeta) Len() int64 { return int64(s.Rows) * int64(s.Cols) }

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data ...[]byte) [32]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// ValidateChecksum compares computed checksum against stored checksum.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed, stored [32]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}
