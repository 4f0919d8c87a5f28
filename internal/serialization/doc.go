// Package serialization provides the .bcal checkpoint format for calibration runs.
//
// A checkpoint holds what is needed to inspect a finished run or to resume
// it: the density-tracking sample accumulator, the primary and bin
// trajectory logs, the final parameter.
//
//	Format Structure:
//	  [4 bytes: Magic "BCAL"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [32 bytes: SHA-256 of header and payload]
//	  [Header: JSON metadata]
//	  [Payload: float64 LE sections described by the header]
//
// Example usage:
//
//	// Save a run
//	ckpt := serialization.FromResult(res, map[string]string{"family": "gaussian"})
//	if err := serialization.SaveFile("run.bcal", ckpt); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Resume it
//	ckpt, err := serialization.LoadFile("run.bcal")
//	cfg.Post = ckpt.EndParam
//	cfg.Resume = ckpt.Samples
package serialization
