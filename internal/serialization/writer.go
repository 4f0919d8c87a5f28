package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/bayescal/internal/accu"
	"github.com/born-ml/bayescal/internal/optim"
	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/trajectory"
)

// Checkpoint is the persisted state of a calibration run.
type Checkpoint struct {
	RunID     uuid.UUID
	CreatedAt time.Time
	Converged bool
	EndParam  proba.Param
	Samples   *accu.SampleValDens // nil for runs without density tracking
	Log       *trajectory.Log
	BinLog    *trajectory.Log
	Metadata  map[string]string
}

// FromResult builds a checkpoint from a solver result.
func FromResult(res *optim.Result, metadata map[string]string) *Checkpoint {
	return &Checkpoint{
		RunID:     res.RunID,
		CreatedAt: time.Now().UTC(),
		Converged: res.Converged,
		EndParam:  res.EndParam.Clone(),
		Samples:   res.Samples,
		Log:       res.Log,
		BinLog:    res.BinLog,
		Metadata:  metadata,
	}
}

// payload accumulates sections of float64 data.
type payload struct {
	data     []float64
	sections []SectionMeta
}

func (p *payload) add(name string, rows, cols int, data []float64) {
	p.sections = append(p.sections, SectionMeta{
		Name:   name,
		Offset: int64(len(p.data)),
		Rows:   rows,
		Cols:   cols,
	})
	p.data = append(p.data, data...)
}

func (p *payload) addLog(name string, l *trajectory.Log, paramDim int) {
	cols := 3 + paramDim
	data := make([]float64, 0, l.Len()*cols)
	for _, r := range l.Records() {
		data = append(data, r.Score, r.KL, r.Mean)
		data = append(data, r.Param...)
	}
	p.add(name, l.Len(), cols, data)
}

func (p *payload) bytes() []byte {
	out := make([]byte, 8*len(p.data))
	for i, v := range p.data {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}

// Write encodes c to w.
func Write(w io.Writer, c *Checkpoint) error {
	paramDim := len(c.EndParam)
	header := Header{
		FormatVersion: FormatVersion,
		RunID:         c.RunID.String(),
		CreatedAt:     c.CreatedAt,
		ParamDim:      paramDim,
		Metadata:      c.Metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var p payload
	p.add(SectionEndParam, 1, paramDim, c.EndParam)
	if c.Samples != nil {
		s := c.Samples
		header.SampleDim = s.SampleDim()
		header.Capacity = s.Capacity()
		header.NGen = s.NGen()

		flat := make([]float64, 0, s.N()*s.SampleDim())
		for _, x := range s.Samples() {
			flat = append(flat, x...)
		}
		gens := make([]float64, s.N())
		for i, g := range s.Generations() {
			gens[i] = float64(g)
		}
		p.add(SectionSamples, s.N(), s.SampleDim(), flat)
		p.add(SectionValues, s.N(), 1, s.Values())
		p.add(SectionLogDens, s.N(), 1, s.LogDensities())
		p.add(SectionGenerations, s.N(), 1, gens)
	}

	var flags uint32
	if c.Converged {
		flags |= FlagConverged
	}
	if c.Log != nil {
		p.addLog(SectionLog, c.Log, paramDim)
	}
	if c.BinLog != nil {
		flags |= FlagHasBinLog
		p.addLog(SectionBinLog, c.BinLog, paramDim)
	}
	header.Sections = p.sections

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	data := p.bytes()
	sum := ComputeChecksum(headerJSON, data)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(MagicBytes); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}
	for _, v := range []any{uint32(FormatVersion), flags, uint64(len(headerJSON))} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("failed to write fixed header: %w", err)
		}
	}
	if _, err := bw.Write(sum[:]); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := bw.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return bw.Flush()
}

// SaveFile writes c to path.
func SaveFile(path string, c *Checkpoint) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for checkpoint saving
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()
	return Write(f, c)
}
