package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/uuid"

	"github.com/born-ml/bayescal/internal/accu"
	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/trajectory"
)

// Read decodes a checkpoint from r, validating the checksum and every section.
func Read(r io.Reader) (*Checkpoint, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(magic) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	var (
		version, flags uint32
		headerSize     uint64
		stored         [ChecksumSize]byte
	)
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return nil, fmt.Errorf("failed to read checksum: %w", err)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if err := ValidateChecksum(ComputeChecksum(headerJSON, raw), stored); err != nil {
		return nil, err
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if len(raw)%8 != 0 {
		return nil, &ValidationError{Type: "payload", Details: fmt.Sprintf("%d bytes is not a whole number of float64", len(raw))}
	}
	data := make([]float64, len(raw)/8)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}

	if err := ValidateHeader(header, int64(len(data))); err != nil {
		return nil, err
	}

	d := decoder{header: header, data: data}
	return d.checkpoint(flags)
}

// LoadFile reads a checkpoint from path.
func LoadFile(path string) (*Checkpoint, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for checkpoint loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

type decoder struct {
	header Header
	data   []float64
}

// section returns the named section, checking its bounds and column count.
// cols < 0 accepts any column count.
func (d *decoder) section(name string, cols int) (SectionMeta, []float64, error) {
	for _, s := range d.header.Sections {
		if s.Name != name {
			continue
		}
		if s.Offset < 0 || s.Rows < 0 || s.Cols < 0 || s.Offset+s.Len() > int64(len(d.data)) {
			return s, nil, fmt.Errorf("section %q: %w", name, ErrOutOfBounds)
		}
		if cols >= 0 && s.Cols != cols {
			return s, nil, &ValidationError{Type: "shape", Section: name, Details: fmt.Sprintf("got %d columns, want %d", s.Cols, cols)}
		}
		return s, d.data[s.Offset : s.Offset+s.Len()], nil
	}
	return SectionMeta{}, nil, fmt.Errorf("%w: %q", ErrMissingSection, name)
}

func (d *decoder) has(name string) bool {
	for _, s := range d.header.Sections {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (d *decoder) checkpoint(flags uint32) (*Checkpoint, error) {
	h := d.header
	_, end, err := d.section(SectionEndParam, h.ParamDim)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(h.RunID)
	if err != nil {
		return nil, &ValidationError{Type: "header", Details: fmt.Sprintf("run id: %v", err)}
	}
	c := &Checkpoint{
		RunID:     id,
		CreatedAt: h.CreatedAt,
		Converged: flags&FlagConverged != 0,
		EndParam:  proba.Param(end).Clone(),
		Metadata:  h.Metadata,
	}

	if d.has(SectionSamples) {
		if c.Samples, err = d.samples(); err != nil {
			return nil, err
		}
	}
	if d.has(SectionLog) {
		if c.Log, err = d.log(SectionLog); err != nil {
			return nil, err
		}
	}
	if flags&FlagHasBinLog != 0 {
		if c.BinLog, err = d.log(SectionBinLog); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (d *decoder) samples() (*accu.SampleValDens, error) {
	h := d.header
	if h.SampleDim <= 0 {
		return nil, &ValidationError{Type: "shape", Section: SectionSamples, Details: "sample dimension must be positive"}
	}
	meta, flat, err := d.section(SectionSamples, h.SampleDim)
	if err != nil {
		return nil, err
	}
	n := meta.Rows
	_, vals, err := d.section(SectionValues, 1)
	if err != nil {
		return nil, err
	}
	_, logDens, err := d.section(SectionLogDens, 1)
	if err != nil {
		return nil, err
	}
	_, gens, err := d.section(SectionGenerations, 1)
	if err != nil {
		return nil, err
	}
	if len(vals) != n || len(logDens) != n || len(gens) != n {
		return nil, &ValidationError{Type: "shape", Section: SectionSamples, Details: "sample sections differ in length"}
	}
	if h.Capacity < n {
		return nil, &ValidationError{Type: "capacity", Details: fmt.Sprintf("%d samples for capacity %d", n, h.Capacity)}
	}

	// Allocate for the stored samples only; the rest of the capacity is
	// bookkeeping.
	a := accu.NewSampleValDens(h.SampleDim, n)
	if err := a.ExtendMemory(h.Capacity - n); err != nil {
		return nil, err
	}
	xs := make([]proba.Sample, n)
	for i := range xs {
		xs[i] = proba.Sample(flat[i*h.SampleDim : (i+1)*h.SampleDim])
	}

	// Replay generations in order, including empty ones.
	start := 0
	for gen := 0; gen < h.NGen; gen++ {
		end := start
		for end < n && int(gens[end]) == gen {
			end++
		}
		if err := a.Add(xs[start:end], logDens[start:end], vals[start:end]); err != nil {
			return nil, fmt.Errorf("replay generation %d: %w", gen, err)
		}
		start = end
	}
	if start != n {
		return nil, &ValidationError{Type: "generations", Section: SectionGenerations, Details: "generation ids are not contiguous"}
	}
	return a, nil
}

func (d *decoder) log(name string) (*trajectory.Log, error) {
	meta, data, err := d.section(name, 3+d.header.ParamDim)
	if err != nil {
		return nil, err
	}
	l := trajectory.New(meta.Rows)
	for i := range meta.Rows {
		row := data[i*meta.Cols : (i+1)*meta.Cols]
		l.Add1(proba.Param(row[3:]), row[0], row[1], row[2])
	}
	return l, nil
}
