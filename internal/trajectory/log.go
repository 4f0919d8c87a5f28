// Package trajectory records the accepted steps of a variational solver.
//
// A Log is an append-only sequence of Records that can also be truncated from
// the end, which is how rejected steps are rolled back.
package trajectory

import (
	"errors"
	"fmt"

	"github.com/born-ml/bayescal/internal/proba"
)

// ErrOutOfRange is returned when more records are requested for removal than
// the log holds.
var ErrOutOfRange = errors.New("trajectory log out of range")

// Record is the state of one accepted step.
type Record struct {
	Param proba.Param // Parameter before the update
	Score float64     // Variational score: Mean + temperature * KL
	KL    float64     // KL divergence against the prior
	Mean  float64     // Mean loss
}

// Log is a chronological sequence of Records.
type Log struct {
	records []Record
}

// New creates an empty log with room for n records.
func New(n int) *Log {
	return &Log{records: make([]Record, 0, max(n, 0))}
}

// Len returns the number of records.
func (l *Log) Len() int { return len(l.records) }

// Add1 appends one record.
func (l *Log) Add1(param proba.Param, score, kl, mean float64) {
	l.records = append(l.records, Record{Param: param.Clone(), Score: score, KL: kl, Mean: mean})
}

// Add appends records in order.
func (l *Log) Add(records ...Record) {
	for _, r := range records {
		l.Add1(r.Param, r.Score, r.KL, r.Mean)
	}
}

// Suppr removes the n most recent records and returns them, oldest first.
// The log is left unchanged when it holds fewer than n records.
func (l *Log) Suppr(n int) ([]Record, error) {
	if n < 0 || n > len(l.records) {
		return nil, fmt.Errorf("suppr %d of %d records: %w", n, len(l.records), ErrOutOfRange)
	}
	cut := len(l.records) - n
	out := make([]Record, n)
	copy(out, l.records[cut:])
	clear(l.records[cut:])
	l.records = l.records[:cut]
	return out, nil
}

// Last returns up to n of the most recent records, oldest first.
func (l *Log) Last(n int) []Record {
	n = min(max(n, 0), len(l.records))
	out := make([]Record, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}

// LastRecord returns the most recent record, if any.
func (l *Log) LastRecord() (Record, bool) {
	if len(l.records) == 0 {
		return Record{}, false
	}
	return l.records[len(l.records)-1], true
}

// Records returns every record, oldest first.
func (l *Log) Records() []Record {
	return l.Last(len(l.records))
}

// Params returns the parameter history.
func (l *Log) Params() []proba.Param {
	out := make([]proba.Param, len(l.records))
	for i, r := range l.records {
		out[i] = r.Param.Clone()
	}
	return out
}

// Scores returns the variational score history.
func (l *Log) Scores() []float64 {
	return l.column(func(r Record) float64 { return r.Score })
}

// KLs returns the KL history.
func (l *Log) KLs() []float64 {
	return l.column(func(r Record) float64 { return r.KL })
}

// Means returns the mean loss history.
func (l *Log) Means() []float64 {
	return l.column(func(r Record) float64 { return r.Mean })
}

func (l *Log) column(f func(Record) float64) []float64 {
	out := make([]float64, len(l.records))
	for i, r := range l.records {
		out[i] = f(r)
	}
	return out
}
