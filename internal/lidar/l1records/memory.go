package l1records

import (
	"context"
	"fmt"
)

// MemorySource serves Records held in memory. It is used by tests and the
// synthetic waveform generator.
type MemorySource struct {
	rec *Records

	// RowReads counts the footprints served by Rows.
	RowReads int
}

// NewMemorySource validates rec and wraps it as a Source.
func NewMemorySource(rec *Records) (*MemorySource, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &MemorySource{rec: rec}, nil
}

func (m *MemorySource) BinCount() int {
	return m.rec.BinCount
}

func (m *MemorySource) Coordinates(ctx context.Context) (*Coords, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := m.rec.Coords
	return &c, nil
}

func (m *MemorySource) Rows(ctx context.Context, idx []int) (*Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(m.rec.Lon0)
	out := &Rows{
		FlightID:   make([]int64, len(idx)),
		ShotNumber: make([]int64, len(idx)),
		Waveform:   make([][]float64, len(idx)),
		Top:        make([]float64, len(idx)),
		Bottom:     make([]float64, len(idx)),
	}
	for k, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrMalformedSource, i, n)
		}
		out.FlightID[k] = m.rec.FlightID[i]
		out.ShotNumber[k] = m.rec.ShotNumber[i]
		out.Waveform[k] = append([]float64(nil), m.rec.Waveform[i]...)
		out.Top[k] = m.rec.Top[i]
		out.Bottom[k] = m.rec.Bottom[i]
	}
	m.RowReads += len(idx)
	return out, nil
}

func (m *MemorySource) Close() error {
	return nil
}
