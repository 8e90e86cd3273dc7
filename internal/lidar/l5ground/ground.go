package l5ground

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/terrain.report/internal/lidar/l4denoise"
	"github.com/banshee-data/terrain.report/internal/lidar/workers"
)

// ErrShapeMismatch is returned when a ladder and a waveform differ in length.
var ErrShapeMismatch = errors.New("ladder and waveform lengths differ")

// Elevation is a ground estimate. Valid is false for a footprint with no
// return energy; Value is meaningless then and must not be used.
type Elevation struct {
	Value float64
	Valid bool
}

// Missing is the marker for a footprint without a ground estimate.
var Missing = Elevation{}

func (e Elevation) String() string {
	if !e.Valid {
		return "missing"
	}
	return fmt.Sprintf("%.3f", e.Value)
}

// EstimateGround returns the centre of gravity of ladder weighted by
// denoised, or Missing when the waveform holds no energy.
func EstimateGround(ladder, denoised []float64) (Elevation, error) {
	if len(ladder) != len(denoised) {
		return Missing, fmt.Errorf("%w: ladder %d, waveform %d", ErrShapeMismatch, len(ladder), len(denoised))
	}
	if len(denoised) == 0 || !(floats.Sum(denoised) > 0) {
		return Missing, nil
	}
	return Elevation{Value: stat.Mean(ladder, denoised), Valid: true}, nil
}

// Estimated is the GroundEstimated stage.
type Estimated struct {
	*l4denoise.Denoised

	Ground []Elevation
}

// Estimate computes the ground elevation of every footprint in den.
func Estimate(ctx context.Context, den *l4denoise.Denoised, limit int) (*Estimated, error) {
	est := &Estimated{
		Denoised: den,
		Ground:   make([]Elevation, den.Len()),
	}
	err := workers.ForEach(ctx, den.Len(), limit, func(i int) error {
		g, err := EstimateGround(den.Ladder[i], den.Denoised[i])
		if err != nil {
			return fmt.Errorf("footprint %d (shot %d): %w", i, den.ShotNumber[i], err)
		}
		est.Ground[i] = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return est, nil
}

// GroundPoint is one row of the engine's output: a footprint midpoint, its
// labels and its ground elevation or the missing marker.
type GroundPoint struct {
	Lon        float64
	Lat        float64
	FlightID   int64
	ShotNumber int64
	Elevation  Elevation
}

// Points returns the output rows in load order.
func (e *Estimated) Points() []GroundPoint {
	pts := make([]GroundPoint, e.Len())
	for i := range pts {
		pts[i] = GroundPoint{
			Lon:        e.Lon[i],
			Lat:        e.Lat[i],
			FlightID:   e.FlightID[i],
			ShotNumber: e.ShotNumber[i],
			Elevation:  e.Ground[i],
		}
	}
	return pts
}

// Summary counts valid and missing footprints.
type Summary struct {
	Footprints int
	Valid      int
	Missing    int
	// MinGround and MaxGround are NaN when no footprint is valid.
	MinGround float64
	MaxGround float64
}

// Summary reports how many footprints produced a ground estimate and the
// range of the estimates.
func (e *Estimated) Summary() Summary {
	s := Summary{
		Footprints: len(e.Ground),
		MinGround:  math.NaN(),
		MaxGround:  math.NaN(),
	}
	for _, g := range e.Ground {
		if !g.Valid {
			s.Missing++
			continue
		}
		if s.Valid == 0 {
			s.MinGround, s.MaxGround = g.Value, g.Value
		} else {
			s.MinGround = math.Min(s.MinGround, g.Value)
			s.MaxGround = math.Max(s.MaxGround, g.Value)
		}
		s.Valid++
	}
	return s
}
