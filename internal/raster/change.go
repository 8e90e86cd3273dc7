package raster

import (
	"errors"
	"fmt"

	"github.com/banshee-data/terrain.report/internal/lidar/l6raster"
)

// ErrShapeMismatch is returned when two grids do not share a lattice.
var ErrShapeMismatch = errors.New("grids differ in shape")

// Difference returns later minus earlier for every cell valid in both.
func Difference(later, earlier *Grid) (*Grid, error) {
	if !later.SameShape(earlier) {
		return nil, fmt.Errorf("%w: %dx%d at (%g,%g) vs %dx%d at (%g,%g)", ErrShapeMismatch,
			later.Cols, later.Rows, later.MinX, later.MaxY,
			earlier.Cols, earlier.Rows, earlier.MinX, earlier.MaxY)
	}
	out, err := l6raster.NewGrid(later.Cols, later.Rows, later.MinX, later.MaxY, later.Resolution)
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		if later.Valid[i] && earlier.Valid[i] {
			out.Data[i] = later.Data[i] - earlier.Data[i]
			out.Valid[i] = true
		}
	}
	return out, nil
}

// Volume summarises an elevation-difference grid in cubic map units.
type Volume struct {
	Net   float64
	Gain  float64
	Loss  float64
	Cells int
}

// VolumeChange integrates diff over cell area, ignoring nodata cells.
func VolumeChange(diff *Grid) Volume {
	area := diff.Resolution * diff.Resolution
	var v Volume
	for i, ok := range diff.Valid {
		if !ok {
			continue
		}
		d := diff.Data[i] * area
		v.Net += d
		if d > 0 {
			v.Gain += d
		} else {
			v.Loss -= d
		}
		v.Cells++
	}
	return v
}
