package raster

import (
	"errors"
	"math"

	"github.com/banshee-data/terrain.report/internal/lidar/l6raster"
)

// ErrEmptyClip is returned when the clip bounds miss the grid.
var ErrEmptyClip = errors.New("clip bounds do not overlap grid")

// Clip returns the cells of g that intersect b. The result stays on g's
// lattice, so its edges are b snapped outward to whole cells.
func Clip(g *Grid, b Bounds) (*Grid, error) {
	c0 := max(floorCells((b.MinX-g.MinX)/g.Resolution), 0)
	c1 := min(ceilCells((b.MaxX-g.MinX)/g.Resolution), g.Cols)
	r0 := max(floorCells((g.MaxY-b.MaxY)/g.Resolution), 0)
	r1 := min(ceilCells((g.MaxY-b.MinY)/g.Resolution), g.Rows)
	if c0 >= c1 || r0 >= r1 {
		return nil, ErrEmptyClip
	}

	out, err := l6raster.NewGrid(c1-c0, r1-r0,
		g.MinX+float64(c0)*g.Resolution, g.MaxY-float64(r0)*g.Resolution, g.Resolution)
	if err != nil {
		return nil, err
	}
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			if v, ok := g.At(r, c); ok {
				out.Set(r-r0, c-c0, v)
			}
		}
	}
	return out, nil
}

// floorCells and ceilCells round a cell count, treating values within
// alignTol of an integer as that integer.
func floorCells(x float64) int {
	return int(math.Floor(x + alignTol))
}

func ceilCells(x float64) int {
	return int(math.Ceil(x - alignTol))
}

// Intersection returns the overlap of a and b, or false when they are disjoint.
func Intersection(a, b Bounds) (Bounds, bool) {
	out := Bounds{
		MinX: math.Max(a.MinX, b.MinX),
		MinY: math.Max(a.MinY, b.MinY),
		MaxX: math.Min(a.MaxX, b.MaxX),
		MaxY: math.Min(a.MaxY, b.MaxY),
	}
	return out, out.MinX < out.MaxX && out.MinY < out.MaxY
}
