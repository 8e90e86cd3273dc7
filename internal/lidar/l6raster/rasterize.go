package l6raster

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoPoints is returned when no point carries a ground value.
var ErrNoPoints = errors.New("no valid points to rasterize")

// Point is a projected footprint. Valid false marks a missing ground
// elevation.
type Point struct {
	X, Y  float64
	Z     float64
	Valid bool
}

// Origin places and sizes a grid.
type Origin struct {
	MinX, MaxY float64
	Cols, Rows int
}

type extent struct {
	minX, minY, maxX, maxY float64
}

func validExtent(points []Point) (extent, bool) {
	e := extent{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	n := 0
	for _, p := range points {
		if !p.Valid {
			continue
		}
		e.minX = math.Min(e.minX, p.X)
		e.maxX = math.Max(e.maxX, p.X)
		e.minY = math.Min(e.minY, p.Y)
		e.maxY = math.Max(e.maxY, p.Y)
		n++
	}
	return e, n > 0
}

// OriginForPoints sizes a grid around the valid points:
// Cols = int((maxX-minX)/res + 1), Rows = int((maxY-minY)/res + 1).
func OriginForPoints(points []Point, res float64) (Origin, error) {
	if !(res > 0) {
		return Origin{}, fmt.Errorf("resolution %g must be positive", res)
	}
	e, ok := validExtent(points)
	if !ok {
		return Origin{}, ErrNoPoints
	}
	return sizedOrigin(e.minX, e.maxY, e.maxX-e.minX, e.maxY-e.minY, res)
}

// sizedOrigin rejects grids over MaxCells before anything is allocated.
func sizedOrigin(minX, maxY, spanX, spanY, res float64) (Origin, error) {
	cols, err := CellsFor(spanX, res)
	if err != nil {
		return Origin{}, err
	}
	rows, err := CellsFor(spanY, res)
	if err != nil {
		return Origin{}, err
	}
	if cols > MaxCells/rows {
		return Origin{}, fmt.Errorf("%w: %dx%d exceeds %d cells", ErrGridTooLarge, cols, rows, MaxCells)
	}
	return Origin{MinX: minX, MaxY: maxY, Cols: cols, Rows: rows}, nil
}

// AlignedOrigin is OriginForPoints with the corner snapped to a multiple of
// res, so grids built from different point sets share one lattice and can
// be merged.
func AlignedOrigin(points []Point, res float64) (Origin, error) {
	if !(res > 0) {
		return Origin{}, fmt.Errorf("resolution %g must be positive", res)
	}
	e, ok := validExtent(points)
	if !ok {
		return Origin{}, ErrNoPoints
	}
	minX := math.Floor(e.minX/res) * res
	maxY := math.Ceil(e.maxY/res) * res
	return sizedOrigin(minX, maxY, e.maxX-minX, maxY-e.minY, res)
}

// Stats reports what Rasterize did with its input.
type Stats struct {
	Written    int
	Missing    int
	OutOfGrid  int
	Overwrites int
}

// Rasterize writes every valid point into the cell
// col = floor((x-MinX)/res), row = floor((MaxY-y)/res). Later points
// overwrite earlier ones in the same cell. Missing points are skipped;
// points outside the grid are skipped and counted.
func Rasterize(points []Point, res float64, origin Origin) (*Grid, Stats, error) {
	g, err := NewGrid(origin.Cols, origin.Rows, origin.MinX, origin.MaxY, res)
	if err != nil {
		return nil, Stats{}, err
	}
	var st Stats
	for _, p := range points {
		if !p.Valid {
			st.Missing++
			continue
		}
		row, col := g.CellOf(p.X, p.Y)
		if !g.In(row, col) {
			st.OutOfGrid++
			continue
		}
		if _, ok := g.At(row, col); ok {
			st.Overwrites++
		}
		g.Set(row, col, p.Z)
		st.Written++
	}
	return g, st, nil
}
