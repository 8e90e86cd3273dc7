package l6raster

import (
	"errors"
	"fmt"
	"math"
)

// MaxCells bounds the number of cells any grid may hold.
const MaxCells = 1 << 28

// ErrGridTooLarge is returned when a grid would exceed MaxCells.
var ErrGridTooLarge = errors.New("grid too large")

// Grid is a north-up raster. Row 0 is the northern edge; Data and Valid
// are row-major with Cols*Rows entries. Cells with Valid false hold no data.
type Grid struct {
	Cols       int
	Rows       int
	MinX       float64
	MaxY       float64
	Resolution float64
	Data       []float64
	Valid      []bool
}

// NewGrid allocates an all-nodata grid.
func NewGrid(cols, rows int, minX, maxY, res float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("grid size %dx%d must be positive", cols, rows)
	}
	if cols > MaxCells/rows {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d cells", ErrGridTooLarge, cols, rows, MaxCells)
	}
	if !(res > 0) || math.IsInf(res, 0) {
		return nil, fmt.Errorf("grid resolution %g must be positive", res)
	}
	return &Grid{
		Cols:       cols,
		Rows:       rows,
		MinX:       minX,
		MaxY:       maxY,
		Resolution: res,
		Data:       make([]float64, cols*rows),
		Valid:      make([]bool, cols*rows),
	}, nil
}

// CellsFor converts a span in map units into a whole number of cells,
// checking the float before the int conversion.
func CellsFor(span, res float64) (int, error) {
	n := math.Floor(span/res) + 1
	if !(n >= 1) || n > MaxCells {
		return 0, fmt.Errorf("%w: span %g at resolution %g", ErrGridTooLarge, span, res)
	}
	return int(n), nil
}

// Idx returns the flat index of (row, col).
func (g *Grid) Idx(row, col int) int {
	return row*g.Cols + col
}

// In reports whether (row, col) lies inside the grid.
func (g *Grid) In(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// At returns the value of (row, col) and whether it holds data.
func (g *Grid) At(row, col int) (float64, bool) {
	if !g.In(row, col) {
		return 0, false
	}
	i := g.Idx(row, col)
	return g.Data[i], g.Valid[i]
}

// Set stores v at (row, col) and marks it valid.
func (g *Grid) Set(row, col int, v float64) {
	i := g.Idx(row, col)
	g.Data[i] = v
	g.Valid[i] = true
}

// Clear marks (row, col) as nodata.
func (g *Grid) Clear(row, col int) {
	i := g.Idx(row, col)
	g.Data[i] = 0
	g.Valid[i] = false
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Data = append([]float64(nil), g.Data...)
	c.Valid = append([]bool(nil), g.Valid...)
	return &c
}

// MaxX is the eastern edge.
func (g *Grid) MaxX() float64 {
	return g.MinX + float64(g.Cols)*g.Resolution
}

// MinY is the southern edge.
func (g *Grid) MinY() float64 {
	return g.MaxY - float64(g.Rows)*g.Resolution
}

// CellCenter returns the map coordinate of the centre of (row, col).
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	return g.MinX + (float64(col)+0.5)*g.Resolution, g.MaxY - (float64(row)+0.5)*g.Resolution
}

// CellOf returns the cell containing (x, y); it may lie outside the grid.
func (g *Grid) CellOf(x, y float64) (row, col int) {
	col = int(math.Floor((x - g.MinX) / g.Resolution))
	row = int(math.Floor((g.MaxY - y) / g.Resolution))
	return row, col
}

// GeoTransform returns the affine transform in GDAL order:
// (MinX, res, 0, MaxY, 0, -res).
func (g *Grid) GeoTransform() [6]float64 {
	return [6]float64{g.MinX, g.Resolution, 0, g.MaxY, 0, -g.Resolution}
}

// ValidCount returns the number of cells holding data.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Valid {
		if v {
			n++
		}
	}
	return n
}

// shapeTol is the fraction of a cell by which two origins may differ and
// still be the same lattice.
const shapeTol = 1e-6

// SameShape reports whether g and o share size, origin and resolution.
func (g *Grid) SameShape(o *Grid) bool {
	tol := shapeTol * g.Resolution
	return g.Cols == o.Cols && g.Rows == o.Rows &&
		math.Abs(g.MinX-o.MinX) <= tol &&
		math.Abs(g.MaxY-o.MaxY) <= tol &&
		math.Abs(g.Resolution-o.Resolution) <= tol
}
