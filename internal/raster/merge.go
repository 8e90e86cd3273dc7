package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/terrain.report/internal/lidar/l6raster"
)

// ErrNoGrids is returned by Merge when called without input.
var ErrNoGrids = errors.New("no grids to merge")

// alignTol is the fraction of a cell by which grid origins may disagree.
const alignTol = 1e-6

// Merge mosaics grids onto their union extent. Every grid must share the
// first grid's resolution and lattice. Where grids overlap the first valid
// value in argument order wins.
func Merge(grids ...*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, ErrNoGrids
	}
	res := grids[0].Resolution
	ext := BoundsOf(grids[0])
	for i, g := range grids[1:] {
		if math.Abs(g.Resolution-res) > alignTol*res {
			return nil, fmt.Errorf("merge: grid %d resolution %g differs from %g", i+1, g.Resolution, res)
		}
		b := BoundsOf(g)
		ext.MinX = math.Min(ext.MinX, b.MinX)
		ext.MinY = math.Min(ext.MinY, b.MinY)
		ext.MaxX = math.Max(ext.MaxX, b.MaxX)
		ext.MaxY = math.Max(ext.MaxY, b.MaxY)
	}

	fc := math.Round((ext.MaxX - ext.MinX) / res)
	fr := math.Round((ext.MaxY - ext.MinY) / res)
	if !(fc <= l6raster.MaxCells && fr <= l6raster.MaxCells) {
		return nil, fmt.Errorf("merge: %w: union extent %gx%g cells", l6raster.ErrGridTooLarge, fc, fr)
	}
	out, err := l6raster.NewGrid(int(fc), int(fr), ext.MinX, ext.MaxY, res)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	for i, g := range grids {
		c0, err := cellOffset(g.MinX-out.MinX, res)
		if err != nil {
			return nil, fmt.Errorf("merge: grid %d x origin: %w", i, err)
		}
		r0, err := cellOffset(out.MaxY-g.MaxY, res)
		if err != nil {
			return nil, fmt.Errorf("merge: grid %d y origin: %w", i, err)
		}
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				v, ok := g.At(r, c)
				if !ok {
					continue
				}
				if !out.In(r0+r, c0+c) {
					continue
				}
				if _, taken := out.At(r0+r, c0+c); taken {
					continue
				}
				out.Set(r0+r, c0+c, v)
			}
		}
	}
	return out, nil
}

// cellOffset converts a distance into a whole number of cells.
func cellOffset(d, res float64) (int, error) {
	f := d / res
	n := math.Round(f)
	if math.Abs(f-n) > alignTol*math.Max(1, math.Abs(f)) {
		return 0, fmt.Errorf("offset %g is not a multiple of cell size %g", d, res)
	}
	return int(n), nil
}
