package raster

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ContourFeature is one 8-connected group of contour cells at a level.
type ContourFeature struct {
	ID        int
	Elevation float64
	Points    orb.MultiPoint
}

// Round snaps every valid cell of g to the nearest multiple of interval.
func Round(g *Grid, interval float64) *Grid {
	out := g.Clone()
	for i, ok := range out.Valid {
		if ok {
			out.Data[i] = math.Round(out.Data[i]/interval) * interval
		}
	}
	return out
}

// ContourCells marks the upper edge of each level step in a rounded grid:
// cells with a valid 8-neighbour at another level whose own level is the
// highest in their 3x3 neighbourhood. Marked cells keep their level.
func ContourCells(rounded *Grid) *Grid {
	out := &Grid{
		Cols:       rounded.Cols,
		Rows:       rounded.Rows,
		MinX:       rounded.MinX,
		MaxY:       rounded.MaxY,
		Resolution: rounded.Resolution,
		Data:       make([]float64, len(rounded.Data)),
		Valid:      make([]bool, len(rounded.Valid)),
	}
	for r := 0; r < rounded.Rows; r++ {
		for c := 0; c < rounded.Cols; c++ {
			v, ok := rounded.At(r, c)
			if !ok {
				continue
			}
			edge, top := false, true
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					n, ok := rounded.At(r+dr, c+dc)
					if !ok || (dr == 0 && dc == 0) {
						continue
					}
					if n != v {
						edge = true
					}
					if n > v {
						top = false
					}
				}
			}
			if edge && top {
				out.Set(r, c, v)
			}
		}
	}
	return out
}

// Contours rounds g to interval and groups the upper-edge cells of every
// level into 8-connected features. Features are ordered by level, then by
// first cell in row-major order. It also returns the contour cell grid.
func Contours(g *Grid, interval float64) ([]ContourFeature, *Grid, error) {
	if !(interval > 0) {
		return nil, nil, fmt.Errorf("contour interval %g must be positive", interval)
	}
	cells := ContourCells(Round(g, interval))

	seen := make([]bool, len(cells.Data))
	var feats []ContourFeature
	for start := range cells.Data {
		if !cells.Valid[start] || seen[start] {
			continue
		}
		level := cells.Data[start]
		f := ContourFeature{Elevation: level}
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			r, c := i/cells.Cols, i%cells.Cols
			x, y := cells.CellCenter(r, c)
			f.Points = append(f.Points, orb.Point{x, y})
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					nr, nc := r+dr, c+dc
					if !cells.In(nr, nc) {
						continue
					}
					j := cells.Idx(nr, nc)
					if seen[j] || !cells.Valid[j] || cells.Data[j] != level {
						continue
					}
					seen[j] = true
					queue = append(queue, j)
				}
			}
		}
		feats = append(feats, f)
	}

	sort.SliceStable(feats, func(a, b int) bool { return feats[a].Elevation < feats[b].Elevation })
	for i := range feats {
		feats[i].ID = i + 1
	}
	return feats, cells, nil
}

// ContoursGeoJSON encodes features as a GeoJSON FeatureCollection of
// MultiPoint geometries with id, elev and cells properties.
func ContoursGeoJSON(feats []ContourFeature) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range feats {
		gf := geojson.NewFeature(f.Points)
		gf.Properties["id"] = f.ID
		gf.Properties["elev"] = f.Elevation
		gf.Properties["cells"] = len(f.Points)
		fc.Append(gf)
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encode contours: %w", err)
	}
	return b, nil
}
