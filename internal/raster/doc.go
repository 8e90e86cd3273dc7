// Package raster holds the grid collaborators of the ground tools: an ESRI
// ASCII grid codec, mosaicking, neighbourhood gap filling, clipping, change
// detection, contour extraction and PNG previews.
//
// All functions work on l6raster.Grid values and never modify their inputs.
package raster

import "github.com/banshee-data/terrain.report/internal/lidar/l6raster"

// Grid is the north-up raster shared with the rasterizer.
type Grid = l6raster.Grid

// Bounds is a map-coordinate rectangle.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsOf returns the outer edges of g.
func BoundsOf(g *Grid) Bounds {
	return Bounds{MinX: g.MinX, MinY: g.MinY(), MaxX: g.MaxX(), MaxY: g.MaxY}
}
