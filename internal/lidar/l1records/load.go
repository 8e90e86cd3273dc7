package l1records

import (
	"context"
	"fmt"
	"math"
)

// Source is a reader over a waveform container. Coordinates must be cheap
// relative to Rows, which is only called for the selected footprints.
type Source interface {
	// BinCount is the fixed number of waveform bins for every footprint.
	BinCount() int
	// Coordinates returns the top and bottom coordinates of every footprint.
	Coordinates(ctx context.Context) (*Coords, error)
	// Rows returns labels, waveforms and elevations for the given source
	// indices, in the same order as idx.
	Rows(ctx context.Context, idx []int) (*Rows, error)
	Close() error
}

// Select returns the indices whose (lon[i], lat[i]) lies inside bbox, in
// ascending order.
func Select(lon, lat []float64, bbox Bounds) []int {
	var idx []int
	for i := range lon {
		if bbox.Contains(lon[i], lat[i]) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Load reads the footprints of src whose midpoint lies inside bbox.
//
// Midpoints are computed from the coordinate arrays alone. When nothing is
// selected Load returns ErrNoData without reading any waveform.
func Load(ctx context.Context, src Source, bbox Bounds) (*FootprintSet, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	bins := src.BinCount()
	if bins <= 0 {
		return nil, fmt.Errorf("%w: bin count %d", ErrMalformedSource, bins)
	}

	coords, err := src.Coordinates(ctx)
	if err != nil {
		return nil, fmt.Errorf("read coordinates: %w", err)
	}
	n := coords.Len()
	if n < 0 {
		opsf("coordinate arrays differ in length: lon0=%d lat0=%d lonN=%d latN=%d",
			len(coords.Lon0), len(coords.Lat0), len(coords.LonN), len(coords.LatN))
		return nil, fmt.Errorf("%w: coordinate arrays differ in length", ErrMalformedSource)
	}

	lon, lat := coords.Midpoints()
	idx := Select(lon, lat, bbox)
	diagf("selected %d of %d footprints in %s", len(idx), n, bbox)
	if len(idx) == 0 {
		return nil, ErrNoData
	}

	rows, err := src.Rows(ctx, idx)
	if err != nil {
		return nil, fmt.Errorf("read waveforms: %w", err)
	}
	if err := rows.check(len(idx), bins); err != nil {
		opsf("rejecting source: %v", err)
		return nil, err
	}

	set := &FootprintSet{
		Lon:         make([]float64, len(idx)),
		Lat:         make([]float64, len(idx)),
		FlightID:    rows.FlightID,
		ShotNumber:  rows.ShotNumber,
		Waveform:    rows.Waveform,
		Top:         rows.Top,
		Bottom:      rows.Bottom,
		SourceIndex: idx,
		BinCount:    bins,
	}
	for k, i := range idx {
		set.Lon[k] = lon[i]
		set.Lat[k] = lat[i]
	}
	return set, nil
}

// Extent returns the min and max footprint midpoint of src without reading
// any waveform. The max edges are the largest midpoints seen, so a Load with
// the returned box excludes the footprints that sit exactly on them.
func Extent(ctx context.Context, src Source) (Bounds, error) {
	coords, err := src.Coordinates(ctx)
	if err != nil {
		return Bounds{}, fmt.Errorf("read coordinates: %w", err)
	}
	n := coords.Len()
	if n < 0 {
		return Bounds{}, fmt.Errorf("%w: coordinate arrays differ in length", ErrMalformedSource)
	}
	if n == 0 {
		return Bounds{}, ErrNoData
	}

	lon, lat := coords.Midpoints()
	b := Bounds{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
	for i := range lon {
		b.MinX = math.Min(b.MinX, lon[i])
		b.MaxX = math.Max(b.MaxX, lon[i])
		b.MinY = math.Min(b.MinY, lat[i])
		b.MaxY = math.Max(b.MaxY, lat[i])
	}
	return b, nil
}
