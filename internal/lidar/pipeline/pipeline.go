package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/l2ladder"
	"github.com/banshee-data/terrain.report/internal/lidar/l3noise"
	"github.com/banshee-data/terrain.report/internal/lidar/l4denoise"
	"github.com/banshee-data/terrain.report/internal/lidar/l5ground"
	"github.com/banshee-data/terrain.report/internal/lidar/l6raster"
)

// Config holds the engine parameters for one run.
type Config struct {
	StatsWindowMeters float64          `json:"stats_window_m"`
	Denoise           l4denoise.Params `json:"denoise"`
	// Workers bounds per-footprint parallelism; 0 means GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultConfig returns the survey defaults.
func DefaultConfig() Config {
	return Config{
		StatsWindowMeters: 10,
		Denoise:           l4denoise.DefaultParams(),
	}
}

// ConfigFromGround builds a run Config from the loaded tuning file.
func ConfigFromGround(c *config.GroundConfig) Config {
	return Config{
		StatsWindowMeters: c.GetStatsWindowMeters(),
		Denoise: l4denoise.Params{
			SigmaThreshold:    c.GetSigmaThreshold(),
			MinWidthBins:      c.GetMinWidthBins(),
			SmoothWidthMeters: c.GetSmoothWidthMeters(),
		},
		Workers: c.GetWorkers(),
	}
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	if !(c.StatsWindowMeters > 0) {
		return fmt.Errorf("stats window must be positive, got %g", c.StatsWindowMeters)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return c.Denoise.Validate()
}

// Run loads the footprints of src inside bbox and carries them through
// decode, noise profiling, denoising and ground estimation.
//
// When the box is empty the returned error wraps l1records.ErrNoData;
// callers check it with errors.Is.
func Run(ctx context.Context, src l1records.Source, bbox l1records.Bounds, cfg Config) (*l5ground.Estimated, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	start := time.Now()
	set, err := l1records.Load(ctx, src, bbox)
	if err != nil {
		if errors.Is(err, l1records.ErrNoData) {
			diagf("no footprints in %s", bbox)
		}
		return nil, fmt.Errorf("load: %w", err)
	}
	diagf("loaded %d footprints (%d bins) in %s", set.Len(), set.BinCount, time.Since(start))

	stage := time.Now()
	dec, err := l2ladder.Decode(ctx, set, cfg.Workers)
	if err != nil {
		opsf("decode failed: %v", err)
		return nil, fmt.Errorf("decode: %w", err)
	}
	diagf("decoded ladders at %.4f m/bin in %s", dec.Resolution(), time.Since(stage))

	stage = time.Now()
	prof, err := l3noise.Profile(ctx, dec, cfg.StatsWindowMeters, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	diagf("profiled noise over %d bins in %s", prof.NoiseBins, time.Since(stage))

	stage = time.Now()
	den, err := l4denoise.Denoise(ctx, prof, cfg.Denoise, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("denoise: %w", err)
	}
	diagf("denoised in %s", time.Since(stage))

	stage = time.Now()
	est, err := l5ground.Estimate(ctx, den, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	for i, g := range est.Ground {
		tracef("shot %d ground %s", est.ShotNumber[i], g)
	}

	s := est.Summary()
	diagf("estimated ground in %s: %d valid, %d missing", time.Since(stage), s.Valid, s.Missing)
	if s.Valid == 0 {
		opsf("no footprint produced a ground estimate (%d footprints)", s.Footprints)
	}
	return est, nil
}

// Projector maps a longitude/latitude pair into map coordinates.
type Projector interface {
	Project(lon, lat float64) (x, y float64, err error)
}

// ProjectPoints converts ground points into raster points. Missing points
// are kept, unprojected, so rasterization can count them.
func ProjectPoints(points []l5ground.GroundPoint, proj Projector) ([]l6raster.Point, error) {
	out := make([]l6raster.Point, len(points))
	for i, p := range points {
		if !p.Elevation.Valid {
			continue
		}
		x, y, err := proj.Project(p.Lon, p.Lat)
		if err != nil {
			return nil, fmt.Errorf("project shot %d: %w", p.ShotNumber, err)
		}
		out[i] = l6raster.Point{X: x, Y: y, Z: p.Elevation.Value, Valid: true}
	}
	return out, nil
}

// RasterizeGround projects the ground estimates of est and bins them onto a
// grid of res-sized cells sized to the valid points.
func RasterizeGround(est *l5ground.Estimated, proj Projector, res float64) (*l6raster.Grid, l6raster.Stats, error) {
	return rasterizeGround(est, proj, res, l6raster.OriginForPoints)
}

// RasterizeGroundAligned is RasterizeGround on a lattice anchored at
// multiples of res, for grids that will be merged.
func RasterizeGroundAligned(est *l5ground.Estimated, proj Projector, res float64) (*l6raster.Grid, l6raster.Stats, error) {
	return rasterizeGround(est, proj, res, l6raster.AlignedOrigin)
}

func rasterizeGround(est *l5ground.Estimated, proj Projector, res float64,
	originFor func([]l6raster.Point, float64) (l6raster.Origin, error)) (*l6raster.Grid, l6raster.Stats, error) {
	pts, err := ProjectPoints(est.Points(), proj)
	if err != nil {
		return nil, l6raster.Stats{}, err
	}
	origin, err := originFor(pts, res)
	if err != nil {
		return nil, l6raster.Stats{}, err
	}
	g, st, err := l6raster.Rasterize(pts, res, origin)
	if err != nil {
		return nil, st, err
	}
	diagf("rasterized %d points into %dx%d grid (%d overwrites, %d missing)",
		st.Written, g.Cols, g.Rows, st.Overwrites, st.Missing)
	return g, st, nil
}
