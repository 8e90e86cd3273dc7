package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical ground-detection defaults file.
// Survey-specific values (window sizes, projections, raster resolution) live
// there rather than in the engine packages.
const DefaultConfigPath = "config/ground.defaults.json"

// GroundConfig holds the tunable parameters for waveform ground detection and
// the downstream raster tools. All fields are optional; the Get* methods
// supply defaults for anything left unset, so partial files are safe.
type GroundConfig struct {
	// Denoising params
	SigmaThreshold    *float64 `json:"sigma_threshold,omitempty" yaml:"sigma_threshold,omitempty"`
	StatsWindowMeters *float64 `json:"stats_window_m,omitempty" yaml:"stats_window_m,omitempty"`
	MinWidthBins      *int     `json:"min_width_bins,omitempty" yaml:"min_width_bins,omitempty"`
	SmoothWidthMeters *float64 `json:"smooth_width_m,omitempty" yaml:"smooth_width_m,omitempty"`

	// Raster params
	RasterResolutionMeters *float64 `json:"raster_resolution_m,omitempty" yaml:"raster_resolution_m,omitempty"`
	SourceEPSG             *int     `json:"source_epsg,omitempty" yaml:"source_epsg,omitempty"`
	TargetEPSG             *int     `json:"target_epsg,omitempty" yaml:"target_epsg,omitempty"`
	NoDataValue            *float64 `json:"nodata,omitempty" yaml:"nodata,omitempty"`

	// Post-processing params
	GapFillWindow         *int     `json:"gap_fill_window,omitempty" yaml:"gap_fill_window,omitempty"`
	ContourIntervalMeters *float64 `json:"contour_interval_m,omitempty" yaml:"contour_interval_m,omitempty"`

	// Workers bounds per-footprint parallelism. 0 means GOMAXPROCS.
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// EmptyGroundConfig returns a GroundConfig with all fields set to nil.
func EmptyGroundConfig() *GroundConfig {
	return &GroundConfig{}
}

// LoadGroundConfig loads a GroundConfig from a JSON or YAML file.
// The extension selects the decoder (.json, .yaml, .yml) and the file must be
// under 1MB. The result is validated before it is returned.
func LoadGroundConfig(path string) (*GroundConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyGroundConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *GroundConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lidar/pipeline/
		"../../../../" + DefaultConfigPath, // from internal/lidar/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadGroundConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks that the configuration values are usable. YAML can
// spell NaN and infinity (.nan, .inf), so every float must be finite.
func (c *GroundConfig) Validate() error {
	if c.SigmaThreshold != nil && (!(*c.SigmaThreshold >= 0) || !finite(*c.SigmaThreshold)) {
		return fmt.Errorf("sigma_threshold must be finite and non-negative, got %f", *c.SigmaThreshold)
	}
	if c.StatsWindowMeters != nil && (!(*c.StatsWindowMeters > 0) || !finite(*c.StatsWindowMeters)) {
		return fmt.Errorf("stats_window_m must be finite and positive, got %f", *c.StatsWindowMeters)
	}
	if c.MinWidthBins != nil && *c.MinWidthBins < 2 {
		return fmt.Errorf("min_width_bins must be at least 2, got %d", *c.MinWidthBins)
	}
	if c.SmoothWidthMeters != nil && (!(*c.SmoothWidthMeters >= 0) || !finite(*c.SmoothWidthMeters)) {
		return fmt.Errorf("smooth_width_m must be finite and non-negative, got %f", *c.SmoothWidthMeters)
	}
	if c.RasterResolutionMeters != nil && (!(*c.RasterResolutionMeters > 0) || !finite(*c.RasterResolutionMeters)) {
		return fmt.Errorf("raster_resolution_m must be finite and positive, got %f", *c.RasterResolutionMeters)
	}
	if c.NoDataValue != nil && !finite(*c.NoDataValue) {
		return fmt.Errorf("nodata must be finite, got %f", *c.NoDataValue)
	}
	if c.GapFillWindow != nil && *c.GapFillWindow < 0 {
		return fmt.Errorf("gap_fill_window must be non-negative, got %d", *c.GapFillWindow)
	}
	if c.ContourIntervalMeters != nil && (!(*c.ContourIntervalMeters > 0) || !finite(*c.ContourIntervalMeters)) {
		return fmt.Errorf("contour_interval_m must be finite and positive, got %f", *c.ContourIntervalMeters)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetSigmaThreshold returns the sigma_threshold value or the default.
func (c *GroundConfig) GetSigmaThreshold() float64 {
	if c.SigmaThreshold == nil {
		return 5.0
	}
	return *c.SigmaThreshold
}

// GetStatsWindowMeters returns the stats_window_m value or the default.
func (c *GroundConfig) GetStatsWindowMeters() float64 {
	if c.StatsWindowMeters == nil {
		return 10.0
	}
	return *c.StatsWindowMeters
}

// GetMinWidthBins returns the min_width_bins value or the default.
func (c *GroundConfig) GetMinWidthBins() int {
	if c.MinWidthBins == nil {
		return 3
	}
	return *c.MinWidthBins
}

// GetSmoothWidthMeters returns the smooth_width_m value or the default.
func (c *GroundConfig) GetSmoothWidthMeters() float64 {
	if c.SmoothWidthMeters == nil {
		return 0.5
	}
	return *c.SmoothWidthMeters
}

// GetRasterResolutionMeters returns the raster_resolution_m value or the default.
func (c *GroundConfig) GetRasterResolutionMeters() float64 {
	if c.RasterResolutionMeters == nil {
		return 10.0
	}
	return *c.RasterResolutionMeters
}

// GetSourceEPSG returns the source_epsg value or the default (WGS84 lon/lat).
func (c *GroundConfig) GetSourceEPSG() int {
	if c.SourceEPSG == nil {
		return 4326
	}
	return *c.SourceEPSG
}

// GetTargetEPSG returns the target_epsg value or the default (Antarctic polar stereographic).
func (c *GroundConfig) GetTargetEPSG() int {
	if c.TargetEPSG == nil {
		return 3031
	}
	return *c.TargetEPSG
}

// GetNoDataValue returns the nodata value or the default.
func (c *GroundConfig) GetNoDataValue() float64 {
	if c.NoDataValue == nil {
		return -999.0
	}
	return *c.NoDataValue
}

// GetGapFillWindow returns the gap_fill_window value or the default.
func (c *GroundConfig) GetGapFillWindow() int {
	if c.GapFillWindow == nil {
		return 30
	}
	return *c.GapFillWindow
}

// GetContourIntervalMeters returns the contour_interval_m value or the default.
func (c *GroundConfig) GetContourIntervalMeters() float64 {
	if c.ContourIntervalMeters == nil {
		return 50.0
	}
	return *c.ContourIntervalMeters
}

// GetWorkers returns the effective worker count. Zero or unset resolves to GOMAXPROCS.
func (c *GroundConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}
