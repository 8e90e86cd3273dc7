package l4denoise

import (
	"fmt"
	"math"
)

// Params controls DenoiseWaveform.
type Params struct {
	// SigmaThreshold is the number of noise standard deviations above the
	// noise mean a raw bin must reach to survive.
	SigmaThreshold float64 `json:"sigma_threshold"`
	// MinWidthBins must be at least 2. Declutter on its own treats smaller
	// values as off.
	MinWidthBins int `json:"min_width_bins"`
	// SmoothWidthMeters is the Gaussian sigma in metres; 0 disables smoothing.
	SmoothWidthMeters float64 `json:"smooth_width_m"`
}

// DefaultParams returns the survey defaults (5 sigma, 3 bins, 0.5 m).
func DefaultParams() Params {
	return Params{
		SigmaThreshold:    5,
		MinWidthBins:      3,
		SmoothWidthMeters: 0.5,
	}
}

// Validate rejects negative or non-finite parameters and a declutter
// width below 2.
func (p Params) Validate() error {
	if !(p.SigmaThreshold >= 0) || math.IsInf(p.SigmaThreshold, 0) {
		return fmt.Errorf("sigma threshold must be finite and non-negative, got %g", p.SigmaThreshold)
	}
	if p.MinWidthBins < 2 {
		return fmt.Errorf("min width must be at least 2 bins, got %d", p.MinWidthBins)
	}
	if !(p.SmoothWidthMeters >= 0) || math.IsInf(p.SmoothWidthMeters, 0) {
		return fmt.Errorf("smooth width must be finite and non-negative, got %g", p.SmoothWidthMeters)
	}
	return nil
}
