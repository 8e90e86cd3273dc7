package l4denoise

import (
	"context"
	"fmt"

	"github.com/banshee-data/terrain.report/internal/lidar/l3noise"
	"github.com/banshee-data/terrain.report/internal/lidar/workers"
)

// DenoiseWaveform returns a cleaned copy of wave:
//
//  1. the noise mean is subtracted from every bin;
//  2. bins whose raw value is below noiseMean+SigmaThreshold*noiseStd are zeroed;
//  3. surviving bins without a retained neighbour on both sides are zeroed
//     (see Declutter);
//  4. the result is smoothed with a Gaussian of SmoothWidthMeters/resolution bins.
//
// Every output value is >= 0.
func DenoiseWaveform(wave []float64, noiseMean, noiseStd float64, p Params, resolution float64) []float64 {
	threshold := noiseMean + p.SigmaThreshold*noiseStd
	out := make([]float64, len(wave))
	for i, v := range wave {
		if v < threshold {
			continue
		}
		if d := v - noiseMean; d > 0 {
			out[i] = d
		}
	}

	Declutter(out, p.MinWidthBins)

	if p.SmoothWidthMeters > 0 && resolution > 0 {
		out = GaussianSmooth(out, p.SmoothWidthMeters/resolution)
	}
	return out
}

// Declutter zeroes, in place, every retained (> 0) bin that is not the first
// or last retained bin and whose retained neighbours in the pre-declutter
// list are not both adjacent to it. The first and last retained bins are
// never checked. A lone retained bin has no neighbour and is zeroed.
// minWidth <= 1 disables the pass.
func Declutter(w []float64, minWidth int) {
	if minWidth <= 1 {
		return
	}
	var kept []int
	for i, v := range w {
		if v > 0 {
			kept = append(kept, i)
		}
	}
	if len(kept) == 1 {
		w[kept[0]] = 0
		return
	}
	for j := 1; j < len(kept)-1; j++ {
		if kept[j-1] != kept[j]-1 || kept[j+1] != kept[j]+1 {
			w[kept[j]] = 0
		}
	}
}

// Denoised is the Denoised stage: the profiled set plus one cleaned
// waveform per footprint.
type Denoised struct {
	*l3noise.Profiled

	Denoised [][]float64
	Params   Params
}

// Denoise cleans every footprint of prof with p and the set-wide resolution.
func Denoise(ctx context.Context, prof *l3noise.Profiled, p Params, limit int) (*Denoised, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("denoise: %w", err)
	}
	res := prof.Resolution()
	d := &Denoised{
		Profiled: prof,
		Denoised: make([][]float64, prof.Len()),
		Params:   p,
	}
	err := workers.ForEach(ctx, prof.Len(), limit, func(i int) error {
		d.Denoised[i] = DenoiseWaveform(prof.Waveform[i], prof.NoiseMean[i], prof.NoiseStd[i], p, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
