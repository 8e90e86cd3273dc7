package l3noise

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/terrain.report/internal/lidar/l2ladder"
	"github.com/banshee-data/terrain.report/internal/lidar/workers"
)

// ErrEmptyNoiseWindow is returned when the stats window is shorter than one bin.
var ErrEmptyNoiseWindow = errors.New("noise window covers no bins")

// NoiseBinCount converts a window height in metres into a bin count,
// floor(windowMeters/resolution) clamped to binCount.
func NoiseBinCount(windowMeters, resolution float64, binCount int) (int, error) {
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return 0, fmt.Errorf("noise window: resolution %g must be positive", resolution)
	}
	f := math.Floor(windowMeters / resolution)
	if math.IsNaN(f) {
		return 0, fmt.Errorf("noise window: window %g must be a number", windowMeters)
	}
	n := binCount
	if f < float64(binCount) {
		n = int(math.Max(f, 0))
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %gm at %gm/bin", ErrEmptyNoiseWindow, windowMeters, resolution)
	}
	return n, nil
}

// WindowStats returns the population mean and standard deviation of
// waveform[0:noiseBins].
func WindowStats(waveform []float64, noiseBins int) (mean, std float64) {
	return stat.PopMeanStdDev(waveform[:noiseBins], nil)
}

// ComputeStats profiles one waveform on its own: the resolution comes from
// its ladder, (ladder[0]-ladder[last])/len(ladder), and the window from
// windowMeters.
func ComputeStats(waveform, ladder []float64, windowMeters float64) (mean, std float64, err error) {
	if len(ladder) == 0 || len(waveform) != len(ladder) {
		return 0, 0, fmt.Errorf("noise stats: waveform has %d bins, ladder %d", len(waveform), len(ladder))
	}
	res := (ladder[0] - ladder[len(ladder)-1]) / float64(len(ladder))
	n, err := NoiseBinCount(windowMeters, res, len(waveform))
	if err != nil {
		return 0, 0, err
	}
	mean, std = WindowStats(waveform, n)
	return mean, std, nil
}

// Profiled is the Profiled stage: the decoded set plus per-footprint noise
// statistics computed from raw waveforms.
type Profiled struct {
	*l2ladder.Decoded

	NoiseMean []float64
	NoiseStd  []float64

	// NoiseBins is the window length in bins shared by every footprint.
	NoiseBins int
}

// Profile computes noise statistics for every footprint of dec over the top
// windowMeters of its raw waveform, using the set-wide resolution.
func Profile(ctx context.Context, dec *l2ladder.Decoded, windowMeters float64, limit int) (*Profiled, error) {
	n := dec.Len()
	bins, err := NoiseBinCount(windowMeters, dec.Resolution(), dec.BinCount)
	if err != nil {
		return nil, err
	}

	p := &Profiled{
		Decoded:   dec,
		NoiseMean: make([]float64, n),
		NoiseStd:  make([]float64, n),
		NoiseBins: bins,
	}
	err = workers.ForEach(ctx, n, limit, func(i int) error {
		p.NoiseMean[i], p.NoiseStd[i] = WindowStats(dec.Waveform[i], bins)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
