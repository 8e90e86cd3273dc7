package l4denoise

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/l2ladder"
	"github.com/banshee-data/terrain.report/internal/lidar/l3noise"
)

var noSmoothing = Params{SigmaThreshold: 1, MinWidthBins: 3}

func TestDenoiseWaveform_BelowThreshold(t *testing.T) {
	t.Parallel()

	wave := []float64{10, 11, 9, 12, 10, 13, 10}
	// threshold = 10 + 5*1 = 15
	got := DenoiseWaveform(wave, 10, 1, DefaultParams(), 0.3)
	assert.Equal(t, make([]float64, len(wave)), got)
}

func TestDenoiseWaveform_LoneBinDecluttered(t *testing.T) {
	t.Parallel()

	wave := []float64{0, 0, 5, 0, 0}
	got := DenoiseWaveform(wave, 0, 1, noSmoothing, 1)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, got)
}

func TestDenoiseWaveform_SubtractsMean(t *testing.T) {
	t.Parallel()

	wave := []float64{2, 2, 9, 10, 11, 2, 2}
	got := DenoiseWaveform(wave, 2, 1, Params{SigmaThreshold: 3, MinWidthBins: 3}, 1)
	assert.Equal(t, []float64{0, 0, 7, 8, 9, 0, 0}, got)
}

func TestDenoiseWaveform_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	wave := []float64{1, 1, 8, 9, 8, 1}
	orig := append([]float64(nil), wave...)
	_ = DenoiseWaveform(wave, 1, 0.5, DefaultParams(), 0.15)
	assert.Equal(t, orig, wave)
}

func TestDeclutter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []float64
		minWidth int
		want     []float64
	}{
		{
			name:     "contiguous run survives",
			in:       []float64{0, 5, 5, 5, 0},
			minWidth: 3,
			want:     []float64{0, 5, 5, 5, 0},
		},
		{
			name:     "first and last retained are exempt",
			in:       []float64{5, 0, 5, 0, 5, 5, 5, 0, 5},
			minWidth: 3,
			want:     []float64{5, 0, 0, 0, 0, 5, 0, 0, 5},
		},
		{
			name:     "pair survives",
			in:       []float64{0, 3, 0, 0, 4},
			minWidth: 3,
			want:     []float64{0, 3, 0, 0, 4},
		},
		{
			name:     "lone bin removed",
			in:       []float64{0, 0, 5, 0, 0},
			minWidth: 2,
			want:     []float64{0, 0, 0, 0, 0},
		},
		{
			name:     "disabled",
			in:       []float64{0, 0, 5, 0, 0},
			minWidth: 1,
			want:     []float64{0, 0, 5, 0, 0},
		},
		{
			name:     "nothing retained",
			in:       []float64{0, 0, 0},
			minWidth: 3,
			want:     []float64{0, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := append([]float64(nil), tt.in...)
			Declutter(w, tt.minWidth)
			assert.Equal(t, tt.want, w)
		})
	}
}

func TestGaussianSmooth(t *testing.T) {
	t.Parallel()

	t.Run("zero sigma copies", func(t *testing.T) {
		in := []float64{1, 2, 3}
		out := GaussianSmooth(in, 0)
		assert.Equal(t, in, out)
		out[0] = 99
		assert.Equal(t, 1.0, in[0])
	})

	t.Run("impulse spreads symmetrically and keeps mass", func(t *testing.T) {
		in := make([]float64, 41)
		in[20] = 1
		out := GaussianSmooth(in, 2)
		for k := 1; k <= 8; k++ {
			assert.InDelta(t, out[20-k], out[20+k], 1e-15)
			assert.Less(t, out[20+k], out[20+k-1])
		}
		var sum float64
		for _, v := range out {
			sum += v
			assert.GreaterOrEqual(t, v, 0.0)
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	})

	t.Run("constant is preserved with reflect boundary", func(t *testing.T) {
		in := []float64{3, 3, 3, 3, 3}
		out := GaussianSmooth(in, 1.5)
		if diff := cmp.Diff(in, out, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestReflectIndex(t *testing.T) {
	t.Parallel()

	got := make([]int, 0, 12)
	for i := -4; i < 8; i++ {
		got = append(got, reflectIndex(i, 4))
	}
	assert.Equal(t, []int{3, 2, 1, 0, 0, 1, 2, 3, 3, 2, 1, 0}, got)
}

func TestGaussianKernelRadius(t *testing.T) {
	t.Parallel()

	assert.Len(t, gaussianKernel(1), 9)
	assert.Len(t, gaussianKernel(0.5), 5)
	assert.Len(t, gaussianKernel(3.33), 27)
}

// syntheticSet builds footprints with a flat noise floor around 10 and a
// ground return over bins 60-66.
func syntheticSet(n, bins int) *l1records.FootprintSet {
	set := &l1records.FootprintSet{BinCount: bins}
	for i := 0; i < n; i++ {
		w := make([]float64, bins)
		for b := range w {
			w[b] = 10 + float64((b*7+i)%5-2)*0.5
		}
		for b := 60; b <= 66; b++ {
			w[b] += 60 - 8*math.Abs(float64(b-63))
		}
		set.Lon = append(set.Lon, float64(i))
		set.Lat = append(set.Lat, 0)
		set.FlightID = append(set.FlightID, 1)
		set.ShotNumber = append(set.ShotNumber, int64(i))
		set.Waveform = append(set.Waveform, w)
		set.Top = append(set.Top, 150)
		set.Bottom = append(set.Bottom, 150-float64(bins)*0.3)
	}
	return set
}

func profiled(t *testing.T, set *l1records.FootprintSet) *l3noise.Profiled {
	t.Helper()
	dec, err := l2ladder.Decode(context.Background(), set, 4)
	require.NoError(t, err)
	prof, err := l3noise.Profile(context.Background(), dec, 10, 4)
	require.NoError(t, err)
	return prof
}

func TestDenoise_Stage(t *testing.T) {
	t.Parallel()

	prof := profiled(t, syntheticSet(6, 100))
	den, err := Denoise(context.Background(), prof, DefaultParams(), 3)
	require.NoError(t, err)
	require.Len(t, den.Denoised, 6)

	for i, w := range den.Denoised {
		require.Len(t, w, 100)
		var peak int
		for b, v := range w {
			assert.GreaterOrEqual(t, v, 0.0, "footprint %d bin %d", i, b)
			if v > w[peak] {
				peak = b
			}
		}
		assert.Equal(t, 63, peak)
		assert.Equal(t, 0.0, w[10], "noise floor should be removed")
	}
	assert.Same(t, prof, den.Profiled)
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		p       Params
		wantErr bool
	}{
		{name: "defaults", p: DefaultParams()},
		{name: "zero sigma", p: Params{SigmaThreshold: 0, MinWidthBins: 2}},
		{name: "negative sigma", p: Params{SigmaThreshold: -1, MinWidthBins: 3}, wantErr: true},
		{name: "nan sigma", p: Params{SigmaThreshold: math.NaN(), MinWidthBins: 3}, wantErr: true},
		{name: "inf sigma", p: Params{SigmaThreshold: math.Inf(1), MinWidthBins: 3}, wantErr: true},
		{name: "min width one", p: Params{SigmaThreshold: 5, MinWidthBins: 1}, wantErr: true},
		{name: "min width zero", p: Params{SigmaThreshold: 5}, wantErr: true},
		{name: "nan smoothing", p: Params{SigmaThreshold: 5, MinWidthBins: 3, SmoothWidthMeters: math.NaN()}, wantErr: true},
		{name: "inf smoothing", p: Params{SigmaThreshold: 5, MinWidthBins: 3, SmoothWidthMeters: math.Inf(1)}, wantErr: true},
		{name: "negative smoothing", p: Params{SigmaThreshold: 5, MinWidthBins: 3, SmoothWidthMeters: -0.5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDenoise_RejectsInvalidParams(t *testing.T) {
	t.Parallel()

	prof := profiled(t, syntheticSet(1, 100))
	for _, p := range []Params{
		{SigmaThreshold: -1, MinWidthBins: 3},
		{SigmaThreshold: math.NaN(), MinWidthBins: 3},
		{SigmaThreshold: 5, MinWidthBins: 1},
	} {
		den, err := Denoise(context.Background(), prof, p, 1)
		assert.Error(t, err, "params %+v", p)
		assert.Nil(t, den)
	}
}

// Noise statistics taken from a denoised waveform are not the statistics of
// its raw waveform, so profiling must run on raw data before denoising.
func TestNoiseProfileIsNotIdempotent(t *testing.T) {
	t.Parallel()

	prof := profiled(t, syntheticSet(3, 100))
	den, err := Denoise(context.Background(), prof, DefaultParams(), 1)
	require.NoError(t, err)

	for i := range den.Denoised {
		rawMean, rawStd := l3noise.WindowStats(prof.Waveform[i], prof.NoiseBins)
		cleanMean, cleanStd := l3noise.WindowStats(den.Denoised[i], prof.NoiseBins)

		assert.Equal(t, prof.NoiseMean[i], rawMean)
		assert.Equal(t, prof.NoiseStd[i], rawStd)
		assert.Greater(t, rawMean, 5.0)
		assert.Greater(t, rawStd, 0.0)
		assert.InDelta(t, 0.0, cleanMean, 1e-9)
		assert.InDelta(t, 0.0, cleanStd, 1e-9)
		assert.NotEqual(t, rawMean, cleanMean)
	}
}
