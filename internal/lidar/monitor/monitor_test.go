package monitor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/l5ground"
	"github.com/banshee-data/terrain.report/internal/lidar/pipeline"
)

// runSmall runs the engine over four footprints; the last one carries flat
// noise only and has no ground estimate.
func runSmall(t *testing.T) *l5ground.Estimated {
	t.Helper()
	const bins = 80
	rec := &l1records.Records{BinCount: bins}
	for k := 0; k < 4; k++ {
		lon := float64(k) * 0.01
		rec.Lon0 = append(rec.Lon0, lon)
		rec.LonN = append(rec.LonN, lon)
		rec.Lat0 = append(rec.Lat0, -70)
		rec.LatN = append(rec.LatN, -70)
		rec.FlightID = append(rec.FlightID, 7)
		rec.ShotNumber = append(rec.ShotNumber, int64(100+k))
		w := make([]float64, bins)
		for b := range w {
			w[b] = 10 + float64(b%2)
		}
		if k < 3 {
			for b := 50; b <= 56; b++ {
				w[b] += 60
			}
		}
		rec.Waveform = append(rec.Waveform, w)
		rec.Top = append(rec.Top, 100)
		rec.Bottom = append(rec.Bottom, 100-bins*0.5)
	}
	src, err := l1records.NewMemorySource(rec)
	require.NoError(t, err)

	est, err := pipeline.Run(context.Background(), src, l1records.Everywhere(), pipeline.DefaultConfig())
	require.NoError(t, err)
	require.True(t, est.Ground[0].Valid)
	require.False(t, est.Ground[3].Valid)
	return est
}

func TestSampleIndices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		n     int
		count int
		want  []int
	}{
		{name: "empty", n: 0, count: 3, want: nil},
		{name: "zero count", n: 5, count: 0, want: nil},
		{name: "single", n: 5, count: 1, want: []int{0}},
		{name: "all", n: 3, count: 5, want: []int{0, 1, 2}},
		{name: "ends included", n: 11, count: 3, want: []int{0, 5, 10}},
		{name: "spread", n: 10, count: 4, want: []int{0, 3, 6, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SampleIndices(tt.n, tt.count))
		})
	}
}

func TestFootprintPlotter_PlotSample(t *testing.T) {
	est := runSmall(t)
	dir := filepath.Join(t.TempDir(), "plots")

	fp, err := NewFootprintPlotter(dir)
	require.NoError(t, err)

	n, err := fp.PlotSample(est, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, name := range []string{"footprint_000000_shot_100.png", "footprint_000003_shot_103.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestFootprintPlotter_OutOfRange(t *testing.T) {
	est := runSmall(t)
	fp, err := NewFootprintPlotter(t.TempDir())
	require.NoError(t, err)

	err = fp.PlotFootprint(est, 4, filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

func TestProfileSeries_MissingAsGap(t *testing.T) {
	est := runSmall(t)

	x, y := profileSeries(est)
	require.Len(t, x, 4)
	require.Len(t, y, 4)
	assert.Equal(t, []string{"100", "101", "102", "103"}, x)
	assert.Equal(t, opts.LineData{Value: est.Ground[0].Value}, y[0])
	assert.Equal(t, opts.LineData{Value: missingValue}, y[3])
}

func TestRenderGroundProfile(t *testing.T) {
	est := runSmall(t)

	var buf bytes.Buffer
	require.NoError(t, RenderGroundProfile(&buf, est, "Line 7 ground"))
	out := buf.String()
	assert.Contains(t, out, "Line 7 ground")
	assert.Contains(t, out, "echarts")
}
