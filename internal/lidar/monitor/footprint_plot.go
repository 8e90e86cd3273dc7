package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/terrain.report/internal/lidar/l5ground"
)

var (
	rawColor      = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	denoisedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	groundColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// FootprintPlotter writes energy-versus-elevation plots for footprints of a
// finished run.
type FootprintPlotter struct {
	outputDir string

	// Width and Height of each PNG.
	Width  vg.Length
	Height vg.Length
}

// NewFootprintPlotter creates the output directory if needed.
func NewFootprintPlotter(outputDir string) (*FootprintPlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	return &FootprintPlotter{
		outputDir: outputDir,
		Width:     6 * vg.Inch,
		Height:    8 * vg.Inch,
	}, nil
}

// SampleIndices returns up to count footprint indices spread evenly over
// [0, n). The first and last footprints are always included when count >= 2.
func SampleIndices(n, count int) []int {
	if n <= 0 || count <= 0 {
		return nil
	}
	if count >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	if count == 1 {
		return []int{0}
	}
	idx := make([]int, count)
	step := float64(n-1) / float64(count-1)
	for i := range idx {
		idx[i] = int(math.Round(float64(i) * step))
	}
	return idx
}

// PlotSample writes one PNG per sampled footprint and returns how many were
// written.
func (fp *FootprintPlotter) PlotSample(est *l5ground.Estimated, count int) (int, error) {
	written := 0
	for _, i := range SampleIndices(est.Len(), count) {
		name := fmt.Sprintf("footprint_%06d_shot_%d.png", i, est.ShotNumber[i])
		if err := fp.PlotFootprint(est, i, filepath.Join(fp.outputDir, name)); err != nil {
			return written, fmt.Errorf("footprint %d: %w", i, err)
		}
		written++
	}
	return written, nil
}

// PlotFootprint draws the raw and denoised waveform of footprint i against
// its elevation ladder, with the ground estimate as a horizontal line.
func (fp *FootprintPlotter) PlotFootprint(est *l5ground.Estimated, i int, path string) error {
	if i < 0 || i >= est.Len() {
		return fmt.Errorf("footprint index %d out of range [0,%d)", i, est.Len())
	}
	ladder := est.Ladder[i]
	raw := est.Waveform[i]
	den := est.Denoised.Denoised[i]

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Flight %d shot %d", est.FlightID[i], est.ShotNumber[i])
	p.X.Label.Text = "Energy"
	p.Y.Label.Text = "Elevation (m)"

	rawLine, err := plotter.NewLine(profileXYs(raw, ladder))
	if err != nil {
		return fmt.Errorf("raw line: %w", err)
	}
	rawLine.Color = rawColor
	rawLine.Width = vg.Points(1)
	p.Add(rawLine)
	p.Legend.Add("raw", rawLine)

	denLine, err := plotter.NewLine(profileXYs(den, ladder))
	if err != nil {
		return fmt.Errorf("denoised line: %w", err)
	}
	denLine.Color = denoisedColor
	denLine.Width = vg.Points(1.5)
	p.Add(denLine)
	p.Legend.Add("denoised", denLine)

	if g := est.Ground[i]; g.Valid {
		maxE := 0.0
		for _, v := range raw {
			maxE = math.Max(maxE, v)
		}
		groundLine, err := plotter.NewLine(plotter.XYs{{X: 0, Y: g.Value}, {X: maxE, Y: g.Value}})
		if err != nil {
			return fmt.Errorf("ground line: %w", err)
		}
		groundLine.Color = groundColor
		groundLine.Width = vg.Points(1)
		groundLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(groundLine)
		p.Legend.Add(fmt.Sprintf("ground %.2f m", g.Value), groundLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(fp.Width, fp.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func profileXYs(values, ladder []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for b, v := range values {
		pts[b] = plotter.XY{X: v, Y: ladder[b]}
	}
	return pts
}
