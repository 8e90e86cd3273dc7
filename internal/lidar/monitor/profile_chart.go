package monitor

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/terrain.report/internal/lidar/l5ground"
)

// missingValue is how echarts expects a gap in a line series.
const missingValue = "-"

// profileSeries returns the shot labels and ground values of est in load
// order, with missing footprints as gaps.
func profileSeries(est *l5ground.Estimated) ([]string, []opts.LineData) {
	x := make([]string, len(est.Ground))
	y := make([]opts.LineData, len(est.Ground))
	for i, g := range est.Ground {
		x[i] = strconv.FormatInt(est.ShotNumber[i], 10)
		if g.Valid {
			y[i] = opts.LineData{Value: g.Value}
		} else {
			y[i] = opts.LineData{Value: missingValue}
		}
	}
	return x, y
}

// RenderGroundProfile writes an HTML line chart of ground elevation against
// shot number.
func RenderGroundProfile(w io.Writer, est *l5ground.Estimated, title string) error {
	x, y := profileSeries(est)
	s := est.Summary()

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("footprints=%d valid=%d missing=%d", s.Footprints, s.Valid, s.Missing)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Shot", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Ground (m)", NameLocation: "middle", NameGap: 40, Min: "dataMin", Max: "dataMax"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x).AddSeries("ground", y)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render ground profile: %w", err)
	}
	return nil
}
