// Command ground detects ground elevations in a waveform container and
// writes them as an ESRI ASCII grid.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/terrain.report/internal/cliutil"
	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/geo"
	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/l5ground"
	"github.com/banshee-data/terrain.report/internal/lidar/l6raster"
	"github.com/banshee-data/terrain.report/internal/lidar/monitor"
	"github.com/banshee-data/terrain.report/internal/lidar/pipeline"
	sqlite "github.com/banshee-data/terrain.report/internal/lidar/storage/sqlite"
	"github.com/banshee-data/terrain.report/internal/monitoring"
	"github.com/banshee-data/terrain.report/internal/raster"
	"github.com/banshee-data/terrain.report/internal/security"
	"github.com/banshee-data/terrain.report/internal/version"
)

var (
	input        = flag.String("input", "", "Waveform container (.sqlite) to process")
	output       = flag.String("output", "ground.asc", "Output ESRI ASCII grid")
	res          = flag.Float64("res", 0, "Raster resolution in metres (0 = config value)")
	configFile   = flag.String("config", "", "Ground config (.json/.yaml); defaults to $TERRAIN_CONFIG or "+config.DefaultConfigPath)
	dbFile       = flag.String("db", "", "SQLite run store to record the run in; defaults to $TERRAIN_DB, empty disables")
	bbox         = flag.String("bbox", "", "Bounding box minLon,minLat,maxLon,maxLat (default: everything)")
	boundsOnly   = flag.Bool("bounds", false, "Print the footprint extent of -input and exit")
	aligned      = flag.Bool("aligned", false, "Snap the grid corner to a multiple of -res")
	preview      = flag.String("preview", "", "Optional PNG preview of the grid")
	previewWidth = flag.Int("preview-width", 800, "Preview width in pixels")
	plotDir      = flag.String("plot-dir", "", "Write waveform plots of sampled footprints to this directory")
	plotCount    = flag.Int("plot-count", 10, "Number of footprints to plot")
	report       = flag.String("report", "", "Optional HTML ground profile chart")
	workers      = flag.Int("workers", -1, "Per-footprint workers (-1 = config value, 0 = GOMAXPROCS)")
	force        = flag.Bool("force", false, "Overwrite existing outputs")
	verbose      = flag.Bool("v", false, "Log pipeline diagnostics")
	trace        = flag.Bool("trace", false, "Also log per-footprint ground estimates")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	cliutil.LoadEnv()
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("ground"))
		return
	}

	ctx, stop := cliutil.SignalContext()
	defer stop()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *boundsOnly {
		if err := printBounds(ctx, *input); err != nil {
			cliutil.Fatal(ctx, "Failed to read extent.", err)
		}
		return
	}
	switch {
	case *trace:
		pipeline.SetLogWriter(os.Stderr)
		l1records.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	case *verbose:
		pipeline.SetLogWriters(os.Stderr, os.Stderr, nil)
		l1records.SetLogWriters(os.Stderr, os.Stderr, nil)
	}

	cfg, err := cliutil.LoadConfig(cliutil.FlagOrEnv(*configFile, cliutil.EnvConfig))
	if err != nil {
		cliutil.Fatal(ctx, "Failed to load config.", err)
	}

	runCfg := pipeline.ConfigFromGround(cfg)
	if *workers >= 0 {
		runCfg.Workers = *workers
	}
	resolution := cfg.GetRasterResolutionMeters()
	if *res > 0 {
		resolution = *res
	}

	if err := checkOutputs(*output, *preview, *report, *plotDir); err != nil {
		cliutil.Fatal(ctx, "Refusing to write outputs.", err)
	}

	box, err := cliutil.ParseBBox(*bbox)
	if err != nil {
		cliutil.Fatal(ctx, "Invalid bounding box.", err)
	}

	proj, err := geo.NewReprojector(cfg.GetSourceEPSG(), cfg.GetTargetEPSG())
	if err != nil {
		cliutil.Fatal(ctx, "Unsupported projection.", err)
	}

	src, err := l1records.OpenSQLite(*input)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to open waveform container.", err)
	}
	defer src.Close()

	done := monitoring.Timed("ground detection")
	est, err := pipeline.Run(ctx, src, box, runCfg)
	done()
	if cliutil.IsNoData(err) {
		log.Printf("no data in bounding box %s", box)
		return
	}
	if err != nil {
		cliutil.Fatal(ctx, "Ground detection failed.", err)
	}

	rasterize := pipeline.RasterizeGround
	if *aligned {
		rasterize = pipeline.RasterizeGroundAligned
	}
	grid, st, err := rasterize(est, proj, resolution)
	if errors.Is(err, l6raster.ErrNoPoints) {
		log.Printf("no footprint in %s produced a ground estimate", box)
		return
	}
	if err != nil {
		cliutil.Fatal(ctx, "Rasterization failed.", err)
	}
	if err := raster.WriteASCIIFile(*output, grid, cfg.GetNoDataValue()); err != nil {
		cliutil.Fatal(ctx, "Failed to write grid.", err)
	}

	if *preview != "" {
		if err := raster.WritePreviewPNG(*preview, grid, *previewWidth); err != nil {
			cliutil.Fatal(ctx, "Failed to write preview.", err)
		}
	}
	if *plotDir != "" {
		plotter, err := monitor.NewFootprintPlotter(*plotDir)
		if err != nil {
			cliutil.Fatal(ctx, "Failed to create plot dir.", err)
		}
		if _, err := plotter.PlotSample(est, *plotCount); err != nil {
			cliutil.Fatal(ctx, "Failed to plot footprints.", err)
		}
	}
	if *report != "" {
		if err := writeReport(*report, est); err != nil {
			cliutil.Fatal(ctx, "Failed to write report.", err)
		}
	}

	runID := ""
	if path := cliutil.FlagOrEnv(*dbFile, cliutil.EnvDB); path != "" {
		runID, err = recordRun(ctx, path, box, est, runCfg)
		if err != nil {
			cliutil.Fatal(ctx, "Failed to record run.", err)
		}
	}

	s := est.Summary()
	rows := [][2]string{
		{"input", *input},
		{"footprints", fmt.Sprint(s.Footprints)},
		{"valid ground", fmt.Sprint(s.Valid)},
		{"missing", fmt.Sprint(s.Missing)},
		{"ground range (m)", fmt.Sprintf("%.2f .. %.2f", s.MinGround, s.MaxGround)},
		{"grid", fmt.Sprintf("%d x %d @ %g m (EPSG:%d)", grid.Cols, grid.Rows, resolution, proj.Target())},
		{"cells written", fmt.Sprint(st.Written)},
		{"overwrites", fmt.Sprint(st.Overwrites)},
		{"output", *output},
	}
	if runID != "" {
		rows = append(rows, [2]string{"run id", runID})
	}
	cliutil.PrintSummary("ground", rows)
}

func checkOutputs(paths ...string) error {
	dirs := cliutil.OutputDirs()
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p, dirs...); err != nil {
			return err
		}
	}
	for _, p := range []string{*output, *preview, *report} {
		if p == "" {
			continue
		}
		if err := security.CheckOverwrite(p, *force); err != nil {
			return err
		}
	}
	return nil
}

// printBounds reports the extent of a container so a -bbox can be chosen
// without reading any waveform.
func printBounds(ctx context.Context, path string) error {
	src, err := l1records.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer src.Close()

	ext, err := l1records.Extent(ctx, src)
	if err != nil {
		return err
	}
	cliutil.PrintSummary("bounds", [][2]string{
		{"input", path},
		{"min lon", fmt.Sprint(ext.MinX)},
		{"min lat", fmt.Sprint(ext.MinY)},
		{"max lon", fmt.Sprint(ext.MaxX)},
		{"max lat", fmt.Sprint(ext.MaxY)},
		{"bbox", fmt.Sprintf("%g,%g,%g,%g", ext.MinX, ext.MinY, ext.MaxX, ext.MaxY)},
	})
	return nil
}

func writeReport(path string, est *l5ground.Estimated) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return monitor.RenderGroundProfile(f, est, "Ground profile: "+filepath.Base(*input))
}

func recordRun(ctx context.Context, path string, box l1records.Bounds, est *l5ground.Estimated, cfg pipeline.Config) (string, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		return "", err
	}

	params, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	s := est.Summary()
	run := &sqlite.Run{
		SourcePath:  *input,
		CreatedAtNs: time.Now().UnixNano(),
		Bounds:      box,
		BinCount:    est.BinCount,
		Footprints:  s.Footprints,
		ValidGround: s.Valid,
		ParamsJSON:  params,
	}

	store := sqlite.NewRunStore(db)
	if err := store.RecordRun(ctx, run, est.Points()); err != nil {
		return "", err
	}
	return run.RunID, nil
}
