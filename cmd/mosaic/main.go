// Command mosaic runs ground detection over every waveform container in a
// directory, merges the per-file grids and fills small gaps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/banshee-data/terrain.report/internal/cliutil"
	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/geo"
	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/l6raster"
	"github.com/banshee-data/terrain.report/internal/lidar/pipeline"
	"github.com/banshee-data/terrain.report/internal/monitoring"
	"github.com/banshee-data/terrain.report/internal/raster"
	"github.com/banshee-data/terrain.report/internal/security"
	"github.com/banshee-data/terrain.report/internal/version"
)

var (
	inputDir    = flag.String("input-dir", "", "Directory of waveform containers")
	pattern     = flag.String("pattern", "*.sqlite", "Glob for containers inside -input-dir")
	output      = flag.String("output", "mosaic.asc", "Merged, gap-filled ESRI ASCII grid")
	tilesDir    = flag.String("tiles-dir", "", "Also write each per-file grid here")
	res         = flag.Float64("res", 0, "Raster resolution in metres (0 = config value)")
	fillWindow  = flag.Int("fill", -1, "Gap fill radius in cells (-1 = config value, 0 disables)")
	configFile  = flag.String("config", "", "Ground config (.json/.yaml); defaults to $TERRAIN_CONFIG or "+config.DefaultConfigPath)
	bbox        = flag.String("bbox", "", "Bounding box minLon,minLat,maxLon,maxLat (default: everything)")
	preview     = flag.String("preview", "", "Optional PNG preview of the mosaic")
	workers     = flag.Int("workers", -1, "Per-footprint workers (-1 = config value, 0 = GOMAXPROCS)")
	force       = flag.Bool("force", false, "Overwrite existing outputs")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	cliutil.LoadEnv()
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("mosaic"))
		return
	}
	if *inputDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := cliutil.SignalContext()
	defer stop()

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
	radius := cfg.GetGapFillWindow()
	if *fillWindow >= 0 {
		radius = *fillWindow
	}

	dirs := cliutil.OutputDirs()
	for _, p := range []string{*output, *preview, *tilesDir} {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p, dirs...); err != nil {
			cliutil.Fatal(ctx, "Refusing to write outputs.", err)
		}
	}
	if err := security.CheckOverwrite(*output, *force); err != nil {
		cliutil.Fatal(ctx, "Refusing to write outputs.", err)
	}
	if *tilesDir != "" {
		if err := os.MkdirAll(*tilesDir, 0755); err != nil {
			cliutil.Fatal(ctx, "Failed to create tiles dir.", err)
		}
	}

	box, err := cliutil.ParseBBox(*bbox)
	if err != nil {
		cliutil.Fatal(ctx, "Invalid bounding box.", err)
	}
	proj, err := geo.NewReprojector(cfg.GetSourceEPSG(), cfg.GetTargetEPSG())
	if err != nil {
		cliutil.Fatal(ctx, "Unsupported projection.", err)
	}

	files, err := filepath.Glob(filepath.Join(*inputDir, *pattern))
	if err != nil {
		cliutil.Fatal(ctx, "Bad -pattern.", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Printf("no files matching %s in %s", *pattern, *inputDir)
		return
	}

	var grids []*raster.Grid
	for _, path := range files {
		g, err := gridFor(ctx, path, box, runCfg, proj, resolution)
		if cliutil.IsNoData(err) {
			log.Printf("%s: no data in bounding box, skipped", filepath.Base(path))
			continue
		}
		if errors.Is(err, l6raster.ErrNoPoints) {
			log.Printf("%s: no footprint produced a ground estimate, skipped", filepath.Base(path))
			continue
		}
		if err != nil {
			cliutil.Fatal(ctx, "Ground detection failed for "+path+".", err)
		}
		if *tilesDir != "" {
			tile := security.DerivedPath(*tilesDir, path, "_ground.asc")
			if err := raster.WriteASCIIFile(tile, g, cfg.GetNoDataValue()); err != nil {
				cliutil.Fatal(ctx, "Failed to write tile.", err)
			}
		}
		grids = append(grids, g)
	}
	if len(grids) == 0 {
		log.Printf("no data in bounding box %s in any of %d files", box, len(files))
		return
	}

	merged, err := raster.Merge(grids...)
	if err != nil {
		cliutil.Fatal(ctx, "Merge failed.", err)
	}
	filled := raster.FillGaps(merged, radius)

	if err := raster.WriteASCIIFile(*output, filled, cfg.GetNoDataValue()); err != nil {
		cliutil.Fatal(ctx, "Failed to write mosaic.", err)
	}
	if *preview != "" {
		if err := raster.WritePreviewPNG(*preview, filled, 800); err != nil {
			cliutil.Fatal(ctx, "Failed to write preview.", err)
		}
	}

	cliutil.PrintSummary("mosaic", [][2]string{
		{"files", fmt.Sprint(len(files))},
		{"grids merged", fmt.Sprint(len(grids))},
		{"grid", fmt.Sprintf("%d x %d @ %g m (EPSG:%d)", filled.Cols, filled.Rows, resolution, proj.Target())},
		{"valid cells", fmt.Sprint(merged.ValidCount())},
		{"after gap fill", fmt.Sprint(filled.ValidCount())},
		{"output", *output},
	})
}

func gridFor(ctx context.Context, path string, box l1records.Bounds, cfg pipeline.Config, proj pipeline.Projector, res float64) (*raster.Grid, error) {
	defer monitoring.Timed(filepath.Base(path))()

	src, err := l1records.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	est, err := pipeline.Run(ctx, src, box, cfg)
	if err != nil {
		return nil, err
	}
	g, _, err := pipeline.RasterizeGroundAligned(est, proj, res)
	return g, err
}
