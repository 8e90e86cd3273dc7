// Command contour extracts contour cells from an elevation grid and writes
// them as GeoJSON and as a contour grid.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/banshee-data/terrain.report/internal/cliutil"
	"github.com/banshee-data/terrain.report/internal/config"
	"github.com/banshee-data/terrain.report/internal/raster"
	"github.com/banshee-data/terrain.report/internal/security"
	"github.com/banshee-data/terrain.report/internal/version"
)

var (
	input       = flag.String("input", "", "ESRI ASCII elevation grid")
	geojsonOut  = flag.String("geojson", "contours.geojson", "Contour features as GeoJSON")
	gridOut     = flag.String("grid", "", "Optional contour cell grid (ESRI ASCII)")
	interval    = flag.Float64("interval", 0, "Contour interval in metres (0 = config value)")
	configFile  = flag.String("config", "", "Ground config (.json/.yaml); defaults to $TERRAIN_CONFIG or "+config.DefaultConfigPath)
	force       = flag.Bool("force", false, "Overwrite existing outputs")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	cliutil.LoadEnv()
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("contour"))
		return
	}
	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := cliutil.SignalContext()
	defer stop()

	cfg, err := cliutil.LoadConfig(cliutil.FlagOrEnv(*configFile, cliutil.EnvConfig))
	if err != nil {
		cliutil.Fatal(ctx, "Failed to load config.", err)
	}
	step := cfg.GetContourIntervalMeters()
	if *interval > 0 {
		step = *interval
	}

	dirs := cliutil.OutputDirs()
	for _, p := range []string{*geojsonOut, *gridOut} {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p, dirs...); err != nil {
			cliutil.Fatal(ctx, "Refusing to write outputs.", err)
		}
		if err := security.CheckOverwrite(p, *force); err != nil {
			cliutil.Fatal(ctx, "Refusing to write outputs.", err)
		}
	}

	g, noData, err := raster.ReadASCIIFile(*input)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to read grid.", err)
	}

	feats, cells, err := raster.Contours(g, step)
	if err != nil {
		cliutil.Fatal(ctx, "Contouring failed.", err)
	}
	doc, err := raster.ContoursGeoJSON(feats)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to encode contours.", err)
	}
	if err := os.WriteFile(*geojsonOut, doc, 0644); err != nil {
		cliutil.Fatal(ctx, "Failed to write GeoJSON.", err)
	}
	if *gridOut != "" {
		if err := raster.WriteASCIIFile(*gridOut, cells, noData); err != nil {
			cliutil.Fatal(ctx, "Failed to write contour grid.", err)
		}
	}

	levels := map[float64]bool{}
	for _, f := range feats {
		levels[f.Elevation] = true
	}
	cliutil.PrintSummary("contour", [][2]string{
		{"interval (m)", fmt.Sprint(step)},
		{"levels", fmt.Sprint(len(levels))},
		{"features", fmt.Sprint(len(feats))},
		{"contour cells", fmt.Sprint(cells.ValidCount())},
		{"geojson", *geojsonOut},
	})
}
