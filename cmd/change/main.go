// Command change differences two elevation grids over their common extent
// and reports the volume gained and lost.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/banshee-data/terrain.report/internal/cliutil"
	"github.com/banshee-data/terrain.report/internal/raster"
	"github.com/banshee-data/terrain.report/internal/security"
	"github.com/banshee-data/terrain.report/internal/version"
)

var (
	before      = flag.String("before", "", "Earlier ESRI ASCII grid")
	after       = flag.String("after", "", "Later ESRI ASCII grid")
	output      = flag.String("output", "change.asc", "Difference grid (after - before)")
	clip        = flag.String("clip", "", "Optional map-coordinate box minX,minY,maxX,maxY to restrict the comparison")
	preview     = flag.String("preview", "", "Optional PNG preview of the difference")
	force       = flag.Bool("force", false, "Overwrite existing outputs")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

var errNoOverlap = errors.New("grids do not overlap")

func main() {
	cliutil.LoadEnv()
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("change"))
		return
	}
	if *before == "" || *after == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := cliutil.SignalContext()
	defer stop()

	dirs := cliutil.OutputDirs()
	for _, p := range []string{*output, *preview} {
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

	earlier, noData, err := raster.ReadASCIIFile(*before)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to read -before grid.", err)
	}
	later, _, err := raster.ReadASCIIFile(*after)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to read -after grid.", err)
	}

	box, ok := raster.Intersection(raster.BoundsOf(earlier), raster.BoundsOf(later))
	if !ok {
		cliutil.Fatal(ctx, "Nothing to compare.", errNoOverlap)
	}
	if *clip != "" {
		b, err := cliutil.ParseBBox(*clip)
		if err != nil {
			cliutil.Fatal(ctx, "Invalid -clip box.", err)
		}
		box, ok = raster.Intersection(box, raster.Bounds{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY})
		if !ok {
			cliutil.Fatal(ctx, "Nothing to compare.", errNoOverlap)
		}
	}

	e, err := raster.Clip(earlier, box)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to clip -before grid.", err)
	}
	l, err := raster.Clip(later, box)
	if err != nil {
		cliutil.Fatal(ctx, "Failed to clip -after grid.", err)
	}
	diff, err := raster.Difference(l, e)
	if err != nil {
		cliutil.Fatal(ctx, "Grids are not on the same lattice.", err)
	}

	if err := raster.WriteASCIIFile(*output, diff, noData); err != nil {
		cliutil.Fatal(ctx, "Failed to write difference grid.", err)
	}
	if *preview != "" {
		if err := raster.WritePreviewPNG(*preview, diff, 800); err != nil {
			cliutil.Fatal(ctx, "Failed to write preview.", err)
		}
	}

	v := raster.VolumeChange(diff)
	cliutil.PrintSummary("change", [][2]string{
		{"compared cells", fmt.Sprint(v.Cells)},
		{"grid", fmt.Sprintf("%d x %d @ %g", diff.Cols, diff.Rows, diff.Resolution)},
		{"net volume", fmt.Sprintf("%.1f", v.Net)},
		{"gain", fmt.Sprintf("%.1f", v.Gain)},
		{"loss", fmt.Sprintf("%.1f", v.Loss)},
		{"output", *output},
	})
}
