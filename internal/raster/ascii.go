package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/terrain.report/internal/lidar/l6raster"
)

// ErrNoDataCollision is returned by WriteASCII when a valid cell could not
// be told apart from nodata once written.
var ErrNoDataCollision = errors.New("valid cell collides with nodata value")

// WriteASCII encodes g as an ESRI ASCII grid. Cells without data are
// written as noData. A valid cell equal to noData, or not finite, is an
// ErrNoDataCollision and nothing is written.
func WriteASCII(w io.Writer, g *Grid, noData float64) error {
	for i, ok := range g.Valid {
		v := g.Data[i]
		if ok && (v == noData || math.IsNaN(v) || math.IsInf(v, 0)) {
			return fmt.Errorf("%w: cell (%d,%d) = %g", ErrNoDataCollision, i/g.Cols, i%g.Cols, v)
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\n", g.Cols)
	fmt.Fprintf(bw, "nrows %d\n", g.Rows)
	fmt.Fprintf(bw, "xllcorner %s\n", formatFloat(g.MinX))
	fmt.Fprintf(bw, "yllcorner %s\n", formatFloat(g.MinY()))
	fmt.Fprintf(bw, "cellsize %s\n", formatFloat(g.Resolution))
	fmt.Fprintf(bw, "NODATA_value %s\n", formatFloat(noData))

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			v, ok := g.At(r, c)
			if !ok {
				v = noData
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteASCIIFile writes g to path, replacing any existing file.
func WriteASCIIFile(path string, g *Grid, noData float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := WriteASCII(f, g, noData); err != nil {
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadASCII decodes an ESRI ASCII grid. Both corner and centre
// registration headers are accepted. It returns the grid and the file's
// nodata value.
func ReadASCII(r io.Reader) (*Grid, float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			first = tok
			break
		}
		if !sc.Scan() {
			return nil, 0, fmt.Errorf("ascii grid: header %q has no value", tok)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, 0, fmt.Errorf("ascii grid: header %q: %w", tok, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("ascii grid: %w", err)
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, 0, fmt.Errorf("ascii grid: missing %s", k)
		}
	}
	fc, fr, res := header["ncols"], header["nrows"], header["cellsize"]
	if !(fc >= 1 && fc <= l6raster.MaxCells && fr >= 1 && fr <= l6raster.MaxCells) {
		return nil, 0, fmt.Errorf("ascii grid: bad size %gx%g", fc, fr)
	}
	cols, rows := int(fc), int(fr)

	var minX, minY float64
	switch {
	case hasKey(header, "xllcorner") && hasKey(header, "yllcorner"):
		minX, minY = header["xllcorner"], header["yllcorner"]
	case hasKey(header, "xllcenter") && hasKey(header, "yllcenter"):
		minX, minY = header["xllcenter"]-res/2, header["yllcenter"]-res/2
	default:
		return nil, 0, fmt.Errorf("ascii grid: missing lower-left origin")
	}
	noData, hasNoData := header["nodata_value"]
	if !hasNoData {
		noData = math.NaN()
	}

	g, err := l6raster.NewGrid(cols, rows, minX, minY+float64(rows)*res, res)
	if err != nil {
		return nil, 0, fmt.Errorf("ascii grid: %w", err)
	}

	n := 0
	tok := first
	for {
		if tok == "" {
			if !sc.Scan() {
				break
			}
			tok = sc.Text()
		}
		if n >= cols*rows {
			return nil, 0, fmt.Errorf("ascii grid: more than %d values", cols*rows)
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("ascii grid: value %d: %w", n, err)
		}
		if !(hasNoData && v == noData) && !math.IsNaN(v) {
			g.Data[n] = v
			g.Valid[n] = true
		}
		n++
		tok = ""
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("ascii grid: %w", err)
	}
	if n != cols*rows {
		return nil, 0, fmt.Errorf("ascii grid: got %d values, want %d", n, cols*rows)
	}
	return g, noData, nil
}

// ReadASCIIFile reads an ESRI ASCII grid from path.
func ReadASCIIFile(path string) (*Grid, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	g, nd, err := ReadASCII(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return g, nd, nil
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
