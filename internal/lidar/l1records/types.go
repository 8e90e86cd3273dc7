package l1records

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoData is returned by Load when no footprint midpoint falls inside
	// the bounding box. It is an expected outcome; callers branch on it with
	// errors.Is before touching any derived field.
	ErrNoData = errors.New("no footprints in bounding box")

	// ErrMalformedSource marks a source whose arrays are missing or disagree
	// in shape. It is always wrapped with the offending detail.
	ErrMalformedSource = errors.New("malformed waveform source")
)

// Bounds is a geographic selection box. Min edges are inclusive and max
// edges are exclusive on both axes.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Everywhere returns a box that selects every finite coordinate.
func Everywhere() Bounds {
	return Bounds{
		MinX: math.Inf(-1),
		MinY: math.Inf(-1),
		MaxX: math.Inf(1),
		MaxY: math.Inf(1),
	}
}

// Contains reports whether (lon, lat) satisfies MinX <= lon < MaxX and
// MinY <= lat < MaxY.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinX && lon < b.MaxX && lat >= b.MinY && lat < b.MaxY
}

// Validate rejects boxes with NaN edges or inverted axes.
func (b Bounds) Validate() error {
	if math.IsNaN(b.MinX) || math.IsNaN(b.MinY) || math.IsNaN(b.MaxX) || math.IsNaN(b.MaxY) {
		return fmt.Errorf("bounds contain NaN: %+v", b)
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return fmt.Errorf("bounds inverted: %+v", b)
	}
	return nil
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g,%g)x[%g,%g)", b.MinX, b.MaxX, b.MinY, b.MaxY)
}

// Coords holds the top-of-waveform (LON0/LAT0) and bottom-of-waveform
// (LON<B-1>/LAT<B-1>) coordinates of every footprint in a source.
type Coords struct {
	Lon0 []float64
	Lat0 []float64
	LonN []float64
	LatN []float64
}

// Len returns the footprint count, or -1 when the four arrays disagree.
func (c *Coords) Len() int {
	n := len(c.Lon0)
	if len(c.Lat0) != n || len(c.LonN) != n || len(c.LatN) != n {
		return -1
	}
	return n
}

// Midpoints returns the per-footprint midpoint of the top and bottom coordinates.
func (c *Coords) Midpoints() (lon, lat []float64) {
	n := len(c.Lon0)
	lon = make([]float64, n)
	lat = make([]float64, n)
	for i := 0; i < n; i++ {
		lon[i] = (c.Lon0[i] + c.LonN[i]) / 2.0
		lat[i] = (c.Lat0[i] + c.LatN[i]) / 2.0
	}
	return lon, lat
}

// Rows holds the per-footprint payload for a selected index list, in the
// order the indices were requested.
type Rows struct {
	FlightID   []int64
	ShotNumber []int64
	Waveform   [][]float64
	Top        []float64
	Bottom     []float64
}

func (r *Rows) check(want, bins int) error {
	if len(r.FlightID) != want || len(r.ShotNumber) != want || len(r.Waveform) != want ||
		len(r.Top) != want || len(r.Bottom) != want {
		return fmt.Errorf("%w: row arrays do not match %d selected footprints", ErrMalformedSource, want)
	}
	for i, w := range r.Waveform {
		if len(w) != bins {
			return fmt.Errorf("%w: waveform %d has %d bins, want %d", ErrMalformedSource, i, len(w), bins)
		}
	}
	return nil
}

// Records is a complete in-memory copy of a waveform source. It backs
// MemorySource and is the input to WriteSQLite.
type Records struct {
	Coords
	Rows
	BinCount int
}

// Validate checks that every array has one entry per footprint and every
// waveform has BinCount bins.
func (r *Records) Validate() error {
	if r.BinCount <= 0 {
		return fmt.Errorf("%w: bin count %d", ErrMalformedSource, r.BinCount)
	}
	n := r.Coords.Len()
	if n < 0 {
		return fmt.Errorf("%w: coordinate arrays differ in length", ErrMalformedSource)
	}
	return r.Rows.check(n, r.BinCount)
}

// FootprintSet is the Loaded stage: N selected footprints sharing BinCount
// bins. Its fields are never modified after Load returns; later stages embed
// a pointer to it and add derived arrays alongside.
type FootprintSet struct {
	Lon        []float64
	Lat        []float64
	FlightID   []int64
	ShotNumber []int64
	Waveform   [][]float64
	Top        []float64
	Bottom     []float64

	// SourceIndex maps each footprint back to its row in the source.
	SourceIndex []int
	BinCount    int
}

// Len returns the number of footprints in the set.
func (s *FootprintSet) Len() int {
	return len(s.Lon)
}
