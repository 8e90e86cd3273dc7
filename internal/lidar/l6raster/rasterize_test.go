package l6raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginForPoints(t *testing.T) {
	t.Parallel()

	pts := []Point{
		{X: 100, Y: 500, Z: 1, Valid: true},
		{X: 130, Y: 470, Z: 2, Valid: true},
		{X: -1e6, Y: 1e6, Valid: false},
	}
	o, err := OriginForPoints(pts, 10)
	require.NoError(t, err)
	assert.Equal(t, Origin{MinX: 100, MaxY: 500, Cols: 4, Rows: 4}, o)

	_, err = OriginForPoints([]Point{{Valid: false}}, 10)
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = OriginForPoints(pts, 0)
	assert.Error(t, err)
}

func TestAlignedOrigin(t *testing.T) {
	t.Parallel()

	pts := []Point{
		{X: 103, Y: 497, Z: 1, Valid: true},
		{X: 131, Y: 466, Z: 2, Valid: true},
	}
	o, err := AlignedOrigin(pts, 10)
	require.NoError(t, err)
	assert.Equal(t, Origin{MinX: 100, MaxY: 500, Cols: 4, Rows: 4}, o)

	g, st, err := Rasterize(pts, 10, o)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Written)
	assert.Equal(t, 0, st.OutOfGrid)
	v, ok := g.At(3, 3)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, err = AlignedOrigin(nil, 10)
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestRasterize_CellMapping(t *testing.T) {
	t.Parallel()

	origin := Origin{MinX: 0, MaxY: 100, Cols: 3, Rows: 2}
	pts := []Point{
		{X: 0, Y: 100, Z: 1, Valid: true},    // row 0 col 0
		{X: 29.9, Y: 80.1, Z: 2, Valid: true}, // row 1 col 2
		{X: 15, Y: 90, Z: 3, Valid: true},    // row 1 col 1
	}
	g, st, err := Rasterize(pts, 10, origin)
	require.NoError(t, err)
	assert.Equal(t, Stats{Written: 3}, st)

	v, ok := g.At(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	v, ok = g.At(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	v, ok = g.At(1, 1)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = g.At(0, 2)
	assert.False(t, ok)
	assert.Equal(t, 3, g.ValidCount())
}

func TestRasterize_LastWriteWins(t *testing.T) {
	t.Parallel()

	origin := Origin{MinX: 0, MaxY: 10, Cols: 1, Rows: 1}
	pts := []Point{
		{X: 1, Y: 9, Z: 5, Valid: true},
		{X: 2, Y: 8, Z: 7, Valid: true},
	}
	g, st, err := Rasterize(pts, 10, origin)
	require.NoError(t, err)
	v, ok := g.At(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 7.0, v, "no averaging")
	assert.Equal(t, 1, st.Overwrites)
}

func TestRasterize_MissingNeverWrites(t *testing.T) {
	t.Parallel()

	origin := Origin{MinX: 0, MaxY: 10, Cols: 1, Rows: 1}
	pts := []Point{
		{X: 1, Y: 9, Z: 5, Valid: true},
		{X: 2, Y: 8, Z: 0, Valid: false},
	}
	g, st, err := Rasterize(pts, 10, origin)
	require.NoError(t, err)
	v, ok := g.At(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 1, st.Missing)

	g, _, err = Rasterize([]Point{{X: 1, Y: 9, Valid: false}}, 10, origin)
	require.NoError(t, err)
	assert.Equal(t, 0, g.ValidCount())
}

func TestRasterize_OutOfGrid(t *testing.T) {
	t.Parallel()

	origin := Origin{MinX: 0, MaxY: 10, Cols: 1, Rows: 1}
	pts := []Point{
		{X: 10, Y: 5, Z: 1, Valid: true},
		{X: 5, Y: 10.5, Z: 1, Valid: true},
		{X: -0.1, Y: 5, Z: 1, Valid: true},
	}
	_, st, err := Rasterize(pts, 10, origin)
	require.NoError(t, err)
	assert.Equal(t, 3, st.OutOfGrid)
	assert.Equal(t, 0, st.Written)
}

func TestRasterize_OriginCoversAllPoints(t *testing.T) {
	t.Parallel()

	var pts []Point
	for i := 0; i < 50; i++ {
		pts = append(pts, Point{X: float64(i) * 7.3, Y: -float64(i) * 3.1, Z: float64(i), Valid: true})
	}
	o, err := OriginForPoints(pts, 10)
	require.NoError(t, err)
	_, st, err := Rasterize(pts, 10, o)
	require.NoError(t, err)
	assert.Equal(t, 0, st.OutOfGrid)
}

func TestGridGeometry(t *testing.T) {
	t.Parallel()

	g, err := NewGrid(4, 3, 1000, 2000, 5)
	require.NoError(t, err)

	assert.Equal(t, [6]float64{1000, 5, 0, 2000, 0, -5}, g.GeoTransform())
	assert.Equal(t, 1020.0, g.MaxX())
	assert.Equal(t, 1985.0, g.MinY())

	x, y := g.CellCenter(0, 0)
	assert.Equal(t, 1002.5, x)
	assert.Equal(t, 1997.5, y)

	row, col := g.CellOf(x, y)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	g.Set(2, 3, 9)
	c := g.Clone()
	g.Clear(2, 3)
	_, ok := g.At(2, 3)
	assert.False(t, ok)
	v, ok := c.At(2, 3)
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)
	assert.True(t, g.SameShape(c))

	_, ok = g.At(-1, 0)
	assert.False(t, ok)

	_, err = NewGrid(0, 1, 0, 0, 1)
	assert.Error(t, err)
	_, err = NewGrid(1, 1, 0, 0, 0)
	assert.Error(t, err)
}

func TestOriginForPoints_RejectsOversizedGrid(t *testing.T) {
	t.Parallel()

	pts := []Point{
		{X: 0, Y: 0, Z: 1, Valid: true},
		{X: 200000, Y: 200000, Z: 2, Valid: true},
	}
	_, err := OriginForPoints(pts, 0.001)
	assert.ErrorIs(t, err, ErrGridTooLarge)

	_, err = AlignedOrigin(pts, 0.001)
	assert.ErrorIs(t, err, ErrGridTooLarge)

	// Each axis fits on its own but the product does not.
	pts[1] = Point{X: 100000, Y: 100000, Z: 2, Valid: true}
	_, err = OriginForPoints(pts, 10)
	require.NoError(t, err)
	_, err = OriginForPoints(pts, 1)
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func TestNewGrid_Limits(t *testing.T) {
	t.Parallel()

	_, err := NewGrid(MaxCells, 2, 0, 0, 1)
	assert.ErrorIs(t, err, ErrGridTooLarge)

	_, err = NewGrid(math.MaxInt32, math.MaxInt32, 0, 0, 1)
	assert.ErrorIs(t, err, ErrGridTooLarge)

	_, err = CellsFor(math.Inf(1), 1)
	assert.ErrorIs(t, err, ErrGridTooLarge)
	_, err = CellsFor(math.NaN(), 1)
	assert.ErrorIs(t, err, ErrGridTooLarge)
	n, err := CellsFor(30, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
