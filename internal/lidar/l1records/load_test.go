package l1records

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridRecords lays footprints on a 1-degree lattice with zero tilt between
// the top and bottom coordinate, so midpoints equal the lattice points.
func gridRecords(nx, ny, bins int) *Records {
	rec := &Records{BinCount: bins}
	k := 0
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			lon, lat := float64(x), float64(y)
			rec.Lon0 = append(rec.Lon0, lon-0.25)
			rec.LonN = append(rec.LonN, lon+0.25)
			rec.Lat0 = append(rec.Lat0, lat+0.25)
			rec.LatN = append(rec.LatN, lat-0.25)
			rec.FlightID = append(rec.FlightID, 7)
			rec.ShotNumber = append(rec.ShotNumber, int64(1000+k))
			wave := make([]float64, bins)
			for b := range wave {
				wave[b] = float64(k*bins + b)
			}
			rec.Waveform = append(rec.Waveform, wave)
			rec.Top = append(rec.Top, 100)
			rec.Bottom = append(rec.Bottom, 0)
			k++
		}
	}
	return rec
}

func TestBoundsContains(t *testing.T) {
	t.Parallel()

	b := Bounds{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2}
	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{"min corner inclusive", 0, 0, true},
		{"interior", 1, 1.5, true},
		{"max lon exclusive", 2, 1, false},
		{"max lat exclusive", 1, 2, false},
		{"below min lon", -0.001, 1, false},
		{"below min lat", 1, -0.001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Contains(tt.lon, tt.lat))
		})
	}
}

func TestLoad_BoundsFilter(t *testing.T) {
	t.Parallel()

	rec := gridRecords(5, 4, 8)
	src, err := NewMemorySource(rec)
	require.NoError(t, err)

	bbox := Bounds{MinX: 1, MinY: 1, MaxX: 3, MaxY: 3}
	set, err := Load(context.Background(), src, bbox)
	require.NoError(t, err)

	lon, lat := rec.Coords.Midpoints()
	var want []int
	for i := range lon {
		if lon[i] >= bbox.MinX && lon[i] < bbox.MaxX && lat[i] >= bbox.MinY && lat[i] < bbox.MaxY {
			want = append(want, i)
		}
	}
	// (1,1) (2,1) (1,2) (2,2) on the 5-wide lattice.
	assert.Equal(t, []int{6, 7, 11, 12}, want)
	if diff := cmp.Diff(want, set.SourceIndex); diff != "" {
		t.Errorf("selected indices mismatch (-want +got):\n%s", diff)
	}

	for k, i := range set.SourceIndex {
		assert.Equal(t, lon[i], set.Lon[k])
		assert.Equal(t, lat[i], set.Lat[k])
		assert.Less(t, set.Lon[k], bbox.MaxX)
		assert.Less(t, set.Lat[k], bbox.MaxY)
		assert.Equal(t, rec.ShotNumber[i], set.ShotNumber[k])
		assert.Equal(t, rec.Waveform[i], set.Waveform[k])
	}
	assert.Equal(t, 8, set.BinCount)
	assert.Equal(t, 4, set.Len())
	assert.Equal(t, 4, src.RowReads, "only selected rows should be read")
}

func TestLoad_NoDataSkipsWaveformRead(t *testing.T) {
	t.Parallel()

	src, err := NewMemorySource(gridRecords(3, 3, 4))
	require.NoError(t, err)

	set, err := Load(context.Background(), src, Bounds{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20})
	assert.Nil(t, set)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Equal(t, 0, src.RowReads)
}

func TestLoad_Everywhere(t *testing.T) {
	t.Parallel()

	src, err := NewMemorySource(gridRecords(3, 2, 4))
	require.NoError(t, err)

	set, err := Load(context.Background(), src, Everywhere())
	require.NoError(t, err)
	assert.Equal(t, 6, set.Len())
}

func TestLoad_RejectsInvertedBounds(t *testing.T) {
	t.Parallel()

	src, err := NewMemorySource(gridRecords(2, 2, 4))
	require.NoError(t, err)

	_, err = Load(context.Background(), src, Bounds{MinX: 5, MaxX: 1, MinY: 0, MaxY: 1})
	assert.Error(t, err)
}

type shortRowsSource struct {
	*MemorySource
}

func (s shortRowsSource) Rows(ctx context.Context, idx []int) (*Rows, error) {
	r, err := s.MemorySource.Rows(ctx, idx)
	if err != nil {
		return nil, err
	}
	r.Waveform[0] = r.Waveform[0][:1]
	return r, nil
}

func TestLoad_MalformedWaveformShape(t *testing.T) {
	t.Parallel()

	mem, err := NewMemorySource(gridRecords(2, 2, 4))
	require.NoError(t, err)

	_, err = Load(context.Background(), shortRowsSource{mem}, Everywhere())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSource)
}

func TestRecordsValidate(t *testing.T) {
	t.Parallel()

	rec := gridRecords(2, 1, 4)
	require.NoError(t, rec.Validate())

	rec.LatN = rec.LatN[:1]
	assert.ErrorIs(t, rec.Validate(), ErrMalformedSource)

	rec = gridRecords(2, 1, 4)
	rec.BinCount = 0
	assert.ErrorIs(t, rec.Validate(), ErrMalformedSource)

	rec = gridRecords(2, 1, 4)
	rec.Waveform[1] = append(rec.Waveform[1], 1)
	assert.ErrorIs(t, rec.Validate(), ErrMalformedSource)
}

func TestExtent(t *testing.T) {
	t.Parallel()

	src, err := NewMemorySource(gridRecords(4, 3, 2))
	require.NoError(t, err)

	b, err := Extent(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, Bounds{MinX: 0, MinY: 0, MaxX: 3, MaxY: 2}, b)
	assert.Equal(t, 0, src.RowReads)
}
