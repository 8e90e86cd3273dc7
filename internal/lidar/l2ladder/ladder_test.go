package l2ladder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
)

func TestDecodeLadder_UnitStep(t *testing.T) {
	t.Parallel()

	ladder, err := DecodeLadder(100, 0, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ladder), 99)
	require.LessOrEqual(t, len(ladder), 100)

	assert.Equal(t, 100.0, ladder[0])
	for i := 1; i < len(ladder); i++ {
		assert.InDelta(t, 1.0, ladder[i-1]-ladder[i], 1e-9, "step at %d", i)
		assert.InDelta(t, 100.0-float64(i), ladder[i], 1e-9)
	}
}

func TestDecodeLadder_NonIncreasing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		top, bottom float64
		bins        int
	}{
		{1234.567, 1100.1, 528},
		{35.2, 35.1, 3},
		{0.3, 0, 3},
		{-10, -40.25, 7},
	}
	for _, c := range cases {
		ladder, err := DecodeLadder(c.top, c.bottom, c.bins)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(ladder), c.bins-1)
		for i := 1; i < len(ladder); i++ {
			assert.LessOrEqual(t, ladder[i], ladder[i-1])
		}
		assert.Greater(t, ladder[len(ladder)-1], c.bottom)
	}
}

func TestDecodeLadder_Degenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		top, bottom float64
		bins        int
	}{
		{"equal", 10, 10, 5},
		{"inverted", 0, 10, 5},
		{"zero bins", 10, 0, 0},
		{"negative bins", 10, 0, -1},
		{"nan top", math.NaN(), 0, 5},
		{"inf bottom", 10, math.Inf(-1), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLadder(tt.top, tt.bottom, tt.bins)
			assert.ErrorIs(t, err, ErrDegenerateLadder)
		})
	}
}

func testSet(tops, bottoms []float64, bins int) *l1records.FootprintSet {
	n := len(tops)
	set := &l1records.FootprintSet{
		Lon:        make([]float64, n),
		Lat:        make([]float64, n),
		FlightID:   make([]int64, n),
		ShotNumber: make([]int64, n),
		Waveform:   make([][]float64, n),
		Top:        tops,
		Bottom:     bottoms,
		BinCount:   bins,
	}
	for i := range set.Waveform {
		set.Waveform[i] = make([]float64, bins)
		set.ShotNumber[i] = int64(i)
	}
	return set
}

func TestDecode_FullLengthLadders(t *testing.T) {
	t.Parallel()

	set := testSet([]float64{100, 0.3, 50}, []float64{0, 0, 10}, 3)
	dec, err := Decode(context.Background(), set, 2)
	require.NoError(t, err)

	require.Len(t, dec.Ladder, 3)
	for i, l := range dec.Ladder {
		assert.Len(t, l, 3, "ladder %d", i)
	}
	assert.InDelta(t, 100.0, dec.Ladder[0][0], 1e-12)
	assert.InDelta(t, 100.0/3, dec.Ladder[0][2], 1e-9)
	assert.Same(t, set, dec.FootprintSet)

	// (ladder0[0]-ladder0[B-1])/B for top=100, bottom=0, B=3.
	assert.InDelta(t, (100.0-100.0/3)/3, dec.Resolution(), 1e-9)
}

func TestDecode_DegenerateFootprintFailsSet(t *testing.T) {
	t.Parallel()

	set := testSet([]float64{100, 5}, []float64{0, 5}, 4)
	_, err := Decode(context.Background(), set, 0)
	assert.ErrorIs(t, err, ErrDegenerateLadder)
}

func TestDecode_EmptySet(t *testing.T) {
	t.Parallel()

	_, err := Decode(context.Background(), &l1records.FootprintSet{}, 1)
	assert.Error(t, err)
}
