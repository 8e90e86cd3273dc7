package l2ladder

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/terrain.report/internal/lidar/l1records"
	"github.com/banshee-data/terrain.report/internal/lidar/workers"
)

// ErrDegenerateLadder is returned when top and bottom elevations cannot form
// a descending ladder: top <= bottom, a non-finite input, or no bins.
var ErrDegenerateLadder = errors.New("degenerate elevation ladder")

// DecodeLadder returns the descending progression top, top-res, ... with
// res = (top-bottom)/binCount, stopping before any value <= bottom.
//
// Step accumulation can reach bottom one rung early, so the result holds
// binCount or binCount-1 values.
func DecodeLadder(top, bottom float64, binCount int) ([]float64, error) {
	if binCount <= 0 {
		return nil, fmt.Errorf("%w: bin count %d", ErrDegenerateLadder, binCount)
	}
	if math.IsNaN(top) || math.IsInf(top, 0) || math.IsNaN(bottom) || math.IsInf(bottom, 0) {
		return nil, fmt.Errorf("%w: non-finite top %g or bottom %g", ErrDegenerateLadder, top, bottom)
	}
	if top <= bottom {
		return nil, fmt.Errorf("%w: top %g not above bottom %g", ErrDegenerateLadder, top, bottom)
	}

	res := (top - bottom) / float64(binCount)
	ladder := make([]float64, 0, binCount)
	for i := 0; i < binCount; i++ {
		z := top - float64(i)*res
		if z <= bottom {
			break
		}
		ladder = append(ladder, z)
	}
	return ladder, nil
}

// Decoded is the Decoded stage: the loaded set plus one ladder per footprint.
type Decoded struct {
	*l1records.FootprintSet

	// Ladder[i][b] is the elevation of bin b of footprint i.
	Ladder [][]float64

	resolution float64
}

// Resolution is the set-wide bin height, (ladder[0]-ladder[B-1])/B taken
// from the first footprint and shared read-only by later stages.
func (d *Decoded) Resolution() float64 {
	return d.resolution
}

// Decode builds a ladder for every footprint of set using up to limit
// goroutines. A ladder that stops one rung short is completed by one more
// step of the same progression, so every ladder has BinCount entries. Any
// degenerate footprint fails the whole set.
func Decode(ctx context.Context, set *l1records.FootprintSet, limit int) (*Decoded, error) {
	if set == nil || set.Len() == 0 {
		return nil, errors.New("decode: empty footprint set")
	}
	bins := set.BinCount
	ladders := make([][]float64, set.Len())

	err := workers.ForEach(ctx, set.Len(), limit, func(i int) error {
		ladder, err := DecodeLadder(set.Top[i], set.Bottom[i], bins)
		if err != nil {
			return fmt.Errorf("footprint %d (shot %d): %w", i, set.ShotNumber[i], err)
		}
		switch {
		case len(ladder) == bins:
		case len(ladder) == bins-1 && bins > 1:
			res := (set.Top[i] - set.Bottom[i]) / float64(bins)
			ladder = append(ladder, ladder[len(ladder)-1]-res)
		default:
			return fmt.Errorf("footprint %d (shot %d): %w: %d rungs for %d bins",
				i, set.ShotNumber[i], ErrDegenerateLadder, len(ladder), bins)
		}
		ladders[i] = ladder
		return nil
	})
	if err != nil {
		return nil, err
	}

	first := ladders[0]
	return &Decoded{
		FootprintSet: set,
		Ladder:       ladders,
		resolution:   (first[0] - first[bins-1]) / float64(bins),
	}, nil
}
