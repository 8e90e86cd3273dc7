package l1records

import (
	"math"
	"math/rand"
)

// SyntheticSurvey generates waveform records over a rolling surface for
// tests and demos. Footprints are laid out along parallel flight lines;
// each waveform is Gaussian noise with one Gaussian ground return.
type SyntheticSurvey struct {
	FlightID int64

	// Layout
	Lines        int     // flight lines
	ShotsPerLine int     // footprints per line
	OriginLon    float64 // degrees
	OriginLat    float64 // degrees
	ShotSpacing  float64 // degrees between shots along a line
	LineSpacing  float64 // degrees between lines

	// Waveform
	BinCount     int
	BinSize      float64 // metres per bin
	NoiseMean    float64
	NoiseStd     float64
	PulseHeight  float64
	PulseWidth   float64 // bins, one standard deviation
	DropoutRatio float64 // fraction of footprints with no ground return

	// Surface
	BaseElevation float64 // metres
	Relief        float64 // metres, amplitude of the rolling surface

	rng *rand.Rand
}

// NewSyntheticSurvey returns a generator with repeatable output for seed.
func NewSyntheticSurvey(flightID, seed int64) *SyntheticSurvey {
	return &SyntheticSurvey{
		FlightID:      flightID,
		Lines:         4,
		ShotsPerLine:  50,
		OriginLon:     -60,
		OriginLat:     -75,
		ShotSpacing:   0.0005,
		LineSpacing:   0.002,
		BinCount:      200,
		BinSize:       0.3,
		NoiseMean:     10,
		NoiseStd:      2,
		PulseHeight:   120,
		PulseWidth:    1.5,
		DropoutRatio:  0.1,
		BaseElevation: 250,
		Relief:        15,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// SurfaceAt is the true ground elevation at (lon, lat).
func (g *SyntheticSurvey) SurfaceAt(lon, lat float64) float64 {
	u := (lon - g.OriginLon) / (g.ShotSpacing * float64(max(g.ShotsPerLine, 1)))
	v := (lat - g.OriginLat) / (g.LineSpacing * float64(max(g.Lines, 1)))
	return g.BaseElevation + g.Relief*math.Sin(2*math.Pi*u)*math.Cos(math.Pi*v)
}

// Generate builds the records. truth holds the surface elevation under
// each footprint, or NaN for footprints generated without a ground return.
func (g *SyntheticSurvey) Generate() (rec *Records, truth []float64) {
	n := g.Lines * g.ShotsPerLine
	rec = &Records{BinCount: g.BinCount}
	truth = make([]float64, 0, n)
	span := float64(g.BinCount) * g.BinSize

	shot := int64(0)
	for line := 0; line < g.Lines; line++ {
		lat := g.OriginLat + float64(line)*g.LineSpacing
		for s := 0; s < g.ShotsPerLine; s++ {
			lon := g.OriginLon + float64(s)*g.ShotSpacing
			ground := g.SurfaceAt(lon, lat)

			// Keep the return below the first third of the window so the
			// top of the waveform is noise only.
			top := ground + span*(0.4+0.3*g.rng.Float64())

			w := make([]float64, g.BinCount)
			for b := range w {
				w[b] = g.NoiseMean + g.NoiseStd*g.rng.NormFloat64()
			}
			if g.rng.Float64() < g.DropoutRatio {
				truth = append(truth, math.NaN())
			} else {
				peak := (top - ground) / g.BinSize
				for b := range w {
					d := (float64(b) - peak) / g.PulseWidth
					w[b] += g.PulseHeight * math.Exp(-0.5*d*d)
				}
				truth = append(truth, ground)
			}

			// Small cross-track skew between the top and bottom coordinates.
			rec.Lon0 = append(rec.Lon0, lon-g.ShotSpacing/10)
			rec.LonN = append(rec.LonN, lon+g.ShotSpacing/10)
			rec.Lat0 = append(rec.Lat0, lat)
			rec.LatN = append(rec.LatN, lat)
			rec.FlightID = append(rec.FlightID, g.FlightID)
			rec.ShotNumber = append(rec.ShotNumber, shot)
			rec.Waveform = append(rec.Waveform, w)
			rec.Top = append(rec.Top, top)
			rec.Bottom = append(rec.Bottom, top-span)
			shot++
		}
	}
	return rec, truth
}
