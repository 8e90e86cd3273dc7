package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ErrUnsupportedEPSG is returned for reference systems without a projection here.
var ErrUnsupportedEPSG = errors.New("unsupported EPSG code")

const (
	EPSGWGS84          = 4326
	EPSGAntarcticPolar = 3031
	EPSGArcticPolar    = 3413
	EPSGWebMercator    = 3857
)

// WGS84 ellipsoid.
const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257223563
)

var eccentricity = math.Sqrt(flattening * (2 - flattening))

// Reprojector converts geographic coordinates into a target system.
type Reprojector struct {
	src, dst int
	forward  func(lon, lat float64) (float64, float64, error)
}

// NewReprojector returns a projection from srcEPSG to dstEPSG. Only
// EPSG:4326 is accepted as a source.
func NewReprojector(srcEPSG, dstEPSG int) (*Reprojector, error) {
	if srcEPSG != EPSGWGS84 {
		return nil, fmt.Errorf("%w: source %d (only %d)", ErrUnsupportedEPSG, srcEPSG, EPSGWGS84)
	}
	r := &Reprojector{src: srcEPSG, dst: dstEPSG}
	switch dstEPSG {
	case EPSGWGS84:
		r.forward = func(lon, lat float64) (float64, float64, error) { return lon, lat, nil }
	case EPSGAntarcticPolar:
		r.forward = polarStereographic(-71, 0)
	case EPSGArcticPolar:
		r.forward = polarStereographic(70, -45)
	case EPSGWebMercator:
		r.forward = webMercator
	default:
		return nil, fmt.Errorf("%w: target %d", ErrUnsupportedEPSG, dstEPSG)
	}
	return r, nil
}

// Source returns the source EPSG code.
func (r *Reprojector) Source() int { return r.src }

// Target returns the target EPSG code.
func (r *Reprojector) Target() int { return r.dst }

// Project converts one lon/lat pair in degrees.
func (r *Reprojector) Project(lon, lat float64) (x, y float64, err error) {
	if math.IsNaN(lon) || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("invalid coordinate (%g, %g)", lon, lat)
	}
	return r.forward(lon, lat)
}

// ProjectAll converts parallel lon/lat slices.
func (r *Reprojector) ProjectAll(lons, lats []float64) (xs, ys []float64, err error) {
	if len(lons) != len(lats) {
		return nil, nil, fmt.Errorf("coordinate length mismatch: %d lon, %d lat", len(lons), len(lats))
	}
	xs = make([]float64, len(lons))
	ys = make([]float64, len(lons))
	for i := range lons {
		if xs[i], ys[i], err = r.Project(lons[i], lats[i]); err != nil {
			return nil, nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
	}
	return xs, ys, nil
}

func webMercator(lon, lat float64) (float64, float64, error) {
	if math.Abs(lat) > 85.06 {
		return 0, 0, fmt.Errorf("latitude %g outside Web Mercator range", lat)
	}
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return p[0], p[1], nil
}

// polarStereographic returns the ellipsoidal forward projection (Snyder
// 21-33, 21-34, 21-38) with true scale at latTS and central meridian lon0.
// A negative latTS selects the south polar aspect.
func polarStereographic(latTS, lon0 float64) func(lon, lat float64) (float64, float64, error) {
	south := latTS < 0
	e := eccentricity

	phiC := rad(math.Abs(latTS))
	mc := math.Cos(phiC) / math.Sqrt(1-e*e*math.Sin(phiC)*math.Sin(phiC))
	tc := tsfn(phiC, e)

	return func(lon, lat float64) (float64, float64, error) {
		phi := rad(lat)
		lam := rad(lon - lon0)
		if south {
			phi = -phi
			lam = -lam
		}
		if math.Abs(phi+math.Pi/2) < 1e-10 {
			return 0, 0, fmt.Errorf("latitude %g is the opposite pole", lat)
		}
		rho := semiMajor * mc * tsfn(phi, e) / tc
		x := rho * math.Sin(lam)
		y := -rho * math.Cos(lam)
		if south {
			x, y = -x, -y
		}
		return x, y, nil
	}
}

// tsfn is Snyder's t for the north polar aspect.
func tsfn(phi, e float64) float64 {
	s := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-s)/(1+s), e/2)
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
