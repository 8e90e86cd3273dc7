package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Ramp endpoints for low and high elevations.
var (
	rampLow  = mustHex("#2c7bb6")
	rampMid  = mustHex("#ffffbf")
	rampHigh = mustHex("#d7191c")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// rampColor maps t in [0,1] through a diverging blue-yellow-red ramp
// blended in HCL space.
func rampColor(t float64) color.NRGBA {
	t = math.Max(0, math.Min(1, t))
	var c colorful.Color
	if t < 0.5 {
		c = rampLow.BlendHcl(rampMid, t*2)
	} else {
		c = rampMid.BlendHcl(rampHigh, (t-0.5)*2)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// PreviewImage renders g with one pixel per cell. Nodata cells are
// transparent.
func PreviewImage(g *Grid) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, ok := range g.Valid {
		if ok {
			lo = math.Min(lo, g.Data[i])
			hi = math.Max(hi, g.Data[i])
		}
	}
	span := hi - lo
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			v, ok := g.At(r, c)
			if !ok {
				continue
			}
			t := 0.5
			if span > 0 {
				t = (v - lo) / span
			}
			img.SetNRGBA(c, r, rampColor(t))
		}
	}
	return img
}

// WritePreviewPNG saves a colour-ramped preview of g at path. A positive
// width scales the image with nearest-neighbour sampling so cells stay
// crisp.
func WritePreviewPNG(path string, g *Grid, width int) error {
	var img image.Image = PreviewImage(g)
	if width > 0 && width != g.Cols {
		img = imaging.Resize(img, width, 0, imaging.NearestNeighbor)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save preview %s: %w", path, err)
	}
	return nil
}
