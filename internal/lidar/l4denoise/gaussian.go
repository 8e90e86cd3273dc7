package l4denoise

import "math"

// gaussianKernel returns a normalised kernel of radius int(4*sigma+0.5).
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		k[i+radius] = w
		sum += w
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflectIndex maps i onto [0,n) by mirroring about the array edges with
// the edge sample repeated (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// GaussianSmooth convolves in with a Gaussian of sigma bins using
// reflect-mode boundaries. A non-positive sigma returns a copy.
func GaussianSmooth(in []float64, sigma float64) []float64 {
	out := make([]float64, len(in))
	if !(sigma > 0) || len(in) == 0 {
		copy(out, in)
		return out
	}
	k := gaussianKernel(sigma)
	radius := len(k) / 2
	n := len(in)
	for i := range out {
		var acc float64
		for j, w := range k {
			acc += w * in[reflectIndex(i+j-radius, n)]
		}
		out[i] = acc
	}
	return out
}
