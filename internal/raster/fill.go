package raster

// FillGaps returns a copy of g in which every nodata cell with at least one
// valid cell inside the (2*radius+1) square window around it takes the
// mean of those valid cells. Valid cells are unchanged and filled values
// never feed other fills.
func FillGaps(g *Grid, radius int) *Grid {
	out := g.Clone()
	if radius <= 0 {
		return out
	}

	// Summed-area tables of values and valid counts, padded by one.
	w := g.Cols + 1
	sum := make([]float64, w*(g.Rows+1))
	cnt := make([]int, w*(g.Rows+1))
	for r := 0; r < g.Rows; r++ {
		var rowSum float64
		var rowCnt int
		for c := 0; c < g.Cols; c++ {
			if v, ok := g.At(r, c); ok {
				rowSum += v
				rowCnt++
			}
			i := (r+1)*w + c + 1
			sum[i] = sum[i-w] + rowSum
			cnt[i] = cnt[i-w] + rowCnt
		}
	}
	box := func(r0, c0, r1, c1 int) (float64, int) {
		a, b := r0*w+c0, r0*w+c1
		c, d := r1*w+c0, r1*w+c1
		return sum[d] - sum[b] - sum[c] + sum[a], cnt[d] - cnt[b] - cnt[c] + cnt[a]
	}

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if _, ok := g.At(r, c); ok {
				continue
			}
			r0, c0 := max(r-radius, 0), max(c-radius, 0)
			r1, c1 := min(r+radius+1, g.Rows), min(c+radius+1, g.Cols)
			s, n := box(r0, c0, r1, c1)
			if n > 0 {
				out.Set(r, c, s/float64(n))
			}
		}
	}
	return out
}
