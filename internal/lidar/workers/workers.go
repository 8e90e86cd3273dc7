// Package workers runs per-footprint stage functions in parallel.
//
// Every waveform stage is independent across footprints, so the footprint
// index range is split into contiguous chunks and each chunk runs on its own
// goroutine. Callers write results into slots owned by the index they were
// handed, which keeps the output order equal to load order without locking.
package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn for every index in [0, n) using at most limit goroutines.
// A limit of zero or less uses GOMAXPROCS. The first error returned by fn
// stops the remaining chunks and is returned; a cancelled ctx is reported the
// same way.
func ForEach(ctx context.Context, n, limit int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	if limit > n {
		limit = n
	}
	chunk := (n + limit - 1) / limit

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
