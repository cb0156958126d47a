package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ChunkSize is the number of paths sharing one random stream. Changing it
// changes which draws each path receives.
const ChunkSize = 1024

// forEachChunk splits [0, n) into fixed-size chunks and runs fn on up to
// workers chunks at a time. Chunk boundaries depend only on n and size.
func forEachChunk(ctx context.Context, n, size, workers int, fn func(chunk, start, end int) error) error {
	chunks := (n + size - 1) / size
	if workers <= 1 || chunks <= 1 {
		for c := 0; c < chunks; c++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			start, end := chunkBounds(c, n, size)
			if err := fn(c, start, end); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start, end := chunkBounds(c, n, size)
			return fn(c, start, end)
		})
	}
	return g.Wait()
}

func chunkBounds(c, n, size int) (int, int) {
	start := c * size
	return start, min(start+size, n)
}
