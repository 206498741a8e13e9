package spiral

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many nodes a worker computes between
// context checks.
const cancelCheckInterval = 256

// MaxParallelCount is the largest count GenerateParallel accepts. The whole
// result is allocated up front.
const MaxParallelCount = 1 << 24

// GenerateParallel computes the nodes at indices 0..count-1 by splitting the
// range into contiguous chunks across workers. workers <= 0 means
// GOMAXPROCS. The result is in index order and equal to GenerateSequence.
// Counts above MaxParallelCount are rejected with ErrInvalidConfig.
func (g *Generator) GenerateParallel(ctx context.Context, count, workers int) ([]Node, error) {
	if err := g.checkCount(count); err != nil {
		return nil, err
	}
	if count > MaxParallelCount {
		return nil, fmt.Errorf("%w: count %d exceeds %d", ErrInvalidConfig, count, MaxParallelCount)
	}
	nodes := make([]Node, count)
	if count == 0 {
		return nodes, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, count)
	chunk := (count + workers - 1) / workers

	eg, egCtx := errgroup.WithContext(ctx)
	for lo := 0; lo < count; lo += chunk {
		start, end := lo, min(lo+chunk, count)
		eg.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%cancelCheckInterval == 0 {
					if err := egCtx.Err(); err != nil {
						return err
					}
				}
				nodes[i] = g.node(i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}
