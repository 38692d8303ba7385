package loadgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Result holds the samples collected during a measured run.
// Durations are in milliseconds, in completion order.
type Result struct {
	Durations  []float64
	ErrorCount int
	Completed  int
}

// Generator runs iterations of a Target with bounded concurrency.
// The zero value is ready to use.
type Generator struct {
	// Limiter paces iteration starts across all workers when set
	Limiter *rate.Limiter
	// Pause is slept by a worker after each iteration
	Pause time.Duration
	// Observe receives every sample, collected or not
	Observe func(Sample)

	active int32
}

// Run issues total iterations of target using min(concurrency, total) workers and
// blocks until every claimed iteration has completed. When collect is false the
// returned Result is empty.
//
// Cancelling ctx stops workers from claiming new iterations.
func (g *Generator) Run(ctx context.Context, target Target, total, concurrency int, collect bool) Result {
	var result Result
	if total <= 0 {
		return result
	}

	workers := concurrency
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}

	if collect {
		result.Durations = make([]float64, 0, total)
	}

	var (
		next int64
		mu   sync.Mutex
		eg   errgroup.Group
	)

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			atomic.AddInt32(&g.active, 1)
			defer atomic.AddInt32(&g.active, -1)

			for {
				if ctx.Err() != nil {
					return nil
				}
				index := int(atomic.AddInt64(&next, 1)) - 1
				if index >= total {
					return nil
				}
				if g.Limiter != nil {
					if err := g.Limiter.Wait(ctx); err != nil {
						return nil
					}
				}

				samples := target.Issue(ctx, index)

				if g.Observe != nil {
					for _, s := range samples {
						g.Observe(s)
					}
				}
				if collect {
					mu.Lock()
					for _, s := range samples {
						result.Durations = append(result.Durations, s.DurationMs())
						if !s.OK {
							result.ErrorCount++
						}
					}
					result.Completed++
					mu.Unlock()
				}

				if g.Pause > 0 {
					select {
					case <-ctx.Done():
						return nil
					case <-time.After(g.Pause):
					}
				}
			}
		})
	}

	_ = eg.Wait()
	return result
}

// ActiveWorkers returns the number of workers currently running
func (g *Generator) ActiveWorkers() int {
	return int(atomic.LoadInt32(&g.active))
}
