package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Unit is one independently retryable piece of external work.
type Unit[T any] func(ctx context.Context) (T, error)

// RunBounded starts every unit concurrently but lets at most maxConcurrency of
// them hold the semaphore, and therefore call out, at the same time. It waits
// for all units: a failing unit never cancels its siblings. The successful
// results are returned in input order together with the joined failures.
func RunBounded[T any](ctx context.Context, maxConcurrency int, units []Unit[T]) ([]T, error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	sem := semaphore.NewWeighted(int64(maxConcurrency))

	values := make([]T, len(units))
	errs := make([]error, len(units))

	// errgroup is used without a derived context so one failure does not
	// cancel the others; every goroutine reports through errs instead.
	var eg errgroup.Group
	for i, unit := range units {
		eg.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				errs[i] = fmt.Errorf("unit %d: acquire slot: %w", i, err)
				return nil
			}
			defer sem.Release(1)

			v, err := unit(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("unit %d: %w", i, err)
				return nil
			}
			values[i] = v
			return nil
		})
	}
	_ = eg.Wait()

	results := make([]T, 0, len(units))
	var failures []error
	for i := range units {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		results = append(results, values[i])
	}
	return results, errors.Join(failures...)
}
