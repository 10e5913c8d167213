package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the default number of concurrent workers.
const DefaultLimit = 8

// Map applies fn to every item with at most limit calls in flight. Results
// keep the input order. The first error cancels the context handed to the
// remaining calls and is returned.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
