package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunChunked partitions items into chunks of size concurrency and runs each
// chunk's items concurrently. A chunk starts only after every item of the
// previous chunk has returned. The control is checked between chunks.
//
// fn reports item failures through state, not its error; a non-nil error
// from fn aborts the run after the current chunk settles.
func RunChunked[T any](ctx context.Context, items []T, concurrency int, ctl *Control, fn func(ctx context.Context, item T) error) error {
	if concurrency < 1 {
		concurrency = 1
	}
	for start := 0; start < len(items); start += concurrency {
		if err := ctl.Wait(ctx); err != nil {
			return err
		}

		end := min(start+concurrency, len(items))
		g, gctx := errgroup.WithContext(ctx)
		for _, item := range items[start:end] {
			g.Go(func() error {
				return fn(gctx, item)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// RunSequential runs fn over items one at a time in list order. The control
// is checked before and after each item, and delay is slept between items.
// Cancellation is observed at those points only, so an item that has started
// always completes.
func RunSequential[T any](ctx context.Context, items []T, delay time.Duration, ctl *Control, fn func(ctx context.Context, item T) error) error {
	for i, item := range items {
		if err := ctl.Wait(ctx); err != nil {
			return err
		}
		if err := fn(ctx, item); err != nil {
			return err
		}
		if ctl.Cancelled() {
			return ErrCancelled
		}
		if i == len(items)-1 || delay <= 0 {
			continue
		}

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctl.Done():
			t.Stop()
			return ErrCancelled
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return nil
}
