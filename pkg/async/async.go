package async

import (
	"context"
	"errors"
)

// Future is the eventual result of a function started with Async.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Await blocks until the function returns.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// Async runs fn(ctx, param) in its own goroutine. A context that is already
// done short-circuits fn and completes the future with ctx.Err().
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// WaitAll waits for every future. Results keep input order; errors from all
// futures are joined.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	var errs []error
	for i, future := range futures {
		res, err := future.Await()
		results[i] = res
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// Map applies fn to every item with at most limit goroutines alive at once
// (limit <= 0 means one per item) and returns results in input order. Items
// not yet started when ctx ends fail with ctx.Err().
func Map[T, U any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (U, error)) ([]U, error) {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	sem := make(chan struct{}, max(limit, 1))
	futures := make([]*Future[U], len(items))
	for i, item := range items {
		// Once ctx is done Async skips fn, so a slot taken here may never be
		// given back; the Done case keeps the loop from waiting on it.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		futures[i] = Async(ctx, item, func(ctx context.Context, item T) (U, error) {
			defer func() { <-sem }()
			return fn(ctx, item)
		})
	}

	return WaitAll(futures...)
}
