package service

import (
	"context"
	"fmt"
)

// Result carries the outcome of an asynchronous call.
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs fn on its own goroutine and delivers exactly one Result on the
// returned channel, which is then closed. A panic in fn is reported as an
// error.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		var res Result[T]
		defer func() {
			if r := recover(); r != nil {
				res = Result[T]{Err: fmt.Errorf("async call panicked: %v", r)}
			}
			ch <- res
		}()
		res.Value, res.Err = fn(ctx)
	}()
	return ch
}

// Await waits for the result or for ctx to be done.
func Await[T any](ctx context.Context, ch <-chan Result[T]) (T, error) {
	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
