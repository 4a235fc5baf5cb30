// Package race runs an operation against a timer and keeps whichever
// settles first.
package race

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned when the timer wins
	ErrTimeout = errors.New("operation timed out")
	// ErrPanic wraps a panic raised by the operation
	ErrPanic = errors.New("operation panicked")
)

type result[T any] struct {
	val T
	err error
}

// WithTimeout starts fn and a timer together. If the timer fires first,
// fn's eventual result is discarded and ErrTimeout is returned.
// A non-positive timeout disables the timer. A panic in fn is returned as
// an error wrapping ErrPanic.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so a losing fn never blocks on send.
	done := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		val, err := fn(opCtx)
		done <- result[T]{val: val, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case res := <-done:
		return res.val, res.err
	case <-timer.C:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
