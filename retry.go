package ovenflow

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
)

// Retry defaults, used when a caller passes out-of-range settings.
const (
	DefaultRetryTries = 3
	DefaultRetryBase  = 200 * time.Millisecond
)

// Attempt is the outcome of RetryWithBackoff. Exactly one of Value or Err is
// meaningful: Err nil means the operation succeeded within the allowed tries.
// Attempts counts every invocation of the operation, including the
// successful one.
type Attempt[T any] struct {
	Value    T
	Attempts int
	Err      error
}

// RetryWithBackoff runs op up to tries times, waiting base*attemptNumber
// between failures (linear backoff). It never panics and has no error return
// of its own: failures, including panics inside op, end up in the Err field
// of the returned Attempt.
//
// Waits go through the supplied clock so tests can drive a
// clockz.NewFakeClock. A nil clock falls back to clockz.RealClock. If the
// context is canceled during a wait, the loop stops and the last operation
// error is returned; the operation itself is responsible for honoring ctx
// while it runs.
func RetryWithBackoff[T any](ctx context.Context, clock clockz.Clock, tries int, base time.Duration, op func(context.Context) (T, error)) Attempt[T] {
	if tries < 1 {
		tries = DefaultRetryTries
	}
	if base < time.Millisecond {
		base = DefaultRetryBase
	}
	if clock == nil {
		clock = clockz.RealClock
	}

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		value, err := runGuarded(ctx, op)
		if err == nil {
			return Attempt[T]{Value: value, Attempts: attempt}
		}
		lastErr = err

		// No wait after the final attempt.
		if attempt == tries {
			break
		}
		select {
		case <-clock.After(base * time.Duration(attempt)):
		case <-ctx.Done():
			return Attempt[T]{Attempts: attempt, Err: lastErr}
		}
	}
	return Attempt[T]{Attempts: tries, Err: lastErr}
}

// runGuarded invokes op, converting a panic into the failure branch.
func runGuarded[T any](ctx context.Context, op func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}
