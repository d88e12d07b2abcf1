package ovenflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Run("Success On First Try", func(t *testing.T) {
		calls := 0
		att := RetryWithBackoff(context.Background(), nil, 3, 10*time.Millisecond,
			func(context.Context) (int, error) {
				calls++
				return 42, nil
			})

		if att.Err != nil {
			t.Fatalf("unexpected error: %v", att.Err)
		}
		if att.Value != 42 {
			t.Errorf("expected 42, got %d", att.Value)
		}
		if att.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", att.Attempts)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("Linear Backoff Timing With Clock", func(t *testing.T) {
		var calls int32
		clock := clockz.NewFakeClock()

		done := make(chan Attempt[int], 1)
		go func() {
			done <- RetryWithBackoff(context.Background(), clock, 3, 50*time.Millisecond,
				func(context.Context) (int, error) {
					if atomic.AddInt32(&calls, 1) < 3 {
						return 0, errors.New("temporary error")
					}
					return 7, nil
				})
		}()

		// Allow goroutine to start.
		time.Sleep(10 * time.Millisecond)

		// First wait: base * 1 = 50ms.
		clock.Advance(50 * time.Millisecond)
		clock.BlockUntilReady()
		time.Sleep(10 * time.Millisecond)

		// Second wait: base * 2 = 100ms.
		clock.Advance(100 * time.Millisecond)
		clock.BlockUntilReady()

		var att Attempt[int]
		select {
		case att = <-done:
		case <-time.After(time.Second):
			t.Fatal("test timed out")
		}

		if att.Err != nil {
			t.Fatalf("unexpected error: %v", att.Err)
		}
		if att.Value != 7 {
			t.Errorf("expected 7, got %d", att.Value)
		}
		if att.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", att.Attempts)
		}
	})

	t.Run("Exhaustion Returns Last Error", func(t *testing.T) {
		calls := 0
		att := RetryWithBackoff(context.Background(), nil, 3, time.Millisecond,
			func(context.Context) (string, error) {
				calls++
				return "", errors.New("still broken")
			})

		if att.Err == nil {
			t.Fatal("expected an error after exhausting tries")
		}
		if att.Err.Error() != "still broken" {
			t.Errorf("expected last error, got %v", att.Err)
		}
		if att.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", att.Attempts)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("Panic Becomes Failure Branch", func(t *testing.T) {
		att := RetryWithBackoff(context.Background(), nil, 1, time.Millisecond,
			func(context.Context) (int, error) {
				panic("boom")
			})

		if att.Err == nil {
			t.Fatal("expected panic to surface as error")
		}
		if att.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", att.Attempts)
		}
	})

	t.Run("Out Of Range Settings Use Defaults", func(t *testing.T) {
		calls := 0
		att := RetryWithBackoff(context.Background(), nil, 0, time.Millisecond,
			func(context.Context) (int, error) {
				calls++
				return 0, errors.New("nope")
			})

		if att.Attempts != DefaultRetryTries {
			t.Errorf("expected %d attempts, got %d", DefaultRetryTries, att.Attempts)
		}
		if calls != DefaultRetryTries {
			t.Errorf("expected %d calls, got %d", DefaultRetryTries, calls)
		}
	})

	t.Run("Context Canceled During Wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		clock := clockz.NewFakeClock()

		done := make(chan Attempt[int], 1)
		go func() {
			done <- RetryWithBackoff(ctx, clock, 3, time.Minute,
				func(context.Context) (int, error) {
					return 0, errors.New("flaky")
				})
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		var att Attempt[int]
		select {
		case att = <-done:
		case <-time.After(time.Second):
			t.Fatal("retry did not stop on cancellation")
		}

		if att.Err == nil {
			t.Fatal("expected the last operation error")
		}
		if att.Attempts != 1 {
			t.Errorf("expected 1 attempt before cancellation, got %d", att.Attempts)
		}
	})
}
