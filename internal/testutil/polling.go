// Package testutil provides helpers for tests that wait on asynchronous
// work: bounded polling and a concurrency-safe recorder for callbacks.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Default polling bounds.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 5 * time.Millisecond
)

// Poll checks condition until it holds, timeout elapses or ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
	}
	return nil
}

// WaitForState polls getter until predicate accepts its value, returning
// that value. On timeout or cancellation it returns the zero value.
//
//	state, err := WaitForState(ctx, ctrl.State,
//		func(s session.State) bool { return s == session.Authenticated },
//		testutil.DefaultTimeout, testutil.DefaultInterval)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	var zero T
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if v := getter(); predicate(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-deadline.C:
			return zero, fmt.Errorf("timeout waiting for target state (type %T, threshold: %v)", zero, timeout)
		case <-ticker.C:
		}
	}
}

// Eventually is Poll with the default bounds, failing the test on timeout.
func Eventually(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, condition func() bool, msg string) {
	t.Helper()
	if err := Poll(context.Background(), condition, DefaultTimeout, DefaultInterval); err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
