// Package testhelpers provides shared utilities for testing lineidx
package testhelpers

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

// WaitFor waits for a condition to become true with timeout
// Usage:
//
//	testhelpers.WaitFor(t, func() bool {
//	    return rebuilds.Load() > 0
//	}, 5*time.Second)
func WaitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
			return
		}
	}
}

// AssertNoLeaks verifies no goroutines other than those running at start
// remain. Pass the option captured with goleak.IgnoreCurrent() before the
// test started its work.
func AssertNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	if err := goleak.Find(opts...); err != nil {
		t.Errorf("Goroutine leak detected: %v", err)
	}
}

// SkipIfShort skips the test if -short flag is provided
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping in short mode: %s", reason)
	}
}
