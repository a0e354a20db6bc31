package indexing

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if any scan or forwarding goroutine outlives
// its run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
