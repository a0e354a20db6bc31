package search

import (
	"cmp"
	"slices"
	"sync"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
)

// Result is one matching line.
type Result struct {
	// LineNumber is 1-based.
	LineNumber uint64 `json:"line_number"`
	Text       string `json:"text"`
	// Offsets and Lengths hold one entry per capture group, group 0 being
	// the whole match. Byte offsets are relative to Text.
	Offsets []int `json:"offsets"`
	Lengths []int `json:"lengths"`
}

// Outcome summarizes a finished search.
type Outcome struct {
	Matches int
	// Limited is set when the result limit stopped the search.
	Limited bool
	// ThreadErrors holds one *errors.ThreadError per worker that stopped
	// early. Results those workers emitted before stopping still count.
	ThreadErrors []error
}

// Err joins ThreadErrors, or returns nil.
func (o Outcome) Err() error {
	return lxerrors.NewMultiError(o.ThreadErrors)
}

// Collector is a result sink that keeps every result and hands them back in
// line order. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	results []Result
}

// Add is an OnResult callback.
func (c *Collector) Add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Len returns the number of results collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Sorted returns a copy of the results ordered by line number.
func (c *Collector) Sorted() []Result {
	c.mu.Lock()
	out := slices.Clone(c.results)
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b Result) int {
		return cmp.Compare(a.LineNumber, b.LineNumber)
	})
	return out
}
