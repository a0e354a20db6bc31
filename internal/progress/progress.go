// Package progress turns per-worker completion fractions into a single
// caller-visible progress value. Workers publish through a Tracker, which
// wakes a forwarding goroutine over a channel instead of being polled, and
// a Reporter guarantees what the caller sees: values in [0,1], never
// decreasing, throttled, and a final 1.0 on success.
package progress

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two emitted values.
const DefaultInterval = 50 * time.Millisecond

// Func receives progress fractions.
type Func func(fraction float64)

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// Tracker holds one fraction per worker.
type Tracker struct {
	parts  []atomic.Uint64
	notify chan struct{}
}

// NewTracker creates a tracker for workers workers.
func NewTracker(workers int) *Tracker {
	if workers < 1 {
		workers = 1
	}
	return &Tracker{
		parts:  make([]atomic.Uint64, workers),
		notify: make(chan struct{}, 1),
	}
}

// Set records worker's fraction and wakes the forwarder. It never blocks.
func (t *Tracker) Set(worker int, fraction float64) {
	if t == nil || worker < 0 || worker >= len(t.parts) {
		return
	}
	t.parts[worker].Store(math.Float64bits(clamp(fraction)))
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Get returns worker's last fraction.
func (t *Tracker) Get(worker int) float64 {
	if t == nil || worker < 0 || worker >= len(t.parts) {
		return 0
	}
	return math.Float64frombits(t.parts[worker].Load())
}

// Average returns the mean fraction over all workers.
func (t *Tracker) Average() float64 {
	if t == nil || len(t.parts) == 0 {
		return 0
	}
	var sum float64
	for i := range t.parts {
		sum += math.Float64frombits(t.parts[i].Load())
	}
	return sum / float64(len(t.parts))
}

// Forward starts a goroutine that reports scale(t.Average()) to r every
// time a worker publishes. The returned stop function ends the goroutine,
// waits for it, and reports the value one last time.
func (t *Tracker) Forward(r *Reporter, scale func(float64) float64) (stop func()) {
	if scale == nil {
		scale = func(f float64) float64 { return f }
	}
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-quit:
				return
			case <-t.notify:
				r.Report(scale(t.Average()))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
			r.Report(scale(t.Average()))
		})
	}
}

// Reporter delivers progress to a Func. A nil Reporter or a nil Func
// discards everything.
type Reporter struct {
	fn        Func
	mu        sync.Mutex
	last      float64
	emitted   bool
	sometimes rate.Sometimes
}

// NewReporter wraps fn. interval <= 0 disables throttling.
func NewReporter(fn Func, interval time.Duration) *Reporter {
	r := &Reporter{fn: fn}
	if interval > 0 {
		r.sometimes = rate.Sometimes{First: 1, Interval: interval}
	} else {
		r.sometimes = rate.Sometimes{Every: 1}
	}
	return r
}

// Report emits f unless it would go backwards or the throttle drops it.
func (r *Reporter) Report(f float64) {
	if r == nil || r.fn == nil {
		return
	}
	f = clamp(f)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emitted && f <= r.last {
		return
	}
	r.sometimes.Do(func() {
		r.last = f
		r.emitted = true
		r.fn(f)
	})
}

// Done emits 1.0 unless it was already emitted.
func (r *Reporter) Done() {
	if r == nil || r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emitted && r.last >= 1 {
		return
	}
	r.last = 1
	r.emitted = true
	r.fn(1)
}

// Last returns the most recent emitted value.
func (r *Reporter) Last() float64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
