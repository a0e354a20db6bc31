// Context: Keeps one live Index per watched file and replaces it with a
// freshly built one after changes settle. Indexes are never updated in
// place; every rebuild scans the whole file again.
// External deps: none.
package watch

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/standardbeagle/lineidx/internal/debug"
	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/index"
	"github.com/standardbeagle/lineidx/internal/logging"
)

// ErrNotWatched is returned for a path that has no live index.
var ErrNotWatched = errors.New("path is not indexed")

const defaultDebounce = 50 * time.Millisecond

// EventType is what happened to a watched file.
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// BuildFunc indexes one file from scratch.
type BuildFunc func(ctx context.Context, path string) (*index.Index, error)

// Report describes one file handled by a rebuild pass.
type Report struct {
	Path     string
	Lines    uint64
	Removed  bool
	Duration time.Duration
	Err      error
}

// Stats counts rebuild activity.
type Stats struct {
	EventsProcessed int64
	Rebuilds        int64
	ErrorCount      int64
	LastEventTime   time.Time
}

// Rebuilder batches change events per path and rebuilds after the
// debounce period. Safe for concurrent use.
type Rebuilder struct {
	build BuildFunc
	log   *logging.Logger

	// debounce state
	mu           sync.Mutex
	debounceTime time.Duration
	timer        *time.Timer
	pending      map[string]EventType

	// rebuild passes run one at a time
	passMu sync.Mutex

	idxMu   sync.RWMutex
	indexes map[string]*index.Index

	statsMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onRebuildComplete func([]Report)
}

// NewRebuilder creates a rebuilder. debounce <= 0 uses 50ms.
func NewRebuilder(build BuildFunc, debounce time.Duration, log *logging.Logger) *Rebuilder {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Rebuilder{
		build:        build,
		log:          log,
		debounceTime: debounce,
		pending:      make(map[string]EventType),
		indexes:      make(map[string]*index.Index),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Add builds the first index for path synchronously.
func (r *Rebuilder) Add(ctx context.Context, path string) error {
	ix, err := r.build(ctx, path)
	if err != nil {
		return err
	}
	r.swap(path, ix)
	return nil
}

// With runs fn with the live index for path. A rebuild that finishes while
// fn runs waits for fn before closing the old index.
func (r *Rebuilder) With(path string, fn func(*index.Index) error) error {
	r.idxMu.RLock()
	defer r.idxMu.RUnlock()

	ix, ok := r.indexes[path]
	if !ok {
		return ErrNotWatched
	}
	return fn(ix)
}

// Paths returns the indexed paths, sorted.
func (r *Rebuilder) Paths() []string {
	r.idxMu.RLock()
	defer r.idxMu.RUnlock()

	out := make([]string, 0, len(r.indexes))
	for p := range r.indexes {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// ScheduleRebuild records ev for path and restarts the debounce timer. The
// latest event per path wins.
func (r *Rebuilder) ScheduleRebuild(path string, ev EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return
	}

	r.pending[path] = ev

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounceTime, r.performRebuild)

	debug.LogIndexing("Scheduled %s for %s (pending: %d files)\n", ev, path, len(r.pending))
}

// ForceRebuild runs the pending events now instead of waiting.
func (r *Rebuilder) ForceRebuild() {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()

	r.performRebuild()
}

// SetDebounceTime updates the debounce time
func (r *Rebuilder) SetDebounceTime(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.debounceTime = d
}

// PendingCount returns the number of paths waiting for the next pass.
func (r *Rebuilder) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// SetOnRebuildComplete sets a callback invoked after every pass.
func (r *Rebuilder) SetOnRebuildComplete(callback func([]Report)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRebuildComplete = callback
}

// Stats returns a snapshot of the counters.
func (r *Rebuilder) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *Rebuilder) performRebuild() {
	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	events := r.pending
	r.pending = make(map[string]EventType)
	callback := r.onRebuildComplete
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	if len(events) == 0 {
		return
	}

	r.passMu.Lock()
	defer r.passMu.Unlock()

	var removes, changes []string
	for path, ev := range events {
		switch ev {
		case EventRemove, EventRename:
			removes = append(removes, path)
		case EventCreate, EventWrite:
			changes = append(changes, path)
		}
	}
	slices.Sort(removes)
	slices.Sort(changes)

	r.log.Debug("rebuild pass started", "removed", len(removes), "changed", len(changes))

	reports := make([]Report, 0, len(events))

	// removals first so their indexes are released before new scans start
	for _, path := range removes {
		if r.drop(path) {
			reports = append(reports, Report{Path: path, Removed: true})
		}
	}

	for _, path := range changes {
		start := time.Now()
		ix, err := r.build(r.ctx, path)
		rep := Report{Path: path, Duration: time.Since(start), Err: err}
		if err != nil {
			r.log.Warn("rebuild failed", "file", path, "error", err)
		} else {
			rep.Lines = ix.Lines()
			r.swap(path, ix)
		}
		reports = append(reports, rep)
	}

	r.record(reports)

	if callback != nil {
		callback(reports)
	}
}

func (r *Rebuilder) record(reports []Report) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	for _, rep := range reports {
		r.stats.EventsProcessed++
		if rep.Err != nil {
			r.stats.ErrorCount++
		} else if !rep.Removed {
			r.stats.Rebuilds++
		}
	}
	r.stats.LastEventTime = time.Now()
}

// swap installs ix for path and closes the index it replaces.
func (r *Rebuilder) swap(path string, ix *index.Index) {
	r.idxMu.Lock()
	old := r.indexes[path]
	r.indexes[path] = ix
	r.idxMu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			r.log.Warn("closing replaced index", "file", path, "error", err)
		}
	}
}

func (r *Rebuilder) drop(path string) bool {
	r.idxMu.Lock()
	old, ok := r.indexes[path]
	delete(r.indexes, path)
	r.idxMu.Unlock()

	if !ok {
		return false
	}
	if err := old.Close(); err != nil {
		r.log.Warn("closing removed index", "file", path, "error", err)
	}
	return true
}

// Shutdown stops pending work, waits for a running pass and closes every
// index.
func (r *Rebuilder) Shutdown() error {
	r.cancel()

	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.pending = make(map[string]EventType)
	r.mu.Unlock()

	r.wg.Wait()

	r.idxMu.Lock()
	defer r.idxMu.Unlock()

	var errs []error
	for path, ix := range r.indexes {
		if err := ix.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.indexes, path)
	}
	return lxerrors.NewMultiError(errs)
}
