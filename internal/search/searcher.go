// Package search runs a regular expression over every line of an Index.
// The line range is split into one contiguous sub-range per worker; each
// worker pulls batches of lines through Index.Lookup, matches them one by
// one and hands matches to the caller's sink under a shared budget.
package search

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lineidx/internal/debug"
	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/index"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/progress"
)

const DefaultLineBuffer = 1024

// Config is fixed for one search.
type Config struct {
	Pattern         string
	Engine          string
	CaseInsensitive bool
	MatchTimeout    time.Duration

	Threads int
	// LineBuffer is the number of lines read per Index.Lookup call.
	LineBuffer int
	// ResultLimit stops the search after that many results. 0 means no
	// limit.
	ResultLimit int

	// OnResult receives every result, one call at a time.
	OnResult         func(Result)
	OnProgress       progress.Func
	ProgressInterval time.Duration
	Logger           *logging.Logger
}

// Searcher is a compiled search over one Index.
type Searcher struct {
	cfg     Config
	index   *index.Index
	pattern Pattern
	log     *logging.Logger
}

// New compiles cfg.Pattern. An invalid pattern fails here, before any
// worker exists, with an error matching errors.ErrInvalidPattern.
func New(ix *index.Index, cfg Config) (*Searcher, error) {
	p, err := Compile(cfg.Engine, cfg.Pattern, CompileOptions{
		CaseInsensitive: cfg.CaseInsensitive,
		MatchTimeout:    cfg.MatchTimeout,
	})
	if err != nil {
		return nil, err
	}
	return NewWithPattern(ix, p, cfg), nil
}

// NewWithPattern reuses an already compiled pattern, for running one
// pattern over several indexes.
func NewWithPattern(ix *index.Index, p Pattern, cfg Config) *Searcher {
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.NumCPU()
	}
	if cfg.LineBuffer <= 0 {
		cfg.LineBuffer = DefaultLineBuffer
	}
	if cfg.ResultLimit < 0 {
		cfg.ResultLimit = 0
	}
	cfg.Pattern = p.String()
	return &Searcher{
		cfg:     cfg,
		index:   ix,
		pattern: p,
		log:     cfg.Logger.With("file", ix.Filename(), "pattern", p.String()),
	}
}

// Search is New followed by Searcher.Search.
func Search(ctx context.Context, ix *index.Index, cfg Config) (Outcome, error) {
	s, err := New(ix, cfg)
	if err != nil {
		return Outcome{}, err
	}
	return s.Search(ctx)
}

// lineRange is the half-open line range [from, to) of one worker.
type lineRange struct {
	from, to uint64
}

// lineRanges splits lines across at most threads workers; the last worker
// takes the remainder.
func lineRanges(threads int, lines uint64) []lineRange {
	if lines == 0 {
		return nil
	}
	if threads < 1 {
		threads = 1
	}
	if uint64(threads) > lines {
		threads = int(lines)
	}
	per := lines / uint64(threads)
	out := make([]lineRange, threads)
	for i := range out {
		out[i] = lineRange{from: uint64(i) * per, to: uint64(i+1) * per}
	}
	out[len(out)-1].to = lines
	return out
}

// budget is the only state workers share: the result counter and the sink
// it guards.
type budget struct {
	mu      sync.Mutex
	count   int
	limit   int
	limited bool
	sink    func(Result)
	stop    atomic.Bool
}

// emit delivers r unless the limit was already reached, and reports
// whether the caller may continue.
func (b *budget) emit(r Result) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && b.count >= b.limit {
		return false
	}
	b.count++
	if b.sink != nil {
		b.sink(r)
	}
	if b.limit > 0 && b.count >= b.limit {
		b.limited = true
		b.stop.Store(true)
		return false
	}
	return true
}

// Search runs the workers and waits for all of them. A worker that fails
// stops alone and is reported in Outcome.ThreadErrors. The returned error
// is non-nil only when ctx ended the search.
func (s *Searcher) Search(ctx context.Context) (Outcome, error) {
	ranges := lineRanges(s.cfg.Threads, s.index.Lines())
	s.log.Debug("search started",
		"lines", s.index.Lines(),
		"threads", len(ranges),
		"line_buffer", s.cfg.LineBuffer,
		"limit", s.cfg.ResultLimit,
	)

	b := &budget{limit: s.cfg.ResultLimit, sink: s.cfg.OnResult}
	reporter := progress.NewReporter(s.cfg.OnProgress, s.cfg.ProgressInterval)
	tracker := progress.NewTracker(len(ranges))
	stop := tracker.Forward(reporter, nil)

	threadErrs := make([]error, len(ranges))
	var g errgroup.Group
	for i, r := range ranges {
		g.Go(func() error {
			threadErrs[i] = s.worker(ctx, i, r, b, tracker)
			return nil
		})
	}
	_ = g.Wait()
	stop()

	b.mu.Lock()
	out := Outcome{Matches: b.count, Limited: b.limited}
	b.mu.Unlock()
	for _, err := range threadErrs {
		if err != nil {
			out.ThreadErrors = append(out.ThreadErrors, err)
		}
	}

	if err := ctx.Err(); err != nil {
		s.log.LogSearchRun(s.cfg.Pattern, out.Matches, out.Limited, err)
		return out, lxerrors.NewSearchError(s.cfg.Pattern, err)
	}
	reporter.Done()
	s.log.LogSearchRun(s.cfg.Pattern, out.Matches, out.Limited, out.Err())
	return out, nil
}

func (s *Searcher) worker(ctx context.Context, thread int, r lineRange, b *budget, tracker *progress.Tracker) error {
	fail := func(next uint64, err error) error {
		s.log.Warn("search worker stopped",
			"thread", thread,
			"line", next,
			"error", err,
		)
		return &lxerrors.ThreadError{Thread: thread, From: r.from, To: r.to, Next: next, Underlying: err}
	}

	total := float64(r.to - r.from)
	for next := r.from; next < r.to; {
		if b.stop.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		count := min(uint64(s.cfg.LineBuffer), r.to-next)
		payload, err := s.index.Lookup(next, count)
		if err != nil {
			return fail(next, err)
		}

		sc := newLineScanner(payload)
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			n := next + uint64(sc.Index())
			offsets, lengths, err := s.pattern.Match(line)
			if err != nil {
				return fail(n, err)
			}
			if offsets == nil {
				continue
			}
			if !b.emit(Result{
				LineNumber: n + 1,
				Text:       string(line),
				Offsets:    offsets,
				Lengths:    lengths,
			}) {
				return nil
			}
		}

		next += count
		tracker.Set(thread, float64(next-r.from)/total)
		debug.LogSearch("worker %d at line %d of [%d, %d)\n", thread, next, r.from, r.to)
	}
	return nil
}

// IsPatternError reports whether err came from compiling the pattern.
func IsPatternError(err error) bool {
	return errors.Is(err, lxerrors.ErrInvalidPattern)
}
