// Context: Indexer orchestration. Iterations run one after another from the
// end of the file to the start; inside an iteration one goroutine per thread
// range schedules bounded scan tasks and reduces their chunks in sequence
// order, and the per-thread chunks are reduced again before being appended
// to the lookup table.
// External deps: golang.org/x/sync/errgroup for bounded task groups.
package indexing

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lineidx/internal/debug"
	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/index"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/lookup"
	"github.com/standardbeagle/lineidx/internal/marks"
	"github.com/standardbeagle/lineidx/internal/progress"
	"github.com/standardbeagle/lineidx/pkg/pathutil"
)

// Indexer builds an Index for one file.
type Indexer struct {
	opts     Options
	log      *logging.Logger
	reporter *progress.Reporter
	buffers  *bufferPool
}

// New validates opts and returns an Indexer.
func New(opts Options) (*Indexer, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	return &Indexer{
		opts:     opts,
		log:      opts.Logger.With("file", opts.Filename),
		reporter: progress.NewReporter(opts.OnProgress, opts.ProgressInterval),
		buffers:  newBufferPool(opts.BufferSize),
	}, nil
}

// Build is New followed by Run.
func Build(ctx context.Context, opts Options) (*index.Index, error) {
	ix, err := New(opts)
	if err != nil {
		return nil, err
	}
	return ix.Run(ctx)
}

// Options returns the normalized options.
func (ix *Indexer) Options() Options { return ix.opts }

// Run indexes the file. Any failure aborts the run and returns no index;
// a lookup file created before the failure is removed. ctx is checked
// between iterations and stops the remaining scan tasks of a failing
// iteration.
func (ix *Indexer) Run(ctx context.Context) (*index.Index, error) {
	path := ix.opts.Filename

	f, err := os.Open(path)
	if err != nil {
		return nil, ix.fail("open", lxerrors.NewFileError("open", path, err))
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ix.fail("stat", lxerrors.NewFileError("stat", path, err))
	}
	size := uint64(info.Size())
	adviseSequential(f)

	iters := IterationRanges(size, uint64(ix.opts.MaxBytesPerIteration))
	ix.log.Debug("indexing started",
		"bytes", size,
		"iterations", len(iters),
		"threads", ix.opts.Threads,
		"concurrency", ix.opts.Concurrency,
		"buffer_size", ix.opts.BufferSize,
	)

	var table lookup.Builder
	abort := func(op string, err error) (*index.Index, error) {
		if table != nil {
			_ = table.Close()
		}
		_ = f.Close()
		return nil, ix.fail(op, err)
	}

	for k := len(iters) - 1; k >= 0; k-- {
		if err := ctx.Err(); err != nil {
			return abort("iterate", err)
		}

		done := len(iters) - 1 - k
		chunk, err := ix.runIteration(ctx, f, iters[k], done, len(iters))
		if err != nil {
			return abort("scan", err)
		}

		if table == nil {
			table, err = ix.newTable(size)
			if err != nil {
				return abort("create lookup", err)
			}
		}
		if err := table.AppendChunk(chunk, k == 0); err != nil {
			return abort("append", err)
		}

		ix.reporter.Report(float64(done+1) / float64(len(iters)))
		debug.LogIndexing("iteration %d/%d appended (%d lines)\n", done+1, len(iters), chunk.LineCount)
	}

	adviseRandom(f)
	ix.reporter.Done()
	ix.log.LogIndexRun(path, lookup.Lines(table), nil)
	return index.New(f, table, index.WithLogger(ix.opts.Logger)), nil
}

func (ix *Indexer) newTable(size uint64) (lookup.Builder, error) {
	if ix.opts.Backing == BackingMemory {
		return lookup.NewMemory(size), nil
	}
	path := pathutil.LookupPath(ix.opts.LookupDir, ix.opts.Filename)
	ix.log.Debug("lookup file", "path", path)
	return lookup.NewFile(path, size)
}

func (ix *Indexer) fail(op string, err error) error {
	ierr := lxerrors.NewIndexingError(op, err).WithFile(ix.opts.Filename)
	ix.log.LogIndexRun(ix.opts.Filename, 0, ierr)
	return ierr
}

// runIteration scans one iteration with one goroutine per thread range and
// reduces the thread chunks in range order.
func (ix *Indexer) runIteration(ctx context.Context, f *os.File, it Iteration, done, total int) (*marks.Chunk, error) {
	spans := threadSpans(it, ix.opts.Threads, uint64(ix.opts.BufferSize))

	tracker := progress.NewTracker(len(spans))
	stop := tracker.Forward(ix.reporter, func(avg float64) float64 {
		return (float64(done) + avg) / float64(total)
	})
	defer stop()

	results := make([]*marks.Chunk, len(spans))
	g, gctx := errgroup.WithContext(ctx)
	for i, sp := range spans {
		g.Go(func() error {
			c, err := ix.runThread(gctx, f, i, sp, tracker)
			if err != nil {
				return fmt.Errorf("thread %d [%d, %d): %w", i, sp.from, sp.to, err)
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix.log.Debug("iteration scanned",
		"iteration", it.Seq,
		"from", it.From,
		"to", it.To,
		"threads", len(spans),
	)
	return marks.Reduce(results, uint64(it.Seq)), nil
}

// runThread schedules the scan tasks of one thread range, at most
// Concurrency at a time, and collects their chunks from a completion
// channel in whatever order they finish.
func (ix *Indexer) runThread(ctx context.Context, f *os.File, thread int, sp span, tracker *progress.Tracker) (*marks.Chunk, error) {
	tasks, concurrency := ChunkRanges(ix.opts.Concurrency, uint64(ix.opts.BufferSize), sp.from, sp.to)

	completed := make(chan *marks.Chunk, len(tasks))
	finished := make(chan error, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	go func() {
		for seq, task := range tasks {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				c, err := scanChunk(f, ix.opts.Filename, task, uint64(seq), ix.buffers)
				if err != nil {
					return err
				}
				completed <- c
				return nil
			})
		}
		finished <- g.Wait()
		close(completed)
	}()

	chunks := make([]*marks.Chunk, len(tasks))
	received := 0
	for c := range completed {
		chunks[c.Seq] = c
		received++
		tracker.Set(thread, float64(received)/float64(len(tasks)))
		ix.log.Fine("chunk scanned",
			"thread", thread,
			"seq", c.Seq,
			"lines", c.LineCount,
		)
	}
	if err := <-finished; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return marks.Reduce(chunks, uint64(thread)), nil
}
