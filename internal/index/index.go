// Package index answers line-range queries over an indexed file. An Index
// pairs a read-only handle on the target file with the lookup table built
// for it; every query costs two record reads and one positional read of
// the target, so any number of goroutines may query concurrently.
package index

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/lookup"
)

// Index is a lookup table bound to its target file. Both are released
// together by Close.
type Index struct {
	filename string
	f        *os.File
	table    lookup.Lookup
	log      *logging.Logger
	closed   atomic.Bool
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the diagnostics logger.
func WithLogger(l *logging.Logger) Option {
	return func(ix *Index) { ix.log = l }
}

// New binds an already open target file to table. The Index takes
// ownership of both.
func New(f *os.File, table lookup.Lookup, opts ...Option) *Index {
	ix := &Index{filename: f.Name(), f: f, table: table}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Open opens filename read-only and binds it to table. On failure table is
// left open for the caller.
func Open(filename string, table lookup.Lookup, opts ...Option) (*Index, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, lxerrors.NewFileError("open", filename, err)
	}
	return New(f, table, opts...), nil
}

// Filename returns the target file path.
func (ix *Index) Filename() string { return ix.filename }

// Table returns the underlying lookup table.
func (ix *Index) Table() lookup.Lookup { return ix.table }

// Lines returns the number of addressable lines. A file ending with a
// terminator has an empty last line.
func (ix *Index) Lines() uint64 { return lookup.Lines(ix.table) }

// Offset returns the byte offset at which line starts.
func (ix *Index) Offset(line uint64) (uint64, error) {
	if ix.closed.Load() {
		return 0, lxerrors.ErrLookupClosed
	}
	return lookup.Offset(ix.table, line)
}

// Line returns line n including its terminator.
func (ix *Index) Line(n uint64) ([]byte, error) {
	return ix.Lookup(n, 1)
}

// Lookup returns the raw bytes of lines [start, start+count), terminators
// included. count is clamped to the last line; a start past the last line
// yields an empty result and no error.
func (ix *Index) Lookup(start, count uint64) ([]byte, error) {
	if ix.closed.Load() {
		return nil, lxerrors.ErrLookupClosed
	}

	lines := ix.Lines()
	if start > lines {
		return nil, nil
	}
	if count > lines-start {
		ix.log.Debug("lookup count truncated",
			"file", ix.filename,
			"start", start,
			"requested", count,
			"count", lines-start,
		)
		count = lines - start
	}
	if count == 0 {
		return nil, nil
	}

	fromSlot := lookup.Slot(ix.table, start)
	toSlot := fromSlot - count

	from, err := ix.table.Record(fromSlot)
	if err != nil {
		return nil, fmt.Errorf("lookup record %d: %w", fromSlot, err)
	}
	to, err := ix.table.Record(toSlot)
	if err != nil {
		return nil, fmt.Errorf("lookup record %d: %w", toSlot, err)
	}
	if from > to {
		return nil, lxerrors.NewCorruptionError("lookup", toSlot, from, to)
	}

	buf := make([]byte, to-from)
	n, err := ix.f.ReadAt(buf, int64(from))
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, lxerrors.NewFileError("read", ix.filename, err).AtOffset(int64(from))
}

// Close releases the lookup table (deleting a file-backed one) and the
// target file handle.
func (ix *Index) Close() error {
	if ix.closed.Swap(true) {
		return nil
	}
	return lxerrors.NewMultiError([]error{
		ix.table.Close(),
		ix.f.Close(),
	})
}
