package lookup

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/debug"
	"github.com/standardbeagle/lineidx/internal/marks"
	"github.com/standardbeagle/lineidx/pkg/pathutil"
)

// File persists the table as a flat record file. Records are written
// through a buffer during construction and read back with positional reads,
// so concurrent Record calls need no lock. The file is removed on Close.
type File struct {
	appender
	path   string
	f      *os.File
	w      *bufio.Writer
	closed atomic.Bool
}

// NewFile creates (or truncates) the record file at path, creating parent
// directories as needed, and writes the end sentinel for a target file of
// size end.
func NewFile(path string, end uint64) (*File, error) {
	if err := pathutil.EnsureParent(path); err != nil {
		return nil, lxerrors.NewFileError("create", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, lxerrors.NewFileError("create", path, err)
	}

	lf := &File{
		path: path,
		f:    f,
		w:    bufio.NewWriterSize(f, 64*1024),
	}
	if err := lf.begin(end, lf.put); err != nil {
		_ = f.Close()
		return nil, err
	}
	debug.LogLookup("created %s for %d bytes\n", path, end)
	return lf, nil
}

func (lf *File) put(off uint64) error {
	var buf [RecordSize]byte
	binary.NativeEndian.PutUint64(buf[:], off)
	if _, err := lf.w.Write(buf[:]); err != nil {
		return lxerrors.NewFileError("write", lf.path, err).AtOffset(int64(lf.records * RecordSize))
	}
	return nil
}

// AppendChunk implements Builder. Buffered records are flushed before it
// returns, so every appended record is visible to Record.
func (lf *File) AppendChunk(chunk *marks.Chunk, final bool) error {
	if lf.closed.Load() {
		return lxerrors.ErrLookupClosed
	}
	before := lf.records
	if err := lf.add(chunk, final, lf.put); err != nil {
		return err
	}
	if err := lf.w.Flush(); err != nil {
		return lxerrors.NewFileError("flush", lf.path, err)
	}
	debug.LogLookup("appended %d records to %s (final=%v)\n", lf.records-before, lf.path, final)
	return nil
}

// Path returns the record file location.
func (lf *File) Path() string { return lf.path }

// Len implements Lookup.
func (lf *File) Len() uint64 { return lf.records }

// Record implements Lookup.
func (lf *File) Record(slot uint64) (uint64, error) {
	if lf.closed.Load() {
		return 0, lxerrors.ErrLookupClosed
	}
	if slot >= lf.records {
		return 0, fmt.Errorf("record slot %d out of range [0, %d)", slot, lf.records)
	}
	return readRecord(lf.f, lf.path, slot)
}

// Close closes and deletes the record file.
func (lf *File) Close() error {
	if lf.closed.Swap(true) {
		return nil
	}
	closeErr := lf.f.Close()
	if err := os.Remove(lf.path); err != nil && !os.IsNotExist(err) {
		return lxerrors.NewFileError("remove", lf.path, err)
	}
	if closeErr != nil {
		return lxerrors.NewFileError("close", lf.path, closeErr)
	}
	return nil
}

func readRecord(r io.ReaderAt, path string, slot uint64) (uint64, error) {
	var buf [RecordSize]byte
	off := int64(slot * RecordSize)
	if _, err := r.ReadAt(buf[:], off); err != nil {
		return 0, lxerrors.NewFileError("read", path, err).AtOffset(off)
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}
