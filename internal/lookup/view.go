package lookup

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
)

// View is a read-only Lookup over an existing record file. Closing a View
// leaves the file in place.
type View struct {
	path   string
	f      *os.File
	data   []byte
	unmap  func([]byte) error
	len    uint64
	closed atomic.Bool
}

// Open maps the record file at path for reading. Where mapping is not
// available records are read with positional reads instead.
func Open(path string) (*View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, lxerrors.NewFileError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, lxerrors.NewFileError("stat", path, err)
	}

	size := info.Size()
	if size%RecordSize != 0 || size < 2*RecordSize {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, not a record file", lxerrors.ErrCorruptIndex, path, size)
	}

	v := &View{path: path, f: f, len: uint64(size / RecordSize)}
	data, unmap, err := mapFile(f, int(size))
	if err != nil {
		_ = f.Close()
		return nil, lxerrors.NewFileError("mmap", path, err)
	}
	v.data, v.unmap = data, unmap
	return v, nil
}

// Path returns the record file location.
func (v *View) Path() string { return v.path }

// Mapped reports whether records are served from a memory mapping.
func (v *View) Mapped() bool { return v.data != nil }

// Len implements Lookup.
func (v *View) Len() uint64 { return v.len }

// Record implements Lookup.
func (v *View) Record(slot uint64) (uint64, error) {
	if v.closed.Load() {
		return 0, lxerrors.ErrLookupClosed
	}
	if slot >= v.len {
		return 0, fmt.Errorf("record slot %d out of range [0, %d)", slot, v.len)
	}
	if v.data != nil {
		off := slot * RecordSize
		return binary.NativeEndian.Uint64(v.data[off : off+RecordSize]), nil
	}
	return readRecord(v.f, v.path, slot)
}

// Close unmaps and closes the file.
func (v *View) Close() error {
	if v.closed.Swap(true) {
		return nil
	}
	var unmapErr error
	if v.unmap != nil && v.data != nil {
		unmapErr = v.unmap(v.data)
		v.data = nil
	}
	if err := v.f.Close(); err != nil {
		return lxerrors.NewFileError("close", v.path, err)
	}
	if unmapErr != nil {
		return lxerrors.NewFileError("munmap", v.path, unmapErr)
	}
	return nil
}
