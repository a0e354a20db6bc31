package lookup

import (
	"bufio"
	"encoding/binary"
	"os"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/pkg/pathutil"
)

// Save writes l to path in the File record format. Unlike a File, the
// result outlives the process and can be read back with Open.
func Save(l Lookup, path string) error {
	if err := pathutil.EnsureParent(path); err != nil {
		return lxerrors.NewFileError("create", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return lxerrors.NewFileError("create", path, err)
	}

	w := bufio.NewWriterSize(f, 64*1024)
	var buf [RecordSize]byte
	for slot := uint64(0); slot < l.Len(); slot++ {
		v, err := l.Record(slot)
		if err != nil {
			_ = f.Close()
			return err
		}
		binary.NativeEndian.PutUint64(buf[:], v)
		if _, err := w.Write(buf[:]); err != nil {
			_ = f.Close()
			return lxerrors.NewFileError("write", path, err).AtOffset(int64(slot * RecordSize))
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return lxerrors.NewFileError("flush", path, err)
	}
	if err := f.Close(); err != nil {
		return lxerrors.NewFileError("close", path, err)
	}
	return nil
}
