// Package lookup stores the line-start table an Index reads from.
//
// Both variants share one record layout. With n discovered line starts
// s1 < s2 < ... < sn in a file of size z:
//
//	slot:    0   1    2       ...  n    n+1
//	record:  z   sn   s(n-1)  ...  s1   0
//
// so len = n+2, slot len-1-k holds the start of line k, and slot 0 is the
// end of the last line. A file that ends with a terminator has sn == z and
// its last addressable line is empty. Records are 8-byte native-endian
// unsigned integers, which is also the on-disk format of a File.
package lookup

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/marks"
)

// RecordSize is the width of one record in bytes.
const RecordSize = 8

// Lookup is a read-only view of a line-start table. Record may be called
// from many goroutines at once.
type Lookup interface {
	// Len returns the number of records.
	Len() uint64
	// Record returns the value stored at slot.
	Record(slot uint64) (uint64, error)
	Close() error
}

// Builder is a Lookup under construction. Chunks are appended in
// descending offset order, the chunk covering the end of the file first.
type Builder interface {
	Lookup
	// AppendChunk consumes chunk's chain and writes one record per line
	// start. final writes the trailing 0 and seals the table.
	AppendChunk(chunk *marks.Chunk, final bool) error
}

// appender holds the construction state both variants share: the ordering
// check and continuation folding.
type appender struct {
	records uint64
	last    uint64
	folder  marks.Folder
	sealed  bool
}

func (a *appender) begin(end uint64, put func(uint64) error) error {
	if err := put(end); err != nil {
		return err
	}
	a.records = 1
	a.last = end
	return nil
}

func (a *appender) add(chunk *marks.Chunk, final bool, put func(uint64) error) error {
	if a.sealed {
		return fmt.Errorf("append to sealed lookup: %w", lxerrors.ErrCorruptIndex)
	}

	head, err := chunk.Take()
	if err != nil {
		return err
	}

	write := func(off uint64) error {
		if off > a.last {
			return lxerrors.NewCorruptionError("append", a.records, a.last, off)
		}
		if err := put(off); err != nil {
			return err
		}
		a.last = off
		a.records++
		return nil
	}

	err = marks.Drain(head, func(m marks.OffsetMark) error {
		off, ok := a.folder.Fold(m)
		if !ok {
			return nil
		}
		return write(off)
	})
	if err != nil {
		return err
	}

	if final {
		if err := write(0); err != nil {
			return err
		}
		a.sealed = true
	}
	return nil
}

// Slot returns the record slot holding the start of line.
func Slot(l Lookup, line uint64) uint64 {
	return l.Len() - 1 - line
}

// Lines returns the number of addressable lines, len-1.
func Lines(l Lookup) uint64 {
	if l.Len() == 0 {
		return 0
	}
	return l.Len() - 1
}

// Offset returns the start of line, or the end of the file for
// line == Lines(l).
func Offset(l Lookup, line uint64) (uint64, error) {
	if line > Lines(l) {
		return 0, fmt.Errorf("line %d out of range [0, %d]", line, Lines(l))
	}
	return l.Record(Slot(l, line))
}

// Verify checks the layout invariants: at least two records, a trailing 0,
// and non-increasing records from slot 0 to len-1.
func Verify(l Lookup) error {
	n := l.Len()
	if n < 2 {
		return fmt.Errorf("%w: %d records, want at least 2", lxerrors.ErrCorruptIndex, n)
	}

	prev, err := l.Record(0)
	if err != nil {
		return err
	}
	for slot := uint64(1); slot < n; slot++ {
		cur, err := l.Record(slot)
		if err != nil {
			return err
		}
		if cur > prev {
			return lxerrors.NewCorruptionError("verify", slot, prev, cur)
		}
		prev = cur
	}
	if prev != 0 {
		return lxerrors.NewCorruptionError("verify", n-1, 0, prev)
	}
	return nil
}

// LineStarts returns the start offset of every addressable line in line
// order, followed by the end of the file.
func LineStarts(l Lookup) ([]uint64, error) {
	n := l.Len()
	out := make([]uint64, 0, n)
	for line := uint64(0); line < n; line++ {
		off, err := l.Record(n - 1 - line)
		if err != nil {
			return nil, err
		}
		out = append(out, off)
	}
	return out, nil
}

// Digest fingerprints the offset sequence in line order. Two lookups with
// the same digest describe the same lines regardless of how they were
// built.
func Digest(l Lookup) (uint64, error) {
	h := xxhash.New()
	var buf [RecordSize]byte
	n := l.Len()
	for line := uint64(0); line < n; line++ {
		off, err := l.Record(n - 1 - line)
		if err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint64(buf[:], off)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64(), nil
}
