package lookup

import (
	"fmt"
	"sync/atomic"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/marks"
)

// Memory keeps the table in a slice.
type Memory struct {
	appender
	records []uint64
	closed  atomic.Bool
}

// NewMemory starts an in-memory table for a file of size end.
func NewMemory(end uint64) *Memory {
	m := &Memory{records: make([]uint64, 0, 64)}
	_ = m.begin(end, m.put)
	return m
}

// FromChunk builds a complete table from a single chunk, sized up front
// from the chunk's line count.
func FromChunk(chunk *marks.Chunk, end uint64) (*Memory, error) {
	m := &Memory{records: make([]uint64, 0, uint64(chunk.LineCount)+2)}
	_ = m.begin(end, m.put)
	if err := m.AppendChunk(chunk, true); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) put(off uint64) error {
	m.records = append(m.records, off)
	return nil
}

// AppendChunk implements Builder.
func (m *Memory) AppendChunk(chunk *marks.Chunk, final bool) error {
	if m.closed.Load() {
		return lxerrors.ErrLookupClosed
	}
	return m.add(chunk, final, m.put)
}

// Len implements Lookup.
func (m *Memory) Len() uint64 { return uint64(len(m.records)) }

// Record implements Lookup.
func (m *Memory) Record(slot uint64) (uint64, error) {
	if m.closed.Load() {
		return 0, lxerrors.ErrLookupClosed
	}
	if slot >= uint64(len(m.records)) {
		return 0, fmt.Errorf("record slot %d out of range [0, %d)", slot, len(m.records))
	}
	return m.records[slot], nil
}

// Close releases the table.
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.records = nil
	return nil
}
