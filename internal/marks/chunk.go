package marks

import (
	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
)

// Chunk is the partial result of one scan task or one reduction.
//
// Seq is the chunk's position among its siblings and only decides reduction
// order. Head and Tail bracket the chain so a neighbour can be spliced on in
// O(1). A chunk is consumed exactly once, by the next reduction level or by
// the lookup that persists it.
type Chunk struct {
	Seq       uint64
	Head      *Node
	Tail      *Node
	LineCount uint32
	Empty     bool

	consumed bool
}

// NewChunk wraps an existing chain. A nil head makes an empty chunk.
func NewChunk(seq uint64, head, tail *Node) *Chunk {
	return &Chunk{
		Seq:   seq,
		Head:  head,
		Tail:  tail,
		Empty: head == nil,
	}
}

// Take hands the chain over to the caller and marks the chunk consumed.
func (c *Chunk) Take() (*Node, error) {
	if c.consumed {
		return nil, lxerrors.ErrChunkConsumed
	}
	head := c.Head
	c.consumed = true
	c.Head, c.Tail = nil, nil
	return head, nil
}

// Consumed reports whether Take already ran.
func (c *Chunk) Consumed() bool { return c.consumed }

// Walk visits every mark from head to tail without consuming the chunk.
// Returning false stops the walk.
func (c *Chunk) Walk(fn func(OffsetMark) bool) {
	for cur := c.Head; cur != nil; cur = cur.next {
		if !fn(cur.Mark) {
			return
		}
	}
}

// Offsets resolves the chunk's chain into ascending line starts with the
// implicit leading 0. The chunk is not consumed.
func (c *Chunk) Offsets() []uint64 {
	return Resolve(c.Head)
}
