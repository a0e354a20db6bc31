package marks

// Chain is a prependable list of marks built by a single scan task.
// The newest discovery sits at the head, so a task that scans its buffer
// front to back produces a chain in descending offset order.
type Chain struct {
	head  *Node
	tail  *Node
	lines uint32
}

// Prepend pushes a mark onto the head of the chain in O(1).
func (c *Chain) Prepend(m OffsetMark) {
	n := NewNode(m)
	if c.head == nil {
		c.tail = n
	} else {
		n.next = c.head
	}
	c.head = n
	if m.IsLineStart {
		c.lines++
	}
}

// Head returns the newest node.
func (c *Chain) Head() *Node { return c.head }

// Tail returns the oldest node.
func (c *Chain) Tail() *Node { return c.tail }

// Lines returns the number of line-start marks prepended so far.
func (c *Chain) Lines() uint32 { return c.lines }

// Empty reports whether nothing was prepended.
func (c *Chain) Empty() bool { return c.head == nil }

// Chunk hands the chain over to a new Chunk tagged with seq.
// The chain is reset and can be reused.
func (c *Chain) Chunk(seq uint64) *Chunk {
	ch := NewChunk(seq, c.head, c.tail)
	ch.LineCount = c.lines
	c.head, c.tail, c.lines = nil, nil, 0
	return ch
}

// Len walks the chain from head and counts nodes. Test and debug use only.
func Len(head *Node) int {
	n := 0
	for cur := head; cur != nil; cur = cur.next {
		n++
	}
	return n
}

// Drain visits the chain from head and unlinks every node once fn has seen
// it, so a persisted prefix can be collected while the rest is still being
// written. It stops at the first error.
func Drain(head *Node, fn func(OffsetMark) error) error {
	for cur := head; cur != nil; {
		if err := fn(cur.Mark); err != nil {
			return err
		}
		next := cur.next
		cur.next = nil
		cur = next
	}
	return nil
}
