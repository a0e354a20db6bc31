// Package marks holds the building blocks the indexer uses to collect
// line-start offsets concurrently: offset marks, reverse-built mark chains,
// and the chunks that let chains from different scan tasks be spliced
// together without walking them.
package marks

import "fmt"

// OffsetMark is a single discovered byte position in the target file.
//
// A mark with IsLineStart set records the offset immediately after a line
// terminator. A continuation mark (IsLineStart false) is only bookkeeping:
// its offset is added to the next line-start mark when the chain is
// resolved, and it never becomes a stored line offset.
type OffsetMark struct {
	IsLineStart bool
	Offset      uint64
}

// LineStart returns a mark for a discovered line boundary.
func LineStart(offset uint64) OffsetMark {
	return OffsetMark{IsLineStart: true, Offset: offset}
}

// Continuation returns a continuation mark carrying a partial offset.
func Continuation(offset uint64) OffsetMark {
	return OffsetMark{IsLineStart: false, Offset: offset}
}

func (m OffsetMark) String() string {
	if m.IsLineStart {
		return fmt.Sprintf("{%d}", m.Offset)
	}
	return fmt.Sprintf("{+%d}", m.Offset)
}

// Node owns one mark and the link to the next node of its chain.
// A node never has more than one incoming link.
type Node struct {
	Mark OffsetMark
	next *Node
}

// NewNode wraps a mark in an unlinked node.
func NewNode(m OffsetMark) *Node {
	return &Node{Mark: m}
}

// Next returns the following node, or nil at the end of the chain.
func (n *Node) Next() *Node {
	if n == nil {
		return nil
	}
	return n.next
}

// Splice links tail to head in O(1). tail must be the last node of its chain.
func Splice(tail, head *Node) {
	tail.next = head
}
