package marks

// Folder folds continuation marks into the line-start mark that follows
// them in chain order. Feed it marks head to tail.
type Folder struct {
	pending uint64
}

// Fold returns the resolved offset and true for a line-start mark, or
// accumulates a continuation mark and returns false.
func (f *Folder) Fold(m OffsetMark) (uint64, bool) {
	if !m.IsLineStart {
		f.pending += m.Offset
		return 0, false
	}
	off := f.pending + m.Offset
	f.pending = 0
	return off, true
}

// Resolve reads a descending chain and returns the ascending line starts it
// describes, with the implicit first line start 0 in front:
//
//	{+8} -> {6} -> {+2} -> {1}   =>   [0, 3, 14]
//
// The chain is left intact.
func Resolve(head *Node) []uint64 {
	var folder Folder
	desc := make([]uint64, 0, 16)
	for cur := head; cur != nil; cur = cur.next {
		if off, ok := folder.Fold(cur.Mark); ok {
			desc = append(desc, off)
		}
	}

	out := make([]uint64, 0, len(desc)+1)
	out = append(out, 0)
	for i := len(desc) - 1; i >= 0; i-- {
		out = append(out, desc[i])
	}
	return out
}
