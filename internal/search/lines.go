package search

import "bytes"

// lineScanner iterates the lines of a batch returned by Index.Lookup
// without allocating. The terminator is stripped; nothing else is.
//
// Usage:
//
//	sc := newLineScanner(payload)
//	for sc.Scan() {
//	    line := sc.Bytes() // valid until payload is released
//	    idx := sc.Index()  // 0-based position within the batch
//	}
type lineScanner struct {
	data  []byte
	start int
	end   int
	pos   int
	index int
}

func newLineScanner(data []byte) *lineScanner {
	return &lineScanner{data: data, index: -1}
}

// Scan advances to the next line. Returns false when done.
func (ls *lineScanner) Scan() bool {
	if ls.pos >= len(ls.data) {
		return false
	}

	ls.start = ls.pos
	ls.index++

	idx := bytes.IndexByte(ls.data[ls.pos:], '\n')
	if idx < 0 {
		// last line of the file, no terminator
		ls.end = len(ls.data)
		ls.pos = len(ls.data)
	} else {
		ls.end = ls.pos + idx
		ls.pos = ls.pos + idx + 1
	}
	return true
}

// Bytes returns the current line (zero-copy).
func (ls *lineScanner) Bytes() []byte {
	return ls.data[ls.start:ls.end]
}

// Index returns the current line's position within the batch.
func (ls *lineScanner) Index() int {
	return ls.index
}
