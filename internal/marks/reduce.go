package marks

// Reduce merges chunks ordered by Seq into one chunk labelled seq.
//
// Every scan task produces a descending chain, so a chunk with a higher
// Seq covers later bytes and must come first in the result:
//
//	[{c -> b -> a, tail a}, {f -> e -> d, tail d}, {i -> h -> g, tail g}]
//	=> {i -> h -> g -> f -> e -> d -> c -> b -> a, tail a}
//
// Empty chunks are skipped. Each non-empty chunk is spliced in front of the
// running head through its own tail, so the cost is O(len(chunks)) and no
// chain interior is ever walked. The inputs are consumed.
func Reduce(chunks []*Chunk, seq uint64) *Chunk {
	if len(chunks) == 1 && chunks[0] != nil {
		only := chunks[0]
		only.Seq = seq
		return only
	}

	result := &Chunk{Seq: seq, Empty: true}
	for _, c := range chunks {
		if c == nil || c.Empty || c.Head == nil {
			continue
		}

		if result.Head == nil {
			result.Tail = c.Tail
		} else {
			Splice(c.Tail, result.Head)
		}
		result.Head = c.Head
		result.LineCount += c.LineCount
		result.Empty = false

		c.Head, c.Tail = nil, nil
		c.consumed = true
	}
	return result
}
