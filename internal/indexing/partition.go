// Context: Byte-range partitioning for the three levels of an indexing run:
// iterations, threads within an iteration, scan tasks within a thread.
// External deps: standard library only; pure arithmetic.
package indexing

// Iteration is a half-open byte range [From, To) of the target file.
type Iteration struct {
	Seq  int
	From uint64
	To   uint64
}

// Len returns the iteration's byte count.
func (it Iteration) Len() uint64 { return it.To - it.From }

// Range is an inclusive byte range [From, To] assigned to one thread.
type Range struct {
	From uint64
	To   uint64
}

// ChunkRange is the slice of the file one scan task reads.
type ChunkRange struct {
	From  uint64
	Count uint64
}

// IterationRanges splits size bytes into iterations of at most limit bytes.
// An empty file is a single empty iteration.
func IterationRanges(size, limit uint64) []Iteration {
	if limit == 0 {
		limit = size
	}
	if size == 0 {
		return []Iteration{{}}
	}
	n := (size + limit - 1) / limit
	out := make([]Iteration, 0, n)
	for k := uint64(0); k < n; k++ {
		out = append(out, Iteration{
			Seq:  int(k),
			From: k * limit,
			To:   min((k+1)*limit, size),
		})
	}
	return out
}

// ThreadRanges splits the positions 0..span into at most threads inclusive
// ranges offset by base. threads is clamped to the number of buffers the
// span holds, each range is floor(span/threads)+1 positions wide, and the
// last one is cut at span.
//
//	ThreadRanges(2, 2000, 1000, 0) → [0,1000] [1001,2000]
//	ThreadRanges(3, 1000, 8000, 0) → [0,1000]
func ThreadRanges(threads int, span, bufferSize, base uint64) []Range {
	if bufferSize == 0 {
		bufferSize = 1
	}
	usable := max((span+bufferSize-1)/bufferSize, 1)
	if threads < 1 {
		threads = 1
	}
	if uint64(threads) > usable {
		threads = int(usable)
	}

	step := span/uint64(threads) + 1
	out := make([]Range, 0, threads)
	for i := uint64(0); i < uint64(threads); i++ {
		from := i * step
		if from > span {
			break
		}
		out = append(out, Range{
			From: base + from,
			To:   base + min(from+step-1, span),
		})
	}
	return out
}

// ChunkRanges splits the half-open range [from, to) into scan tasks of
// bufferSize bytes, the last one shorter, and clamps concurrency to the
// task count. An empty range still yields one zero-length task.
func ChunkRanges(concurrency int, bufferSize, from, to uint64) ([]ChunkRange, int) {
	if to <= from {
		return []ChunkRange{{From: from}}, 1
	}
	if bufferSize == 0 {
		bufferSize = to - from
	}

	total := to - from
	n := (total + bufferSize - 1) / bufferSize
	out := make([]ChunkRange, 0, n)
	for pos := from; pos < to; pos += bufferSize {
		out = append(out, ChunkRange{From: pos, Count: min(bufferSize, to-pos)})
	}

	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(out) {
		concurrency = len(out)
	}
	return out, concurrency
}

// span is a half-open byte range handed to one thread.
type span struct {
	from, to uint64
}

// threadSpans converts an iteration's inclusive thread ranges to half-open
// spans.
func threadSpans(it Iteration, threads int, bufferSize uint64) []span {
	if it.Len() == 0 {
		return []span{{from: it.From, to: it.From}}
	}
	ranges := ThreadRanges(threads, it.Len()-1, bufferSize, it.From)
	out := make([]span, len(ranges))
	for i, r := range ranges {
		out[i] = span{from: r.From, to: r.To + 1}
	}
	return out
}
