package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadRanges(t *testing.T) {
	tests := []struct {
		name       string
		threads    int
		span       uint64
		bufferSize uint64
		want       []Range
	}{
		{
			name:    "two threads over 2000",
			threads: 2, span: 2000, bufferSize: 1000,
			want: []Range{{0, 1000}, {1001, 2000}},
		},
		{
			name:    "two threads over 1800",
			threads: 2, span: 1800, bufferSize: 1000,
			want: []Range{{0, 900}, {901, 1800}},
		},
		{
			name:    "three threads with remainder on the last",
			threads: 3, span: 1000, bufferSize: 100,
			want: []Range{{0, 333}, {334, 667}, {668, 1000}},
		},
		{
			name:    "threads clamped to buffers",
			threads: 3, span: 2000, bufferSize: 1500,
			want: []Range{{0, 1000}, {1001, 2000}},
		},
		{
			name:    "buffer larger than span",
			threads: 3, span: 1000, bufferSize: 8000,
			want: []Range{{0, 1000}},
		},
		{
			name:    "single position",
			threads: 4, span: 0, bufferSize: 10,
			want: []Range{{0, 0}},
		},
		{
			name:    "ranges past span dropped",
			threads: 5, span: 10, bufferSize: 2,
			want: []Range{{0, 2}, {3, 5}, {6, 8}, {9, 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ThreadRanges(tt.threads, tt.span, tt.bufferSize, 0))
		})
	}
}

func TestThreadRanges_Base(t *testing.T) {
	got := ThreadRanges(2, 2000, 1000, 5000)
	assert.Equal(t, []Range{{5000, 6000}, {6001, 7000}}, got)
}

// Every position 0..span is covered exactly once, contiguously, and the
// thread count never exceeds the number of buffers.
func TestThreadRanges_Coverage(t *testing.T) {
	for _, span := range []uint64{0, 1, 7, 99, 100, 101, 999, 4096, 12345} {
		for _, buf := range []uint64{1, 3, 64, 100, 1000, 1 << 20} {
			for threads := 1; threads <= 9; threads++ {
				got := ThreadRanges(threads, span, buf, 0)
				require.NotEmpty(t, got)
				assert.LessOrEqual(t, len(got), threads)
				assert.LessOrEqual(t, uint64(len(got)), max((span+buf-1)/buf, 1))

				next := uint64(0)
				for _, r := range got {
					require.Equal(t, next, r.From, "span=%d buf=%d threads=%d", span, buf, threads)
					require.LessOrEqual(t, r.From, r.To)
					next = r.To + 1
				}
				require.Equal(t, span+1, next, "span=%d buf=%d threads=%d", span, buf, threads)
			}
		}
	}
}

func TestChunkRanges(t *testing.T) {
	tests := []struct {
		name            string
		concurrency     int
		bufferSize      uint64
		from, to        uint64
		wantCount       int
		wantFirst       ChunkRange
		wantLast        ChunkRange
		wantConcurrency int
	}{
		{
			name:        "two full buffers",
			concurrency: 2, bufferSize: 100, from: 0, to: 200,
			wantCount: 2, wantFirst: ChunkRange{0, 100}, wantLast: ChunkRange{100, 100},
			wantConcurrency: 2,
		},
		{
			name:        "short last buffer",
			concurrency: 3, bufferSize: 100, from: 0, to: 1999,
			wantCount: 20, wantFirst: ChunkRange{0, 100}, wantLast: ChunkRange{1900, 99},
			wantConcurrency: 3,
		},
		{
			name:        "concurrency below chunk count",
			concurrency: 3, bufferSize: 500, from: 0, to: 2000,
			wantCount: 4, wantFirst: ChunkRange{0, 500}, wantLast: ChunkRange{1500, 500},
			wantConcurrency: 3,
		},
		{
			name:        "concurrency clamped to chunk count",
			concurrency: 8, bufferSize: 500, from: 1000, to: 1700,
			wantCount: 2, wantFirst: ChunkRange{1000, 500}, wantLast: ChunkRange{1500, 200},
			wantConcurrency: 2,
		},
		{
			name:        "empty range forces one task",
			concurrency: 4, bufferSize: 100, from: 300, to: 300,
			wantCount: 1, wantFirst: ChunkRange{300, 0}, wantLast: ChunkRange{300, 0},
			wantConcurrency: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conc := ChunkRanges(tt.concurrency, tt.bufferSize, tt.from, tt.to)
			require.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantFirst, got[0])
			assert.Equal(t, tt.wantLast, got[len(got)-1])
			assert.Equal(t, tt.wantConcurrency, conc)

			if tt.to > tt.from {
				next := tt.from
				for _, c := range got {
					assert.Equal(t, next, c.From)
					next += c.Count
				}
				assert.Equal(t, tt.to, next)
			}
		})
	}
}

func TestIterationRanges(t *testing.T) {
	assert.Equal(t, []Iteration{{}}, IterationRanges(0, 100))
	assert.Equal(t, []Iteration{{Seq: 0, From: 0, To: 50}}, IterationRanges(50, 100))
	assert.Equal(t, []Iteration{
		{Seq: 0, From: 0, To: 100},
		{Seq: 1, From: 100, To: 200},
		{Seq: 2, From: 200, To: 250},
	}, IterationRanges(250, 100))
	assert.Equal(t, []Iteration{{Seq: 0, From: 0, To: 250}}, IterationRanges(250, 0))
}

func TestThreadSpans(t *testing.T) {
	it := Iteration{Seq: 1, From: 1000, To: 3001}
	got := threadSpans(it, 2, 1000)
	assert.Equal(t, []span{{1000, 2001}, {2001, 3001}}, got)

	assert.Equal(t, []span{{500, 500}}, threadSpans(Iteration{From: 500, To: 500}, 4, 10))
}
