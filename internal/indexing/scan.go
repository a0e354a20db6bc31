// Context: A single scan task: one positional read, one pass over the
// buffer, one chunk of line-start marks.
// External deps: standard library bytes/io; internal marks.
package indexing

import (
	"bytes"
	"errors"
	"io"
	"sync"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/marks"
)

// Terminator is the single-byte line terminator.
const Terminator = '\n'

// bufferPool hands out scan buffers of one fixed size.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{size: size}
	bp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

func (bp *bufferPool) get() *[]byte  { return bp.pool.Get().(*[]byte) }
func (bp *bufferPool) put(b *[]byte) { bp.pool.Put(b) }

// scanChunk reads cr from r and returns a chunk holding one line-start mark
// per terminator, the offset just past it. Marks are prepended, so the
// chain is in descending order.
func scanChunk(r io.ReaderAt, path string, cr ChunkRange, seq uint64, pool *bufferPool) (*marks.Chunk, error) {
	var chain marks.Chain
	if cr.Count == 0 {
		return chain.Chunk(seq), nil
	}

	bp := pool.get()
	defer pool.put(bp)
	buf := (*bp)[:cr.Count]

	n, err := r.ReadAt(buf, int64(cr.From))
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, lxerrors.NewFileError("read", path, err).AtOffset(int64(cr.From))
	}

	for p := 0; ; {
		i := bytes.IndexByte(buf[p:], Terminator)
		if i < 0 {
			break
		}
		p += i + 1
		chain.Prepend(marks.LineStart(cr.From + uint64(p)))
	}
	return chain.Chunk(seq), nil
}
