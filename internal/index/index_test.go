package index

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/lookup"
	"github.com/standardbeagle/lineidx/internal/marks"
)

func buildIndex(t *testing.T, content string) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var c marks.Chain
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			c.Prepend(marks.LineStart(uint64(i + 1)))
		}
	}
	table, err := lookup.FromChunk(c.Chunk(0), uint64(len(content)))
	require.NoError(t, err)

	ix, err := Open(path, table)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestLookup_ThreeLines(t *testing.T) {
	ix := buildIndex(t, "I\nlike\npie\n")

	got, err := ix.Lookup(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "I\nlike\npie\n", string(got))
	assert.Len(t, got, 11)
	assert.Equal(t, uint64(4), ix.Lines())
}

func TestLookup_RoundTripEveryLine(t *testing.T) {
	lines := []string{"alpha\n", "\n", "gamma delta\n", "I\n", "like\n", "pie\n", "no terminator"}
	ix := buildIndex(t, strings.Join(lines, ""))

	require.Equal(t, uint64(len(lines)), ix.Lines())
	for k, want := range lines {
		got, err := ix.Line(uint64(k))
		require.NoError(t, err)
		assert.Equal(t, want, string(got), "line %d", k)
	}

	got, err := ix.Lookup(3, 3)
	require.NoError(t, err)
	assert.Equal(t, "I\nlike\npie\n", string(got))

	off, err := ix.Offset(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(len("alpha\n\ngamma delta\n")), off)
}

func TestLookup_Bounds(t *testing.T) {
	ix := buildIndex(t, "a\nbb\nccc\n")

	tests := []struct {
		name         string
		start, count uint64
		want         string
	}{
		{"zero count", 1, 0, ""},
		{"clamped count", 1, 100, "bb\nccc\n"},
		{"huge count does not overflow", 2, ^uint64(0), "ccc\n"},
		{"trailing empty line", 3, 1, ""},
		{"start at len-1", 4, 1, ""},
		{"start past end", 50, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.Lookup(tt.start, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestLookup_EmptyFile(t *testing.T) {
	ix := buildIndex(t, "")
	assert.Equal(t, uint64(1), ix.Lines())

	got, err := ix.Lookup(0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLookup_DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(target, []byte("abc\ndef\n"), 0o644))

	// line 1 claims to start after line 2
	var raw []byte
	for _, r := range []uint64{8, 2, 6, 0} {
		raw = binary.NativeEndian.AppendUint64(raw, r)
	}
	tablePath := filepath.Join(dir, "bad.lidx")
	require.NoError(t, os.WriteFile(tablePath, raw, 0o644))

	table, err := lookup.Open(tablePath)
	require.NoError(t, err)
	ix, err := Open(target, table)
	require.NoError(t, err)
	defer ix.Close()

	_, err = ix.Lookup(1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, lxerrors.ErrCorruptIndex)

	var fe *lxerrors.FileError
	assert.False(t, errors.As(err, &fe), "corruption is not an I/O error")
}

func TestLookup_TargetShrunk(t *testing.T) {
	ix := buildIndex(t, "one\ntwo\nthree\n")
	require.NoError(t, os.Truncate(ix.Filename(), 5))

	_, err := ix.Lookup(2, 1)
	var fe *lxerrors.FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(8), fe.Offset)
}

func TestLookup_Concurrent(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		sb.WriteString(strings.Repeat("x", i%17))
		sb.WriteByte('\n')
	}
	ix := buildIndex(t, sb.String())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := w; k < 500; k += 8 {
				got, err := ix.Line(uint64(k))
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, strings.Repeat("x", k%17)+"\n", string(got))
			}
		}(w)
	}
	wg.Wait()
}

func TestClose(t *testing.T) {
	ix := buildIndex(t, "a\n")
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())

	_, err := ix.Lookup(0, 1)
	assert.ErrorIs(t, err, lxerrors.ErrLookupClosed)
	_, err = ix.Offset(0)
	assert.ErrorIs(t, err, lxerrors.ErrLookupClosed)
}

func TestClose_RemovesLookupFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(target, []byte("a\nb\n"), 0o644))

	table, err := lookup.NewFile(filepath.Join(dir, "idx", "t.lidx"), 4)
	require.NoError(t, err)
	var c marks.Chain
	c.Prepend(marks.LineStart(2))
	c.Prepend(marks.LineStart(4))
	require.NoError(t, table.AppendChunk(c.Chunk(0), true))

	ix, err := Open(target, table)
	require.NoError(t, err)
	got, err := ix.Lookup(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(got))

	require.NoError(t, ix.Close())
	_, err = os.Stat(table.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_MissingTarget(t *testing.T) {
	table := lookup.NewMemory(0)
	defer table.Close()

	_, err := Open(filepath.Join(t.TempDir(), "missing"), table)
	var fe *lxerrors.FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, lxerrors.ErrorTypeFileNotFound, fe.Type)
}
