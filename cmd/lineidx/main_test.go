package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/testhelpers"
)

// syncBuffer lets the watch test read output while the command writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"lineidx"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestSearchCommand_Cars(t *testing.T) {
	path := testhelpers.SearchFixture(t)

	out, _, err := runCLI(t, "search", "--threads", "3", "cars", path)
	require.NoError(t, err)
	assert.Equal(t, "3:the box ate cars\n4:cars?\n9:cars\n", out)
}

func TestSearchCommand_JSONWithLimit(t *testing.T) {
	path := testhelpers.SearchFixture(t)

	out, _, err := runCLI(t, "search", "--json", "--limit", "2", "--memory", "cars", path)
	require.NoError(t, err)

	var got []fileResults
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Matches)
	assert.True(t, got[0].Limited)
	assert.Len(t, got[0].Results, 2)
	for _, r := range got[0].Results {
		assert.Equal(t, 4, r.Lengths[0])
	}
}

func TestSearchCommand_InvalidPattern(t *testing.T) {
	path := testhelpers.SearchFixture(t)

	out, _, err := runCLI(t, "search", "car(s", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, lxerrors.ErrInvalidPattern)
	assert.Empty(t, out)
}

func TestSearchCommand_GlobCount(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte("err\nok\nerr\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), []byte("ok\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("err\n"), 0o644))

	out, _, err := runCLI(t, "search", "--count", "err", filepath.Join(dir, "*.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "a.log:2"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "b.log:0"), lines[1])
}

func TestSearchCommand_PCRE(t *testing.T) {
	path := testhelpers.SearchFixture(t)

	out, _, err := runCLI(t, "search", "--engine", "pcre", "-i", `CAR(?!s)`, path)
	require.NoError(t, err)
	assert.Equal(t, "5:a car is not plural\n", out)
}

func TestSearchCommand_MissingFile(t *testing.T) {
	_, _, err := runCLI(t, "search", "x", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
}

func TestLinesCommand(t *testing.T) {
	path := testhelpers.SearchFixture(t)

	out, _, err := runCLI(t, "lines", path, "2", "3")
	require.NoError(t, err)
	assert.Equal(t, "the box ate cars\ncars?\na car is not plural\n", out)

	out, _, err = runCLI(t, "lines", "--number", path, "8", "5")
	require.NoError(t, err)
	assert.Equal(t, "     9  cars\n    10  the end\n", out)

	_, _, err = runCLI(t, "lines", path, "99")
	assert.Error(t, err)

	_, _, err = runCLI(t, "lines", path, "two")
	assert.Error(t, err)
}

func TestIndexAndInspect(t *testing.T) {
	path := testhelpers.WriteFixture(t, "words.txt", testhelpers.WordsContent(500))
	saved := filepath.Join(t.TempDir(), "words.lidx")

	out, _, err := runCLI(t, "index", "--buffer-size", "1KB", "--save", saved, path)
	require.NoError(t, err)
	assert.Contains(t, out, "lines:   501\n")
	digest := field(out, "digest:")
	require.NotEmpty(t, digest)

	out, _, err = runCLI(t, "inspect", "--against", path, saved)
	require.NoError(t, err)
	assert.Contains(t, out, "status:  ok\n")
	assert.Contains(t, out, "lines:   501\n")
	assert.Equal(t, digest, field(out, "digest:"), "same digest as the build")
	assert.Contains(t, out, "matches")
}

func TestInspect_DetectsChangedTarget(t *testing.T) {
	path := testhelpers.WriteFixture(t, "t.txt", "one\ntwo\n")
	saved := filepath.Join(t.TempDir(), "t.lidx")

	_, _, err := runCLI(t, "index", "--save", saved, path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))

	_, _, err = runCLI(t, "inspect", "--against", path, saved)
	assert.Error(t, err)
}

func TestInspect_Corrupt(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.lidx")
	require.NoError(t, os.WriteFile(bad, make([]byte, 11), 0o644))

	_, _, err := runCLI(t, "inspect", bad)
	assert.ErrorIs(t, err, lxerrors.ErrCorruptIndex)
}

func TestIndexCommand_Progress(t *testing.T) {
	path := testhelpers.WriteFixture(t, "p.txt", testhelpers.WordsContent(200))

	_, stderr, err := runCLI(t, "index", "--progress", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "100.0%")
}

func TestConfigOverrides(t *testing.T) {
	path := testhelpers.SearchFixture(t)

	_, _, err := runCLI(t, "--log-level", "loud", "search", "cars", path)
	var ce *lxerrors.ConfigError
	assert.ErrorAs(t, err, &ce)

	_, _, err = runCLI(t, "search", "--engine", "sed", "cars", path)
	assert.ErrorAs(t, err, &ce)

	cfgPath := filepath.Join(t.TempDir(), "lineidx.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[search]\nresult_limit = 1\n"), 0o644))
	out, _, err := runCLI(t, "--config", cfgPath, "search", "cars", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"), "limit comes from the file")

	out, _, err = runCLI(t, "--config", cfgPath, "search", "--limit", "0", "cars", path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"), "flag beats file")
}

func TestWatchCommand(t *testing.T) {
	testhelpers.SkipIfShort(t, "uses real file system notifications")

	path := testhelpers.WriteFixture(t, "live.log", "boot\n")
	before := goleak.IgnoreCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"lineidx", "watch", "--debounce", "20ms", "--pattern", "err", path}, &stdout, &stderr)
	}()

	testhelpers.WaitFor(t, func() bool {
		return strings.Contains(stdout.String(), "2 lines, 0 matches")
	}, 5*time.Second)

	require.NoError(t, os.WriteFile(path, []byte("boot\nerr one\nerr two\n"), 0o644))
	testhelpers.WaitFor(t, func() bool {
		return strings.Contains(stdout.String(), "4 lines, 2 matches")
	}, 5*time.Second)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	testhelpers.AssertNoLeaks(t, before)
}

func field(out, name string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, name) {
			return strings.TrimSpace(strings.TrimPrefix(line, name))
		}
	}
	return ""
}
