package debug

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reset restores package state when the test ends.
func reset(t *testing.T) {
	t.Helper()
	enable := EnableDebug
	std.mu.Lock()
	out, file, quiet := std.out, std.file, std.quiet
	std.mu.Unlock()

	t.Cleanup(func() {
		EnableDebug = enable
		std.mu.Lock()
		std.out, std.file, std.quiet = out, file, quiet
		std.mu.Unlock()
	})
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	return &buf
}

func TestIsDebugEnabled(t *testing.T) {
	reset(t)
	EnableDebug = "false"

	tests := []struct {
		env       string
		component string
		want      bool
	}{
		{"", Index, false},
		{"1", Index, true},
		{"true", "", true},
		{"ALL", Search, true},
		{"index,search", Index, true},
		{"index, Search", Search, true},
		{"index", Lookup, false},
		{"index", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.component, func(t *testing.T) {
			t.Setenv("DEBUG", tt.env)
			assert.Equal(t, tt.want, IsDebugEnabled(tt.component))
		})
	}
}

func TestIsDebugEnabled_BuildFlag(t *testing.T) {
	reset(t)
	t.Setenv("DEBUG", "")

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled(Lookup))

	EnableDebug = "yes"
	assert.False(t, IsDebugEnabled(Lookup))
}

func TestLog_Format(t *testing.T) {
	reset(t)
	EnableDebug = "true"
	SetQuiet(false)
	buf := capture(t)

	LogIndexing("thread %d done\n", 3)
	Printf("plain")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "+"))
	assert.True(t, strings.HasSuffix(lines[0], "ms [INDEX] thread 3 done"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "ms plain"), lines[1])
}

func TestLog_ComponentFilter(t *testing.T) {
	reset(t)
	EnableDebug = "false"
	t.Setenv("DEBUG", "lookup")
	SetQuiet(false)
	buf := capture(t)

	LogSearch("hidden")
	LogLookup("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[LOOKUP] shown")
}

func TestLog_Quiet(t *testing.T) {
	reset(t)
	EnableDebug = "true"
	buf := capture(t)

	SetQuiet(true)
	LogSearch("should not appear")
	assert.Empty(t, buf.String())
}

func TestLog_NilWriter(t *testing.T) {
	reset(t)
	EnableDebug = "true"
	SetQuiet(false)
	SetDebugOutput(nil)

	assert.NotPanics(t, func() {
		Printf("test %s", "message")
		LogSearch("test %s", "message")
	})
}

func TestLog_Concurrent(t *testing.T) {
	reset(t)
	EnableDebug = "true"
	SetQuiet(false)
	buf := capture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			LogSearch("search from goroutine %d", id)
			LogIndexing("index from goroutine %d", id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "\n"))
}

func TestInitDebugLogFile(t *testing.T) {
	reset(t)
	EnableDebug = "true"
	SetQuiet(false)

	path, err := InitDebugLogFile()
	require.NoError(t, err)
	defer os.Remove(path)

	LogLookup("appended %d records", 7)
	require.NoError(t, CloseDebugLog())
	require.NoError(t, CloseDebugLog())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[LOOKUP] appended 7 records")
}
