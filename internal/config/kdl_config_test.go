package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lineidx/internal/indexing"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, Default(), cfg)
}

func TestParseKDL_AllSections(t *testing.T) {
	kdlContent := `
index {
    threads 3
    concurrency 2
    buffer_size "16KB"
    max_bytes_per_iteration 1048576
    lookup_dir "/var/tmp/lineidx"
    backing "memory"
}
search {
    threads 5
    line_buffer 256
    result_limit 100
    engine "pcre"
    case_insensitive true
    match_timeout_ms 25
}
log {
    level "debug"
    format "json"
}
watch {
    debounce_ms 750
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Index.Threads)
	assert.Equal(t, 2, cfg.Index.Concurrency)
	assert.Equal(t, Size(16*1024), cfg.Index.BufferSize)
	assert.Equal(t, Size(1<<20), cfg.Index.MaxBytesPerIteration)
	assert.Equal(t, "/var/tmp/lineidx", cfg.Index.LookupDir)
	assert.Equal(t, "memory", cfg.Index.Backing)

	assert.Equal(t, 5, cfg.Search.Threads)
	assert.Equal(t, 256, cfg.Search.LineBuffer)
	assert.Equal(t, 100, cfg.Search.ResultLimit)
	assert.Equal(t, "pcre", cfg.Search.Engine)
	assert.True(t, cfg.Search.CaseInsensitive)
	assert.Equal(t, 25, cfg.Search.MatchTimeoutMs)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 750, cfg.Watch.DebounceMs)
	assert.Equal(t, 750*time.Millisecond, cfg.Debounce())
}

func TestParseKDL_UnknownNodesIgnored(t *testing.T) {
	cfg, err := parseKDL(`
project { root "." }
index { colour "blue"; threads 2 }
`)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Index.Threads)
}

func TestParseKDL_TypeErrors(t *testing.T) {
	tests := []string{
		`index { threads "many" }`,
		`index { buffer_size "lots" }`,
		`search { case_insensitive "yes" }`,
		`log { level 3 }`,
	}
	for _, content := range tests {
		_, err := parseKDL(content)
		assert.Error(t, err, content)
	}
}

func TestParseKDL_Malformed(t *testing.T) {
	_, err := parseKDL(`index { threads 2`)
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"4096", 4096},
		{"12B", 12},
		{"64KB", 64 * 1024},
		{"10mb", 10 * 1024 * 1024},
		{" 1GB ", 1 << 30},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "KB", "ten", "-4KB"} {
		_, err := parseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTOML(t *testing.T) {
	cfg, err := parseTOML([]byte(`
[index]
threads = 6
buffer_size = "32KB"
max_bytes_per_iteration = 2097152
backing = "memory"

[search]
engine = "pcre"
result_limit = 10

[log]
level = "warn"
`))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Index.Threads)
	assert.Equal(t, Size(32*1024), cfg.Index.BufferSize)
	assert.Equal(t, Size(2<<20), cfg.Index.MaxBytesPerIteration)
	assert.Equal(t, "memory", cfg.Index.Backing)
	assert.Equal(t, "pcre", cfg.Search.Engine)
	assert.Equal(t, 10, cfg.Search.ResultLimit)
	assert.Equal(t, "warn", cfg.Log.Level)

	// untouched keys keep defaults
	assert.Equal(t, indexing.DefaultConcurrency, cfg.Index.Concurrency)
	assert.Equal(t, DefaultDebounceMs, cfg.Watch.DebounceMs)
}

func TestParseTOML_Errors(t *testing.T) {
	_, err := parseTOML([]byte("[index]\nthreads = \"x\"\n"))
	assert.Error(t, err)

	_, err = parseTOML([]byte("[index]\nunknown_key = 1\n"))
	assert.Error(t, err)

	_, err = parseTOML([]byte("[index\n"))
	assert.Error(t, err)
}

func TestLoadWithRoot_PrefersKDL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KDLFileName), []byte(`index { threads 7 }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLFileName), []byte("[index]\nthreads = 9\n"), 0o644))

	cfg, err := LoadWithRoot("", dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Index.Threads)
	assert.Equal(t, filepath.Join(dir, KDLFileName), cfg.Source)
}

func TestLoadWithRoot_TOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLFileName), []byte("[search]\nline_buffer = 64\n"), 0o644))

	cfg, err := LoadWithRoot("", dir)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Search.LineBuffer)
}

func TestLoadWithRoot_InvalidValuesFail(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KDLFileName), []byte(`index { backing "tape" }`), 0o644))

	cfg, err := LoadWithRoot("", dir)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[watch]\ndebounce_ms = 20\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Watch.DebounceMs)

	_, err = Load(filepath.Join(dir, "missing.kdl"))
	assert.Error(t, err)

	yaml := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(yaml, []byte("a: 1"), 0o644))
	_, err = Load(yaml)
	assert.Error(t, err)
}

func TestConfigConversions(t *testing.T) {
	cfg := Default()
	cfg.Index.Backing = "memory"
	cfg.Index.BufferSize = 128
	cfg.Search.Engine = "pcre"
	cfg.Search.MatchTimeoutMs = 15
	cfg.Search.ResultLimit = 4

	opts := cfg.IndexOptions("big.txt")
	assert.Equal(t, "big.txt", opts.Filename)
	assert.Equal(t, indexing.BackingMemory, opts.Backing)
	assert.Equal(t, 128, opts.BufferSize)

	sc := cfg.SearchConfig("cars")
	assert.Equal(t, "cars", sc.Pattern)
	assert.Equal(t, "pcre", sc.Engine)
	assert.Equal(t, 15*time.Millisecond, sc.MatchTimeout)
	assert.Equal(t, 4, sc.ResultLimit)
}

func TestLogNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := Log{Level: "info", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)
	l.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = Log{Level: "info", Format: "xml"}.NewLogger(&buf)
	assert.Error(t, err)
	_, err = Log{Level: "nope"}.NewLogger(&buf)
	assert.Error(t, err)
}
