package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/standardbeagle/lineidx/internal/indexing"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/search"
)

// Config file names, looked up in this order.
const (
	KDLFileName  = ".lineidx.kdl"
	TOMLFileName = ".lineidx.toml"
)

const DefaultDebounceMs = 300

type Config struct {
	Index  Index  `toml:"index"`
	Search Search `toml:"search"`
	Log    Log    `toml:"log"`
	Watch  Watch  `toml:"watch"`

	// Source is the file the values came from, empty for defaults.
	Source string `toml:"-"`
}

type Index struct {
	Threads              int    `toml:"threads"`
	Concurrency          int    `toml:"concurrency"`
	BufferSize           Size   `toml:"buffer_size"`
	MaxBytesPerIteration Size   `toml:"max_bytes_per_iteration"`
	LookupDir            string `toml:"lookup_dir"`
	Backing              string `toml:"backing"` // "file" or "memory"
}

type Search struct {
	Threads         int    `toml:"threads"`
	LineBuffer      int    `toml:"line_buffer"`
	ResultLimit     int    `toml:"result_limit"` // 0 = unlimited
	Engine          string `toml:"engine"`       // "re2" or "pcre"
	CaseInsensitive bool   `toml:"case_insensitive"`
	MatchTimeoutMs  int    `toml:"match_timeout_ms"` // pcre only
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

type Watch struct {
	DebounceMs int `toml:"debounce_ms"`
}

// Size is a byte count that also accepts "64KB", "10MB" or "1GB".
type Size int64

// UnmarshalText implements encoding.TextUnmarshaler for TOML values.
func (s *Size) UnmarshalText(text []byte) error {
	n, err := parseSize(strings.Trim(string(text), `"'`))
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", text, err)
	}
	*s = Size(n)
	return nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Index: Index{
			Threads:              runtime.NumCPU(),
			Concurrency:          indexing.DefaultConcurrency,
			BufferSize:           indexing.DefaultBufferSize,
			MaxBytesPerIteration: indexing.DefaultMaxBytesPerIteration,
			Backing:              string(indexing.BackingFile),
		},
		Search: Search{
			Threads:    runtime.NumCPU(),
			LineBuffer: search.DefaultLineBuffer,
			Engine:     search.EngineRE2,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Watch: Watch{
			DebounceMs: DefaultDebounceMs,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads path when it is set. Otherwise it looks for
// .lineidx.kdl then .lineidx.toml in rootDir, then in the home directory,
// and falls back to Default. The result is validated.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	if path != "" {
		cfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		return validated(cfg)
	}

	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}
	dirs := []string{searchDir}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}

	for _, dir := range dirs {
		cfg, err := loadDir(dir)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return validated(cfg)
		}
	}
	return validated(Default())
}

func validated(cfg *Config) (*Config, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDir(dir string) (*Config, error) {
	if cfg, err := LoadKDL(dir); err != nil || cfg != nil {
		return cfg, err
	}
	return LoadTOML(dir)
}

// LoadFile loads one config file, picking the format by extension.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kdl":
		cfg, err = parseKDL(string(content))
	case ".toml":
		cfg, err = parseTOML(content)
	default:
		return nil, fmt.Errorf("unsupported config format %q, want .kdl or .toml", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// IndexOptions returns indexer options for filename.
func (c *Config) IndexOptions(filename string) indexing.Options {
	opts := indexing.DefaultOptions(filename)
	opts.Threads = c.Index.Threads
	opts.Concurrency = c.Index.Concurrency
	opts.BufferSize = int(c.Index.BufferSize)
	opts.MaxBytesPerIteration = int64(c.Index.MaxBytesPerIteration)
	opts.LookupDir = c.Index.LookupDir
	opts.Backing = indexing.Backing(c.Index.Backing)
	return opts
}

// SearchConfig returns a searcher configuration for pattern.
func (c *Config) SearchConfig(pattern string) search.Config {
	return search.Config{
		Pattern:         pattern,
		Engine:          c.Search.Engine,
		CaseInsensitive: c.Search.CaseInsensitive,
		MatchTimeout:    time.Duration(c.Search.MatchTimeoutMs) * time.Millisecond,
		Threads:         c.Search.Threads,
		LineBuffer:      c.Search.LineBuffer,
		ResultLimit:     c.Search.ResultLimit,
	}
}

// Debounce returns the watch debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// NewLogger builds the logger described by the log section.
func (l Log) NewLogger(w io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return logging.NewText(w, level), nil
	case "json":
		return logging.NewJSON(w, level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	if num < 0 {
		return 0, errors.New("size cannot be negative")
	}
	return num * multiplier, nil
}
