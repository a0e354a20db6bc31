package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/indexing"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/search"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and fills zero values.
// Returns an *errors.ConfigError naming the section that failed.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateIndexConfig(&cfg.Index); err != nil {
		return lxerrors.NewConfigError("index", "", err)
	}

	if err := v.validateSearchConfig(&cfg.Search); err != nil {
		return lxerrors.NewConfigError("search", "", err)
	}

	if err := v.validateLogConfig(&cfg.Log); err != nil {
		return lxerrors.NewConfigError("log", "", err)
	}

	if cfg.Watch.DebounceMs < 0 {
		return lxerrors.NewConfigError("watch", "", fmt.Errorf("debounce_ms cannot be negative, got %d", cfg.Watch.DebounceMs))
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateIndexConfig(index *Index) error {
	if index.Threads < 0 {
		return fmt.Errorf("threads cannot be negative, got %d", index.Threads)
	}
	if index.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative, got %d", index.Concurrency)
	}
	if index.BufferSize < 0 {
		return fmt.Errorf("buffer_size cannot be negative, got %d", index.BufferSize)
	}
	if index.MaxBytesPerIteration < 0 {
		return fmt.Errorf("max_bytes_per_iteration cannot be negative, got %d", index.MaxBytesPerIteration)
	}

	switch indexing.Backing(strings.ToLower(index.Backing)) {
	case "", indexing.BackingFile, indexing.BackingMemory:
	default:
		return fmt.Errorf("backing must be %q or %q, got %q", indexing.BackingFile, indexing.BackingMemory, index.Backing)
	}
	return nil
}

func (v *Validator) validateSearchConfig(s *Search) error {
	if s.Threads < 0 {
		return fmt.Errorf("threads cannot be negative, got %d", s.Threads)
	}
	if s.LineBuffer < 0 {
		return fmt.Errorf("line_buffer cannot be negative, got %d", s.LineBuffer)
	}
	if s.ResultLimit < 0 {
		return fmt.Errorf("result_limit cannot be negative, got %d", s.ResultLimit)
	}
	if s.MatchTimeoutMs < 0 {
		return fmt.Errorf("match_timeout_ms cannot be negative, got %d", s.MatchTimeoutMs)
	}

	switch strings.ToLower(s.Engine) {
	case "", search.EngineRE2, search.EnginePCRE:
	default:
		return fmt.Errorf("engine must be %q or %q, got %q", search.EngineRE2, search.EnginePCRE, s.Engine)
	}
	if s.MatchTimeoutMs > 0 && strings.ToLower(s.Engine) != search.EnginePCRE {
		return errors.New("match_timeout_ms is only supported by the pcre engine")
	}
	return nil
}

func (v *Validator) validateLogConfig(l *Log) error {
	if _, err := logging.ParseLevel(l.Level); err != nil {
		return err
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("format must be \"text\" or \"json\", got %q", l.Format)
	}
}

// setSmartDefaults fills zero values and clamps sizes that cannot work
// together.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Index.Threads == 0 {
		cfg.Index.Threads = runtime.NumCPU()
	}
	if cfg.Index.Concurrency == 0 {
		cfg.Index.Concurrency = indexing.DefaultConcurrency
	}
	if cfg.Index.BufferSize == 0 {
		cfg.Index.BufferSize = indexing.DefaultBufferSize
	}
	if cfg.Index.MaxBytesPerIteration == 0 {
		cfg.Index.MaxBytesPerIteration = indexing.DefaultMaxBytesPerIteration
	}
	// a scan task never reads past its iteration
	if cfg.Index.BufferSize > cfg.Index.MaxBytesPerIteration {
		cfg.Index.BufferSize = cfg.Index.MaxBytesPerIteration
	}
	cfg.Index.Backing = strings.ToLower(cfg.Index.Backing)
	if cfg.Index.Backing == "" {
		cfg.Index.Backing = string(indexing.BackingFile)
	}

	if cfg.Search.Threads == 0 {
		cfg.Search.Threads = runtime.NumCPU()
	}
	if cfg.Search.LineBuffer == 0 {
		cfg.Search.LineBuffer = search.DefaultLineBuffer
	}
	cfg.Search.Engine = strings.ToLower(cfg.Search.Engine)
	if cfg.Search.Engine == "" {
		cfg.Search.Engine = search.EngineRE2
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = DefaultDebounceMs
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
