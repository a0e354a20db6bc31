// Context: Indexer configuration and its defaults.
// External deps: none beyond internal progress/logging types.
package indexing

import (
	"errors"
	"runtime"
	"time"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/progress"
)

// Backing selects where the lookup table lives.
type Backing string

const (
	BackingFile   Backing = "file"
	BackingMemory Backing = "memory"
)

const (
	DefaultConcurrency          = 4
	DefaultBufferSize           = 64 * 1024
	DefaultMaxBytesPerIteration = 1 << 30
)

// Options configures one indexing run.
type Options struct {
	// Filename is the target text file.
	Filename string
	// LookupDir receives the lookup file when Backing is BackingFile.
	// Empty means the system temp directory.
	LookupDir string
	// Threads is the number of sub-ranges scanned in parallel per iteration.
	Threads int
	// Concurrency bounds the scan tasks outstanding per thread.
	Concurrency int
	// BufferSize is the number of bytes one scan task reads.
	BufferSize int
	// MaxBytesPerIteration caps the bytes processed per outer iteration.
	MaxBytesPerIteration int64
	Backing              Backing

	OnProgress       progress.Func
	ProgressInterval time.Duration
	Logger           *logging.Logger
}

// DefaultOptions returns options with every tunable set.
func DefaultOptions(filename string) Options {
	return Options{
		Filename:             filename,
		Threads:              runtime.NumCPU(),
		Concurrency:          DefaultConcurrency,
		BufferSize:           DefaultBufferSize,
		MaxBytesPerIteration: DefaultMaxBytesPerIteration,
		Backing:              BackingFile,
		ProgressInterval:     progress.DefaultInterval,
	}
}

// normalize fills zero values with defaults and rejects the rest.
func (o *Options) normalize() error {
	if o.Filename == "" {
		return lxerrors.NewConfigError("filename", "", errors.New("must not be empty"))
	}
	if o.Threads <= 0 {
		o.Threads = runtime.NumCPU()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.MaxBytesPerIteration <= 0 {
		o.MaxBytesPerIteration = DefaultMaxBytesPerIteration
	}
	switch o.Backing {
	case "":
		o.Backing = BackingFile
	case BackingFile, BackingMemory:
	default:
		return lxerrors.NewConfigError("backing", string(o.Backing), errors.New("must be file or memory"))
	}
	return nil
}
