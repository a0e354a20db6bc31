package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the line index
type ErrorType string

const (
	ErrorTypeIndexing ErrorType = "indexing"
	ErrorTypeSearch   ErrorType = "search"
	ErrorTypePattern  ErrorType = "pattern"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeIO           ErrorType = "io"

	ErrorTypeConfig ErrorType = "config"

	// Internal consistency errors
	ErrorTypeCorruption ErrorType = "corruption"
)

var (
	// ErrCorruptIndex marks a lookup table that violates its own ordering
	// invariant. It means "bad algorithm", never "bad disk".
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrInvalidPattern is returned before any search worker starts.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrChunkConsumed is returned when a chunk's chain is taken twice.
	ErrChunkConsumed = errors.New("chunk already consumed")

	// ErrLookupClosed is returned by operations on a released lookup.
	ErrLookupClosed = errors.New("lookup closed")
)

// IndexingError represents an error during index construction
type IndexingError struct {
	Type       ErrorType
	FilePath   string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewIndexingError creates a new indexing error with context
func NewIndexingError(op string, err error) *IndexingError {
	return &IndexingError{
		Type:       ErrorTypeIndexing,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithFile adds file information to the error
func (e *IndexingError) WithFile(path string) *IndexingError {
	e.FilePath = path
	return e
}

// Error implements the error interface
func (e *IndexingError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.FilePath, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *IndexingError) Unwrap() error {
	return e.Underlying
}

// FileError represents an I/O failure on the target file or a lookup file
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Offset     int64
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeIO
	switch {
	case errors.Is(err, fs.ErrNotExist):
		errorType = ErrorTypeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Offset:     -1,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// AtOffset records the file position the operation was attempted at
func (e *FileError) AtOffset(off int64) *FileError {
	e.Offset = off
	return e
}

func (e *FileError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("file %s failed for %s at offset %d: %v", e.Operation, e.Path, e.Offset, e.Underlying)
	}
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// CorruptionError reports a broken ordering invariant in a lookup table
type CorruptionError struct {
	Type      ErrorType
	Operation string
	Slot      uint64
	Previous  uint64
	Offset    uint64
	Timestamp time.Time
}

// NewCorruptionError creates a corruption error. previous is the offset that
// should have been <= offset (or >=, for descending construction order).
func NewCorruptionError(op string, slot, previous, offset uint64) *CorruptionError {
	return &CorruptionError{
		Type:      ErrorTypeCorruption,
		Operation: op,
		Slot:      slot,
		Previous:  previous,
		Offset:    offset,
		Timestamp: time.Now(),
	}
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: %s at slot %d: offset %d out of order with %d",
		ErrCorruptIndex, e.Operation, e.Slot, e.Offset, e.Previous)
}

// Is makes errors.Is(err, ErrCorruptIndex) hold
func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorruptIndex
}

// PatternError carries the regex compiler's diagnostics
type PatternError struct {
	Type      ErrorType
	Pattern   string
	Offset    int
	Message   string
	Timestamp time.Time
}

// NewPatternError creates a pattern error. offset is -1 when the engine
// cannot locate the failure.
func NewPatternError(pattern string, offset int, message string) *PatternError {
	return &PatternError{
		Type:      ErrorTypePattern,
		Pattern:   pattern,
		Offset:    offset,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func (e *PatternError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s %q at offset %d: %s", ErrInvalidPattern, e.Pattern, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidPattern, e.Pattern, e.Message)
}

// Is makes errors.Is(err, ErrInvalidPattern) hold
func (e *PatternError) Is(target error) bool {
	return target == ErrInvalidPattern
}

// SearchError represents a search operation error
type SearchError struct {
	Type       ErrorType
	Pattern    string
	Underlying error
	Timestamp  time.Time
}

func NewSearchError(pattern string, err error) *SearchError {
	return &SearchError{
		Type:       ErrorTypeSearch,
		Pattern:    pattern,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed for pattern %q: %v", e.Pattern, e.Underlying)
}

func (e *SearchError) Unwrap() error {
	return e.Underlying
}

// ThreadError records a search worker that stopped early. Lines in
// [Next, To) of its sub-range were not searched.
type ThreadError struct {
	Thread     int
	From       uint64
	To         uint64
	Next       uint64
	Underlying error
}

func (e *ThreadError) Error() string {
	return fmt.Sprintf("search worker %d stopped at line %d of [%d, %d): %v",
		e.Thread, e.Next, e.From, e.To, e.Underlying)
}

func (e *ThreadError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError reports a bad value for field. value may be empty when
// the problem spans a whole section.
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error. Nil entries are dropped and nil
// is returned when nothing is left.
func NewMultiError(errs []error) error {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

func (e *MultiError) Unwrap() []error {
	return e.Errors
}
