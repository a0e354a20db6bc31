package search

import (
	"fmt"
	"strings"
	"time"

	lxerrors "github.com/standardbeagle/lineidx/internal/errors"
)

// Engine names accepted by Compile.
const (
	EngineRE2  = "re2"
	EnginePCRE = "pcre"
)

// Pattern is a compiled regular expression. Match is safe for concurrent
// use.
type Pattern interface {
	// Match reports the first match in line as per-group byte offsets and
	// lengths, group 0 being the whole match. Groups that did not take part
	// are -1; trailing ones are trimmed. Both slices are nil when line does
	// not match. err is a matching failure, never "no match".
	Match(line []byte) (offsets, lengths []int, err error)
	String() string
}

// CompileOptions tunes compilation.
type CompileOptions struct {
	CaseInsensitive bool
	// MatchTimeout bounds a single line match. Only the pcre engine
	// supports it.
	MatchTimeout time.Duration
}

// Compile compiles pattern with the named engine. Syntax errors are
// returned as *errors.PatternError so callers can tell them apart from
// every other failure.
func Compile(engine, pattern string, opts CompileOptions) (Pattern, error) {
	switch strings.ToLower(engine) {
	case "", EngineRE2:
		return compileRE2(pattern, opts)
	case EnginePCRE:
		return compilePCRE(pattern, opts)
	default:
		return nil, lxerrors.NewConfigError("engine", engine, fmt.Errorf("unknown regex engine, want %s or %s", EngineRE2, EnginePCRE))
	}
}

// patternError locates expr, the failing fragment reported by the engine,
// in the user's pattern.
func patternError(pattern, expr, message string) *lxerrors.PatternError {
	offset := -1
	if expr != "" {
		offset = strings.LastIndex(pattern, expr)
	}
	return lxerrors.NewPatternError(pattern, offset, message)
}

// trimGroups drops trailing groups that did not participate.
func trimGroups(offsets, lengths []int) ([]int, []int) {
	n := len(offsets)
	for n > 1 && offsets[n-1] < 0 {
		n--
	}
	return offsets[:n], lengths[:n]
}
