// Package logging is the leveled diagnostic facade used by the indexer and
// the searcher. A nil *Logger is valid and discards everything, so callers
// that do not care about diagnostics can pass nothing.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelFine sits below slog.LevelDebug and carries per-chunk and per-batch
// tracing.
const LevelFine = slog.Level(-8)

// Logger wraps slog.Logger with lineidx field names.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at INFO.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewText creates a Logger that writes human-readable lines to w.
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, handlerOptions(level)))
}

// NewJSON creates a Logger that writes JSON records to w.
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, handlerOptions(level)))
}

// Discard returns a Logger that drops all output.
func Discard() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelFine {
					a.Value = slog.StringValue("FINE")
				}
			}
			return a
		},
	}
}

// ParseLevel maps a configuration string to a level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "fine", "trace":
		return LevelFine, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// With returns a Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.Logger == nil {
		return nil
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// Enabled reports whether records at level would be written.
func (l *Logger) Enabled(level slog.Level) bool {
	if l == nil || l.Logger == nil {
		return false
	}
	return l.Logger.Enabled(context.Background(), level)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil || l.Logger == nil {
		return
	}
	l.Logger.Log(context.Background(), level, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Fine logs below DEBUG. Use it for per-chunk and per-batch events.
func (l *Logger) Fine(msg string, args ...any) { l.log(LevelFine, msg, args...) }

// LogIndexRun logs the outcome of one indexing run.
func (l *Logger) LogIndexRun(filename string, lines uint64, err error) {
	if err != nil {
		l.Error("indexing failed",
			"file", filename,
			"error", err,
		)
		return
	}
	l.Info("indexing completed",
		"file", filename,
		"lines", lines,
	)
}

// LogSearchRun logs the outcome of one search.
func (l *Logger) LogSearchRun(pattern string, matches int, limited bool, err error) {
	if err != nil {
		l.Warn("search finished with errors",
			"pattern", pattern,
			"matches", matches,
			"error", err,
		)
		return
	}
	l.Info("search completed",
		"pattern", pattern,
		"matches", matches,
		"limited", limited,
	)
}
