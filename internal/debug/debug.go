// Package debug writes developer traces of indexing, lookup and search
// internals. It is separate from the leveled logger: traces are off unless
// enabled at build time or through the DEBUG environment variable, and they
// go to a writer (usually a temp file) rather than stderr.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EnableDebug turns tracing on for every component when set to "true":
//
//	go build -ldflags "-X github.com/standardbeagle/lineidx/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// Component tags.
const (
	Index  = "INDEX"
	Lookup = "LOOKUP"
	Search = "SEARCH"
)

type tracer struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	quiet bool
	start time.Time
}

var std = &tracer{start: time.Now()}

// SetQuiet suppresses traces while the CLI writes machine-readable output.
func SetQuiet(enabled bool) {
	std.mu.Lock()
	std.quiet = enabled
	std.mu.Unlock()
}

// SetDebugOutput sets the trace writer. nil disables output.
func SetDebugOutput(w io.Writer) {
	std.mu.Lock()
	std.out = w
	std.mu.Unlock()
}

// InitDebugLogFile sends traces to a new timestamped file under the temp
// directory and returns its path.
func InitDebugLogFile() (string, error) {
	dir := filepath.Join(os.TempDir(), "lineidx-debug-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}
	path := filepath.Join(dir, "debug-"+time.Now().Format("2006-01-02T150405.000")+".log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		_ = std.file.Close()
	}
	std.file, std.out = f, f
	return path, nil
}

// CloseDebugLog closes the file opened by InitDebugLogFile, if any.
func CloseDebugLog() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file == nil {
		return nil
	}
	err := std.file.Close()
	std.file, std.out = nil, nil
	return err
}

// IsDebugEnabled reports whether traces for component are written. DEBUG
// may be "1", "true" or "all", or a comma separated list of component tags
// such as "index,search".
func IsDebugEnabled(component string) bool {
	std.mu.Lock()
	quiet := std.quiet
	std.mu.Unlock()
	if quiet {
		return false
	}
	if EnableDebug == "true" {
		return true
	}

	env := strings.TrimSpace(os.Getenv("DEBUG"))
	switch strings.ToLower(env) {
	case "":
		return false
	case "1", "true", "all":
		return true
	}
	if component == "" {
		return false
	}
	for _, c := range strings.Split(env, ",") {
		if strings.EqualFold(strings.TrimSpace(c), component) {
			return true
		}
	}
	return false
}

// Log writes one trace line for component, prefixed with the time since
// process start.
func Log(component, format string, args ...any) {
	if !IsDebugEnabled(component) {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	elapsed := time.Since(std.start)

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.out == nil {
		return
	}
	if component == "" {
		fmt.Fprintf(std.out, "+%10.3fms %s\n", float64(elapsed.Microseconds())/1000, msg)
		return
	}
	fmt.Fprintf(std.out, "+%10.3fms [%s] %s\n", float64(elapsed.Microseconds())/1000, component, msg)
}

// Printf writes an untagged trace line.
func Printf(format string, args ...any) {
	Log("", format, args...)
}

func LogIndexing(format string, args ...any) { Log(Index, format, args...) }
func LogLookup(format string, args ...any)   { Log(Lookup, format, args...) }
func LogSearch(format string, args ...any)   { Log(Search, format, args...) }
