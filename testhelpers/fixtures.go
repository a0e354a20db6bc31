package testhelpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFixture writes content to name inside a fresh temp directory and
// returns the full path.
func WriteFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// SearchLines is the search fixture. "cars" appears on lines 3, 4 and 9
// (1-based) and nowhere else.
var SearchLines = []string{
	"the quick brown fox",
	"jumps over the lazy dog",
	"the box ate cars",
	"cars?",
	"a car is not plural",
	"",
	"trucks and vans",
	"bicycles only",
	"cars",
	"the end",
}

// SearchFixture writes SearchLines, one per line, each terminated.
func SearchFixture(t *testing.T) string {
	t.Helper()
	return WriteFixture(t, "search.txt", strings.Join(SearchLines, "\n")+"\n")
}

var words = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
	"hotel", "india", "juliet", "kilo", "lima", "mike", "november",
}

// WordsContent returns n deterministic lines of varying length, some empty.
// Line k is built only from k, so callers can recompute any line.
func WordsContent(n int) string {
	var sb strings.Builder
	for k := 0; k < n; k++ {
		sb.WriteString(WordsLine(k))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WordsLine returns line k of WordsContent without its terminator.
func WordsLine(k int) string {
	if k%11 == 7 {
		return ""
	}
	count := k%5 + 1
	parts := make([]string, count)
	for i := range parts {
		parts[i] = words[(k*7+i*3)%len(words)]
	}
	return strings.Join(parts, " ")
}

// WordsFixture writes WordsContent(n) and returns its path.
func WordsFixture(t *testing.T, n int) string {
	t.Helper()
	return WriteFixture(t, "words.txt", WordsContent(n))
}
