package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandPatterns resolves each argument to regular files. Arguments without
// glob metacharacters are taken literally so a missing file still surfaces
// as an open error later. Results are absolute, de-duplicated and sorted.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}

	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			add(pattern)
			continue
		}
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		for _, m := range matches {
			add(m)
		}
	}

	slices.Sort(out)
	return out, nil
}

// MatchAny reports whether path matches one of the doublestar patterns.
// Relative patterns are matched against the base name as well, so "*.log"
// matches "/var/log/app.log".
func MatchAny(patterns []string, path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
		if !filepath.IsAbs(p) {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}

func hasMeta(p string) bool {
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
