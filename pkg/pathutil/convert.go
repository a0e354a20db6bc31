// Package pathutil builds the file names the indexer writes and converts
// between the absolute paths used internally and the relative paths shown
// to users.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/data/logs/app.log", "/data") → "logs/app.log"
//   - ToRelative("/other/app.log", "/data") → "/other/app.log" (outside root)
//   - ToRelative("logs/app.log", "/data") → "logs/app.log" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// different volumes on Windows
		return absPath
	}

	// outside the root: the absolute path is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}

	return relPath
}

// ToRelativeAll converts every path in paths, returning a new slice.
func ToRelativeAll(paths []string, rootDir string) []string {
	if len(paths) == 0 {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ToRelative(p, rootDir)
	}
	return out
}
