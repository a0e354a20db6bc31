package pathutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LookupExt is the extension of lookup table files.
const LookupExt = ".lidx"

// Join joins dir and name and normalizes separators. An empty dir means the
// system temp directory.
func Join(dir, name string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Clean(filepath.Join(filepath.FromSlash(dir), filepath.FromSlash(name)))
}

// RandomName returns prefix followed by a random UUID and LookupExt.
func RandomName(prefix string) string {
	return prefix + uuid.NewString() + LookupExt
}

// LookupPath returns a fresh lookup file path under dir for target.
//
//	LookupPath("/tmp/idx", "/data/big.log") → "/tmp/idx/big.log-<uuid>.lidx"
func LookupPath(dir, target string) string {
	return Join(dir, RandomName(filepath.Base(target)+"-"))
}

// EnsureParent creates the parent directories of path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
