package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lineidx/internal/debug"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/pkg/pathutil"
)

// Watcher feeds file system events for files matching its patterns into a
// Rebuilder.
type Watcher struct {
	watcher   *fsnotify.Watcher
	patterns  []string
	rebuilder *Rebuilder
	log       *logging.Logger

	// recursive roots get watches for directories created later
	recursive []string

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWatcher creates a watcher for patterns: plain file paths or doublestar
// globs. Patterns are made absolute.
func NewWatcher(patterns []string, rb *Rebuilder, log *logging.Logger) (*Watcher, error) {
	abs := make([]string, 0, len(patterns))
	for _, p := range patterns {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		if !doublestar.ValidatePathPattern(a) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
		abs = append(abs, filepath.ToSlash(a))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:   w,
		patterns:  abs,
		rebuilder: rb,
		log:       log,
		done:      make(chan struct{}),
	}, nil
}

// Matches reports whether path is one of the watched files.
func (w *Watcher) Matches(path string) bool {
	return pathutil.MatchAny(w.patterns, path)
}

// Start adds the watches and begins forwarding events.
func (w *Watcher) Start() error {
	for _, p := range w.patterns {
		base, rest := doublestar.SplitPattern(p)
		root := filepath.FromSlash(base)
		if !spansDirs(rest) {
			// the files may not exist yet; watch their directory
			if err := w.watcher.Add(root); err != nil {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			continue
		}
		w.recursive = append(w.recursive, root)
		if err := w.addWatches(root); err != nil {
			return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
		}
	}

	w.wg.Add(1)
	go w.processEvents()

	debug.LogIndexing("Watcher started for %d patterns\n", len(w.patterns))
	return nil
}

// Stop ends event processing. It does not shut the Rebuilder down.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// addWatches recursively adds watches to every directory under root.
func (w *Watcher) addWatches(root string) error {
	// symlink cycles
	visited := make(map[string]bool)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[resolved] {
			return filepath.SkipDir
		}
		visited[resolved] = true

		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("failed to add watch", "dir", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogIndexing("Watcher: received event %v for path %s\n", event.Op, path)

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) && w.underRecursiveRoot(path) {
			if err := w.addWatches(path); err != nil {
				w.log.Warn("failed to watch new directory", "dir", path, "error", err)
			}
		}
		return
	}

	if !w.Matches(path) {
		return
	}

	var ev EventType
	switch {
	case event.Has(fsnotify.Create):
		ev = EventCreate
	case event.Has(fsnotify.Write):
		ev = EventWrite
	case event.Has(fsnotify.Remove):
		ev = EventRemove
	case event.Has(fsnotify.Rename):
		ev = EventRename
	default:
		return
	}

	w.rebuilder.ScheduleRebuild(path, ev)
}

func (w *Watcher) underRecursiveRoot(path string) bool {
	for _, root := range w.recursive {
		if rel, err := filepath.Rel(root, path); err == nil && filepath.IsLocal(rel) {
			return true
		}
	}
	return false
}

// spansDirs reports whether the non-static part of a pattern can match
// files below the first directory.
func spansDirs(rest string) bool {
	return strings.Contains(rest, "/") || strings.Contains(rest, "**")
}
