package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/standardbeagle/lineidx/internal/config"
	"github.com/standardbeagle/lineidx/internal/index"
	"github.com/standardbeagle/lineidx/internal/indexing"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/search"
	"github.com/standardbeagle/lineidx/internal/watch"
	"github.com/standardbeagle/lineidx/pkg/pathutil"

	"github.com/urfave/cli/v2"
)

func watchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: lineidx watch <file|glob>...")
	}
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}

	var pattern search.Pattern
	sc := cfg.SearchConfig(c.String("pattern"))
	sc.Logger = log
	if sc.Pattern != "" {
		pattern, err = search.Compile(sc.Engine, sc.Pattern, search.CompileOptions{
			CaseInsensitive: sc.CaseInsensitive,
			MatchTimeout:    sc.MatchTimeout,
		})
		if err != nil {
			return err
		}
	}

	rb := watch.NewRebuilder(builder(cfg, log), cfg.Debounce(), log)
	defer func() {
		if err := rb.Shutdown(); err != nil {
			log.Warn("closing indexes", "error", err)
		}
	}()

	var outMu sync.Mutex
	report := func(path string) {
		outMu.Lock()
		defer outMu.Unlock()
		reportIndex(c, rb, path, pattern, sc)
	}

	files, err := pathutil.ExpandPatterns(c.Args().Slice())
	if err != nil {
		return err
	}
	for _, file := range files {
		if !pathutil.Exists(file) {
			// a literal path may appear later
			continue
		}
		if err := rb.Add(c.Context, file); err != nil {
			return err
		}
		report(file)
	}

	rb.SetOnRebuildComplete(func(reports []watch.Report) {
		for _, r := range reports {
			switch {
			case r.Err != nil:
				fmt.Fprintf(c.App.ErrWriter, "%s: rebuild failed: %v\n", r.Path, r.Err)
			case r.Removed:
				outMu.Lock()
				fmt.Fprintf(c.App.Writer, "%s: removed\n", r.Path)
				outMu.Unlock()
			default:
				report(r.Path)
			}
		}
	})

	w, err := watch.NewWatcher(c.Args().Slice(), rb, log)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return err
	}
	defer w.Stop()

	log.Info("watching", "patterns", c.Args().Slice(), "files", pathutil.ToRelativeAll(rb.Paths(), workingDir()))
	<-c.Context.Done()
	return nil
}

func builder(cfg *config.Config, log *logging.Logger) watch.BuildFunc {
	return func(ctx context.Context, path string) (*index.Index, error) {
		opts := cfg.IndexOptions(path)
		opts.Logger = log
		return indexing.Build(ctx, opts)
	}
}

func reportIndex(c *cli.Context, rb *watch.Rebuilder, path string, pattern search.Pattern, sc search.Config) {
	name := pathutil.ToRelative(path, workingDir())
	err := rb.With(path, func(ix *index.Index) error {
		if pattern == nil {
			fmt.Fprintf(c.App.Writer, "%s: %d lines\n", name, ix.Lines())
			return nil
		}
		out, err := search.NewWithPattern(ix, pattern, sc).Search(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %d lines, %d matches\n", name, ix.Lines(), out.Matches)
		return out.Err()
	})
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", name, err)
	}
}
