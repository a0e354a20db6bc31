package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/standardbeagle/lineidx/internal/debug"
	"github.com/standardbeagle/lineidx/internal/indexing"
	"github.com/standardbeagle/lineidx/internal/search"
	"github.com/standardbeagle/lineidx/pkg/pathutil"

	"github.com/urfave/cli/v2"
)

// fileResults is one file's part of the --json output.
type fileResults struct {
	File    string          `json:"file"`
	Matches int             `json:"matches"`
	Limited bool            `json:"limited,omitempty"`
	Results []search.Result `json:"results"`
	Errors  []string        `json:"errors,omitempty"`
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("usage: lineidx search <pattern> <file|glob>...")
	}
	jsonOut := c.Bool("json")
	if jsonOut {
		debug.SetQuiet(true)
		defer debug.SetQuiet(false)
	}

	cfg, log, err := setup(c)
	if err != nil {
		return err
	}

	files, err := pathutil.ExpandPatterns(c.Args().Tail())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %v", c.Args().Tail())
	}

	sc := cfg.SearchConfig(c.Args().First())
	sc.Logger = log
	// compile once, before touching any file
	pattern, err := search.Compile(sc.Engine, sc.Pattern, search.CompileOptions{
		CaseInsensitive: sc.CaseInsensitive,
		MatchTimeout:    sc.MatchTimeout,
	})
	if err != nil {
		return err
	}

	var all []fileResults
	var failed []error
	for _, file := range files {
		fr, err := searchFile(c, cfg.IndexOptions(file), pattern, sc)
		if err != nil {
			if c.Context.Err() != nil {
				return err
			}
			log.Error("search failed", "file", file, "error", err)
			failed = append(failed, fmt.Errorf("%s: %w", file, err))
			continue
		}
		all = append(all, fr)
		if !jsonOut {
			printResults(c, fr, len(files) > 1)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(all); err != nil {
			return err
		}
	}
	return errors.Join(failed...)
}

func searchFile(c *cli.Context, opts indexing.Options, pattern search.Pattern, sc search.Config) (fileResults, error) {
	opts.Logger = sc.Logger
	ix, err := indexing.Build(c.Context, opts)
	if err != nil {
		return fileResults{}, err
	}
	defer ix.Close()

	var results search.Collector
	sc.OnResult = results.Add
	out, err := search.NewWithPattern(ix, pattern, sc).Search(c.Context)
	if err != nil {
		return fileResults{}, err
	}

	fr := fileResults{
		File:    pathutil.ToRelative(opts.Filename, workingDir()),
		Matches: out.Matches,
		Limited: out.Limited,
		Results: results.Sorted(),
	}
	for _, te := range out.ThreadErrors {
		fr.Errors = append(fr.Errors, te.Error())
	}
	return fr, nil
}

func printResults(c *cli.Context, fr fileResults, withFile bool) {
	out := c.App.Writer
	if c.Bool("count") {
		if withFile {
			fmt.Fprintf(out, "%s:%d\n", fr.File, fr.Matches)
		} else {
			fmt.Fprintf(out, "%d\n", fr.Matches)
		}
		return
	}

	for _, r := range fr.Results {
		if withFile {
			fmt.Fprintf(out, "%s:%d:%s\n", fr.File, r.LineNumber, r.Text)
		} else {
			fmt.Fprintf(out, "%d:%s\n", r.LineNumber, r.Text)
		}
	}
	for _, e := range fr.Errors {
		fmt.Fprintf(c.App.ErrWriter, "%s: %s\n", fr.File, e)
	}
	if fr.Limited {
		fmt.Fprintf(c.App.ErrWriter, "%s: stopped after %d matches\n", fr.File, fr.Matches)
	}
}
