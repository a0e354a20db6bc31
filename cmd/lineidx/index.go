package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/standardbeagle/lineidx/internal/index"
	"github.com/standardbeagle/lineidx/internal/indexing"
	"github.com/standardbeagle/lineidx/internal/lookup"
	"github.com/standardbeagle/lineidx/internal/progress"

	"github.com/urfave/cli/v2"
)

func buildIndex(c *cli.Context, filename string, onProgress progress.Func) (*index.Index, error) {
	cfg, log, err := setup(c)
	if err != nil {
		return nil, err
	}
	opts := cfg.IndexOptions(filename)
	opts.Logger = log
	opts.OnProgress = onProgress
	return indexing.Build(c.Context, opts)
}

func indexCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: lineidx index <file>")
	}
	filename := c.Args().First()

	var onProgress progress.Func
	if c.Bool("progress") {
		onProgress = func(f float64) {
			fmt.Fprintf(c.App.ErrWriter, "\rindexing %s: %5.1f%%", filename, f*100)
			if f >= 1 {
				fmt.Fprintln(c.App.ErrWriter)
			}
		}
	}

	ix, err := buildIndex(c, filename, onProgress)
	if err != nil {
		return err
	}
	defer ix.Close()

	table := ix.Table()
	digest, err := lookup.Digest(table)
	if err != nil {
		return err
	}
	size, err := ix.Offset(ix.Lines())
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "file:    %s\n", ix.Filename())
	fmt.Fprintf(out, "bytes:   %d\n", size)
	fmt.Fprintf(out, "lines:   %d\n", ix.Lines())
	fmt.Fprintf(out, "records: %d\n", table.Len())
	fmt.Fprintf(out, "digest:  %016x\n", digest)

	if path := c.String("save"); path != "" {
		if err := lookup.Save(table, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved:   %s\n", path)
	}
	return nil
}

func linesCommand(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return errors.New("usage: lineidx lines <file> <start> [count]")
	}
	start, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid start %q: %w", c.Args().Get(1), err)
	}
	count := uint64(1)
	if c.NArg() == 3 {
		count, err = strconv.ParseUint(c.Args().Get(2), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", c.Args().Get(2), err)
		}
	}

	ix, err := buildIndex(c, c.Args().First(), nil)
	if err != nil {
		return err
	}
	defer ix.Close()

	payload, err := ix.Lookup(start, count)
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("line %d is past the end of %s (%d lines)", start, ix.Filename(), ix.Lines())
	}

	if !c.Bool("number") {
		_, err = c.App.Writer.Write(payload)
		return err
	}

	n := start
	return forEachLine(payload, func(line []byte) error {
		n++
		_, err := fmt.Fprintf(c.App.Writer, "%6d  %s\n", n, line)
		return err
	})
}

func forEachLine(payload []byte, fn func([]byte) error) error {
	for len(payload) > 0 {
		end := len(payload)
		next := end
		for i, b := range payload {
			if b == '\n' {
				end, next = i, i+1
				break
			}
		}
		if err := fn(payload[:end]); err != nil {
			return err
		}
		payload = payload[next:]
	}
	return nil
}
