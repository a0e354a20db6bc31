package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/standardbeagle/lineidx/internal/index"
	"github.com/standardbeagle/lineidx/internal/lookup"

	"github.com/urfave/cli/v2"
)

func inspectCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: lineidx inspect <lookup-file>")
	}

	view, err := lookup.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer view.Close()

	out := c.App.Writer
	fmt.Fprintf(out, "lookup:  %s\n", view.Path())
	fmt.Fprintf(out, "records: %d\n", view.Len())
	fmt.Fprintf(out, "lines:   %d\n", lookup.Lines(view))
	fmt.Fprintf(out, "mapped:  %t\n", view.Mapped())

	if err := lookup.Verify(view); err != nil {
		fmt.Fprintf(out, "status:  corrupt\n")
		return err
	}
	size, err := view.Record(0)
	if err != nil {
		return err
	}
	digest, err := lookup.Digest(view)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "bytes:   %d\n", size)
	fmt.Fprintf(out, "digest:  %016x\n", digest)
	fmt.Fprintf(out, "status:  ok\n")

	if target := c.String("against"); target != "" {
		return checkTarget(c, view, target, size)
	}
	return nil
}

// checkTarget confirms the target still has the size the lookup recorded
// and that its first and last lines are readable through the lookup.
func checkTarget(c *cli.Context, view *lookup.View, target string, size uint64) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if uint64(info.Size()) != size {
		return fmt.Errorf("%s is %d bytes, lookup expects %d", target, info.Size(), size)
	}

	ix, err := index.Open(target, view)
	if err != nil {
		return err
	}
	// also closes the view; View.Close is idempotent
	defer ix.Close()

	if lines := ix.Lines(); lines > 0 {
		if _, err := ix.Line(0); err != nil {
			return err
		}
		if _, err := ix.Line(lines - 1); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.App.Writer, "target:  %s matches\n", target)
	return nil
}
