package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/standardbeagle/lineidx/internal/config"
	"github.com/standardbeagle/lineidx/internal/debug"
	"github.com/standardbeagle/lineidx/internal/logging"
	"github.com/standardbeagle/lineidx/internal/version"

	"github.com/urfave/cli/v2"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath == "" {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}

	// command flags
	if c.IsSet("threads") {
		cfg.Index.Threads = c.Int("threads")
		cfg.Search.Threads = c.Int("threads")
	}
	if c.IsSet("concurrency") {
		cfg.Index.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("buffer-size") {
		var size config.Size
		if err := size.UnmarshalText([]byte(c.String("buffer-size"))); err != nil {
			return nil, err
		}
		cfg.Index.BufferSize = size
	}
	if c.IsSet("lookup-dir") {
		cfg.Index.LookupDir = c.String("lookup-dir")
	}
	if c.IsSet("memory") {
		cfg.Index.Backing = "file"
		if c.Bool("memory") {
			cfg.Index.Backing = "memory"
		}
	}
	if c.IsSet("engine") {
		cfg.Search.Engine = c.String("engine")
	}
	if c.IsSet("case-insensitive") {
		cfg.Search.CaseInsensitive = c.Bool("case-insensitive")
	}
	if c.IsSet("limit") {
		cfg.Search.ResultLimit = c.Int("limit")
	}
	if c.IsSet("line-buffer") {
		cfg.Search.LineBuffer = c.Int("line-buffer")
	}
	if c.IsSet("debounce") {
		cfg.Watch.DebounceMs = int(c.Duration("debounce").Milliseconds())
	}

	// overrides go through the same checks as file values
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger for a command.
func setup(c *cli.Context) (*config.Config, *logging.Logger, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}
	log, err := cfg.Log.NewLogger(c.App.ErrWriter)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

var indexFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "threads",
		Aliases: []string{"t"},
		Usage:   "Worker threads (0 = number of CPUs)",
	},
	&cli.IntFlag{
		Name:  "concurrency",
		Usage: "Scan tasks in flight per thread",
	},
	&cli.StringFlag{
		Name:  "buffer-size",
		Usage: "Bytes per scan task (e.g. 65536 or 64KB)",
	},
	&cli.StringFlag{
		Name:  "lookup-dir",
		Usage: "Directory for temporary lookup files",
	},
	&cli.BoolFlag{
		Name:  "memory",
		Usage: "Keep the lookup table in memory instead of a file",
	},
}

var searchFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "engine",
		Usage: "Regex engine: re2 or pcre",
	},
	&cli.BoolFlag{
		Name:    "case-insensitive",
		Aliases: []string{"i"},
		Usage:   "Case-insensitive search",
	},
	&cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Stop after this many matches per file (0 = unlimited)",
	},
	&cli.IntFlag{
		Name:  "line-buffer",
		Usage: "Lines read per batch",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "lineidx",
		Usage:                  "Index line offsets of large text files and search them in parallel",
		Version:                version.FullInfo(),
		UseShortOptionHandling: true,
		Writer:                 os.Stdout,
		ErrWriter:              os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.kdl or .toml); default looks for .lineidx.kdl or .lineidx.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "error, warn, info, debug or fine",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug traces to a log file under the temp directory",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "index",
				Aliases:   []string{"i"},
				Usage:     "Build the line index of a file and report its shape",
				ArgsUsage: "<file>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "save",
						Aliases: []string{"o"},
						Usage:   "Keep a copy of the lookup table at this path",
					},
					&cli.BoolFlag{
						Name:    "progress",
						Aliases: []string{"p"},
						Usage:   "Show progress on stderr",
					},
				}, indexFlags...),
				Action: indexCommand,
			},
			{
				Name:      "lines",
				Aliases:   []string{"l"},
				Usage:     "Print count lines starting at a 0-based line number",
				ArgsUsage: "<file> <start> [count]",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "number",
						Usage: "Prefix each line with its 1-based number",
					},
				}, indexFlags...),
				Action: linesCommand,
			},
			{
				Name:      "search",
				Aliases:   []string{"s"},
				Usage:     "Search files for a regular expression",
				ArgsUsage: "<pattern> <file|glob>...",
				Flags: append(append([]cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "count",
						Usage: "Print only the number of matching lines per file",
					},
				}, searchFlags...), indexFlags...),
				Action: searchCommand,
			},
			{
				Name:      "inspect",
				Usage:     "Verify a saved lookup file and print its digest",
				ArgsUsage: "<lookup-file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "against",
						Usage: "Check that the lookup describes this target file",
					},
				},
				Action: inspectCommand,
			},
			{
				Name:      "watch",
				Aliases:   []string{"w"},
				Usage:     "Rebuild indexes when the watched files change",
				ArgsUsage: "<file|glob>...",
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{
						Name:  "pattern",
						Usage: "Search each rebuilt file for this pattern",
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before a rebuild",
					},
				}, searchFlags...), indexFlags...),
				Action: watchCommand,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "debug log: %s\n", path)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	app := newApp()
	app.Writer = stdout
	app.ErrWriter = stderr
	return app.RunContext(ctx, args)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
