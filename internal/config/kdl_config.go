package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from .lineidx.kdl in dir. It
// returns nil, nil when the file does not exist.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, KDLFileName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadFile(kdlPath)
}

// parseKDL reads a document like
//
//	index {
//	    threads 8
//	    buffer_size "64KB"
//	    backing "memory"
//	}
//	search { engine "pcre"; result_limit 100 }
//	log { level "debug" }
//	watch { debounce_ms 500 }
//
// Unknown nodes are ignored; values of the wrong type are errors.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		section := nodeName(n)
		for _, cn := range n.Children {
			var err error
			switch section {
			case "index":
				err = parseIndexNode(&cfg.Index, cn)
			case "search":
				err = parseSearchNode(&cfg.Search, cn)
			case "log":
				err = parseLogNode(&cfg.Log, cn)
			case "watch":
				if nodeName(cn) == "debounce_ms" {
					err = setInt(cn, &cfg.Watch.DebounceMs)
				}
			}
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", section, nodeName(cn), err)
			}
		}
	}
	return cfg, nil
}

func parseIndexNode(ix *Index, n *document.Node) error {
	switch nodeName(n) {
	case "threads":
		return setInt(n, &ix.Threads)
	case "concurrency":
		return setInt(n, &ix.Concurrency)
	case "buffer_size":
		return setSize(n, &ix.BufferSize)
	case "max_bytes_per_iteration":
		return setSize(n, &ix.MaxBytesPerIteration)
	case "lookup_dir":
		return setString(n, &ix.LookupDir)
	case "backing":
		return setString(n, &ix.Backing)
	}
	return nil
}

func parseSearchNode(s *Search, n *document.Node) error {
	switch nodeName(n) {
	case "threads":
		return setInt(n, &s.Threads)
	case "line_buffer":
		return setInt(n, &s.LineBuffer)
	case "result_limit":
		return setInt(n, &s.ResultLimit)
	case "engine":
		return setString(n, &s.Engine)
	case "case_insensitive":
		return setBool(n, &s.CaseInsensitive)
	case "match_timeout_ms":
		return setInt(n, &s.MatchTimeoutMs)
	}
	return nil
}

func parseLogNode(l *Log, n *document.Node) error {
	switch nodeName(n) {
	case "level":
		return setString(n, &l.Level)
	case "format":
		return setString(n, &l.Format)
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func setInt(n *document.Node, dst *int) error {
	v, ok := firstIntArg(n)
	if !ok {
		return fmt.Errorf("expected a number")
	}
	*dst = v
	return nil
}

func setString(n *document.Node, dst *string) error {
	v, ok := firstStringArg(n)
	if !ok {
		return fmt.Errorf("expected a string")
	}
	*dst = v
	return nil
}

func setBool(n *document.Node, dst *bool) error {
	v, ok := firstBoolArg(n)
	if !ok {
		return fmt.Errorf("expected true or false")
	}
	*dst = v
	return nil
}

// setSize accepts both 65536 and "64KB".
func setSize(n *document.Node, dst *Size) error {
	if v, ok := firstIntArg(n); ok {
		*dst = Size(v)
		return nil
	}
	s, ok := firstStringArg(n)
	if !ok {
		return fmt.Errorf("expected a size")
	}
	sz, err := parseSize(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*dst = Size(sz)
	return nil
}
