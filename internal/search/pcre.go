package search

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/dlclark/regexp2/syntax"
)

// pcrePattern runs backtracking, Perl-compatible expressions (lookaround,
// backreferences) through regexp2. regexp2 reports positions in runes, so
// they are converted back to byte offsets.
type pcrePattern struct {
	source string
	re     *regexp2.Regexp
}

func compilePCRE(pattern string, opts CompileOptions) (Pattern, error) {
	var options regexp2.RegexOptions
	if opts.CaseInsensitive {
		options |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, options)
	if err != nil {
		var se *syntax.Error
		if errors.As(err, &se) {
			return nil, patternError(pattern, se.Expr, string(se.Code))
		}
		return nil, patternError(pattern, "", err.Error())
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}
	return &pcrePattern{source: pattern, re: re}, nil
}

func (p *pcrePattern) String() string { return p.source }

func (p *pcrePattern) Match(line []byte) ([]int, []int, error) {
	s := string(line)
	m, err := p.re.FindStringMatch(s)
	if err != nil {
		return nil, nil, fmt.Errorf("match %q: %w", p.source, err)
	}
	if m == nil {
		return nil, nil, nil
	}

	pos := runeOffsets(s)
	groups := m.Groups()
	offsets := make([]int, len(groups))
	lengths := make([]int, len(groups))
	for g, grp := range groups {
		if len(grp.Captures) == 0 {
			offsets[g], lengths[g] = -1, -1
			continue
		}
		start, end := pos(grp.Index), pos(grp.Index+grp.Length)
		offsets[g], lengths[g] = start, end-start
	}
	offsets, lengths = trimGroups(offsets, lengths)
	return offsets, lengths, nil
}

// runeOffsets returns a function mapping a rune index in s to a byte
// offset. ASCII input maps to itself.
func runeOffsets(s string) func(int) int {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return func(i int) int { return i }
	}

	table := make([]int, 0, len(s)+1)
	for i := range s {
		table = append(table, i)
	}
	table = append(table, len(s))
	return func(i int) int {
		if i >= len(table) {
			return len(s)
		}
		return table[i]
	}
}
