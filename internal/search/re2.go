package search

import (
	"errors"
	"regexp"
	"regexp/syntax"
	"strings"
)

type re2Pattern struct {
	source string
	re     *regexp.Regexp
}

func compileRE2(pattern string, opts CompileOptions) (Pattern, error) {
	flags := ""
	if opts.CaseInsensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		var se *syntax.Error
		if errors.As(err, &se) {
			return nil, patternError(pattern, strings.TrimPrefix(se.Expr, flags), string(se.Code))
		}
		return nil, patternError(pattern, "", err.Error())
	}
	return &re2Pattern{source: pattern, re: re}, nil
}

func (p *re2Pattern) String() string { return p.source }

func (p *re2Pattern) Match(line []byte) ([]int, []int, error) {
	loc := p.re.FindSubmatchIndex(line)
	if loc == nil {
		return nil, nil, nil
	}
	groups := len(loc) / 2
	offsets := make([]int, groups)
	lengths := make([]int, groups)
	for g := 0; g < groups; g++ {
		start, end := loc[2*g], loc[2*g+1]
		if start < 0 {
			offsets[g], lengths[g] = -1, -1
			continue
		}
		offsets[g], lengths[g] = start, end-start
	}
	offsets, lengths = trimGroups(offsets, lengths)
	return offsets, lengths, nil
}
