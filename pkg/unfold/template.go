package unfold

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// template mirrors the teacher pack's notion of a pluggable "folded
// argument" grammar (see original_source/smartdispatch/argument_template.py):
// a name, a regex describing what it matches, and an unfold function
// turning one matched token into its set of alternatives.
type template struct {
	name   string
	regex  *regexp.Regexp
	unfold func(match string) ([]string, error)
}

// Order matters: the range grammar is strictly more specific than the
// list grammar, so it must be tried first at every position or the list
// pattern's greedy "anything between brackets" would swallow range
// tokens (see Design Notes, spec §9).
var templates = []template{
	rangeTemplate(),
	listTemplate(),
}

var rangeInner = regexp.MustCompile(`^\[(\d+):(\d+)(?::(\d+))?\]$`)

func rangeTemplate() template {
	return template{
		name:  "range",
		regex: regexp.MustCompile(`\[\d+:\d+(?::\d+)?\]`),
		unfold: func(match string) ([]string, error) {
			groups := rangeInner.FindStringSubmatch(match)
			if groups == nil {
				return nil, fmt.Errorf("unfold: malformed range token %q", match)
			}
			start, err := strconv.Atoi(groups[1])
			if err != nil {
				return nil, fmt.Errorf("unfold: range token %q: %w", match, err)
			}
			end, err := strconv.Atoi(groups[2])
			if err != nil {
				return nil, fmt.Errorf("unfold: range token %q: %w", match, err)
			}
			step := 1
			if groups[3] != "" {
				step, err = strconv.Atoi(groups[3])
				if err != nil {
					return nil, fmt.Errorf("unfold: range token %q: %w", match, err)
				}
			}
			if step == 0 {
				if start >= end {
					return []string{}, nil
				}
				return nil, fmt.Errorf("unfold: range token %q has step 0 but would never terminate", match)
			}
			var out []string
			for v := start; v < end; v += step {
				out = append(out, strconv.Itoa(v))
			}
			return out, nil
		},
	}
}

func listTemplate() template {
	return template{
		name:  "list",
		regex: regexp.MustCompile(`\[[^\[\]]*\]`),
		unfold: func(match string) ([]string, error) {
			inner := match[1 : len(match)-1]
			if inner == "" {
				return []string{""}, nil
			}
			return strings.Split(inner, " "), nil
		},
	}
}
