package unfold

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/smartdispatch/smartdispatch/pkg/command"
)

// UIDTag is the literal token replaced, after unfolding, by a command's
// own SHA-256 UID.
const UIDTag = "{UID}"

// escape markers stand in for \[ and \] while the tokenizer runs, so the
// folding regexes never need to special-case a leading backslash. They
// use Unicode private-use code points, which cannot occur in ordinary
// shell command text.
const (
	escOpen  = ""
	escClose = ""
)

var (
	escOpenPattern  = regexp.MustCompile(`\\\[`)
	escClosePattern = regexp.MustCompile(`\\\]`)
)

var combined = buildCombinedRegex(templates)

func buildCombinedRegex(ts []template) *regexp.Regexp {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("(?P<g%d>%s)", i, t.regex.String())
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}

// Command turns one folded command line into the ordered Cartesian
// product of concrete command strings, then applies {UID}-tag
// substitution to each result.
//
// Unfold is a pure function of its input: the same command string always
// produces the same ordered output (spec invariant P6).
func Command(text string) ([]string, error) {
	concrete, err := expand(text)
	if err != nil {
		return nil, err
	}
	return substituteUIDs(concrete), nil
}

// Expand performs only the Cartesian expansion, without {UID} tag
// substitution. Exposed for callers that want to inspect unfolded text
// before UID tagging; the smartdispatch CLI itself does not call it.
func Expand(text string) ([]string, error) {
	return expand(text)
}

func expand(text string) ([]string, error) {
	escaped := escOpenPattern.ReplaceAllString(text, escOpen)
	escaped = escClosePattern.ReplaceAllString(escaped, escClose)

	alternatives, err := tokenize(escaped)
	if err != nil {
		return nil, err
	}

	results := cartesianJoin(alternatives)
	for i, r := range results {
		results[i] = restoreEscapes(r)
	}
	return results, nil
}

// tokenize scans text left to right and returns an alternating sequence
// of single-element literal runs and multi-element alternative sets.
func tokenize(text string) ([][]string, error) {
	matches := combined.FindAllStringSubmatchIndex(text, -1)
	names := combined.SubexpNames()

	var sets [][]string
	pos := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		sets = append(sets, []string{text[pos:start]})

		matched := text[start:end]
		tmpl, err := templateFor(m, names)
		if err != nil {
			return nil, err
		}
		values, err := tmpl.unfold(matched)
		if err != nil {
			return nil, err
		}
		sets = append(sets, values)
		pos = end
	}
	sets = append(sets, []string{text[pos:]})
	return sets, nil
}

func templateFor(m []int, names []string) (template, error) {
	for i, name := range names {
		if name == "" {
			continue
		}
		// submatch i's bounds live at m[2*i], m[2*i+1]; a group that
		// did not participate in the match has both set to -1.
		if m[2*i] == -1 {
			continue
		}
		var idx int
		if _, err := fmt.Sscanf(name, "g%d", &idx); err != nil {
			return template{}, fmt.Errorf("unfold: internal group name %q", name)
		}
		return templates[idx], nil
	}
	return template{}, fmt.Errorf("unfold: no folded-argument template matched")
}

// cartesianJoin computes the Cartesian product of a sequence of
// alternative sets, joining each combination by concatenation (the sets
// already interleave literal runs and folded alternatives).
func cartesianJoin(sets [][]string) []string {
	results := []string{""}
	for _, set := range sets {
		if len(set) == 0 {
			return nil
		}
		next := make([]string, 0, len(results)*len(set))
		for _, prefix := range results {
			for _, value := range set {
				next = append(next, prefix+value)
			}
		}
		results = next
	}
	return results
}

func restoreEscapes(s string) string {
	s = strings.ReplaceAll(s, escOpen, "[")
	s = strings.ReplaceAll(s, escClose, "]")
	return s
}

func substituteUIDs(commands []string) []string {
	out := make([]string, len(commands))
	for i, c := range commands {
		if strings.Contains(c, UIDTag) {
			uid := command.UID(c)
			c = strings.ReplaceAll(c, UIDTag, uid)
		}
		out[i] = c
	}
	return out
}
