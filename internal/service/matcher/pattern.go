package matcher

import (
	"regexp"
	"strings"
)

// MatchPattern turns a raw medicine name into a regular expression that
// matches the name literally. Surrounding whitespace is dropped.
func MatchPattern(raw string) string {
	return regexp.QuoteMeta(strings.TrimSpace(raw))
}

// compileNames builds one case-insensitive alternation from raw names.
// It returns nil when no name survives trimming.
func compileNames(names []string) *regexp.Regexp {
	patterns := make([]string, 0, len(names))
	for _, name := range names {
		if p := MatchPattern(name); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil
	}
	return regexp.MustCompile("(?i)(?:" + strings.Join(patterns, "|") + ")")
}
