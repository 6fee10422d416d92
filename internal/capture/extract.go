package capture

import (
	"regexp"
	"strconv"
	"strings"
)

// extractionRule is one heuristic for pulling the operands of a failing
// comparison out of an assertion message. Rules are tried in order and the
// first match wins; specific shapes come before the generic equality rule
// so that "assert data['name'] == 'X'" is not swallowed by it.
type extractionRule struct {
	name  string
	re    *regexp.Regexp
	apply func(m []string) (actual, expected any)
}

var extractionRules = []extractionRule{
	{
		name: "subscript-equality",
		re:   regexp.MustCompile(`assert\s+(\w+\[['"].+?['"]\])\s*==\s*(.+)`),
		apply: func(m []string) (any, any) {
			return m[1], stripQuotes(strings.TrimSpace(m[2]))
		},
	},
	{
		name: "length-equality",
		re:   regexp.MustCompile(`assert\s+(len\([^)]+\))\s*==\s*(\d+)`),
		apply: func(m []string) (any, any) {
			n, _ := strconv.Atoi(m[2])
			return m[1], n
		},
	},
	{
		name: "membership",
		re:   regexp.MustCompile(`assert\s+['"](.+?)['"]\s+in\s`),
		apply: func(m []string) (any, any) {
			return nil, m[1]
		},
	},
	{
		name: "equality",
		re:   regexp.MustCompile(`assert\s+(.+?)\s*==\s*(.+)`),
		apply: func(m []string) (any, any) {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		},
	},
}

// ExtractOperands parses the actual and expected operands of a failing
// assertion out of its message. Extraction is best-effort: a message no rule
// matches yields (nil, nil), which is not an error.
func ExtractOperands(message string) (actual, expected any) {
	for _, rule := range extractionRules {
		if m := rule.re.FindStringSubmatch(message); m != nil {
			return rule.apply(m)
		}
	}
	return nil, nil
}

// ExtractFromTraceback applies the extraction rules to each traceback line in
// turn, used as a fallback when the error message itself yields nothing.
func ExtractFromTraceback(traceback string) (actual, expected any) {
	for _, line := range strings.Split(traceback, "\n") {
		if a, e := ExtractOperands(line); a != nil || e != nil {
			return a, e
		}
	}
	return nil, nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
