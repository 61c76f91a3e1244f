package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/raysh454/appreviewer/internal/model"
)

const maxSnippetLen = 120

// lineRule flags every source line its pattern matches.
type lineRule struct {
	pattern        *regexp.Regexp
	exclude        *regexp.Regexp
	severity       model.Severity
	title          string
	description    string
	recommendation string
	advice         string

	// once reports only the first match, mentioning how many lines matched.
	once bool
}

// scanLines applies rules to src line by line. Single-line comments are
// skipped. It returns the issues and the advice of every rule that fired, in
// rule order.
func scanLines(src string, rules []lineRule) ([]RawIssue, []string) {
	lines := strings.Split(src, "\n")
	var (
		issues []RawIssue
		advice []string
	)
	for _, rule := range rules {
		var (
			first = -1
			count int
		)
		for i, line := range lines {
			if isCommentLine(line) || !rule.pattern.MatchString(line) {
				continue
			}
			if rule.exclude != nil && rule.exclude.MatchString(line) {
				continue
			}
			count++
			if rule.once {
				if first < 0 {
					first = i
				}
				continue
			}
			issues = append(issues, ruleIssue(rule, i, line, rule.description))
		}
		if rule.once && first >= 0 {
			desc := rule.description
			if count > 1 {
				desc += " Found on " + strconv.Itoa(count) + " lines."
			}
			issues = append(issues, ruleIssue(rule, first, lines[first], desc))
		}
		if count > 0 && rule.advice != "" {
			advice = append(advice, rule.advice)
		}
	}
	return issues, advice
}

func ruleIssue(rule lineRule, idx int, line, desc string) RawIssue {
	n := idx + 1
	snippet := snippetOf(line)
	return RawIssue{
		Severity:       string(rule.severity),
		Title:          rule.title,
		Description:    desc,
		LineNumber:     &n,
		CodeSnippet:    &snippet,
		Recommendation: rule.recommendation,
	}
}

func isCommentLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*")
}

func snippetOf(line string) string {
	s := strings.TrimSpace(line)
	if r := []rune(s); len(r) > maxSnippetLen {
		s = string(r[:maxSnippetLen]) + "..."
	}
	return s
}

func lineOf(src string, offset int) int {
	return strings.Count(src[:offset], "\n") + 1
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
