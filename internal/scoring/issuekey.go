package scoring

import (
	"strconv"
	"strings"

	"github.com/raysh454/appreviewer/internal/model"
)

const (
	keySeparator     = "|"
	snippetKeyLength = 50
)

// connectorWords are dropped from titles so "XSS via innerHTML" and
// "XSS using innerHTML" describe the same problem.
var connectorWords = map[string]bool{
	"via":   true,
	"using": true,
}

// normalizeTitle lower-cases and trims the title, turns " - " into a space,
// removes connector words and collapses whitespace.
func normalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = strings.ReplaceAll(t, " - ", " ")

	words := strings.Fields(t)
	kept := words[:0]
	for _, w := range words {
		if connectorWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// IssueKey derives the identity of an issue. Line number and snippet are part of
// the key: the same problem class at a different location is a different issue.
func IssueKey(is model.Issue) string {
	parts := []string{normalizeTitle(is.Title)}
	if is.LineNumber != nil {
		parts = append(parts, "line:"+strconv.Itoa(*is.LineNumber))
	}
	if is.CodeSnippet != nil {
		snippet := []rune(*is.CodeSnippet)
		if len(snippet) > snippetKeyLength {
			snippet = snippet[:snippetKeyLength]
		}
		parts = append(parts, "code:"+string(snippet))
	}
	return strings.Join(parts, keySeparator)
}

// Deduplicate merges issues with equal keys. The first-seen issue keeps its
// fields; later duplicates only contribute their categories. The input is not
// modified and the output preserves first-seen order.
func Deduplicate(issues []model.Issue) []model.Issue {
	out := make([]model.Issue, 0, len(issues))
	index := make(map[string]int, len(issues))

	for _, is := range issues {
		key := IssueKey(is)
		if at, ok := index[key]; ok {
			for _, c := range is.Categories {
				out[at].AddCategory(c)
			}
			continue
		}
		index[key] = len(out)
		out = append(out, is.Clone())
	}
	return out
}

// MergeResults flattens category results in canonical category order, tags each
// issue with its category and deduplicates the lot.
func MergeResults(results map[model.Category]*model.CategoryResult) []model.Issue {
	var all []model.Issue
	for _, c := range model.Categories() {
		res, ok := results[c]
		if !ok || res == nil {
			continue
		}
		for _, is := range res.Issues {
			tagged := is.Clone()
			tagged.AddCategory(c)
			all = append(all, tagged)
		}
	}
	return Deduplicate(all)
}
