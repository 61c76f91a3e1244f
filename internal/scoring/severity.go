package scoring

import (
	"sort"

	"github.com/raysh454/appreviewer/internal/model"
)

// Rank returns the sort position of a severity: critical 0 .. low 3.
// Unknown severities rank with low.
func Rank(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 0
	case model.SeverityHigh:
		return 1
	case model.SeverityMedium:
		return 2
	default:
		return 3
	}
}

// SortIssues orders issues in place by severity. The sort is stable, so issues
// of equal severity keep their merge order.
func SortIssues(issues []model.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return Rank(issues[i].Severity) < Rank(issues[j].Severity)
	})
}

// Top returns up to n of the most severe issues without modifying the input.
func Top(issues []model.Issue, n int) []model.Issue {
	sorted := append([]model.Issue(nil), issues...)
	SortIssues(sorted)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
