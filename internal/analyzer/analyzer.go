// Package analyzer holds the per-category analyzers and the trust boundary
// between their raw output and the orchestrator.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/scoring"
)

// Analyzer examines a file along one category.
type Analyzer interface {
	Category() model.Category
	Name() string
	Analyze(ctx context.Context, req model.AnalysisRequest) (*Output, error)
}

// Output is the untrusted result of an analyzer. A nil Score means the score
// is derived from the issues.
type Output struct {
	Score           *int       `json:"score,omitempty"`
	Issues          []RawIssue `json:"issues"`
	Recommendations []string   `json:"recommendations"`
}

// RawIssue is an issue as reported by an analyzer, before normalization.
type RawIssue struct {
	Severity       string  `json:"severity"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	LineNumber     *int    `json:"line_number,omitempty"`
	CodeSnippet    *string `json:"code_snippet,omitempty"`
	Recommendation string  `json:"recommendation"`
}

// ErrNoOutput is returned by Validate for a nil output.
var ErrNoOutput = errors.New("analyzer returned no output")

const untitledIssue = "Untitled issue"

// Validate turns raw output into a CategoryResult. Unknown severities become
// medium, non-positive line numbers and blank snippets are dropped, every
// issue is tagged with category and the score is clamped to [0,100].
func Validate(category model.Category, out *Output) (*model.CategoryResult, error) {
	if out == nil {
		return nil, ErrNoOutput
	}

	issues := make([]model.Issue, 0, len(out.Issues))
	for _, raw := range out.Issues {
		sev, _ := model.ParseSeverity(raw.Severity)
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			title = untitledIssue
		}
		is := model.Issue{
			Severity:       sev,
			Title:          title,
			Description:    strings.TrimSpace(raw.Description),
			Recommendation: strings.TrimSpace(raw.Recommendation),
			Categories:     []model.Category{category},
		}
		if raw.LineNumber != nil && *raw.LineNumber > 0 {
			is.LineNumber = model.Line(*raw.LineNumber)
		}
		if raw.CodeSnippet != nil && strings.TrimSpace(*raw.CodeSnippet) != "" {
			is.CodeSnippet = model.Snippet(*raw.CodeSnippet)
		}
		issues = append(issues, is)
	}

	recs := make([]string, 0, len(out.Recommendations))
	for _, r := range out.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			recs = append(recs, r)
		}
	}

	score := scoring.CategoryScore(issues)
	if out.Score != nil {
		score = scoring.ClampScore(*out.Score)
	}

	return &model.CategoryResult{
		Category:        category,
		Score:           score,
		Issues:          issues,
		Recommendations: recs,
	}, nil
}

// Registry is the closed table of analyzers, at most one per category.
type Registry struct {
	analyzers map[model.Category]Analyzer
}

// NewRegistry registers analyzers. Analyzers for categories outside the closed
// set, or a second analyzer for a category, are rejected.
func NewRegistry(analyzers ...Analyzer) (*Registry, error) {
	r := &Registry{analyzers: make(map[model.Category]Analyzer, len(analyzers))}
	for _, a := range analyzers {
		c := a.Category()
		if !c.Valid() {
			return nil, fmt.Errorf("analyzer %q: unknown category %q", a.Name(), c)
		}
		if prev, ok := r.analyzers[c]; ok {
			return nil, fmt.Errorf("analyzer %q: category %s already handled by %q", a.Name(), c, prev.Name())
		}
		r.analyzers[c] = a
	}
	return r, nil
}

// Analyzers returns the registered analyzers in canonical category order.
func (r *Registry) Analyzers() []Analyzer {
	out := make([]Analyzer, 0, len(r.analyzers))
	for _, c := range model.Categories() {
		if a, ok := r.analyzers[c]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (r *Registry) Get(c model.Category) (Analyzer, bool) {
	a, ok := r.analyzers[c]
	return a, ok
}

func (r *Registry) Len() int { return len(r.analyzers) }
