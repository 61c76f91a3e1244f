package model

import "time"

// CategoryResult is the validated output of one analyzer. It is immutable once
// the orchestrator has built it.
type CategoryResult struct {
	Category        Category `json:"category"`
	Score           int      `json:"score"`
	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`

	// Error is set only when the analyzer failed and a fallback was substituted.
	Error string `json:"error,omitempty"`
}

// Failed reports whether this result is a fallback for a failed analyzer.
func (r *CategoryResult) Failed() bool { return r.Error != "" }

// SeverityCounts is a histogram of issues per severity.
type SeverityCounts map[Severity]int

// CountSeverities builds a histogram with every severity present (zero when absent).
func CountSeverities(issues []Issue) SeverityCounts {
	counts := SeverityCounts{}
	for _, s := range Severities() {
		counts[s] = 0
	}
	for _, is := range issues {
		if _, ok := counts[is.Severity]; ok {
			counts[is.Severity]++
		}
	}
	return counts
}

// CategoryBreakdown is the derived, per-category part of a report.
type CategoryBreakdown struct {
	Score           int            `json:"score" yaml:"score"`
	Weight          float64        `json:"weight" yaml:"weight"`
	WeightedScore   float64        `json:"weighted_score" yaml:"weighted_score"`
	IssueCount      int            `json:"issue_count" yaml:"issue_count"`
	SeverityCounts  SeverityCounts `json:"severity_breakdown" yaml:"severity_breakdown"`
	Recommendations []string       `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	Error           string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// AnalysisReport is the final aggregate of one run, owned by the caller once returned.
type AnalysisReport struct {
	FileID   string `json:"file_id" yaml:"file_id"`
	FileName string `json:"file_name" yaml:"file_name"`
	FileSize int64  `json:"file_size" yaml:"file_size"`

	// Overall scoring
	OverallScore   int                            `json:"overall_score" yaml:"overall_score"`
	ScoreBreakdown map[Category]CategoryBreakdown `json:"score_breakdown" yaml:"score_breakdown"`

	// Issue summary, computed from the deduplicated list.
	TotalIssues    int `json:"total_issues" yaml:"total_issues"`
	CriticalIssues int `json:"critical_issues" yaml:"critical_issues"`
	HighIssues     int `json:"high_issues" yaml:"high_issues"`

	// Issues are deduplicated and severity-sorted.
	Issues          []Issue  `json:"issues" yaml:"issues"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
	Summary         string   `json:"summary" yaml:"summary"`

	// Timing
	StartedAt       time.Time `json:"analysis_timestamp" yaml:"analysis_timestamp"`
	CompletedAt     time.Time `json:"completed_at" yaml:"completed_at"`
	DurationSeconds float64   `json:"analysis_duration" yaml:"analysis_duration"`
}
