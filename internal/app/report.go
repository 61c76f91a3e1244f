package app

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
	"github.com/raysh454/appreviewer/internal/scoring"
)

const topIssueCount = 3

var errNoResults = errors.New("no analyzer results to aggregate")

// aggregate merges category results into the final report, reporting the
// post-analysis checkpoints on tr.
func (o *Orchestrator) aggregate(req model.AnalysisRequest, results map[model.Category]*model.CategoryResult, started time.Time, tr *progress.Tracker) (*model.AnalysisReport, error) {
	if len(results) == 0 {
		return nil, errNoResults
	}
	if err := o.weights.Validate(); err != nil {
		return nil, err
	}

	tr.Report(progress.Merging, "Merging findings...")
	issues := scoring.MergeResults(results)
	scoring.SortIssues(issues)

	tr.Report(progress.Scoring, "Calculating scores...")
	scores := make(map[model.Category]int, len(results))
	breakdown := make(map[model.Category]model.CategoryBreakdown, len(results))
	for _, c := range model.Categories() {
		res, ok := results[c]
		if !ok {
			continue
		}
		scores[c] = res.Score
		breakdown[c] = o.weights.Breakdown(res)
	}
	overall := o.weights.Overall(scores)

	tr.Report(progress.Finalizing, "Preparing report...")
	counts := model.CountSeverities(issues)
	completed := o.now()

	return &model.AnalysisReport{
		FileID:          req.Metadata.ID,
		FileName:        req.Metadata.Name,
		FileSize:        req.Metadata.Size,
		OverallScore:    overall,
		ScoreBreakdown:  breakdown,
		TotalIssues:     len(issues),
		CriticalIssues:  counts[model.SeverityCritical],
		HighIssues:      counts[model.SeverityHigh],
		Issues:          issues,
		Recommendations: overallRecommendations(results, issues, overall),
		Summary:         summary(overall, len(issues), counts[model.SeverityCritical], counts[model.SeverityHigh]),
		StartedAt:       started,
		CompletedAt:     completed,
		DurationSeconds: durationSeconds(started, completed),
	}, nil
}

// overallRecommendations returns a priority banner, one line per category
// that needs attention or deserves praise, then the top issues to fix.
func overallRecommendations(results map[model.Category]*model.CategoryResult, issues []model.Issue, overall int) []string {
	var recs []string
	switch {
	case overall < 50:
		recs = append(recs, "URGENT: This code has critical issues that need immediate attention before deployment.")
	case overall < 70:
		recs = append(recs, "IMPORTANT: Address high-priority issues to improve code quality and security.")
	case overall < 85:
		recs = append(recs, "GOOD: Code is generally solid with some areas for improvement.")
	default:
		recs = append(recs, "EXCELLENT: High-quality code with minimal issues.")
	}

	for _, c := range model.Categories() {
		res, ok := results[c]
		if !ok {
			continue
		}
		critical := model.CountSeverities(res.Issues)[model.SeverityCritical]
		switch {
		case critical > 0:
			recs = append(recs, fmt.Sprintf("%s: %d critical issue(s) need immediate fixes.", c.Title(), critical))
		case res.Score < 60:
			recs = append(recs, fmt.Sprintf("%s: Focus on addressing major concerns to improve score.", c.Title()))
		case res.Score >= 90:
			recs = append(recs, fmt.Sprintf("%s: Excellent standards maintained.", c.Title()))
		}
	}

	if top := scoring.Top(issues, topIssueCount); len(top) > 0 {
		recs = append(recs, fmt.Sprintf("Next Steps: Start by addressing the top %d highest-priority issues:", len(top)))
		for i, is := range top {
			recs = append(recs, fmt.Sprintf("   %d. %s (%s severity)", i+1, is.Title, is.Severity))
		}
	}
	return recs
}

func qualityBand(overall int) string {
	switch {
	case overall >= 90:
		return "excellent"
	case overall >= 80:
		return "good"
	case overall >= 60:
		return "fair"
	default:
		return "poor"
	}
}

func summary(overall, total, critical, high int) string {
	priority := ""
	switch {
	case critical > 0:
		priority = fmt.Sprintf(" with %d critical issue(s) requiring immediate attention", critical)
	case high > 0:
		priority = fmt.Sprintf(" with %d high-priority issue(s) to address", high)
	}
	return fmt.Sprintf("Analysis complete: %s code quality (score: %d/100) with %d total issue(s) identified%s.",
		qualityBand(overall), overall, total, priority)
}

// errorReport is the minimal report returned when aggregation itself fails.
func errorReport(req model.AnalysisRequest, err error, started, completed time.Time) *model.AnalysisReport {
	return &model.AnalysisReport{
		FileID:         req.Metadata.ID,
		FileName:       req.Metadata.Name,
		FileSize:       req.Metadata.Size,
		OverallScore:   0,
		ScoreBreakdown: map[model.Category]model.CategoryBreakdown{},
		TotalIssues:    1,
		CriticalIssues: 1,
		Issues: []model.Issue{{
			Severity:       model.SeverityCritical,
			Title:          "Analysis System Error",
			Description:    "The analysis system encountered a critical error: " + err.Error(),
			Recommendation: "Please try uploading the file again or contact support if the issue persists.",
			Categories:     []model.Category{model.CategorySystem},
		}},
		Recommendations: []string{"Re-upload the file and try analysis again."},
		Summary:         "Analysis failed due to system error: " + err.Error(),
		StartedAt:       started,
		CompletedAt:     completed,
		DurationSeconds: durationSeconds(started, completed),
	}
}

func durationSeconds(started, completed time.Time) float64 {
	return math.Round(completed.Sub(started).Seconds()*100) / 100
}
