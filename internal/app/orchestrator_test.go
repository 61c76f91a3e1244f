package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
	"github.com/raysh454/appreviewer/internal/scoring"
	"github.com/raysh454/appreviewer/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func score(n int) *int { return &n }

func newRunOrchestrator(t *testing.T, analyzers ...analyzer.Analyzer) *Orchestrator {
	t.Helper()
	reg, err := analyzer.NewRegistry(analyzers...)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.AnalyzerTimeout = 2 * time.Second
	o, err := NewOrchestrator(cfg, reg, nil, nil, &testutil.DummyLogger{})
	require.NoError(t, err)
	return o
}

func testRequest() model.AnalysisRequest {
	return model.AnalysisRequest{
		Content:  "export const App = () => null;",
		Metadata: model.FileMetadata{ID: "file-1", Name: "App.jsx", Size: 30, Extension: ".jsx"},
	}
}

// recordingSink collects every published snapshot.
type recordingSink struct {
	mu    sync.Mutex
	snaps []progress.Snapshot
}

func (r *recordingSink) sink(s progress.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recordingSink) progressValues() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.Progress
	}
	return out
}

func TestRun_WeightedOverallScore(t *testing.T) {
	t.Parallel()
	o := newRunOrchestrator(t,
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Out: &analyzer.Output{Score: score(80)}},
		&testutil.FakeAnalyzer{Cat: model.CategoryCodeQuality, Out: &analyzer.Output{Score: score(90)}},
		&testutil.FakeAnalyzer{Cat: model.CategoryUIUX, Out: &analyzer.Output{Score: score(70)}},
	)

	report := o.Run(context.Background(), testRequest(), nil)

	assert.Equal(t, 79, report.OverallScore)
	require.Len(t, report.ScoreBreakdown, 3)
	assert.InDelta(t, 28.0, report.ScoreBreakdown[model.CategoryUIUX].WeightedScore, 1e-9)
	assert.Equal(t, "file-1", report.FileID)
	assert.Equal(t, "App.jsx", report.FileName)
	assert.Equal(t, "GOOD: Code is generally solid with some areas for improvement.", report.Recommendations[0])
	assert.Equal(t, "Analysis complete: fair code quality (score: 79/100) with 0 total issue(s) identified.", report.Summary)
	assert.False(t, report.CompletedAt.Before(report.StartedAt))
}

func TestRun_FailureAfterTwoOfThree(t *testing.T) {
	t.Parallel()
	var completed sync.WaitGroup
	completed.Add(2)
	o := newRunOrchestrator(t,
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Out: &analyzer.Output{Score: score(80)}, OnDone: completed.Done},
		&testutil.FakeAnalyzer{Cat: model.CategoryCodeQuality, Out: &analyzer.Output{Score: score(90)}, OnDone: completed.Done},
		&blockingFailure{cat: model.CategoryUIUX, wait: &completed, err: errors.New("model unavailable")},
	)
	rec := &recordingSink{}
	tr := progress.New("file-1", 3, rec.sink)

	report := o.Run(context.Background(), testRequest(), tr)

	require.Len(t, report.ScoreBreakdown, 3)
	assert.GreaterOrEqual(t, report.CriticalIssues, 1)
	assert.Equal(t, 51, report.OverallScore, "round(0.3*80 + 0.3*90 + 0.4*0)")

	ui := report.ScoreBreakdown[model.CategoryUIUX]
	assert.Equal(t, 0, ui.Score)
	assert.Equal(t, 1, ui.IssueCount)
	assert.Equal(t, 1, ui.SeverityCounts[model.SeverityCritical])
	assert.Equal(t, "model unavailable", ui.Error)

	require.NotEmpty(t, report.Issues)
	failed := report.Issues[0]
	assert.Equal(t, "UI/UX Analysis Failed", failed.Title)
	assert.Equal(t, "The ui_ux analyzer encountered an error: model unavailable", failed.Description)
	assert.Contains(t, ui.Recommendations, "Re-run ui_ux analysis after fixing file issues.")

	values := rec.progressValues()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress regressed: %v", values)
	}
	snap := tr.Snapshot()
	assert.Equal(t, 3, snap.AnalyzersCompleted)
	assert.Equal(t, progress.Finalizing, snap.Progress)
	assert.Equal(t, progress.Running, snap.Lifecycle, "Run leaves completion to the caller")
}

// blockingFailure fails only after the other analyzers have completed.
type blockingFailure struct {
	cat  model.Category
	wait *sync.WaitGroup
	err  error
}

func (b *blockingFailure) Category() model.Category { return b.cat }
func (b *blockingFailure) Name() string             { return "blocking failure" }
func (b *blockingFailure) Analyze(context.Context, model.AnalysisRequest) (*analyzer.Output, error) {
	b.wait.Wait()
	return nil, b.err
}

func TestRun_TimeoutBecomesFallback(t *testing.T) {
	t.Parallel()
	reg, err := analyzer.NewRegistry(
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Block: true},
		&testutil.FakeAnalyzer{Cat: model.CategoryCodeQuality},
	)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.AnalyzerTimeout = 50 * time.Millisecond
	o, err := NewOrchestrator(cfg, reg, nil, nil, nil)
	require.NoError(t, err)

	report := o.Run(context.Background(), testRequest(), nil)

	sec := report.ScoreBreakdown[model.CategorySecurity]
	assert.Equal(t, 0, sec.Score)
	assert.Contains(t, sec.Error, ErrAnalyzerTimeout.Error())
	assert.Equal(t, 100, report.ScoreBreakdown[model.CategoryCodeQuality].Score)
}

func TestRun_PanicBecomesFallback(t *testing.T) {
	t.Parallel()
	o := newRunOrchestrator(t,
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Panic: "boom"},
		&testutil.FakeAnalyzer{Cat: model.CategoryUIUX},
	)
	report := o.Run(context.Background(), testRequest(), nil)

	sec := report.ScoreBreakdown[model.CategorySecurity]
	assert.Equal(t, "analyzer panicked: boom", sec.Error)
	assert.Equal(t, 1, report.CriticalIssues)
}

func TestRun_PanicInCompletionCallbackIsContained(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	reg, err := analyzer.NewRegistry(
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Out: &analyzer.Output{Score: score(80)}},
		&testutil.FakeAnalyzer{Cat: model.CategoryCodeQuality, Out: &analyzer.Output{Score: score(90)}},
		&testutil.FakeAnalyzer{Cat: model.CategoryUIUX, Out: &analyzer.Output{Score: score(70)}},
	)
	require.NoError(t, err)
	o, err := NewOrchestrator(DefaultConfig(), reg, nil, nil, logger)
	require.NoError(t, err)

	tr := progress.New("file-1", 3, func(s progress.Snapshot) {
		if s.AnalyzersCompleted == 1 {
			panic("sink exploded")
		}
	})
	report := o.Run(context.Background(), testRequest(), tr)

	require.Len(t, report.ScoreBreakdown, 3)
	assert.Equal(t, 79, report.OverallScore, "finished analyzers keep their results")
	for _, is := range report.Issues {
		assert.NotEqual(t, "Analysis System Error", is.Title)
	}
	assert.Contains(t, logger.Errors, "analyzer task failed")
}

func TestRun_InvalidOutputBecomesFallback(t *testing.T) {
	t.Parallel()
	o := newRunOrchestrator(t, &nilOutputAnalyzer{})
	report := o.Run(context.Background(), testRequest(), nil)
	assert.Equal(t, analyzer.ErrNoOutput.Error(), report.ScoreBreakdown[model.CategoryCodeQuality].Error)
}

type nilOutputAnalyzer struct{}

func (nilOutputAnalyzer) Category() model.Category { return model.CategoryCodeQuality }
func (nilOutputAnalyzer) Name() string             { return "nil output" }
func (nilOutputAnalyzer) Analyze(context.Context, model.AnalysisRequest) (*analyzer.Output, error) {
	return nil, nil
}

func TestRun_MergesEquivalentIssuesAcrossCategories(t *testing.T) {
	t.Parallel()
	line := 12
	o := newRunOrchestrator(t,
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Out: &analyzer.Output{Issues: []analyzer.RawIssue{
			{Severity: "high", Title: "XSS via innerHTML", Description: "first", LineNumber: &line},
		}}},
		&testutil.FakeAnalyzer{Cat: model.CategoryUIUX, Out: &analyzer.Output{Issues: []analyzer.RawIssue{
			{Severity: "low", Title: "XSS using innerHTML", Description: "second", LineNumber: &line},
		}}},
	)
	report := o.Run(context.Background(), testRequest(), nil)

	require.Len(t, report.Issues, 1)
	is := report.Issues[0]
	assert.Equal(t, "first", is.Description)
	assert.Equal(t, model.SeverityHigh, is.Severity)
	assert.Equal(t, []model.Category{model.CategorySecurity, model.CategoryUIUX}, is.Categories)
	assert.Equal(t, 1, report.TotalIssues)
	assert.Equal(t, 1, report.HighIssues)

	// Category breakdowns still count their own findings.
	assert.Equal(t, 1, report.ScoreBreakdown[model.CategoryUIUX].IssueCount)
}

func TestRun_IssuesSortedBySeverity(t *testing.T) {
	t.Parallel()
	o := newRunOrchestrator(t,
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Out: &analyzer.Output{Issues: testutil.IssuesOf(model.SeverityLow, model.SeverityCritical)}},
		&testutil.FakeAnalyzer{Cat: model.CategoryCodeQuality, Out: &analyzer.Output{Issues: testutil.IssuesOf(model.SeverityMedium, model.SeverityHigh)}},
	)
	report := o.Run(context.Background(), testRequest(), nil)

	require.Len(t, report.Issues, 4)
	for i := 1; i < len(report.Issues); i++ {
		assert.LessOrEqual(t, scoring.Rank(report.Issues[i-1].Severity), scoring.Rank(report.Issues[i].Severity))
	}
	assert.Equal(t, 1, report.CriticalIssues)
	assert.Equal(t, 1, report.HighIssues)
	assert.Contains(t, report.Summary, "with 1 critical issue(s) requiring immediate attention")

	var steps []string
	for _, r := range report.Recommendations {
		if strings.HasPrefix(r, "   ") {
			steps = append(steps, strings.TrimSpace(r))
		}
	}
	require.Len(t, steps, 3)
	assert.True(t, strings.HasPrefix(steps[0], "1. "))
	assert.Contains(t, steps[0], "(critical severity)")
	assert.Contains(t, steps[1], "(high severity)")
}

func TestRun_AggregationFailureYieldsMinimalReport(t *testing.T) {
	t.Parallel()
	o := newRunOrchestrator(t, &testutil.FakeAnalyzer{Cat: model.CategorySecurity})
	o.weights = scoring.Weights{model.CategorySecurity: 2}

	report := o.Run(context.Background(), testRequest(), nil)

	assert.Equal(t, 0, report.OverallScore)
	assert.Empty(t, report.ScoreBreakdown)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "Analysis System Error", report.Issues[0].Title)
	assert.Equal(t, []model.Category{model.CategorySystem}, report.Issues[0].Categories)
	assert.Equal(t, 1, report.TotalIssues)
	assert.Equal(t, 1, report.CriticalIssues)
	assert.True(t, strings.HasPrefix(report.Summary, "Analysis failed due to system error: "))
}

func TestOverallRecommendations_Banners(t *testing.T) {
	t.Parallel()
	cases := map[int]string{
		10: "URGENT",
		49: "URGENT",
		50: "IMPORTANT",
		69: "IMPORTANT",
		70: "GOOD",
		84: "GOOD",
		85: "EXCELLENT",
	}
	for overall, want := range cases {
		recs := overallRecommendations(nil, nil, overall)
		require.Len(t, recs, 1)
		assert.True(t, strings.HasPrefix(recs[0], want+":"), "%d: %s", overall, recs[0])
	}
}

func TestOverallRecommendations_CategoryLines(t *testing.T) {
	t.Parallel()
	results := map[model.Category]*model.CategoryResult{
		model.CategorySecurity: {Category: model.CategorySecurity, Score: 80, Issues: []model.Issue{
			{Severity: model.SeverityCritical, Title: "a"},
			{Severity: model.SeverityCritical, Title: "b"},
		}},
		model.CategoryCodeQuality: {Category: model.CategoryCodeQuality, Score: 40},
		model.CategoryUIUX:        {Category: model.CategoryUIUX, Score: 95},
	}
	recs := overallRecommendations(results, nil, 70)
	assert.Equal(t, []string{
		"GOOD: Code is generally solid with some areas for improvement.",
		"Security: 2 critical issue(s) need immediate fixes.",
		"Code Quality: Focus on addressing major concerns to improve score.",
		"UI/UX: Excellent standards maintained.",
	}, recs)
}

func TestSummary_Bands(t *testing.T) {
	t.Parallel()
	assert.Contains(t, summary(90, 0, 0, 0), "excellent")
	assert.Contains(t, summary(80, 0, 0, 0), "good")
	assert.Contains(t, summary(60, 0, 0, 0), "fair")
	assert.Contains(t, summary(59, 0, 0, 0), "poor")
	assert.Equal(t,
		"Analysis complete: good code quality (score: 82/100) with 4 total issue(s) identified with 2 high-priority issue(s) to address.",
		summary(82, 4, 0, 2))
}
