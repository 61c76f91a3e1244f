// Package app wires analyzers, uploads and the status registry into analysis
// runs and background jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
	"github.com/raysh454/appreviewer/internal/scoring"
	"github.com/raysh454/appreviewer/internal/status"
	"github.com/raysh454/appreviewer/internal/upload"
)

// ErrAnalyzerTimeout is the failure reason of an analyzer that did not return
// before its deadline.
var ErrAnalyzerTimeout = errors.New("analyzer timed out")

// Orchestrator runs every registered analyzer against a file and turns their
// outcomes into one report. It also manages background analysis jobs.
type Orchestrator struct {
	cfg       *Config
	analyzers *analyzer.Registry
	weights   scoring.Weights
	files     *upload.Store
	statuses  status.Store
	logger    logging.Logger
	now       func() time.Time

	startMu sync.Mutex
	jobsMu  sync.Mutex
	jobs    map[string]*Job
	running sync.WaitGroup
}

// NewOrchestrator ties together config, analyzers and stores. files and
// statuses may be nil when only Run is used.
func NewOrchestrator(cfg *Config, analyzers *analyzer.Registry, files *upload.Store, statuses status.Store, logger logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if analyzers == nil || analyzers.Len() == 0 {
		return nil, fmt.Errorf("no analyzers registered")
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = status.NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Orchestrator{
		cfg:       cfg,
		analyzers: analyzers,
		weights:   cfg.Weights,
		files:     files,
		statuses:  statuses,
		logger:    logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		now:       func() time.Time { return time.Now().UTC() },
		jobs:      make(map[string]*Job),
	}, nil
}

// TotalAnalyzers is the number of analyzers every run waits for.
func (o *Orchestrator) TotalAnalyzers() int { return o.analyzers.Len() }

// Run analyzes req and always returns a well-formed report. Analyzer failures
// become fallback results; a failure outside the analyzers yields a minimal
// error report. tr may be nil; Run never completes or fails it.
func (o *Orchestrator) Run(ctx context.Context, req model.AnalysisRequest, tr *progress.Tracker) (report *model.AnalysisReport) {
	started := o.now()
	if tr == nil {
		tr = progress.New(req.Metadata.ID, o.analyzers.Len(), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during aggregation: %v", r)
			o.logger.Error("critical error during analysis orchestration",
				logging.Field{Key: "file", Value: req.Metadata.Name},
				logging.Field{Key: "error", Value: err})
			report = errorReport(req, err, started, o.now())
		}
	}()

	o.logger.Info("starting analysis",
		logging.Field{Key: "file", Value: req.Metadata.Name},
		logging.Field{Key: "analyzers", Value: o.analyzers.Len()})
	tr.Start("Running analyzers...")

	results := o.runAnalyzers(ctx, req, tr)

	report, err := o.aggregate(req, results, started, tr)
	if err != nil {
		o.logger.Error("critical error during analysis orchestration",
			logging.Field{Key: "file", Value: req.Metadata.Name},
			logging.Field{Key: "error", Value: err})
		return errorReport(req, err, started, o.now())
	}

	o.logger.Info("analysis completed",
		logging.Field{Key: "file", Value: req.Metadata.Name},
		logging.Field{Key: "overall_score", Value: report.OverallScore},
		logging.Field{Key: "duration_s", Value: report.DurationSeconds})
	return report
}

// runAnalyzers fans out one goroutine per analyzer. Every task writes its own
// slot and returns nil, so one failure never stops the others.
func (o *Orchestrator) runAnalyzers(ctx context.Context, req model.AnalysisRequest, tr *progress.Tracker) map[model.Category]*model.CategoryResult {
	analyzers := o.analyzers.Analyzers()
	outcomes := make([]*model.CategoryResult, len(analyzers))

	var g errgroup.Group
	for i, a := range analyzers {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("analysis task panicked: %v", r)
					o.logger.Error("analyzer task failed",
						logging.Field{Key: "category", Value: string(a.Category())},
						logging.Field{Key: "error", Value: err})
					if outcomes[i] == nil {
						outcomes[i] = fallbackResult(a.Category(), err)
					}
				}
			}()
			res := o.runAnalyzer(ctx, a, req)
			outcomes[i] = res

			msg := fmt.Sprintf("%s analysis complete", a.Category().Title())
			if res.Failed() {
				msg = fmt.Sprintf("%s analysis failed", a.Category().Title())
			}
			tr.Completed(a.Category(), msg)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[model.Category]*model.CategoryResult, len(outcomes))
	for _, res := range outcomes {
		results[res.Category] = res
	}
	return results
}

type analyzerOutcome struct {
	out *analyzer.Output
	err error
}

// runAnalyzer calls a under a watchdog. An analyzer that ignores its context
// is abandoned when the deadline passes; its late result is dropped.
func (o *Orchestrator) runAnalyzer(ctx context.Context, a analyzer.Analyzer, req model.AnalysisRequest) *model.CategoryResult {
	category := a.Category()
	logger := o.logger.With(logging.Field{Key: "category", Value: string(category)})
	started := time.Now()

	actx, cancel := context.WithTimeout(ctx, o.cfg.AnalyzerTimeout)
	defer cancel()

	done := make(chan analyzerOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- analyzerOutcome{err: fmt.Errorf("analyzer panicked: %v", r)}
			}
		}()
		out, err := a.Analyze(actx, req)
		done <- analyzerOutcome{out: out, err: err}
	}()

	var oc analyzerOutcome
	select {
	case oc = <-done:
	case <-actx.Done():
		if ctx.Err() != nil {
			oc.err = ctx.Err()
		} else {
			oc.err = fmt.Errorf("%w after %s", ErrAnalyzerTimeout, o.cfg.AnalyzerTimeout)
		}
	}

	if oc.err == nil {
		res, err := analyzer.Validate(category, oc.out)
		if err == nil {
			logger.Debug("analyzer finished",
				logging.Field{Key: "score", Value: res.Score},
				logging.Field{Key: "issues", Value: len(res.Issues)},
				logging.Field{Key: "duration", Value: time.Since(started)})
			return res
		}
		oc.err = err
	}

	logger.Error("analyzer failed", logging.Field{Key: "error", Value: oc.err})
	return fallbackResult(category, oc.err)
}

// fallbackResult stands in for a failed analyzer: score 0 and one critical
// issue carrying the reason.
func fallbackResult(c model.Category, err error) *model.CategoryResult {
	reason := err.Error()
	return &model.CategoryResult{
		Category: c,
		Score:    0,
		Issues: []model.Issue{{
			Severity:       model.SeverityCritical,
			Title:          c.Title() + " Analysis Failed",
			Description:    fmt.Sprintf("The %s analyzer encountered an error: %s", c, reason),
			Recommendation: "Please check the file format and try again. Contact support if the issue persists.",
			Categories:     []model.Category{c},
		}},
		Recommendations: []string{fmt.Sprintf("Re-run %s analysis after fixing file issues.", c)},
		Error:           reason,
	}
}
