// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without network, browser or
// model access.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/llm"
	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/render"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of warnings logged so far.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── Analyzer ──────────────────────────────────────────────────────────

// FakeAnalyzer implements analyzer.Analyzer.
// It returns Out (or an empty output) after Delay. Err and Panic force a
// failure. When Block is set it waits for the context to end and ignores
// Delay, simulating an analyzer that never returns on its own.
type FakeAnalyzer struct {
	Cat   model.Category
	Out   *analyzer.Output
	Err   error
	Panic any
	Delay time.Duration
	Block bool

	// OnDone, if set, is called after Analyze returns successfully.
	OnDone func()

	mu    sync.Mutex
	calls int
}

func (f *FakeAnalyzer) Category() model.Category { return f.Cat }

func (f *FakeAnalyzer) Name() string { return "fake " + string(f.Cat) }

func (f *FakeAnalyzer) Analyze(ctx context.Context, _ model.AnalysisRequest) (*analyzer.Output, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Panic != nil {
		panic(f.Panic)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.OnDone != nil {
		defer f.OnDone()
	}
	if f.Out != nil {
		return f.Out, nil
	}
	return &analyzer.Output{}, nil
}

// Calls returns how many times Analyze was invoked.
func (f *FakeAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// IssuesOf builds raw issues with the given severities.
func IssuesOf(severities ...model.Severity) []analyzer.RawIssue {
	out := make([]analyzer.RawIssue, len(severities))
	for i, s := range severities {
		out[i] = analyzer.RawIssue{
			Severity:    string(s),
			Title:       string(s) + " issue " + string(rune('A'+i)),
			Description: "synthetic",
		}
	}
	return out
}

// ─── Renderer ──────────────────────────────────────────────────────────

// FakeRenderer implements render.Renderer. It supports .js files unless
// Extensions is set.
type FakeRenderer struct {
	Attachment *render.Attachment
	Err        error
	Extensions []string

	mu      sync.Mutex
	Renders int
}

func (f *FakeRenderer) Supports(ext string) bool {
	if f.Extensions == nil {
		return ext == ".js"
	}
	for _, e := range f.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (f *FakeRenderer) Render(_ context.Context, _ model.AnalysisRequest) (*render.Attachment, error) {
	f.mu.Lock()
	f.Renders++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Attachment == nil {
		return nil, errors.New("fake renderer: no attachment configured")
	}
	return f.Attachment, nil
}

// ─── LLM ───────────────────────────────────────────────────────────────

// FakeLLM implements llm.Client, replying with Response and recording every
// request.
type FakeLLM struct {
	Response string
	Err      error

	mu       sync.Mutex
	Requests []llm.Request
}

func (f *FakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}

func (f *FakeLLM) Model() string { return "fake-model" }

// LastRequest returns the most recent request, or false if none was made.
func (f *FakeLLM) LastRequest() (llm.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return llm.Request{}, false
	}
	return f.Requests[len(f.Requests)-1], true
}
