package analyzer

import (
	"fmt"

	"github.com/raysh454/appreviewer/internal/llm"
	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/render"
)

const (
	ModeHeuristic = "heuristic"
	ModeLLM       = "llm"
)

// Build returns a registry holding one analyzer per category. Heuristic mode
// needs no client; llm mode requires one. renderer may be nil.
func Build(mode string, client llm.Client, renderer render.Renderer, logger logging.Logger) (*Registry, error) {
	switch mode {
	case "", ModeHeuristic:
		return NewRegistry(
			NewSecurityAnalyzer(logger),
			NewCodeQualityAnalyzer(logger),
			NewUIUXAnalyzer(renderer, logger),
		)
	case ModeLLM:
		if client == nil {
			return nil, fmt.Errorf("analyzer mode %q: %w", mode, llm.ErrNoAPIKey)
		}
		analyzers := make([]Analyzer, 0, len(model.Categories()))
		for _, c := range model.Categories() {
			analyzers = append(analyzers, NewLLMAnalyzer(c, client, renderer, logger))
		}
		return NewRegistry(analyzers...)
	default:
		return nil, fmt.Errorf("unknown analyzer mode %q", mode)
	}
}
