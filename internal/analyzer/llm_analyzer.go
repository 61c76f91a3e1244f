package analyzer

import (
	"context"
	"fmt"

	"github.com/raysh454/appreviewer/internal/llm"
	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/render"
)

const responseSchemaName = "analysis_result"

var analysisSchema = llm.GenerateSchema[responseSchema]()

// LLMAnalyzer asks a language model to review the file along one category.
type LLMAnalyzer struct {
	category model.Category
	client   llm.Client
	renderer render.Renderer
	logger   logging.Logger
}

// NewLLMAnalyzer builds an analyzer for category. renderer is only consulted
// for the UI/UX category and may be nil.
func NewLLMAnalyzer(category model.Category, client llm.Client, renderer render.Renderer, logger logging.Logger) *LLMAnalyzer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LLMAnalyzer{
		category: category,
		client:   client,
		renderer: renderer,
		logger: logger.With(
			logging.Field{Key: "component", Value: "llm_analyzer"},
			logging.Field{Key: "category", Value: string(category)},
		),
	}
}

func (a *LLMAnalyzer) Category() model.Category { return a.category }

func (a *LLMAnalyzer) Name() string { return analyzerName(a.category) }

func (a *LLMAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*Output, error) {
	att := a.render(ctx, req)

	llmReq := llm.Request{
		SystemPrompt: systemPrompt,
		Prompt:       BuildPrompt(a.category, req, att),
		SchemaName:   responseSchemaName,
		Schema:       analysisSchema,
	}
	if att != nil {
		llmReq.Image = att.Image
	}

	a.logger.Info("requesting analysis",
		logging.Field{Key: "file", Value: req.Metadata.Name},
		logging.Field{Key: "model", Value: a.client.Model()},
		logging.Field{Key: "visual", Value: att != nil})

	text, err := a.client.Complete(ctx, llmReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}

	out := ParseResponse(text)
	a.logger.Debug("analysis parsed", logging.Field{Key: "issues", Value: len(out.Issues)})
	return out, nil
}

// render returns nil whenever visual analysis is unavailable, so the analysis
// continues on code alone.
func (a *LLMAnalyzer) render(ctx context.Context, req model.AnalysisRequest) *render.Attachment {
	if a.category != model.CategoryUIUX || a.renderer == nil || !a.renderer.Supports(req.Metadata.Extension) {
		return nil
	}
	att, err := a.renderer.Render(ctx, req)
	if err != nil {
		a.logger.Warn("rendering failed, falling back to code-only analysis", logging.Field{Key: "error", Value: err})
		return nil
	}
	return att
}

func analyzerName(c model.Category) string {
	switch c {
	case model.CategorySecurity:
		return "Security Analyzer"
	case model.CategoryCodeQuality:
		return "Code Quality Analyzer"
	case model.CategoryUIUX:
		return "UI & UX Analyzer"
	}
	return c.Title() + " Analyzer"
}
