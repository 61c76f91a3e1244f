package analyzer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/render"
	"github.com/raysh454/appreviewer/internal/testutil"
)

const llmReply = "```json\n" + `{"issues": [{"severity": "high", "title": "XSS via innerHTML", "description": "d", "line_number": 3, "recommendation": "r"}], "recommendations": ["Escape output"]}` + "\n```"

func request() model.AnalysisRequest {
	return model.AnalysisRequest{
		Content:  "document.body.innerHTML = location.hash;",
		Metadata: model.FileMetadata{ID: "f1", Name: "app.js", Size: 40, Extension: ".js"},
	}
}

func TestLLMAnalyzer_ParsesReply(t *testing.T) {
	t.Parallel()
	client := &testutil.FakeLLM{Response: llmReply}
	a := analyzer.NewLLMAnalyzer(model.CategorySecurity, client, nil, &testutil.DummyLogger{})

	out, err := a.Analyze(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "XSS via innerHTML", out.Issues[0].Title)
	assert.Equal(t, []string{"Escape output"}, out.Recommendations)

	req, ok := client.LastRequest()
	require.True(t, ok)
	assert.Contains(t, req.Prompt, "document.body.innerHTML = location.hash;")
	assert.Contains(t, req.Prompt, "security issues")
	assert.NotEmpty(t, req.SystemPrompt)
	assert.Equal(t, "analysis_result", req.SchemaName)
	assert.NotNil(t, req.Schema)
	assert.Nil(t, req.Image)
}

func TestLLMAnalyzer_OnlyUIUXRenders(t *testing.T) {
	t.Parallel()
	renderer := &testutil.FakeRenderer{Attachment: &render.Attachment{
		Image:   []byte{0x89, 'P', 'N', 'G'},
		Metrics: &render.VisualMetrics{Width: 350, Height: 600, ComplexityLevel: "low"},
	}}
	client := &testutil.FakeLLM{Response: llmReply}

	sec := analyzer.NewLLMAnalyzer(model.CategorySecurity, client, renderer, nil)
	_, err := sec.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, 0, renderer.Renders)

	ui := analyzer.NewLLMAnalyzer(model.CategoryUIUX, client, renderer, nil)
	_, err = ui.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.Renders)

	req, ok := client.LastRequest()
	require.True(t, ok)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, req.Image)
	assert.Contains(t, req.Prompt, "Dimensions: 350x600")
}

func TestLLMAnalyzer_RenderFailureFallsBack(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	renderer := &testutil.FakeRenderer{Err: errors.New("no browser")}
	client := &testutil.FakeLLM{Response: llmReply}

	a := analyzer.NewLLMAnalyzer(model.CategoryUIUX, client, renderer, logger)
	out, err := a.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Len(t, out.Issues, 1)
	assert.Equal(t, 1, logger.WarnCount())

	req, _ := client.LastRequest()
	assert.Nil(t, req.Image)
	assert.NotContains(t, req.Prompt, "Rendered App")
}

func TestLLMAnalyzer_UnsupportedExtensionSkipsRender(t *testing.T) {
	t.Parallel()
	renderer := &testutil.FakeRenderer{Err: errors.New("should not be called")}
	a := analyzer.NewLLMAnalyzer(model.CategoryUIUX, &testutil.FakeLLM{Response: "{}"}, renderer, nil)

	req := request()
	req.Metadata.Extension = ".tsx"
	_, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, renderer.Renders)
}

func TestLLMAnalyzer_ClientErrorIsWrapped(t *testing.T) {
	t.Parallel()
	boom := errors.New("rate limited")
	a := analyzer.NewLLMAnalyzer(model.CategoryCodeQuality, &testutil.FakeLLM{Err: boom}, nil, nil)

	_, err := a.Analyze(context.Background(), request())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Code Quality Analyzer")
}

func TestLLMAnalyzer_MalformedReplyIsNotAnError(t *testing.T) {
	t.Parallel()
	a := analyzer.NewLLMAnalyzer(model.CategorySecurity, &testutil.FakeLLM{Response: "sorry, I can't"}, nil, nil)
	out, err := a.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Empty(t, out.Issues)
	assert.Equal(t, []string{analyzer.ParsingErrorRecommendation}, out.Recommendations)

	res, err := analyzer.Validate(model.CategorySecurity, out)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
}

func TestBuild_LLMMode(t *testing.T) {
	t.Parallel()
	reg, err := analyzer.Build(analyzer.ModeLLM, &testutil.FakeLLM{}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())
	for _, a := range reg.Analyzers() {
		_, ok := a.(*analyzer.LLMAnalyzer)
		assert.True(t, ok, a.Name())
	}
}
