package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/model"
)

type stubAnalyzer struct {
	cat model.Category
}

func (s stubAnalyzer) Category() model.Category { return s.cat }
func (s stubAnalyzer) Name() string             { return "stub " + string(s.cat) }
func (s stubAnalyzer) Analyze(context.Context, model.AnalysisRequest) (*Output, error) {
	return &Output{}, nil
}

func TestValidate_NormalizesRawIssues(t *testing.T) {
	t.Parallel()
	blank := "   "
	out := &Output{
		Issues: []RawIssue{
			{Severity: "CRITICAL", Title: " eval usage ", LineNumber: model.Line(4), CodeSnippet: model.Snippet("eval(x)")},
			{Severity: "bogus", Title: "", LineNumber: model.Line(0), CodeSnippet: &blank},
		},
		Recommendations: []string{"  fix it  ", ""},
	}

	res, err := Validate(model.CategorySecurity, out)
	require.NoError(t, err)
	require.Len(t, res.Issues, 2)

	first, second := res.Issues[0], res.Issues[1]
	assert.Equal(t, model.SeverityCritical, first.Severity)
	assert.Equal(t, "eval usage", first.Title)
	require.NotNil(t, first.LineNumber)
	assert.Equal(t, 4, *first.LineNumber)
	assert.Equal(t, []model.Category{model.CategorySecurity}, first.Categories)

	assert.Equal(t, model.SeverityMedium, second.Severity)
	assert.Equal(t, untitledIssue, second.Title)
	assert.Nil(t, second.LineNumber)
	assert.Nil(t, second.CodeSnippet)

	assert.Equal(t, []string{"fix it"}, res.Recommendations)
	assert.Equal(t, 75, res.Score, "critical + medium deducts 25")
}

func TestValidate_ExplicitScoreIsClamped(t *testing.T) {
	t.Parallel()
	high, low := 150, -3
	res, err := Validate(model.CategoryUIUX, &Output{Score: &high})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)

	res, err = Validate(model.CategoryUIUX, &Output{Score: &low})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
}

func TestValidate_NilOutput(t *testing.T) {
	t.Parallel()
	_, err := Validate(model.CategorySecurity, nil)
	assert.True(t, errors.Is(err, ErrNoOutput))
}

func TestRegistry_CanonicalOrder(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry(
		stubAnalyzer{model.CategoryUIUX},
		stubAnalyzer{model.CategorySecurity},
		stubAnalyzer{model.CategoryCodeQuality},
	)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	var got []model.Category
	for _, a := range r.Analyzers() {
		got = append(got, a.Category())
	}
	assert.Equal(t, model.Categories(), got)

	a, ok := r.Get(model.CategoryUIUX)
	require.True(t, ok)
	assert.Equal(t, "stub ui_ux", a.Name())
}

func TestRegistry_RejectsUnknownAndDuplicate(t *testing.T) {
	t.Parallel()
	_, err := NewRegistry(stubAnalyzer{model.CategorySystem})
	require.Error(t, err)

	_, err = NewRegistry(stubAnalyzer{model.CategorySecurity}, stubAnalyzer{model.CategorySecurity})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already handled")
}

func TestBuild_Modes(t *testing.T) {
	t.Parallel()
	r, err := Build(ModeHeuristic, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	_, ok := r.Analyzers()[2].(*UIUXAnalyzer)
	assert.True(t, ok)

	_, err = Build(ModeLLM, nil, nil, nil)
	require.Error(t, err)

	_, err = Build("magic", nil, nil, nil)
	require.Error(t, err)
}
