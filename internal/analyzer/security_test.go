package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/model"
)

func jsRequest(src string) model.AnalysisRequest {
	return model.AnalysisRequest{
		Content:  src,
		Metadata: model.FileMetadata{ID: "f1", Name: "app.js", Size: int64(len(src)), Extension: ".js"},
	}
}

func titles(issues []RawIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Title
	}
	return out
}

func TestSecurityAnalyzer_FlagsInjectionAndXSS(t *testing.T) {
	t.Parallel()
	src := strings.Join([]string{
		"const input = location.hash;",
		"eval(input);",
		"el.innerHTML = input;",
		"// eval(commented)",
		`const apiKey = "abcd1234efgh5678";`,
	}, "\n")

	out, err := NewSecurityAnalyzer(nil).Analyze(context.Background(), jsRequest(src))
	require.NoError(t, err)

	got := titles(out.Issues)
	assert.Equal(t, []string{"Code injection via eval()", "XSS via innerHTML", "Hardcoded secret"}, got)

	require.NotNil(t, out.Issues[0].LineNumber)
	assert.Equal(t, 2, *out.Issues[0].LineNumber)
	assert.Equal(t, string(model.SeverityCritical), out.Issues[0].Severity)
	require.NotNil(t, out.Issues[1].LineNumber)
	assert.Equal(t, 3, *out.Issues[1].LineNumber)
	require.NotNil(t, out.Issues[1].CodeSnippet)
	assert.Equal(t, "el.innerHTML = input;", *out.Issues[1].CodeSnippet)

	assert.Contains(t, out.Recommendations, "Remove all dynamic code execution (eval, Function, string timers).")
	assert.Contains(t, out.Recommendations, "Keep credentials out of frontend bundles.")
}

func TestSecurityAnalyzer_InsecureHTTPReportedOnce(t *testing.T) {
	t.Parallel()
	src := strings.Join([]string{
		`fetch("http://api.example.com/a");`,
		`fetch("http://localhost:3000/dev");`,
		`fetch("http://api.example.com/b");`,
	}, "\n")

	out, err := NewSecurityAnalyzer(nil).Analyze(context.Background(), jsRequest(src))
	require.NoError(t, err)
	require.Len(t, out.Issues, 1)

	is := out.Issues[0]
	assert.Equal(t, "Insecure HTTP URL", is.Title)
	require.NotNil(t, is.LineNumber)
	assert.Equal(t, 1, *is.LineNumber)
	assert.Contains(t, is.Description, "Found on 2 lines.")
}

func TestSecurityAnalyzer_CleanFile(t *testing.T) {
	t.Parallel()
	out, err := NewSecurityAnalyzer(nil).Analyze(context.Background(), jsRequest("export const add = (a, b) => a + b;"))
	require.NoError(t, err)
	assert.Empty(t, out.Issues)
	assert.Equal(t, []string{securityCleanAdvice}, out.Recommendations)
}

func TestSecurityAnalyzer_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSecurityAnalyzer(nil).Analyze(ctx, jsRequest("eval(x)"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanLines_AdviceDeduplicated(t *testing.T) {
	t.Parallel()
	src := "eval(a)\nnew Function(b)\n"
	out, err := NewSecurityAnalyzer(nil).Analyze(context.Background(), jsRequest(src))
	require.NoError(t, err)
	assert.Len(t, out.Issues, 2)
	assert.Equal(t, []string{"Remove all dynamic code execution (eval, Function, string timers)."}, out.Recommendations)
}
