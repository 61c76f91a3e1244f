package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/model"
)

func analyzeQuality(t *testing.T, src, ext string) *Output {
	t.Helper()
	req := jsRequest(src)
	req.Metadata.Extension = ext
	out, err := NewCodeQualityAnalyzer(nil).Analyze(context.Background(), req)
	require.NoError(t, err)
	return out
}

func issueByTitle(issues []RawIssue, title string) (RawIssue, bool) {
	for _, is := range issues {
		if is.Title == title {
			return is, true
		}
	}
	return RawIssue{}, false
}

func TestCodeQuality_CommonSmells(t *testing.T) {
	t.Parallel()
	src := strings.Join([]string{
		"var count = 0;",
		"var other = 1;",
		"function check(a) {",
		"  if (a == 1) {",
		"    console.log(a);",
		"  }",
		"  try { run(); } catch (e) {}",
		"  debugger;",
		"  // TODO: handle the zero case",
		"}",
	}, "\n")

	out := analyzeQuality(t, src, ".js")

	vars, ok := issueByTitle(out.Issues, "Use of var")
	require.True(t, ok)
	require.NotNil(t, vars.LineNumber)
	assert.Equal(t, 1, *vars.LineNumber)
	assert.Contains(t, vars.Description, "2 var declarations")

	for _, title := range []string{
		"Loose equality comparison",
		"Console statements left in code",
		"Empty catch block",
		"Debugger statement",
		"Unfinished work markers",
	} {
		_, ok := issueByTitle(out.Issues, title)
		assert.True(t, ok, title)
	}
	_, ok = issueByTitle(out.Issues, "Syntax error")
	assert.False(t, ok)

	assert.Contains(t, out.Recommendations, "Add a linter (ESLint) to the build to catch common mistakes automatically.")
}

func TestCodeQuality_SyntaxError(t *testing.T) {
	t.Parallel()
	out := analyzeQuality(t, "function broken( {\n  return 1\n", ".js")
	is, ok := issueByTitle(out.Issues, "Syntax error")
	require.True(t, ok)
	assert.Equal(t, string(model.SeverityCritical), is.Severity)
	assert.Contains(t, out.Recommendations, "Make sure the file builds cleanly before reviewing anything else.")
}

func TestCodeQuality_LongFunctionAndDeepNesting(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString("function big(a) {\n")
	for i := 0; i < maxFunctionLines+5; i++ {
		fmt.Fprintf(&b, "  const v%d = a + %d;\n", i, i)
	}
	b.WriteString("  if (a) {\n    if (a > 1) {\n      if (a > 2) {\n        if (a > 3) {\n          if (a > 4) {\n            return a;\n          }\n        }\n      }\n    }\n  }\n")
	b.WriteString("  return 0;\n}\n")

	out := analyzeQuality(t, b.String(), ".js")

	long, ok := issueByTitle(out.Issues, "Long function")
	require.True(t, ok)
	require.NotNil(t, long.LineNumber)
	assert.Equal(t, 1, *long.LineNumber)

	deep, ok := issueByTitle(out.Issues, "Deeply nested logic")
	require.True(t, ok)
	require.NotNil(t, deep.LineNumber)
	assert.Equal(t, maxFunctionLines+5+6, *deep.LineNumber, "the fifth if is the first too deep")
}

func TestCodeQuality_NestingResetsPerFunction(t *testing.T) {
	t.Parallel()
	src := `if (a) {
  if (b) {
    if (c) {
      const f = () => {
        if (d) {
          if (e) { return 1; }
        }
      };
    }
  }
}`
	out := analyzeQuality(t, src, ".js")
	_, ok := issueByTitle(out.Issues, "Deeply nested logic")
	assert.False(t, ok)
}

func TestCodeQuality_TypeScriptAny(t *testing.T) {
	t.Parallel()
	out := analyzeQuality(t, "export function id(x: any): any {\n  return x;\n}\n", ".ts")
	is, ok := issueByTitle(out.Issues, "Use of any type")
	require.True(t, ok)
	assert.Contains(t, is.Description, "2 any annotations")
	assert.Contains(t, out.Recommendations, "Tighten TypeScript types to get value from the compiler.")
}

func TestCodeQuality_TSX(t *testing.T) {
	t.Parallel()
	src := "export const App = () => {\n  return <div className=\"app\">Hello</div>;\n};\n"
	out := analyzeQuality(t, src, ".tsx")
	assert.Empty(t, out.Issues)
	assert.Equal(t, []string{"Code structure looks healthy. Keep functions small and typed."}, out.Recommendations)
}
