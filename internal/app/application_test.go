package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
	"github.com/raysh454/appreviewer/internal/status"
	"github.com/raysh454/appreviewer/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.UploadDir = filepath.Join(dir, "files")
	cfg.DatabasePath = filepath.Join(dir, "appreviewer.db")
	return cfg
}

func TestNewApplication_HeuristicEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, err := NewApplication(ctx, testConfig(t), &testutil.DummyLogger{})
	require.NoError(t, err)

	comps := a.Components
	assert.IsType(t, &status.MemoryStore{}, comps.Statuses)
	assert.Nil(t, comps.Renderer)
	assert.Nil(t, comps.LLM)
	assert.Equal(t, 3, a.Orchestrator().TotalAnalyzers())

	f, err := comps.Files.Save(ctx, "App.jsx", []byte(`export default function App() {
  const el = document.getElementById("out");
  el.innerHTML = window.location.hash;
  return <img src="logo.png" />;
}
`))
	require.NoError(t, err)

	job, err := a.Orchestrator().StartAnalysis(ctx, f.ID)
	require.NoError(t, err)
	drain(t, job)

	entry, err := a.Orchestrator().Status(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.Completed, entry.Status)
	require.NotNil(t, entry.Result)
	assert.Len(t, entry.Result.ScoreBreakdown, 3)
	assert.Less(t, entry.Result.OverallScore, 100)
	assert.Positive(t, entry.Result.ScoreBreakdown[model.CategorySecurity].IssueCount)

	require.NoError(t, a.Shutdown(ctx))
}

func TestNewComponents_LLMModeNeedsKey(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.AnalyzerMode = analyzer.ModeLLM

	_, err := NewComponents(context.Background(), cfg, nil)
	assert.Error(t, err)
}
