package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
	"github.com/raysh454/appreviewer/internal/status"
	"github.com/raysh454/appreviewer/internal/testutil"
	"github.com/raysh454/appreviewer/internal/upload"
)

type jobFixture struct {
	o     *Orchestrator
	files *upload.Store
}

func newJobFixture(t *testing.T, delay time.Duration) *jobFixture {
	t.Helper()
	dir := t.TempDir()
	files, err := upload.Open(context.Background(), filepath.Join(dir, "uploads.db"), filepath.Join(dir, "files"), upload.Validator{}, &testutil.DummyLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })

	reg, err := analyzer.NewRegistry(
		&testutil.FakeAnalyzer{Cat: model.CategorySecurity, Delay: delay, Out: &analyzer.Output{Issues: testutil.IssuesOf(model.SeverityHigh)}},
		&testutil.FakeAnalyzer{Cat: model.CategoryCodeQuality, Delay: delay},
		&testutil.FakeAnalyzer{Cat: model.CategoryUIUX, Delay: delay},
	)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.AnalyzerTimeout = 5 * time.Second
	o, err := NewOrchestrator(cfg, reg, files, status.NewMemoryStore(), &testutil.DummyLogger{})
	require.NoError(t, err)
	return &jobFixture{o: o, files: files}
}

func (f *jobFixture) upload(t *testing.T) string {
	t.Helper()
	file, err := f.files.Save(context.Background(), "App.jsx", []byte("export default function App() { return null }\n"))
	require.NoError(t, err)
	return file.ID
}

func (f *jobFixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.o.Wait(ctx))
}

// drain collects a job's events until its channel is closed.
func drain(t *testing.T, job *Job) []JobEvent {
	t.Helper()
	return drainEvents(t, job.Events)
}

func drainEvents(t *testing.T, ch <-chan JobEvent) []JobEvent {
	t.Helper()
	var events []JobEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("job events were never closed")
		}
	}
}

func TestStartAnalysis_CompletesWithResult(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 0)
	ctx := context.Background()
	id := f.upload(t)

	job, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.NotEmpty(t, job.RunID)

	events := drain(t, job)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, JobEventResult, last.Type)
	assert.Equal(t, progress.Completed, last.Status)
	assert.Equal(t, progress.Done, last.Progress)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Progress, events[i-1].Progress)
	}

	f.wait(t)
	entry, err := f.o.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, progress.Completed, entry.Status)
	assert.Equal(t, 100, entry.Progress)
	assert.Equal(t, "Analysis completed successfully", entry.Message)
	assert.Equal(t, job.RunID, entry.RunID)

	report, err := f.o.Result(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, report.FileID)
	assert.Equal(t, "App.jsx", report.FileName)
	assert.Equal(t, 1, report.HighIssues)
	assert.Equal(t, 97, report.OverallScore, "round(0.3*90 + 0.3*100 + 0.4*100)")

	_, _, ok := f.o.Events(id)
	assert.False(t, ok, "finished jobs have no event stream")
}

func TestStartAnalysis_AlreadyRunning(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 150*time.Millisecond)
	ctx := context.Background()
	id := f.upload(t)

	_, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)

	_, err = f.o.StartAnalysis(ctx, id)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	_, err = f.o.Result(ctx, id)
	assert.ErrorIs(t, err, ErrNotCompleted)

	f.wait(t)

	// A finished analysis may be started again.
	job, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)
	drain(t, job)
	f.wait(t)
}

func TestStartAnalysis_UnknownFile(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 0)
	_, err := f.o.StartAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, upload.ErrFileNotFound)
	assert.Empty(t, f.o.Jobs())
}

func TestStartAnalysis_NoFileStore(t *testing.T) {
	t.Parallel()
	o := newRunOrchestrator(t, &testutil.FakeAnalyzer{Cat: model.CategorySecurity})
	_, err := o.StartAnalysis(context.Background(), "any")
	assert.ErrorIs(t, err, ErrNoFileStore)
}

func TestCancel_DiscardsResult(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 100*time.Millisecond)
	ctx := context.Background()
	id := f.upload(t)

	job, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)
	require.NoError(t, f.o.Cancel(ctx, id))

	_, err = f.o.Status(ctx, id)
	assert.ErrorIs(t, err, status.ErrNotFound)

	drain(t, job)
	f.wait(t)

	_, err = f.o.Status(ctx, id)
	assert.ErrorIs(t, err, status.ErrNotFound, "late result must not resurrect the entry")
	_, err = f.o.Result(ctx, id)
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestCancel_Unknown(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 0)
	assert.ErrorIs(t, f.o.Cancel(context.Background(), "missing"), status.ErrNotFound)
}

func TestCancel_RestartKeepsNewerRun(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 100*time.Millisecond)
	ctx := context.Background()
	id := f.upload(t)

	first, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)
	require.NoError(t, f.o.Cancel(ctx, id))

	second, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	for _, ev := range drain(t, first) {
		assert.NotEqual(t, JobEventResult, ev.Type, "a cancelled job never reports a result")
	}
	events := drain(t, second)
	f.wait(t)

	// Progress of the cancelled run never reaches the new run's stream.
	results := 0
	for i, ev := range events {
		if i > 0 {
			assert.GreaterOrEqual(t, ev.Progress, events[i-1].Progress)
		}
		if ev.Type == JobEventResult {
			results++
		}
	}
	assert.Equal(t, 1, results)

	entry, err := f.o.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, entry.RunID)
	assert.Equal(t, progress.Completed, entry.Status)
	assert.NotNil(t, entry.Result)
}

func countResults(events []JobEvent) int {
	n := 0
	for _, ev := range events {
		if ev.Type == JobEventResult {
			n++
		}
	}
	return n
}

func TestEvents_EveryFollowerSeesTheResult(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 100*time.Millisecond)
	ctx := context.Background()
	id := f.upload(t)

	job, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)

	streams := []<-chan JobEvent{job.Events}
	for i := 0; i < 2; i++ {
		ch, unsubscribe, ok := f.o.Events(id)
		require.True(t, ok)
		defer unsubscribe()
		streams = append(streams, ch)
	}

	got := make([][]JobEvent, len(streams))
	var wg sync.WaitGroup
	for i, ch := range streams {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = drainEvents(t, ch)
		}()
	}
	wg.Wait()
	f.wait(t)

	for i, events := range got {
		require.NotEmpty(t, events, "follower %d", i)
		assert.Equal(t, 1, countResults(events), "follower %d", i)
		last := events[len(events)-1]
		assert.Equal(t, JobEventResult, last.Type, "follower %d", i)
		assert.Equal(t, progress.Completed, last.Status, "follower %d", i)
	}
}

func TestEvents_UnsubscribeClosesOnlyThatStream(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 100*time.Millisecond)
	ctx := context.Background()
	id := f.upload(t)

	job, err := f.o.StartAnalysis(ctx, id)
	require.NoError(t, err)

	ch, unsubscribe, ok := f.o.Events(id)
	require.True(t, ok)
	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)

	assert.Equal(t, 1, countResults(drain(t, job)))
	f.wait(t)
}

func TestStartAnalysis_ConcurrentStartsAcceptOne(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, 200*time.Millisecond)
	ctx := context.Background()
	id := f.upload(t)

	const callers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []*Job
		rejected int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			job, err := f.o.StartAnalysis(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted = append(accepted, job)
				return
			}
			assert.ErrorIs(t, err, ErrAlreadyRunning)
			rejected++
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, accepted, 1)
	assert.Equal(t, callers-1, rejected)
	assert.Equal(t, 1, countResults(drain(t, accepted[0])))
	f.wait(t)

	entry, err := f.o.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, accepted[0].RunID, entry.RunID)
}
