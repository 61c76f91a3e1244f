package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
	"github.com/raysh454/appreviewer/internal/status"
)

var (
	ErrAlreadyRunning = errors.New("analysis is already in progress for this file")
	ErrNotCompleted   = errors.New("analysis not completed")
	ErrNoFileStore    = errors.New("no file store configured")
)

type JobEventType string

const (
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

// JobEvent is streamed to websocket clients while a job runs.
type JobEvent struct {
	JobID    string             `json:"job_id"`
	Type     JobEventType       `json:"type"`
	Status   progress.Lifecycle `json:"status"`
	Progress int                `json:"progress"`
	Message  string             `json:"message,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// eventBuffer is the per-subscriber backlog. A run emits about ten events, so
// a subscriber that keeps reading never loses one.
const eventBuffer = 32

// Job is one background analysis, keyed by file id.
type Job struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	// Events is the stream of the caller that started the job. Other
	// followers subscribe through Orchestrator.Events.
	Events <-chan JobEvent `json:"-"`

	tracker *progress.Tracker

	// Guarded by Orchestrator.jobsMu.
	subs   []chan JobEvent
	closed bool
}

// StartAnalysis launches a background analysis of an uploaded file. It fails
// with upload.ErrFileNotFound for unknown files and ErrAlreadyRunning while a
// previous run for the same file is pending or running.
func (o *Orchestrator) StartAnalysis(ctx context.Context, fileID string) (*Job, error) {
	if o.files == nil {
		return nil, ErrNoFileStore
	}
	req, err := o.files.Request(ctx, fileID)
	if err != nil {
		return nil, err
	}

	// The running check and the registration happen as one step.
	o.startMu.Lock()
	defer o.startMu.Unlock()

	o.jobsMu.Lock()
	_, running := o.jobs[fileID]
	o.jobsMu.Unlock()
	if running {
		return nil, ErrAlreadyRunning
	}
	if prev, err := o.statuses.Get(ctx, fileID); err == nil && !prev.Status.Terminal() {
		return nil, ErrAlreadyRunning
	} else if err != nil && !errors.Is(err, status.ErrNotFound) {
		return nil, fmt.Errorf("read status: %w", err)
	}

	runID := uuid.New().String()
	err = o.statuses.Create(ctx, status.Entry{
		ID:        fileID,
		RunID:     runID,
		Status:    progress.Pending,
		Progress:  0,
		Message:   "Analysis queued for processing",
		UpdatedAt: o.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create status: %w", err)
	}

	starter := make(chan JobEvent, eventBuffer)
	job := &Job{
		ID:        fileID,
		RunID:     runID,
		StartedAt: o.now(),
		Events:    starter,
		subs:      []chan JobEvent{starter},
	}
	job.tracker = progress.New(fileID, o.analyzers.Len(), o.statusSink(job))

	o.jobsMu.Lock()
	o.jobs[fileID] = job
	o.jobsMu.Unlock()

	o.running.Add(1)
	go o.runJob(job, req)
	return job, nil
}

// statusSink mirrors tracker snapshots into the status registry and the
// event stream of job.
func (o *Orchestrator) statusSink(job *Job) progress.Sink {
	return func(s progress.Snapshot) {
		err := o.statuses.Update(context.Background(), job.ID, func(e *status.Entry) {
			if e.RunID == job.RunID {
				e.ApplySnapshot(s)
			}
		})
		if err != nil && !errors.Is(err, status.ErrNotFound) {
			o.logger.Warn("failed to store progress",
				logging.Field{Key: "file_id", Value: job.ID},
				logging.Field{Key: "error", Value: err})
		}
		o.emitJobEvent(job, JobEvent{
			JobID:    job.ID,
			Type:     JobEventProgress,
			Status:   s.Lifecycle,
			Progress: s.Progress,
			Message:  s.Message,
		})
	}
}

// runJob runs detached from any request context: cancelling a job only
// discards its outcome.
func (o *Orchestrator) runJob(job *Job, req model.AnalysisRequest) {
	defer o.finishJob(job)

	ctx := context.Background()
	report := o.Run(ctx, req, job.tracker)

	// The result is stored before the tracker reports completion, so pollers
	// never see "completed" without a result. An entry from a later run of
	// the same file is left alone.
	var stale bool
	err := o.statuses.Update(ctx, job.ID, func(e *status.Entry) {
		if stale = e.RunID != job.RunID; stale {
			return
		}
		e.Result = report
	})
	switch {
	case errors.Is(err, status.ErrNotFound) || stale:
		o.logger.Info("analysis result discarded", logging.Field{Key: "file_id", Value: job.ID})
		return
	case err != nil:
		msg := "Analysis failed: " + err.Error()
		job.tracker.Fail(msg)
		_ = o.statuses.Update(ctx, job.ID, func(e *status.Entry) {
			if e.RunID == job.RunID {
				e.Error = err.Error()
			}
		})
		o.emitJobEvent(job, JobEvent{JobID: job.ID, Type: JobEventResult, Status: progress.Failed, Error: err.Error()})
		return
	}

	job.tracker.Complete("Analysis completed successfully")
	o.emitJobEvent(job, JobEvent{
		JobID:    job.ID,
		Type:     JobEventResult,
		Status:   progress.Completed,
		Progress: progress.Done,
		Message:  report.Summary,
	})
}

func (o *Orchestrator) finishJob(job *Job) {
	defer o.running.Done()
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	job.EndedAt = o.now()
	o.detachLocked(job)
}

// detachLocked closes every subscriber of job and drops it from the running
// set. The caller holds jobsMu.
func (o *Orchestrator) detachLocked(job *Job) {
	if !job.closed {
		job.closed = true
		for _, ch := range job.subs {
			close(ch)
		}
		job.subs = nil
	}
	if o.jobs[job.ID] == job {
		delete(o.jobs, job.ID)
	}
}

// emitJobEvent sends ev to every subscriber of job without blocking. A
// subscriber whose backlog is full misses the event.
func (o *Orchestrator) emitJobEvent(job *Job, ev JobEvent) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if job.closed {
		return
	}
	for _, ch := range job.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Status returns the registry entry of a file's analysis.
func (o *Orchestrator) Status(ctx context.Context, fileID string) (*status.Entry, error) {
	return o.statuses.Get(ctx, fileID)
}

// Result returns the report of a completed analysis. It fails with
// ErrNotCompleted while the analysis is pending, running or failed.
func (o *Orchestrator) Result(ctx context.Context, fileID string) (*model.AnalysisReport, error) {
	e, err := o.statuses.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if e.Status != progress.Completed {
		return nil, fmt.Errorf("%w: current status: %s", ErrNotCompleted, e.Status)
	}
	if e.Result == nil {
		return nil, fmt.Errorf("analysis marked as completed but no results found")
	}
	return e.Result, nil
}

// Cancel forgets an analysis. Analyzers still running are left to finish and
// their outcome is dropped.
func (o *Orchestrator) Cancel(ctx context.Context, fileID string) error {
	if _, err := o.statuses.Get(ctx, fileID); err != nil {
		return err
	}
	if err := o.statuses.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete status: %w", err)
	}

	o.jobsMu.Lock()
	job, ok := o.jobs[fileID]
	if ok {
		o.detachLocked(job)
	}
	o.jobsMu.Unlock()
	if ok {
		// Discard takes the tracker lock, which the sink holds while it
		// takes jobsMu; never call it with jobsMu held.
		job.tracker.Discard()
	}

	o.logger.Info("analysis cancelled", logging.Field{Key: "file_id", Value: fileID})
	return nil
}

// Events subscribes to the event stream of a running job. Every subscriber
// receives every event; the channel is closed when the job ends or is
// cancelled. unsubscribe closes the channel early and may be called more than
// once.
func (o *Orchestrator) Events(fileID string) (events <-chan JobEvent, unsubscribe func(), ok bool) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	job, ok := o.jobs[fileID]
	if !ok || job.closed {
		return nil, func() {}, false
	}
	ch := make(chan JobEvent, eventBuffer)
	job.subs = append(job.subs, ch)
	return ch, func() { o.unsubscribe(job, ch) }, true
}

func (o *Orchestrator) unsubscribe(job *Job, ch chan JobEvent) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	for i, sub := range job.subs {
		if sub == ch {
			job.subs = append(job.subs[:i], job.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Jobs returns the ids of running jobs.
func (o *Orchestrator) Jobs() []string {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	ids := make([]string, 0, len(o.jobs))
	for id := range o.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Wait blocks until every started job goroutine has returned or ctx ends.
// Cancelled jobs are waited for too.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
