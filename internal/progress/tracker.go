// Package progress tracks how far a single analysis has come. Progress never
// goes backwards, no matter in which order the analyzers report.
package progress

import (
	"sync"
	"time"

	"github.com/raysh454/appreviewer/internal/model"
)

// Lifecycle is the coarse state of an analysis.
type Lifecycle string

const (
	Pending   Lifecycle = "pending"
	Running   Lifecycle = "running"
	Completed Lifecycle = "completed"
	Failed    Lifecycle = "failed"
)

// Terminal reports whether no further updates are accepted in l.
func (l Lifecycle) Terminal() bool {
	return l == Completed || l == Failed
}

const (
	// Started is reported as soon as the analyzers have been launched.
	Started = 5

	// Analyzer completions are mapped onto [AnalyzersBase, AnalyzersBase+AnalyzersSpan].
	AnalyzersBase = 10
	AnalyzersSpan = 80

	Merging    = 92
	Scoring    = 95
	Finalizing = 98
	Done       = 100
)

var checkpoints = map[int]bool{
	Merging:    true,
	Scoring:    true,
	Finalizing: true,
}

// IsCheckpoint reports whether p is one of the reserved post-analysis values.
func IsCheckpoint(p int) bool { return checkpoints[p] }

// Snapshot is a read-only copy of a tracker's state.
type Snapshot struct {
	ID                 string    `json:"id"`
	Lifecycle          Lifecycle `json:"status"`
	Progress           int       `json:"progress"`
	Message            string    `json:"message"`
	AnalyzersCompleted int       `json:"analyzers_completed"`
	TotalAnalyzers     int       `json:"total_analyzers"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Sink receives every snapshot the tracker produces. It is called with the
// tracker's lock held, so snapshots arrive in order. A sink must not call back
// into the tracker.
type Sink func(Snapshot)

// Tracker is the progress state of one analysis. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	id        string
	lifecycle Lifecycle
	max       int
	message   string
	total     int
	done      map[model.Category]bool
	sink      Sink
	updatedAt time.Time
}

// New creates a pending tracker that expects total analyzer completions.
// sink may be nil.
func New(id string, total int, sink Sink) *Tracker {
	return &Tracker{
		id:        id,
		lifecycle: Pending,
		message:   "Queued for analysis",
		total:     total,
		done:      make(map[model.Category]bool, total),
		sink:      sink,
		updatedAt: time.Now().UTC(),
	}
}

// Start moves the tracker to running.
func (t *Tracker) Start(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lifecycle != Pending {
		return
	}
	t.lifecycle = Running
	t.apply(Started, message)
}

// Report records progress. The number is only taken when it exceeds everything
// seen so far, or when it is a checkpoint; the message is always refreshed.
func (t *Tracker) Report(progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lifecycle.Terminal() {
		return
	}
	if t.lifecycle == Pending {
		t.lifecycle = Running
	}
	t.apply(progress, message)
}

// Completed records that the analyzer for category has resolved, whether it
// succeeded or not. Each category is counted once.
func (t *Tracker) Completed(category model.Category, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lifecycle.Terminal() {
		return
	}
	if t.lifecycle == Pending {
		t.lifecycle = Running
	}
	t.done[category] = true
	t.apply(analyzerProgress(len(t.done), t.total), message)
}

// Complete marks the analysis finished at 100%.
func (t *Tracker) Complete(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lifecycle.Terminal() {
		return
	}
	t.lifecycle = Completed
	t.max = Done
	t.message = message
	t.publish()
}

// Fail marks the analysis failed. Progress is reset to 0.
func (t *Tracker) Fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lifecycle.Terminal() {
		return
	}
	t.lifecycle = Failed
	t.max = 0
	t.message = message
	t.publish()
}

// Discard detaches the sink. Later updates still change the tracker but are no
// longer published.
func (t *Tracker) Discard() {
	t.mu.Lock()
	t.sink = nil
	t.mu.Unlock()
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) apply(progress int, message string) {
	progress = clamp(progress)
	if progress > t.max || (IsCheckpoint(progress) && progress >= t.max) {
		t.max = progress
	}
	t.message = message
	t.publish()
}

func (t *Tracker) publish() {
	t.updatedAt = time.Now().UTC()
	if t.sink != nil {
		t.sink(t.snapshotLocked())
	}
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		ID:                 t.id,
		Lifecycle:          t.lifecycle,
		Progress:           t.max,
		Message:            t.message,
		AnalyzersCompleted: len(t.done),
		TotalAnalyzers:     t.total,
		UpdatedAt:          t.updatedAt,
	}
}

// analyzerProgress maps completed/total analyzers onto the analyzer band.
func analyzerProgress(completed, total int) int {
	if total <= 0 {
		return AnalyzersBase + AnalyzersSpan
	}
	if completed > total {
		completed = total
	}
	return AnalyzersBase + completed*AnalyzersSpan/total
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > Done {
		return Done
	}
	return p
}
