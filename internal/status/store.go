// Package status holds the ephemeral registry of analysis states. Entries live
// for the lifetime of the process, or until their TTL expires in Redis.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
)

// ErrNotFound is returned for ids the registry does not know.
var ErrNotFound = errors.New("status: entry not found")

// Entry is the registry record for one analysis, keyed by file id.
type Entry struct {
	ID        string                `json:"id"`
	RunID     string                `json:"run_id,omitempty"`
	Status    progress.Lifecycle    `json:"status"`
	Progress  int                   `json:"progress"`
	Message   string                `json:"message"`
	Result    *model.AnalysisReport `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ApplySnapshot copies tracker state onto the entry.
func (e *Entry) ApplySnapshot(s progress.Snapshot) {
	e.Status = s.Lifecycle
	e.Progress = s.Progress
	e.Message = s.Message
	e.UpdatedAt = s.UpdatedAt
}

// Store is the status registry.
type Store interface {
	// Create stores e, replacing any previous entry with the same id.
	Create(ctx context.Context, e Entry) error
	// Update applies fn to the stored entry. It returns ErrNotFound when the
	// entry does not exist.
	Update(ctx context.Context, id string, fn func(*Entry)) error
	Get(ctx context.Context, id string) (*Entry, error)
	// Delete removes the entry. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
