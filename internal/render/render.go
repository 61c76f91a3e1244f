// Package render turns an uploaded app into pixels so the UI/UX analyzer can
// look at it as well as read it.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/raysh454/appreviewer/internal/model"
)

// ErrUnsupported is returned by renderers asked to render a file type they
// cannot execute.
var ErrUnsupported = errors.New("render: unsupported file type")

// Renderer is the visual rendering capability. Rendering failures are never
// fatal to an analysis; callers fall back to code-only analysis.
type Renderer interface {
	Supports(ext string) bool
	Render(ctx context.Context, req model.AnalysisRequest) (*Attachment, error)
}

// Attachment is what a successful render produces.
type Attachment struct {
	Image   []byte         `json:"-"`
	DOM     string         `json:"-"`
	Metrics *VisualMetrics `json:"metrics,omitempty"`
}

type Config struct {
	Enabled   bool          `yaml:"enabled"`
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	IdleAfter time.Duration `yaml:"idle_after"`
	Timeout   time.Duration `yaml:"timeout"`
	Headless  bool          `yaml:"headless"`
	ExecPath  string        `yaml:"exec_path"`
}

// DefaultConfig renders into a 350px wide app panel.
func DefaultConfig() Config {
	return Config{
		Enabled:   false,
		Width:     350,
		Height:    600,
		IdleAfter: 2 * time.Second,
		Timeout:   30 * time.Second,
		Headless:  true,
	}
}
