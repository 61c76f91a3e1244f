package app

import (
	"context"
	"errors"
	"time"

	"github.com/raysh454/appreviewer/internal/logging"
)

const shutdownJobTimeout = 15 * time.Second

// Application is the runtime state shared by the commands: config, logger and
// the services built from them. Pass it to whatever needs those rather than
// using package-level variables.
type Application struct {
	Config     *Config
	Logger     logging.Logger
	Components *Components
}

// NewApplication builds every component described by cfg.
func NewApplication(ctx context.Context, cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	comps, err := NewComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("application ready",
		logging.Field{Key: "analyzer_mode", Value: cfg.AnalyzerMode},
		logging.Field{Key: "analyzers", Value: comps.Orchestrator.TotalAnalyzers()},
		logging.Field{Key: "upload_dir", Value: cfg.UploadDir})
	return &Application{Config: cfg, Logger: logger, Components: comps}, nil
}

// Orchestrator is a shortcut for a.Components.Orchestrator.
func (a *Application) Orchestrator() *Orchestrator { return a.Components.Orchestrator }

// Shutdown gives running jobs a bounded amount of time to finish, then
// releases every component.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	waitCtx, cancel := context.WithTimeout(ctx, shutdownJobTimeout)
	defer cancel()
	if err := a.Components.Orchestrator.Wait(waitCtx); err != nil {
		a.Logger.Warn("jobs still running at shutdown",
			logging.Field{Key: "jobs", Value: len(a.Components.Orchestrator.Jobs())},
			logging.Field{Key: "error", Value: err})
	}
	return a.Components.Close()
}
