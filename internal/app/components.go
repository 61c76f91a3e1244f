package app

import (
	"context"
	"fmt"
	"io"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/llm"
	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/render"
	"github.com/raysh454/appreviewer/internal/status"
	"github.com/raysh454/appreviewer/internal/upload"
)

// Components are the long-lived services built from a Config.
type Components struct {
	Files        *upload.Store
	Statuses     status.Store
	Renderer     render.Renderer
	LLM          llm.Client
	Analyzers    *analyzer.Registry
	Orchestrator *Orchestrator
}

// NewComponents opens the stores and builds the analyzers selected by cfg.
// Resources opened before a failure are released.
func NewComponents(ctx context.Context, cfg *Config, logger logging.Logger) (*Components, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	c := &Components{}

	files, err := upload.Open(ctx, cfg.DatabasePath, cfg.UploadDir, cfg.Validator(), logger)
	if err != nil {
		return nil, fmt.Errorf("open upload store: %w", err)
	}
	c.Files = files

	if cfg.RedisURL != "" {
		rs, err := status.DialRedis(ctx, cfg.RedisURL, cfg.StatusTTL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect status store: %w", err)
		}
		c.Statuses = rs
	} else {
		c.Statuses = status.NewMemoryStore()
	}

	if err := c.buildAnalyzers(cfg, logger); err != nil {
		c.Close()
		return nil, err
	}

	c.Orchestrator, err = NewOrchestrator(cfg, c.Analyzers, c.Files, c.Statuses, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("new orchestrator: %w", err)
	}
	return c, nil
}

// NewLocalComponents builds the analyzers and an orchestrator without an upload
// store, for analyzing files straight from disk. Statuses stay in memory.
func NewLocalComponents(cfg *Config, logger logging.Logger) (*Components, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	c := &Components{Statuses: status.NewMemoryStore()}
	if err := c.buildAnalyzers(cfg, logger); err != nil {
		c.Close()
		return nil, err
	}
	var err error
	c.Orchestrator, err = NewOrchestrator(cfg, c.Analyzers, nil, c.Statuses, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("new orchestrator: %w", err)
	}
	return c, nil
}

func (c *Components) buildAnalyzers(cfg *Config, logger logging.Logger) error {
	if cfg.Render.Enabled {
		r, err := render.NewChromeRenderer(cfg.Render, logger)
		if err != nil {
			// Rendering only adds screenshots; analysis still works without it.
			logger.Warn("renderer unavailable, continuing without screenshots",
				logging.Field{Key: "error", Value: err})
		} else {
			c.Renderer = r
		}
	}

	if cfg.AnalyzerMode == analyzer.ModeLLM {
		client, err := llm.New(cfg.LLM)
		if err != nil {
			return fmt.Errorf("new llm client: %w", err)
		}
		c.LLM = client
	}

	var err error
	c.Analyzers, err = analyzer.Build(cfg.AnalyzerMode, c.LLM, c.Renderer, logger)
	if err != nil {
		return fmt.Errorf("build analyzers: %w", err)
	}
	return nil
}

// Close releases the stores and the renderer. Running jobs are not waited for.
func (c *Components) Close() error {
	var firstErr error
	if closer, ok := c.Renderer.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close renderer: %w", err)
		}
	}
	if closer, ok := c.Statuses.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close status store: %w", err)
		}
	}
	if c.Files != nil {
		if err := c.Files.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close upload store: %w", err)
		}
	}
	return firstErr
}
