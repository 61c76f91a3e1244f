// Package cli implements the appreviewer subcommands.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/app"
	"github.com/raysh454/appreviewer/internal/formatter"
	"github.com/raysh454/appreviewer/internal/logging"
)

// Options are the flags shared by every subcommand.
type Options struct {
	ConfigPath string
	LogLevel   string
	Mode       string
	Render     bool
	Version    string
}

// AddFlags registers the shared flags on root.
func (o *Options) AddFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&o.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&o.Mode, "mode", "", fmt.Sprintf("Analyzer mode (%s, %s)", analyzer.ModeHeuristic, analyzer.ModeLLM))
	root.PersistentFlags().BoolVar(&o.Render, "render", false, "Render .js apps in headless Chrome for visual checks")
}

// LoadConfig reads the config file and environment, then applies flag
// overrides.
func (o *Options) LoadConfig() (*app.Config, error) {
	cfg, err := app.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Mode != "" {
		cfg.AnalyzerMode = o.Mode
	}
	if o.Render {
		cfg.Render.Enabled = true
	}
	if o.Version != "" {
		cfg.Version = o.Version
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *app.Config, component string) (*logging.ZapLogger, error) {
	return logging.NewLogger(component, cfg.LogLevel)
}

func validateFormat(format string) error {
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("unknown output format %q, use one of: %s", format, strings.Join(formatter.Formats(), ", "))
	}
	return nil
}

const defaultDebounce = 500 * time.Millisecond
