package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/raysh454/appreviewer/internal/app"
	"github.com/raysh454/appreviewer/internal/formatter"
	"github.com/raysh454/appreviewer/internal/logging"
)

func NewWatchCmd(opts *Options) *cobra.Command {
	var (
		outputFormat string
		debounce     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Re-analyze supported files in DIR whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(outputFormat); err != nil {
				return err
			}
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, "appreviewer")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			comps, err := app.NewLocalComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			a := &fileAnalyzer{
				orchestrator: comps.Orchestrator,
				validator:    cfg.Validator(),
				progress:     cmd.ErrOrStderr(),
			}
			out := cmd.OutOrStdout()
			onChange := func(ctx context.Context, path string) {
				report, err := a.analyze(ctx, path)
				if err != nil {
					color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
					return
				}
				_ = formatter.DisplayReport(out, report, outputFormat)
			}

			w, err := NewWatcher(args[0], cfg.Validator().Allowed, debounce, onChange, logger)
			if err != nil {
				return err
			}
			color.New(color.FgCyan, color.Bold).Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", args[0])

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&outputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Quiet period before a changed file is analyzed")
	return cmd
}

// Watcher reports files under a directory once they stop changing.
type Watcher struct {
	dir      string
	accept   func(path string) bool
	debounce time.Duration
	onChange func(ctx context.Context, path string)
	logger   logging.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher watches dir and every directory below it. accept filters the
// files of interest; onChange runs once per file after debounce has passed
// without further writes.
func NewWatcher(dir string, accept func(string) bool, debounce time.Duration, onChange func(context.Context, string), logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		dir:      dir,
		accept:   accept,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With(logging.Field{Key: "component", Value: "watcher"}),
		watcher:  fw,
		pending:  make(map[string]time.Time),
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks until ctx ends, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Field{Key: "error", Value: err})

		case <-ticker.C:
			for _, path := range w.settled() {
				w.onChange(ctx, path)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watching new directory", logging.Field{Key: "path", Value: event.Name}, logging.Field{Key: "error", Value: err})
			}
		}
		return
	}
	if w.accept != nil && !w.accept(event.Name) {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) settled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	var out []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	return out
}
