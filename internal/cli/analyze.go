package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/raysh454/appreviewer/internal/app"
	"github.com/raysh454/appreviewer/internal/formatter"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
	"github.com/raysh454/appreviewer/internal/upload"
)

func NewAnalyzeCmd(opts *Options) *cobra.Command {
	var (
		outputFormat string
		failUnder    int
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a source file and print the report",
		Long: `Run every analyzer against FILE without starting the server.

Examples:
  # Human-readable report
  appreviewer analyze src/App.tsx

  # Machine-readable output, failing CI below a score of 70
  appreviewer analyze src/App.tsx -o json --fail-under 70`,
		Args: cobra.ExactArgs(1),
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
				spin:         outputFormat == formatter.FormatHuman,
			}
			report, err := a.analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := formatter.DisplayReport(cmd.OutOrStdout(), report, outputFormat); err != nil {
				return err
			}
			if failUnder > 0 && report.OverallScore < failUnder {
				return fmt.Errorf("overall score %d is below %d", report.OverallScore, failUnder)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	cmd.Flags().IntVar(&failUnder, "fail-under", 0, "Exit with an error when the overall score is below this value")
	return cmd
}

// fileAnalyzer runs the orchestrator on files read from disk.
type fileAnalyzer struct {
	orchestrator *app.Orchestrator
	validator    upload.Validator
	progress     io.Writer
	spin         bool
}

func (a *fileAnalyzer) analyze(ctx context.Context, path string) (*model.AnalysisReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	if err := a.validator.Validate(name, content); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	req := model.AnalysisRequest{
		Content: string(content),
		Metadata: model.FileMetadata{
			ID:        path,
			Name:      name,
			Size:      int64(len(content)),
			Extension: upload.Extension(name),
		},
	}

	var sink progress.Sink
	if a.spin {
		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(a.progress))
		s.Suffix = " Analyzing " + name + "..."
		s.Start()
		defer s.Stop()
		sink = func(snap progress.Snapshot) {
			s.Lock()
			s.Suffix = fmt.Sprintf(" %s (%d%%)", snap.Message, snap.Progress)
			s.Unlock()
		}
	}

	tr := progress.New(req.Metadata.ID, a.orchestrator.TotalAnalyzers(), sink)
	report := a.orchestrator.Run(ctx, req, tr)
	tr.Complete("Analysis completed successfully")

	if a.spin {
		color.New(color.FgGreen).Fprintf(a.progress, "✓ Analyzed %s in %.2fs\n", name, report.DurationSeconds)
	}
	return report, nil
}
