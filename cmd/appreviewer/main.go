package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raysh454/appreviewer/internal/cli"
)

var (
	version = "dev" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cli.Options{Version: version}
	rootCmd := &cobra.Command{
		Use:           "appreviewer",
		Short:         "Score web application source files for security, code quality and UI/UX",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	opts.AddFlags(rootCmd)
	rootCmd.AddCommand(
		cli.NewServeCmd(opts),
		cli.NewAnalyzeCmd(opts),
		cli.NewWatchCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "appreviewer version %s\n", version)
		},
	}
}
