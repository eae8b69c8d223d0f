// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for confkit.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "confkit",
		Short: "A containerized build pipeline runner",
		Long: TitleStyle.Render("confkit") + SubtitleStyle.Render(" - A containerized build pipeline runner") + `

confkit runs the ordered steps of a project, each on the host or inside
a named container managed by Docker or Podman, and keeps a log per run.

Projects are YAML files grouped in spaces declared in '.confkit.yml'.

` + SubtitleStyle.Render("Examples:") + `
  confkit run -s hello -p api              Run the 'api' project of space 'hello'
  confkit run -s hello -p api --dry-run    Show the resolved commands only
  confkit container ls                     List the declared containers
  confkit image build builder:1.0          Build a declared image
  confkit config show                      Show the loaded configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.setupLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is ./.confkit.yml)")

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newLogCommand(app))
	rootCmd.AddCommand(newImageCommand(app))
	rootCmd.AddCommand(newContainerCommand(app))
	rootCmd.AddCommand(newServiceCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newVersionCommand(app))
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
	app.installLogger = true

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, app.verbose)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
