// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/eventhub"
	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/internal/pipeline"
)

// flushTimeout bounds how long a finished run waits for its log lines to be written.
const flushTimeout = 10 * time.Second

type runFlags struct {
	space   string
	project string
	branch  string
	dryRun  bool
	force   bool
	env     []string
}

func newRunCommand(app *App) *cobra.Command {
	var flags runFlags

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the steps of a project",
		Long: `Run the steps of a project in order.

Each step runs on the host or, when it names a container, inside that
container through the configured engine. The run stops at the first
failing step unless the step sets continue_on_error.`,
		Example: `  confkit run -s hello -p api
  confkit run -s hello -p api --branch release --env MODE=prod
  confkit run -s hello -p api --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runProject(cmd.Context(), flags)
		},
	}

	runCmd.Flags().StringVarP(&flags.space, "space", "s", "", "space containing the project")
	runCmd.Flags().StringVarP(&flags.project, "project", "p", "", "project to run")
	runCmd.Flags().StringVar(&flags.branch, "branch", "", "override the project's source branch")
	runCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the resolved steps without running them")
	runCmd.Flags().BoolVar(&flags.force, "force", false, "recreate step containers before running")
	runCmd.Flags().StringArrayVarP(&flags.env, "env", "e", nil, "set an environment variable (KEY=VALUE, repeatable)")
	_ = runCmd.MarkFlagRequired("space")
	_ = runCmd.MarkFlagRequired("project")

	return runCmd
}

func (a *App) runProject(ctx context.Context, flags runFlags) error {
	env, err := parseEnvPairs(flags.env)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	p, err := cfg.FindProject(flags.space, flags.project)
	if err != nil {
		return err
	}

	hub := eventhub.New(eventhub.Config{Workers: cfg.EventHub.Workers, Logger: a.logger})
	logs := eventhub.NewLogSubscriber("", eventhub.WithMirror(a.logger))
	hub.Subscribe(logs)
	defer func() {
		hub.Close()
		if err := logs.Close(); err != nil {
			a.logger.Warn("failed to close task log", "error", err)
		}
	}()

	deps := pipeline.Dependencies{
		Publisher: hub,
		VCS:       a.vcsResolver(),
		Logger:    a.logger,
	}
	if hasContainerSteps(p) && !flags.dryRun {
		if _, err := a.engine(ctx, cfg); err != nil {
			return err
		}
		deps.Engines = a.engines
	}

	opts := pipeline.Options{
		DryRun:  flags.dryRun,
		Verbose: a.verbose,
		Branch:  flags.branch,
		Force:   flags.force,
		Env:     env,
		Stdout:  a.stdout,
	}
	result, err := pipeline.NewRunnerFromConfig(cfg, deps).Run(ctx, pipeline.RunRequest{
		Space:         flags.space,
		Project:       flags.project,
		ProjectConfig: p,
		Options:       opts,
	})

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if flushErr := hub.Flush(flushCtx); flushErr != nil {
		a.logger.Warn("task log incomplete", "error", flushErr)
	}
	if err != nil {
		return err
	}

	if !flags.dryRun {
		fmt.Fprintln(a.stdout, renderSummary(result))
	}
	if result.Status != pipeline.TaskSuccess {
		return &ExitError{Code: result.ExitCode()}
	}
	return nil
}

func hasContainerSteps(p *config.ProjectConfig) bool {
	return slices.ContainsFunc(p.Steps, config.StepConfig.IsContainer)
}

// parseEnvPairs turns repeated KEY=VALUE flags into a map. Later pairs win.
func parseEnvPairs(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, issue.NewErrorContext().
				WithKind(issue.ConfigurationId).
				WithOperation("parse --env").
				WithResource(pair).
				WithSuggestion("Use KEY=VALUE, for example --env MODE=release").
				Wrap(errors.New("expected KEY=VALUE")).
				BuildError()
		}
		env[strings.TrimSpace(key)] = value
	}
	return env, nil
}
