// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/internal/runtime"
)

type logFlags struct {
	space   string
	project string
	task    string
}

func newLogCommand(app *App) *cobra.Command {
	var flags logFlags

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Print the log of a task",
		Long: `Print the log file written by a run.

Logs are stored under <log_dir>/<space>/<project>/ and named after the
time the run started and its task id.`,
		Example: `  confkit log -s hello -p api -t 1f0e4c2a-b3d`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.printTaskLog(cmd.Context(), flags)
		},
	}

	logCmd.Flags().StringVarP(&flags.space, "space", "s", "", "space containing the project")
	logCmd.Flags().StringVarP(&flags.project, "project", "p", "", "project that ran the task")
	logCmd.Flags().StringVarP(&flags.task, "task", "t", "", "task id from the run summary")
	_ = logCmd.MarkFlagRequired("space")
	_ = logCmd.MarkFlagRequired("project")
	_ = logCmd.MarkFlagRequired("task")

	return logCmd
}

func (a *App) printTaskLog(ctx context.Context, flags logFlags) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	path, err := runtime.FindTaskLog(cfg.ResolvePath(cfg.LogDir), flags.space, flags.project, flags.task)
	if err != nil {
		return err
	}
	a.logger.Debug("printing task log", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return issue.WrapWithContext(err, issue.IOId, "open task log", path)
	}
	defer f.Close()

	if _, err := io.Copy(a.stdout, f); err != nil {
		return issue.WrapWithContext(err, issue.IOId, "print task log", path)
	}
	return nil
}
