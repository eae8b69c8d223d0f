// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/internal/pipeline"
	"github.com/confkit/confkit/internal/runtime"
)

// glamourStyle is the catalog rendering style for terminal output.
const glamourStyle = "auto"

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderError prints err and, for classified errors, the catalog entry
// explaining its kind. A bare ExitError has already been reported.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	kind := issue.KindOf(err)
	if kind == 0 {
		return
	}
	if entry := issue.Get(kind); entry != nil {
		rendered, renderErr := entry.Render(glamourStyle)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", kind, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// renderSummary renders the outcome of a run as a bordered block.
func renderSummary(r *pipeline.TaskResult) string {
	var b strings.Builder

	status := SuccessStyle.Render("SUCCESS")
	switch {
	case r.Canceled:
		status = ErrorStyle.Render("CANCELED")
	case r.Status != pipeline.TaskSuccess:
		status = ErrorStyle.Render("FAILED")
	}
	fmt.Fprintf(&b, "%s %s  %s\n", labelStyle.Render("Task"), CmdStyle.Render(r.TaskID), status)

	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %s %s %s\n", stepMark(s.Status), s.Name, VerboseStyle.Render(s.Duration.Round(time.Millisecond).String()))
	}

	if failed := r.FailedSteps(); len(failed) > 0 {
		fmt.Fprintln(&b, labelStyle.Render("Failed"))
		for _, s := range failed {
			msg := fmt.Sprintf("exit %d", s.ExitCode)
			if s.Error != "" {
				msg += ": " + firstLine(s.Error)
			}
			fmt.Fprintf(&b, "  %s %s\n", s.Name, ErrorStyle.Render(msg))
		}
	}

	c := r.Counts()
	fmt.Fprintf(&b, "%s %d succeeded, %d failed, %d skipped in %s\n", labelStyle.Render("Steps"),
		c.Success, c.Failed, c.Skipped, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "%s %s", labelStyle.Render("Log"), VerboseStyle.Render(r.LogPath))

	return summaryBoxStyle.Render(b.String())
}

func stepMark(s runtime.StepStatus) string {
	switch s {
	case runtime.StepSuccess:
		return SuccessStyle.Render("✓")
	case runtime.StepFailed:
		return ErrorStyle.Render("✗")
	case runtime.StepSkipped:
		return WarningStyle.Render("-")
	default:
		return VerboseStyle.Render("·")
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
