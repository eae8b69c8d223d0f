// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/confkit/confkit/internal/runtime"
)

const (
	headerWidth     = 80
	timestampLayout = "2006-01-02 15:04:05"
	millisecond     = time.Millisecond
)

// dryRun writes the resolved working directory and commands of every step
// and records a synthetic Success per step. Nothing is executed.
func (r *Runner) dryRun(ec *runtime.ExecutionContext, result *TaskResult, opts Options) {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	steps := ec.Project.Steps

	fmt.Fprintf(out, "Dry run of %s/%s (task %s, %d steps)\n", ec.SpaceName, ec.ProjectName, ec.TaskID, len(steps))
	for i, step := range steps {
		where := "host"
		if step.IsContainer() {
			where = "container " + step.Container
		}
		fmt.Fprintf(out, "\n[%d/%d] %s (%s)\n", i+1, len(steps), step.Name, where)
		fmt.Fprintf(out, "  working dir: %s\n", ec.WorkingDir(step))
		writeCommands(out, ec, step.Commands)

		sr := runtime.NewStepResult(step.Name)
		_ = sr.Start()
		_ = sr.Succeed("")
		result.Steps = append(result.Steps, sr)
	}
}

func writeCommands(out io.Writer, ec *runtime.ExecutionContext, commands []string) {
	if len(commands) == 0 {
		fmt.Fprintln(out, "  (no commands)")
		return
	}
	for _, c := range commands {
		fmt.Fprintf(out, "  $ %s\n", ec.Resolve(c))
	}
}

// header centers title in a rule of '='.
func header(title string) string {
	pad := max((headerWidth-2-len(title)-4)/2, 3)
	rule := strings.Repeat("=", pad)
	return fmt.Sprintf("%s[ %s ]%s", rule, title, rule)
}
