// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/confkit/confkit/internal/issue"
)

// ErrTaskLogNotFound is wrapped when no log file exists for a task.
var ErrTaskLogNotFound = errors.New("no log file for task")

// TaskLogPath is <root>/<space>/<project>/<timestamp>-<taskID>.log.
func TaskLogPath(root, space, project, taskID string, started time.Time) string {
	return filepath.Join(root, space, project, started.Format(logTimestampLayout)+"-"+taskID+".log")
}

// FindTaskLog returns the log file of taskID under <root>/<space>/<project>.
// When several runs share the id, the latest one wins.
func FindTaskLog(root, space, project, taskID string) (string, error) {
	dir := filepath.Join(root, space, project)
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", issue.WrapWithContext(err, issue.IOId, "read log directory", dir)
	}

	suffix := "-" + taskID + ".log"
	var matches []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			matches = append(matches, e.Name())
		}
	}
	if taskID == "" || len(matches) == 0 {
		return "", issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("find task log").
			WithResource(space + "/" + project + "/" + taskID).
			WithSuggestion("Check the task id printed in the run summary").
			WithSuggestion("Logs are kept under " + dir).
			Wrap(ErrTaskLogNotFound).
			BuildError()
	}

	// Timestamps sort lexically.
	return filepath.Join(dir, slices.Max(matches)), nil
}
