// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/internal/runtime"
)

func TestLogCommand(t *testing.T) {
	t.Parallel()

	cfgPath := writeWorkspace(t)
	logDir := filepath.Join(filepath.Dir(cfgPath), "volumes", "logs", "hello", "api")
	writeFile(t, filepath.Join(logDir, "2025.07.24-090503-abc.log"), "[2025-07-24 09:05:03][INFO] first run\n")
	writeFile(t, filepath.Join(logDir, "2025.07.24-100000-def.log"), "[2025-07-24 10:00:00][INFO] other run\n")

	c := newTestCLI(t, nil)
	if err := c.run("log", "-s", "hello", "-p", "api", "-t", "abc", "--config", cfgPath); err != nil {
		t.Fatalf("log error = %v", err)
	}
	if got := c.stdout.String(); got != "[2025-07-24 09:05:03][INFO] first run\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestLogCommand_UnknownTask(t *testing.T) {
	t.Parallel()

	cfgPath := writeWorkspace(t)
	c := newTestCLI(t, nil)
	err := c.run("log", "-s", "hello", "-p", "api", "-t", "missing", "--config", cfgPath)
	if !errors.Is(err, runtime.ErrTaskLogNotFound) || !errors.Is(err, issue.ErrConfiguration) {
		t.Fatalf("error = %v, want task log not found", err)
	}
}

func TestLogCommand_AfterRun(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	cfgPath := writeWorkspace(t)
	c := newTestCLI(t, nil)
	if err := c.run("run", "-s", "hello", "-p", "api", "-e", "MODE=release", "--config", cfgPath); err != nil {
		t.Fatalf("run error = %v", err)
	}

	logs, err := filepath.Glob(filepath.Join(filepath.Dir(cfgPath), "volumes", "logs", "hello", "api", "*.log"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("task logs = %v (err = %v), want one", logs, err)
	}
	name := filepath.Base(logs[0])
	taskID := strings.TrimSuffix(name[len("2006.01.02-150405-"):], ".log")

	out := newTestCLI(t, nil)
	if err := out.run("log", "--space", "hello", "--project", "api", "--task", taskID, "--config", cfgPath); err != nil {
		t.Fatalf("log error = %v", err)
	}
	if !strings.Contains(out.stdout.String(), "hi from api") {
		t.Errorf("log output missing step output:\n%s", out.stdout.String())
	}
}
