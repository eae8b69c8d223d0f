// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/container"
	"github.com/confkit/confkit/internal/eventhub"
	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/pkg/types"
)

// killWaitDelay bounds how long Wait keeps reading output after the
// process was killed.
const killWaitDelay = 2 * time.Second

// stopTimeout bounds stopping a container whose step timed out.
const stopTimeout = 30 * time.Second

type (
	// ExecCommandFunc creates the exec.Cmd for a host command.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// EngineProvider returns the selected container engine.
	EngineProvider interface {
		Engine() (container.Engine, error)
	}

	// Dispatcher runs steps on the host or in containers.
	Dispatcher struct {
		engines     EngineProvider
		publisher   eventhub.Publisher
		execCommand ExecCommandFunc
	}

	// DispatcherOption configures a Dispatcher.
	DispatcherOption func(*Dispatcher)
)

// WithEngines sets where container steps get their engine from.
func WithEngines(p EngineProvider) DispatcherOption {
	return func(d *Dispatcher) { d.engines = p }
}

// WithPublisher sets where output lines are published.
func WithPublisher(p eventhub.Publisher) DispatcherOption {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithExecCommand replaces exec.CommandContext for host commands.
func WithExecCommand(fn ExecCommandFunc) DispatcherOption {
	return func(d *Dispatcher) { d.execCommand = fn }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{execCommand: exec.CommandContext}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Logger returns the task logger for source within ec.
func (d *Dispatcher) Logger(ec *ExecutionContext, source string) eventhub.TaskLogger {
	return eventhub.TaskLogger{Publisher: d.publisher, Source: source, LogPath: ec.LogPath}
}

// Execute runs step and returns its result. It never returns a non-terminal
// result. Failures are reported through the result, not as errors.
func (d *Dispatcher) Execute(ctx context.Context, ec *ExecutionContext, step config.StepConfig) *StepResult {
	result := NewStepResult(step.Name)
	if len(step.Commands) == 0 {
		_ = result.Skip()
		return result
	}
	_ = result.Start()

	log := d.Logger(ec, "step:"+step.Name)

	timeout, hasTimeout, err := step.TimeoutDuration()
	if err != nil {
		_ = result.Fail(types.ExitCodeFailure, "", issue.WrapWithContext(err, issue.ConfigurationId, "parse step timeout", step.Name))
		return result
	}
	if err := CheckSyntax(ec.Shell(step), step.Commands); err != nil {
		_ = result.Fail(types.ExitCodeUsage, "", issue.WrapWithContext(err, issue.ConfigurationId, "check step commands", step.Name))
		return result
	}

	runCtx := ctx
	if hasTimeout {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stdout := newLineWriter(func(line string) { log.Log(eventhub.LevelInfo, line) })
	stderr := newLineWriter(func(line string) { log.Log(eventhub.LevelInfo, line) })

	var (
		code    types.ExitCode
		execErr error
	)
	if step.IsContainer() {
		code, execErr = d.runContainer(runCtx, ec, step, stdout, stderr)
	} else {
		code, execErr = d.runHost(runCtx, ec, step, stdout, stderr, log)
	}
	stdout.Flush()
	stderr.Flush()

	switch {
	case hasTimeout && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		if step.IsContainer() {
			d.stopTimedOut(ctx, step, log)
		}
		_ = result.Fail(types.ExitCodeTimeout, stdout.String(), issue.NewErrorContext().
			WithKind(issue.TimeoutId).
			WithOperation("run step").
			WithResource(step.Name).
			WithSuggestion("Raise the step timeout or speed up its commands").
			Wrap(fmt.Errorf("timed out after %s", timeout)).
			BuildError())
	case execErr != nil:
		_ = result.Fail(types.ExitCodeFailure, stdout.String(), execErr)
	case !code.IsSuccess():
		_ = result.Fail(code, stdout.String(), exitFailure(code, stderr.String()))
	default:
		_ = result.Succeed(stdout.String())
	}
	return result
}

// runHost runs each command with the host shell, stopping at the first
// non-zero exit.
func (d *Dispatcher) runHost(ctx context.Context, ec *ExecutionContext, step config.StepConfig,
	stdout, stderr *lineWriter, log eventhub.TaskLogger,
) (types.ExitCode, error) {
	if err := os.MkdirAll(ec.HostWorkspaceDir, 0o755); err != nil {
		return 0, issue.WrapWithContext(err, issue.IOId, "create workspace", ec.HostWorkspaceDir)
	}

	shell := ec.Shell(step)
	dir := ec.WorkingDir(step)
	env := append(os.Environ(), envSlice(ec.env)...)

	for _, command := range step.Commands {
		log.Debugf("$ %s", command)

		cmd := d.execCommand(ctx, shell, "-c", command)
		cmd.Dir = dir
		cmd.Env = env
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		configureProcess(cmd)

		err := cmd.Run()
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return types.ExitCode(exitErr.ExitCode()).Normalize(), nil
		}
		return 0, issue.NewErrorContext().
			WithKind(issue.ExecFailureId).
			WithOperation("start command").
			WithResource(step.Name).
			WithSuggestion("Check that the shell " + shell + " is installed").
			WithSuggestion("Check that the working directory " + dir + " exists").
			Wrap(err).
			BuildError()
	}
	return types.ExitCodeSuccess, nil
}

// runContainer runs the joined commands inside the step's container.
func (d *Dispatcher) runContainer(ctx context.Context, ec *ExecutionContext, step config.StepConfig,
	stdout, stderr *lineWriter,
) (types.ExitCode, error) {
	if d.engines == nil {
		return 0, issue.New(issue.ConfigurationId, "run container step", "no container engine configured for step %q", step.Name)
	}
	engine, err := d.engines.Engine()
	if err != nil {
		return 0, issue.WrapWithContext(err, issue.ConfigurationId, "run container step", step.Name)
	}

	res, err := engine.ExecInContainer(ctx, container.ExecOptions{
		Container: step.Container,
		Shell:     ec.Shell(step),
		WorkDir:   ec.WorkingDir(step),
		Commands:  step.Commands,
		Env:       ec.Env(),
		Stdout:    stdout,
		Stderr:    stderr,
	})
	if err != nil {
		return 0, err
	}
	return res.ExitCode, nil
}

// stopTimedOut stops the step's container. Killing the exec client leaves
// the command running inside the container; the next step that uses the
// container starts it again.
func (d *Dispatcher) stopTimedOut(ctx context.Context, step config.StepConfig, log eventhub.TaskLogger) {
	if d.engines == nil {
		return
	}
	engine, err := d.engines.Engine()
	if err != nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	log.Warnf("Stopping container %s after step timeout", step.Container)
	if err := engine.StopContainer(stopCtx, step.Container); err != nil {
		log.Warnf("Failed to stop container %s: %v", step.Container, err)
	}
}

func exitFailure(code types.ExitCode, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return errors.New(msg)
	}
	return fmt.Errorf("command failed with exit code %d", code)
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
