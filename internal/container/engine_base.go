// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os/exec"
	"regexp"
	"slices"
	"strings"

	"github.com/confkit/confkit/pkg/platform"
	"github.com/confkit/confkit/pkg/types"
)

type (
	// ExecCommandFunc creates the exec.Cmd for an engine invocation. Tests
	// replace it to record arguments.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine implements Engine on top of a docker-compatible CLI.
	// DockerEngine and PodmanEngine embed it and override the probes that
	// differ between the two.
	BaseCLIEngine struct {
		name           string
		binaryPath     string
		execCommand    ExecCommandFunc
		composeProject string
		composeFile    string
		logger         *slog.Logger
		sandbox        platform.Sandbox

		// imageExists is set by the embedding engine so that shared code
		// paths use the engine-specific probe.
		imageExists func(ctx context.Context, ref string) (bool, error)
	}

	// commandError is returned by the Run* helpers for a non-zero exit.
	commandError struct {
		binary   string
		args     []string
		exitCode types.ExitCode
		stderr   string
		err      error
	}
)

// WithExecCommand replaces exec.CommandContext.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithBinaryPath overrides the binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.binaryPath = path
	}
}

// WithCompose sets the compose project name and declaration file.
func WithCompose(project, file string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		if project != "" {
			e.composeProject = project
		}
		e.composeFile = file
	}
}

// WithSandbox overrides sandbox detection. Inside Flatpak the engine CLI is
// run on the host through flatpak-spawn.
func WithSandbox(sandbox platform.Sandbox) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.sandbox = sandbox
	}
}

// WithLogger sets the logger for engine invocations.
func WithLogger(logger *slog.Logger) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.logger = logger
	}
}

// NewBaseCLIEngine creates an engine that runs binaryPath.
func NewBaseCLIEngine(name, binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:           name,
		binaryPath:     binaryPath,
		execCommand:    exec.CommandContext,
		composeProject: DefaultComposeProject,
		logger:         slog.Default(),
		sandbox:        platform.DetectSandbox(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.imageExists = e.imagesQuietExists
	if e.binaryPath == "" && e.sandbox.CanSpawnOnHost() {
		// The host PATH is not visible from the sandbox.
		e.binaryPath = name
	}
	return e
}

func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the resolved engine binary, or "" if it was not found.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// ComposeProject returns the compose project name.
func (e *BaseCLIEngine) ComposeProject() string {
	return e.composeProject
}

// ComposeFile returns the compose declaration path.
func (e *BaseCLIEngine) ComposeFile() string {
	return e.composeFile
}

// --- Argument Builders ---

// ImagesQuietArgs: <binary> images -q <name:tag>
func (e *BaseCLIEngine) ImagesQuietArgs(ref string) []string {
	return []string{"images", "-q", ref}
}

// ImageInfoArgs: <binary> images --format <tsv> <name:tag>
func (e *BaseCLIEngine) ImageInfoArgs(ref string) []string {
	return []string{"images", "--format", imageInfoFormat, ref}
}

// PullArgs: <binary> pull <name:tag>
func (e *BaseCLIEngine) PullArgs(ref string) []string {
	return []string{"pull", ref}
}

// BuildArgs: <binary> build -t <name:tag> [-f file] [--no-cache] [--build-arg k=v]... <context>
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build", "-t", ImageRef(opts.Name, opts.Tag)}
	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	for _, k := range slices.Sorted(maps.Keys(opts.BuildArgs)) {
		args = append(args, "--build-arg", k+"="+opts.BuildArgs[k])
	}
	buildContext := opts.Context
	if buildContext == "" {
		buildContext = "."
	}
	return append(args, buildContext)
}

// RemoveImageArgs: <binary> rmi [-f] <name:tag>
func (e *BaseCLIEngine) RemoveImageArgs(ref string, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	return append(args, ref)
}

// PsArgs lists containers whose name matches exactly. The engine treats
// the filter as a regular expression, so name is quoted. An empty format
// requests ids only.
func (e *BaseCLIEngine) PsArgs(name, format string) []string {
	args := []string{"ps", "-a", "--filter", "name=^" + regexp.QuoteMeta(name) + "$"}
	if format == "" {
		return append(args, "--quiet")
	}
	return append(args, "--format", format)
}

// ComposeCreateArgs: <binary> compose -p <project> -f <file> create <service>
func (e *BaseCLIEngine) ComposeCreateArgs(service string) []string {
	return []string{"compose", "-p", e.composeProject, "-f", e.composeFile, "create", service}
}

// LifecycleArgs builds start, stop, and restart invocations.
func (e *BaseCLIEngine) LifecycleArgs(verb, name string) []string {
	return []string{verb, name}
}

// RemoveArgs: <binary> rm [-f] <name>
func (e *BaseCLIEngine) RemoveArgs(name string, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	return append(args, name)
}

// ExecArgs: <binary> exec -i [-e K=V]... [-w dir] <container> <shell> -c "<cmd1> && <cmd2>"
// Environment flags are sorted by key so the invocation is reproducible.
func (e *BaseCLIEngine) ExecArgs(opts ExecOptions) []string {
	args := []string{"exec", "-i"}
	for _, k := range slices.Sorted(maps.Keys(opts.Env)) {
		args = append(args, "-e", k+"="+opts.Env[k])
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	shell := opts.Shell
	if shell == "" {
		shell = "sh"
	}
	return append(args, opts.Container, shell, "-c", JoinCommands(opts.Commands))
}

// JoinCommands chains commands so the first failure stops the rest.
func JoinCommands(commands []string) string {
	return strings.Join(commands, " && ")
}

// --- Command Execution ---

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	e.logger.Debug("container engine command", "engine", e.name, "args", args)
	name, args := e.sandbox.HostCommand(e.binaryPath, args...)
	return e.execCommand(ctx, name, args...)
}

// RunCommandWithOutput runs the command and returns its stdout. A non-zero
// exit returns a *commandError carrying stderr.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	var stdout bytes.Buffer
	if err := e.runCaptured(ctx, &stdout, nil, args); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// RunCommandStatus runs the command, discarding stdout.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	return e.runCaptured(ctx, nil, nil, args)
}

// RunCommandStreaming runs the command copying stdout and stderr to the
// given writers as they are produced, while also capturing stderr for the
// returned error.
func (e *BaseCLIEngine) RunCommandStreaming(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	return e.runCaptured(ctx, stdout, stderr, args)
}

func (e *BaseCLIEngine) runCaptured(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var captured bytes.Buffer
	cmd := e.CreateCommand(ctx, args...)
	cmd.Stdout = stdout
	if stderr != nil {
		cmd.Stderr = io.MultiWriter(&captured, stderr)
	} else {
		cmd.Stderr = &captured
	}
	if err := cmd.Run(); err != nil {
		return e.newCommandError(args, captured.String(), err)
	}
	return nil
}

func (e *BaseCLIEngine) newCommandError(args []string, stderr string, err error) *commandError {
	ce := &commandError{
		binary:   e.binaryPath,
		args:     args,
		exitCode: types.ExitCodeFailure,
		stderr:   strings.TrimSpace(stderr),
		err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.exitCode = types.ExitCode(exitErr.ExitCode()).Normalize()
	}
	return ce
}

func (e *commandError) Error() string {
	msg := fmt.Sprintf("command %s %s exited with code %d", e.binary, strings.Join(e.args, " "), e.exitCode)
	if e.stderr != "" {
		msg += ": " + e.stderr
	}
	return msg
}

func (e *commandError) Unwrap() error { return e.err }

// exitCodeOf returns the exit code carried by a *commandError in err's
// chain, and whether one was found.
func exitCodeOf(err error) (types.ExitCode, bool) {
	var ce *commandError
	if errors.As(err, &ce) {
		var exitErr *exec.ExitError
		if errors.As(ce.err, &exitErr) {
			return ce.exitCode, true
		}
	}
	return 0, false
}
