// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/confkit/confkit/internal/issue"
)

// DockerEngine drives the docker CLI.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine looks up docker on PATH. A missing binary is reported by Available.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	path, _ := exec.LookPath("docker")
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypeDocker), path, opts...),
	}
}

// Available checks that the docker daemon answers, not just the client.
func (e *DockerEngine) Available(ctx context.Context) error {
	if _, err := e.Version(ctx); err != nil {
		return unavailableError(e.Name(), err)
	}
	return nil
}

// Version returns the server version.
func (e *DockerEngine) Version(ctx context.Context) (string, error) {
	if e.BinaryPath() == "" {
		return "", errBinaryNotFound
	}
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("get docker version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

var errBinaryNotFound = errors.New("binary not found in PATH")

func unavailableError(engine string, cause error) error {
	other := EngineTypePodman
	if engine == string(EngineTypePodman) {
		other = EngineTypeDocker
	}
	return issue.NewErrorContext().
		WithKind(issue.EngineUnavailableId).
		WithOperation("connect to container engine").
		WithResource(engine).
		WithSuggestion("Install " + engine + " or make sure it is on PATH").
		WithSuggestion("Start the " + engine + " service and retry").
		WithSuggestion("Or set engine: " + string(other) + " in .confkit.yml").
		Wrap(cause).
		BuildError()
}
