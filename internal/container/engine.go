// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/pkg/types"
)

const (
	EngineTypeDocker EngineType = "docker"
	EngineTypePodman EngineType = "podman"

	// DefaultComposeProject is the compose project name used when none is configured.
	DefaultComposeProject = "confkit"
	// DefaultTag is assumed for image references without a tag.
	DefaultTag = "latest"
)

type (
	// EngineType names a supported container engine.
	EngineType string

	// Engine is the capability set confkit needs from a container engine.
	// "Not found" answers are never errors: existence checks return false and
	// info queries return an unbuilt status. Errors mean the engine itself
	// could not be invoked or refused the operation.
	Engine interface {
		Name() string
		// Available returns an EngineUnavailable error when the binary is
		// missing or the engine does not answer a version probe.
		Available(ctx context.Context) error
		Version(ctx context.Context) (string, error)

		ImageExists(ctx context.Context, name, tag string) (bool, error)
		ImageInfo(ctx context.Context, name, tag string) (*ImageInfo, error)
		PullImage(ctx context.Context, opts PullOptions) error
		BuildImage(ctx context.Context, opts BuildOptions) error
		RemoveImage(ctx context.Context, name, tag string, force bool) error

		ContainerExists(ctx context.Context, name string) (bool, error)
		ContainerInfo(ctx context.Context, name string) (*ContainerInfo, error)
		CreateContainer(ctx context.Context, name string, force bool) error
		StartContainer(ctx context.Context, name string) error
		StopContainer(ctx context.Context, name string) error
		RestartContainer(ctx context.Context, name string) error
		RemoveContainer(ctx context.Context, name string, force bool) error

		// ExecInContainer starts the container if needed, then runs the
		// commands joined with "&&" under the given shell.
		ExecInContainer(ctx context.Context, opts ExecOptions) (*ExecResult, error)

		// Services parses the compose declaration on every call.
		Services(ctx context.Context) ([]ComposeService, error)
		// Service returns the declared service whose container is named
		// containerName.
		Service(ctx context.Context, containerName string) (*ComposeService, error)
	}

	// PullOptions configures PullImage.
	PullOptions struct {
		Name   string
		Tag    string
		Stdout io.Writer
		Stderr io.Writer
	}

	// BuildOptions configures BuildImage.
	BuildOptions struct {
		Name string
		Tag  string
		// Dockerfile is passed with -f; empty lets the engine use <Context>/Dockerfile.
		Dockerfile string
		// Context is the build context directory; defaults to ".".
		Context   string
		BuildArgs map[string]string
		NoCache   bool
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ExecOptions configures ExecInContainer.
	ExecOptions struct {
		Container string
		// Shell runs the joined commands with -c; defaults to "sh".
		Shell    string
		WorkDir  string
		Commands []string
		Env      map[string]string
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ExecResult is the outcome of ExecInContainer. A non-zero ExitCode is
	// not an error; Stderr holds what the commands wrote to stderr.
	ExecResult struct {
		ExitCode types.ExitCode
		Stderr   string
	}
)

// ImageRef joins name and tag, defaulting the tag to "latest".
func ImageRef(name, tag string) string {
	if tag == "" {
		tag = DefaultTag
	}
	return name + ":" + tag
}

// ParseEngineType validates a configured engine name. Empty means docker.
func ParseEngineType(s string) (EngineType, error) {
	switch EngineType(s) {
	case "", EngineTypeDocker:
		return EngineTypeDocker, nil
	case EngineTypePodman:
		return EngineTypePodman, nil
	default:
		return "", issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("select container engine").
			WithResource(s).
			WithSuggestion("Set engine to \"docker\" or \"podman\"").
			Wrap(fmt.Errorf("unsupported engine %q", s)).
			BuildError()
	}
}

// NewEngine constructs the engine for typ without checking availability.
func NewEngine(typ EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	switch typ {
	case EngineTypeDocker:
		return NewDockerEngine(opts...), nil
	case EngineTypePodman:
		return NewPodmanEngine(opts...), nil
	default:
		_, err := ParseEngineType(string(typ))
		return nil, err
	}
}
