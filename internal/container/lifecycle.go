// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"strings"

	"github.com/confkit/confkit/internal/issue"
)

var (
	// ErrContainerNotFound is wrapped when an operation needs an existing container.
	ErrContainerNotFound = errors.New("container does not exist")
	// ErrContainerRunning is wrapped when removal is refused for a running container.
	ErrContainerRunning = errors.New("container is running")
)

// ContainerExists reports whether a container with exactly this name exists.
func (e *BaseCLIEngine) ContainerExists(ctx context.Context, name string) (bool, error) {
	out, err := e.RunCommandWithOutput(ctx, e.PsArgs(name, "")...)
	if err != nil {
		return false, e.engineError("check container", name, err)
	}
	return strings.TrimSpace(out) != "", nil
}

// ContainerInfo returns the container, or a StatusUnbuilt info when absent.
func (e *BaseCLIEngine) ContainerInfo(ctx context.Context, name string) (*ContainerInfo, error) {
	out, err := e.RunCommandWithOutput(ctx, e.PsArgs(name, containerInfoFormat)...)
	if err != nil {
		return nil, e.engineError("inspect container", name, err)
	}
	return parseContainerInfo(name, out), nil
}

// CreateContainer creates the container from its compose service. An
// existing container is kept unless force is set, in which case it is
// removed and recreated.
func (e *BaseCLIEngine) CreateContainer(ctx context.Context, name string, force bool) error {
	exists, err := e.ContainerExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if !force {
			e.logger.Debug("container already exists", "container", name)
			return nil
		}
		if err := e.RemoveContainer(ctx, name, true); err != nil {
			return err
		}
	}

	svc, err := e.Service(ctx, name)
	if err != nil {
		return err
	}
	if err := e.RunCommandStatus(ctx, e.ComposeCreateArgs(svc.ServiceName)...); err != nil {
		return issue.NewErrorContext().
			WithKind(issue.ExecFailureId).
			WithOperation("create container").
			WithResource(name).
			WithSuggestion("Build or pull the service image " + svc.Image + " first").
			Wrap(err).
			BuildError()
	}
	return nil
}

// StartContainer starts the container, creating it first when absent. A
// running container is left alone.
func (e *BaseCLIEngine) StartContainer(ctx context.Context, name string) error {
	info, err := e.ContainerInfo(ctx, name)
	if err != nil {
		return err
	}
	switch {
	case info.Status.IsRunning():
		return nil
	case !info.Status.Exists():
		if err := e.CreateContainer(ctx, name, false); err != nil {
			return err
		}
	}
	return e.lifecycle(ctx, "start", name)
}

// StopContainer stops a running container. Stopping a stopped container is a no-op.
func (e *BaseCLIEngine) StopContainer(ctx context.Context, name string) error {
	info, err := e.ContainerInfo(ctx, name)
	if err != nil {
		return err
	}
	if !info.Status.Exists() {
		return notFoundError("stop container", name)
	}
	if !info.Status.IsRunning() && info.Status != StatusRestarting && info.Status != StatusPaused {
		return nil
	}
	return e.lifecycle(ctx, "stop", name)
}

// RestartContainer restarts the container, creating and starting it when absent.
func (e *BaseCLIEngine) RestartContainer(ctx context.Context, name string) error {
	exists, err := e.ContainerExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return e.StartContainer(ctx, name)
	}
	return e.lifecycle(ctx, "restart", name)
}

// RemoveContainer removes the container. A running container is refused
// unless force is set. Removing an absent container is a no-op.
func (e *BaseCLIEngine) RemoveContainer(ctx context.Context, name string, force bool) error {
	info, err := e.ContainerInfo(ctx, name)
	if err != nil {
		return err
	}
	if !info.Status.Exists() {
		return nil
	}
	if info.Status.IsRunning() && !force {
		return issue.NewErrorContext().
			WithKind(issue.RemoveFailureId).
			WithOperation("remove container").
			WithResource(name).
			WithSuggestion("Stop the container first (try: confkit container stop " + name + ")").
			WithSuggestion("Or pass --force").
			Wrap(ErrContainerRunning).
			BuildError()
	}
	if err := e.RunCommandStatus(ctx, e.RemoveArgs(name, force)...); err != nil {
		return issue.WrapWithContext(err, issue.RemoveFailureId, "remove container", name)
	}
	return nil
}

func (e *BaseCLIEngine) lifecycle(ctx context.Context, verb, name string) error {
	if err := e.RunCommandStatus(ctx, e.LifecycleArgs(verb, name)...); err != nil {
		return issue.WrapWithContext(err, issue.ExecFailureId, verb+" container", name)
	}
	return nil
}

func notFoundError(op, name string) error {
	return issue.NewErrorContext().
		WithKind(issue.ConfigurationId).
		WithOperation(op).
		WithResource(name).
		WithSuggestion("Create it first (try: confkit container create " + name + ")").
		Wrap(ErrContainerNotFound).
		BuildError()
}
