// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PodmanEngine drives the podman CLI.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine looks up podman on PATH. A missing binary is reported by Available.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")
	e := &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypePodman), path, opts...),
	}
	e.imageExists = e.imageExistsProbe
	return e
}

func (e *PodmanEngine) Available(ctx context.Context) error {
	if _, err := e.Version(ctx); err != nil {
		return unavailableError(e.Name(), err)
	}
	return nil
}

// Version returns the podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	if e.BinaryPath() == "" {
		return "", errBinaryNotFound
	}
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// imageExistsProbe uses "podman image exists", which exits 1 for a missing
// image and 125 for engine failures.
func (e *PodmanEngine) imageExistsProbe(ctx context.Context, ref string) (bool, error) {
	err := e.RunCommandStatus(ctx, "image", "exists", ref)
	if err == nil {
		return true, nil
	}
	if code, ok := exitCodeOf(err); ok && code == 1 {
		return false, nil
	}
	return false, e.engineError("check image", ref, err)
}
