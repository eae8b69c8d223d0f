// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/confkit/confkit/pkg/types"
)

const integrationImage = "alpine:3.20"

// checkTestcontainersAvailable reports whether testcontainers can reach a
// docker provider. Provider detection can panic without a daemon.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestDockerEngine_Integration drives a real docker engine against a
// container started by testcontainers.
func TestDockerEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	engine := NewDockerEngine()
	if err := engine.Available(ctx); err != nil {
		t.Skipf("skipping container integration tests: %v", err)
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration tests: testcontainers provider not available")
	}

	name := fmt.Sprintf("confkit-it-%d", os.Getpid())
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: integrationImage,
			Name:  name,
			Cmd:   []string{"sleep", "300"},
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start container: %v", err)
	}

	t.Run("ContainerInfo", func(t *testing.T) {
		exists, err := engine.ContainerExists(ctx, name)
		if err != nil || !exists {
			t.Fatalf("ContainerExists() = %v, %v", exists, err)
		}
		info, err := engine.ContainerInfo(ctx, name)
		if err != nil {
			t.Fatalf("ContainerInfo() error = %v", err)
		}
		if info.Status != StatusRunning {
			t.Errorf("Status = %q, want running", info.Status)
		}
	})

	t.Run("MissingContainer", func(t *testing.T) {
		info, err := engine.ContainerInfo(ctx, name+"-missing")
		if err != nil {
			t.Fatalf("ContainerInfo() error = %v", err)
		}
		if info.Status.Exists() {
			t.Errorf("Status = %q, want unbuilt", info.Status)
		}
	})

	t.Run("ImageExists", func(t *testing.T) {
		ok, err := engine.ImageExists(ctx, "alpine", "3.20")
		if err != nil || !ok {
			t.Errorf("ImageExists() = %v, %v", ok, err)
		}
	})

	t.Run("Exec", func(t *testing.T) {
		var stdout bytes.Buffer
		res, err := engine.ExecInContainer(ctx, ExecOptions{
			Container: name,
			WorkDir:   "/tmp",
			Commands:  []string{`echo "$GREETING"`, "pwd"},
			Env:       map[string]string{"GREETING": "hello"},
			Stdout:    &stdout,
		})
		if err != nil {
			t.Fatalf("ExecInContainer() error = %v", err)
		}
		if res.ExitCode != types.ExitCodeSuccess {
			t.Fatalf("ExitCode = %d, stderr = %q", res.ExitCode, res.Stderr)
		}
		if got := strings.Fields(stdout.String()); len(got) != 2 || got[0] != "hello" || got[1] != "/tmp" {
			t.Errorf("output = %q", stdout.String())
		}
	})

	t.Run("ExecExitCode", func(t *testing.T) {
		res, err := engine.ExecInContainer(ctx, ExecOptions{
			Container: name,
			Commands:  []string{"echo oops >&2", "exit 3", "echo unreachable"},
		})
		if err != nil {
			t.Fatalf("ExecInContainer() error = %v", err)
		}
		if res.ExitCode != 3 || res.Stderr != "oops" {
			t.Errorf("result = %+v, want exit 3 with stderr oops", res)
		}
	})
}
