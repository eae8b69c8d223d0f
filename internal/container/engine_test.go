// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/pkg/platform"
)

func TestImageRef(t *testing.T) {
	t.Parallel()

	if got := ImageRef("alpine", ""); got != "alpine:latest" {
		t.Errorf("ImageRef(alpine, \"\") = %q", got)
	}
	if got := ImageRef("golang", "1.25"); got != "golang:1.25" {
		t.Errorf("ImageRef(golang, 1.25) = %q", got)
	}
}

func TestParseEngineType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    EngineType
		wantErr bool
	}{
		{"", EngineTypeDocker, false},
		{"docker", EngineTypeDocker, false},
		{"podman", EngineTypePodman, false},
		{"containerd", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEngineType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseEngineType(%q) error = %v", tt.in, err)
		}
		if tt.wantErr && !errors.Is(err, issue.ErrConfiguration) {
			t.Errorf("error should be a configuration error: %v", err)
		}
		if got != tt.want {
			t.Errorf("ParseEngineType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDockerEngine_ContainerExistsNotFound(t *testing.T) {
	engine, rec := newMockDocker(t)

	exists, err := engine.ContainerExists(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("ContainerExists() error: %v", err)
	}
	if exists {
		t.Error("ContainerExists() = true for an empty ps result")
	}
	rec.AssertCalled(t, "ps", "-a", "--filter", "name=^nonexistent$", "--quiet")
}

func TestBaseCLIEngine_PsArgsQuotesName(t *testing.T) {
	t.Parallel()

	engine, _ := newMockDocker(t)
	tests := []struct {
		name string
		want string
	}{
		{"builder", "name=^builder$"},
		{"ck-web-1", "name=^ck-web-1$"},
		{"my.app", `name=^my\.app$`},
		{"a+b", `name=^a\+b$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := engine.PsArgs(tt.name, "")
			if got := args[3]; got != tt.want {
				t.Errorf("filter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDockerEngine_ContainerExistsFound(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.Default = MockResponse{Stdout: "3f2a1b\n"}

	exists, err := engine.ContainerExists(context.Background(), "builder")
	if err != nil || !exists {
		t.Errorf("ContainerExists() = %v, %v; want true, nil", exists, err)
	}
}

func TestDockerEngine_ContainerExistsEngineFailure(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.Default = MockResponse{Stderr: "Cannot connect to the Docker daemon", ExitCode: 1}

	_, err := engine.ContainerExists(context.Background(), "builder")
	if !errors.Is(err, issue.ErrEngineUnavailable) {
		t.Fatalf("error = %v, want engine unavailable", err)
	}
	if !strings.Contains(err.Error(), "Cannot connect") {
		t.Errorf("error should carry stderr: %v", err)
	}
}

func TestDockerEngine_ContainerInfo(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.Default = MockResponse{Stdout: "abc123\tbuilder\tgolang:1.25\trunning\t2024-05-01 10:00:00\t0B\n"}

	info, err := engine.ContainerInfo(context.Background(), "builder")
	if err != nil {
		t.Fatalf("ContainerInfo() error: %v", err)
	}
	if info.ID != "abc123" || info.Image != "golang:1.25" || info.Status != StatusRunning {
		t.Errorf("unexpected info: %+v", info)
	}
	if !rec.HasArgPair("--filter", "name=^builder$") || !rec.HasArgPair("--format", containerInfoFormat) {
		t.Errorf("unexpected args: %v", rec.LastArgs())
	}
}

func TestDockerEngine_ContainerInfoAbsent(t *testing.T) {
	engine, _ := newMockDocker(t)

	info, err := engine.ContainerInfo(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("ContainerInfo() error: %v", err)
	}
	if info.Status != StatusUnbuilt || info.Name != "ghost" {
		t.Errorf("info = %+v, want unbuilt ghost", info)
	}
}

func TestDockerEngine_ImageExists(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.On(MockResponse{Stdout: "sha256:abc\n"}, "images", "-q", "golang:1.25")

	exists, err := engine.ImageExists(context.Background(), "golang", "1.25")
	if err != nil || !exists {
		t.Errorf("ImageExists(golang:1.25) = %v, %v", exists, err)
	}
	exists, err = engine.ImageExists(context.Background(), "missing", "")
	if err != nil || exists {
		t.Errorf("ImageExists(missing) = %v, %v; want false, nil", exists, err)
	}
	rec.AssertCalled(t, "images", "-q", "missing:latest")
}

func TestPodmanEngine_ImageExists(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		want     bool
		wantErr  bool
	}{
		{"present", 0, true, false},
		{"absent", 1, false, false},
		{"engine failure", 125, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, rec := newMockPodman(t)
			rec.Default = MockResponse{ExitCode: tt.exitCode}

			got, err := engine.ImageExists(context.Background(), "alpine", "3.20")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ImageExists() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ImageExists() = %v, want %v", got, tt.want)
			}
			rec.AssertCalled(t, "image", "exists", "alpine:3.20")
		})
	}
}

func TestDockerEngine_ImageInfo(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.Default = MockResponse{Stdout: "f00d\t1.25\t2024-04-01 09:00:00 +0000 UTC\t800MB\n"}

	info, err := engine.ImageInfo(context.Background(), "golang", "1.25")
	if err != nil {
		t.Fatalf("ImageInfo() error: %v", err)
	}
	if info.Status != ImageBuilt || info.ID != "f00d" || info.Size != "800MB" {
		t.Errorf("unexpected info: %+v", info)
	}

	rec.Default = MockResponse{}
	info, err = engine.ImageInfo(context.Background(), "golang", "")
	if err != nil {
		t.Fatalf("ImageInfo() error: %v", err)
	}
	if info.Status != ImageUnbuilt || info.Tag != DefaultTag {
		t.Errorf("absent image info = %+v", info)
	}
}

func TestDockerEngine_PullImageFailureCarriesStderr(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.Default = MockResponse{Stderr: "manifest unknown", ExitCode: 1}

	var stderr bytes.Buffer
	err := engine.PullImage(context.Background(), PullOptions{Name: "nope", Tag: "1", Stderr: &stderr})
	if !errors.Is(err, issue.ErrPullFailure) {
		t.Fatalf("error = %v, want pull failure", err)
	}
	if !strings.Contains(err.Error(), "manifest unknown") {
		t.Errorf("error should carry captured stderr: %v", err)
	}
	if stderr.String() != "manifest unknown" {
		t.Errorf("stderr should be streamed to the caller, got %q", stderr.String())
	}
	rec.AssertCalled(t, "pull", "nope:1")
}

func TestDockerEngine_BuildImage(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.Default = MockResponse{Stdout: "Successfully built"}

	var stdout bytes.Buffer
	err := engine.BuildImage(context.Background(), BuildOptions{
		Name:       "app",
		Tag:        "dev",
		Dockerfile: "docker/Dockerfile.dev",
		Context:    "docker",
		BuildArgs:  map[string]string{"B": "2", "A": "1"},
		Stdout:     &stdout,
	})
	if err != nil {
		t.Fatalf("BuildImage() error: %v", err)
	}
	rec.AssertCalled(t, "build", "-t", "app:dev", "-f", "docker/Dockerfile.dev",
		"--build-arg", "A=1", "--build-arg", "B=2", "docker")
	if stdout.String() != "Successfully built" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestDockerEngine_BuildImageFailure(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.Default = MockResponse{Stderr: "failed to solve", ExitCode: 1}

	err := engine.BuildImage(context.Background(), BuildOptions{Name: "app"})
	if !errors.Is(err, issue.ErrBuildFailure) {
		t.Fatalf("error = %v, want build failure", err)
	}
	rec.AssertCalled(t, "build", "-t", "app:latest", ".")
}

func TestDockerEngine_RemoveImage(t *testing.T) {
	engine, rec := newMockDocker(t)
	if err := engine.RemoveImage(context.Background(), "gone", "", false); err != nil {
		t.Fatalf("RemoveImage(absent) error: %v", err)
	}
	rec.AssertNotCalled(t, "rmi")

	rec.On(MockResponse{Stdout: "abc\n"}, "images", "-q")
	rec.On(MockResponse{Stderr: "image is being used", ExitCode: 1}, "rmi")
	err := engine.RemoveImage(context.Background(), "busy", "1", false)
	if !errors.Is(err, issue.ErrRemoveFailure) {
		t.Fatalf("error = %v, want remove failure", err)
	}

	rec.On(MockResponse{}, "rmi", "-f")
	if err := engine.RemoveImage(context.Background(), "busy", "1", true); err != nil {
		t.Fatalf("forced RemoveImage() error: %v", err)
	}
	rec.AssertCalled(t, "rmi", "-f", "busy:1")
}

func TestEngine_AvailableMissingBinary(t *testing.T) {
	for _, engine := range []Engine{
		NewDockerEngine(WithBinaryPath(""), WithSandbox(platform.SandboxNone)),
		NewPodmanEngine(WithBinaryPath(""), WithSandbox(platform.SandboxNone)),
	} {
		err := engine.Available(context.Background())
		if !errors.Is(err, issue.ErrEngineUnavailable) {
			t.Errorf("%s: Available() = %v, want engine unavailable", engine.Name(), err)
		}
	}
}

func TestEngine_VersionProbes(t *testing.T) {
	docker, drec := newMockDocker(t)
	drec.Default = MockResponse{Stdout: "27.1.0\n"}
	if v, err := docker.Version(context.Background()); err != nil || v != "27.1.0" {
		t.Errorf("docker Version() = %q, %v", v, err)
	}
	drec.AssertCalled(t, "version", "--format", "{{.Server.Version}}")

	podman, prec := newMockPodman(t)
	prec.Default = MockResponse{Stdout: "5.2.0\n"}
	if err := podman.Available(context.Background()); err != nil {
		t.Errorf("podman Available() = %v", err)
	}
	prec.AssertCalled(t, "version", "--format", "{{.Version}}")
}

func writeCompose(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testCompose = `
services:
  go:
    container_name: go-builder
    image: golang:1.25
    working_dir: /workspace
`

func TestBaseCLIEngine_CreateContainerExistingIsNoop(t *testing.T) {
	engine, rec := newMockDocker(t, WithCompose("ck", writeCompose(t, testCompose)))
	rec.On(MockResponse{Stdout: "abc\n"}, "ps")

	if err := engine.CreateContainer(context.Background(), "go-builder", false); err != nil {
		t.Fatalf("CreateContainer() error: %v", err)
	}
	rec.AssertInvocationCount(t, 1)
	rec.AssertNotCalled(t, "compose")
}

func TestBaseCLIEngine_CreateContainerFromCompose(t *testing.T) {
	file := writeCompose(t, testCompose)
	engine, rec := newMockDocker(t, WithCompose("ck", file))

	if err := engine.CreateContainer(context.Background(), "go-builder", false); err != nil {
		t.Fatalf("CreateContainer() error: %v", err)
	}
	rec.AssertCalled(t, "compose", "-p", "ck", "-f", file, "create", "go")
}

func TestBaseCLIEngine_CreateContainerForceRecreates(t *testing.T) {
	file := writeCompose(t, testCompose)
	engine, rec := newMockDocker(t, WithCompose("ck", file))
	rec.On(MockResponse{Stdout: "abc\n"}, "ps", "-a", "--filter", "name=^go-builder$", "--quiet")
	rec.On(MockResponse{Stdout: "abc\tgo-builder\tgolang:1.25\texited\tx\t0B\n"}, "ps", "-a", "--filter", "name=^go-builder$", "--format")

	if err := engine.CreateContainer(context.Background(), "go-builder", true); err != nil {
		t.Fatalf("CreateContainer(force) error: %v", err)
	}
	rec.AssertCalled(t, "rm", "-f", "go-builder")
	rec.AssertCalled(t, "compose", "-p", "ck", "-f", file, "create", "go")
}

func TestBaseCLIEngine_CreateContainerUndeclared(t *testing.T) {
	engine, _ := newMockDocker(t, WithCompose("ck", writeCompose(t, testCompose)))

	err := engine.CreateContainer(context.Background(), "unknown", false)
	if !errors.Is(err, ErrServiceNotFound) || !errors.Is(err, issue.ErrConfiguration) {
		t.Errorf("error = %v, want service-not-found configuration error", err)
	}
}

func TestBaseCLIEngine_StartContainer(t *testing.T) {
	tests := []struct {
		name      string
		state     string
		wantStart bool
	}{
		{"running is left alone", "running", false},
		{"exited is started", "exited", true},
		{"created is started", "created", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, rec := newMockDocker(t)
			rec.On(MockResponse{Stdout: "id\tbox\timg\t" + tt.state + "\tx\t0B\n"}, "ps")

			if err := engine.StartContainer(context.Background(), "box"); err != nil {
				t.Fatalf("StartContainer() error: %v", err)
			}
			if tt.wantStart {
				rec.AssertCalled(t, "start", "box")
			} else {
				rec.AssertNotCalled(t, "start")
			}
		})
	}
}

func TestBaseCLIEngine_StartContainerAutoCreates(t *testing.T) {
	file := writeCompose(t, testCompose)
	engine, rec := newMockDocker(t, WithCompose("ck", file))

	if err := engine.StartContainer(context.Background(), "go-builder"); err != nil {
		t.Fatalf("StartContainer() error: %v", err)
	}
	rec.AssertCalled(t, "compose", "-p", "ck", "-f", file, "create", "go")
	rec.AssertCalled(t, "start", "go-builder")
}

func TestBaseCLIEngine_StopContainer(t *testing.T) {
	engine, rec := newMockDocker(t)
	err := engine.StopContainer(context.Background(), "ghost")
	if !errors.Is(err, ErrContainerNotFound) {
		t.Errorf("StopContainer(absent) = %v, want ErrContainerNotFound", err)
	}

	rec.On(MockResponse{Stdout: "id\tbox\timg\texited\tx\t0B\n"}, "ps")
	if err := engine.StopContainer(context.Background(), "box"); err != nil {
		t.Errorf("StopContainer(exited) error: %v", err)
	}
	rec.AssertNotCalled(t, "stop")
}

func TestBaseCLIEngine_RemoveContainer(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.On(MockResponse{Stdout: "id\tbox\timg\trunning\tx\t0B\n"}, "ps")

	err := engine.RemoveContainer(context.Background(), "box", false)
	if !errors.Is(err, ErrContainerRunning) || !errors.Is(err, issue.ErrRemoveFailure) {
		t.Fatalf("RemoveContainer(running) = %v, want running remove failure", err)
	}
	rec.AssertNotCalled(t, "rm")

	if err := engine.RemoveContainer(context.Background(), "box", true); err != nil {
		t.Fatalf("RemoveContainer(force) error: %v", err)
	}
	rec.AssertCalled(t, "rm", "-f", "box")
}

func TestBaseCLIEngine_RestartAbsentStarts(t *testing.T) {
	file := writeCompose(t, testCompose)
	engine, rec := newMockDocker(t, WithCompose("ck", file))

	if err := engine.RestartContainer(context.Background(), "go-builder"); err != nil {
		t.Fatalf("RestartContainer() error: %v", err)
	}
	rec.AssertNotCalled(t, "restart")
	rec.AssertCalled(t, "start", "go-builder")
}

func TestBaseCLIEngine_ExecInContainer(t *testing.T) {
	engine, rec := newMockDocker(t)
	rec.On(MockResponse{Stdout: "id\tbox\timg\trunning\tx\t0B\n"}, "ps")
	rec.On(MockResponse{Stdout: "built\n", Stderr: "warning: x\n", ExitCode: 3}, "exec")

	var stdout bytes.Buffer
	res, err := engine.ExecInContainer(context.Background(), ExecOptions{
		Container: "box",
		Shell:     "bash",
		WorkDir:   "/workspace/app",
		Commands:  []string{"make deps", "make build"},
		Env:       map[string]string{"TASK_ID": "t1", "A": "b"},
		Stdout:    &stdout,
	})
	if err != nil {
		t.Fatalf("ExecInContainer() error: %v", err)
	}
	if res.ExitCode != 3 || res.Stderr != "warning: x" {
		t.Errorf("result = %+v", res)
	}
	if stdout.String() != "built\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	rec.AssertCalled(t, "exec", "-i", "-e", "A=b", "-e", "TASK_ID=t1", "-w", "/workspace/app",
		"box", "bash", "-c", "make deps && make build")
	rec.AssertNotCalled(t, "start")
}

func TestBaseCLIEngine_ExecInContainerNoCommands(t *testing.T) {
	engine, rec := newMockDocker(t)
	res, err := engine.ExecInContainer(context.Background(), ExecOptions{Container: "box"})
	if err != nil || res.ExitCode != 0 {
		t.Errorf("ExecInContainer(no commands) = %+v, %v", res, err)
	}
	rec.AssertInvocationCount(t, 0)
}
