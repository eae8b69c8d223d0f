// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/confkit/confkit/internal/issue"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine != DefaultEngine {
		t.Errorf("Engine = %q, want %q", cfg.Engine, DefaultEngine)
	}
	if cfg.EngineCompose.Project != DefaultComposeProject {
		t.Errorf("EngineCompose.Project = %q, want %q", cfg.EngineCompose.Project, DefaultComposeProject)
	}
	if cfg.WorkspaceDir != DefaultWorkspaceDir {
		t.Errorf("WorkspaceDir = %q, want %q", cfg.WorkspaceDir, DefaultWorkspaceDir)
	}
	if cfg.EventHub.Workers != 1 {
		t.Errorf("EventHub.Workers = %d, want 1", cfg.EventHub.Workers)
	}
	if len(cfg.Spaces) != 0 {
		t.Errorf("Spaces = %v, want none", cfg.Spaces)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.yml")})
	if err == nil {
		t.Fatal("Load() expected error for missing explicit file")
	}
	if !errors.Is(err, issue.ErrConfiguration) {
		t.Errorf("error = %v, want configuration kind", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
version: 1
engine: podman
engine_compose:
  project: builders
  file: docker-compose.yml
spaces:
  - name: demo
    description: demo space
    path: spaces/demo
images:
  - name: golang
    base_image: golang:1.24
    tag: 1.24
    context: images/golang
event_hub:
  workers: 4
`)

	cfg, err := Load(context.Background(), LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine != "podman" {
		t.Errorf("Engine = %q, want podman", cfg.Engine)
	}
	if cfg.EngineCompose.Project != "builders" || cfg.EngineCompose.File != "docker-compose.yml" {
		t.Errorf("EngineCompose = %+v", cfg.EngineCompose)
	}
	if cfg.LogDir != DefaultLogDir {
		t.Errorf("LogDir = %q, want default %q", cfg.LogDir, DefaultLogDir)
	}
	if cfg.EventHub.Workers != 4 {
		t.Errorf("EventHub.Workers = %d, want 4", cfg.EventHub.Workers)
	}

	space, ok := cfg.Space("demo")
	if !ok {
		t.Fatal("Space(demo) not found")
	}
	if got, want := cfg.ResolvePath(space.Path), filepath.Join(cfg.BaseDir, "spaces/demo"); got != want {
		t.Errorf("ResolvePath = %q, want %q", got, want)
	}
	if _, ok := cfg.Space("other"); ok {
		t.Error("Space(other) should not be found")
	}

	img, ok := cfg.Image("golang", "")
	if !ok {
		t.Fatal("Image(golang) not found")
	}
	if img.BaseImage != "golang:1.24" {
		t.Errorf("BaseImage = %q", img.BaseImage)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown engine", "engine: containerd\n"},
		{"unknown field", "engines: docker\n"},
		{"space without path", "spaces:\n  - name: demo\n"},
		{"zero workers", "event_hub:\n  workers: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName), tt.content)

			_, err := Load(context.Background(), LoadOptions{Dir: dir})
			if err == nil {
				t.Fatal("Load() expected schema error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error type = %T, want *issue.ActionableError", err)
			}
			if ae.Kind != issue.ConfigurationId {
				t.Errorf("Kind = %v, want configuration", ae.Kind)
			}
		})
	}
}

func TestLoad_DuplicateSpace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
spaces:
  - name: demo
    path: a
  - name: demo
    path: b
`)
	if _, err := Load(context.Background(), LoadOptions{Dir: dir}); err == nil {
		t.Fatal("Load() expected duplicate space error")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CONFKIT_ENGINE", "podman")
	t.Setenv("CONFKIT_ENGINE_COMPOSE_FILE", "/etc/confkit/compose.yml")

	cfg, err := Load(context.Background(), LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine != "podman" {
		t.Errorf("Engine = %q, want podman", cfg.Engine)
	}
	if cfg.EngineCompose.File != "/etc/confkit/compose.yml" {
		t.Errorf("EngineCompose.File = %q", cfg.EngineCompose.File)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, LoadOptions{Dir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestStepConfig_TimeoutDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		timeout string
		want    time.Duration
		ok      bool
		wantErr bool
	}{
		{"", 0, false, false},
		{"300", 300 * time.Second, true, false},
		{"90s", 90 * time.Second, true, false},
		{"5m", 5 * time.Minute, true, false},
		{"0", 0, false, true},
		{"-1s", 0, false, true},
		{"soon", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.timeout, func(t *testing.T) {
			t.Parallel()
			got, ok, err := StepConfig{Name: "s", Timeout: tt.timeout}.TimeoutDuration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("TimeoutDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || ok != tt.ok {
				t.Errorf("TimeoutDuration() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEnvironmentFile_Optional(t *testing.T) {
	t.Parallel()

	path, optional := EnvironmentFile{Path: "env/.env.local?"}.Optional()
	if path != "env/.env.local" || !optional {
		t.Errorf("Optional() = (%q, %v)", path, optional)
	}
	path, optional = EnvironmentFile{Path: "env/.env"}.Optional()
	if path != "env/.env" || optional {
		t.Errorf("Optional() = (%q, %v)", path, optional)
	}
}
