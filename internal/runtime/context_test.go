// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/internal/vcs"
)

type stubResolver struct {
	info *vcs.Info
	err  error
	got  vcs.Source
}

func (r *stubResolver) Resolve(_ context.Context, src vcs.Source) (*vcs.Info, error) {
	r.got = src
	return r.info, r.err
}

func testRoots(t *testing.T) Roots {
	t.Helper()
	base := t.TempDir()
	return Roots{
		HostWorkspace: filepath.Join(base, "workspace"),
		HostArtifacts: filepath.Join(base, "artifacts"),
		Logs:          filepath.Join(base, "logs"),
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 7, 21, 9, 5, 3, 0, time.UTC)
}

func TestBuilder_Build_Layering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.env"), []byte("A=file\nB=file\nTASK_ID=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vars.yml"), []byte("B: yaml\nC: yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	project := &config.ProjectConfig{
		Name: "api",
		File: filepath.Join(dir, "api.yml"),
		Source: &config.SourceConfig{
			GitRepo:   "https://example.com/acme/api.git",
			GitBranch: "main",
		},
		EnvironmentFiles: []config.EnvironmentFile{
			{Format: config.EnvFileFormatEnv, Path: "base.env"},
			{Format: config.EnvFileFormatYAML, Path: "vars.yml"},
			{Format: config.EnvFileFormatEnv, Path: "local.env?"},
		},
		Environment: map[string]string{"C": "inline", "GIT_HASH": "inline"},
	}
	resolver := &stubResolver{info: &vcs.Info{
		RepoURL:        "https://example.com/acme/api.git",
		Branch:         "release",
		CommitHash:     "0123456789abcdef",
		ShortHash:      "01234567",
		ProjectVersion: "1.4.2",
	}}
	roots := testRoots(t)
	b := NewBuilder(roots, WithVCSResolver(resolver), WithClock(fixedClock))

	ec, err := b.Build(context.Background(), BuildRequest{
		TaskID:        "abc123def45",
		Space:         "demo",
		Project:       "api",
		ProjectConfig: project,
		Branch:        "release",
		Overrides:     map[string]string{"A": "override"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := map[string]string{
		"A":                      "override",
		"B":                      "yaml",
		"C":                      "inline",
		EnvTaskID:                "abc123def45",
		EnvSpaceName:             "demo",
		EnvProjectName:           "api",
		EnvHostWorkspaceDir:      filepath.Join(roots.HostWorkspace, "demo-api-abc123def45"),
		EnvContainerWorkspaceDir: "/workspace/demo-api-abc123def45",
		EnvHostArtifactsDir:      filepath.Join(roots.HostArtifacts, "demo-api-abc123def45"),
		EnvContainerArtifactsDir: "/artifacts/demo-api-abc123def45",
		EnvGitRepo:               "https://example.com/acme/api.git",
		EnvGitBranch:             "release",
		EnvGitHash:               "0123456789abcdef",
		EnvGitHashShort:          "01234567",
		EnvProjectVersion:        "1.4.2",
	}
	env := ec.Env()
	for k, v := range want {
		if env[k] != v {
			t.Errorf("env[%s] = %q, want %q", k, env[k], v)
		}
	}
	if resolver.got.Branch != "release" {
		t.Errorf("resolver branch = %q, want release", resolver.got.Branch)
	}

	wantLog := filepath.Join(roots.Logs, "demo", "api", "2025.07.21-090503-abc123def45.log")
	if ec.LogPath != wantLog {
		t.Errorf("LogPath = %q, want %q", ec.LogPath, wantLog)
	}
	if !ec.CleanWorkspace {
		t.Error("CleanWorkspace should default to true")
	}
	if ec.VCS == nil || ec.VCS.ProjectVersion != "1.4.2" {
		t.Errorf("VCS = %+v", ec.VCS)
	}
}

func TestBuilder_Build_EnvIsACopy(t *testing.T) {
	t.Parallel()

	ec, err := NewBuilder(testRoots(t)).Build(context.Background(), BuildRequest{
		TaskID: "t", Space: "s", Project: "p", ProjectConfig: &config.ProjectConfig{Name: "p"},
	})
	if err != nil {
		t.Fatal(err)
	}
	env := ec.Env()
	env[EnvTaskID] = "changed"
	if v, _ := ec.Lookup(EnvTaskID); v != "t" {
		t.Errorf("TASK_ID = %q after mutating the copy", v)
	}
}

func TestBuilder_Build_VCSFailureOmitsLayer(t *testing.T) {
	t.Parallel()

	project := &config.ProjectConfig{Name: "p", Source: &config.SourceConfig{GitRepo: "u"}}
	b := NewBuilder(testRoots(t), WithVCSResolver(&stubResolver{err: errors.New("unreachable")}))
	ec, err := b.Build(context.Background(), BuildRequest{TaskID: "t", Space: "s", Project: "p", ProjectConfig: project})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if ec.VCS != nil {
		t.Errorf("VCS = %+v, want nil", ec.VCS)
	}
	if _, ok := ec.Lookup(EnvGitHash); ok {
		t.Error("GIT_HASH should be absent")
	}
}

func TestBuilder_Build_BranchWithoutVCS(t *testing.T) {
	t.Parallel()

	ec, err := NewBuilder(testRoots(t)).Build(context.Background(), BuildRequest{
		TaskID: "t", Space: "s", Project: "p", ProjectConfig: &config.ProjectConfig{Name: "p"}, Branch: "hotfix",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := ec.Lookup(EnvGitBranch); v != "hotfix" {
		t.Errorf("GIT_BRANCH = %q, want hotfix", v)
	}
}

func TestBuilder_Build_BadEnvFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.env"), []byte("NOEQUALS\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		file config.EnvironmentFile
	}{
		{"missing", config.EnvironmentFile{Format: config.EnvFileFormatEnv, Path: "missing.env"}},
		{"malformed", config.EnvironmentFile{Format: config.EnvFileFormatEnv, Path: "bad.env"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			project := &config.ProjectConfig{
				Name:             "p",
				File:             filepath.Join(dir, "p.yml"),
				EnvironmentFiles: []config.EnvironmentFile{tt.file},
			}
			_, err := NewBuilder(testRoots(t)).Build(context.Background(), BuildRequest{
				TaskID: "t", Space: "s", Project: "p", ProjectConfig: project,
			})
			if !errors.Is(err, issue.ErrConfiguration) {
				t.Errorf("Build() error = %v, want configuration kind", err)
			}
		})
	}
}

func newTestContext(env map[string]string) *ExecutionContext {
	return &ExecutionContext{
		Project:               &config.ProjectConfig{Name: "p"},
		HostWorkspaceDir:      "/host/ws",
		ContainerWorkspaceDir: "/workspace/ws",
		env:                   env,
	}
}

func TestExecutionContext_Resolve(t *testing.T) {
	t.Parallel()

	ec := newTestContext(map[string]string{
		"APP":  "api",
		"ROOT": "/workspace",
		"REF":  "${APP}",
	})

	tests := []struct {
		in   string
		want string
	}{
		{"${ROOT}/${APP}", "/workspace/api"},
		{"${UNKNOWN}/x", "${UNKNOWN}/x"},
		{"$APP", "$APP"},
		{"plain", "plain"},
		{"${ROOT}${ROOT}", "/workspace/workspace"},
		{"${REF}", "${APP}"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := ec.Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExecutionContext_ResolveIdempotent(t *testing.T) {
	t.Parallel()

	ec := newTestContext(map[string]string{"A": "1", "B": "two"})
	for _, s := range []string{"${A}-${B}", "${A}/${MISSING}", "none"} {
		once := ec.Resolve(s)
		if twice := ec.Resolve(once); twice != once {
			t.Errorf("Resolve not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestExecutionContext_WorkingDir(t *testing.T) {
	t.Parallel()

	ec := newTestContext(map[string]string{"CONTAINER_WORKSPACE_DIR": "/workspace/ws"})

	tests := []struct {
		name string
		step config.StepConfig
		want string
	}{
		{"host default", config.StepConfig{Name: "a"}, "/host/ws"},
		{"container default", config.StepConfig{Name: "b", Container: "builder"}, "/workspace/ws"},
		{"resolved", config.StepConfig{Name: "c", Container: "builder", WorkingDir: "${CONTAINER_WORKSPACE_DIR}/app"}, "/workspace/ws/app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ec.WorkingDir(tt.step); got != tt.want {
				t.Errorf("WorkingDir() = %q, want %q", got, tt.want)
			}
		})
	}
}
