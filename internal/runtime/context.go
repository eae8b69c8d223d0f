// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"log/slog"
	"maps"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/internal/vcs"
)

// Variables set on every run.
const (
	EnvTaskID                = "TASK_ID"
	EnvProjectName           = "PROJECT_NAME"
	EnvSpaceName             = "SPACE_NAME"
	EnvHostWorkspaceDir      = "HOST_WORKSPACE_DIR"
	EnvContainerWorkspaceDir = "CONTAINER_WORKSPACE_DIR"
	EnvHostArtifactsDir      = "HOST_ARTIFACTS_DIR"
	EnvContainerArtifactsDir = "CONTAINER_ARTIFACTS_DIR"

	EnvGitRepo        = "GIT_REPO"
	EnvGitBranch      = "GIT_BRANCH"
	EnvGitHash        = "GIT_HASH"
	EnvGitHashShort   = "GIT_HASH_SHORT"
	EnvProjectVersion = "PROJECT_VERSION"
)

const (
	DefaultContainerWorkspaceDir = "/workspace"
	DefaultContainerArtifactsDir = "/artifacts"

	logTimestampLayout = "2006.01.02-150405"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type (
	// ExecutionContext is the read-only state of one run.
	ExecutionContext struct {
		TaskID      string
		SpaceName   string
		ProjectName string
		Project     *config.ProjectConfig

		HostWorkspaceDir      string
		ContainerWorkspaceDir string
		HostArtifactsDir      string
		ContainerArtifactsDir string
		LogPath               string

		// VCS is nil when the project has no source or it could not be resolved.
		VCS *vcs.Info

		CleanWorkspace bool
		CleanArtifacts bool

		env map[string]string
	}

	// BuildRequest describes the run to build a context for.
	BuildRequest struct {
		TaskID        string
		Space         string
		Project       string
		ProjectConfig *config.ProjectConfig
		// Branch overrides source.git_branch for VCS lookup and GIT_BRANCH.
		Branch string
		// Overrides are applied last.
		Overrides map[string]string
	}

	// Roots are the directories per-task paths are created under.
	Roots struct {
		HostWorkspace      string
		HostArtifacts      string
		ContainerWorkspace string
		ContainerArtifacts string
		Logs               string
	}

	// Builder builds ExecutionContexts.
	Builder struct {
		roots    Roots
		resolver vcs.Resolver
		now      func() time.Time
		logger   *slog.Logger
	}

	// BuilderOption configures a Builder.
	BuilderOption func(*Builder)
)

// WithVCSResolver enables VCS metadata lookup.
func WithVCSResolver(r vcs.Resolver) BuilderOption {
	return func(b *Builder) { b.resolver = r }
}

// WithClock replaces time.Now for log file names.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder creates a Builder. Empty container roots default to
// /workspace and /artifacts.
func NewBuilder(roots Roots, opts ...BuilderOption) *Builder {
	if roots.ContainerWorkspace == "" {
		roots.ContainerWorkspace = DefaultContainerWorkspaceDir
	}
	if roots.ContainerArtifacts == "" {
		roots.ContainerArtifacts = DefaultContainerArtifactsDir
	}
	b := &Builder{roots: roots, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// TaskPath is the directory segment that namespaces a run.
func TaskPath(space, project, taskID string) string {
	return space + "-" + project + "-" + taskID
}

// Build computes the paths and environment of a run. Unreadable or
// malformed environment files are Configuration errors. A failed VCS
// lookup only drops the VCS variables.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*ExecutionContext, error) {
	p := req.ProjectConfig
	segment := TaskPath(req.Space, req.Project, req.TaskID)

	ec := &ExecutionContext{
		TaskID:                req.TaskID,
		SpaceName:             req.Space,
		ProjectName:           req.Project,
		Project:               p,
		HostWorkspaceDir:      filepath.Join(b.roots.HostWorkspace, segment),
		ContainerWorkspaceDir: path.Join(b.roots.ContainerWorkspace, segment),
		HostArtifactsDir:      filepath.Join(b.roots.HostArtifacts, segment),
		ContainerArtifactsDir: path.Join(b.roots.ContainerArtifacts, segment),
		LogPath:               TaskLogPath(b.roots.Logs, req.Space, req.Project, req.TaskID, b.now()),
		CleanWorkspace: p.CleanWorkspace(),
		CleanArtifacts: p.CleanArtifacts(),
	}

	env := make(map[string]string)

	baseDir := filepath.Dir(p.File)
	for _, f := range p.EnvironmentFiles {
		if err := loadEnvironmentFile(env, f, baseDir); err != nil {
			return nil, issue.NewErrorContext().
				WithKind(issue.ConfigurationId).
				WithOperation("load environment file").
				WithResource(f.Path).
				WithSuggestion("Paths are relative to " + baseDir).
				WithSuggestion("Suffix the path with '?' to make the file optional").
				Wrap(err).
				BuildError()
		}
	}

	maps.Copy(env, p.Environment)

	env[EnvTaskID] = ec.TaskID
	env[EnvProjectName] = ec.ProjectName
	env[EnvSpaceName] = ec.SpaceName
	env[EnvHostWorkspaceDir] = ec.HostWorkspaceDir
	env[EnvContainerWorkspaceDir] = ec.ContainerWorkspaceDir
	env[EnvHostArtifactsDir] = ec.HostArtifactsDir
	env[EnvContainerArtifactsDir] = ec.ContainerArtifactsDir

	if info := b.resolveVCS(ctx, p, req.Branch); info != nil {
		ec.VCS = info
		env[EnvGitRepo] = info.RepoURL
		env[EnvGitBranch] = info.Branch
		env[EnvGitHash] = info.CommitHash
		env[EnvGitHashShort] = info.ShortHash
		env[EnvProjectVersion] = info.ProjectVersion
	}

	if req.Branch != "" {
		env[EnvGitBranch] = req.Branch
	}
	maps.Copy(env, req.Overrides)

	ec.env = env
	return ec, nil
}

func (b *Builder) resolveVCS(ctx context.Context, p *config.ProjectConfig, branch string) *vcs.Info {
	if b.resolver == nil || p.Source == nil {
		return nil
	}
	src := vcs.Source{
		RepoURL:      p.Source.GitRepo,
		Branch:       p.Source.GitBranch,
		Language:     p.Source.Language,
		ManifestFile: p.Source.ManifestFile,
	}
	if branch != "" {
		src.Branch = branch
	}
	info, err := b.resolver.Resolve(ctx, src)
	if err != nil {
		b.logger.Debug("version control metadata unavailable", "repo", src.RepoURL, "error", err)
		return nil
	}
	return info
}

// Env returns a copy of the environment map.
func (ec *ExecutionContext) Env() map[string]string {
	return maps.Clone(ec.env)
}

// Lookup returns the value of key.
func (ec *ExecutionContext) Lookup(key string) (string, bool) {
	v, ok := ec.env[key]
	return v, ok
}

// Resolve replaces ${KEY} with the value of KEY. Tokens naming unknown keys
// are kept verbatim. Substituted values are not rescanned.
func (ec *ExecutionContext) Resolve(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(token string) string {
		if v, ok := ec.env[token[2:len(token)-1]]; ok {
			return v
		}
		return token
	})
}

// WorkingDir is the resolved working directory of step, defaulting to the
// task workspace on the side the step runs on.
func (ec *ExecutionContext) WorkingDir(step config.StepConfig) string {
	if step.WorkingDir != "" {
		return ec.Resolve(step.WorkingDir)
	}
	if step.IsContainer() {
		return ec.ContainerWorkspaceDir
	}
	return ec.HostWorkspaceDir
}

// Shell returns the interpreter for step.
func (ec *ExecutionContext) Shell(step config.StepConfig) string {
	if step.IsContainer() {
		return ec.Project.ContainerShell()
	}
	return ec.Project.HostShell()
}
