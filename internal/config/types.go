// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// FileName is the root configuration file looked up in the working directory.
	FileName = ".confkit.yml"
	// EnvPrefix prefixes environment overrides, e.g. CONFKIT_ENGINE=podman.
	EnvPrefix = "CONFKIT"

	DefaultEngine         = "docker"
	DefaultComposeProject = "confkit"
	DefaultLogDir         = "volumes/logs"
	DefaultWorkspaceDir   = "volumes/workspace"
	DefaultArtifactsDir   = "volumes/artifacts"
	DefaultShell          = "sh"

	EnvFileFormatYAML EnvFileFormat = "yaml"
	EnvFileFormatEnv  EnvFileFormat = "env"
)

type (
	// Config is the root configuration.
	Config struct {
		Version       string              `mapstructure:"version"`
		Engine        string              `mapstructure:"engine"`
		EngineCompose EngineComposeConfig `mapstructure:"engine_compose"`
		Spaces        []SpaceConfig       `mapstructure:"spaces"`
		Images        []ImageConfig       `mapstructure:"images"`
		LogDir        string              `mapstructure:"log_dir"`
		WorkspaceDir  string              `mapstructure:"workspace_dir"`
		ArtifactsDir  string              `mapstructure:"artifacts_dir"`
		EventHub      EventHubConfig      `mapstructure:"event_hub"`

		// BaseDir is the directory of the loaded file; relative paths in the
		// configuration are resolved against it.
		BaseDir string `mapstructure:"-"`
	}

	// EngineComposeConfig points at the compose declaration of builder containers.
	EngineComposeConfig struct {
		Project string `mapstructure:"project"`
		File    string `mapstructure:"file"`
	}

	// SpaceConfig is a named directory of project files.
	SpaceConfig struct {
		Name        string `mapstructure:"name"`
		Description string `mapstructure:"description"`
		Path        string `mapstructure:"path"`
	}

	// ImageConfig declares a builder image confkit can build or pull.
	ImageConfig struct {
		Name       string `mapstructure:"name"`
		BaseImage  string `mapstructure:"base_image"`
		Tag        string `mapstructure:"tag"`
		Context    string `mapstructure:"context"`
		EngineFile string `mapstructure:"engine_file"`
	}

	// EventHubConfig tunes the event hub.
	EventHubConfig struct {
		Workers int `mapstructure:"workers"`
	}

	// ProjectConfig is one project file.
	ProjectConfig struct {
		Name             string            `yaml:"name"`
		Description      string            `yaml:"description"`
		Source           *SourceConfig     `yaml:"source"`
		Shell            ShellConfig       `yaml:"shell"`
		EnvironmentFiles []EnvironmentFile `yaml:"environment_files"`
		Environment      map[string]string `yaml:"environment"`
		Cleaner          CleanerConfig     `yaml:"cleaner"`
		Steps            []StepConfig      `yaml:"steps"`

		// File is the path the project was loaded from.
		File string `yaml:"-"`
	}

	// SourceConfig names the repository a project builds.
	SourceConfig struct {
		GitRepo      string `yaml:"git_repo"`
		GitBranch    string `yaml:"git_branch"`
		Language     string `yaml:"language"`
		ManifestFile string `yaml:"manifest_file"`
	}

	// ShellConfig selects the interpreters used for host and container steps.
	ShellConfig struct {
		Host      string `yaml:"host"`
		Container string `yaml:"container"`
	}

	// EnvFileFormat is the syntax of an environment file.
	EnvFileFormat string

	// EnvironmentFile references a file of environment variables. A path
	// ending in "?" is optional.
	EnvironmentFile struct {
		Format EnvFileFormat `yaml:"format"`
		Path   string        `yaml:"path"`
	}

	// CleanerConfig controls what is removed after a run.
	CleanerConfig struct {
		Workspace *bool `yaml:"workspace"`
		Artifacts *bool `yaml:"artifacts"`
	}

	// StepConfig is one step of a project.
	StepConfig struct {
		Name            string   `yaml:"name"`
		Container       string   `yaml:"container"`
		WorkingDir      string   `yaml:"working_dir"`
		Commands        []string `yaml:"commands"`
		Timeout         string   `yaml:"timeout"`
		ContinueOnError bool     `yaml:"continue_on_error"`
		// ParallelGroup is accepted but steps always run sequentially.
		ParallelGroup string `yaml:"parallel_group"`
	}
)

// Space returns the space called name.
func (c *Config) Space(name string) (*SpaceConfig, bool) {
	for i := range c.Spaces {
		if c.Spaces[i].Name == name {
			return &c.Spaces[i], true
		}
	}
	return nil, false
}

// Image returns the declared image with name and tag. An empty tag matches
// the first image with that name.
func (c *Config) Image(name, tag string) (*ImageConfig, bool) {
	for i := range c.Images {
		img := &c.Images[i]
		if img.Name == name && (tag == "" || img.Tag == tag) {
			return img, true
		}
	}
	return nil, false
}

// HostShell returns the shell for host steps.
func (p *ProjectConfig) HostShell() string {
	if p.Shell.Host != "" {
		return p.Shell.Host
	}
	return DefaultShell
}

// ContainerShell returns the shell for container steps.
func (p *ProjectConfig) ContainerShell() string {
	if p.Shell.Container != "" {
		return p.Shell.Container
	}
	return DefaultShell
}

// CleanWorkspace reports whether the host workspace is removed after a run.
func (p *ProjectConfig) CleanWorkspace() bool {
	return p.Cleaner.Workspace == nil || *p.Cleaner.Workspace
}

// CleanArtifacts reports whether the host artifacts directory is removed after a run.
func (p *ProjectConfig) CleanArtifacts() bool {
	return p.Cleaner.Artifacts != nil && *p.Cleaner.Artifacts
}

// Optional reports whether a missing file is tolerated, and returns the
// path without its "?" marker.
func (f EnvironmentFile) Optional() (path string, optional bool) {
	if p, ok := strings.CutSuffix(f.Path, "?"); ok {
		return p, true
	}
	return f.Path, false
}

// IsContainer reports whether the step runs inside a container.
func (s StepConfig) IsContainer() bool {
	return s.Container != ""
}

// TimeoutDuration parses Timeout. It accepts Go durations ("90s", "5m")
// and bare seconds ("300"). ok is false when no timeout is set.
func (s StepConfig) TimeoutDuration() (d time.Duration, ok bool, err error) {
	raw := strings.TrimSpace(s.Timeout)
	if raw == "" {
		return 0, false, nil
	}
	if secs, convErr := strconv.Atoi(raw); convErr == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(raw); err != nil {
		return 0, false, fmt.Errorf("invalid timeout %q for step %q: %w", s.Timeout, s.Name, err)
	}
	if d <= 0 {
		return 0, false, fmt.Errorf("invalid timeout %q for step %q: must be positive", s.Timeout, s.Name)
	}
	return d, true, nil
}
