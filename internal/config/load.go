// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/pkg/cueutil"
)

//go:embed schema.cue
var schema []byte

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific file when set.
		ConfigFilePath string
		// Dir is searched for FileName when ConfigFilePath is empty.
		// Defaults to the working directory.
		Dir string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads the root configuration. A missing default file yields the
// defaults; a missing explicit file is an error.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return Load(ctx, opts)
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Engine:        DefaultEngine,
		EngineCompose: EngineComposeConfig{Project: DefaultComposeProject},
		LogDir:        DefaultLogDir,
		WorkspaceDir:  DefaultWorkspaceDir,
		ArtifactsDir:  DefaultArtifactsDir,
		EventHub:      EventHubConfig{Workers: 1},
	}
}

// Load reads the root configuration described by opts.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("engine_compose.project", defaults.EngineCompose.Project)
	v.SetDefault("engine_compose.file", "")
	v.SetDefault("log_dir", defaults.LogDir)
	v.SetDefault("workspace_dir", defaults.WorkspaceDir)
	v.SetDefault("artifacts_dir", defaults.ArtifactsDir)
	v.SetDefault("event_hub.workers", defaults.EventHub.Workers)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFilePath
	explicit := path != ""
	if !explicit {
		path = filepath.Join(opts.Dir, FileName)
	}

	switch _, err := os.Stat(path); {
	case err == nil:
		if err := loadYAMLIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithKind(issue.ConfigurationId).
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid YAML").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'confkit config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Check that the file exists and is readable").
			Wrap(err).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.WrapWithContext(err, issue.ConfigurationId, "decode configuration", path)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, issue.WrapWithContext(err, issue.IOId, "resolve configuration directory", path)
	}
	cfg.BaseDir = abs

	if err := cfg.validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Give every space a unique name").
			Wrap(err).
			BuildError()
	}
	return &cfg, nil
}

// loadYAMLIntoViper validates the file against #Config and merges the
// decoded values over the defaults, so environment overrides still apply.
func loadYAMLIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	value, err := cueutil.ValidateYAML(schema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}
	var configMap map[string]any
	if err := value.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}
	return v.MergeConfigMap(configMap)
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Spaces))
	for _, s := range c.Spaces {
		if seen[s.Name] {
			return fmt.Errorf("duplicate space %q", s.Name)
		}
		seen[s.Name] = true
	}
	if c.EventHub.Workers < 1 {
		return fmt.Errorf("event_hub.workers must be at least 1, got %d", c.EventHub.Workers)
	}
	return nil
}

// ResolvePath returns p unchanged when absolute, otherwise joined to BaseDir.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
