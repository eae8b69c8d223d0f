// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/pkg/cueutil"
)

var (
	// ErrSpaceNotFound is wrapped when a space name is not declared.
	ErrSpaceNotFound = errors.New("space not found")
	// ErrProjectNotFound is wrapped when no project file declares the name.
	ErrProjectNotFound = errors.New("project not found")
)

// ParseProject validates data against #Project and decodes it.
func ParseProject(data []byte, filename string) (*ProjectConfig, error) {
	if _, err := cueutil.ValidateYAML(schema, data, "#Project", cueutil.WithFilename(filename)); err != nil {
		return nil, err
	}
	var p ProjectConfig
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	p.File = filename
	if p.Environment == nil {
		p.Environment = map[string]string{}
	}
	for _, step := range p.Steps {
		if _, _, err := step.TimeoutDuration(); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	return &p, nil
}

// LoadProject reads and parses one project file.
func LoadProject(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.WrapWithContext(err, issue.IOId, "read project file", path)
	}
	p, err := ParseProject(data, path)
	if err != nil {
		return nil, issue.WrapWithContext(err, issue.ConfigurationId, "parse project file", path)
	}
	return p, nil
}

// LoadProjects parses every *.yml and *.yaml file of the space directory,
// sorted by file name. Files that fail to parse are logged and skipped;
// their errors are returned joined alongside the parsed projects.
func (c *Config) LoadProjects(space string) ([]*ProjectConfig, error) {
	projects, parseErr, err := c.scanSpace(space)
	if err != nil {
		return nil, err
	}
	return projects, parseErr
}

// FindProject returns the project called name in space. Parse failures of
// other files do not prevent a match.
func (c *Config) FindProject(space, name string) (*ProjectConfig, error) {
	projects, parseErr, err := c.scanSpace(space)
	if err != nil {
		return nil, err
	}
	if i := slices.IndexFunc(projects, func(p *ProjectConfig) bool { return p.Name == name }); i >= 0 {
		return projects[i], nil
	}

	ec := issue.NewErrorContext().
		WithKind(issue.ConfigurationId).
		WithOperation("find project").
		WithResource(space + "/" + name).
		WithSuggestion("Check the 'name' field of the project files in the space directory")
	if parseErr != nil {
		return nil, ec.
			WithSuggestion("Some project files failed to parse; fix them if the project is declared there").
			Wrap(errors.Join(ErrProjectNotFound, parseErr)).
			BuildError()
	}
	return nil, ec.Wrap(ErrProjectNotFound).BuildError()
}

func (c *Config) scanSpace(space string) (projects []*ProjectConfig, parseErr, err error) {
	sp, ok := c.Space(space)
	if !ok {
		return nil, nil, issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("find space").
			WithResource(space).
			WithSuggestion("Declare the space under 'spaces' in " + FileName).
			WithSuggestion("Run 'confkit config show' to list configured spaces").
			Wrap(ErrSpaceNotFound).
			BuildError()
	}

	dir := c.ResolvePath(sp.Path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, issue.WrapWithContext(err, issue.IOId, "read space directory", dir)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := LoadProject(path)
		if err != nil {
			slog.Warn("skipping invalid project file", "space", space, "file", path, "error", err)
			errs = append(errs, err)
			continue
		}
		projects = append(projects, p)
	}
	return projects, errors.Join(errs...), nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}
