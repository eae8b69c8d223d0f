// SPDX-License-Identifier: MPL-2.0

package container

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confkit/confkit/internal/dag"
	"github.com/confkit/confkit/internal/issue"
)

// ErrServiceNotFound is wrapped when no declared service owns a container name.
var ErrServiceNotFound = errors.New("no compose service declares this container")

type (
	// ComposeService is one service of a compose declaration.
	ComposeService struct {
		ServiceName   string
		ContainerName string
		Image         string
		WorkingDir    string
		Ports         []string
		Volumes       []string
		Environment   map[string]string
		DependsOn     []string
	}

	composeFile struct {
		Services map[string]composeServiceYAML `yaml:"services"`
	}

	composeServiceYAML struct {
		ContainerName string       `yaml:"container_name"`
		Image         string       `yaml:"image"`
		WorkingDir    string       `yaml:"working_dir"`
		Ports         scalarList   `yaml:"ports"`
		Volumes       scalarList   `yaml:"volumes"`
		Environment   listOrMap    `yaml:"environment"`
		DependsOn     listOrMapKey `yaml:"depends_on"`
	}

	// scalarList accepts short-syntax strings and numbers, and renders long
	// syntax mappings into their short form.
	scalarList []string

	// listOrMap accepts KEY=VALUE lists and KEY: VALUE mappings.
	listOrMap map[string]string

	// listOrMapKey accepts a list of names or a mapping keyed by name.
	listOrMapKey []string
)

// ParseCompose decodes a compose declaration. project is used to derive
// container names for services without container_name, the way compose
// itself names them. Services are returned after the services they depend
// on, otherwise by name.
func ParseCompose(data []byte, project string) ([]ComposeService, error) {
	var doc composeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	services := make([]ComposeService, 0, len(doc.Services))
	for _, name := range slices.Sorted(maps.Keys(doc.Services)) {
		s := doc.Services[name]
		containerName := s.ContainerName
		if containerName == "" {
			containerName = fmt.Sprintf("%s-%s-1", project, name)
		}
		env := map[string]string(s.Environment)
		if env == nil {
			env = map[string]string{}
		}
		services = append(services, ComposeService{
			ServiceName:   name,
			ContainerName: containerName,
			Image:         s.Image,
			WorkingDir:    s.WorkingDir,
			Ports:         []string(s.Ports),
			Volumes:       []string(s.Volumes),
			Environment:   env,
			DependsOn:     []string(s.DependsOn),
		})
	}
	return orderByDependency(services)
}

// orderByDependency sorts services by depends_on. Dependencies on services
// not declared in the file are ignored.
func orderByDependency(services []ComposeService) ([]ComposeService, error) {
	byName := make(map[string]ComposeService, len(services))
	g := dag.New()
	for _, s := range services {
		byName[s.ServiceName] = s
		g.AddNode(s.ServiceName)
	}
	for _, s := range services {
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; ok {
				g.DependOn(s.ServiceName, dep)
			}
		}
	}

	order, err := g.Sort()
	if err != nil {
		return nil, err
	}
	sorted := make([]ComposeService, 0, len(order))
	for _, name := range order {
		sorted = append(sorted, byName[name])
	}
	return sorted, nil
}

// Services reads and parses the configured compose file.
func (e *BaseCLIEngine) Services(_ context.Context) ([]ComposeService, error) {
	if e.composeFile == "" {
		return nil, issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("list services").
			WithSuggestion("Set engine_compose.file in .confkit.yml").
			Wrap(errors.New("no compose file configured")).
			BuildError()
	}
	data, err := os.ReadFile(e.composeFile)
	if err != nil {
		return nil, issue.WrapWithContext(err, issue.ConfigurationId, "read compose file", e.composeFile)
	}
	services, err := ParseCompose(data, e.composeProject)
	if err != nil {
		return nil, issue.WrapWithContext(err, issue.ConfigurationId, "parse compose file", e.composeFile)
	}
	return services, nil
}

// Service finds the declared service that owns containerName.
func (e *BaseCLIEngine) Service(ctx context.Context, containerName string) (*ComposeService, error) {
	services, err := e.Services(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(services, func(s ComposeService) bool {
		return s.ContainerName == containerName
	})
	if i < 0 {
		return nil, issue.NewErrorContext().
			WithKind(issue.ConfigurationId).
			WithOperation("find compose service").
			WithResource(containerName).
			WithSuggestion("Declare container_name: " + containerName + " in " + e.composeFile).
			Wrap(ErrServiceNotFound).
			BuildError()
	}
	return &services[i], nil
}

func (l *scalarList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a list", node.Line)
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, item.Value)
		case yaml.MappingNode:
			out = append(out, longSyntax(item))
		default:
			return fmt.Errorf("line %d: unsupported list entry", item.Line)
		}
	}
	*l = out
	return nil
}

// longSyntax renders {published, target} ports and {source, target}
// volumes as "a:b".
func longSyntax(node *yaml.Node) string {
	fields := map[string]string{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1].Value
	}
	left := cmp.Or(fields["published"], fields["source"])
	if left == "" {
		return fields["target"]
	}
	return left + ":" + fields["target"]
}

func (m *listOrMap) UnmarshalYAML(node *yaml.Node) error {
	out := map[string]string{}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			out[node.Content[i].Value] = node.Content[i+1].Value
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			k, v, _ := strings.Cut(item.Value, "=")
			out[k] = v
		}
	default:
		return fmt.Errorf("line %d: expected a list or mapping", node.Line)
	}
	*m = out
	return nil
}

func (l *listOrMapKey) UnmarshalYAML(node *yaml.Node) error {
	var out []string
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			out = append(out, node.Content[i].Value)
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			out = append(out, item.Value)
		}
	default:
		return fmt.Errorf("line %d: expected a list or mapping", node.Line)
	}
	*l = out
	return nil
}
