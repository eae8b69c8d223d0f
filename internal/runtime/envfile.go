// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"maps"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confkit/confkit/internal/config"
)

// LoadYAMLEnvFile reads a flat YAML mapping of variables and merges it into
// env. Scalars of any type are kept in their textual form. Path handling
// matches LoadEnvFile.
func LoadYAMLEnvFile(env map[string]string, path, baseDir string) error {
	content, ok, err := readEnvFile(path, baseDir)
	if err != nil || !ok {
		return err
	}
	return ParseYAMLEnvFile(env, content, strings.TrimSuffix(path, "?"))
}

// ParseYAMLEnvFile parses a flat YAML mapping into env.
func ParseYAMLEnvFile(env map[string]string, content []byte, filename string) error {
	var vars map[string]string
	if err := yaml.Unmarshal(content, &vars); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	maps.Copy(env, vars)
	return nil
}

// loadEnvironmentFile dispatches on the declared format.
func loadEnvironmentFile(env map[string]string, f config.EnvironmentFile, baseDir string) error {
	switch f.Format {
	case config.EnvFileFormatYAML:
		return LoadYAMLEnvFile(env, f.Path, baseDir)
	case config.EnvFileFormatEnv:
		return LoadEnvFile(env, f.Path, baseDir)
	default:
		return fmt.Errorf("unsupported environment file format %q for %s", f.Format, f.Path)
	}
}
