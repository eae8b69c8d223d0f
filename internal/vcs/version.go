// SPDX-License-Identifier: MPL-2.0

package vcs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnsupportedLanguage is returned by ParseVersion for unknown languages.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParseVersion reads the project version from a manifest:
//
//	javascript, node, typescript  package.json "version"
//	rust                          Cargo.toml [package].version
//	python                        pyproject.toml [project].version
//
// A manifest without a version yields "".
func ParseVersion(language string, content []byte) (string, error) {
	switch strings.ToLower(language) {
	case "javascript", "node", "nodejs", "typescript":
		var pkg struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(content, &pkg); err != nil {
			return "", fmt.Errorf("parse package.json: %w", err)
		}
		return pkg.Version, nil
	case "rust":
		var cargo struct {
			Package struct {
				Version string `toml:"version"`
			} `toml:"package"`
		}
		if err := toml.Unmarshal(content, &cargo); err != nil {
			return "", fmt.Errorf("parse Cargo.toml: %w", err)
		}
		return cargo.Package.Version, nil
	case "python":
		var pyproject struct {
			Project struct {
				Version string `toml:"version"`
			} `toml:"project"`
		}
		if err := toml.Unmarshal(content, &pyproject); err != nil {
			return "", fmt.Errorf("parse pyproject.toml: %w", err)
		}
		return pyproject.Project.Version, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
}
