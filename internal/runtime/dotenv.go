// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFile reads the dotenv file at path and merges it into env. A
// relative path is resolved against baseDir. A path suffixed with "?" is
// optional: a missing file is not an error.
func LoadEnvFile(env map[string]string, path, baseDir string) error {
	content, ok, err := readEnvFile(path, baseDir)
	if err != nil || !ok {
		return err
	}
	return ParseEnvFile(env, content, strings.TrimSuffix(path, "?"))
}

func readEnvFile(path, baseDir string) (content []byte, ok bool, err error) {
	path, optional := strings.CutSuffix(path, "?")
	fullPath := filepath.FromSlash(path)
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(baseDir, fullPath)
	}

	content, err = os.ReadFile(fullPath)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read env file '%s': %w", path, err)
	}
	return content, true, nil
}

// ParseEnvFile parses dotenv content and merges it into env:
//
//	# comment
//	KEY=value            # trailing comment after a space is dropped
//	export KEY=value
//	KEY="a\tb\n"         # \n \r \t \\ \" \$ are unescaped
//	KEY='literal $HOME'
//	KEY=
//
// filename is only used in error messages.
func ParseEnvFile(env map[string]string, content []byte, filename string) error {
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("%s:%d: invalid format (missing '=')", filename, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%s:%d: empty variable name", filename, i+1)
		}

		value, err := parseEnvValue(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s:%d: %w", filename, i+1, err)
		}
		env[key] = value
	}
	return nil
}

func parseEnvValue(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	switch quote := value[0]; quote {
	case '"', '\'':
		if len(value) < 2 || value[len(value)-1] != quote {
			if quote == '"' {
				return "", errors.New("unterminated double quote")
			}
			return "", errors.New("unterminated single quote")
		}
		inner := value[1 : len(value)-1]
		if quote == '\'' {
			return inner, nil
		}
		return unescapeDoubleQuoted(inner), nil
	}
	if idx := strings.Index(value, " #"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value, nil
}

var doubleQuoteEscapes = map[byte]byte{
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'\\': '\\',
	'"':  '"',
	'$':  '$',
}

// unescapeDoubleQuoted keeps unknown escapes verbatim.
func unescapeDoubleQuoted(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+1 < len(value) {
			if r, ok := doubleQuoteEscapes[value[i+1]]; ok {
				b.WriteByte(r)
			} else {
				b.WriteByte('\\')
				b.WriteByte(value[i+1])
			}
			i++
			continue
		}
		b.WriteByte(value[i])
	}
	return b.String()
}
