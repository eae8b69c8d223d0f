// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// shellFamilies are interpreters whose input the bash parser understands.
var shellFamilies = map[string]bool{
	"sh": true, "bash": true, "dash": true, "ash": true, "ksh": true, "mksh": true, "zsh": true,
}

// CheckSyntax parses each command with the shell parser. Commands for
// interpreters outside the sh family are not checked.
func CheckSyntax(shell string, commands []string) error {
	if !shellFamilies[filepath.Base(shell)] {
		return nil
	}
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	for i, command := range commands {
		if _, err := parser.Parse(strings.NewReader(command), ""); err != nil {
			return fmt.Errorf("syntax error in command %d %q: %w", i+1, command, err)
		}
	}
	return nil
}
