// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates YAML documents against embedded CUE schemas.
//
//	//go:embed schema.cue
//	var schema []byte
//
//	v, err := cueutil.ValidateYAML(schema, data, "#Project", cueutil.WithFilename(path))
//
// Errors name the offending field as a JSON-style path, for example
// "api.yml: steps[1].commands: incomplete value [...string]".
package cueutil
