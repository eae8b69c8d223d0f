// SPDX-License-Identifier: MPL-2.0

// Package config loads the confkit root configuration (.confkit.yml) and
// the project files of each space. Both are YAML documents validated
// against the embedded CUE schema before they are decoded.
package config
