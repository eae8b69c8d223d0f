// SPDX-License-Identifier: MPL-2.0

// Package vcs resolves version-control metadata for a project source: the
// commit a remote branch points at and the version declared in the
// project's manifest file. Nothing is cloned to disk.
package vcs
