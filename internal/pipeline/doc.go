// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs a project end to end: it builds the execution
// context, dispatches the steps in order, and aggregates a TaskResult.
package pipeline
