// SPDX-License-Identifier: MPL-2.0

// Package runtime turns a project and a step into running processes.
//
// Builder assembles the ExecutionContext of a run: per-task directories and
// the environment map, layered in ascending priority:
//
//  1. environment_files, in declaration order
//  2. the project's inline environment
//  3. fixed task identifiers (TASK_ID, PROJECT_NAME, directory paths, ...)
//  4. version-control metadata (GIT_REPO, GIT_HASH, PROJECT_VERSION, ...)
//  5. run-time overrides from the command line
//
// Dispatcher executes one step against that context, either with the host
// shell or inside a container through a container.Engine, and records the
// outcome in a StepResult.
package runtime
