// SPDX-License-Identifier: MPL-2.0

// Package issue classifies confkit failures into a small set of kinds and
// carries the operation, resource, and remediation hints needed to explain
// them to a user.
//
// Every error that crosses a package boundary in confkit is either an
// *ActionableError or wraps one, so callers can classify with errors.Is:
//
//	if errors.Is(err, issue.ErrEngineUnavailable) { ... }
package issue
