// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared across confkit packages.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitCodeSuccess is reported by successful and skipped steps.
	ExitCodeSuccess ExitCode = 0
	// ExitCodeFailure is the generic failure code used when no process exit
	// status is available.
	ExitCodeFailure ExitCode = 1
	// ExitCodeUsage is reported when a command is rejected before it runs,
	// matching the shell convention for syntax errors.
	ExitCodeUsage ExitCode = 2
	// ExitCodeTimeout is reported for steps killed on timeout, matching
	// coreutils timeout(1).
	ExitCodeTimeout ExitCode = 124
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the POSIX range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned by Validate for out-of-range codes.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the code is outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is zero.
func (c ExitCode) IsSuccess() bool { return c == ExitCodeSuccess }

// Normalize maps codes outside 0-255 the way a POSIX wait status would
// truncate them, and negative codes (signal kills reported by os/exec) to
// ExitCodeFailure.
func (c ExitCode) Normalize() ExitCode {
	if c < 0 {
		return ExitCodeFailure
	}
	return c & 0xff
}

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
