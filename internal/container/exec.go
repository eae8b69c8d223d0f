// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"strings"

	"github.com/confkit/confkit/internal/issue"
	"github.com/confkit/confkit/pkg/types"
)

// ExecInContainer starts opts.Container if it is not running, then runs the
// joined commands inside it. The engine's exit status is returned in the
// result; only failures to reach the engine are errors. Canceling ctx kills
// the local exec client only; the command keeps running in the container
// until the container is stopped.
func (e *BaseCLIEngine) ExecInContainer(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	if len(opts.Commands) == 0 {
		return &ExecResult{ExitCode: types.ExitCodeSuccess}, nil
	}
	if err := e.StartContainer(ctx, opts.Container); err != nil {
		return nil, err
	}

	err := e.RunCommandStreaming(ctx, opts.Stdout, opts.Stderr, e.ExecArgs(opts)...)
	if err == nil {
		return &ExecResult{ExitCode: types.ExitCodeSuccess}, nil
	}

	code, exited := exitCodeOf(err)
	if !exited {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, issue.WrapWithContext(err, issue.EngineUnavailableId, "exec in container", opts.Container)
	}

	result := &ExecResult{ExitCode: code}
	var ce *commandError
	if errors.As(err, &ce) {
		result.Stderr = strings.TrimSpace(ce.stderr)
	}
	return result, nil
}
