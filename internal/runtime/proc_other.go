// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package runtime

import "os/exec"

// configureProcess relies on the default cancel, which kills only the
// direct child.
func configureProcess(cmd *exec.Cmd) {
	cmd.WaitDelay = killWaitDelay
}
