// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/confkit/confkit/cmd/confkit"

func main() {
	cmd.Execute()
}
