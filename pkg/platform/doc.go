// SPDX-License-Identifier: MPL-2.0

// Package platform detects application sandboxes that change how confkit
// reaches host binaries such as the container engine CLI.
package platform
