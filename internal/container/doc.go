// SPDX-License-Identifier: MPL-2.0

// Package container drives an external container engine through its CLI.
//
// Docker and Podman are exposed behind the single Engine interface. Both
// embed BaseCLIEngine, which builds every argument list and runs every
// command; the concrete types only supply the binary name, the version
// probe, and the image-existence probe. A Selector picks one engine per
// process and hands it to everything else.
package container
