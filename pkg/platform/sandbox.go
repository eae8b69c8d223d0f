// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

const (
	// SandboxNone means the process runs unconfined.
	SandboxNone Sandbox = ""
	// SandboxFlatpak means the process runs inside a Flatpak sandbox.
	SandboxFlatpak Sandbox = "flatpak"
	// SandboxSnap means the process runs inside a Snap.
	SandboxSnap Sandbox = "snap"

	flatpakInfoPath = "/.flatpak-info"
	flatpakSpawn    = "flatpak-spawn"
)

// Sandbox identifies the application sandbox the process runs in, if any.
type Sandbox string

// detected caches detection for the process lifetime. detectSandbox must
// not panic: sync.OnceValue re-raises a panic on every call.
var detected = sync.OnceValue(func() Sandbox {
	return detectSandbox(os.Getenv, statFile)
})

// DetectSandbox returns the sandbox of the current process. Flatpak is
// recognized by /.flatpak-info and Snap by SNAP_NAME.
func DetectSandbox() Sandbox {
	return detected()
}

// CanSpawnOnHost reports whether commands can be forwarded out of the sandbox.
func (s Sandbox) CanSpawnOnHost() bool {
	return s == SandboxFlatpak
}

// HostCommand rewrites an invocation of name so that it runs on the host.
// Outside a Flatpak sandbox it is returned unchanged; Snap confinement
// offers no host escape.
func (s Sandbox) HostCommand(name string, args ...string) (string, []string) {
	if !s.CanSpawnOnHost() {
		return name, args
	}
	spawnArgs := make([]string, 0, len(args)+2)
	spawnArgs = append(spawnArgs, "--host", name)
	return flatpakSpawn, append(spawnArgs, args...)
}

func detectSandbox(getenv func(string) string, stat func(string) error) Sandbox {
	if stat(flatpakInfoPath) == nil {
		return SandboxFlatpak
	}
	if getenv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
