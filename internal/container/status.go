// SPDX-License-Identifier: MPL-2.0

package container

import "strings"

const (
	StatusRunning    ContainerStatus = "running"
	StatusExited     ContainerStatus = "exited"
	StatusCreated    ContainerStatus = "created"
	StatusPaused     ContainerStatus = "paused"
	StatusRestarting ContainerStatus = "restarting"
	StatusRemoving   ContainerStatus = "removing"
	StatusDead       ContainerStatus = "dead"
	// StatusUnbuilt means the container does not exist.
	StatusUnbuilt ContainerStatus = "unbuilt"

	ImageBuilt   ImageStatus = "built"
	ImageUnbuilt ImageStatus = "unbuilt"
)

const (
	containerInfoFormat = "{{.ID}}\t{{.Names}}\t{{.Image}}\t{{.State}}\t{{.CreatedAt}}\t{{.Size}}"
	imageInfoFormat     = "{{.ID}}\t{{.Tag}}\t{{.CreatedAt}}\t{{.Size}}"
)

type (
	// ContainerStatus is the engine state normalized across backends.
	ContainerStatus string

	// ImageStatus reports whether an image is present locally.
	ImageStatus string

	// ContainerInfo describes a container as reported by the engine.
	ContainerInfo struct {
		ID        string
		Name      string
		Image     string
		Status    ContainerStatus
		CreatedAt string
		Size      string
	}

	// ImageInfo describes a local image as reported by the engine.
	ImageInfo struct {
		ID        string
		Name      string
		Tag       string
		Status    ImageStatus
		CreatedAt string
		Size      string
	}
)

// ParseContainerStatus normalizes an engine {{.State}} or {{.Status}} value.
// Docker reports "Up 3 minutes" in its status column and podman reports
// "configured" for created containers; anything unrecognized is unbuilt.
func ParseContainerStatus(s string) ContainerStatus {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "running", strings.HasPrefix(s, "up"):
		return StatusRunning
	case s == "exited", s == "stopped", strings.HasPrefix(s, "exited"):
		return StatusExited
	case s == "created", s == "configured", s == "initialized":
		return StatusCreated
	case s == "paused", strings.HasSuffix(s, "(paused)"):
		return StatusPaused
	case s == "restarting", strings.HasPrefix(s, "restarting"):
		return StatusRestarting
	case s == "removing", s == "stopping":
		return StatusRemoving
	case s == "dead":
		return StatusDead
	default:
		return StatusUnbuilt
	}
}

// IsRunning reports whether the container accepts exec.
func (s ContainerStatus) IsRunning() bool {
	return s == StatusRunning
}

// Exists reports whether the status describes an existing container.
func (s ContainerStatus) Exists() bool {
	return s != StatusUnbuilt && s != ""
}

func (s ContainerStatus) String() string { return string(s) }

func (s ImageStatus) String() string { return string(s) }

// parseContainerInfo reads the first line of containerInfoFormat output.
func parseContainerInfo(name, out string) *ContainerInfo {
	line := firstLine(out)
	if line == "" {
		return &ContainerInfo{Name: name, Status: StatusUnbuilt}
	}
	f := splitFields(line, 6)
	info := &ContainerInfo{
		ID:        f[0],
		Name:      f[1],
		Image:     f[2],
		Status:    ParseContainerStatus(f[3]),
		CreatedAt: f[4],
		Size:      f[5],
	}
	if info.Name == "" {
		info.Name = name
	}
	return info
}

// parseImageInfo reads the first line of imageInfoFormat output.
func parseImageInfo(name, tag, out string) *ImageInfo {
	line := firstLine(out)
	if line == "" {
		return &ImageInfo{Name: name, Tag: tag, Status: ImageUnbuilt}
	}
	f := splitFields(line, 4)
	info := &ImageInfo{
		ID:        f[0],
		Name:      name,
		Tag:       f[1],
		Status:    ImageBuilt,
		CreatedAt: f[2],
		Size:      f[3],
	}
	if info.Tag == "" {
		info.Tag = tag
	}
	return info
}

func firstLine(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(line)
}

// splitFields splits a tab-separated line into exactly n fields.
func splitFields(line string, n int) []string {
	f := strings.SplitN(line, "\t", n)
	for len(f) < n {
		f = append(f, "")
	}
	for i := range f {
		f[i] = strings.TrimSpace(f[i])
	}
	return f
}
