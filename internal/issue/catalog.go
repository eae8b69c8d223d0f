// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type (
	MarkdownMsg string

	HttpLink string

	// Issue is the long-form explanation shown for an error kind.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

// render is swapped in tests to avoid terminal detection.
var render = glamour.Render

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render formats the issue as terminal markdown using the given glamour style
// ("auto", "dark", "light", "notty", or a JSON style path).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- ")
			md.WriteString(string(link))
			md.WriteString("\n")
		}
	}
	return render(md.String(), stylePath)
}

var issues = map[Id]*Issue{
	ConfigurationId: {
		id: ConfigurationId,
		mdMsg: `
# Invalid configuration

confkit could not load or validate its configuration.

## Things you can try
- Check that ` + "`.confkit.yml`" + ` exists in the working directory or pass ` + "`--config`" + `.
- Make sure the space is listed under ` + "`spaces`" + ` and its ` + "`path`" + ` exists.
- Every step needs a ` + "`name`" + ` and a ` + "`commands`" + ` list.
- Env files referenced by ` + "`environment_files`" + ` must exist; suffix the path with ` + "`?`" + ` to make one optional.`,
	},
	EngineUnavailableId: {
		id: EngineUnavailableId,
		mdMsg: `
# Container engine not available

The configured engine binary is missing or its daemon is not responding.

## Things you can try
~~~
$ docker version
$ podman version
~~~
- Start the Docker daemon, or switch ` + "`engine: podman`" + ` in ` + "`.confkit.yml`" + `.`,
	},
	BuildFailureId: {
		id: BuildFailureId,
		mdMsg: `
# Image build failed

The engine returned a non-zero status while building the image. The captured
build output is shown above.

## Things you can try
- Check the ` + "`engine_file`" + ` path and the build ` + "`context`" + ` in ` + "`.confkit.yml`" + `.
- Run the same build by hand with ` + "`docker build`" + ` to inspect the failing layer.`,
	},
	PullFailureId: {
		id: PullFailureId,
		mdMsg: `
# Image pull failed

## Things you can try
- Verify the image reference and tag.
- Log in to the registry if it requires authentication.`,
	},
	RemoveFailureId: {
		id: RemoveFailureId,
		mdMsg: `
# Remove failed

The engine refused to remove the image or container.

## Things you can try
- Stop running containers first, or pass ` + "`--force`" + `.
- Remove containers that still use the image before removing the image.`,
	},
	ExecFailureId: {
		id: ExecFailureId,
		mdMsg: `
# Step command failed

A step command exited with a non-zero status. See the task log for its output.

## Things you can try
- Re-run with ` + "`--dry-run`" + ` to see the resolved commands and working directories.
- Set ` + "`continue_on_error: true`" + ` on steps whose failure should not stop the task.`,
	},
	TimeoutId: {
		id: TimeoutId,
		mdMsg: `
# Step timed out

The step did not finish within its ` + "`timeout`" + ` and was killed.

## Things you can try
- Raise the step ` + "`timeout`" + ` (for example ` + "`10m`" + ` or ` + "`600`" + ` seconds).`,
	},
	IOId: {
		id: IOId,
		mdMsg: `
# File system error

confkit could not read or write a workspace, artifact, or log path.

## Things you can try
- Check permissions on the ` + "`volumes/`" + ` directory.
- Make sure the disk is not full.`,
	},
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}
