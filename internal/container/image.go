// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"strings"

	"github.com/confkit/confkit/internal/issue"
)

// ImageExists reports whether name:tag is present locally.
func (e *BaseCLIEngine) ImageExists(ctx context.Context, name, tag string) (bool, error) {
	return e.imageExists(ctx, ImageRef(name, tag))
}

func (e *BaseCLIEngine) imagesQuietExists(ctx context.Context, ref string) (bool, error) {
	out, err := e.RunCommandWithOutput(ctx, e.ImagesQuietArgs(ref)...)
	if err != nil {
		return false, e.engineError("check image", ref, err)
	}
	return strings.TrimSpace(out) != "", nil
}

// ImageInfo returns the local image, or an ImageUnbuilt info when absent.
func (e *BaseCLIEngine) ImageInfo(ctx context.Context, name, tag string) (*ImageInfo, error) {
	ref := ImageRef(name, tag)
	out, err := e.RunCommandWithOutput(ctx, e.ImageInfoArgs(ref)...)
	if err != nil {
		return nil, e.engineError("inspect image", ref, err)
	}
	if tag == "" {
		tag = DefaultTag
	}
	return parseImageInfo(name, tag, out), nil
}

// PullImage pulls name:tag, streaming engine output to opts.Stdout and opts.Stderr.
func (e *BaseCLIEngine) PullImage(ctx context.Context, opts PullOptions) error {
	ref := ImageRef(opts.Name, opts.Tag)
	if err := e.RunCommandStreaming(ctx, opts.Stdout, opts.Stderr, e.PullArgs(ref)...); err != nil {
		return issue.NewErrorContext().
			WithKind(issue.PullFailureId).
			WithOperation("pull image").
			WithResource(ref).
			WithSuggestion("Verify the image name and tag exist in the registry").
			WithSuggestion("Log in first if the registry requires it (try: " + e.name + " login)").
			Wrap(err).
			BuildError()
	}
	return nil
}

// BuildImage builds name:tag, streaming engine output.
func (e *BaseCLIEngine) BuildImage(ctx context.Context, opts BuildOptions) error {
	ref := ImageRef(opts.Name, opts.Tag)
	if err := e.RunCommandStreaming(ctx, opts.Stdout, opts.Stderr, e.BuildArgs(opts)...); err != nil {
		resource := ref
		if opts.Dockerfile != "" {
			resource = opts.Dockerfile
		}
		return issue.NewErrorContext().
			WithKind(issue.BuildFailureId).
			WithOperation("build image").
			WithResource(resource).
			WithSuggestion("Check the engine file for syntax errors").
			WithSuggestion("Verify the build context path exists").
			WithSuggestion("Ensure base images are available (try: " + e.name + " pull <base-image>)").
			Wrap(err).
			BuildError()
	}
	return nil
}

// RemoveImage removes name:tag. Removing an absent image is a no-op.
func (e *BaseCLIEngine) RemoveImage(ctx context.Context, name, tag string, force bool) error {
	ref := ImageRef(name, tag)
	exists, err := e.imageExists(ctx, ref)
	if err != nil {
		return err
	}
	if !exists {
		e.logger.Debug("image already absent", "image", ref)
		return nil
	}
	if err := e.RunCommandStatus(ctx, e.RemoveImageArgs(ref, force)...); err != nil {
		return issue.NewErrorContext().
			WithKind(issue.RemoveFailureId).
			WithOperation("remove image").
			WithResource(ref).
			WithSuggestion("Remove containers using the image first, or pass --force").
			Wrap(err).
			BuildError()
	}
	return nil
}

// engineError classifies a failed query as an engine availability problem.
func (e *BaseCLIEngine) engineError(op, resource string, err error) error {
	return issue.NewErrorContext().
		WithKind(issue.EngineUnavailableId).
		WithOperation(op).
		WithResource(resource).
		WithSuggestion("Check that the " + e.name + " daemon is running").
		Wrap(err).
		BuildError()
}
