// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/container"
	"github.com/confkit/confkit/internal/issue"
)

func newImageCommand(app *App) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Manage builder images declared in .confkit.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	imageCmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List declared images and whether they exist locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.listImages(cmd.Context())
		},
	})

	var noCache bool
	buildCmd := &cobra.Command{
		Use:   "build <name[:tag]>",
		Short: "Build a declared image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.buildImage(cmd.Context(), args[0], noCache)
		},
	}
	buildCmd.Flags().BoolVar(&noCache, "no-cache", false, "do not use the build cache")
	imageCmd.AddCommand(buildCmd)

	imageCmd.AddCommand(&cobra.Command{
		Use:   "pull <name[:tag]>",
		Short: "Pull an image, or the base image of a declared image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.pullImage(cmd.Context(), args[0])
		},
	})

	var force bool
	rmCmd := &cobra.Command{
		Use:   "rm <name[:tag]>",
		Short: "Remove a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, tag := splitImageRef(args[0])
			return app.withEngine(cmd.Context(), func(_ *config.Config, engine container.Engine) error {
				if err := engine.RemoveImage(cmd.Context(), name, tag, force); err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("Removed ")+CmdStyle.Render(container.ImageRef(name, tag)))
				return nil
			})
		},
	}
	rmCmd.Flags().BoolVarP(&force, "force", "f", false, "remove even if containers use the image")
	imageCmd.AddCommand(rmCmd)

	return imageCmd
}

func (a *App) listImages(ctx context.Context) error {
	return a.withEngine(ctx, func(cfg *config.Config, engine container.Engine) error {
		if len(cfg.Images) == 0 {
			fmt.Fprintln(a.stdout, SubtitleStyle.Render("No images declared in "+config.FileName))
			return nil
		}
		for _, img := range cfg.Images {
			info, err := engine.ImageInfo(ctx, img.Name, img.Tag)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%-32s %-10s", CmdStyle.Render(container.ImageRef(img.Name, img.Tag)), info.Status)
			if info.ID != "" {
				line += " " + VerboseStyle.Render(info.ID+" "+info.Size)
			}
			fmt.Fprintln(a.stdout, line)
		}
		return nil
	})
}

func (a *App) buildImage(ctx context.Context, ref string, noCache bool) error {
	return a.withEngine(ctx, func(cfg *config.Config, engine container.Engine) error {
		img, err := declaredImage(cfg, ref)
		if err != nil {
			return err
		}
		buildArgs := map[string]string{}
		if img.BaseImage != "" {
			buildArgs["BASE_IMAGE"] = img.BaseImage
		}
		err = engine.BuildImage(ctx, container.BuildOptions{
			Name:       img.Name,
			Tag:        img.Tag,
			Dockerfile: cfg.ResolvePath(img.EngineFile),
			Context:    cfg.ResolvePath(img.Context),
			BuildArgs:  buildArgs,
			NoCache:    noCache,
			Stdout:     a.stdout,
			Stderr:     a.stderr,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, SuccessStyle.Render("Built ")+CmdStyle.Render(container.ImageRef(img.Name, img.Tag)))
		return nil
	})
}

func (a *App) pullImage(ctx context.Context, ref string) error {
	return a.withEngine(ctx, func(cfg *config.Config, engine container.Engine) error {
		name, tag := splitImageRef(ref)
		if img, ok := cfg.Image(name, tag); ok && img.BaseImage != "" {
			name, tag = splitImageRef(img.BaseImage)
		}
		err := engine.PullImage(ctx, container.PullOptions{Name: name, Tag: tag, Stdout: a.stdout, Stderr: a.stderr})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, SuccessStyle.Render("Pulled ")+CmdStyle.Render(container.ImageRef(name, tag)))
		return nil
	})
}

func declaredImage(cfg *config.Config, ref string) (*config.ImageConfig, error) {
	name, tag := splitImageRef(ref)
	if img, ok := cfg.Image(name, tag); ok {
		return img, nil
	}
	return nil, issue.NewErrorContext().
		WithKind(issue.ConfigurationId).
		WithOperation("find image").
		WithResource(ref).
		WithSuggestion("Declare the image under 'images' in " + config.FileName).
		WithSuggestion("Run 'confkit image ls' to list declared images").
		Wrap(fmt.Errorf("image %s is not declared", ref)).
		BuildError()
}

// splitImageRef splits name:tag. A colon inside a registry host:port is
// not a tag separator.
func splitImageRef(ref string) (name, tag string) {
	i := strings.LastIndex(ref, ":")
	if i < 0 || strings.Contains(ref[i+1:], "/") {
		return ref, ""
	}
	return ref[:i], ref[i+1:]
}
