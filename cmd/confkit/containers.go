// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/container"
)

func newContainerCommand(app *App) *cobra.Command {
	containerCmd := &cobra.Command{
		Use:   "container",
		Short: "Manage containers declared in the compose file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	containerCmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List declared containers and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.listContainers(cmd.Context())
		},
	})

	var forceCreate bool
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a container from its compose service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.containerAction(cmd.Context(), args[0], "Created", func(ctx context.Context, e container.Engine, name string) error {
				return e.CreateContainer(ctx, name, forceCreate)
			})
		},
	}
	createCmd.Flags().BoolVarP(&forceCreate, "force", "f", false, "remove and recreate an existing container")
	containerCmd.AddCommand(createCmd)

	for _, verb := range []struct {
		use, short, done string
		fn               func(container.Engine) func(context.Context, string) error
	}{
		{"start", "Start a container, creating it when absent", "Started", func(e container.Engine) func(context.Context, string) error { return e.StartContainer }},
		{"stop", "Stop a running container", "Stopped", func(e container.Engine) func(context.Context, string) error { return e.StopContainer }},
		{"restart", "Restart a container", "Restarted", func(e container.Engine) func(context.Context, string) error { return e.RestartContainer }},
	} {
		containerCmd.AddCommand(&cobra.Command{
			Use:   verb.use + " <name>",
			Short: verb.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.containerAction(cmd.Context(), args[0], verb.done, func(ctx context.Context, e container.Engine, name string) error {
					return verb.fn(e)(ctx, name)
				})
			},
		})
	}

	var forceRemove bool
	rmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.containerAction(cmd.Context(), args[0], "Removed", func(ctx context.Context, e container.Engine, name string) error {
				return e.RemoveContainer(ctx, name, forceRemove)
			})
		},
	}
	rmCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "remove a running container")
	containerCmd.AddCommand(rmCmd)

	containerCmd.AddCommand(&cobra.Command{
		Use:   "info <name>",
		Short: "Show a container's engine state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.containerInfo(cmd.Context(), args[0])
		},
	})

	return containerCmd
}

func (a *App) containerAction(ctx context.Context, name, done string, fn func(context.Context, container.Engine, string) error) error {
	return a.withEngine(ctx, func(_ *config.Config, engine container.Engine) error {
		if err := fn(ctx, engine, name); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, SuccessStyle.Render(done+" ")+CmdStyle.Render(name))
		return nil
	})
}

func (a *App) listContainers(ctx context.Context) error {
	return a.withEngine(ctx, func(_ *config.Config, engine container.Engine) error {
		services, err := engine.Services(ctx)
		if err != nil {
			return err
		}
		for _, svc := range services {
			info, err := engine.ContainerInfo(ctx, svc.ContainerName)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%-32s %-12s %s\n", CmdStyle.Render(svc.ContainerName), info.Status, VerboseStyle.Render(svc.Image))
		}
		return nil
	})
}

func (a *App) containerInfo(ctx context.Context, name string) error {
	return a.withEngine(ctx, func(_ *config.Config, engine container.Engine) error {
		info, err := engine.ContainerInfo(ctx, name)
		if err != nil {
			return err
		}
		rows := [][2]string{
			{"Name", name},
			{"Status", info.Status.String()},
			{"ID", info.ID},
			{"Image", info.Image},
			{"Created", info.CreatedAt},
			{"Size", info.Size},
		}
		if svc, err := engine.Service(ctx, name); err == nil {
			rows = append(rows, [2]string{"Service", svc.ServiceName})
			if svc.WorkingDir != "" {
				rows = append(rows, [2]string{"Working dir", svc.WorkingDir})
			}
		}
		for _, row := range rows {
			if row[1] == "" {
				continue
			}
			fmt.Fprintf(a.stdout, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", row[0]+":")), row[1])
		}
		return nil
	})
}
