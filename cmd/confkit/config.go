// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/confkit/confkit/internal/config"
)

// newConfigCommand creates the `confkit config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect confkit configuration",
		Long: `Inspect confkit configuration.

Configuration is read from ` + config.FileName + ` in the working directory, or
from the file given with --config. Every key can be overridden with a
` + config.EnvPrefix + `_ environment variable (for example ` + config.EnvPrefix + `_ENGINE=podman).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the loaded configuration and its projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context())
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}

	w := a.stdout
	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	field(w, "Base dir", cfg.BaseDir)
	field(w, "Engine", cfg.Engine)
	field(w, "Compose", cfg.EngineCompose.Project+" "+cfg.ResolvePath(cfg.EngineCompose.File))
	field(w, "Log dir", cfg.ResolvePath(cfg.LogDir))
	field(w, "Workspace", cfg.ResolvePath(cfg.WorkspaceDir))
	field(w, "Artifacts", cfg.ResolvePath(cfg.ArtifactsDir))
	field(w, "Hub workers", fmt.Sprint(cfg.EventHub.Workers))

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Spaces"))
	if len(cfg.Spaces) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  none"))
	}
	for _, sp := range cfg.Spaces {
		fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render(sp.Name), VerboseStyle.Render(cfg.ResolvePath(sp.Path)))
		if sp.Description != "" {
			fmt.Fprintf(w, "    %s\n", SubtitleStyle.Render(sp.Description))
		}
		projects, err := cfg.LoadProjects(sp.Name)
		if err != nil {
			fmt.Fprintf(w, "    %s\n", WarningStyle.Render(formatErrorForDisplay(err, a.verbose)))
		}
		for _, p := range projects {
			fmt.Fprintf(w, "    - %s (%d steps)\n", p.Name, len(p.Steps))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Images"))
	if len(cfg.Images) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  none"))
	}
	for _, img := range cfg.Images {
		fmt.Fprintf(w, "  %s:%s", CmdStyle.Render(img.Name), img.Tag)
		if img.BaseImage != "" {
			fmt.Fprintf(w, " %s", VerboseStyle.Render("from "+img.BaseImage))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}
