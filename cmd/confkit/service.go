// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/container"
)

func newServiceCommand(app *App) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Inspect the compose services confkit manages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	serviceCmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List compose services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEngine(cmd.Context(), func(_ *config.Config, engine container.Engine) error {
				services, err := engine.Services(cmd.Context())
				if err != nil {
					return err
				}
				for _, svc := range services {
					fmt.Fprintf(app.stdout, "%s %s %s\n",
						TitleStyle.Render(svc.ServiceName),
						CmdStyle.Render(svc.ContainerName),
						VerboseStyle.Render(svc.Image))
					if len(svc.Ports) > 0 {
						fmt.Fprintf(app.stdout, "  ports: %s\n", strings.Join(svc.Ports, ", "))
					}
					if len(svc.DependsOn) > 0 {
						fmt.Fprintf(app.stdout, "  depends on: %s\n", strings.Join(svc.DependsOn, ", "))
					}
				}
				return nil
			})
		},
	})

	return serviceCmd
}
