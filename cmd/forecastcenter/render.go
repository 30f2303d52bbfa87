package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yaqeen/forecastcenter/dashboard"
)

func newRenderCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Export the dashboard as a static site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("out") {
				a.cfg.Output.Dir = out
			}

			renderer, err := dashboard.NewRenderer()
			if err != nil {
				return err
			}
			m, err := dashboard.Export(contextOrBackground(cmd), a.newDashboard(nil), renderer, a.cfg.Output.Dir)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "wrote %d pages and %d images to %s\n", len(m.Pages), len(m.Images), a.cfg.Output.Dir)
			for _, label := range m.Missing {
				fmt.Fprintf(w, "  missing image %s\n", label)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory")
	return cmd
}
