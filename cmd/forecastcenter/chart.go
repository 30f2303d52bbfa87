package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newChartCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "chart [metric]",
		Short: "Print the composed chart of a metric as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if list || len(args) == 0 {
				for _, m := range a.cfg.Indicators.Metrics() {
					fmt.Fprintf(w, "%-22s %s\n", m.Name, m.Title)
				}
				return nil
			}

			lc, err := a.newDashboard(nil).Chart(contextOrBackground(cmd), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(lc, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(data))
			return err
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List the configured metrics")
	return cmd
}
