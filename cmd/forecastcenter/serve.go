package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/yaqeen/forecastcenter/dashboard"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, mode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("mode") {
				a.cfg.Server.Mode = mode
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			renderer, err := dashboard.NewRenderer()
			if err != nil {
				return err
			}
			srv := dashboard.NewServer(a.newDashboard(reg), renderer, a.cfg.Server.Mode, reg)

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, a.cfg.Server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, e.g. localhost:8501")
	cmd.Flags().StringVar(&mode, "mode", "", "Server mode: debug, release or test")
	return cmd
}

// contextOrBackground returns the command context, which is nil when a command runs without
// ExecuteContext.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
