package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/yaqeen/forecastcenter/config"
	"github.com/yaqeen/forecastcenter/dashboard"
	"github.com/yaqeen/forecastcenter/loader"
)

// app carries the flag values and the state the subcommands share.
type app struct {
	configPath    string
	logLevel      string
	logFormat     string
	dataDir       string
	chartsDir     string
	cpuProfileDir string

	cfg     config.Config
	logger  *slog.Logger
	profile interface{ Stop() }
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "forecastcenter",
		Short:         "Yaqeen Forecasting Center",
		Long:          "Serve or export the forecast dashboard: historical series, model forecasts and prediction intervals.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "TOML config file, defaults apply when empty")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	flags.StringVarP(&a.dataDir, "data-dir", "d", "", "Directory holding the historical and forecast files")
	flags.StringVar(&a.chartsDir, "charts-dir", "", "Directory holding the pre-rendered TASI images")
	flags.StringVar(&a.cpuProfileDir, "cpuprofile-dir", "", "Write a CPU profile into this directory")

	root.AddCommand(
		newServeCmd(a),
		newRenderCmd(a),
		newChartCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads the config, applies flag overrides and configures logging and profiling.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("data-dir") {
		cfg.Data.Dir = a.dataDir
	}
	if flags.Changed("charts-dir") {
		cfg.Data.ChartsDir = a.chartsDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger)

	if a.cpuProfileDir != "" {
		a.profile = profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(a.cpuProfileDir),
			profile.NoShutdownHook,
			profile.Quiet,
		)
	}
	return nil
}

// stopProfile flushes the CPU profile, if one is running. Cobra skips post-run hooks when
// a command fails, so this runs after Execute returns.
func (a *app) stopProfile() {
	if a.profile != nil {
		a.profile.Stop()
		a.profile = nil
	}
}

func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("log level %q, %w", lc.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
}

// newDashboard wires the loader cache, the image catalog and the dashboard. reg may be nil.
func (a *app) newDashboard(reg prometheus.Registerer) *dashboard.Dashboard {
	cache := loader.New(a.cfg.Data.Dir, a.logger, loader.NewMetrics(reg))
	catalog := dashboard.NewCatalog(a.cfg.Data.ChartsDir)
	return dashboard.New(a.cfg, cache, catalog, a.logger, dashboard.NewMetrics(reg))
}
