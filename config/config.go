package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/yaqeen/forecastcenter/chart"
)

var (
	ErrUnknownKeys     = errors.New("unknown configuration keys")
	ErrInvalid         = errors.New("invalid configuration")
	ErrDuplicateMetric = errors.New("duplicate metric name")
)

// Config holds all forecastcenter configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Data       DataConfig       `toml:"data"`
	Log        LogConfig        `toml:"log"`
	Output     OutputConfig     `toml:"output"`
	Theme      chart.Theme      `toml:"theme"`
	Indicators IndicatorsConfig `toml:"indicators"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr            string        `toml:"addr" validate:"required,hostname_port"`
	Mode            string        `toml:"mode" validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" validate:"gt=0"`
	ReadTimeout     time.Duration `toml:"read_timeout" validate:"gte=0"`
	// AssetsHost is where pages load echarts from. Empty uses the go-echarts default.
	AssetsHost string `toml:"assets_host,omitempty" validate:"omitempty,url"`
}

// DataConfig locates the serialized series and the pre-rendered images.
type DataConfig struct {
	Dir       string `toml:"dir" validate:"required"`
	ChartsDir string `toml:"charts_dir" validate:"required"`
	// StrictIntervals rejects forecasts whose interval bounds are out of order and
	// historical series that are out of time order or hold null observations.
	StrictIntervals bool `toml:"strict_intervals"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

type OutputConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

// IndicatorsConfig lists the sections of the indicators page, top to bottom.
type IndicatorsConfig struct {
	Title       string    `toml:"title" validate:"required"`
	Description string    `toml:"description"`
	Sections    []Section `toml:"sections" validate:"required,min=1,dive"`
}

// Section is a bordered group of one or more metric tabs.
type Section struct {
	Tabs []Metric `toml:"tabs" validate:"required,min=1,dive"`
}

// Metric binds a historical and a forecast data file to chart labels. Tab is the tab caption
// and may be empty for single-metric sections.
type Metric struct {
	Name       string `toml:"name" validate:"required,lowercase,excludesall=/?#% "`
	Tab        string `toml:"tab"`
	Historical string `toml:"historical" validate:"required"`
	Forecast   string `toml:"forecast" validate:"required"`
	XLabel     string `toml:"x_label"`
	YLabel     string `toml:"y_label"`
	Title      string `toml:"title"`
}

// Labels returns the chart labels of the metric.
func (m Metric) Labels() chart.Labels {
	return chart.Labels{X: m.XLabel, Y: m.YLabel, Title: m.Title}
}

func metric(name, tab, file, ylabel, title string) Metric {
	return Metric{
		Name:       name,
		Tab:        tab,
		Historical: file + ".json",
		Forecast:   "preds_" + file + ".json",
		XLabel:     "Year",
		YLabel:     ylabel,
		Title:      title,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "localhost:8501",
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     15 * time.Second,
		},
		Data: DataConfig{
			Dir:       "data",
			ChartsDir: "charts",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Dir: "site",
		},
		Theme: chart.DefaultTheme(),
		Indicators: IndicatorsConfig{
			Title: "Indicators of KSA",
			Description: "This page presents forecasts for several key indicators in Saudi Arabia." +
				" data for additional indicators is available and will be added soon.",
			Sections: []Section{
				{Tabs: []Metric{
					metric("gdp", "Nominal", "gdp", "GDP (Billions $)", "GDP"),
					metric("real-gdp", "Real", "real_gdp", "GDP (Billions $)", "Real GDP (Chain-linked, 2023=100)"),
				}},
				{Tabs: []Metric{
					metric("gdp-per-capita", "Nominal", "gdp_perC", "GDP Per Capita $", "GDP Per Capita"),
					metric("real-gdp-per-capita", "Real", "real_gdp_perC", "GDP Per Capita $", "Real GDP Per Capita (Chain-linked, 2023=100)"),
				}},
				{Tabs: []Metric{
					metric("population", "", "population", "Population (Millions)", "Population"),
				}},
			},
		},
	}
}

// Load reads the config file at path over the defaults. An empty path returns the defaults.
// The result is validated.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("reading config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a TOML config over the defaults and validates it. Keys that do not map to a
// setting are an error. Sections given in the file replace the default sections entirely.
func Decode(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	sections := cfg.Indicators.Sections
	cfg.Indicators.Sections = nil

	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Indicators.Sections == nil {
		cfg.Indicators.Sections = sections
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%s, %w", strings.Join(keys, ", "), ErrUnknownKeys)
	}
	return cfg, cfg.Validate()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that metric names are unique across sections.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%s, %w", strings.Join(msgs, "; "), ErrInvalid)
		}
		return fmt.Errorf("%s, %w", err.Error(), ErrInvalid)
	}

	seen := make(map[string]bool)
	for _, m := range c.Indicators.Metrics() {
		if seen[m.Name] {
			return fmt.Errorf("%q, %w", m.Name, ErrDuplicateMetric)
		}
		seen[m.Name] = true
	}
	return nil
}

// Metrics returns every metric in page order.
func (ic IndicatorsConfig) Metrics() []Metric {
	var metrics []Metric
	for _, s := range ic.Sections {
		metrics = append(metrics, s.Tabs...)
	}
	return metrics
}

// Metric returns the metric with the given name.
func (ic IndicatorsConfig) Metric(name string) (Metric, bool) {
	for _, m := range ic.Metrics() {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
