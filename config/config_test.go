package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	var names []string
	for _, m := range cfg.Indicators.Metrics() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"gdp", "real-gdp", "gdp-per-capita", "real-gdp-per-capita", "population"}, names)

	m, ok := cfg.Indicators.Metric("real-gdp")
	require.True(t, ok)
	assert.Equal(t, "real_gdp.json", m.Historical)
	assert.Equal(t, "preds_real_gdp.json", m.Forecast)
	assert.Equal(t, "Real GDP (Chain-linked, 2023=100)", m.Labels().Title)

	_, ok = cfg.Indicators.Metric("gold")
	assert.False(t, ok)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecastcenter.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = ":9000"
shutdown_timeout = "3s"

[data]
dir = "/srv/data"
strict_intervals = true

[theme]
plot_fill = "#FAFAFA"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/srv/data", cfg.Data.Dir)
	assert.Equal(t, "charts", cfg.Data.ChartsDir)
	assert.True(t, cfg.Data.StrictIntervals)
	assert.Equal(t, "#FAFAFA", cfg.Theme.PlotFill)
	assert.Equal(t, "white", cfg.Theme.Background)
	assert.Len(t, cfg.Indicators.Sections, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecode(t *testing.T) {
	testData := map[string]struct {
		input string
		err   error
	}{
		"empty": {},
		"custom sections": {
			input: `
[[indicators.sections]]
[[indicators.sections.tabs]]
name = "oil"
historical = "oil.csv"
forecast = "preds_oil.csv"
title = "Oil Production"
`,
		},
		"unknown key": {
			input: "[server]\nport = 80\n",
			err:   ErrUnknownKeys,
		},
		"bad log level": {
			input: "[log]\nlevel = \"loud\"\n",
			err:   ErrInvalid,
		},
		"bad addr": {
			input: "[server]\naddr = \"nope\"\n",
			err:   ErrInvalid,
		},
		"empty data dir": {
			input: "[data]\ndir = \"\"\n",
			err:   ErrInvalid,
		},
		"empty section": {
			input: "[[indicators.sections]]\ntabs = []\n",
			err:   ErrInvalid,
		},
		"metric name with slash": {
			input: `
[[indicators.sections]]
[[indicators.sections.tabs]]
name = "oil/gas"
historical = "oil.csv"
forecast = "preds_oil.csv"
`,
			err: ErrInvalid,
		},
		"duplicate metric": {
			input: `
[[indicators.sections]]
[[indicators.sections.tabs]]
name = "oil"
historical = "oil.csv"
forecast = "preds_oil.csv"
[[indicators.sections.tabs]]
name = "oil"
historical = "oil_real.csv"
forecast = "preds_oil_real.csv"
`,
			err: ErrDuplicateMetric,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg, err := Decode(strings.NewReader(td.input))
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Indicators.Metrics())
		})
	}
}

func TestDecodeCustomSectionsReplaceDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[[indicators.sections]]
[[indicators.sections.tabs]]
name = "oil"
historical = "oil.csv"
forecast = "preds_oil.csv"
`))
	require.NoError(t, err)
	assert.Equal(t, []Metric{{Name: "oil", Historical: "oil.csv", Forecast: "preds_oil.csv"}}, cfg.Indicators.Metrics())
}

func TestDecodeSyntaxError(t *testing.T) {
	_, err := Decode(strings.NewReader("[server\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DefaultConfig()))

	cfg, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
