package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yaqeen/forecastcenter/chart"
	"github.com/yaqeen/forecastcenter/config"
	"github.com/yaqeen/forecastcenter/forecast"
	"github.com/yaqeen/forecastcenter/loader"
	"github.com/yaqeen/forecastcenter/timedataset"
)

var ErrUnknownMetric = errors.New("unknown metric")

const chartHeight = "500px"

// Metrics instruments page assembly and the HTTP server.
type Metrics struct {
	Compositions   *prometheus.CounterVec
	ComposeSeconds prometheus.Histogram
	Requests       *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
}

// NewMetrics creates the dashboard metrics and registers them with reg. A nil reg creates
// unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Compositions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forecastcenter",
				Subsystem: "dashboard",
				Name:      "compositions_total",
				Help:      "Forecast charts composed, by metric and result.",
			},
			[]string{"metric", "result"},
		),
		ComposeSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "forecastcenter",
				Subsystem: "dashboard",
				Name:      "compose_seconds",
				Help:      "Time spent loading and composing one forecast chart.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forecastcenter",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		RequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "forecastcenter",
				Subsystem: "http",
				Name:      "request_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Dashboard assembles the pages from configuration, cached data files and the image catalog.
// Pages are rebuilt on every call; the only state shared between calls is the loader cache.
type Dashboard struct {
	cfg      config.Config
	cache    *loader.Cache
	composer *chart.Composer
	catalog  *Catalog
	logger   *slog.Logger
	metrics  *Metrics
}

// New returns a dashboard. logger and metrics may be nil.
func New(cfg config.Config, cache *loader.Cache, catalog *Catalog, logger *slog.Logger, metrics *Metrics) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Dashboard{
		cfg:      cfg,
		cache:    cache,
		composer: chart.NewComposer(cfg.Theme),
		catalog:  catalog,
		logger:   logger,
		metrics:  metrics,
	}
}

// Catalog returns the image catalog.
func (d *Dashboard) Catalog() *Catalog {
	return d.catalog
}

// Cache returns the data file cache.
func (d *Dashboard) Cache() *loader.Cache {
	return d.cache
}

// Chart composes the chart of the named metric.
func (d *Dashboard) Chart(ctx context.Context, name string) (*chart.LayeredChart, error) {
	m, ok := d.cfg.Indicators.Metric(name)
	if !ok {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownMetric)
	}
	c, err := d.compose(ctx, m)
	if err != nil {
		return nil, err
	}
	return c.chart, nil
}

type composed struct {
	chart *chart.LayeredChart
	// fit is nil when the forecast shares no period with the actuals.
	fit *forecast.Scores
}

func (d *Dashboard) compose(ctx context.Context, m config.Metric) (composed, error) {
	start := time.Now()
	c, err := d.loadAndCompose(ctx, m)
	d.metrics.ComposeSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		d.metrics.Compositions.WithLabelValues(m.Name, "error").Inc()
		d.logger.Error("unable to compose chart",
			slog.String("metric", m.Name),
			slog.String("error", err.Error()),
		)
		return composed{}, err
	}
	d.metrics.Compositions.WithLabelValues(m.Name, "ok").Inc()
	return c, nil
}

func (d *Dashboard) loadAndCompose(ctx context.Context, m config.Metric) (composed, error) {
	hist, err := d.cache.Load(ctx, m.Historical)
	if err != nil {
		return composed{}, fmt.Errorf("metric %s, %w", m.Name, err)
	}
	fcst, err := d.cache.Load(ctx, m.Forecast)
	if err != nil {
		return composed{}, fmt.Errorf("metric %s, %w", m.Name, err)
	}

	td, err := timedataset.FromFrame(hist)
	if err != nil {
		return composed{}, fmt.Errorf("metric %s historical %s, %w", m.Name, m.Historical, err)
	}
	series, err := forecast.FromFrame(fcst)
	if err != nil {
		return composed{}, fmt.Errorf("metric %s forecast %s, %w", m.Name, m.Forecast, err)
	}
	if d.cfg.Data.StrictIntervals {
		if err := td.Validate(); err != nil {
			return composed{}, fmt.Errorf("metric %s historical %s, %w", m.Name, m.Historical, err)
		}
		if err := series.Validate(); err != nil {
			return composed{}, fmt.Errorf("metric %s forecast %s, %w", m.Name, m.Forecast, err)
		}
	}

	c := composed{chart: d.composer.ComposeSeries(td, series, m.Labels())}
	c.fit, err = series.Backtest(td.T, td.Y)
	switch {
	case errors.Is(err, forecast.ErrNoOverlap):
	case err != nil:
		return composed{}, fmt.Errorf("metric %s, %w", m.Name, err)
	}
	return c, nil
}

// fitCaption describes the in-sample fit of a forecast, e.g. "In-sample fit over 12 periods:
// MAPE 1.25%, R² 0.987".
func fitCaption(fit *forecast.Scores) string {
	if fit == nil {
		return ""
	}
	return fmt.Sprintf("In-sample fit over %d periods: MAPE %.2f%%, R² %.3f", fit.N, fit.MAPE*100, fit.R2)
}

func (d *Dashboard) renderOpts(m config.Metric) chart.RenderOpts {
	return chart.RenderOpts{
		ID:         chart.ChartID(m.Name),
		Width:      chart.DefaultWidth,
		Height:     chartHeight,
		AssetsHost: d.cfg.Server.AssetsHost,
	}
}

// Home returns the landing page.
func (d *Dashboard) Home(links Links) HomePage {
	return homePage(links)
}

// Indicators composes every configured metric into the indicators page. The first metric
// that fails to load or compose fails the page.
func (d *Dashboard) Indicators(ctx context.Context) (*IndicatorsPage, error) {
	page := &IndicatorsPage{
		Title:       d.cfg.Indicators.Title,
		Description: d.cfg.Indicators.Description,
	}
	scripts := make(map[string]bool)

	for _, s := range d.cfg.Indicators.Sections {
		section := ChartSection{}
		for _, m := range s.Tabs {
			c, err := d.compose(ctx, m)
			if err != nil {
				return nil, err
			}
			line := chart.Render(c.chart, d.renderOpts(m))
			snippet := line.RenderSnippet()
			for _, js := range line.JSAssets.Values {
				if !scripts[js] {
					scripts[js] = true
					page.Scripts = append(page.Scripts, js)
				}
			}
			section.Tabs = append(section.Tabs, ChartTab{
				Metric:  m.Name,
				Caption: m.Tab,
				Fit:     fitCaption(c.fit),
				Element: template.HTML(snippet.Element),
				Script:  template.HTML(snippet.Script),
			})
		}
		page.Sections = append(page.Sections, section)
	}
	return page, nil
}

// ChartsPage puts every metric chart on a single go-echarts page.
func (d *Dashboard) ChartsPage(ctx context.Context) (*components.Page, error) {
	page := components.NewPage()
	page.SetPageTitle(d.cfg.Indicators.Title)
	if d.cfg.Server.AssetsHost != "" {
		page.SetAssetsHost(d.cfg.Server.AssetsHost)
	}

	var lines []components.Charter
	for _, m := range d.cfg.Indicators.Metrics() {
		c, err := d.compose(ctx, m)
		if err != nil {
			return nil, err
		}
		ro := d.renderOpts(m)
		ro.Width = "1100px"
		lines = append(lines, chart.Render(c.chart, ro))
	}
	page.AddCharts(lines...)
	return page, nil
}

// TASI returns the TASI page with the intra-month image of the given month label, e.g.
// "Mar". An empty month selects January.
func (d *Dashboard) TASI(month string, links Links) (*TASIPage, error) {
	if month == "" {
		month = Months[0]
	}
	page := tasiPage()

	view := func(label string) (ImageView, error) {
		img, err := d.catalog.Image(label)
		if err != nil {
			return ImageView{}, err
		}
		return ImageView{Label: img.Label, Caption: img.Caption, URL: links.Image(img.Label)}, nil
	}

	for _, label := range SeasonalityLabels {
		v, err := view(label)
		if err != nil {
			return nil, err
		}
		page.Seasonality = append(page.Seasonality, v)
	}

	var err error
	if page.Monthly, err = view(ImageMonthly); err != nil {
		return nil, err
	}
	if page.Weekly, err = view(ImageWeekly); err != nil {
		return nil, err
	}
	if page.Month, err = view(month); err != nil {
		return nil, err
	}
	isMonth := false
	for _, label := range Months {
		if label == month {
			isMonth = true
		}
		page.MonthOptions = append(page.MonthOptions, MonthOption{
			Label:    label,
			URL:      links.Image(label),
			Selected: label == month,
		})
	}
	if !isMonth {
		return nil, fmt.Errorf("%q is not a month, %w", month, ErrUnknownImage)
	}
	return &page, nil
}
