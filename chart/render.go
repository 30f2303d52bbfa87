package chart

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/yaqeen/forecastcenter/timedataset"
)

const (
	DefaultWidth  = "100%"
	DefaultHeight = "500px"

	// yearMillis is the length of a Julian year, used for the x-axis tick hint.
	yearMillis = 365.25 * 24 * 60 * 60 * 1000

	// extentPad is the fraction of the data range added above and below the y-axis bounds.
	extentPad = 0.05
)

// RenderOpts control how a LayeredChart is embedded in a page.
type RenderOpts struct {
	// ID is the element id of the chart. When empty it is derived from the chart title, so
	// rendering the same chart twice produces the same output.
	ID         string
	Width      string
	Height     string
	AssetsHost string
}

// ChartID turns a name into an identifier that is safe to use as an element id and in a JS
// variable name.
func ChartID(name string) string {
	var b strings.Builder
	b.WriteString("chart_")
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	id := strings.TrimSuffix(b.String(), "_")
	if id == "chart" {
		return "chart_forecast"
	}
	return id
}

// Render maps a LayeredChart onto an echarts line chart. Lines become line series. A band
// becomes a transparent series at its lower bound with a stacked area series of height
// upper minus lower on top of it. Only the four layer categories appear in the legend.
// Band series are patched after the first setOption to stack regardless of sign and to
// carry no tooltip; the option structs of the chart library have no field for either.
func Render(lc *LayeredChart, ro RenderOpts) *charts.Line {
	theme := lc.Theme.Merge(DefaultTheme())
	if ro.Width == "" {
		ro.Width = DefaultWidth
	}
	if ro.Height == "" {
		ro.Height = DefaultHeight
	}
	if ro.ID == "" {
		var title string
		if lc.Title != nil {
			title = lc.Title.Text
		}
		ro.ID = ChartID(title)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           ro.Width,
			Height:          ro.Height,
			BackgroundColor: theme.Background,
			ChartID:         ro.ID,
			AssetsHost:      ro.AssetsHost,
		}),
		charts.WithTitleOpts(titleOpts(lc, theme)),
		charts.WithLegendOpts(opts.Legend{
			Show:   opts.Bool(true),
			Data:   lc.Categories(),
			Orient: "vertical",
			Right:  "0",
			Top:    "middle",
			TextStyle: &opts.TextStyle{
				Color:      theme.LegendLabelColor,
				FontFamily: theme.FontFamily,
			},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
		}),
		charts.WithGridOpts(opts.Grid{
			Left:         "3%",
			Right:        "210",
			ContainLabel: opts.Bool(true),
		}),
		charts.WithXAxisOpts(xAxisOpts(lc, theme)),
		charts.WithYAxisOpts(yAxisOpts(lc, theme)),
	)

	var bandIDs []string
	for i, l := range lc.Layers {
		switch l.Geometry {
		case GeometryBand:
			bandIDs = append(bandIDs, addBand(line, i, l)...)
		default:
			addLine(line, l, lc.Granularity)
		}
	}
	if len(bandIDs) > 0 {
		line.AddJSFuncStrs(BandPatch(bandIDs))
	}
	return line
}

func titleOpts(lc *LayeredChart, theme Theme) opts.Title {
	if lc.Title == nil {
		return opts.Title{Show: opts.Bool(false)}
	}
	left := "center"
	switch lc.Title.Anchor {
	case "start":
		left = "left"
	case "end":
		left = "right"
	}
	return opts.Title{
		Title: lc.Title.Text,
		Left:  left,
		TitleStyle: &opts.TextStyle{
			Color:      theme.TitleColor,
			FontSize:   theme.TitleFontSize,
			FontFamily: theme.FontFamily,
		},
	}
}

func xAxisOpts(lc *LayeredChart, theme Theme) opts.XAxis {
	x := opts.XAxis{
		Type:         "time",
		Name:         lc.XAxis.Title,
		NameLocation: "middle",
		NameGap:      30,
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: theme.GridColor},
		},
		AxisLine: &opts.AxisLine{
			LineStyle: &opts.LineStyle{Color: theme.TickColor},
		},
		AxisLabel: &opts.AxisLabel{
			Color:      theme.LabelColor,
			FontFamily: theme.FontFamily,
		},
		AxisTick: &opts.AxisTick{
			LineStyle: &opts.LineStyle{Color: theme.TickColor},
		},
	}
	if tick := lc.XAxis.Tick; tick != nil && tick.Unit == timedataset.GranularityYear.String() {
		x.MinInterval = float64(tick.Step) * yearMillis
	}
	return x
}

func yAxisOpts(lc *LayeredChart, theme Theme) opts.YAxis {
	y := opts.YAxis{
		Type:         "value",
		Name:         lc.YAxis.Title,
		NameLocation: "middle",
		NameGap:      60,
		Scale:        opts.Bool(true),
		SplitArea: &opts.SplitArea{
			Show:      opts.Bool(true),
			AreaStyle: &opts.AreaStyle{Color: theme.PlotFill},
		},
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: theme.GridColor},
		},
		AxisLine: &opts.AxisLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: theme.TickColor},
		},
		AxisLabel: &opts.AxisLabel{
			Color:      theme.LabelColor,
			FontFamily: theme.FontFamily,
		},
	}
	if lo, hi, ok := lc.Extent(); ok {
		pad := (hi - lo) * extentPad
		if pad == 0 {
			pad = math.Max(math.Abs(hi)*extentPad, 1)
		}
		y.Min = roundBound(lo - pad)
		y.Max = roundBound(hi + pad)
	}
	return y
}

// roundBound trims axis bounds to two decimals so they read cleanly in the axis labels.
func roundBound(v float64) float64 {
	return math.Round(v*100) / 100
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// jsonValue replaces NaN with nil; the chart options are encoded with encoding/json, which
// rejects NaN.
func jsonValue(v Value) interface{} {
	if v.IsNaN() || math.IsInf(float64(v), 0) {
		return nil
	}
	return float64(v)
}

func addLine(line *charts.Line, l Layer, g timedataset.Granularity) {
	data := make([]opts.LineData, 0, len(l.Points))
	for _, p := range l.Points {
		vals := make([]interface{}, 0, 2+len(p.Tooltip))
		vals = append(vals, millis(p.T), jsonValue(p.Y))
		for _, tv := range p.Tooltip {
			vals = append(vals, jsonValue(tv))
		}
		data = append(data, opts.LineData{Value: vals})
	}

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			Symbol:     "circle",
			ShowSymbol: opts.Bool(false),
		}),
		charts.WithLineStyleOpts(opts.LineStyle{
			Color:   l.Color,
			Width:   float32(l.StrokeWidth),
			Opacity: opts.Float(float32(l.Opacity)),
		}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: l.Color}),
	}
	if len(l.Tooltip) > 0 {
		seriesOpts = append(seriesOpts, charts.WithSeriesTooltipOpts(opts.SeriesTooltip{
			Formatter: opts.FuncOpts(TooltipFormatter(l.Tooltip, g)),
		}))
	}
	line.AddSeries(l.Category, data, seriesOpts...)
}

func addBand(line *charts.Line, idx int, l Layer) []string {
	lower := make([]opts.LineData, 0, len(l.Points))
	height := make([]opts.LineData, 0, len(l.Points))
	for _, p := range l.Points {
		ts := millis(p.T)
		lower = append(lower, opts.LineData{Value: []interface{}{ts, jsonValue(p.Y)}})
		height = append(height, opts.LineData{Value: []interface{}{ts, jsonValue(p.Y2 - p.Y)}})
	}

	stack := "band" + strconv.Itoa(idx)
	lowerID, upperID := stack+"_lower", stack
	noSymbol := opts.LineChart{Stack: stack, Symbol: "none", ShowSymbol: opts.Bool(false)}

	line.AddSeries(l.Category+" lower", lower,
		charts.WithSeriesId(lowerID),
		charts.WithLineChartOpts(noSymbol),
		charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
	)
	line.AddSeries(l.Category, height,
		charts.WithSeriesId(upperID),
		charts.WithLineChartOpts(noSymbol),
		charts.WithLineStyleOpts(opts.LineStyle{Color: l.Color, Opacity: opts.Float(0)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: l.Color, Opacity: opts.Float(float32(l.Opacity))}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: l.Color}),
	)
	return []string{lowerID, upperID}
}

// BandPatch is the script that merges band options into the chart by series id. ECharts
// stacks only values of the same sign by default, which would anchor the height of a band
// with a negative lower bound at zero instead of at the bound.
func BandPatch(ids []string) types.FuncStr {
	entries := make([]string, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, "{id: '"+id+"', stackStrategy: 'all', tooltip: {show: false}}")
	}
	return types.FuncStr("%MY_ECHARTS%.setOption({series: [" + strings.Join(entries, ", ") + "]});")
}

// periodLayout is the echarts formatTime template for a period at the given granularity.
func periodLayout(g timedataset.Granularity) string {
	switch g {
	case timedataset.GranularityYear:
		return "yyyy"
	case timedataset.GranularityQuarter, timedataset.GranularityMonth:
		return "yyyy-MM"
	default:
		return "yyyy-MM-dd"
	}
}

// precision reads the decimal count from a format such as ".2f". Anything else gets 2.
func precision(format string) int {
	digits := strings.TrimSuffix(strings.TrimPrefix(format, "."), "f")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n > 20 {
		return 2
	}
	return n
}

// jsString encodes s as a JS expression without quote characters. The function body is
// embedded in a JSON string by the chart template, so a double quote would end it early.
func jsString(s string) string {
	if s == "" {
		return "''"
	}
	codes := make([]string, 0, len(s))
	for _, r := range s {
		codes = append(codes, strconv.Itoa(int(r)))
	}
	return "String.fromCharCode(" + strings.Join(codes, ",") + ")"
}

// TooltipFormatter builds the body of an echarts tooltip formatter for a line series whose
// data values are [time, y, tooltip values...].
func TooltipFormatter(fields []TooltipField, g timedataset.Granularity) string {
	var b strings.Builder
	b.WriteString("function (params) { var v = params.value; ")
	b.WriteString("var num = function (x, d) { return typeof x === 'number' ? x.toFixed(d) : '-'; }; ")
	b.WriteString("return params.marker + params.seriesName")

	idx := 2
	for _, f := range fields {
		b.WriteString(" + '<br/>' + ")
		b.WriteString(jsString(f.Title))
		b.WriteString(" + ': ' + ")
		if f.Temporal {
			b.WriteString("echarts.format.formatTime('" + periodLayout(g) + "', v[0], true)")
			continue
		}
		b.WriteString("num(v[" + strconv.Itoa(idx) + "], " + strconv.Itoa(precision(f.Format)) + ")")
		idx++
	}
	b.WriteString("; }")
	return b.String()
}
