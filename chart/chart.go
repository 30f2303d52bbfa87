package chart

import (
	"math"
	"strconv"
	"time"

	"github.com/yaqeen/forecastcenter/forecast"
	"github.com/yaqeen/forecastcenter/frame"
	"github.com/yaqeen/forecastcenter/timedataset"
	"gonum.org/v1/gonum/floats"
)

// Geometry is the mark a layer is drawn with.
type Geometry string

const (
	GeometryLine Geometry = "line"
	GeometryBand Geometry = "band"
)

const (
	CategoryActual     = "Actual"
	CategoryPrediction = "Prediction"
	CategoryBand95     = "95% Prediction Interval"
	CategoryBand80     = "80% Prediction Interval"

	ColorActual     = "black"
	ColorPrediction = "#ff4800"
	ColorBand95     = "#ffaa00"
	ColorBand80     = "#ff6d00"

	StrokeActual     = 2
	StrokePrediction = 3
	BandOpacity      = 0.4

	// TickYears is the spacing of x-axis ticks. It is a display hint only.
	TickYears = 2

	// ResolveIndependent gives every layer its own color domain and legend entry.
	ResolveIndependent = "independent"
)

// AxisType is the scale of an axis.
type AxisType string

const (
	AxisTemporal     AxisType = "temporal"
	AxisQuantitative AxisType = "quantitative"
)

// Labels are the display strings of a chart. Any of them may be empty.
type Labels struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Title string `json:"title"`
}

// Value is a float that serializes NaN as null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// IsNaN reports whether the value is missing.
func (v Value) IsNaN() bool {
	return math.IsNaN(float64(v))
}

// TooltipField is one row of a tooltip. Temporal fields show the period of the point and
// numeric fields show one of the point's tooltip values, formatted with Format.
type TooltipField struct {
	Column   string `json:"column"`
	Title    string `json:"title"`
	Temporal bool   `json:"temporal,omitempty"`
	Format   string `json:"format,omitempty"`
}

// Point is one mark of a layer. Lines use Y, bands span Y to Y2. Tooltip holds the values of
// the layer's numeric tooltip fields, in order.
type Point struct {
	T       time.Time `json:"t"`
	Y       Value     `json:"y"`
	Y2      Value     `json:"y2"`
	Tooltip []Value   `json:"tooltip,omitempty"`
}

// Layer is one visual element bound to a single color category.
type Layer struct {
	Category    string         `json:"category"`
	Color       string         `json:"color"`
	Geometry    Geometry       `json:"geometry"`
	StrokeWidth float64        `json:"strokeWidth,omitempty"`
	Opacity     float64        `json:"opacity"`
	X           string         `json:"x"`
	Y           string         `json:"y"`
	Y2          string         `json:"y2,omitempty"`
	Tooltip     []TooltipField `json:"tooltip,omitempty"`
	Points      []Point        `json:"points"`
}

// TickInterval requests an axis tick every Step units.
type TickInterval struct {
	Unit string `json:"unit"`
	Step int    `json:"step"`
}

type Axis struct {
	Title string        `json:"title"`
	Type  AxisType      `json:"type"`
	Tick  *TickInterval `json:"tick,omitempty"`
}

type Title struct {
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

// LayeredChart is an ordered stack of layers, drawn first to last, sharing a temporal x-axis.
// It is built by a Composer and not modified afterwards.
type LayeredChart struct {
	Title           *Title                  `json:"title,omitempty"`
	XAxis           Axis                    `json:"xAxis"`
	YAxis           Axis                    `json:"yAxis"`
	Layers          []Layer                 `json:"layers"`
	ColorResolution string                  `json:"colorResolution"`
	Granularity     timedataset.Granularity `json:"granularity"`
	Theme           Theme                   `json:"theme"`
}

// Categories returns the legend entries in layer order.
func (lc *LayeredChart) Categories() []string {
	cats := make([]string, len(lc.Layers))
	for i, l := range lc.Layers {
		cats[i] = l.Category
	}
	return cats
}

// Layer returns the layer of the given category.
func (lc *LayeredChart) Layer(category string) (Layer, bool) {
	for _, l := range lc.Layers {
		if l.Category == category {
			return l, true
		}
	}
	return Layer{}, false
}

// Extent returns the smallest and largest value drawn by any layer. ok is false when the
// chart has no points.
func (lc *LayeredChart) Extent() (lo, hi float64, ok bool) {
	var vals []float64
	for _, l := range lc.Layers {
		for _, p := range l.Points {
			if !p.Y.IsNaN() {
				vals = append(vals, float64(p.Y))
			}
			if l.Geometry == GeometryBand && !p.Y2.IsNaN() {
				vals = append(vals, float64(p.Y2))
			}
		}
	}
	if len(vals) == 0 {
		return 0, 0, false
	}
	return floats.Min(vals), floats.Max(vals), true
}

// Composer assembles forecast charts with a fixed visual encoding.
type Composer struct {
	theme Theme
}

// NewComposer returns a composer drawing with the given theme. Unset theme fields fall back
// to DefaultTheme.
func NewComposer(theme Theme) *Composer {
	return &Composer{theme: theme.Merge(DefaultTheme())}
}

// Theme returns the theme the composer draws with.
func (c *Composer) Theme() Theme {
	return c.theme
}

// Compose builds a chart from a historical table with ds and y columns and a forecast table
// with ds, model and the four interval bound columns. A missing column returns a
// *frame.MissingColumnError. Interval ordering is not checked.
func (c *Composer) Compose(historical, fcst *frame.Frame, labels Labels) (*LayeredChart, error) {
	td, err := timedataset.FromFrame(historical)
	if err != nil {
		return nil, err
	}
	series, err := forecast.FromFrame(fcst)
	if err != nil {
		return nil, err
	}
	return c.ComposeSeries(td, series, labels), nil
}

// ComposeSeries builds a chart from already typed series. Either may be empty.
func (c *Composer) ComposeSeries(td *timedataset.TimeDataset, series *forecast.Series, labels Labels) *LayeredChart {
	t := make(timedataset.TimeSlice, 0, td.Len()+series.Len())
	t = append(t, td.T...)
	t = append(t, series.T...)

	lc := &LayeredChart{
		XAxis: Axis{
			Title: labels.X,
			Type:  AxisTemporal,
			Tick:  &TickInterval{Unit: timedataset.GranularityYear.String(), Step: TickYears},
		},
		YAxis: Axis{
			Title: labels.Y,
			Type:  AxisQuantitative,
		},
		Layers: []Layer{
			bandLayer(CategoryBand95, ColorBand95, forecast.ColLo95, forecast.ColHi95, series.T, series.Lo95, series.Hi95),
			bandLayer(CategoryBand80, ColorBand80, forecast.ColLo80, forecast.ColHi80, series.T, series.Lo80, series.Hi80),
			actualLayer(td, labels),
			predictionLayer(series, labels),
		},
		ColorResolution: ResolveIndependent,
		Granularity:     t.EstimateGranularity(),
		Theme:           c.theme,
	}
	if labels.Title != "" {
		lc.Title = &Title{Text: labels.Title, Anchor: "middle"}
	}
	return lc
}

// periodField titles the period row with the x label, or "Period" when there is none.
func periodField(labels Labels) TooltipField {
	title := labels.X
	if title == "" {
		title = "Period"
	}
	return TooltipField{Column: timedataset.ColTime, Title: title, Temporal: true}
}

func actualLayer(td *timedataset.TimeDataset, labels Labels) Layer {
	valueTitle := labels.Y
	if valueTitle == "" {
		valueTitle = timedataset.ColValue
	}
	points := make([]Point, 0, td.Len())
	for i := 0; i < td.Len(); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		points = append(points, Point{
			T:       td.T[i],
			Y:       Value(td.Y[i]),
			Y2:      Value(math.NaN()),
			Tooltip: []Value{Value(td.Y[i])},
		})
	}
	return Layer{
		Category:    CategoryActual,
		Color:       ColorActual,
		Geometry:    GeometryLine,
		StrokeWidth: StrokeActual,
		Opacity:     1,
		X:           timedataset.ColTime,
		Y:           timedataset.ColValue,
		Tooltip: []TooltipField{
			periodField(labels),
			{Column: timedataset.ColValue, Title: valueTitle, Format: ".2f"},
		},
		Points: points,
	}
}

func predictionLayer(s *forecast.Series, labels Labels) Layer {
	points := make([]Point, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		r := s.Row(i)
		if math.IsNaN(r.Model) {
			continue
		}
		points = append(points, Point{
			T:  r.T,
			Y:  Value(r.Model),
			Y2: Value(math.NaN()),
			Tooltip: []Value{
				Value(r.Model),
				Value(r.Lo95),
				Value(r.Lo80),
				Value(r.Hi80),
				Value(r.Hi95),
			},
		})
	}
	return Layer{
		Category:    CategoryPrediction,
		Color:       ColorPrediction,
		Geometry:    GeometryLine,
		StrokeWidth: StrokePrediction,
		Opacity:     1,
		X:           forecast.ColTime,
		Y:           forecast.ColModel,
		Tooltip: []TooltipField{
			periodField(labels),
			{Column: forecast.ColModel, Title: "Prediction", Format: ".2f"},
			{Column: forecast.ColLo95, Title: "Lower 95%", Format: ".2f"},
			{Column: forecast.ColLo80, Title: "Lower 80%", Format: ".2f"},
			{Column: forecast.ColHi80, Title: "Upper 80%", Format: ".2f"},
			{Column: forecast.ColHi95, Title: "Upper 95%", Format: ".2f"},
		},
		Points: points,
	}
}

func bandLayer(category, color, loCol, hiCol string, t []time.Time, lo, hi []float64) Layer {
	points := make([]Point, 0, len(t))
	for i := range t {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) {
			continue
		}
		points = append(points, Point{T: t[i], Y: Value(lo[i]), Y2: Value(hi[i])})
	}
	return Layer{
		Category: category,
		Color:    color,
		Geometry: GeometryBand,
		Opacity:  BandOpacity,
		X:        forecast.ColTime,
		Y:        loCol,
		Y2:       hiCol,
		Points:   points,
	}
}
