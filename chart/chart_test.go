package chart

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaqeen/forecastcenter/forecast"
	"github.com/yaqeen/forecastcenter/frame"
	"github.com/yaqeen/forecastcenter/timedataset"
)

func year(y int) time.Time {
	return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
}

func historicalFrame(t *testing.T, ts []time.Time, y []float64) *frame.Frame {
	t.Helper()
	f := frame.New(len(ts))
	require.NoError(t, f.AddTimes(timedataset.ColTime, ts))
	require.NoError(t, f.AddFloats(timedataset.ColValue, y))
	return f
}

func forecastFrame(t *testing.T, ts []time.Time, cols map[string][]float64, skip string) *frame.Frame {
	t.Helper()
	f := frame.New(len(ts))
	require.NoError(t, f.AddTimes(forecast.ColTime, ts))
	for _, col := range forecast.Columns {
		if col == skip {
			continue
		}
		require.NoError(t, f.AddFloats(col, cols[col]))
	}
	return f
}

func scenario(t *testing.T) (*frame.Frame, *frame.Frame) {
	t.Helper()
	hist := historicalFrame(t, []time.Time{year(2020), year(2021)}, []float64{100, 110})
	fcst := forecastFrame(t, []time.Time{year(2022)}, map[string][]float64{
		forecast.ColModel: {120},
		forecast.ColLo95:  {115},
		forecast.ColLo80:  {118},
		forecast.ColHi80:  {122},
		forecast.ColHi95:  {125},
	}, "")
	return hist, fcst
}

var labels = Labels{X: "Year", Y: "GDP (Million SAR)", Title: "Gross Domestic Product"}

func TestComposeLayerOrder(t *testing.T) {
	hist, fcst := scenario(t)
	lc, err := NewComposer(DefaultTheme()).Compose(hist, fcst, labels)
	require.NoError(t, err)

	require.Len(t, lc.Layers, 4)
	assert.Equal(t, []string{CategoryBand95, CategoryBand80, CategoryActual, CategoryPrediction}, lc.Categories())
	assert.Equal(t, []Geometry{GeometryBand, GeometryBand, GeometryLine, GeometryLine}, []Geometry{
		lc.Layers[0].Geometry, lc.Layers[1].Geometry, lc.Layers[2].Geometry, lc.Layers[3].Geometry,
	})
	assert.Equal(t, ResolveIndependent, lc.ColorResolution)

	colors := make(map[string]bool)
	for _, l := range lc.Layers {
		colors[l.Color] = true
	}
	assert.Len(t, colors, 4, "every layer has its own color")
}

func TestComposeEncoding(t *testing.T) {
	hist, fcst := scenario(t)
	lc, err := NewComposer(Theme{}).Compose(hist, fcst, labels)
	require.NoError(t, err)

	actual, ok := lc.Layer(CategoryActual)
	require.True(t, ok)
	assert.Equal(t, ColorActual, actual.Color)
	assert.Equal(t, 2.0, actual.StrokeWidth)
	require.Len(t, actual.Tooltip, 2)
	assert.True(t, actual.Tooltip[0].Temporal)
	assert.Equal(t, "Year", actual.Tooltip[0].Title)
	assert.Equal(t, "GDP (Million SAR)", actual.Tooltip[1].Title)
	assert.Equal(t, ".2f", actual.Tooltip[1].Format)

	pred, ok := lc.Layer(CategoryPrediction)
	require.True(t, ok)
	assert.Equal(t, "#ff4800", pred.Color)
	assert.Equal(t, 3.0, pred.StrokeWidth)
	assert.Greater(t, pred.StrokeWidth, actual.StrokeWidth)

	assert.True(t, pred.Tooltip[0].Temporal)
	assert.Equal(t, "Year", pred.Tooltip[0].Title)

	var titles []string
	for _, f := range pred.Tooltip[1:] {
		titles = append(titles, f.Title)
		assert.Equal(t, ".2f", f.Format)
	}
	assert.Equal(t, []string{"Prediction", "Lower 95%", "Lower 80%", "Upper 80%", "Upper 95%"}, titles)

	for _, cat := range []string{CategoryBand95, CategoryBand80} {
		band, ok := lc.Layer(cat)
		require.True(t, ok)
		assert.Equal(t, 0.4, band.Opacity)
		assert.Empty(t, band.Tooltip)
	}

	require.NotNil(t, lc.Title)
	assert.Equal(t, "middle", lc.Title.Anchor)
	assert.Equal(t, "Year", lc.XAxis.Title)
	assert.Equal(t, AxisTemporal, lc.XAxis.Type)
	assert.Equal(t, &TickInterval{Unit: "year", Step: 2}, lc.XAxis.Tick)
	assert.Equal(t, "GDP (Million SAR)", lc.YAxis.Title)
	assert.Equal(t, DefaultTheme(), lc.Theme)
}

func TestComposeScenario(t *testing.T) {
	hist, fcst := scenario(t)
	lc, err := NewComposer(DefaultTheme()).Compose(hist, fcst, labels)
	require.NoError(t, err)

	actual, _ := lc.Layer(CategoryActual)
	require.Len(t, actual.Points, 2)
	assert.Equal(t, year(2020), actual.Points[0].T)
	assert.Equal(t, Value(100), actual.Points[0].Y)
	assert.Equal(t, year(2021), actual.Points[1].T)
	assert.Equal(t, Value(110), actual.Points[1].Y)

	pred, _ := lc.Layer(CategoryPrediction)
	require.Len(t, pred.Points, 1)
	assert.Equal(t, year(2022), pred.Points[0].T)
	assert.Equal(t, Value(120), pred.Points[0].Y)
	assert.Equal(t, []Value{120, 115, 118, 122, 125}, pred.Points[0].Tooltip)

	b95, _ := lc.Layer(CategoryBand95)
	b80, _ := lc.Layer(CategoryBand80)
	require.Len(t, b95.Points, 1)
	require.Len(t, b80.Points, 1)
	assert.Equal(t, Value(115), b95.Points[0].Y)
	assert.Equal(t, Value(125), b95.Points[0].Y2)
	assert.Equal(t, Value(118), b80.Points[0].Y)
	assert.Equal(t, Value(122), b80.Points[0].Y2)
	assert.Less(t, float64(b95.Points[0].Y), float64(b80.Points[0].Y))
	assert.Greater(t, float64(b95.Points[0].Y2), float64(b80.Points[0].Y2))

	assert.Equal(t, timedataset.GranularityYear, lc.Granularity)
}

func TestComposeBandContainment(t *testing.T) {
	ts := []time.Time{year(2024), year(2025), year(2026), year(2027)}
	model := []float64{100, 104, 109, 115}
	cols := map[string][]float64{forecast.ColModel: model}
	for _, col := range forecast.Columns[1:] {
		cols[col] = make([]float64, len(ts))
	}
	for i, m := range model {
		spread := float64(i+1) * 2
		cols[forecast.ColLo95][i] = m - 2*spread
		cols[forecast.ColLo80][i] = m - spread
		cols[forecast.ColHi80][i] = m + spread
		cols[forecast.ColHi95][i] = m + 2*spread
	}
	hist := historicalFrame(t, []time.Time{year(2022), year(2023)}, []float64{90, 95})
	lc, err := NewComposer(DefaultTheme()).Compose(hist, forecastFrame(t, ts, cols, ""), labels)
	require.NoError(t, err)

	b95, _ := lc.Layer(CategoryBand95)
	b80, _ := lc.Layer(CategoryBand80)
	require.Len(t, b95.Points, len(ts))
	require.Len(t, b80.Points, len(ts))
	for i := range ts {
		assert.Equal(t, b95.Points[i].T, b80.Points[i].T)
		assert.LessOrEqual(t, float64(b95.Points[i].Y), float64(b80.Points[i].Y))
		assert.GreaterOrEqual(t, float64(b95.Points[i].Y2), float64(b80.Points[i].Y2))
	}
}

func TestComposeIdempotent(t *testing.T) {
	hist, fcst := scenario(t)
	c := NewComposer(DefaultTheme())

	first, err := c.Compose(hist, fcst, labels)
	require.NoError(t, err)
	second, err := c.Compose(hist, fcst, labels)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	firstLine := Render(first, RenderOpts{})
	firstLine.Validate()
	secondLine := Render(second, RenderOpts{})
	secondLine.Validate()
	assert.Equal(t, string(firstLine.JSONNotEscaped()), string(secondLine.JSONNotEscaped()))
	assert.Equal(t, firstLine.ChartID, secondLine.ChartID)
}

func TestComposeEmptyHistorical(t *testing.T) {
	hist := historicalFrame(t, nil, nil)
	fcst := forecastFrame(t, []time.Time{year(2022)}, map[string][]float64{
		forecast.ColModel: {120},
		forecast.ColLo95:  {115},
		forecast.ColLo80:  {118},
		forecast.ColHi80:  {122},
		forecast.ColHi95:  {125},
	}, "")

	lc, err := NewComposer(DefaultTheme()).Compose(hist, fcst, Labels{})
	require.NoError(t, err)
	require.Len(t, lc.Layers, 4)
	assert.Nil(t, lc.Title)

	actual, _ := lc.Layer(CategoryActual)
	assert.Empty(t, actual.Points)
	assert.Equal(t, "Period", actual.Tooltip[0].Title)
	assert.Equal(t, timedataset.ColValue, actual.Tooltip[1].Title)
	pred, _ := lc.Layer(CategoryPrediction)
	assert.Len(t, pred.Points, 1)

	line := Render(lc, RenderOpts{})
	line.Validate()
	assert.Len(t, line.MultiSeries, 6)
}

func TestComposeEmptyBoth(t *testing.T) {
	lc := NewComposer(DefaultTheme()).ComposeSeries(
		&timedataset.TimeDataset{},
		forecast.NewSeries(nil),
		labels,
	)
	require.Len(t, lc.Layers, 4)
	_, _, ok := lc.Extent()
	assert.False(t, ok)

	line := Render(lc, RenderOpts{})
	line.Validate()
	assert.Nil(t, line.YAxisList[0].Min)
}

func TestComposeMissingColumn(t *testing.T) {
	hist, fcst := scenario(t)
	full := map[string][]float64{
		forecast.ColModel: {120},
		forecast.ColLo95:  {115},
		forecast.ColLo80:  {118},
		forecast.ColHi80:  {122},
		forecast.ColHi95:  {125},
	}

	testData := map[string]struct {
		historical *frame.Frame
		forecast   *frame.Frame
		column     string
	}{
		"historical ds": {
			historical: func() *frame.Frame {
				f := frame.New(1)
				require.NoError(t, f.AddFloats(timedataset.ColValue, []float64{1}))
				return f
			}(),
			forecast: fcst,
			column:   timedataset.ColTime,
		},
		"historical y": {
			historical: func() *frame.Frame {
				f := frame.New(1)
				require.NoError(t, f.AddTimes(timedataset.ColTime, []time.Time{year(2020)}))
				return f
			}(),
			forecast: fcst,
			column:   timedataset.ColValue,
		},
	}
	for _, col := range forecast.Columns {
		testData["forecast "+col] = struct {
			historical *frame.Frame
			forecast   *frame.Frame
			column     string
		}{
			historical: hist,
			forecast:   forecastFrame(t, []time.Time{year(2022)}, full, col),
			column:     col,
		}
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			lc, err := NewComposer(DefaultTheme()).Compose(td.historical, td.forecast, labels)
			require.Error(t, err)
			assert.Nil(t, lc)
			assert.ErrorIs(t, err, frame.ErrMissingColumn)

			var missing *frame.MissingColumnError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, td.column, missing.Column)
		})
	}
}

func TestComposeInvertedIntervalsNotRejected(t *testing.T) {
	hist, _ := scenario(t)
	fcst := forecastFrame(t, []time.Time{year(2022)}, map[string][]float64{
		forecast.ColModel: {120},
		forecast.ColLo95:  {125},
		forecast.ColLo80:  {122},
		forecast.ColHi80:  {118},
		forecast.ColHi95:  {115},
	}, "")

	lc, err := NewComposer(DefaultTheme()).Compose(hist, fcst, labels)
	require.NoError(t, err)
	b95, _ := lc.Layer(CategoryBand95)
	assert.Equal(t, Value(125), b95.Points[0].Y)
	assert.Equal(t, Value(115), b95.Points[0].Y2)
}

func TestComposeSkipsNaN(t *testing.T) {
	hist := historicalFrame(t, []time.Time{year(2019), year(2020), year(2021)}, []float64{90, math.NaN(), 110})
	_, fcst := scenario(t)

	lc, err := NewComposer(DefaultTheme()).Compose(hist, fcst, labels)
	require.NoError(t, err)
	actual, _ := lc.Layer(CategoryActual)
	require.Len(t, actual.Points, 2)
	assert.Equal(t, year(2021), actual.Points[1].T)
}

func TestExtent(t *testing.T) {
	hist, fcst := scenario(t)
	lc, err := NewComposer(DefaultTheme()).Compose(hist, fcst, labels)
	require.NoError(t, err)

	lo, hi, ok := lc.Extent()
	require.True(t, ok)
	assert.Equal(t, 100.0, lo)
	assert.Equal(t, 125.0, hi)
}

func TestValueMarshalJSON(t *testing.T) {
	out, err := json.Marshal([]Value{1.5, Value(math.NaN()), 120})
	require.NoError(t, err)
	assert.Equal(t, `[1.5,null,120]`, string(out))
}

func TestLayeredChartJSON(t *testing.T) {
	hist, fcst := scenario(t)
	lc, err := NewComposer(DefaultTheme()).Compose(hist, fcst, labels)
	require.NoError(t, err)

	out, err := json.Marshal(lc)
	require.NoError(t, err)

	var decoded struct {
		Granularity string `json:"granularity"`
		Layers      []struct {
			Category string `json:"category"`
		} `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "year", decoded.Granularity)
	require.Len(t, decoded.Layers, 4)
	assert.Equal(t, CategoryBand95, decoded.Layers[0].Category)
	assert.Equal(t, CategoryPrediction, decoded.Layers[3].Category)
	assert.False(t, strings.Contains(string(out), "NaN"))
}
