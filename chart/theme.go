package chart

// Theme holds the chart chrome that is not part of the layer encoding: backgrounds, grid,
// axis and text styling. It is passed to a Composer rather than registered globally.
type Theme struct {
	Name string `toml:"name" json:"name"`

	Background string `toml:"background" json:"background"`
	PlotFill   string `toml:"plot_fill" json:"plotFill"`
	GridColor  string `toml:"grid_color" json:"gridColor"`
	TickColor  string `toml:"tick_color" json:"tickColor"`
	LabelColor string `toml:"label_color" json:"labelColor"`

	TitleColor    string `toml:"title_color" json:"titleColor"`
	TitleFontSize int    `toml:"title_font_size" json:"titleFontSize"`
	FontFamily    string `toml:"font_family" json:"fontFamily"`

	LegendLabelColor string `toml:"legend_label_color" json:"legendLabelColor"`
}

// DefaultTheme is a ggplot-like theme: grey plot area between the axes, white grid lines,
// black text and a centered 16px Arial title.
func DefaultTheme() Theme {
	return Theme{
		Name:             "ggplot",
		Background:       "white",
		PlotFill:         "#E5E5E5",
		GridColor:        "white",
		TickColor:        "black",
		LabelColor:       "black",
		TitleColor:       "black",
		TitleFontSize:    16,
		FontFamily:       "Arial",
		LegendLabelColor: "black",
	}
}

// Merge returns t with every zero-valued field replaced by the value from defaults.
func (t Theme) Merge(defaults Theme) Theme {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	out := t
	out.Name = pick(t.Name, defaults.Name)
	out.Background = pick(t.Background, defaults.Background)
	out.PlotFill = pick(t.PlotFill, defaults.PlotFill)
	out.GridColor = pick(t.GridColor, defaults.GridColor)
	out.TickColor = pick(t.TickColor, defaults.TickColor)
	out.LabelColor = pick(t.LabelColor, defaults.LabelColor)
	out.TitleColor = pick(t.TitleColor, defaults.TitleColor)
	out.FontFamily = pick(t.FontFamily, defaults.FontFamily)
	out.LegendLabelColor = pick(t.LegendLabelColor, defaults.LegendLabelColor)
	if t.TitleFontSize <= 0 {
		out.TitleFontSize = defaults.TitleFontSize
	}
	return out
}
