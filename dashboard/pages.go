package dashboard

import (
	"html/template"
	"net/url"
)

// Links are the URLs pages point at. The server and the static export address pages and
// images differently.
type Links struct {
	Home       string
	Indicators string
	TASI       string
	Image      func(label string) string
}

// ServerLinks are the routes served by Server.
func ServerLinks() Links {
	return Links{
		Home:       "/",
		Indicators: "/indicators",
		TASI:       "/tasi",
		Image: func(label string) string {
			return "/images/" + url.PathEscape(label)
		},
	}
}

// StaticLinks are the relative file names written by Export.
func StaticLinks() Links {
	return Links{
		Home:       "index.html",
		Indicators: "indicators.html",
		TASI:       "tasi.html",
		Image: func(label string) string {
			return "images/" + url.PathEscape(label) + ".png"
		},
	}
}

type PageLink struct {
	Label string
	URL   string
	Help  string
}

type HomePage struct {
	Title    string
	Tagline  string
	Motto    string
	Pages    []PageLink
	Upcoming []string
}

// ChartTab is one rendered chart. Element and Script are the markup go-echarts produced.
type ChartTab struct {
	Metric  string
	Caption string
	// Fit summarizes how the model tracked the actuals where both cover the same periods.
	Fit     string
	Element template.HTML
	Script  template.HTML
}

type ChartSection struct {
	Tabs []ChartTab
}

type IndicatorsPage struct {
	Title       string
	Description string
	Sections    []ChartSection
	// Scripts are the JS assets the charts need, e.g. echarts.min.js.
	Scripts []string
}

// Methodology is a collapsible "Analysis Approach" list.
type Methodology struct {
	Points []string
}

type ImageView struct {
	Label   string
	Caption string
	URL     string
}

type MonthOption struct {
	Label    string
	URL      string
	Selected bool
}

type TASIPage struct {
	Title string
	Intro string

	SeasonalityHeading     string
	SeasonalityMethodology Methodology
	Seasonality            []ImageView

	PerformanceHeading     string
	PerformanceMethodology Methodology
	Monthly                ImageView
	Weekly                 ImageView

	TradingDaysHeading     string
	TradingDaysMethodology Methodology
	MonthPrompt            string
	MonthOptions           []MonthOption
	Month                  ImageView

	Footer []string
}

func homePage(links Links) HomePage {
	return HomePage{
		Title:   "Yaqeen Forecasting Center",
		Tagline: "For Time Series Analysis.",
		Motto:   "Where data meets time",
		Pages: []PageLink{
			{Label: "📊 Indicators of the Kingdom of Saudi Arabia (KSA)", URL: links.Indicators, Help: "In progress"},
			{Label: "📊 TASI Index", URL: links.TASI, Help: "In progress"},
		},
		Upcoming: []string{"NQ100 Index", "S&P 500 Index", "Gold Index"},
	}
}

func tasiPage() TASIPage {
	return TASIPage{
		Title: "📊 TASI Index Analysis",
		Intro: "This page presents comprehensive analysis of the Tadawul All Share Index (TASI) in Saudi Arabia. " +
			"Forecasts will be updated as they become available.",

		SeasonalityHeading: "Seasonality Analysis",
		SeasonalityMethodology: Methodology{Points: []string{
			"Percentage change calculated based on daily open and close prices",
			"Seasonality patterns examined across multiple timeframes: 5, 10, and 15-year averages",
			"Historical trends help identify recurring patterns in market behavior",
		}},

		PerformanceHeading: "📈 Monthly and Weekly Performance",
		PerformanceMethodology: Methodology{Points: []string{
			"Average returns calculated from monthly and weekly open-to-close price changes",
			"Analysis period: 15 years of historical data",
			"Provides insight into temporal patterns and optimal trading periods",
		}},

		TradingDaysHeading: "📅 Intra-Month Trading Day Analysis",
		TradingDaysMethodology: Methodology{Points: []string{
			"Daily percentage change calculated from open to close for each trading day of the month",
			"Averaged over 15 years of historical data",
			"Note: Analysis based on trading days, not calendar days",
			"Helps identify the most favorable days within each month for market participation",
		}},
		MonthPrompt: "Choose month",

		Footer: []string{
			"Data Source: Tadawul All Share Index (TASI) | Analysis Period: Up to 15 years of historical data",
			"⚠️ Disclaimer: Past performance does not guarantee future results. " +
				"This analysis is for informational purposes only and should not be considered investment advice.",
		},
	}
}
