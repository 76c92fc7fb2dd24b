package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth     = "100%"
	chartHeight    = "500px"
	xAxisRotate    = 45
	stackName      = "actions"
	pageTitle      = "astdiff report"
	emptySubtitle  = "No structural changes"
	chartsSubtitle = "Edit actions per file pair"
)

// actionSeries is one stacked bar series of the action chart.
type actionSeries struct {
	name  string
	color string
	value func(Summary) int
}

var actionSeriesList = []actionSeries{ //nolint:gochecknoglobals // fixed chart layout.
	{name: "Inserts", color: "#2e7d32", value: func(s Summary) int { return s.Inserts }},
	{name: "Deletes", color: "#c62828", value: func(s Summary) int { return s.Deletes }},
	{name: "Updates", color: "#f9a825", value: func(s Summary) int { return s.Updates }},
	{name: "Moves", color: "#1565c0", value: func(s Summary) int { return s.Moves }},
}

func (r *Renderer) html(w io.Writer, rep Project) error {
	page := components.NewPage()
	page.PageTitle = pageTitle
	page.AddCharts(actionChart(rep.Diffs, "Changed files"))

	if len(rep.MoveDiffs) > 0 {
		page.AddCharts(actionChart(rep.MoveDiffs, "Moved declarations"))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}

// actionChart builds a stacked bar chart with one bar per diff.
func actionChart(diffs []Diff, title string) *charts.Bar {
	bar := charts.NewBar()

	subtitle := chartsSubtitle
	if len(diffs) == 0 {
		subtitle = emptySubtitle
	}

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "10%", Left: "center"}),
		charts.WithGridOpts(opts.Grid{Top: "25%", Bottom: "15%", ContainLabel: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Actions"}),
	)

	labels := make([]string, len(diffs))
	for i, diff := range diffs {
		labels[i] = pairLabel(diff)
	}

	bar.SetXAxis(labels)

	for _, series := range actionSeriesList {
		data := make([]opts.BarData, len(diffs))
		for i, diff := range diffs {
			data[i] = opts.BarData{Value: series.value(diff.Summary)}
		}

		bar.AddSeries(series.name, data,
			charts.WithBarChartOpts(opts.BarChart{Stack: stackName}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: series.color}),
		)
	}

	return bar
}

func pairLabel(diff Diff) string {
	if diff.SrcPath == diff.DstPath {
		return diff.SrcPath
	}

	return diff.SrcPath + " -> " + diff.DstPath
}
