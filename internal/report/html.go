package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/safety.report/internal/hsm"
	"github.com/banshee-data/safety.report/internal/pipeline"
)

// RenderHTML writes a standalone HTML page with the flow time series and
// the predicted crash breakdown for one recording.
func RenderHTML(w io.Writer, result *pipeline.Result) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Recording %s", result.RecordingID)
	page.AddCharts(flowChart(result), predictionChart(result))
	return page.Render(w)
}

func flowChart(result *pipeline.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Traffic flow",
			Subtitle: fmt.Sprintf("recording=%s bin=%.0fs", result.RecordingID, result.Flow.Series.BinWidthSec()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "vehicles per bin"}),
	)

	var labels []string
	var counts []opts.LineData
	for bin := range result.Flow.Series.All() {
		labels = append(labels, fmt.Sprintf("%.0f", bin.StartSec))
		counts = append(counts, opts.LineData{Value: bin.Count})
	}

	line.SetXAxis(labels)
	line.AddSeries("vehicles", counts)
	return line
}

func predictionChart(result *pipeline.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Predicted crashes per year",
			Subtitle: fmt.Sprintf("area=%s mode=%s", result.Prediction.Area, result.Prediction.Mode),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	var labels []string
	var fi, pdo []opts.BarData
	for _, collision := range hsm.CollisionTypes {
		tp, ok := result.Prediction.Types[collision]
		if !ok {
			continue
		}
		labels = append(labels, string(collision))
		fi = append(fi, opts.BarData{Value: tp.FI})
		pdo = append(pdo, opts.BarData{Value: tp.PDO})
	}

	bar.SetXAxis(labels)
	bar.AddSeries("fatal and injury", fi)
	bar.AddSeries("property damage only", pdo)
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "severity"}))
	return bar
}
