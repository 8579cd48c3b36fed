package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/safety.report/internal/pipeline"
)

// SaveFlowPlot renders the binned vehicle counts of one recording to a
// PNG file at path.
func SaveFlowPlot(path string, result *pipeline.Result) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Recording %s: vehicles per %.0fs bin",
		result.RecordingID, result.Flow.Series.BinWidthSec())
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "vehicles"

	pts := make(plotter.XYs, 0, result.Flow.Series.Len())
	for bin := range result.Flow.Series.All() {
		pts = append(pts, plotter.XY{X: bin.StartSec, Y: float64(bin.Count)})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build flow line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save flow plot: %w", err)
	}
	return nil
}
