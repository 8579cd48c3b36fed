// Package report renders processed recording results as Markdown
// summaries, standalone HTML chart pages and PNG plots.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/banshee-data/safety.report/internal/highd"
	"github.com/banshee-data/safety.report/internal/hsm"
	"github.com/banshee-data/safety.report/internal/pipeline"
	"github.com/banshee-data/safety.report/internal/units"
)

// WriteMarkdown writes the per-recording summary for one result. Speeds
// are converted from the recording's m/s into speedUnit, one of
// units.ValidUnits; an unrecognized unit falls back to m/s.
func WriteMarkdown(w io.Writer, result *pipeline.Result, speedUnit string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Recording %s\n\n", result.RecordingID)

	b.WriteString("## Roadway structure\n\n")
	st := result.Structure
	fmt.Fprintf(&b, "- Segment length: %.1f m (%s)\n", st.SegmentLengthM, st.LengthStrategy)
	if st.SpeedLimitKnown {
		fmt.Fprintf(&b, "- Speed limit: %.0f km/h\n", st.SpeedLimitKMH)
	} else {
		b.WriteString("- Speed limit: unknown\n")
	}
	for _, dir := range highd.Directions {
		ds, ok := st.Directions[dir]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s direction: %d usable lanes", dir, ds.UsableLanes)
		if ds.LaneWidths.Defined {
			fmt.Fprintf(&b, ", median lane width %.2f m", ds.LaneWidths.Median)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Traffic flow\n\n")
	fl := result.Flow
	fmt.Fprintf(&b, "- Observation window: %.0f s\n", fl.DurationSec)
	for _, dir := range highd.Directions {
		df, ok := fl.Directions[dir]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s direction: %d vehicles", dir, df.VehicleCount)
		if df.Defined {
			fmt.Fprintf(&b, ", %.1f veh/h, avg speed %.1f %s",
				df.HourlyFlow, units.ConvertSpeed(df.AvgSpeedMPS, speedUnit), speedUnitLabel(speedUnit))
		}
		b.WriteString("\n")
	}
	if fl.CompositionDefined {
		for _, class := range compositionOrder(fl.Composition) {
			fmt.Fprintf(&b, "- %s share: %.1f%%\n", class, fl.Composition[class]*100)
		}
	}

	b.WriteString("\n## Annualized volume\n\n")
	vol := result.AADT
	for _, dir := range highd.Directions {
		dv, ok := vol.Directions[dir]
		if !ok || !dv.Defined {
			continue
		}
		fmt.Fprintf(&b, "- %s direction AADT: %.0f veh/day (%s)\n", dir, dv.AADT, volumeMethod(dv.Factored))
	}
	if vol.Combined != nil && vol.Combined.Defined {
		fmt.Fprintf(&b, "- Combined AADT: %.0f veh/day (%s)\n", vol.Combined.AADT, volumeMethod(vol.Combined.Factored))
	}

	b.WriteString("\n## Predicted crashes\n\n")
	pred := result.Prediction
	fmt.Fprintf(&b, "Area %s, %s mode, segment %.3f mi, calibration %.2f, k=%.3f.\n\n",
		pred.Area, pred.Mode, pred.LengthMiles, pred.Calibration, pred.K)
	b.WriteString("| Collision type | Base | Adjusted | FI | PDO |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, collision := range hsm.CollisionTypes {
		tp, ok := pred.Types[collision]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f | %.3f |\n",
			collision, tp.Base, tp.Adjusted, tp.FI, tp.PDO)
	}
	fmt.Fprintf(&b, "\nTotal predicted crashes per year: %.3f\n", pred.TotalAllSeverities)

	if result.EB != nil {
		b.WriteString("\n## Empirical-Bayes estimate\n\n")
		fmt.Fprintf(&b, "- Observed crashes per year: %.3f\n", result.EB.ObservedAnnualized)
		fmt.Fprintf(&b, "- Weight on prediction: %.3f\n", result.EB.Weight)
		fmt.Fprintf(&b, "- Expected crashes per year: %.3f\n", result.EB.Expected)
	}

	if len(result.Flags) > 0 {
		b.WriteString("\n## Fallbacks applied\n\n")
		for _, flag := range result.Flags {
			fmt.Fprintf(&b, "- `%s`\n", flag)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func speedUnitLabel(unit string) string {
	switch unit {
	case units.MPH:
		return "mph"
	case units.KMPH, units.KPH:
		return "km/h"
	}
	return "m/s"
}

func volumeMethod(factored bool) string {
	if factored {
		return "factored"
	}
	return "x24 fallback"
}

func compositionOrder(composition map[highd.VehicleClass]float64) []highd.VehicleClass {
	classes := make([]highd.VehicleClass, 0, len(composition))
	for class := range composition {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}
