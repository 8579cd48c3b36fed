package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/safety.report/internal/aadt"
	"github.com/banshee-data/safety.report/internal/flow"
	"github.com/banshee-data/safety.report/internal/highd"
	"github.com/banshee-data/safety.report/internal/hsm"
	"github.com/banshee-data/safety.report/internal/pipeline"
	"github.com/banshee-data/safety.report/internal/structure"
	"github.com/banshee-data/safety.report/internal/units"
)

func testResult() *pipeline.Result {
	flowEst := (&flow.Estimator{Config: flow.Config{BinWidthSec: 120}}).Estimate(&highd.Recording{
		Meta: highd.RecordingMetadata{ID: "07", Duration: 600, FrameRate: 25},
		Samples: []highd.TrajectorySample{
			{VehicleID: 1, Frame: 100, Direction: highd.DirectionLower, Class: highd.ClassCar, Speed: 30},
			{VehicleID: 2, Frame: 8000, Direction: highd.DirectionUpper, Class: highd.ClassTruck, Speed: -25},
		},
	})

	return &pipeline.Result{
		RecordingID: "07",
		Structure: &structure.Estimate{
			RecordingID:     "07",
			SpeedLimitKMH:   120,
			SpeedLimitKnown: true,
			SegmentLengthM:  420,
			LengthStrategy:  structure.LengthFromClearances,
			Directions: map[highd.Direction]*structure.DirectionStructure{
				highd.DirectionLower: {UsableLanes: 2, LaneWidths: structure.WidthStats{Defined: true, Median: 3.6}},
				highd.DirectionUpper: {UsableLanes: 2, LaneWidths: structure.WidthStats{Defined: true, Median: 3.6}},
			},
		},
		Flow: flowEst,
		AADT: &aadt.Estimate{
			RecordingID: "07",
			Directions: map[highd.Direction]*aadt.DirectionVolume{
				highd.DirectionLower: {AADT: 18000, Defined: true},
				highd.DirectionUpper: {AADT: 19500, Defined: true, Factored: true},
			},
			Combined: &aadt.DirectionVolume{AADT: 37500, Defined: true},
		},
		Prediction: &hsm.Prediction{
			Area:        hsm.Urban,
			Mode:        hsm.SumDirections,
			LengthMiles: 0.261,
			Calibration: 1.0,
			K:           0.783,
			Types: map[hsm.CollisionType]*hsm.TypePrediction{
				hsm.SingleVehicle: {Base: 7.0, Adjusted: 7.4, FI: 2.4, PDO: 5.0},
				hsm.MultiVehicle:  {Base: 22.0, Adjusted: 23.1, FI: 6.5, PDO: 16.6},
			},
			TotalAllSeverities: 30.5,
		},
		Flags: []string{"aadt:aadt_fallback_x24"},
	}
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, testResult(), units.KPH))
	out := buf.String()

	assert.Contains(t, out, "# Recording 07")
	assert.Contains(t, out, "Segment length: 420.0 m")
	assert.Contains(t, out, "120 km/h")
	assert.Contains(t, out, "lower direction: 2 usable lanes")
	// The 30 m/s lower-direction average converted to the requested unit.
	assert.Contains(t, out, "avg speed 108.0 km/h")
	assert.Contains(t, out, "Combined AADT: 37500 veh/day")
	assert.Contains(t, out, "upper direction AADT: 19500 veh/day (factored)")
	assert.Contains(t, out, "| mv | 22.000 | 23.100 | 6.500 | 16.600 |")
	assert.Contains(t, out, "Total predicted crashes per year: 30.500")
	assert.Contains(t, out, "`aadt:aadt_fallback_x24`")
	assert.NotContains(t, out, "Empirical-Bayes")
}

func TestWriteMarkdownWithEB(t *testing.T) {
	t.Parallel()

	result := testResult()
	result.EB = &hsm.EBResult{Weight: 0.04, ObservedAnnualized: 6, Expected: 6.98}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, result, units.KPH))
	assert.Contains(t, buf.String(), "Expected crashes per year: 6.980")
}

func TestWriteMarkdownSpeedUnits(t *testing.T) {
	t.Parallel()

	t.Run("mph", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteMarkdown(&buf, testResult(), units.MPH))
		assert.Contains(t, buf.String(), "avg speed 67.1 mph")
	})

	t.Run("mps", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteMarkdown(&buf, testResult(), units.MPS))
		assert.Contains(t, buf.String(), "avg speed 30.0 m/s")
	})
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, testResult()))
	out := buf.String()

	assert.Contains(t, out, "<html>")
	assert.Contains(t, out, "Traffic flow")
	assert.Contains(t, out, "Predicted crashes per year")
}

func TestSaveFlowPlot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flow.png")
	require.NoError(t, SaveFlowPlot(path, testResult()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
