// Package flow computes traffic flow metrics from a recording: directional
// throughput, vehicle-class composition and a binned count time series.
package flow

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/safety.report/internal/highd"
)

// DefaultBinWidthSec is the time-series bin width when none is configured.
const DefaultBinWidthSec = 60.0

// FlagZeroDuration marks a recording whose duration was not positive, which
// leaves throughput undefined.
const FlagZeroDuration = "throughput_undefined_zero_duration"

// Config controls the flow estimator. The zero value uses first-seen
// counting with one-minute bins.
type Config struct {
	// BinWidthSec is the time-series bin width in seconds.
	BinWidthSec float64

	// ReferenceX switches the time series from first-seen counting to
	// reference-line counting: a vehicle is counted in the bin during
	// which it crosses this longitudinal position.
	ReferenceX *float64
}

func (c Config) binWidth() float64 {
	if c.BinWidthSec > 0 {
		return c.BinWidthSec
	}
	return DefaultBinWidthSec
}

// DirectionFlow is the per-direction throughput estimate.
type DirectionFlow struct {
	VehicleCount int     `json:"vehicle_count"`
	HourlyFlow   float64 `json:"hourly_flow_veh_per_h"`
	Defined      bool    `json:"defined"`
	AvgSpeedMPS  float64 `json:"avg_speed_m_s"`
}

// Estimate is the flow estimator output for one recording.
type Estimate struct {
	RecordingID        string                               `json:"recording_id"`
	DurationSec        float64                              `json:"duration_sec"`
	Directions         map[highd.Direction]*DirectionFlow   `json:"directions"`
	CombinedHourlyFlow float64                              `json:"combined_hourly_flow_veh_per_h"`
	Defined            bool                                 `json:"defined"`
	Composition        map[highd.VehicleClass]float64       `json:"composition,omitempty"`
	CompositionDefined bool                                 `json:"composition_defined"`
	Series             *Series                              `json:"series"`
	Flags              []string                             `json:"flags"`
}

// Estimator derives flow estimates.
type Estimator struct {
	Config Config
}

// Estimate computes flow metrics for one recording. A zero-duration
// recording yields an estimate whose throughput is explicitly undefined
// rather than zero.
func (e *Estimator) Estimate(rec *highd.Recording) *Estimate {
	duration := rec.Meta.Duration
	est := &Estimate{
		RecordingID: rec.Meta.ID,
		DurationSec: duration,
		Directions:  make(map[highd.Direction]*DirectionFlow, len(highd.Directions)),
		Defined:     duration > 0,
	}
	if duration <= 0 {
		est.Flags = append(est.Flags, FlagZeroDuration)
	}

	type vehicle struct {
		direction highd.Direction
		class     highd.VehicleClass
	}
	vehicles := make(map[int]vehicle)
	speeds := make(map[highd.Direction][]float64)
	for _, s := range rec.Samples {
		vehicles[s.VehicleID] = vehicle{direction: s.Direction, class: s.Class}
		speeds[s.Direction] = append(speeds[s.Direction], math.Abs(s.Speed))
	}

	classCounts := make(map[highd.VehicleClass]int)
	dirCounts := make(map[highd.Direction]int)
	for _, v := range vehicles {
		dirCounts[v.direction]++
		classCounts[v.class]++
	}

	for _, dir := range highd.Directions {
		df := &DirectionFlow{VehicleCount: dirCounts[dir], Defined: duration > 0}
		if df.Defined {
			df.HourlyFlow = float64(df.VehicleCount) / duration * 3600
			est.CombinedHourlyFlow += df.HourlyFlow
		}
		if xs := speeds[dir]; len(xs) > 0 {
			df.AvgSpeedMPS = stat.Mean(xs, nil)
		}
		est.Directions[dir] = df
	}

	if total := len(vehicles); total > 0 {
		est.Composition = make(map[highd.VehicleClass]float64, len(classCounts))
		for class, n := range classCounts {
			share := float64(n) / float64(total)
			est.Composition[class] = math.Min(math.Max(share, 0), 1)
		}
		est.CompositionDefined = true
	}

	est.Series = e.buildSeries(rec)
	return est
}

// buildSeries assigns each distinct vehicle to a bin: by default the bin of
// its first-observed timestamp, or the bin during which it crossed the
// configured reference position.
func (e *Estimator) buildSeries(rec *highd.Recording) *Series {
	width := e.Config.binWidth()
	series := NewSeries(width, rec.Meta.Duration)
	if rec.Meta.Duration <= 0 || rec.Meta.FrameRate <= 0 {
		return series
	}

	countAt := make(map[int]float64)
	if e.Config.ReferenceX != nil {
		ref := *e.Config.ReferenceX
		firstSide := make(map[int]bool)
		counted := make(map[int]bool)
		for _, s := range rec.Samples {
			side := s.X >= ref
			prev, seen := firstSide[s.VehicleID]
			if !seen {
				firstSide[s.VehicleID] = side
				continue
			}
			if side != prev && !counted[s.VehicleID] {
				counted[s.VehicleID] = true
				countAt[s.VehicleID] = float64(s.Frame) / rec.Meta.FrameRate
			}
		}
	} else {
		firstFrame := make(map[int]int)
		for _, s := range rec.Samples {
			if f, ok := firstFrame[s.VehicleID]; !ok || s.Frame < f {
				firstFrame[s.VehicleID] = s.Frame
			}
		}
		for id, frame := range firstFrame {
			countAt[id] = float64(frame) / rec.Meta.FrameRate
		}
	}

	for _, at := range countAt {
		series.add(at)
	}
	return series
}
