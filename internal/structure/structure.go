// Package structure infers roadway geometry from a recording: usable lane
// counts, lane-width statistics, speed limit and effective segment length.
package structure

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/safety.report/internal/highd"
	"github.com/banshee-data/safety.report/internal/units"
)

// ErrDataInsufficient reports that too few samples were available to
// produce a stable estimate.
var ErrDataInsufficient = errors.New("insufficient trajectory data")

// Length estimation strategies, recorded on the estimate.
const (
	LengthFromClearances   = "clearance_median"
	LengthFromPositionSpan = "position_span"
)

// Fallback flags attached to estimates. These are informational: an
// estimate carrying a flag is still usable, but a coarser strategy was
// substituted for the preferred one.
const (
	FlagLaneCountFromLaneIDs = "lane_count_from_lane_ids"
	FlagLaneWidthsUndefined  = "lane_widths_undefined"
	FlagSpeedLimitUnknown    = "speed_limit_unknown"
	FlagLengthFromSpan       = "segment_length_from_position_span"
)

// DefaultMinClearanceSamples is the minimum number of samples with both
// clearances present before the clearance-based length estimator is used.
const DefaultMinClearanceSamples = 25

// WidthStats summarizes lane widths for one direction. Defined is false
// when fewer than two boundary offsets were available; the zero values are
// then meaningless and must not be read.
type WidthStats struct {
	Defined bool    `json:"defined"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean_m"`
	Std     float64 `json:"std_m"`
	Min     float64 `json:"min_m"`
	Q1      float64 `json:"q1_m"`
	Median  float64 `json:"median_m"`
	Q3      float64 `json:"q3_m"`
	Max     float64 `json:"max_m"`
}

// DirectionStructure holds the per-direction geometry estimate.
type DirectionStructure struct {
	UsableLanes  int        `json:"usable_lanes"`
	LaneWidths   WidthStats `json:"lane_widths"`
	LaneFallback bool       `json:"lane_fallback"`
}

// Estimate is the structure estimator output for one recording.
type Estimate struct {
	RecordingID       string                                      `json:"recording_id"`
	SpeedLimitKMH     float64                                     `json:"speed_limit_kmh"`
	SpeedLimitKnown   bool                                        `json:"speed_limit_known"`
	SegmentLengthM    float64                                     `json:"segment_length_m"`
	LengthStrategy    string                                      `json:"length_strategy"`
	OutliersDiscarded int                                         `json:"outliers_discarded"`
	Directions        map[highd.Direction]*DirectionStructure `json:"directions"`
	Flags             []string                                    `json:"flags"`
}

// Estimator derives structure estimates. The zero value uses defaults.
type Estimator struct {
	// MinClearanceSamples overrides DefaultMinClearanceSamples when > 0.
	MinClearanceSamples int
}

// Estimate infers the geometry of one recording. It fails with
// ErrDataInsufficient when the recording carries no samples at all; a
// missing speed limit does not prevent lane and length estimation.
func (e *Estimator) Estimate(rec *highd.Recording) (*Estimate, error) {
	if len(rec.Samples) == 0 {
		return nil, fmt.Errorf("recording %s: %w", rec.Meta.ID, ErrDataInsufficient)
	}

	est := &Estimate{
		RecordingID: rec.Meta.ID,
		Directions:  make(map[highd.Direction]*DirectionStructure, len(highd.Directions)),
	}

	if rec.Meta.SpeedLimitMPS > 0 {
		est.SpeedLimitKMH = units.MPSToKMH(rec.Meta.SpeedLimitMPS)
		est.SpeedLimitKnown = true
	} else {
		est.addFlag(FlagSpeedLimitUnknown)
	}

	for _, dir := range highd.Directions {
		ds := e.estimateDirection(rec, dir)
		est.Directions[dir] = ds
		if ds.LaneFallback {
			est.addFlag(FlagLaneCountFromLaneIDs)
		}
		if !ds.LaneWidths.Defined {
			est.addFlag(FlagLaneWidthsUndefined)
		}
	}

	e.estimateLength(rec, est)
	return est, nil
}

func (e *Estimator) estimateDirection(rec *highd.Recording, dir highd.Direction) *DirectionStructure {
	offsets := rec.Meta.LaneMarkings(dir)
	ds := &DirectionStructure{
		LaneWidths: widthStats(offsets),
	}

	// m boundary offsets delimit m-1 stripes; the outermost stripe bounded
	// by the last marking pair is the shoulder, leaving m-2 travel lanes.
	usable := len(offsets) - 2
	if usable > 0 {
		ds.UsableLanes = usable
		return ds
	}

	// Degenerate marking data: re-derive the count from the lane indices
	// vehicles actually used, excluding the two extreme indices as
	// boundary/non-travel lanes.
	ds.UsableLanes = usableLanesFromSamples(rec.Samples, dir)
	ds.LaneFallback = true
	return ds
}

func usableLanesFromSamples(samples []highd.TrajectorySample, dir highd.Direction) int {
	seen := make(map[int]struct{})
	for _, s := range samples {
		if s.Direction == dir {
			seen[s.LaneID] = struct{}{}
		}
	}
	interior := len(seen) - 2
	if interior < 0 {
		return 0
	}
	return interior
}

func widthStats(offsets []float64) WidthStats {
	if len(offsets) < 2 {
		return WidthStats{}
	}

	widths := make([]float64, 0, len(offsets)-1)
	for i := 1; i < len(offsets); i++ {
		widths = append(widths, math.Abs(offsets[i]-offsets[i-1]))
	}
	sort.Float64s(widths)

	// stat.StdDev uses sample variance, which is NaN for a single width;
	// a single-lane direction has zero spread.
	std := 0.0
	if len(widths) > 1 {
		std = stat.StdDev(widths, nil)
	}

	return WidthStats{
		Defined: true,
		Count:   len(widths),
		Mean:    stat.Mean(widths, nil),
		Std:     std,
		Min:     widths[0],
		Q1:      stat.Quantile(0.25, stat.LinInterp, widths, nil),
		Median:  stat.Quantile(0.5, stat.LinInterp, widths, nil),
		Q3:      stat.Quantile(0.75, stat.LinInterp, widths, nil),
		Max:     widths[len(widths)-1],
	}
}

// estimateLength fills SegmentLengthM using the clearance-based strategy
// when enough samples carry both clearances, and the robust longitudinal
// span otherwise.
func (e *Estimator) estimateLength(rec *highd.Recording, est *Estimate) {
	minSamples := e.MinClearanceSamples
	if minSamples <= 0 {
		minSamples = DefaultMinClearanceSamples
	}

	var spans []float64
	for _, s := range rec.Samples {
		if s.FrontGap.Valid && s.RearGap.Valid {
			spans = append(spans, s.FrontGap.Meters+s.RearGap.Meters+s.Length)
		}
	}

	if len(spans) >= minSamples {
		median, discarded := robustMedian(spans)
		est.SegmentLengthM = median
		est.LengthStrategy = LengthFromClearances
		est.OutliersDiscarded = discarded
		return
	}

	xs := make([]float64, 0, len(rec.Samples))
	for _, s := range rec.Samples {
		xs = append(xs, s.X)
	}
	sort.Float64s(xs)
	low := stat.Quantile(0.05, stat.LinInterp, xs, nil)
	high := stat.Quantile(0.95, stat.LinInterp, xs, nil)

	est.SegmentLengthM = math.Max(high-low, 0)
	est.LengthStrategy = LengthFromPositionSpan
	est.addFlag(FlagLengthFromSpan)
}

// robustMedian discards values beyond 1.5 IQR of the quartiles, then
// returns the median of the remainder and the discard count.
func robustMedian(values []float64) (float64, int) {
	sort.Float64s(values)
	q1 := stat.Quantile(0.25, stat.LinInterp, values, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, values, nil)
	iqr := q3 - q1
	low, high := q1-1.5*iqr, q3+1.5*iqr

	total := len(values)
	kept := values[:0]
	for _, v := range values {
		if v >= low && v <= high {
			kept = append(kept, v)
		}
	}
	discarded := total - len(kept)
	if len(kept) == 0 {
		// All values identical-distance outliers cannot happen with a
		// finite IQR fence, but guard the quantile call anyway.
		return 0, discarded
	}
	return stat.Quantile(0.5, stat.LinInterp, kept, nil), discarded
}

func (e *Estimate) addFlag(flag string) {
	for _, f := range e.Flags {
		if f == flag {
			return
		}
	}
	e.Flags = append(e.Flags, flag)
}
