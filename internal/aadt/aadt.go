// Package aadt converts observed hourly flows into Average Annual Daily
// Traffic estimates, using day-of-week / month-of-year expansion factors
// and hour-of-day shares when available, and a fixed x24 multiplier
// otherwise.
package aadt

import (
	"strconv"
	"time"

	"github.com/banshee-data/safety.report/internal/flow"
	"github.com/banshee-data/safety.report/internal/highd"
)

// Fallback flags attached to estimates.
const (
	// FlagFallbackMultiplier marks a direction annualized with the fixed
	// x24 multiplier instead of the factor table.
	FlagFallbackMultiplier = "aadt_fallback_x24"

	// FlagHourShareSubstituted marks a direction where the factor table
	// was present but the hour-of-day share was zero or missing, which
	// would otherwise divide by zero.
	FlagHourShareSubstituted = "aadt_hour_share_missing"
)

// Context is the calendar context used for factor lookup. Known is false
// when the recording carries no timestamp, which forces fallback mode.
type Context struct {
	Hour    int    `json:"hour"`
	Weekday string `json:"weekday"` // "Mon".."Sun"
	Month   int    `json:"month"`   // 1..12
	Known   bool   `json:"known"`
}

// ContextFromTime derives the lookup context from a recording timestamp.
func ContextFromTime(ts time.Time) Context {
	if ts.IsZero() {
		return Context{}
	}
	return Context{
		Hour:    ts.Hour(),
		Weekday: ts.Weekday().String()[:3],
		Month:   int(ts.Month()),
		Known:   true,
	}
}

// DirectionVolume is the annualized volume for one direction (or for the
// combined flow).
type DirectionVolume struct {
	HourlyFlow    float64 `json:"hourly_flow_veh_per_h"`
	AADT          float64 `json:"aadt"`
	Defined       bool    `json:"defined"`
	Factored      bool    `json:"factored"`
	WeekdayFactor float64 `json:"weekday_factor,omitempty"`
	MonthFactor   float64 `json:"month_factor,omitempty"`
	HourShare     float64 `json:"hour_share,omitempty"`
}

// Estimate is the annualizer output for one recording.
type Estimate struct {
	RecordingID string                                `json:"recording_id"`
	Context     Context                               `json:"context"`
	Directions  map[highd.Direction]*DirectionVolume  `json:"directions"`
	Combined    *DirectionVolume                      `json:"combined"`
	Flags       []string                              `json:"flags"`
}

// Annualizer converts hourly flows into AADT. A nil Factors table always
// uses fallback mode.
type Annualizer struct {
	Factors *FactorTable
}

// Annualize produces the AADT estimate for a flow estimate and calendar
// context. Each direction and the combined flow are annualized
// independently with the same context.
func (a *Annualizer) Annualize(flowEst *flow.Estimate, ctx Context) *Estimate {
	est := &Estimate{
		RecordingID: flowEst.RecordingID,
		Context:     ctx,
		Directions:  make(map[highd.Direction]*DirectionVolume, len(flowEst.Directions)),
	}

	for dir, df := range flowEst.Directions {
		dv := a.annualizeOne(df.HourlyFlow, df.Defined, ctx, est)
		est.Directions[dir] = dv
	}
	est.Combined = a.annualizeOne(flowEst.CombinedHourlyFlow, flowEst.Defined, ctx, est)
	return est
}

// annualizeOne applies factor mode when the table covers the context and
// the hour share is strictly positive; otherwise the x24 fallback.
func (a *Annualizer) annualizeOne(hourly float64, defined bool, ctx Context, est *Estimate) *DirectionVolume {
	dv := &DirectionVolume{HourlyFlow: hourly, Defined: defined}
	if !defined {
		return dv
	}

	if a.Factors != nil && ctx.Known {
		weekday, okW := a.Factors.WeekdayFactor(ctx.Weekday)
		month, okM := a.Factors.MonthFactor(ctx.Month)
		share, okH := a.Factors.HourShare(ctx.Hour)

		if okW && okM && okH && share > 0 {
			dv.AADT = hourly * weekday * month * 24 / share
			dv.Factored = true
			dv.WeekdayFactor = weekday
			dv.MonthFactor = month
			dv.HourShare = share
			return dv
		}
		if !okH || share <= 0 {
			est.addFlag(FlagHourShareSubstituted)
		}
	}

	dv.AADT = hourly * 24
	est.addFlag(FlagFallbackMultiplier)
	return dv
}

func (e *Estimate) addFlag(flag string) {
	for _, f := range e.Flags {
		if f == flag {
			return
		}
	}
	e.Flags = append(e.Flags, flag)
}

// FactorTable holds AADT expansion factors. Keys follow the source JSON:
// weekday abbreviations for F_DOW, month numbers ("1".."12") for F_MOY and
// hour numbers ("0".."23") for HOD_share.
type FactorTable struct {
	Weekday map[string]float64 `json:"F_DOW"`
	Month   map[string]float64 `json:"F_MOY"`
	Hours   map[string]float64 `json:"HOD_share"`
}

// WeekdayFactor looks up the day-of-week expansion factor.
func (t *FactorTable) WeekdayFactor(weekday string) (float64, bool) {
	v, ok := t.Weekday[weekday]
	return v, ok
}

// MonthFactor looks up the month-of-year expansion factor.
func (t *FactorTable) MonthFactor(month int) (float64, bool) {
	v, ok := t.Month[strconv.Itoa(month)]
	return v, ok
}

// HourShare looks up the hour-of-day share of daily traffic.
func (t *FactorTable) HourShare(hour int) (float64, bool) {
	v, ok := t.Hours[strconv.Itoa(hour)]
	return v, ok
}
