// Package pipeline chains the per-recording estimators: structure and flow
// estimation feed volume annualization and the safety prediction engine.
// Each recording's processing is a pure, synchronous computation over
// in-memory tables; batches fan recordings out to independent workers.
package pipeline

import (
	"fmt"

	"github.com/banshee-data/safety.report/internal/aadt"
	"github.com/banshee-data/safety.report/internal/flow"
	"github.com/banshee-data/safety.report/internal/highd"
	"github.com/banshee-data/safety.report/internal/hsm"
	"github.com/banshee-data/safety.report/internal/structure"
	"github.com/banshee-data/safety.report/internal/units"
)

// FlagDirectionOmitted marks a direction that recorded no vehicles and was
// therefore left out of the per-direction prediction sum.
const FlagDirectionOmitted = "direction_omitted_no_traffic"

// Config holds the per-batch processing options.
type Config struct {
	Area hsm.AreaType
	Flow flow.Config

	// MinClearanceSamples tunes the structure estimator's length strategy
	// threshold; zero keeps the default.
	MinClearanceSamples int

	// ObservedCrashes enables the optional empirical-Bayes combination
	// when non-nil. ObservedYears is the observation period in years.
	ObservedCrashes *float64
	ObservedYears   float64
}

// Result is the immutable output bundle for one successfully processed
// recording. Flags aggregates every fallback annotation from the stages,
// prefixed with the stage name.
type Result struct {
	RecordingID string              `json:"recording_id"`
	Structure   *structure.Estimate `json:"structure"`
	Flow        *flow.Estimate      `json:"flow"`
	AADT        *aadt.Estimate      `json:"aadt"`
	Prediction  *hsm.Prediction     `json:"prediction"`
	EB          *hsm.EBResult       `json:"eb,omitempty"`
	Flags       []string            `json:"flags,omitempty"`
}

// Processor holds the models shared across a batch: the prediction engine
// with its coefficient tables and the AADT factor table. Processors are
// safe for concurrent use; all shared state is read-only.
type Processor struct {
	Engine  *hsm.Engine
	Factors *aadt.FactorTable
	Config  Config
}

// Process runs the full chain for one recording. A failure in any stage
// abandons this recording; no partial result is returned.
func (p *Processor) Process(rec *highd.Recording) (*Result, error) {
	structEst := structure.Estimator{MinClearanceSamples: p.Config.MinClearanceSamples}
	st, err := structEst.Estimate(rec)
	if err != nil {
		return nil, fmt.Errorf("structure estimation: %w", err)
	}

	flowEst := flow.Estimator{Config: p.Config.Flow}
	fl := flowEst.Estimate(rec)

	annualizer := aadt.Annualizer{Factors: p.Factors}
	vol := annualizer.Annualize(fl, aadt.ContextFromTime(rec.Meta.Timestamp))

	pred, predFlags, err := p.predict(st, fl, vol)
	if err != nil {
		return nil, fmt.Errorf("crash prediction: %w", err)
	}

	result := &Result{
		RecordingID: rec.Meta.ID,
		Structure:   st,
		Flow:        fl,
		AADT:        vol,
		Prediction:  pred,
	}

	if p.Config.ObservedCrashes != nil {
		eb, err := hsm.EBCombine(pred, *p.Config.ObservedCrashes, p.Config.ObservedYears)
		if err != nil {
			return nil, fmt.Errorf("EB combination: %w", err)
		}
		result.EB = eb
	}

	result.Flags = collectFlags(st, fl, vol, pred)
	for _, f := range predFlags {
		result.Flags = append(result.Flags, "hsm:"+f)
	}
	return result, nil
}

func (p *Processor) predict(st *structure.Estimate, fl *flow.Estimate, vol *aadt.Estimate) (*hsm.Prediction, []string, error) {
	input := hsm.Input{
		Area:        p.Config.Area,
		LengthMiles: units.MetersToMiles(st.SegmentLengthM),
		Directions:  make(map[highd.Direction]hsm.DirectionGeometry, len(highd.Directions)),
	}

	var flags []string
	var totalLanes int
	for _, dir := range highd.Directions {
		ds, ok := st.Directions[dir]
		if !ok {
			continue
		}
		totalLanes += ds.UsableLanes

		// A direction nobody drove in contributes zero crashes, not an
		// invalid zero AADT. It drops out of the per-direction sum but its
		// lanes still exist for the combined geometry.
		if df, ok := fl.Directions[dir]; ok && df.VehicleCount == 0 {
			flags = appendFlag(flags, FlagDirectionOmitted)
			continue
		}
		if dv, ok := vol.Directions[dir]; ok && dv.Defined {
			input.Directions[dir] = hsm.DirectionGeometry{Lanes: ds.UsableLanes, AADT: dv.AADT}
		}
	}
	if vol.Combined != nil && vol.Combined.Defined {
		input.Combined = hsm.DirectionGeometry{Lanes: totalLanes, AADT: vol.Combined.AADT}
	}

	pred, err := p.Engine.Predict(input)
	if err != nil {
		return nil, nil, err
	}
	return pred, flags, nil
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}

func collectFlags(st *structure.Estimate, fl *flow.Estimate, vol *aadt.Estimate, pred *hsm.Prediction) []string {
	var flags []string
	for _, f := range st.Flags {
		flags = append(flags, "structure:"+f)
	}
	for _, f := range fl.Flags {
		flags = append(flags, "flow:"+f)
	}
	for _, f := range vol.Flags {
		flags = append(flags, "aadt:"+f)
	}
	for _, f := range pred.Flags {
		flags = append(flags, "hsm:"+f)
	}
	return flags
}
