package hsm

import (
	"fmt"
	"math"

	"github.com/banshee-data/safety.report/internal/highd"
)

// DirectionMode pins down how directional geometry feeds the SPFs. The
// two interpretations produce different numbers, so the choice is an
// explicit configuration flag rather than an inference.
type DirectionMode string

const (
	// SumDirections evaluates each direction against its own lane count
	// and AADT, then sums the predictions.
	SumDirections DirectionMode = "sum_directions"

	// CombinedFlow evaluates a single SPF against the combined AADT and
	// the total lane count across both directions.
	CombinedFlow DirectionMode = "combined_flow"
)

// Flags attached to predictions.
const (
	FlagSeverityDefaulted = "severity_defaulted_all_pdo"
	FlagCMFDefaulted      = "cmf_defaulted"
)

// Overdispersion parameterizes k(L) = Alpha * L^Beta. k weights the
// optional empirical-Bayes combination and never adjusts the point
// prediction itself.
type Overdispersion struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// DefaultOverdispersion holds the published freeway-segment values.
var DefaultOverdispersion = Overdispersion{Alpha: 0.4, Beta: -0.5}

// K evaluates the overdispersion parameter for a segment length in miles.
// Lengths are floored at one thousandth of a mile to keep k finite.
func (o Overdispersion) K(lengthMiles float64) float64 {
	return o.Alpha * math.Pow(math.Max(lengthMiles, 1e-3), o.Beta)
}

// DirectionGeometry is the per-direction input to the prediction engine.
type DirectionGeometry struct {
	Lanes int
	AADT  float64
}

// Input carries everything the engine needs for one segment. Directions
// feeds SumDirections mode; Combined feeds CombinedFlow mode. Only the
// fields for the configured mode are validated and read.
type Input struct {
	Area        AreaType
	LengthMiles float64
	Directions  map[highd.Direction]DirectionGeometry
	Combined    DirectionGeometry
}

// TypePrediction is the per-collision-type prediction breakdown.
type TypePrediction struct {
	Base        float64      `json:"base"`     // SPF output before adjustment
	Adjusted    float64      `json:"adjusted"` // after CMFs and calibration
	FI          float64      `json:"fi"`
	PDO         float64      `json:"pdo"`
	AppliedCMFs []AppliedCMF `json:"applied_cmfs,omitempty"`
}

// Prediction is the engine output: predicted annual crash counts by
// collision type and severity, with the parameters that produced them.
type Prediction struct {
	Area               AreaType                          `json:"area"`
	Mode               DirectionMode                     `json:"mode"`
	LengthMiles        float64                           `json:"length_miles"`
	Calibration        float64                           `json:"calibration"`
	K                  float64                           `json:"k_overdispersion"`
	Types              map[CollisionType]*TypePrediction `json:"types"`
	TotalAllSeverities float64                           `json:"total_all_sev"`
	DefaultedCMFs      []string                          `json:"defaulted_cmfs,omitempty"`
	Flags              []string                          `json:"flags,omitempty"`
}

// Engine evaluates freeway-segment safety performance functions. Tables
// are loaded once per batch and shared by reference across recordings.
type Engine struct {
	Coefficients   *CoefficientTable
	Severity       *SeverityTable
	CMFs           CMFSet
	Calibration    float64 // defaults to 1.0 when <= 0
	Overdispersion Overdispersion
	Mode           DirectionMode
}

// NewEngine builds an engine with defaults applied: calibration 1.0,
// published overdispersion coefficients and SumDirections mode.
func NewEngine(coefficients *CoefficientTable, severity *SeverityTable) *Engine {
	return &Engine{
		Coefficients:   coefficients,
		Severity:       severity,
		Calibration:    1.0,
		Overdispersion: DefaultOverdispersion,
		Mode:           SumDirections,
	}
}

func (e *Engine) calibration() float64 {
	if e.Calibration > 0 {
		return e.Calibration
	}
	return 1.0
}

// Predict evaluates the SPFs for the input and returns the structured
// prediction. All failures are fatal for this segment only: no partial
// prediction is returned.
func (e *Engine) Predict(input Input) (*Prediction, error) {
	if input.LengthMiles <= 0 {
		return nil, fmt.Errorf("segment length %v miles: %w", input.LengthMiles, ErrInvalidGeometry)
	}

	pred := &Prediction{
		Area:        input.Area,
		Mode:        e.mode(),
		LengthMiles: input.LengthMiles,
		Calibration: e.calibration(),
		K:           e.Overdispersion.K(input.LengthMiles),
		Types:       make(map[CollisionType]*TypePrediction, len(CollisionTypes)),
	}

	var geometries []DirectionGeometry
	switch pred.Mode {
	case CombinedFlow:
		geometries = []DirectionGeometry{input.Combined}
	default:
		for _, dir := range highd.Directions {
			if g, ok := input.Directions[dir]; ok {
				geometries = append(geometries, g)
			}
		}
	}
	if len(geometries) == 0 {
		return nil, fmt.Errorf("no directional geometry supplied: %w", ErrInvalidGeometry)
	}
	for _, g := range geometries {
		if g.Lanes <= 0 {
			return nil, fmt.Errorf("lane count %d: %w", g.Lanes, ErrInvalidGeometry)
		}
		if g.AADT <= 0 {
			return nil, fmt.Errorf("AADT %v: %w", g.AADT, ErrInvalidVolume)
		}
	}

	for _, collision := range CollisionTypes {
		tp := &TypePrediction{}
		cmf, applied := e.CMFs.productFor(collision)
		tp.AppliedCMFs = applied

		split, found := e.Severity.Lookup(input.Area, collision)
		if !found {
			pred.addFlag(FlagSeverityDefaulted)
		}

		for _, g := range geometries {
			coeff, err := e.Coefficients.Lookup(input.Area, g.Lanes, collision)
			if err != nil {
				return nil, err
			}
			tp.Base += coeff.Evaluate(g.AADT, input.LengthMiles, g.Lanes)
		}

		tp.Adjusted = tp.Base * cmf * pred.Calibration
		tp.FI = tp.Adjusted * split.FI
		tp.PDO = tp.Adjusted * split.PDO
		pred.Types[collision] = tp
		pred.TotalAllSeverities += tp.Adjusted
	}

	if defaulted := e.CMFs.defaulted(); len(defaulted) > 0 {
		pred.DefaultedCMFs = defaulted
		pred.addFlag(FlagCMFDefaulted)
	}

	return pred, nil
}

func (e *Engine) mode() DirectionMode {
	if e.Mode == CombinedFlow {
		return CombinedFlow
	}
	return SumDirections
}

func (p *Prediction) addFlag(flag string) {
	for _, f := range p.Flags {
		if f == flag {
			return
		}
	}
	p.Flags = append(p.Flags, flag)
}
