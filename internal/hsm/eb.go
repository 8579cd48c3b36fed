package hsm

import "fmt"

// EBResult is the outcome of an empirical-Bayes combination of a model
// prediction with an observed crash history.
type EBResult struct {
	Weight             float64 `json:"weight"`
	ObservedAnnualized float64 `json:"observed_annualized"`
	Expected           float64 `json:"expected"`
}

// EBCombine layers an empirical-Bayes combination on top of a base
// prediction. It is a separate operation so that base predictions never
// depend on whether observed-crash data happens to be available: callers
// invoke it only when an observed count exists.
//
// The weight is w = 1 / (1 + k*N_predicted) and the expected count is
// w*N_predicted + (1-w)*N_observed/years.
func EBCombine(pred *Prediction, observed float64, years float64) (*EBResult, error) {
	if pred == nil {
		return nil, fmt.Errorf("nil prediction")
	}
	if observed < 0 {
		return nil, fmt.Errorf("observed crash count %v must not be negative", observed)
	}
	if years <= 0 {
		return nil, fmt.Errorf("observation period %v years must be positive", years)
	}

	predicted := pred.TotalAllSeverities
	w := 1.0 / (1.0 + pred.K*predicted)
	annualized := observed / years
	return &EBResult{
		Weight:             w,
		ObservedAnnualized: annualized,
		Expected:           w*predicted + (1-w)*annualized,
	}, nil
}
