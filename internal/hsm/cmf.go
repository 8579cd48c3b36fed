package hsm

import "fmt"

// WellKnownCMFs are the crash modification factors the engine understands.
// Any of these absent from the configured set defaults to 1.0 and is
// reported as defaulted.
var WellKnownCMFs = []string{
	"lane_width",
	"inside_shoulder_width",
	"outside_shoulder_width",
	"median_width",
}

// CMF is a named multiplicative adjustment to an SPF prediction. An empty
// Collisions list applies the factor to every collision type.
type CMF struct {
	Name       string          `json:"name"`
	Value      float64         `json:"value"`
	Collisions []CollisionType `json:"collisions,omitempty"`
}

func (c CMF) appliesTo(collision CollisionType) bool {
	if len(c.Collisions) == 0 {
		return true
	}
	for _, ct := range c.Collisions {
		if ct == collision {
			return true
		}
	}
	return false
}

// CMFSet is the configured bundle of crash modification factors.
type CMFSet []CMF

// Validate rejects non-positive factors and unknown names.
func (s CMFSet) Validate() error {
	for _, c := range s {
		if c.Value <= 0 {
			return fmt.Errorf("CMF %q must be positive, got %v", c.Name, c.Value)
		}
		known := false
		for _, name := range WellKnownCMFs {
			if c.Name == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown CMF %q", c.Name)
		}
	}
	return nil
}

// AppliedCMF records a factor that actually adjusted a prediction.
type AppliedCMF struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// productFor returns the combined multiplier for a collision type together
// with the non-1.0 factors that contributed to it.
func (s CMFSet) productFor(collision CollisionType) (float64, []AppliedCMF) {
	product := 1.0
	var applied []AppliedCMF
	for _, c := range s {
		if !c.appliesTo(collision) {
			continue
		}
		product *= c.Value
		if c.Value != 1.0 {
			applied = append(applied, AppliedCMF{Name: c.Name, Value: c.Value})
		}
	}
	return product, applied
}

// defaulted lists the well-known factors absent from the set, which
// therefore contributed 1.0.
func (s CMFSet) defaulted() []string {
	var missing []string
	for _, name := range WellKnownCMFs {
		found := false
		for _, c := range s {
			if c.Name == name {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return missing
}
