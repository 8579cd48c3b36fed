// Package units provides shared constants and conversions between the SI
// units used by trajectory recordings (meters, seconds, m/s) and the units
// expected by reports and safety performance functions (km/h, mph, miles).
package units

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// MetersPerMile is the exact international mile in meters.
const MetersPerMile = 1609.344

// ValidUnits contains all valid speed unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Recordings store speeds in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// MetersToMiles converts a length in meters to statute miles.
func MetersToMiles(meters float64) float64 {
	return meters / MetersPerMile
}

// MilesToMeters converts a length in statute miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * MetersPerMile
}

// MPSToKMH converts meters per second to kilometers per hour.
func MPSToKMH(speedMPS float64) float64 {
	return speedMPS * 3.6
}
