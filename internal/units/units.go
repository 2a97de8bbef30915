// Package units provides shared constants, validation and conversions for
// speed units at the CSV boundary. Everything inside the simulator is m/s.
package units

import "fmt"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const (
	kmphPerMPS = 3.6 // 18/5
	mphPerMPS  = 2.2369362920544
)

// ValidUnits contains all valid unit values
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

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// Validate returns an error naming the accepted units when unit is unknown.
func Validate(unit string) error {
	if !IsValid(unit) {
		return fmt.Errorf("invalid speed unit %q, must be one of: %s", unit, GetValidUnitsString())
	}
	return nil
}

// ToMPS converts a speed recorded in unit into metres per second.
// Unknown units are treated as m/s.
func ToMPS(speed float64, unit string) float64 {
	switch unit {
	case KMPH, KPH:
		return speed / kmphPerMPS
	case MPH:
		return speed / mphPerMPS
	default:
		return speed
	}
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units are treated as m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case KMPH, KPH:
		return speedMPS * kmphPerMPS
	case MPH:
		return speedMPS * mphPerMPS
	default:
		return speedMPS
	}
}

// ColumnLabel is the CSV header for a speed column in unit.
func ColumnLabel(unit string) string {
	switch unit {
	case KMPH, KPH:
		return "Speed [km/h]"
	case MPH:
		return "Speed [mph]"
	default:
		return "Speed [m/s]"
	}
}
