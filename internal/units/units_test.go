package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"10 m/s to mph", 10.0, MPH, 22.3694},
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown units default to mps", 10.0, "unknown", 10.0},
		{"0 m/s to kmph", 0.0, KMPH, 0.0},
		{"city speed 13.89 m/s to kmph", 13.89, KMPH, 50.004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.units)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.units, result, tt.expected)
			}
		})
	}
}

func TestToMPS(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		unit     string
		expected float64
	}{
		{"36 km/h", 36, KMPH, 10},
		{"18 kph", 18, KPH, 5},
		{"mps unchanged", 7.25, MPS, 7.25},
		{"22.3694 mph", 22.3694, MPH, 10},
		{"unknown unit unchanged", 3, "furlongs", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToMPS(tt.speed, tt.unit)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ToMPS(%f, %s) = %f, want %f", tt.speed, tt.unit, result, tt.expected)
			}
		})
	}
}

// Ingestion and output must use inverse factors so a value survives a pass
// through the simulator boundary unchanged.
func TestBoundaryRoundTrip(t *testing.T) {
	for _, unit := range ValidUnits {
		for _, v := range []float64{0, 0.5, 13.89, 47.3, 120} {
			got := ConvertSpeed(ToMPS(v, unit), unit)
			if math.Abs(got-v) > 1e-9 {
				t.Errorf("%s: %f -> %f", unit, v, got)
			}
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mps", MPS, true},
		{"valid mph", MPH, true},
		{"valid kmph", KMPH, true},
		{"valid kph", KPH, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "KMPH", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsValid(tt.unit); result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
			if err := Validate(tt.unit); (err == nil) != tt.expected {
				t.Errorf("Validate(%s) = %v", tt.unit, err)
			}
		})
	}
}

func TestColumnLabel(t *testing.T) {
	tests := map[string]string{
		KMPH: "Speed [km/h]",
		KPH:  "Speed [km/h]",
		MPH:  "Speed [mph]",
		MPS:  "Speed [m/s]",
	}
	for unit, want := range tests {
		if got := ColumnLabel(unit); got != want {
			t.Errorf("ColumnLabel(%s) = %q, want %q", unit, got, want)
		}
	}
}
