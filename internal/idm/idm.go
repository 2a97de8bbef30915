// Package idm implements the Intelligent Driver Model acceleration law used
// to advance a simulated follower.
//
// All quantities are SI: metres, metres per second and metres per second
// squared. The model is pure; a Model value is safe to share between
// goroutines.
package idm

import (
	"fmt"
	"math"
)

const (
	// SpeedLimit caps the effective desired speed. It is large enough to
	// never bind on recorded urban data.
	SpeedLimit = 1000.0

	// BMax is the hard deceleration bound (m/s²).
	BMax = 9.0

	// minDesiredSpeed keeps the free-flow ratio finite.
	minDesiredSpeed = 0.01
)

// Params are the five behavioural parameters of the model.
type Params struct {
	V0 float64 `json:"v0"` // desired speed
	T  float64 `json:"t"`  // desired time headway
	S0 float64 `json:"s0"` // minimum gap
	A  float64 `json:"a"`  // maximum acceleration
	B  float64 `json:"b"`  // comfortable deceleration
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{V0: 50, T: 1, S0: 0.4, A: 2, B: 4}
}

// Validate rejects parameter sets the model cannot evaluate.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"v0", p.V0}, {"t", p.T}, {"s0", p.S0}, {"a", p.A}, {"b", p.B},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be finite, got %v", f.name, f.v)
		}
	}
	if p.A <= 0 {
		return fmt.Errorf("a must be positive, got %f", p.A)
	}
	if p.B <= 0 {
		return fmt.Errorf("b must be positive, got %f", p.B)
	}
	if p.T < 0 {
		return fmt.Errorf("t must be non-negative, got %f", p.T)
	}
	if p.S0 <= 0 {
		return fmt.Errorf("s0 must be positive, got %f", p.S0)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("v0=%g T=%g s0=%g a=%g b=%g", p.V0, p.T, p.S0, p.A, p.B)
}

// Model evaluates accelerations for a fixed parameter set.
type Model struct {
	params Params
	v0eff  float64
	sqrtAB float64
}

// New returns a Model for p. Call p.Validate first when p comes from user
// input.
func New(p Params) *Model {
	return &Model{
		params: p,
		v0eff:  math.Max(minDesiredSpeed, math.Min(p.V0, SpeedLimit)),
		sqrtAB: math.Sqrt(p.A * p.B),
	}
}

// Params returns the parameters the model was built with.
func (m *Model) Params() Params {
	return m.params
}

// FreeAcceleration is the acceleration on an empty road at speed v.
// Below the desired speed it decays quartically, above it the penalty is
// linear.
func (m *Model) FreeAcceleration(v float64) float64 {
	if v < m.v0eff {
		return m.params.A * (1 - math.Pow(v/m.v0eff, 4))
	}
	return m.params.A * (1 - v/m.v0eff)
}

// DesiredGap is s* for a follower at speed v behind a leader at vl.
func (m *Model) DesiredGap(v, vl float64) float64 {
	return m.params.S0 + math.Max(0, v*m.params.T+0.5*v*(v-vl)/m.sqrtAB)
}

// InteractionAcceleration is the braking term from proximity to the leader.
// The gap is floored at a tenth of s0 so the ratio stays bounded.
func (m *Model) InteractionAcceleration(s, v, vl float64) float64 {
	ratio := m.DesiredGap(v, vl) / math.Max(s, 0.1*m.params.S0)
	return -m.params.A * ratio * ratio
}

// Acceleration is the longitudinal acceleration for gap s, speed v and
// leader speed vl, bounded below by -BMax.
func (m *Model) Acceleration(s, v, vl float64) float64 {
	return math.Max(-BMax, m.FreeAcceleration(v)+m.InteractionAcceleration(s, v, vl))
}
