package simulate

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyInput is returned when there is nothing to simulate.
	ErrEmptyInput = errors.New("no observations to simulate")

	// ErrMalformedInput is returned when an observation is unusable or the
	// time axis is not strictly increasing.
	ErrMalformedInput = errors.New("malformed observation input")

	// ErrNumericDegeneracy is returned when a stop correction would divide
	// by a zero acceleration.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)

// Observation is one recorded time step of a leader–follower pair. Speeds
// are in m/s, distances in metres, positions in the road-aligned frame.
type Observation struct {
	Time          float64
	LeaderID      int64
	FollowerID    int64
	FollowerType  string
	ObservedGap   float64
	FollowerSpeed float64
	LeaderSpeed   float64
	FollowerRotX  float64
	FollowerRotY  float64
}

func (o Observation) finite() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"time", o.Time},
		{"gap", o.ObservedGap},
		{"follower speed", o.FollowerSpeed},
		{"leader speed", o.LeaderSpeed},
		{"follower x", o.FollowerRotX},
		{"follower y", o.FollowerRotY},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is %v", f.name, f.v)
		}
	}
	return nil
}

// Validate checks rows before a run starts so that no partial result is
// ever produced.
func Validate(rows []Observation) error {
	if len(rows) == 0 {
		return ErrEmptyInput
	}
	for i, r := range rows {
		if err := r.finite(); err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrMalformedInput, i, err)
		}
		if i > 0 && !(r.Time > rows[i-1].Time) {
			return fmt.Errorf("%w: row %d: time %.6f does not follow %.6f",
				ErrMalformedInput, i, r.Time, rows[i-1].Time)
		}
	}
	return nil
}

// SelectFollower returns the rows recorded for followerID, in input order.
func SelectFollower(rows []Observation, followerID int64) []Observation {
	var out []Observation
	for _, r := range rows {
		if r.FollowerID == followerID {
			out = append(out, r)
		}
	}
	return out
}
