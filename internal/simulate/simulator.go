package simulate

import (
	"fmt"
	"math"

	"github.com/banshee-data/follow.report/internal/idm"
	"github.com/banshee-data/follow.report/internal/monitoring"
)

const (
	// DefaultDT is one video frame of the recording (s).
	DefaultDT = 0.033367

	// DefaultGapMin floors observed gaps used to seed the state (m).
	DefaultGapMin = 0.4

	// stopThreshold is the speed below which a step counts as reversing.
	stopThreshold = -1e-6
)

// Config holds the integration settings that are not model parameters.
type Config struct {
	DT     float64
	GapMin float64
}

// DefaultConfig returns the settings of the recorded data set.
func DefaultConfig() Config {
	return Config{DT: DefaultDT, GapMin: DefaultGapMin}
}

// State is the simulated follower at one step.
type State struct {
	Speed        float64
	Gap          float64
	Acceleration float64
}

// Result holds the per-step series of one run. All slices have the length
// of the input.
type Result struct {
	Params idm.Params

	Time         []float64
	FollowerID   []int64
	Speed        []float64
	Gap          []float64
	Acceleration []float64
	PositionX    []float64
	PositionY    []float64

	// ObservedGap is the raw, unfloored gap used as ground truth.
	ObservedGap []float64
	Transitions []Transition

	Stops          int
	LeaderResets   int
	FollowerResets int
}

// Len is the number of simulated steps.
func (r *Result) Len() int {
	return len(r.Speed)
}

func newResult(p idm.Params, n int) *Result {
	return &Result{
		Params:       p,
		Time:         make([]float64, n),
		FollowerID:   make([]int64, n),
		Speed:        make([]float64, n),
		Gap:          make([]float64, n),
		Acceleration: make([]float64, n),
		PositionX:    make([]float64, n),
		PositionY:    make([]float64, n),
		ObservedGap:  make([]float64, n),
		Transitions:  make([]Transition, n),
	}
}

// Simulator runs the IDM over observation rows.
type Simulator struct {
	model *idm.Model
	cfg   Config
}

// New validates p and cfg and returns a Simulator.
func New(p idm.Params, cfg Config) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model parameters: %w", err)
	}
	if !(cfg.DT > 0) || math.IsInf(cfg.DT, 0) {
		return nil, fmt.Errorf("dt must be positive, got %v", cfg.DT)
	}
	if cfg.GapMin < 0 || math.IsNaN(cfg.GapMin) || math.IsInf(cfg.GapMin, 0) {
		return nil, fmt.Errorf("gap_min must be non-negative, got %v", cfg.GapMin)
	}
	return &Simulator{model: idm.New(p), cfg: cfg}, nil
}

// Model exposes the acceleration law used by the simulator.
func (s *Simulator) Model() *idm.Model {
	return s.model
}

// Config returns the integration settings.
func (s *Simulator) Config() Config {
	return s.cfg
}

func (s *Simulator) floorGap(gap float64) float64 {
	return math.Max(s.cfg.GapMin, gap)
}

// Initial seeds the state from the first observation.
func (s *Simulator) Initial(obs Observation) State {
	st := State{Speed: obs.FollowerSpeed, Gap: s.floorGap(obs.ObservedGap)}
	st.Acceleration = s.model.Acceleration(st.Gap, st.Speed, obs.LeaderSpeed)
	return st
}

// Integrate advances prev by one step with a trapezoidal gap update. It
// returns the new speed and gap (acceleration is left zero) and whether the
// stop correction fired.
func (s *Simulator) Integrate(prev State, prevLeaderSpeed, leaderSpeed float64) (State, bool, error) {
	dt := s.cfg.DT
	next := State{Speed: prev.Speed + prev.Acceleration*dt}
	vLead := 0.5 * (prevLeaderSpeed + leaderSpeed)
	next.Gap = prev.Gap + (vLead-0.5*(next.Speed+prev.Speed))*dt

	if next.Speed >= stopThreshold {
		return next, false, nil
	}

	// The follower would reverse: it stops within the step instead and
	// covers the closed-form braking distance.
	if prev.Acceleration == 0 {
		return State{}, false, fmt.Errorf("%w: stop correction with zero acceleration at speed %.6f",
			ErrNumericDegeneracy, prev.Speed)
	}
	next.Speed = 0
	next.Gap = prev.Gap + vLead*dt - (-0.5 * prev.Speed * prev.Speed / prev.Acceleration)
	return next, true, nil
}

// Reseed applies a segment boundary to an integrated state. A follower
// reset takes the observed speed as recorded, even when it is negative; the
// non-negative speed guarantee covers integrated steps only.
func (s *Simulator) Reseed(t Transition, st State, obs Observation) State {
	if t.LeaderReset() {
		st.Gap = s.floorGap(obs.ObservedGap)
	}
	if t.FollowerReset() {
		st.Speed = obs.FollowerSpeed
		st.Gap = s.floorGap(obs.ObservedGap)
	}
	return st
}

// Run simulates rows, which must be time ordered.
func (s *Simulator) Run(rows []Observation) (*Result, error) {
	if err := Validate(rows); err != nil {
		return nil, err
	}

	res := newResult(s.model.Params(), len(rows))
	for i, obs := range rows {
		res.Time[i] = obs.Time
		res.FollowerID[i] = obs.FollowerID
		res.ObservedGap[i] = obs.ObservedGap
		res.PositionY[i] = obs.FollowerRotY
	}

	st := s.Initial(rows[0])
	s.record(res, 0, st, rows[0])

	for i := 1; i < len(rows); i++ {
		prevObs, obs := rows[i-1], rows[i]

		next, stopped, err := s.Integrate(st, prevObs.LeaderSpeed, obs.LeaderSpeed)
		if err != nil {
			return nil, fmt.Errorf("step %d (t=%.3f): %w", i, obs.Time, err)
		}
		if stopped {
			res.Stops++
		}

		t := Classify(prevObs, obs)
		res.Transitions[i] = t
		if t.LeaderReset() {
			res.LeaderResets++
		}
		if t.FollowerReset() {
			res.FollowerResets++
		}
		next = s.Reseed(t, next, obs)
		next.Acceleration = s.model.Acceleration(next.Gap, next.Speed, obs.LeaderSpeed)

		s.record(res, i, next, obs)
		st = next
	}

	monitoring.Logf("simulated %d steps (%s): %d stops, %d leader resets, %d follower resets",
		res.Len(), res.Params, res.Stops, res.LeaderResets, res.FollowerResets)
	return res, nil
}

// record stores st and the reconstructed position. The measured position is
// shifted by the gap residual so position and gap errors agree.
func (s *Simulator) record(res *Result, i int, st State, obs Observation) {
	res.Speed[i] = st.Speed
	res.Gap[i] = st.Gap
	res.Acceleration[i] = st.Acceleration
	res.PositionX[i] = obs.FollowerRotX + (s.floorGap(obs.ObservedGap) - st.Gap)
}

// RunFollower simulates the rows of a single follower.
func (s *Simulator) RunFollower(rows []Observation, followerID int64) (*Result, error) {
	sel := SelectFollower(rows, followerID)
	if len(sel) == 0 {
		return nil, fmt.Errorf("follower %d: %w", followerID, ErrEmptyInput)
	}
	return s.Run(sel)
}
