package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/follow.report/internal/idm"
	"github.com/banshee-data/follow.report/internal/metrics"
	"github.com/banshee-data/follow.report/internal/monitoring"
	"github.com/banshee-data/follow.report/internal/simulate"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// now is replaced in tests.
var now = time.Now

// Run is the summary row of one stored simulation.
type Run struct {
	RunID          string        `json:"run_id"`
	FollowerID     int64         `json:"follower_id"`
	Params         idm.Params    `json:"params"`
	DT             float64       `json:"dt"`
	GapMin         float64       `json:"gap_min"`
	SpeedUnit      string        `json:"speed_unit"`
	Steps          int           `json:"steps"`
	Score          metrics.Score `json:"score"`
	Stops          int           `json:"stops"`
	LeaderResets   int           `json:"leader_resets"`
	FollowerResets int           `json:"follower_resets"`
	CreatedUnix    float64       `json:"created_unix"`
}

// Sample is one simulated step of a stored run.
type Sample struct {
	Step         int     `json:"step"`
	Time         float64 `json:"time_s"`
	FollowerID   int64   `json:"follower_id"`
	Speed        float64 `json:"speed_mps"`
	Gap          float64 `json:"gap_m"`
	ObservedGap  float64 `json:"observed_gap_m"`
	Acceleration float64 `json:"acceleration"`
	XRot         float64 `json:"x_rot"`
	YRot         float64 `json:"y_rot"`
	Transition   string  `json:"transition"`
}

// RecordRun stores res with its score in one transaction and returns the
// stored summary.
func (db *DB) RecordRun(res *simulate.Result, score metrics.Score, cfg simulate.Config, speedUnit string) (*Run, error) {
	if res == nil || res.Len() == 0 {
		return nil, fmt.Errorf("record run: %w", simulate.ErrEmptyInput)
	}
	if math.IsNaN(score.SSE) || math.IsNaN(score.RMSE) {
		return nil, fmt.Errorf("record run: score is not a number")
	}

	run := &Run{
		RunID:          uuid.NewString(),
		FollowerID:     res.FollowerID[0],
		Params:         res.Params,
		DT:             cfg.DT,
		GapMin:         cfg.GapMin,
		SpeedUnit:      speedUnit,
		Steps:          res.Len(),
		Score:          score,
		Stops:          res.Stops,
		LeaderResets:   res.LeaderResets,
		FollowerResets: res.FollowerResets,
		CreatedUnix:    float64(now().UnixNano()) / 1e9,
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sim_runs (
			run_id, follower_id, v0, t, s0, a, b, dt, gap_min, speed_unit,
			steps, sse, rmse, stops, leader_resets, follower_resets, created_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.FollowerID, run.Params.V0, run.Params.T, run.Params.S0, run.Params.A, run.Params.B,
		run.DT, run.GapMin, run.SpeedUnit, run.Steps, run.Score.SSE, run.Score.RMSE,
		run.Stops, run.LeaderResets, run.FollowerResets, run.CreatedUnix,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sim_run_samples (
			run_id, step, time_s, follower_id, speed_mps, gap_m, observed_gap_m,
			acceleration, x_rot, y_rot, transition
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for i := 0; i < res.Len(); i++ {
		if _, err := stmt.Exec(
			run.RunID, i, res.Time[i], res.FollowerID[i], res.Speed[i], res.Gap[i], res.ObservedGap[i],
			res.Acceleration[i], res.PositionX[i], res.PositionY[i], res.Transitions[i].String(),
		); err != nil {
			return nil, fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	monitoring.Logf("stored run %s: follower %d, %d steps, rmse %.4f", run.RunID, run.FollowerID, run.Steps, run.Score.RMSE)
	return run, nil
}

const runColumns = `run_id, follower_id, v0, t, s0, a, b, dt, gap_min, speed_unit,
	steps, sse, rmse, stops, leader_resets, follower_resets, created_unix`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var r Run
	err := s.Scan(
		&r.RunID, &r.FollowerID, &r.Params.V0, &r.Params.T, &r.Params.S0, &r.Params.A, &r.Params.B,
		&r.DT, &r.GapMin, &r.SpeedUnit, &r.Steps, &r.Score.SSE, &r.Score.RMSE,
		&r.Stops, &r.LeaderResets, &r.FollowerResets, &r.CreatedUnix,
	)
	if err != nil {
		return nil, err
	}
	r.Score.N = r.Steps
	return &r, nil
}

// Runs returns the most recent runs, newest first. A limit <= 0 returns
// every run.
func (db *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM sim_runs
		ORDER BY created_unix DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// FollowerRuns returns the runs of one follower, best score first.
func (db *DB) FollowerRuns(followerID int64) ([]Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM sim_runs
		WHERE follower_id = ? ORDER BY rmse, created_unix`, followerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by id.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM sim_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return r, err
}

// RunSamples returns the per-step series of a run in step order.
func (db *DB) RunSamples(runID string) ([]Sample, error) {
	if _, err := db.GetRun(runID); err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT step, time_s, follower_id, speed_mps, gap_m, observed_gap_m,
			acceleration, x_rot, y_rot, transition
		FROM sim_run_samples WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Step, &s.Time, &s.FollowerID, &s.Speed, &s.Gap, &s.ObservedGap,
			&s.Acceleration, &s.XRot, &s.YRot, &s.Transition); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// DeleteRun removes a run and its samples.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM sim_runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}
