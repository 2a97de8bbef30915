// Package batch runs independent follower simulations concurrently. Each
// job owns its state, so the only coordination is the worker limit and
// cancellation.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/follow.report/internal/idm"
	"github.com/banshee-data/follow.report/internal/metrics"
	"github.com/banshee-data/follow.report/internal/monitoring"
	"github.com/banshee-data/follow.report/internal/simulate"
)

var logf = monitoring.Prefixed("[batch] ")

// Job is one (follower, parameter set) pair.
type Job struct {
	FollowerID int64
	Params     idm.Params
}

// Jobs builds the cross product of followers and parameter sets.
func Jobs(followers []int64, params ...idm.Params) []Job {
	jobs := make([]Job, 0, len(followers)*len(params))
	for _, f := range followers {
		for _, p := range params {
			jobs = append(jobs, Job{FollowerID: f, Params: p})
		}
	}
	return jobs
}

// Outcome is the result of one job. Err is set when that job alone failed.
type Outcome struct {
	Job
	Rows   []simulate.Observation
	Result *simulate.Result
	Score  metrics.Score
	Err    error
}

// Runner executes jobs on a bounded pool.
type Runner struct {
	cfg     simulate.Config
	workers int
}

// NewRunner returns a Runner using at most workers goroutines.
func NewRunner(cfg simulate.Config, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{cfg: cfg, workers: workers}
}

// Run simulates every job against rows. Outcomes are returned in job order.
// Per-job failures are reported in Outcome.Err; the returned error is only
// set when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, rows []simulate.Observation, jobs []Job) ([]Outcome, error) {
	byFollower := make(map[int64][]simulate.Observation)
	for _, o := range rows {
		byFollower[o.FollowerID] = append(byFollower[o.FollowerID], o)
	}

	start := time.Now()
	out := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.runOne(job, byFollower[job.FollowerID])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, o := range out {
		if o.Err != nil {
			failed++
		}
	}
	logf("%d jobs on %d workers in %s (%d failed)", len(jobs), r.workers, time.Since(start).Round(time.Millisecond), failed)
	return out, nil
}

func (r *Runner) runOne(job Job, rows []simulate.Observation) Outcome {
	o := Outcome{Job: job, Rows: rows}
	if len(rows) == 0 {
		o.Err = fmt.Errorf("follower %d: %w", job.FollowerID, simulate.ErrEmptyInput)
		return o
	}
	sim, err := simulate.New(job.Params, r.cfg)
	if err != nil {
		o.Err = err
		return o
	}
	res, err := sim.Run(rows)
	if err != nil {
		o.Err = fmt.Errorf("follower %d: %w", job.FollowerID, err)
		return o
	}
	score, err := metrics.ScoreResult(res)
	if err != nil {
		o.Err = fmt.Errorf("follower %d: %w", job.FollowerID, err)
		return o
	}
	o.Result, o.Score = res, score
	return o
}
