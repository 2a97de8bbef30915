package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/follow.report/internal/api"
	"github.com/banshee-data/follow.report/internal/batch"
	"github.com/banshee-data/follow.report/internal/config"
	"github.com/banshee-data/follow.report/internal/db"
	"github.com/banshee-data/follow.report/internal/idm"
	"github.com/banshee-data/follow.report/internal/metrics"
	"github.com/banshee-data/follow.report/internal/plot"
	"github.com/banshee-data/follow.report/internal/simulate"
	"github.com/banshee-data/follow.report/internal/trajectory"
)

type options struct {
	DataFile   string
	TracksFile string
	Follower   int64
	OutFile    string
	DBFile     string
	PlotDir    string
	Serve      string
	Config     *config.SimConfig

	// Batch runs every follower in Followers (all followers when empty)
	// against every parameter set.
	Batch     bool
	Followers []int64
	ParamSets []idm.Params
}

func run(ctx context.Context, opts options) error {
	cfg := opts.Config
	unit := cfg.GetSpeedUnit()

	rows, err := loadFile(opts.DataFile, func(f *os.File) ([]simulate.Observation, error) {
		return trajectory.LoadLeaderFollower(f, unit)
	})
	if err != nil {
		return err
	}
	var tracks []trajectory.Point
	if opts.TracksFile != "" {
		tracks, err = loadFile(opts.TracksFile, func(f *os.File) ([]trajectory.Point, error) {
			return trajectory.LoadTracks(f, unit)
		})
		if err != nil {
			return err
		}
	}

	var store *db.DB
	if opts.DBFile != "" {
		store, err = db.NewDB(opts.DBFile)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer store.Close()
	}

	var outcomes []batch.Outcome
	if opts.Batch {
		outcomes, err = runBatch(ctx, opts, rows)
		if err != nil {
			return err
		}
	} else {
		o, err := runSingle(opts, rows)
		if err != nil {
			return err
		}
		outcomes = []batch.Outcome{o}
	}

	w := writer{opts: opts, tracks: tracks, store: store, multi: len(opts.ParamSets) > 1}
	failed := 0
	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			log.Printf("follower %d (%s): %v", o.FollowerID, o.Params, o.Err)
			continue
		}
		if err := w.write(i, o); err != nil {
			return err
		}
	}
	if w.multi && opts.PlotDir != "" {
		if err := writeComparisons(opts.PlotDir, outcomes); err != nil {
			return err
		}
	}
	if failed == len(outcomes) {
		return fmt.Errorf("all %d runs failed", failed)
	}

	if opts.Serve != "" {
		return serveRuns(ctx, store, opts.Serve, unit)
	}
	return nil
}

func loadFile[T any](path string, load func(*os.File) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	out, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func runSingle(opts options, rows []simulate.Observation) (batch.Outcome, error) {
	cfg := opts.Config
	sim, err := simulate.New(cfg.Params(), cfg.SimulateConfig())
	if err != nil {
		return batch.Outcome{}, err
	}
	sel := simulate.SelectFollower(rows, opts.Follower)
	res, err := sim.RunFollower(rows, opts.Follower)
	if err != nil {
		return batch.Outcome{}, err
	}
	score, err := metrics.ScoreResult(res)
	if err != nil {
		return batch.Outcome{}, err
	}
	return batch.Outcome{
		Job:    batch.Job{FollowerID: opts.Follower, Params: cfg.Params()},
		Rows:   sel,
		Result: res,
		Score:  score,
	}, nil
}

func runBatch(ctx context.Context, opts options, rows []simulate.Observation) ([]batch.Outcome, error) {
	cfg := opts.Config
	ids := opts.Followers
	if len(ids) == 0 {
		ids = trajectory.FollowerIDs(rows)
	}
	params := opts.ParamSets
	if len(params) == 0 {
		params = []idm.Params{cfg.Params()}
	}
	runner := batch.NewRunner(cfg.SimulateConfig(), cfg.GetWorkers())
	return runner.Run(ctx, rows, batch.Jobs(ids, params...))
}

type writer struct {
	opts   options
	tracks []trajectory.Point
	store  *db.DB
	multi  bool
}

// outPath names the CSV of outcome i: the -out file for a single run,
// <base>_<follower>[_<set>] otherwise.
func (w writer) outPath(i int, o batch.Outcome) string {
	if !w.opts.Batch {
		return w.opts.OutFile
	}
	ext := filepath.Ext(w.opts.OutFile)
	base := strings.TrimSuffix(w.opts.OutFile, ext)
	name := fmt.Sprintf("%s_%d", base, o.FollowerID)
	if w.multi {
		name = fmt.Sprintf("%s_%d", name, i%len(w.opts.ParamSets))
	}
	return name + ext
}

func (w writer) write(i int, o batch.Outcome) error {
	cfg := w.opts.Config
	unit := cfg.GetSpeedUnit()

	points := trajectory.FollowerPoints(o.Result, o.Rows, cfg.Rotator())
	if len(w.tracks) > 0 {
		leaders := trajectory.SelectVehicles(w.tracks, trajectory.LeaderIDs(o.Rows))
		points = trajectory.Merge(leaders, points)
	}

	path := w.outPath(i, o)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	rmse := o.Score.RMSE
	if err := trajectory.WriteCSV(f, points, trajectory.WriteOptions{SpeedUnit: unit, RMSE: &rmse}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("follower %d (%s): rmse=%.4f sse=%.4f over %d steps -> %s",
		o.FollowerID, o.Params, o.Score.RMSE, o.Score.SSE, o.Score.N, path)

	if w.store != nil {
		if _, err := w.store.RecordRun(o.Result, o.Score, cfg.SimulateConfig(), unit); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
	}
	if w.opts.PlotDir != "" && !w.multi {
		if _, err := plot.WriteRun(w.opts.PlotDir, o.Result, unit); err != nil {
			return fmt.Errorf("failed to write plots: %w", err)
		}
	}
	return nil
}

// writeComparisons plots every parameter set of a follower on one chart.
func writeComparisons(dir string, outcomes []batch.Outcome) error {
	byFollower := make(map[int64][]*simulate.Result)
	var order []int64
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if _, ok := byFollower[o.FollowerID]; !ok {
			order = append(order, o.FollowerID)
		}
		byFollower[o.FollowerID] = append(byFollower[o.FollowerID], o.Result)
	}
	for _, id := range order {
		if _, err := plot.WriteComparison(dir, byFollower[id]); err != nil {
			return fmt.Errorf("follower %d: %w", id, err)
		}
	}
	return nil
}

// serveRuns serves the run store until ctx is cancelled.
func serveRuns(ctx context.Context, store *db.DB, addr, unit string) error {
	if store == nil {
		return errors.New("serving runs requires a run store")
	}
	mux := api.NewServer(store, unit).ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving runs on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}
