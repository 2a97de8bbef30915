// Package api serves stored simulation runs over HTTP.
package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/follow.report/internal/db"
	"github.com/banshee-data/follow.report/internal/httputil"
	"github.com/banshee-data/follow.report/internal/units"
)

const defaultRunLimit = 100

// RunStore is the read side of the run store.
type RunStore interface {
	Runs(limit int) ([]db.Run, error)
	FollowerRuns(followerID int64) ([]db.Run, error)
	GetRun(runID string) (*db.Run, error)
	RunSamples(runID string) ([]db.Sample, error)
}

type Server struct {
	store RunStore
	units string
}

// NewServer reports speeds in unit; unknown units fall back to m/s.
func NewServer(store RunStore, unit string) *Server {
	if !units.IsValid(unit) {
		unit = units.MPS
	}
	return &Server{store: store, units: unit}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("GET /api/runs/{id}/samples", s.listSamples)
	mux.HandleFunc("GET /api/followers/{id}/runs", s.listFollowerRuns)
	mux.HandleFunc("GET /charts/runs/{id}", s.runChart)
	return mux
}

// SampleAPI is a stored sample with its speed in the configured unit.
type SampleAPI struct {
	db.Sample
	Speed float64 `json:"speed"`
	Units string  `json:"units"`
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", defaultRunLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	runs, err := s.store.Runs(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) listFollowerRuns(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "invalid follower id")
		return
	}
	runs, err := s.store.FollowerRuns(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.store.RunSamples(r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	out := make([]SampleAPI, len(samples))
	for i, smp := range samples {
		out[i] = SampleAPI{Sample: smp, Speed: units.ConvertSpeed(smp.Speed, s.units), Units: s.units}
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf("[%d] %s %s %.2fms",
			lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
