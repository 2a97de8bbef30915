// Package metrics scores a simulated gap series against the observed one.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/follow.report/internal/simulate"
)

// ErrNoSamples is returned when there is nothing to score.
var ErrNoSamples = errors.New("no samples to score")

// Score summarises the gap residual of one run.
type Score struct {
	SSE  float64 `json:"sse"`
	RMSE float64 `json:"rmse"`
	N    int     `json:"n"`
}

// SumSquaredError returns Σ(sim[i]-observed[i])².
func SumSquaredError(sim, observed []float64) (float64, error) {
	if len(sim) != len(observed) {
		return 0, fmt.Errorf("series length mismatch: %d simulated vs %d observed", len(sim), len(observed))
	}
	if len(sim) == 0 {
		return 0, ErrNoSamples
	}
	residual := floats.SubTo(make([]float64, len(sim)), sim, observed)
	return floats.Dot(residual, residual), nil
}

// RMSE converts a sum of squared errors over n samples to a root mean
// square error.
func RMSE(sse float64, n int) float64 {
	if n <= 0 {
		return math.NaN()
	}
	return math.Sqrt(sse / float64(n))
}

// Evaluate scores sim against observed.
func Evaluate(sim, observed []float64) (Score, error) {
	sse, err := SumSquaredError(sim, observed)
	if err != nil {
		return Score{}, err
	}
	return Score{SSE: sse, RMSE: RMSE(sse, len(sim)), N: len(sim)}, nil
}

// ScoreResult scores a simulation against its raw observed gaps.
func ScoreResult(res *simulate.Result) (Score, error) {
	return Evaluate(res.Gap, res.ObservedGap)
}
