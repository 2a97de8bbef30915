package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/follow.report/internal/idm"
	"github.com/banshee-data/follow.report/internal/monitoring"
	"github.com/banshee-data/follow.report/internal/simulate"
)

func init() {
	monitoring.SetLogger(nil)
}

func rows(followers ...int64) []simulate.Observation {
	var out []simulate.Observation
	for _, f := range followers {
		for i := 0; i < 50; i++ {
			out = append(out, simulate.Observation{
				Time:          float64(i) * simulate.DefaultDT,
				LeaderID:      f + 100,
				FollowerID:    f,
				FollowerType:  "Car",
				ObservedGap:   10 + float64(f) - float64(i)*0.02,
				FollowerSpeed: 8,
				LeaderSpeed:   7.5,
				FollowerRotX:  float64(i) * 0.27,
			})
		}
	}
	return out
}

func TestJobs(t *testing.T) {
	a := idm.DefaultParams()
	b := idm.Params{V0: 15, T: 1.5, S0: 2, A: 1, B: 1.5}

	jobs := Jobs([]int64{1, 2}, a, b)
	assert.Equal(t, []Job{
		{FollowerID: 1, Params: a},
		{FollowerID: 1, Params: b},
		{FollowerID: 2, Params: a},
		{FollowerID: 2, Params: b},
	}, jobs)
}

func TestRunner_MatchesSequentialRuns(t *testing.T) {
	data := rows(1, 2, 3)
	params := []idm.Params{idm.DefaultParams(), {V0: 15, T: 1.5, S0: 2, A: 1, B: 1.5}}
	jobs := Jobs([]int64{1, 2, 3}, params...)

	out, err := NewRunner(simulate.DefaultConfig(), 3).Run(context.Background(), data, jobs)
	require.NoError(t, err)
	require.Len(t, out, len(jobs))

	for i, o := range out {
		require.NoError(t, o.Err)
		assert.Equal(t, jobs[i], o.Job)

		sim, err := simulate.New(o.Params, simulate.DefaultConfig())
		require.NoError(t, err)
		want, err := sim.RunFollower(data, o.FollowerID)
		require.NoError(t, err)
		assert.Equal(t, want.Gap, o.Result.Gap, "job %d", i)
		assert.Equal(t, 50, o.Score.N)
		assert.GreaterOrEqual(t, o.Score.RMSE, 0.0)
	}
}

func TestRunner_PerJobErrors(t *testing.T) {
	data := rows(1)
	jobs := []Job{
		{FollowerID: 1, Params: idm.DefaultParams()},
		{FollowerID: 42, Params: idm.DefaultParams()},
		{FollowerID: 1, Params: idm.Params{V0: 10, T: 1, S0: 1, A: 0, B: 1}},
	}

	out, err := NewRunner(simulate.DefaultConfig(), 0).Run(context.Background(), data, jobs)
	require.NoError(t, err)

	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, simulate.ErrEmptyInput)
	assert.Error(t, out[2].Err)
	assert.Nil(t, out[2].Result)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(simulate.DefaultConfig(), 2).Run(ctx, rows(1), Jobs([]int64{1}, idm.DefaultParams()))
	assert.ErrorIs(t, err, context.Canceled)
}
