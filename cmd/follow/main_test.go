package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/follow.report/internal/config"
	"github.com/banshee-data/follow.report/internal/db"
	"github.com/banshee-data/follow.report/internal/idm"
	"github.com/banshee-data/follow.report/internal/monitoring"
	"github.com/banshee-data/follow.report/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// writeFixtures writes a two-follower observation file and a track file for
// the leaders.
func writeFixtures(t *testing.T, dir string) (data, tracks string) {
	t.Helper()
	var lf strings.Builder
	lf.WriteString("Time [s],Follower,Leader,Gap between vehicles,Follower Speed,Leader Speed,Follower Vehicle Type,Follower x_rotated,Follower y_rotated\n")
	for _, pair := range []struct{ follower, leader int }{{20, 5}, {21, 6}} {
		for i := 0; i < 10; i++ {
			ts := float64(i) * 0.033367
			fmt.Fprintf(&lf, "%g,%d,%d,%g,36,32.4,Car,%g,1.5\n", ts, pair.follower, pair.leader, 8-0.01*float64(i), 10*ts)
		}
	}
	data = testutil.WriteFile(t, dir, "LF_data.csv", lf.String())

	var tr strings.Builder
	tr.WriteString("vehicle_id,Time [s],x[m],y[m],Speed [km/h],flw_type\n")
	for _, id := range []int{5, 6, 99} {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(&tr, "%d,%g,%d,0,32.4,Motorcycle\n", id, float64(i)*0.033367, 20+i)
		}
	}
	tracks = testutil.WriteFile(t, dir, "tracks.csv", tr.String())
	return data, tracks
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunSingleFollower(t *testing.T) {
	dir := t.TempDir()
	data, tracks := writeFixtures(t, dir)
	out := filepath.Join(dir, "output_data.csv")
	dbPath := filepath.Join(dir, "runs.db")

	err := run(context.Background(), options{
		DataFile:   data,
		TracksFile: tracks,
		Follower:   20,
		OutFile:    out,
		DBFile:     dbPath,
		PlotDir:    filepath.Join(dir, "plots"),
		Config:     config.DefaultSimConfig(),
	})
	require.NoError(t, err)

	records := readCSV(t, out)
	assert.Equal(t, []string{"vehicle_id", "Time [s]", "x[m]", "y[m]", "Speed [km/h]", "flw_type", "rmse"}, records[0])
	// Three leader rows then ten follower rows, ordered by vehicle id.
	require.Len(t, records, 1+3+10)
	assert.Equal(t, "5", records[1][0])
	assert.Equal(t, "Medium Vehicle", records[1][5])
	assert.Equal(t, "20", records[4][0])
	assert.Equal(t, "36", records[4][4])
	assert.Equal(t, "Car", records[4][5])
	rmse := records[4][6]
	for _, r := range records[1:] {
		assert.Equal(t, rmse, r[6])
	}

	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(20), runs[0].FollowerID)
	assert.Equal(t, 10, runs[0].Steps)

	for _, name := range []string{"follower_20_gap.png", "follower_20_speed.png"} {
		_, err := os.Stat(filepath.Join(dir, "plots", name))
		assert.NoError(t, err, name)
	}
}

func TestRunUnknownFollower(t *testing.T) {
	dir := t.TempDir()
	data, _ := writeFixtures(t, dir)

	err := run(context.Background(), options{
		DataFile: data,
		Follower: 404,
		OutFile:  filepath.Join(dir, "out.csv"),
		Config:   config.DefaultSimConfig(),
	})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "out.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunBatchAllFollowers(t *testing.T) {
	dir := t.TempDir()
	data, _ := writeFixtures(t, dir)

	err := run(context.Background(), options{
		DataFile: data,
		OutFile:  filepath.Join(dir, "out.csv"),
		Config:   config.DefaultSimConfig(),
		Batch:    true,
	})
	require.NoError(t, err)

	for _, id := range []string{"20", "21"} {
		records := readCSV(t, filepath.Join(dir, "out_"+id+".csv"))
		require.Len(t, records, 11)
		assert.Equal(t, id, records[1][0])
	}
}

func TestRunBatchParamSets(t *testing.T) {
	dir := t.TempDir()
	data, _ := writeFixtures(t, dir)
	plots := filepath.Join(dir, "plots")

	err := run(context.Background(), options{
		DataFile:  data,
		OutFile:   filepath.Join(dir, "out.csv"),
		PlotDir:   plots,
		Config:    config.DefaultSimConfig(),
		Batch:     true,
		Followers: []int64{21},
		ParamSets: []idm.Params{idm.DefaultParams(), {V0: 30, T: 1.5, S0: 2, A: 1, B: 2}},
	})
	require.NoError(t, err)

	for _, name := range []string{"out_21_0.csv", "out_21_1.csv", filepath.Join("plots", "follower_21_compare.png")} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunBatchAllFailed(t *testing.T) {
	dir := t.TempDir()
	data, _ := writeFixtures(t, dir)

	err := run(context.Background(), options{
		DataFile:  data,
		OutFile:   filepath.Join(dir, "out.csv"),
		Config:    config.DefaultSimConfig(),
		Batch:     true,
		Followers: []int64{404},
	})
	assert.ErrorContains(t, err, "all 1 runs failed")
}

func TestRunMissingData(t *testing.T) {
	err := run(context.Background(), options{
		DataFile: filepath.Join(t.TempDir(), "missing.csv"),
		Config:   config.DefaultSimConfig(),
	})
	assert.ErrorContains(t, err, "failed to open")
}

func TestServeRequiresStore(t *testing.T) {
	err := serveRuns(context.Background(), nil, ":0", "kmph")
	assert.Error(t, err)
}

func TestParseFollowers(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{"all", nil, false},
		{" ALL ", nil, false},
		{"20", []int64{20}, false},
		{"20, 21,,22", []int64{20, 21, 22}, false},
		{"twenty", nil, true},
		{",", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFollowers(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	oldV0, oldUnit := *v0, *speedUnit
	t.Cleanup(func() { *v0, *speedUnit = oldV0, oldUnit })

	path := testutil.WriteFile(t, t.TempDir(), "sim.json", `{"v0": 30, "b": 3, "speed_unit": "kmph"}`)

	*v0 = 42
	*speedUnit = "mps"
	cfg, err := loadConfig(path, map[string]bool{"v0": true, "speed-unit": true})
	require.NoError(t, err)

	p := cfg.Params()
	assert.Equal(t, 42.0, p.V0)
	assert.Equal(t, 3.0, p.B)
	assert.Equal(t, idm.DefaultParams().T, p.T)
	assert.Equal(t, "mps", cfg.GetSpeedUnit())

	// Unset flags leave the file values alone.
	cfg, err = loadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.Params().V0)
}

func TestLoadConfigRejectsInvalidOverride(t *testing.T) {
	oldA := *aM
	t.Cleanup(func() { *aM = oldA })

	*aM = 0
	_, err := loadConfig("", map[string]bool{"a": true})
	assert.Error(t, err)
}
