// Package testutil provides shared fixtures and assertions for tests.
package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/follow.report/internal/simulate"
)

// Following describes a steady leader-follower pair sampled at the default
// step.
type Following struct {
	LeaderID    int64
	FollowerID  int64
	Gap         float64
	GapRate     float64 // metres per step
	Speed       float64
	LeaderSpeed float64
	Start       float64
}

// Rows samples f n times. Follower position advances at f.Speed along the
// rotated x axis.
func (f Following) Rows(n int) []simulate.Observation {
	rows := make([]simulate.Observation, n)
	for i := range rows {
		ts := f.Start + float64(i)*simulate.DefaultDT
		rows[i] = simulate.Observation{
			Time:          ts,
			LeaderID:      f.LeaderID,
			FollowerID:    f.FollowerID,
			FollowerType:  "Car",
			ObservedGap:   f.Gap + f.GapRate*float64(i),
			FollowerSpeed: f.Speed,
			LeaderSpeed:   f.LeaderSpeed,
			FollowerRotX:  f.Speed * (ts - f.Start),
		}
	}
	return rows
}

// DefaultFollowing is a follower closing slowly on a slower leader.
func DefaultFollowing() Following {
	return Following{LeaderID: 1, FollowerID: 2, Gap: 8, GapRate: -0.01, Speed: 10, LeaderSpeed: 9}
}

// WriteFile writes content to name under dir and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// DecodeJSON decodes the recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}
