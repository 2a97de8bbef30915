package simulate

import "testing"

func TestClassify(t *testing.T) {
	base := Observation{LeaderID: 1, FollowerID: 2}
	tests := []struct {
		name string
		cur  Observation
		want Transition
	}{
		{"same pair", Observation{LeaderID: 1, FollowerID: 2}, Continue},
		{"new leader", Observation{LeaderID: 3, FollowerID: 2}, LeaderChanged},
		{"new follower", Observation{LeaderID: 1, FollowerID: 4}, FollowerChanged},
		{"both", Observation{LeaderID: 3, FollowerID: 4}, LeaderAndFollowerChanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(base, tt.cur); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransitionResets(t *testing.T) {
	tests := []struct {
		t        Transition
		leader   bool
		follower bool
		name     string
	}{
		{Continue, false, false, "continue"},
		{LeaderChanged, true, false, "leader_changed"},
		{FollowerChanged, false, true, "follower_changed"},
		{LeaderAndFollowerChanged, true, true, "leader_and_follower_changed"},
		{Transition(42), false, false, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.LeaderReset(); got != tt.leader {
			t.Errorf("%v.LeaderReset() = %v", tt.t, got)
		}
		if got := tt.t.FollowerReset(); got != tt.follower {
			t.Errorf("%v.FollowerReset() = %v", tt.t, got)
		}
		if got := tt.t.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
}
