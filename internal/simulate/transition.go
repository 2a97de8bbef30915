package simulate

// Transition tags how a row relates to the previous one.
type Transition uint8

const (
	// Continue means the same leader and follower as the previous row.
	Continue Transition = iota
	// LeaderChanged re-seeds the gap; speed carries over.
	LeaderChanged
	// FollowerChanged starts a new trajectory segment: speed and gap are
	// re-seeded.
	FollowerChanged
	// LeaderAndFollowerChanged behaves like FollowerChanged.
	LeaderAndFollowerChanged
)

func (t Transition) String() string {
	switch t {
	case Continue:
		return "continue"
	case LeaderChanged:
		return "leader_changed"
	case FollowerChanged:
		return "follower_changed"
	case LeaderAndFollowerChanged:
		return "leader_and_follower_changed"
	default:
		return "unknown"
	}
}

// LeaderReset reports whether the gap must be re-seeded.
func (t Transition) LeaderReset() bool {
	return t == LeaderChanged || t == LeaderAndFollowerChanged
}

// FollowerReset reports whether speed and gap must be re-seeded.
func (t Transition) FollowerReset() bool {
	return t == FollowerChanged || t == LeaderAndFollowerChanged
}

// Classify compares consecutive rows.
func Classify(prev, cur Observation) Transition {
	leader := prev.LeaderID != cur.LeaderID
	follower := prev.FollowerID != cur.FollowerID
	switch {
	case leader && follower:
		return LeaderAndFollowerChanged
	case follower:
		return FollowerChanged
	case leader:
		return LeaderChanged
	default:
		return Continue
	}
}
