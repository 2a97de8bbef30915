package trajectory

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/banshee-data/follow.report/internal/rotation"
	"github.com/banshee-data/follow.report/internal/simulate"
)

// Point is one output sample of a vehicle in the site frame. Speed is m/s.
type Point struct {
	VehicleID   int64
	Time        float64
	X           float64
	Y           float64
	Speed       float64
	VehicleType string
}

// RemapVehicleType folds classes the visualiser has no model for.
func RemapVehicleType(t string) string {
	if t == "Motorcycle" {
		return "Medium Vehicle"
	}
	return t
}

// LeaderIDs returns the distinct leaders of rows in first-seen order.
func LeaderIDs(rows []simulate.Observation) []int64 {
	return lo.Uniq(lo.Map(rows, func(o simulate.Observation, _ int) int64 {
		return o.LeaderID
	}))
}

// FollowerIDs returns the distinct followers of rows in first-seen order.
func FollowerIDs(rows []simulate.Observation) []int64 {
	return lo.Uniq(lo.Map(rows, func(o simulate.Observation, _ int) int64 {
		return o.FollowerID
	}))
}

// SelectVehicles keeps the track points of the given vehicles.
func SelectVehicles(tracks []Point, ids []int64) []Point {
	want := lo.SliceToMap(ids, func(id int64) (int64, struct{}) {
		return id, struct{}{}
	})
	return lo.Filter(tracks, func(p Point, _ int) bool {
		_, ok := want[p.VehicleID]
		return ok
	})
}

// FollowerPoints converts a simulation result into site-frame output points.
// rows must be the observations the result was produced from.
func FollowerPoints(res *simulate.Result, rows []simulate.Observation, rot rotation.Rotator) []Point {
	out := make([]Point, res.Len())
	for i := range out {
		p := rot.ToSite(rotation.Point{X: res.PositionX[i], Y: res.PositionY[i]})
		out[i] = Point{
			VehicleID:   res.FollowerID[i],
			Time:        res.Time[i],
			X:           p.X,
			Y:           p.Y,
			Speed:       res.Speed[i],
			VehicleType: RemapVehicleType(rows[i].FollowerType),
		}
	}
	return out
}

// Merge combines the leaders' recorded tracks with the simulated follower
// and orders the result by vehicle then time.
func Merge(leaders, follower []Point) []Point {
	out := make([]Point, 0, len(leaders)+len(follower))
	for _, p := range leaders {
		p.VehicleType = RemapVehicleType(p.VehicleType)
		out = append(out, p)
	}
	out = append(out, follower...)
	slices.SortStableFunc(out, func(a, b Point) int {
		if c := cmp.Compare(a.VehicleID, b.VehicleID); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return out
}
