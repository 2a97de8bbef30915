// Package trajectory reads recorded leader–follower data and writes
// reconstructed trajectories at the CSV boundary. Speeds are converted to m/s
// on the way in and back to the configured unit on the way out.
package trajectory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/follow.report/internal/simulate"
	"github.com/banshee-data/follow.report/internal/units"
)

// Column aliases accepted in the leader–follower file. The first entry is
// the name used by the recording; later entries are the short forms.
var (
	colTime          = []string{"Time [s]", "time"}
	colFollower      = []string{"Follower", "follower_id"}
	colLeader        = []string{"Leader", "leader_id"}
	colGap           = []string{"Gap between vehicles", "gap[m]", "gap"}
	colFollowerSpeed = []string{"Follower Speed", "vx[m/s]", "follower_speed"}
	colLeaderSpeed   = []string{"Leader Speed", "lead_vx", "leader_speed"}
	colFollowerType  = []string{"Follower Vehicle Type", "flw_type"}
	colRotX          = []string{"Follower x_rotated", "x_rot"}
	colRotY          = []string{"Follower y_rotated", "y_rot"}
)

// header maps column names to their index.
type header map[string]int

func readHeader(cr *csv.Reader) (header, error) {
	names, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", simulate.ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	h := make(header, len(names))
	for i, n := range names {
		h[strings.TrimSpace(strings.TrimPrefix(n, "\ufeff"))] = i
	}
	return h, nil
}

// find returns the index of the first alias present.
func (h header) find(aliases []string) (int, error) {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: missing column %q", simulate.ErrMalformedInput, aliases[0])
}

// findPrefix returns the first column whose name starts with prefix.
func (h header) findPrefix(prefix string) (int, error) {
	best := -1
	for name, i := range h {
		if strings.HasPrefix(name, prefix) && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return -1, fmt.Errorf("%w: missing column %q", simulate.ErrMalformedInput, prefix+"*")
	}
	return best, nil
}

// record wraps a CSV record with field-level parsing errors that name the
// line.
type record struct {
	line   int
	fields []string
}

func (r record) cell(idx int, name string) (string, error) {
	if idx >= len(r.fields) {
		return "", fmt.Errorf("%w: line %d: missing %s", simulate.ErrMalformedInput, r.line, name)
	}
	v := strings.TrimSpace(r.fields[idx])
	if v == "" {
		return "", fmt.Errorf("%w: line %d: empty %s", simulate.ErrMalformedInput, r.line, name)
	}
	return v, nil
}

func (r record) float(idx int, name string) (float64, error) {
	s, err := r.cell(idx, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: invalid %s %q", simulate.ErrMalformedInput, r.line, name, s)
	}
	return v, nil
}

// id parses a vehicle identifier. Exports from dataframe tools sometimes
// write integer ids as "20.0".
func (r record) id(idx int, name string) (int64, error) {
	s, err := r.cell(idx, name)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: line %d: invalid %s %q", simulate.ErrMalformedInput, r.line, name, s)
	}
	return int64(f), nil
}

// LoadLeaderFollower reads leader–follower observation rows. Speeds in the
// file are in speedUnit and are converted to m/s.
func LoadLeaderFollower(r io.Reader, speedUnit string) ([]simulate.Observation, error) {
	if err := units.Validate(speedUnit); err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	var idx struct {
		time, follower, leader, gap, vf, vl, typ, x, y int
	}
	for _, c := range []struct {
		dst     *int
		aliases []string
	}{
		{&idx.time, colTime},
		{&idx.follower, colFollower},
		{&idx.leader, colLeader},
		{&idx.gap, colGap},
		{&idx.vf, colFollowerSpeed},
		{&idx.vl, colLeaderSpeed},
		{&idx.typ, colFollowerType},
		{&idx.x, colRotX},
		{&idx.y, colRotY},
	} {
		if *c.dst, err = h.find(c.aliases); err != nil {
			return nil, err
		}
	}

	var rows []simulate.Observation
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		rec := record{line: line, fields: fields}

		var o simulate.Observation
		if o.Time, err = rec.float(idx.time, "time"); err != nil {
			return nil, err
		}
		if o.FollowerID, err = rec.id(idx.follower, "follower"); err != nil {
			return nil, err
		}
		if o.LeaderID, err = rec.id(idx.leader, "leader"); err != nil {
			return nil, err
		}
		if o.ObservedGap, err = rec.float(idx.gap, "gap"); err != nil {
			return nil, err
		}
		if o.FollowerSpeed, err = rec.float(idx.vf, "follower speed"); err != nil {
			return nil, err
		}
		if o.LeaderSpeed, err = rec.float(idx.vl, "leader speed"); err != nil {
			return nil, err
		}
		if o.FollowerType, err = rec.cell(idx.typ, "follower vehicle type"); err != nil {
			return nil, err
		}
		if o.FollowerRotX, err = rec.float(idx.x, "follower x"); err != nil {
			return nil, err
		}
		if o.FollowerRotY, err = rec.float(idx.y, "follower y"); err != nil {
			return nil, err
		}
		o.FollowerSpeed = units.ToMPS(o.FollowerSpeed, speedUnit)
		o.LeaderSpeed = units.ToMPS(o.LeaderSpeed, speedUnit)
		rows = append(rows, o)
	}
	return rows, nil
}

// LoadTracks reads the all-vehicle track file (vehicle_id, Time [s], x[m],
// y[m], Speed [...], flw_type). Speeds are converted from speedUnit to m/s.
func LoadTracks(r io.Reader, speedUnit string) ([]Point, error) {
	if err := units.Validate(speedUnit); err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	var iID, iTime, iX, iY, iSpeed, iType int
	if iID, err = h.find([]string{"vehicle_id", "track_id"}); err != nil {
		return nil, err
	}
	if iTime, err = h.find(colTime); err != nil {
		return nil, err
	}
	if iX, err = h.find([]string{"x[m]", "x"}); err != nil {
		return nil, err
	}
	if iY, err = h.find([]string{"y[m]", "y"}); err != nil {
		return nil, err
	}
	if iSpeed, err = h.findPrefix("Speed"); err != nil {
		return nil, err
	}
	if iType, err = h.find([]string{"flw_type", "type"}); err != nil {
		return nil, err
	}

	var points []Point
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		rec := record{line: line, fields: fields}

		var p Point
		if p.VehicleID, err = rec.id(iID, "vehicle_id"); err != nil {
			return nil, err
		}
		if p.Time, err = rec.float(iTime, "time"); err != nil {
			return nil, err
		}
		if p.X, err = rec.float(iX, "x"); err != nil {
			return nil, err
		}
		if p.Y, err = rec.float(iY, "y"); err != nil {
			return nil, err
		}
		if p.Speed, err = rec.float(iSpeed, "speed"); err != nil {
			return nil, err
		}
		if p.VehicleType, err = rec.cell(iType, "vehicle type"); err != nil {
			return nil, err
		}
		p.Speed = units.ToMPS(p.Speed, speedUnit)
		points = append(points, p)
	}
	return points, nil
}

// WriteOptions controls the output table.
type WriteOptions struct {
	SpeedUnit string
	// RMSE, when set, is written as a constant column.
	RMSE *float64
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes points in the output layout.
func WriteCSV(w io.Writer, points []Point, opts WriteOptions) error {
	if err := units.Validate(opts.SpeedUnit); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{"vehicle_id", "Time [s]", "x[m]", "y[m]", units.ColumnLabel(opts.SpeedUnit), "flw_type"}
	if opts.RMSE != nil {
		header = append(header, "rmse")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range points {
		row := []string{
			strconv.FormatInt(p.VehicleID, 10),
			formatFloat(p.Time),
			formatFloat(p.X),
			formatFloat(p.Y),
			formatFloat(units.ConvertSpeed(p.Speed, opts.SpeedUnit)),
			p.VehicleType,
		}
		if opts.RMSE != nil {
			row = append(row, formatFloat(*opts.RMSE))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
