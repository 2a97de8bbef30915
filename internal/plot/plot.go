// Package plot renders simulated runs as PNG line plots.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/follow.report/internal/simulate"
	"github.com/banshee-data/follow.report/internal/units"
)

const (
	width  = 14 * vg.Inch
	height = 6 * vg.Inch
)

var errNoSteps = errors.New("run has no steps to plot")

// series pairs a legend label with its points.
type series struct {
	label string
	pts   plotter.XYs
}

func newPlot(title, yLabel string) *gonumplot.Plot {
	p := gonumplot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func addLines(p *gonumplot.Plot, ss []series, colors []color.Color) error {
	for i, s := range ss {
		if len(s.pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return fmt.Errorf("%s: %w", s.label, err)
		}
		line.Color = colors[i%len(colors)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}
	return nil
}

func xys(t, v []float64) plotter.XYs {
	pts := make(plotter.XYs, len(t))
	for i := range t {
		pts[i] = plotter.XY{X: t[i], Y: v[i]}
	}
	return pts
}

// Gap plots the observed gap against the simulated one.
func Gap(res *simulate.Result) (*gonumplot.Plot, error) {
	if res == nil || res.Len() == 0 {
		return nil, errNoSteps
	}
	p := newPlot(fmt.Sprintf("Follower %d - Gap (%s)", res.FollowerID[0], res.Params), "Gap (m)")
	err := addLines(p, []series{
		{"observed", xys(res.Time, res.ObservedGap)},
		{"simulated", xys(res.Time, res.Gap)},
	}, generateColors(2))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Speed plots the simulated follower speed in unit.
func Speed(res *simulate.Result, unit string) (*gonumplot.Plot, error) {
	if res == nil || res.Len() == 0 {
		return nil, errNoSteps
	}
	speed := make([]float64, res.Len())
	for i, v := range res.Speed {
		speed[i] = units.ConvertSpeed(v, unit)
	}
	p := newPlot(fmt.Sprintf("Follower %d - Simulated Speed", res.FollowerID[0]), units.ColumnLabel(unit))
	if err := addLines(p, []series{{"simulated", xys(res.Time, speed)}}, generateColors(1)); err != nil {
		return nil, err
	}
	return p, nil
}

// Compare overlays the simulated gap of several runs of the same follower
// with the observed gap of the first.
func Compare(results []*simulate.Result) (*gonumplot.Plot, error) {
	runs := make([]*simulate.Result, 0, len(results))
	for _, res := range results {
		if res != nil && res.Len() > 0 {
			runs = append(runs, res)
		}
	}
	if len(runs) == 0 {
		return nil, errNoSteps
	}
	first := runs[0]
	ss := []series{{"observed", xys(first.Time, first.ObservedGap)}}
	for _, res := range runs {
		ss = append(ss, series{res.Params.String(), xys(res.Time, res.Gap)})
	}
	p := newPlot(fmt.Sprintf("Follower %d - Gap by Parameter Set", first.FollowerID[0]), "Gap (m)")
	if err := addLines(p, ss, generateColors(len(ss))); err != nil {
		return nil, err
	}
	return p, nil
}

// WriteRun saves the gap and speed plots of res into dir and returns the
// written file paths.
func WriteRun(dir string, res *simulate.Result, unit string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	gap, err := Gap(res)
	if err != nil {
		return nil, err
	}
	speed, err := Speed(res, unit)
	if err != nil {
		return nil, err
	}

	id := res.FollowerID[0]
	gapFile := filepath.Join(dir, fmt.Sprintf("follower_%d_gap.png", id))
	if err := gap.Save(width, height, gapFile); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", gapFile, err)
	}
	speedFile := filepath.Join(dir, fmt.Sprintf("follower_%d_speed.png", id))
	if err := speed.Save(width, height, speedFile); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", speedFile, err)
	}
	return []string{gapFile, speedFile}, nil
}

// WriteComparison saves the Compare plot of results into dir.
func WriteComparison(dir string, results []*simulate.Result) (string, error) {
	p, err := Compare(results)
	if err != nil {
		return "", err
	}
	first := results[0]
	for _, res := range results {
		if res != nil && res.Len() > 0 {
			first = res
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plot directory: %w", err)
	}
	file := filepath.Join(dir, fmt.Sprintf("follower_%d_compare.png", first.FollowerID[0]))
	if err := p.Save(width, height, file); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", file, err)
	}
	return file, nil
}

// generateColors spreads n colours evenly around the hue wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
