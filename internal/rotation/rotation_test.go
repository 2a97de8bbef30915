package rotation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotate_QuarterTurn(t *testing.T) {
	got := Rotate(Point{X: 1, Y: 0}, 90, Point{})
	assert.InDelta(t, 0.0, got.X, 1e-12)
	assert.InDelta(t, 1.0, got.Y, 1e-12)
}

func TestRotate_AboutOrigin(t *testing.T) {
	// (2,1) about (1,1) by 180° lands on (0,1).
	got := Rotate(Point{X: 2, Y: 1}, 180, Point{X: 1, Y: 1})
	assert.InDelta(t, 0.0, got.X, 1e-12)
	assert.InDelta(t, 1.0, got.Y, 1e-12)
}

func TestRotate_MatchesMatrixForm(t *testing.T) {
	p := Point{X: 12.5, Y: -3.25}
	rad := DefaultAngleDeg * math.Pi / 180
	wantX := p.X*math.Cos(rad) - p.Y*math.Sin(rad)
	wantY := p.X*math.Sin(rad) + p.Y*math.Cos(rad)

	got := Rotate(p, DefaultAngleDeg, Point{})
	assert.InDelta(t, wantX, got.X, 1e-9)
	assert.InDelta(t, wantY, got.Y, 1e-9)
}

func TestRoundTrip(t *testing.T) {
	points := []Point{
		{0, 0},
		{1, 0},
		{-73.2, 410.9},
		{1e4, -2.5e3},
		{0.001, 0.002},
	}
	angles := []float64{0, 26.5, -26.5, 90, 181.3, 359.999}
	origins := []Point{{}, {X: 10, Y: -4}}

	for _, p := range points {
		for _, a := range angles {
			for _, o := range origins {
				got := Unrotate(Rotate(p, a, o), a, o)
				tol := 1e-9 * math.Max(1, math.Hypot(p.X, p.Y))
				if math.Abs(got.X-p.X) > tol || math.Abs(got.Y-p.Y) > tol {
					t.Errorf("round trip of %+v at %.3f° about %+v = %+v", p, a, o, got)
				}
			}
		}
	}
}

func TestRotator(t *testing.T) {
	r := Default()
	assert.Equal(t, DefaultAngleDeg, r.AngleDeg)

	p := Point{X: 35.1, Y: 18.4}
	back := r.ToSite(r.ToRoad(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}
