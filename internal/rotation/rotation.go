// Package rotation maps points between the site frame and the road-aligned
// frame used for longitudinal simulation.
package rotation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultAngleDeg aligns the recorded road segment with the x axis.
const DefaultAngleDeg = 26.5

// Point is a 2D position in metres.
type Point struct {
	X float64
	Y float64
}

// Rotate rotates p by angleDeg (counter-clockwise) about origin.
func Rotate(p Point, angleDeg float64, origin Point) Point {
	v := r2.Rotate(r2.Vec{X: p.X, Y: p.Y}, angleDeg*math.Pi/180.0, r2.Vec{X: origin.X, Y: origin.Y})
	return Point{X: v.X, Y: v.Y}
}

// Unrotate reverses Rotate for the same angle and origin.
func Unrotate(p Point, angleDeg float64, origin Point) Point {
	return Rotate(p, -angleDeg, origin)
}

// Rotator binds a fixed heading angle and pivot.
type Rotator struct {
	AngleDeg float64
	Origin   Point
}

// NewRotator returns a Rotator pivoting about (0,0).
func NewRotator(angleDeg float64) Rotator {
	return Rotator{AngleDeg: angleDeg}
}

// Default returns the rotator for the recorded site.
func Default() Rotator {
	return NewRotator(DefaultAngleDeg)
}

// ToRoad maps a site-frame point into the road frame.
func (r Rotator) ToRoad(p Point) Point {
	return Rotate(p, r.AngleDeg, r.Origin)
}

// ToSite maps a road-frame point back into the site frame.
func (r Rotator) ToSite(p Point) Point {
	return Unrotate(p, r.AngleDeg, r.Origin)
}
