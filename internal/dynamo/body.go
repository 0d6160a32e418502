package dynamo

import "math"

// Vec is a 2D vector.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }
func (v Vec) Dot(o Vec) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec) Len() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec) Perp() Vec           { return Vec{-v.Y, v.X} }
func (v Vec) IsFinite() bool      { return isFinite(v.X) && isFinite(v.Y) }

// DistSq returns the squared distance between v and o.
func (v Vec) DistSq(o Vec) float64 {
	d := v.Sub(o)
	return d.Dot(d)
}

// Body is one circular mass. Radius and mass are fixed at construction;
// position and velocity change only through integration and collision
// resolution.
type Body struct {
	Pos    Vec
	Vel    Vec
	radius float64
	mass   float64
}

// NewBody validates radius and mass and returns the body.
func NewBody(x, y, vx, vy, radius, mass float64) (Body, error) {
	if !(radius > 0) || !(mass > 0) || math.IsInf(radius, 0) || math.IsInf(mass, 0) {
		return Body{}, ErrInvalidBody
	}
	return Body{
		Pos:    Vec{x, y},
		Vel:    Vec{vx, vy},
		radius: radius,
		mass:   mass,
	}, nil
}

func (b *Body) Radius() float64 { return b.radius }
func (b *Body) Mass() float64   { return b.mass }

// Integrate translates the body by its velocity over dt. No clamping.
func (b *Body) Integrate(dt float64) {
	b.Pos.X += b.Vel.X * dt
	b.Pos.Y += b.Vel.Y * dt
}

// KineticEnergy returns ½m|v|².
func (b *Body) KineticEnergy() float64 {
	return 0.5 * b.mass * b.Vel.Dot(b.Vel)
}

// Momentum returns m·v.
func (b *Body) Momentum() Vec {
	return b.Vel.Scale(b.mass)
}

// IsValid reports whether position and velocity are finite.
func (b *Body) IsValid() bool {
	return b.Pos.IsFinite() && b.Vel.IsFinite()
}

// View returns the read-only projection used by renderers.
func (b *Body) View() BodyView {
	return BodyView{X: b.Pos.X, Y: b.Pos.Y, Radius: b.radius}
}

// BodyView is what rendering collaborators see of a body: a filled circle
// of diameter 2·Radius centered at (X, Y).
type BodyView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"r"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
