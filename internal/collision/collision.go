// Package collision implements the narrow phase: the overlap test and the
// elastic response for a pair of circular bodies.
package collision

import "github.com/landcbrown/ParticleSim/internal/dynamo"

// fallbackNormal separates coincident bodies along +x.
var fallbackNormal = dynamo.Vec{X: 1, Y: 0}

// Contact describes one resolved pair.
type Contact struct {
	// Normal points from b towards a.
	Normal dynamo.Vec
	// Overlap is the penetration depth that was removed.
	Overlap float64
	// Degenerate is set when the centers coincided and Normal is the fallback.
	Degenerate bool
}

// Overlaps reports whether the distance between the centers of a and b is
// strictly less than the sum of their radii.
func Overlaps(a, b *dynamo.Body) bool {
	r := a.Radius() + b.Radius()
	return a.Pos.DistSq(b.Pos) < r*r
}

// Resolve separates an overlapping pair and applies the elastic response.
//
// Positions are pushed apart along the contact normal, each body moving in
// proportion to the other's mass so the pair ends exactly touching. Velocities
// keep their tangential components; the normal components follow the 1D
// elastic collision formula, conserving momentum and kinetic energy.
func Resolve(a, b *dynamo.Body) Contact {
	n, dist, err := normal(a, b)
	c := Contact{Normal: n, Degenerate: err != nil}

	m1, m2 := a.Mass(), b.Mass()
	total := m1 + m2

	c.Overlap = a.Radius() + b.Radius() - dist
	if c.Overlap > 0 {
		a.Pos = a.Pos.Add(n.Scale(c.Overlap * m2 / total))
		b.Pos = b.Pos.Sub(n.Scale(c.Overlap * m1 / total))
	}

	t := n.Perp()
	v1t, v2t := a.Vel.Dot(t), b.Vel.Dot(t)
	v1n, v2n := a.Vel.Dot(n), b.Vel.Dot(n)

	u1 := (v1n*(m1-m2) + 2*m2*v2n) / total
	u2 := (v2n*(m2-m1) + 2*m1*v1n) / total

	a.Vel = t.Scale(v1t).Add(n.Scale(u1))
	b.Vel = t.Scale(v2t).Add(n.Scale(u2))

	return c
}

// normal returns the unit vector from b to a and the center distance. For
// coincident centers it returns the fallback normal with
// dynamo.ErrDegenerateCollision.
func normal(a, b *dynamo.Body) (dynamo.Vec, float64, error) {
	d := a.Pos.Sub(b.Pos)
	dist := d.Len()
	if dist == 0 {
		return fallbackNormal, 0, dynamo.ErrDegenerateCollision
	}
	return d.Scale(1 / dist), dist, nil
}
