package metrics

import "github.com/landcbrown/ParticleSim/internal/engine"

// Containment reports the fraction of observed body positions that lie
// inside the arena. Walls reflect velocities without clamping, so fast
// bodies can finish a tick partly outside; a value well below 1 means dt is
// too large for the speeds involved.
type Containment struct {
	name          string
	width, height float64
	inside        int
	samples       int
}

func NewContainment(width, height float64) *Containment {
	return &Containment{
		name:   "containment",
		width:  width,
		height: height,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(s engine.Snapshot) {
	for i := range s.Bodies {
		b := &s.Bodies[i]
		c.samples++
		if b.IsValid() && b.Pos.X >= 0 && b.Pos.X <= c.width && b.Pos.Y >= 0 && b.Pos.Y <= c.height {
			c.inside++
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return float64(c.inside) / float64(c.samples)
}

func (c *Containment) Reset() {
	c.inside = 0
	c.samples = 0
}
