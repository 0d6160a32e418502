package metrics

import "github.com/landcbrown/ParticleSim/internal/engine"

// ContactRate reports the mean number of resolved contacts per tick.
type ContactRate struct {
	name    string
	sum     int
	samples int
}

func NewContactRate() *ContactRate {
	return &ContactRate{name: "contacts_per_tick"}
}

func (c *ContactRate) Name() string { return c.name }

func (c *ContactRate) Observe(s engine.Snapshot) {
	c.sum += s.Stats.Contacts
	c.samples++
}

func (c *ContactRate) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.sum) / float64(c.samples)
}

func (c *ContactRate) Reset() {
	c.sum = 0
	c.samples = 0
}
