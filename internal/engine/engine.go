// Package engine advances a population of circular bodies inside a
// rectangular arena.
//
// Each Step integrates every body, reflects velocities at the walls, rebuilds
// the spatial grid and resolves every overlapping pair found by the
// broad phase. The engine owns its bodies in a flat slice; the grid stores
// indices into that slice and is rebuilt from scratch every tick.
//
// Step, AddBody and every read accessor serialize on one mutex, so a driver
// goroutine may step while another goroutine renders. Temperature changes
// are queued and applied atomically at the start of the next Step.
package engine

import (
	"fmt"
	"math"
	"sync"

	"github.com/landcbrown/ParticleSim/internal/collision"
	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/spatial"
	"go.uber.org/zap"
)

// DefaultReferenceTemperature is the temperature the initial velocities are
// assumed to correspond to.
const DefaultReferenceTemperature = 1.0

// ContactFunc is called for every overlapping pair resolved during a Step,
// with the indices of both bodies. It runs while the engine lock is held and
// must not call back into the engine.
type ContactFunc func(i, j int, c collision.Contact)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithContactListener registers fn to observe resolved contacts.
func WithContactListener(fn ContactFunc) Option {
	return func(e *Engine) { e.onContact = fn }
}

// WithReferenceTemperature sets the temperature the seeded velocities
// correspond to. Non-positive values are ignored.
func WithReferenceTemperature(t float64) Option {
	return func(e *Engine) {
		if t > 0 && !math.IsInf(t, 0) {
			e.temperature = t
			e.target = t
		}
	}
}

// Stats are running counters maintained by Step.
type Stats struct {
	Ticks         uint64  `json:"ticks"`
	Time          float64 `json:"time"`
	Contacts      int     `json:"contacts"`
	TotalContacts uint64  `json:"total_contacts"`
	WallHits      int     `json:"wall_hits"`
	TotalWallHits uint64  `json:"total_wall_hits"`
	Degenerate    uint64  `json:"degenerate"`
	Rejected      uint64  `json:"rejected"`
}

// Snapshot is a consistent copy of the engine state between two ticks.
type Snapshot struct {
	Tick        uint64
	Time        float64
	Temperature float64
	Bodies      []dynamo.Body
	Stats       Stats
}

// Engine is the simulation core.
type Engine struct {
	mu          sync.Mutex
	width       float64
	height      float64
	cellSize    float64
	bodies      []dynamo.Body
	grid        *spatial.Grid
	temperature float64
	stats       Stats
	onContact   ContactFunc
	log         *zap.Logger

	cmdMu   sync.Mutex
	pending []float64
	target  float64
}

// New creates an empty engine for a width x height arena partitioned into
// cells of cellSize.
func New(width, height, cellSize float64, opts ...Option) (*Engine, error) {
	for _, v := range []float64{width, height, cellSize} {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("arena %gx%g cell %g: %w", width, height, cellSize, dynamo.ErrInvalidArena)
		}
	}

	e := &Engine{
		width:       width,
		height:      height,
		cellSize:    cellSize,
		bodies:      make([]dynamo.Body, 0),
		grid:        spatial.NewGrid(width, height, cellSize),
		temperature: DefaultReferenceTemperature,
		target:      DefaultReferenceTemperature,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AddBody registers a body and returns its index. Bodies with a
// non-positive radius or mass are rejected and nothing is inserted.
func (e *Engine) AddBody(x, y, vx, vy, radius, mass float64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := dynamo.NewBody(x, y, vx, vy, radius, mass)
	if err != nil {
		return -1, &dynamo.BodyError{Index: len(e.bodies), Radius: radius, Mass: mass, Wrapped: err}
	}
	e.bodies = append(e.bodies, b)
	return len(e.bodies) - 1, nil
}

// Step advances the simulation by dt. A non-positive or non-finite dt is
// rejected with a *dynamo.StepError and the state is left unchanged.
func (e *Engine) Step(dt float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !(dt > 0) || math.IsInf(dt, 0) {
		e.stats.Rejected++
		e.log.Warn("step rejected", zap.Uint64("tick", e.stats.Ticks), zap.Float64("dt", dt))
		return &dynamo.StepError{Tick: e.stats.Ticks, Dt: dt, Wrapped: dynamo.ErrInvalidStep}
	}

	e.applyPending()

	wallHits := 0
	for i := range e.bodies {
		b := &e.bodies[i]
		b.Integrate(dt)
		wallHits += e.reflect(b)
	}

	e.rebuild()
	contacts := e.resolveContacts()

	e.stats.Ticks++
	e.stats.Time += dt
	e.stats.Contacts = contacts
	e.stats.TotalContacts += uint64(contacts)
	e.stats.WallHits = wallHits
	e.stats.TotalWallHits += uint64(wallHits)
	return nil
}

// reflect negates the velocity component on each axis where the body's edge
// is past a wall. Position is not clamped; a body may finish the tick
// outside the arena and come back on the next one.
func (e *Engine) reflect(b *dynamo.Body) int {
	hits := 0
	r := b.Radius()
	if b.Pos.X-r < 0 || b.Pos.X+r > e.width {
		b.Vel.X = -b.Vel.X
		hits++
	}
	if b.Pos.Y-r < 0 || b.Pos.Y+r > e.height {
		b.Vel.Y = -b.Vel.Y
		hits++
	}
	return hits
}

func (e *Engine) rebuild() {
	e.grid.Clear()
	for i := range e.bodies {
		e.grid.Insert(i, e.bodies[i].Pos.X, e.bodies[i].Pos.Y)
	}
}

func (e *Engine) resolveContacts() int {
	n := 0
	for i, j := range e.grid.CandidatePairs() {
		a, b := &e.bodies[i], &e.bodies[j]
		if !collision.Overlaps(a, b) {
			continue
		}
		c := collision.Resolve(a, b)
		n++
		if c.Degenerate {
			e.stats.Degenerate++
			e.log.Debug("coincident bodies separated along fallback normal", zap.Int("a", i), zap.Int("b", j))
		}
		if e.onContact != nil {
			e.onContact(i, j, c)
		}
	}
	return n
}

// Bodies returns the read-only view of every body in insertion order.
func (e *Engine) Bodies() []dynamo.BodyView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]dynamo.BodyView, len(e.bodies))
	for i := range e.bodies {
		views[i] = e.bodies[i].View()
	}
	return views
}

// State returns a copy of every body in insertion order.
func (e *Engine) State() []dynamo.Body {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyBodies()
}

// Snapshot returns bodies, stats and temperature taken under one lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Tick:        e.stats.Ticks,
		Time:        e.stats.Time,
		Temperature: e.temperature,
		Bodies:      e.copyBodies(),
		Stats:       e.stats,
	}
}

func (e *Engine) copyBodies() []dynamo.Body {
	out := make([]dynamo.Body, len(e.bodies))
	copy(out, e.bodies)
	return out
}

// Len returns the number of registered bodies.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.bodies)
}

// Stats returns a copy of the running counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Arena returns the arena dimensions and cell size.
func (e *Engine) Arena() (width, height, cellSize float64) {
	return e.width, e.height, e.cellSize
}

// KineticEnergy returns Σ ½mᵢ|vᵢ|².
func (e *Engine) KineticEnergy() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return KineticEnergy(e.bodies)
}

// Momentum returns Σ mᵢvᵢ.
func (e *Engine) Momentum() dynamo.Vec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Momentum(e.bodies)
}

// KineticEnergy sums the kinetic energy of bodies.
func KineticEnergy(bodies []dynamo.Body) float64 {
	sum := 0.0
	for i := range bodies {
		sum += bodies[i].KineticEnergy()
	}
	return sum
}

// Momentum sums the momentum of bodies.
func Momentum(bodies []dynamo.Body) dynamo.Vec {
	var p dynamo.Vec
	for i := range bodies {
		p = p.Add(bodies[i].Momentum())
	}
	return p
}
