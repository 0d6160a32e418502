package engine

import (
	"fmt"
	"math"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"go.uber.org/zap"
)

// SetTemperature queues a rescale of every velocity to temperature t. The
// rescale is applied at the start of the next Step (or by ApplyPending), so
// it never interleaves with integration. Velocities are multiplied by
// sqrt(t / current), after which t becomes the current temperature.
func (e *Engine) SetTemperature(t float64) error {
	if !(t > 0) || math.IsInf(t, 0) {
		return fmt.Errorf("temperature %g: %w", t, dynamo.ErrInvalidTemperature)
	}

	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	e.pending = append(e.pending, t)
	e.target = t
	return nil
}

// Temperature returns the most recently requested temperature, applied or
// not.
func (e *Engine) Temperature() float64 {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	return e.target
}

// ApplyPending applies queued temperature changes immediately, taking the
// same lock as Step. Drivers use it while paused.
func (e *Engine) ApplyPending() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyPending()
}

// applyPending must be called with e.mu held.
func (e *Engine) applyPending() {
	e.cmdMu.Lock()
	queue := e.pending
	e.pending = nil
	e.cmdMu.Unlock()

	for _, t := range queue {
		factor := math.Sqrt(t / e.temperature)
		for i := range e.bodies {
			e.bodies[i].Vel = e.bodies[i].Vel.Scale(factor)
		}
		e.log.Info("temperature applied",
			zap.Float64("from", e.temperature),
			zap.Float64("to", t),
			zap.Float64("factor", factor),
		)
		e.temperature = t
	}
}
