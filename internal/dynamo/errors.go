package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidBody indicates a body with a non-positive or non-finite radius or mass.
	ErrInvalidBody = errors.New("dynamo: invalid body (radius and mass must be positive)")

	// ErrInvalidStep indicates a non-positive or non-finite timestep.
	ErrInvalidStep = errors.New("dynamo: invalid step (dt must be positive and finite)")

	// ErrInvalidArena indicates non-positive or non-finite arena dimensions or cell size.
	ErrInvalidArena = errors.New("dynamo: invalid arena (width, height and cell size must be positive)")

	// ErrInvalidTemperature indicates a rescale target that is not a positive finite number.
	ErrInvalidTemperature = errors.New("dynamo: invalid temperature")

	// ErrDegenerateCollision indicates two bodies with coincident centers.
	// The collision resolver handles it with a fixed fallback normal; it is
	// never returned to engine callers.
	ErrDegenerateCollision = errors.New("dynamo: degenerate collision (coincident centers)")
)

// BodyError wraps a rejected body registration with its attributes.
type BodyError struct {
	Index   int
	Radius  float64
	Mass    float64
	Wrapped error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("body %d (radius=%g, mass=%g): %v", e.Index, e.Radius, e.Mass, e.Wrapped)
}

func (e *BodyError) Unwrap() error {
	return e.Wrapped
}

// StepError wraps a rejected step with the tick it was requested on.
type StepError struct {
	Tick    uint64
	Dt      float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("tick %d (dt=%g): %v", e.Tick, e.Dt, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
