// Package dynamo provides the core physical primitives of the particle
// simulator.
//
// The package defines the state that every other layer operates on:
//
//   - [Body]: a circular, mass-bearing body with position and velocity
//   - [BodyView]: a read-only projection (x, y, radius) handed to renderers
//   - [Vec]: a small 2D vector used by the collision response
//
// and the error taxonomy shared by the engine and its callers:
//
//   - [ErrInvalidBody]: non-positive or non-finite radius or mass
//   - [ErrInvalidStep]: non-positive or non-finite timestep
//   - [ErrInvalidTemperature]: rescale target that is not a positive number
//   - [ErrDegenerateCollision]: coincident centers (resolved internally)
//
// # Example
//
//	b, err := dynamo.NewBody(10, 10, 5, 0, 1, 1)
//	if err != nil {
//	    return err
//	}
//	b.Integrate(0.016)
//
// # Thread Safety
//
// Body values are plain data and are NOT thread-safe. The engine owns every
// body and serializes access to them.
package dynamo
