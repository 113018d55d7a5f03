// Package dynamo provides the core types shared by the chain simulator.
//
// The package defines the data model of a run:
//
//   - [State]: flat 3N vector of positions, velocities or forces
//   - [Config]: immutable run configuration with [Config.Validate]
//   - [Frame]: one sampled trajectory line
//   - [Summary]: reduced statistics of a trajectory
//
// # Errors
//
// Configuration problems are reported as [ErrParameterBounds] or
// [ErrDimensionMismatch] before any stepping. A collapsed bond during force
// evaluation is reported as [ErrDegenerateBond]; runs that abort wrap the
// cause in a [SimulationError].
package dynamo
