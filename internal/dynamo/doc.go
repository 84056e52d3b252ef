// Package dynamo provides the core simulation primitives shared by the
// multibody engine and its drivers.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: flat vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Metric], [Observer]: per-step instrumentation hooks
//
// Unlike an unconstrained ODE, a constrained multibody evaluation can
// fail (the dense solve behind Derive may be singular), so Derive and
// Step return errors and a failed step must terminate the run.
//
// # Thread Safety
//
// Simulator and integrator instances are NOT thread-safe; the whole
// pipeline is a strictly sequential computation.
package dynamo
