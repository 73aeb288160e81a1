// Package dynamo provides the shared vocabulary of the lab.
//
// The package defines the fundamental interfaces and types used by the
// rigid-body pipeline, the environments and the rollout driver:
//
//   - [State]: flat vector holding positions followed by velocities
//   - [Control]: action vector consumed once per step
//   - [System]: ODE system (dX/dt = f(X, u, t))
//   - [SecondOrder]: system whose state splits into q and qd
//   - [Integrator]: numerical stepper over a [System]
//
// # Errors
//
// Every failure surfaced by the lab wraps one of [ErrParse], [ErrConfig],
// [ErrDivergence] or [ErrIO], so callers can branch with errors.Is:
//
//	if errors.Is(err, dynamo.ErrConfig) {
//	    // nothing was simulated
//	}
package dynamo
