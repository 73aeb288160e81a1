// Package ppo trains Gaussian policies with proximal policy optimisation.
//
// Training steps NumEnvs independent environments concurrently, computes
// generalised advantage estimates over fixed-length unrolls and optimises
// the clipped surrogate objective with an entropy bonus and a value loss,
// all with one Adam optimiser. Results are deterministic for a given seed:
// every environment owns its own key stream and results are gathered by
// index.
//
// The trained [Params] are the explicit handoff between training and
// inference. A [DecisionFunc] maps (params, observation, key) to an action
// and never mutates the params.
package ppo
