// Package rollout drives a stepper for a fixed number of steps and records
// the resulting trajectory.
//
// The driver owns the PRNG key: every step splits it once and hands the
// fresh subkey to the action source, so a run is reproducible from its seed.
// On failure Run returns the frames recorded so far together with the
// error.
package rollout
