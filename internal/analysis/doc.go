// Package analysis provides frequency analysis of recorded trajectories.
//
// [PowerSpectrum] turns a uniformly sampled series, such as a body height
// from [rollout.Trajectory.Heights], into a one-sided power spectrum. The
// dominant frequency of a torso height is the gait cadence of a walk:
//
//	sp, err := analysis.PowerSpectrum(traj.Heights(0), dt)
//	freq, _ := sp.Dominant()
package analysis
