// Package metrics summarises trajectories frame by frame. Every metric is a
// rollout.Observer, so it can be attached to a run or replayed over a
// stored trajectory.
package metrics

import (
	"github.com/san-kum/trajlab/internal/rollout"
)

type Metric interface {
	rollout.Observer
	Name() string
	Value() float64
	Reset()
}

// Observers converts metrics for rollout.Config.
func Observers(ms ...Metric) []rollout.Observer {
	out := make([]rollout.Observer, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// Collect gathers the current values keyed by name.
func Collect(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Replay resets ms and feeds them every frame of traj.
func Replay(traj *rollout.Trajectory, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	for i := 0; i < traj.Len(); i++ {
		f := traj.Frame(i)
		for _, m := range ms {
			m.Observe(i, f)
		}
	}
	return Collect(ms...)
}
