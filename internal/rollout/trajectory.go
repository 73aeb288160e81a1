package rollout

import (
	"github.com/san-kum/trajlab/internal/envs"
)

// Frame is the state reached after one step.
type Frame struct {
	Q      []float64
	QD     []float64
	Time   float64
	Action []float64
	Reward float64
	Done   bool
}

func frameOf(s envs.State, action []float64) Frame {
	return Frame{
		Q:      append([]float64(nil), s.Pipeline.Q...),
		QD:     append([]float64(nil), s.Pipeline.QD...),
		Time:   s.Pipeline.Time,
		Action: append([]float64(nil), action...),
		Reward: s.Reward,
		Done:   s.Done,
	}
}

// Trajectory is an ordered, append-only sequence of frames.
type Trajectory struct {
	frames []Frame
}

func NewTrajectory(capacity int) *Trajectory {
	if capacity < 0 {
		capacity = 0
	}
	return &Trajectory{frames: make([]Frame, 0, capacity)}
}

func (t *Trajectory) Append(f Frame) { t.frames = append(t.frames, f) }

func (t *Trajectory) Len() int { return len(t.frames) }

// Frame returns frame i. Callers must not modify its slices.
func (t *Trajectory) Frame(i int) Frame { return t.frames[i] }

// Frames returns a copy of the frame list.
func (t *Trajectory) Frames() []Frame {
	return append([]Frame(nil), t.frames...)
}

// Last returns the final frame and false when the trajectory is empty.
func (t *Trajectory) Last() (Frame, bool) {
	if len(t.frames) == 0 {
		return Frame{}, false
	}
	return t.frames[len(t.frames)-1], true
}

// Heights returns the z coordinate of body over time.
func (t *Trajectory) Heights(body int) []float64 {
	out := make([]float64, len(t.frames))
	for i, f := range t.frames {
		out[i] = f.Q[7*body+2]
	}
	return out
}
