package metrics

import (
	"github.com/san-kum/trajlab/internal/rollout"
)

// Stability is the fraction of frames in which the episode was still
// running.
type Stability struct {
	name    string
	done    int
	samples int
}

func NewStability() *Stability {
	return &Stability{
		name: "stability",
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(_ int, f rollout.Frame) {
	s.samples++
	if f.Done {
		s.done++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.done)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.done = 0
	s.samples = 0
}
