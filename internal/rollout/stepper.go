package rollout

import (
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/physics"
)

// Stepper advances a state by one step. envs.Env satisfies it.
type Stepper interface {
	Step(s envs.State, action []float64) (envs.State, error)
}

type pipelineStepper struct {
	p *physics.Pipeline
}

// Pipeline steps the bare physics pipeline. Rewards stay zero and Obs is
// empty.
func Pipeline(p *physics.Pipeline) Stepper { return pipelineStepper{p: p} }

func (s pipelineStepper) Step(st envs.State, action []float64) (envs.State, error) {
	next, err := s.p.Step(st.Pipeline, action)
	if err != nil {
		return st, err
	}
	return envs.State{Pipeline: next, Steps: st.Steps + 1}, nil
}

// FromPhysics wraps a pipeline state for use with Run.
func FromPhysics(s physics.State) envs.State {
	return envs.State{Pipeline: s}
}
