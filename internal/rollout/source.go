package rollout

import (
	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/ppo"
	"github.com/san-kum/trajlab/internal/rng"
)

// ActionSource picks the action for the next step.
type ActionSource interface {
	Action(s envs.State, key rng.Key) (dynamo.Control, error)
}

// ActionFunc adapts a plain function to ActionSource.
type ActionFunc func(s envs.State, key rng.Key) (dynamo.Control, error)

func (f ActionFunc) Action(s envs.State, key rng.Key) (dynamo.Control, error) {
	return f(s, key)
}

type zero struct{ n int }

// Zero always returns the zero action of length n.
func Zero(n int) ActionSource { return zero{n: n} }

func (z zero) Action(envs.State, rng.Key) (dynamo.Control, error) {
	if z.n < 0 {
		return nil, dynamo.Configf("action size must be >= 0, got %d", z.n)
	}
	return make(dynamo.Control, z.n), nil
}

type policy struct {
	fn     ppo.DecisionFunc
	params *ppo.Params
}

// Policy feeds each observation through fn with params.
func Policy(fn ppo.DecisionFunc, params *ppo.Params) ActionSource {
	return policy{fn: fn, params: params}
}

func (p policy) Action(s envs.State, key rng.Key) (dynamo.Control, error) {
	if p.fn == nil || p.params == nil {
		return nil, dynamo.Configf("policy source needs a decision function and params")
	}
	if len(s.Obs) != p.params.ObservationSize {
		return nil, dynamo.Configf("observation has %d values, policy expects %d", len(s.Obs), p.params.ObservationSize)
	}
	act, _ := p.fn(p.params, s.Obs, key)
	return act, nil
}
