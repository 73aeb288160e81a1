// Package envs provides named locomotion environments on top of the physics
// pipeline.
//
// An Env is a pure state machine: Reset builds a State from a key and Step
// returns a new State without touching its input. Episodes are not reset
// automatically; callers decide what to do once Done is set.
package envs

import (
	"sort"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/rng"
	"github.com/san-kum/trajlab/internal/scene"
)

type State struct {
	Pipeline physics.State
	Obs      []float64
	Reward   float64
	Done     bool
	// Truncated is set when Done comes only from the episode length.
	Truncated bool
	Metrics   map[string]float64
	Steps     int
}

type Env interface {
	Name() string
	Scene() *scene.Scene
	ObservationSize() int
	ActionSize() int
	Reset(key rng.Key) (State, error)
	Step(s State, action []float64) (State, error)
}

// Factory builds fresh, independent environment instances. Options given
// to the call are applied after the ones the factory was made with.
type Factory func(opts ...Option) (Env, error)

type options struct {
	episodeLength int
	actionRepeat  int
	integrator    string
}

type Option func(*options)

// WithEpisodeLength marks a state Done after n steps. Zero means unlimited.
func WithEpisodeLength(n int) Option {
	return func(o *options) { o.episodeLength = n }
}

// WithActionRepeat applies every action for n physics steps.
func WithActionRepeat(n int) Option {
	return func(o *options) { o.actionRepeat = n }
}

// WithIntegrator selects the physics integrator by name.
func WithIntegrator(name string) Option {
	return func(o *options) { o.integrator = name }
}

var registry = map[string]task{
	"humanoid": humanoidTask,
	"ant":      antTask,
}

func Get(name string, opts ...Option) (Env, error) {
	t, ok := registry[name]
	if !ok {
		return nil, dynamo.Configf("unknown environment: %s (available: %v)", name, Names())
	}
	o := options{actionRepeat: 1, integrator: "symplectic"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.episodeLength < 0 {
		return nil, dynamo.Configf("episode length must be >= 0, got %d", o.episodeLength)
	}
	if o.actionRepeat < 1 {
		return nil, dynamo.Configf("action repeat must be >= 1, got %d", o.actionRepeat)
	}
	env, err := newLocomotion(name, t, o)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// NewFactory validates name and options once and returns a Factory for
// them.
func NewFactory(name string, opts ...Option) (Factory, error) {
	if _, err := Get(name, opts...); err != nil {
		return nil, err
	}
	base := append([]Option(nil), opts...)
	return func(extra ...Option) (Env, error) {
		return Get(name, append(append([]Option(nil), base...), extra...)...)
	}, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
