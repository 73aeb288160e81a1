package envs

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/rng"
)

func TestGetUnknown(t *testing.T) {
	if _, err := Get("cheetah"); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestNames(t *testing.T) {
	if got, want := Names(), []string{"ant", "humanoid"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"episode length", WithEpisodeLength(-1)},
		{"action repeat", WithActionRepeat(0)},
		{"integrator", WithIntegrator("leapfrog")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Get("ant", tt.opt); !errors.Is(err, dynamo.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
			if _, err := NewFactory("ant", tt.opt); !errors.Is(err, dynamo.ErrConfig) {
				t.Errorf("factory: expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestSizes(t *testing.T) {
	tests := []struct {
		name    string
		actions int
	}{
		{"humanoid", 17},
		{"ant", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Get(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if env.ActionSize() != tt.actions {
				t.Errorf("ActionSize = %d, want %d", env.ActionSize(), tt.actions)
			}
			s, err := env.Reset(rng.New(0))
			if err != nil {
				t.Fatal(err)
			}
			if len(s.Obs) != env.ObservationSize() {
				t.Errorf("len(Obs) = %d, ObservationSize = %d", len(s.Obs), env.ObservationSize())
			}
			if env.Name() != tt.name || env.Scene() == nil {
				t.Error("Name/Scene not set")
			}
		})
	}
}

func TestResetIsDeterministic(t *testing.T) {
	env, err := Get("ant")
	if err != nil {
		t.Fatal(err)
	}
	a, err := env.Reset(rng.New(5))
	if err != nil {
		t.Fatal(err)
	}
	b, err := env.Reset(rng.New(5))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same key produced different initial states")
	}

	c, err := env.Reset(rng.New(6))
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a.Obs, c.Obs) {
		t.Error("different keys produced identical observations")
	}
}

func TestStepDoesNotMutateInput(t *testing.T) {
	env, err := Get("humanoid")
	if err != nil {
		t.Fatal(err)
	}
	s, err := env.Reset(rng.New(1))
	if err != nil {
		t.Fatal(err)
	}
	before := State{
		Pipeline: s.Pipeline.Clone(),
		Obs:      append([]float64(nil), s.Obs...),
		Metrics:  map[string]float64{},
	}
	for k, v := range s.Metrics {
		before.Metrics[k] = v
	}

	action := make([]float64, env.ActionSize())
	for i := range action {
		action[i] = 0.5
	}
	next, err := env.Step(s, action)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, before) {
		t.Error("Step mutated its input")
	}
	if next.Steps != 1 {
		t.Errorf("Steps = %d, want 1", next.Steps)
	}

	want := 0.1 * 0.25 * float64(len(action))
	if math.Abs(next.Metrics["ctrl_cost"]-want) > 1e-12 {
		t.Errorf("ctrl_cost = %v, want %v", next.Metrics["ctrl_cost"], want)
	}
	sum := next.Metrics["forward_reward"] + next.Metrics["healthy_reward"] - next.Metrics["ctrl_cost"]
	if math.Abs(next.Reward-sum) > 1e-12 {
		t.Errorf("reward %v does not add up to %v", next.Reward, sum)
	}
}

func TestStepRejectsBadAction(t *testing.T) {
	env, err := Get("ant")
	if err != nil {
		t.Fatal(err)
	}
	s, err := env.Reset(rng.New(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Step(s, []float64{1}); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestEpisodeLength(t *testing.T) {
	env, err := Get("ant", WithEpisodeLength(3))
	if err != nil {
		t.Fatal(err)
	}
	s, err := env.Reset(rng.New(2))
	if err != nil {
		t.Fatal(err)
	}
	action := make([]float64, env.ActionSize())
	for i := 0; i < 3; i++ {
		if s.Done {
			t.Fatalf("done after %d steps", i)
		}
		if s, err = env.Step(s, action); err != nil {
			t.Fatal(err)
		}
	}
	if !s.Done {
		t.Error("episode did not end at its length")
	}
	if s.Metrics["healthy_reward"] > 0 && !s.Truncated {
		t.Error("healthy time-out should be marked truncated")
	}
}

func TestUnhealthyIsDone(t *testing.T) {
	env, err := Get("humanoid")
	if err != nil {
		t.Fatal(err)
	}
	s, err := env.Reset(rng.New(3))
	if err != nil {
		t.Fatal(err)
	}
	lifted := s.Pipeline.Clone()
	for i := 0; i < env.Scene().NumBodies(); i++ {
		lifted.Q[7*i+2] += 2
	}
	s.Pipeline = lifted

	next, err := env.Step(s, make([]float64, env.ActionSize()))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Done || next.Truncated {
		t.Error("torso above the healthy band should terminate the episode")
	}
	if next.Metrics["healthy_reward"] != 0 {
		t.Errorf("healthy reward = %v, want 0", next.Metrics["healthy_reward"])
	}
}

func TestActionRepeat(t *testing.T) {
	env, err := Get("ant", WithActionRepeat(3))
	if err != nil {
		t.Fatal(err)
	}
	s, err := env.Reset(rng.New(4))
	if err != nil {
		t.Fatal(err)
	}
	next, err := env.Step(s, make([]float64, env.ActionSize()))
	if err != nil {
		t.Fatal(err)
	}
	want := 3 * env.Scene().Timestep()
	if math.Abs(next.Pipeline.Time-want) > 1e-12 {
		t.Errorf("time = %v, want %v", next.Pipeline.Time, want)
	}
}

func TestFactoryBuildsIndependentEnvs(t *testing.T) {
	f, err := NewFactory("ant")
	if err != nil {
		t.Fatal(err)
	}
	a, err := f()
	if err != nil {
		t.Fatal(err)
	}
	b, err := f()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("factory returned the same instance twice")
	}

	c, err := f(WithEpisodeLength(1))
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.Reset(rng.New(0))
	if err != nil {
		t.Fatal(err)
	}
	if s, err = c.Step(s, make([]float64, c.ActionSize())); err != nil {
		t.Fatal(err)
	}
	if !s.Done {
		t.Error("factory options were not applied")
	}
}
