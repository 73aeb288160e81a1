package envs

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/integrators"
	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/rng"
	"github.com/san-kum/trajlab/internal/scene"
)

type task struct {
	scene          string
	torso          string
	forwardWeight  float64
	ctrlCostWeight float64
	healthyReward  float64
	healthyZ       [2]float64
	resetNoise     float64
}

var humanoidTask = task{
	scene:          "humanoid",
	torso:          "torso",
	forwardWeight:  1.25,
	ctrlCostWeight: 0.1,
	healthyReward:  5.0,
	healthyZ:       [2]float64{0.8, 2.0},
	resetNoise:     1e-2,
}

var antTask = task{
	scene:          "ant",
	torso:          "torso",
	forwardWeight:  1.0,
	ctrlCostWeight: 0.5,
	healthyReward:  1.0,
	healthyZ:       [2]float64{0.2, 1.0},
	resetNoise:     0.1,
}

// locomotion rewards forward torso velocity while the torso stays within a
// healthy height band.
type locomotion struct {
	name  string
	task  task
	opts  options
	sc    *scene.Scene
	pipe  *physics.Pipeline
	torso int
}

func newLocomotion(name string, t task, o options) (*locomotion, error) {
	sc, err := scene.Load(t.scene)
	if err != nil {
		return nil, err
	}
	integ, err := integrators.New(o.integrator)
	if err != nil {
		return nil, err
	}
	pipe, err := physics.New(sc, physics.WithIntegrator(integ))
	if err != nil {
		return nil, err
	}
	torso := sc.BodyIndex(t.torso)
	if torso < 0 {
		return nil, dynamo.Configf("scene %s has no body %q", t.scene, t.torso)
	}
	return &locomotion{name: name, task: t, opts: o, sc: sc, pipe: pipe, torso: torso}, nil
}

func (e *locomotion) Name() string        { return e.name }
func (e *locomotion) Scene() *scene.Scene { return e.sc }
func (e *locomotion) ActionSize() int     { return e.sc.ActSize() }

// ObservationSize is torso height and orientation, the other bodies relative
// to the torso, hinge angles and every velocity.
func (e *locomotion) ObservationSize() int {
	nb := e.sc.NumBodies()
	return 1 + 4 + 3*(nb-1) + e.pipe.NumHinges() + 6*nb
}

func (e *locomotion) Reset(key rng.Key) (State, error) {
	r := key.Rand()
	noise := e.task.resetNoise
	uniform := func() float64 { return noise * (2*r.Float64() - 1) }

	q := e.sc.InitQ()
	tilt := r3.Vec{X: uniform(), Y: uniform(), Z: uniform()}
	q = physics.Turn(q, physics.Position(q, e.torso), tilt)

	qd := e.sc.InitQD()
	for i := range qd {
		qd[i] = uniform()
	}

	ps, err := e.pipe.Init(q, qd)
	if err != nil {
		return State{}, err
	}
	return State{
		Pipeline: ps,
		Obs:      e.observe(ps),
		Metrics:  map[string]float64{"forward_reward": 0, "ctrl_cost": 0, "healthy_reward": 0, "x_velocity": 0},
	}, nil
}

func (e *locomotion) Step(s State, action []float64) (State, error) {
	if len(action) != e.ActionSize() {
		return s, dynamo.Configf("%s: action has %d values, want %d", e.name, len(action), e.ActionSize())
	}

	ps := s.Pipeline
	x0 := physics.Position(ps.Q, e.torso).X
	for i := 0; i < e.opts.actionRepeat; i++ {
		next, err := e.pipe.Step(ps, action)
		if err != nil {
			return s, err
		}
		ps = next
	}

	dt := e.pipe.Timestep() * float64(e.opts.actionRepeat)
	vx := (physics.Position(ps.Q, e.torso).X - x0) / dt

	z := physics.Position(ps.Q, e.torso).Z
	healthy := z > e.task.healthyZ[0] && z < e.task.healthyZ[1]

	ctrl := 0.0
	for _, a := range action {
		ctrl += a * a
	}
	ctrl *= e.task.ctrlCostWeight

	forward := e.task.forwardWeight * vx
	alive := 0.0
	if healthy {
		alive = e.task.healthyReward
	}

	steps := s.Steps + 1
	timeUp := e.opts.episodeLength > 0 && steps >= e.opts.episodeLength
	return State{
		Pipeline:  ps,
		Obs:       e.observe(ps),
		Reward:    forward + alive - ctrl,
		Done:      !healthy || timeUp,
		Truncated: healthy && timeUp,
		Metrics: map[string]float64{
			"forward_reward": forward,
			"ctrl_cost":      ctrl,
			"healthy_reward": alive,
			"x_velocity":     vx,
		},
		Steps: steps,
	}, nil
}

func (e *locomotion) observe(ps physics.State) []float64 {
	obs := make([]float64, 0, e.ObservationSize())
	torso := physics.Position(ps.Q, e.torso)
	rot := physics.Orientation(ps.Q, e.torso)
	obs = append(obs, torso.Z, rot.Real, rot.Imag, rot.Jmag, rot.Kmag)
	for i := 0; i < e.sc.NumBodies(); i++ {
		if i == e.torso {
			continue
		}
		d := r3.Sub(physics.Position(ps.Q, i), torso)
		obs = append(obs, d.X, d.Y, d.Z)
	}
	obs = append(obs, e.pipe.JointAngles(ps.Q)...)
	obs = append(obs, ps.QD...)
	return obs
}
