package rollout_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/ppo"
	"github.com/san-kum/trajlab/internal/rng"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

// counter advances a one-body state by a unit of time and fails at failAt.
type counter struct {
	failAt int
}

func (c counter) Step(s envs.State, action []float64) (envs.State, error) {
	if s.Steps == c.failAt {
		return s, dynamo.ErrDivergence
	}
	next := envs.State{
		Pipeline: physics.State{
			Q:    []float64{float64(s.Steps + 1), 0, 0, 1, 0, 0, 0},
			QD:   make([]float64, 6),
			Time: s.Pipeline.Time + 1,
		},
		Steps:  s.Steps + 1,
		Reward: 1,
	}
	return next, nil
}

func ballRun(steps int) (*rollout.Trajectory, error) {
	sc, err := scene.Load("ball")
	Expect(err).NotTo(HaveOccurred())
	p, err := physics.New(sc)
	Expect(err).NotTo(HaveOccurred())
	init, err := p.Init(nil, []float64{5, 0, 0, 0, 10, 0})
	Expect(err).NotTo(HaveOccurred())
	return rollout.Run(context.Background(), rollout.Pipeline(p), rollout.FromPhysics(init),
		rollout.Zero(sc.ActSize()), rollout.Config{Steps: steps, Seed: 7})
}

var _ = Describe("Run", func() {
	Context("with a zero action source on the ball scene", func() {
		It("records exactly one frame per step", func() {
			traj, err := ballRun(300)
			Expect(err).NotTo(HaveOccurred())
			Expect(traj.Len()).To(Equal(300))
		})

		It("is bit-identical across runs", func() {
			a, err := ballRun(300)
			Expect(err).NotTo(HaveOccurred())
			b, err := ballRun(300)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Frames()).To(Equal(b.Frames()))
		})

		It("advances time by one timestep per frame", func() {
			traj, err := ballRun(10)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < traj.Len(); i++ {
				Expect(traj.Frame(i).Time).To(BeNumerically("~", float64(i+1)*0.002, 1e-12))
			}
		})
	})

	Context("with a trained-shape policy on the humanoid", func() {
		It("produces 500 frames", func() {
			env, err := envs.Get("humanoid")
			Expect(err).NotTo(HaveOccurred())

			hp := ppo.Default()
			hp.PolicyHiddenLayerSizes = []int{8}
			hp.ValueHiddenLayerSizes = []int{8}
			params := ppo.NewParams(env.ObservationSize(), env.ActionSize(), hp, rng.New(0))

			s, err := env.Reset(rng.New(0))
			Expect(err).NotTo(HaveOccurred())

			traj, err := rollout.Run(context.Background(), env, s,
				rollout.Policy(ppo.MakeDecisionFunc(false), params), rollout.Config{Steps: 500})
			Expect(err).NotTo(HaveOccurred())
			Expect(traj.Len()).To(Equal(500))
			last, ok := traj.Last()
			Expect(ok).To(BeTrue())
			Expect(last.Action).To(HaveLen(env.ActionSize()))
		})
	})

	Context("when a step fails", func() {
		It("returns the valid prefix and wraps the cause", func() {
			traj, err := rollout.Run(context.Background(), counter{failAt: 3}, envs.State{},
				rollout.Zero(0), rollout.Config{Steps: 10})
			Expect(err).To(MatchError(dynamo.ErrDivergence))
			Expect(traj).NotTo(BeNil())
			Expect(traj.Len()).To(Equal(3))
			Expect(traj.Frame(2).Q[0]).To(Equal(3.0))
		})
	})

	Context("when the action source fails", func() {
		It("stops before stepping", func() {
			boom := errors.New("boom")
			src := rollout.ActionFunc(func(envs.State, rng.Key) (dynamo.Control, error) {
				return nil, boom
			})
			traj, err := rollout.Run(context.Background(), counter{failAt: -1}, envs.State{}, src, rollout.Config{Steps: 4})
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(traj.Len()).To(Equal(0))
		})
	})

	Context("with an invalid config", func() {
		DescribeTable("rejects it before simulating",
			func(cfg rollout.Config) {
				traj, err := rollout.Run(context.Background(), counter{failAt: -1}, envs.State{}, rollout.Zero(0), cfg)
				Expect(err).To(MatchError(dynamo.ErrConfig))
				Expect(traj).To(BeNil())
			},
			Entry("zero steps", rollout.Config{Steps: 0}),
			Entry("negative steps", rollout.Config{Steps: -5}),
		)
	})

	Context("with a cancelled context", func() {
		It("returns the context error", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			traj, err := rollout.Run(ctx, counter{failAt: -1}, envs.State{}, rollout.Zero(0), rollout.Config{Steps: 4})
			Expect(err).To(MatchError(context.Canceled))
			Expect(traj.Len()).To(Equal(0))
		})
	})

	It("notifies observers once per frame in order", func() {
		var steps []int
		obs := rollout.ObserverFunc(func(step int, f rollout.Frame) {
			steps = append(steps, step)
		})
		_, err := rollout.Run(context.Background(), counter{failAt: -1}, envs.State{}, rollout.Zero(0),
			rollout.Config{Steps: 5, Observers: []rollout.Observer{obs}})
		Expect(err).NotTo(HaveOccurred())
		Expect(steps).To(Equal([]int{0, 1, 2, 3, 4}))
	})

	It("hands the policy a fresh key every step", func() {
		var keys []rng.Key
		src := rollout.ActionFunc(func(_ envs.State, key rng.Key) (dynamo.Control, error) {
			keys = append(keys, key)
			return dynamo.Control{}, nil
		})
		_, err := rollout.Run(context.Background(), counter{failAt: -1}, envs.State{}, src, rollout.Config{Steps: 20, Seed: 3})
		Expect(err).NotTo(HaveOccurred())
		seen := map[rng.Key]bool{}
		for _, k := range keys {
			Expect(seen[k]).To(BeFalse())
			seen[k] = true
		}
	})
})

var _ = Describe("Policy", func() {
	It("rejects observations of the wrong size", func() {
		hp := ppo.Default()
		hp.PolicyHiddenLayerSizes = []int{4}
		hp.ValueHiddenLayerSizes = []int{4}
		params := ppo.NewParams(3, 2, hp, rng.New(1))
		src := rollout.Policy(ppo.MakeDecisionFunc(true), params)

		_, err := src.Action(envs.State{Obs: []float64{1, 2}}, rng.New(0))
		Expect(err).To(MatchError(dynamo.ErrConfig))

		act, err := src.Action(envs.State{Obs: []float64{1, 2, 3}}, rng.New(0))
		Expect(err).NotTo(HaveOccurred())
		Expect(act).To(HaveLen(2))
	})
})
