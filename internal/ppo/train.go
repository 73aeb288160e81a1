package ppo

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/rng"
)

// Metrics is recorded at every evaluation.
type Metrics struct {
	Eval            int     `json:"eval"`
	Steps           int64   `json:"steps"`
	EvalReward      float64 `json:"eval_episode_reward"`
	EvalLength      float64 `json:"eval_episode_length"`
	TrainReward     float64 `json:"train_episode_reward"`
	TrainEpisodes   int     `json:"train_episodes"`
	PolicyLoss      float64 `json:"policy_loss"`
	ValueLoss       float64 `json:"value_loss"`
	Entropy         float64 `json:"entropy"`
	ApproxKL        float64 `json:"approx_kl"`
	ClippedFraction float64 `json:"clipped_fraction"`
}

// Train runs PPO on environments built by factory. progress, if non-nil, is
// called after every evaluation. The returned DecisionFunc samples actions.
func Train(ctx context.Context, factory envs.Factory, hp Hyperparameters, progress func(Metrics)) (DecisionFunc, *Params, []Metrics, error) {
	if err := hp.Validate(); err != nil {
		return nil, nil, nil, err
	}
	if factory == nil {
		return nil, nil, nil, dynamo.Configf("ppo: nil environment factory")
	}

	t, err := newTrainer(factory, hp)
	if err != nil {
		return nil, nil, nil, err
	}

	start := time.Now()
	var history []Metrics
	record := func(m Metrics) {
		history = append(history, m)
		logrus.WithFields(logrus.Fields{
			"eval":    m.Eval,
			"steps":   m.Steps,
			"reward":  math.Round(m.EvalReward*1000) / 1000,
			"length":  m.EvalLength,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("ppo: evaluation")
		if progress != nil {
			progress(m)
		}
	}

	total := int((hp.NumTimesteps + hp.stepsPerIteration() - 1) / hp.stepsPerIteration())
	chunks := hp.NumEvals - 1
	if chunks < 1 {
		chunks = 1
	}
	logrus.WithFields(logrus.Fields{
		"iterations": total,
		"envs":       hp.NumEnvs,
		"obs":        t.params.ObservationSize,
		"act":        t.params.ActionSize,
	}).Info("ppo: training started")

	if hp.NumEvals > 1 {
		m, err := t.evaluate(ctx, 0)
		if err != nil {
			return nil, nil, history, err
		}
		record(m)
	}

	done := 0
	for c := 0; c < chunks; c++ {
		target := total * (c + 1) / chunks
		var last updateStats
		for ; done < target; done++ {
			if err := ctx.Err(); err != nil {
				return nil, nil, history, err
			}
			if last, err = t.iteration(ctx); err != nil {
				return nil, nil, history, err
			}
		}

		m, err := t.evaluate(ctx, len(history))
		if err != nil {
			return nil, nil, history, err
		}
		m.PolicyLoss = last.policyLoss
		m.ValueLoss = last.valueLoss
		m.Entropy = last.entropy
		m.ApproxKL = last.approxKL
		m.ClippedFraction = last.clipped
		record(m)
	}

	return MakeDecisionFunc(false), t.params.Clone(), history, nil
}

type trainer struct {
	hp       Hyperparameters
	key      rng.Key
	envs     []envs.Env
	states   []envs.State
	keys     []rng.Key
	returns  []float64
	finished [][]float64
	evalEnvs []envs.Env
	params   *Params
	opt      *adam
	steps    int64
	workers  int
	decide   DecisionFunc
}

func newTrainer(factory envs.Factory, hp Hyperparameters) (*trainer, error) {
	opts := []envs.Option{envs.WithEpisodeLength(hp.EpisodeLength), envs.WithActionRepeat(hp.ActionRepeat)}

	t := &trainer{
		hp:       hp,
		envs:     make([]envs.Env, hp.NumEnvs),
		states:   make([]envs.State, hp.NumEnvs),
		returns:  make([]float64, hp.NumEnvs),
		finished: make([][]float64, hp.NumEnvs),
		evalEnvs: make([]envs.Env, hp.NumEvalEnvs),
		workers:  hp.Workers,
		decide:   MakeDecisionFunc(false),
	}
	if t.workers == 0 {
		t.workers = runtime.GOMAXPROCS(0)
	}
	for i := range t.envs {
		env, err := factory(opts...)
		if err != nil {
			return nil, err
		}
		t.envs[i] = env
	}
	for i := range t.evalEnvs {
		env, err := factory(opts...)
		if err != nil {
			return nil, err
		}
		t.evalEnvs[i] = env
	}

	var paramKey, envKey rng.Key
	t.key, paramKey = rng.Split(rng.New(hp.Seed))
	t.key, envKey = rng.Split(t.key)

	first := t.envs[0]
	t.params = NewParams(first.ObservationSize(), first.ActionSize(), hp, paramKey)
	t.opt = newAdam(hp.LearningRate, t.params.tensors())

	t.keys = rng.SplitN(envKey, hp.NumEnvs)
	for i, env := range t.envs {
		var reset rng.Key
		t.keys[i], reset = rng.Split(t.keys[i])
		s, err := env.Reset(reset)
		if err != nil {
			return nil, err
		}
		t.states[i] = s
	}
	return t, nil
}

// unroll is one environment's slice of a batch.
type unroll struct {
	obs        [][]float64
	raw        [][]float64
	logProb    []float64
	rewards    []float64
	terminated []bool
	truncated  []bool
	bootstrap  []float64
}

func (t *trainer) parallel(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}

// collect steps every environment UnrollLength times with the current
// params, resetting environments whose episode ended.
func (t *trainer) collect(ctx context.Context) ([]unroll, error) {
	out := make([]unroll, len(t.envs))
	err := t.parallel(ctx, len(t.envs), func(i int) error {
		env, s := t.envs[i], t.states[i]
		u := unroll{}
		for step := 0; step < t.hp.UnrollLength; step++ {
			var k rng.Key
			t.keys[i], k = rng.Split(t.keys[i])
			action, aux := t.decide(t.params, s.Obs, k)
			next, err := env.Step(s, action)
			if err != nil {
				return err
			}

			u.obs = append(u.obs, s.Obs)
			u.raw = append(u.raw, aux.Raw)
			u.logProb = append(u.logProb, aux.LogProb)
			u.rewards = append(u.rewards, next.Reward*t.hp.RewardScaling)
			u.terminated = append(u.terminated, next.Done && !next.Truncated)
			u.truncated = append(u.truncated, next.Truncated)
			t.returns[i] += next.Reward

			if next.Done {
				t.finished[i] = append(t.finished[i], t.returns[i])
				t.returns[i] = 0
				var reset rng.Key
				t.keys[i], reset = rng.Split(t.keys[i])
				if next, err = env.Reset(reset); err != nil {
					return err
				}
			}
			s = next
		}
		u.bootstrap = s.Obs
		t.states[i] = s
		out[i] = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.steps += int64(len(t.envs) * t.hp.UnrollLength * t.hp.ActionRepeat)
	return out, nil
}

type batch struct {
	obs     *mat.Dense
	raw     [][]float64
	logProb []float64
	vs      []float64
	adv     []float64
}

type updateStats struct {
	policyLoss float64
	valueLoss  float64
	entropy    float64
	approxKL   float64
	clipped    float64
}

func (t *trainer) iteration(ctx context.Context) (updateStats, error) {
	var unrolls []unroll
	for u := 0; u < t.hp.unrollsPerIteration(); u++ {
		us, err := t.collect(ctx)
		if err != nil {
			return updateStats{}, err
		}
		unrolls = append(unrolls, us...)
	}

	var seen [][]float64
	for _, u := range unrolls {
		seen = append(seen, u.obs...)
	}
	t.params.Normalizer.Update(seen)

	b := t.assemble(unrolls)

	var key rng.Key
	t.key, key = rng.Split(t.key)
	r := key.Rand()

	n := len(b.vs)
	size := n / t.hp.NumMinibatches
	var stats updateStats
	for epoch := 0; epoch < t.hp.NumUpdatesPerBatch; epoch++ {
		perm := r.Perm(n)
		for mb := 0; mb < t.hp.NumMinibatches; mb++ {
			idx := perm[mb*size : (mb+1)*size]
			grads, s := t.gradients(b, idx)
			t.opt.update(t.params.tensors(), grads.tensors())
			stats = s
		}
	}
	return stats, nil
}

// assemble normalises observations with the updated statistics and computes
// value targets and advantages.
func (t *trainer) assemble(unrolls []unroll) batch {
	obsSize := t.params.ObservationSize
	var b batch
	var rows []float64
	for _, u := range unrolls {
		steps := len(u.obs)
		x := mat.NewDense(steps+1, obsSize, nil)
		for s, o := range u.obs {
			x.SetRow(s, t.params.Normalizer.Normalize(o))
		}
		x.SetRow(steps, t.params.Normalizer.Normalize(u.bootstrap))
		v, _ := t.params.Value.forward(x)
		values := mat.Col(nil, 0, v)

		vs, adv := gae(u.rewards, values[:steps], values[steps], u.terminated, u.truncated, t.hp.Discounting, t.hp.GAELambda)
		for s := 0; s < steps; s++ {
			rows = append(rows, x.RawRowView(s)...)
		}
		b.raw = append(b.raw, u.raw...)
		b.logProb = append(b.logProb, u.logProb...)
		b.vs = append(b.vs, vs...)
		b.adv = append(b.adv, adv...)
	}
	b.obs = mat.NewDense(len(b.vs), obsSize, rows)
	return b
}

// gradients differentiates the PPO loss over the minibatch idx.
func (t *trainer) gradients(b batch, idx []int) (*Params, updateStats) {
	p := t.params
	obsSize, actSize := p.ObservationSize, p.ActionSize
	m := len(idx)
	fm := float64(m)

	x := mat.NewDense(m, obsSize, nil)
	for r, i := range idx {
		x.SetRow(r, b.obs.RawRowView(i))
	}
	mean, pcache := p.Policy.forward(x)
	value, vcache := p.Value.forward(x)

	advMean, advVar := 0.0, 0.0
	for _, i := range idx {
		advMean += b.adv[i]
	}
	advMean /= fm
	for _, i := range idx {
		d := b.adv[i] - advMean
		advVar += d * d
	}
	advStd := math.Sqrt(advVar/fm) + 1e-8

	std := make([]float64, actSize)
	for k := range std {
		std[k] = math.Exp(p.LogStd[k])
	}

	grads := p.zeroGrads()
	dMean := mat.NewDense(m, actSize, nil)
	dValue := mat.NewDense(m, 1, nil)
	var stats updateStats
	for r, i := range idx {
		mu := mean.RawRowView(r)
		a := b.raw[i]
		lp := logProb(a, mu, p.LogStd)
		ratio := math.Exp(lp - b.logProb[i])
		adv := (b.adv[i] - advMean) / advStd

		clipped := math.Max(1-t.hp.ClippingEpsilon, math.Min(1+t.hp.ClippingEpsilon, ratio))
		stats.policyLoss -= math.Min(ratio*adv, clipped*adv) / fm
		stats.approxKL += (b.logProb[i] - lp) / fm

		active := (adv >= 0 && ratio < 1+t.hp.ClippingEpsilon) || (adv < 0 && ratio > 1-t.hp.ClippingEpsilon)
		if !active {
			stats.clipped += 1 / fm
			continue
		}
		g := -ratio * adv / fm
		for k := 0; k < actSize; k++ {
			z := (a[k] - mu[k]) / std[k]
			dMean.Set(r, k, g*z/std[k])
			grads.LogStd[k] += g * (z*z - 1)
		}
	}

	for r, i := range idx {
		d := value.At(r, 0) - b.vs[i]
		stats.valueLoss += 0.25 * d * d / fm
		dValue.Set(r, 0, 0.5*d/fm)
	}

	stats.entropy = entropy(p.LogStd)
	for k := range grads.LogStd {
		grads.LogStd[k] -= t.hp.EntropyCost
	}

	p.Policy.backward(pcache, dMean, grads.Policy)
	p.Value.backward(vcache, dValue, grads.Value)
	return grads, stats
}

// evaluate runs one deterministic episode on every evaluation environment.
func (t *trainer) evaluate(ctx context.Context, index int) (Metrics, error) {
	var key rng.Key
	t.key, key = rng.Split(t.key)
	keys := rng.SplitN(key, len(t.evalEnvs))
	rewards := make([]float64, len(t.evalEnvs))
	lengths := make([]float64, len(t.evalEnvs))
	greedy := MakeDecisionFunc(true)

	err := t.parallel(ctx, len(t.evalEnvs), func(i int) error {
		env := t.evalEnvs[i]
		s, err := env.Reset(keys[i])
		if err != nil {
			return err
		}
		for step := 0; step < t.hp.EpisodeLength && !s.Done; step++ {
			action, _ := greedy(t.params, s.Obs, keys[i])
			if s, err = env.Step(s, action); err != nil {
				return err
			}
			rewards[i] += s.Reward
			lengths[i]++
		}
		return nil
	})
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{Eval: index, Steps: t.steps}
	for i := range rewards {
		m.EvalReward += rewards[i] / float64(len(rewards))
		m.EvalLength += lengths[i] / float64(len(lengths))
	}
	for i := range t.finished {
		for _, r := range t.finished[i] {
			m.TrainReward += r
			m.TrainEpisodes++
		}
		t.finished[i] = t.finished[i][:0]
	}
	if m.TrainEpisodes > 0 {
		m.TrainReward /= float64(m.TrainEpisodes)
	}
	return m, nil
}
