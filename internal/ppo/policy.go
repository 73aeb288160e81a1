package ppo

import (
	"math"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/rng"
)

const initLogStd = -0.5

var halfLog2Pi = 0.5 * math.Log(2*math.Pi)

// Params are the trained policy and value networks. They are treated as
// immutable once returned from Train.
type Params struct {
	ObservationSize int        `json:"observation_size"`
	ActionSize      int        `json:"action_size"`
	Normalizer      Normalizer `json:"normalizer"`
	Policy          Network    `json:"policy"`
	LogStd          []float64  `json:"log_std"`
	Value           Network    `json:"value"`
}

// NewParams returns freshly initialised, untrained parameters.
func NewParams(obsSize, actSize int, hp Hyperparameters, key rng.Key) *Params {
	r := key.Rand()
	policySizes := append(append([]int{obsSize}, hp.PolicyHiddenLayerSizes...), actSize)
	valueSizes := append(append([]int{obsSize}, hp.ValueHiddenLayerSizes...), 1)

	logStd := make([]float64, actSize)
	for i := range logStd {
		logStd[i] = initLogStd
	}
	return &Params{
		ObservationSize: obsSize,
		ActionSize:      actSize,
		Normalizer:      newNormalizer(obsSize, hp.NormalizeObservations),
		Policy:          newNetwork(policySizes, r),
		LogStd:          logStd,
		Value:           newNetwork(valueSizes, r),
	}
}

func (p *Params) Clone() *Params {
	return &Params{
		ObservationSize: p.ObservationSize,
		ActionSize:      p.ActionSize,
		Normalizer:      p.Normalizer.clone(),
		Policy:          p.Policy.clone(),
		LogStd:          append([]float64(nil), p.LogStd...),
		Value:           p.Value.clone(),
	}
}

// Validate checks that the networks agree with the declared sizes, which
// matters for params loaded from disk.
func (p *Params) Validate() error {
	switch {
	case p == nil:
		return dynamo.Configf("policy params are nil")
	case len(p.Policy.Layers) == 0 || len(p.Value.Layers) == 0:
		return dynamo.Configf("policy params have no layers")
	case p.Policy.inputSize() != p.ObservationSize || p.Value.inputSize() != p.ObservationSize:
		return dynamo.Configf("network input does not match observation size %d", p.ObservationSize)
	case p.Policy.outputSize() != p.ActionSize || len(p.LogStd) != p.ActionSize:
		return dynamo.Configf("policy output does not match action size %d", p.ActionSize)
	case p.Value.outputSize() != 1:
		return dynamo.Configf("value network must have one output")
	case len(p.Normalizer.Mean) != p.ObservationSize || len(p.Normalizer.M2) != p.ObservationSize:
		return dynamo.Configf("normalizer does not match observation size %d", p.ObservationSize)
	}
	for _, n := range []Network{p.Policy, p.Value} {
		for i, l := range n.Layers {
			if len(l.W) != l.In*l.Out || len(l.B) != l.Out {
				return dynamo.Configf("layer %d has inconsistent shape", i)
			}
			if i > 0 && l.In != n.Layers[i-1].Out {
				return dynamo.Configf("layer %d input does not match previous output", i)
			}
		}
	}
	return nil
}

// tensors lists every trainable slice in a fixed order.
func (p *Params) tensors() [][]float64 {
	out := p.Policy.tensors()
	out = append(out, p.LogStd)
	return append(out, p.Value.tensors()...)
}

// zeroGrads returns gradient storage shaped like p.
func (p *Params) zeroGrads() *Params {
	return &Params{
		ObservationSize: p.ObservationSize,
		ActionSize:      p.ActionSize,
		Policy:          p.Policy.zeros(),
		LogStd:          make([]float64, len(p.LogStd)),
		Value:           p.Value.zeros(),
	}
}

// Aux carries the sampling details behind an action.
type Aux struct {
	Mean    []float64
	Raw     []float64
	LogProb float64
}

// DecisionFunc maps params, an observation and a key to an action in
// [-1, 1]. The same inputs always produce the same action.
type DecisionFunc func(p *Params, obs []float64, key rng.Key) (dynamo.Control, Aux)

// MakeDecisionFunc returns a sampling policy, or the mean action when
// deterministic is set.
func MakeDecisionFunc(deterministic bool) DecisionFunc {
	return func(p *Params, obs []float64, key rng.Key) (dynamo.Control, Aux) {
		mean := p.Policy.apply(p.Normalizer.Normalize(obs))
		raw := append([]float64(nil), mean...)
		if !deterministic {
			r := key.Rand()
			for k := range raw {
				raw[k] += math.Exp(p.LogStd[k]) * r.NormFloat64()
			}
		}

		action := make(dynamo.Control, len(raw))
		for k, v := range raw {
			action[k] = math.Max(-1, math.Min(1, v))
		}
		return action, Aux{Mean: mean, Raw: raw, LogProb: logProb(raw, mean, p.LogStd)}
	}
}

func logProb(raw, mean, logStd []float64) float64 {
	lp := 0.0
	for k := range raw {
		z := (raw[k] - mean[k]) / math.Exp(logStd[k])
		lp += -0.5*z*z - logStd[k] - halfLog2Pi
	}
	return lp
}

// entropy of the diagonal Gaussian.
func entropy(logStd []float64) float64 {
	e := 0.0
	for _, ls := range logStd {
		e += 0.5 + halfLog2Pi + ls
	}
	return e
}
