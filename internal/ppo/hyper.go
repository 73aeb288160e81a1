package ppo

import (
	"github.com/san-kum/trajlab/internal/dynamo"
)

type Hyperparameters struct {
	NumTimesteps           int64   `yaml:"num_timesteps" json:"num_timesteps"`
	NumEvals               int     `yaml:"num_evals" json:"num_evals"`
	RewardScaling          float64 `yaml:"reward_scaling" json:"reward_scaling"`
	EpisodeLength          int     `yaml:"episode_length" json:"episode_length"`
	NormalizeObservations  bool    `yaml:"normalize_observations" json:"normalize_observations"`
	ActionRepeat           int     `yaml:"action_repeat" json:"action_repeat"`
	UnrollLength           int     `yaml:"unroll_length" json:"unroll_length"`
	NumMinibatches         int     `yaml:"num_minibatches" json:"num_minibatches"`
	NumUpdatesPerBatch     int     `yaml:"num_updates_per_batch" json:"num_updates_per_batch"`
	Discounting            float64 `yaml:"discounting" json:"discounting"`
	LearningRate           float64 `yaml:"learning_rate" json:"learning_rate"`
	EntropyCost            float64 `yaml:"entropy_cost" json:"entropy_cost"`
	NumEnvs                int     `yaml:"num_envs" json:"num_envs"`
	NumEvalEnvs            int     `yaml:"num_eval_envs" json:"num_eval_envs"`
	BatchSize              int     `yaml:"batch_size" json:"batch_size"`
	PolicyHiddenLayerSizes []int   `yaml:"policy_hidden_layer_sizes" json:"policy_hidden_layer_sizes"`
	ValueHiddenLayerSizes  []int   `yaml:"value_hidden_layer_sizes" json:"value_hidden_layer_sizes"`
	GAELambda              float64 `yaml:"gae_lambda" json:"gae_lambda"`
	ClippingEpsilon        float64 `yaml:"clipping_epsilon" json:"clipping_epsilon"`
	Seed                   uint64  `yaml:"seed" json:"seed"`
	// Workers bounds the goroutines stepping environments. Zero means one
	// per CPU.
	Workers int `yaml:"workers" json:"workers"`
}

// Default returns the humanoid training setup.
func Default() Hyperparameters {
	return Hyperparameters{
		NumTimesteps:           50_000_000,
		NumEvals:               10,
		RewardScaling:          0.1,
		EpisodeLength:          1000,
		NormalizeObservations:  true,
		ActionRepeat:           1,
		UnrollLength:           20,
		NumMinibatches:         32,
		NumUpdatesPerBatch:     4,
		Discounting:            0.99,
		LearningRate:           3e-4,
		EntropyCost:            1e-2,
		NumEnvs:                2048,
		NumEvalEnvs:            128,
		BatchSize:              1024,
		PolicyHiddenLayerSizes: []int{128, 128, 128, 128},
		ValueHiddenLayerSizes:  []int{128, 128, 128, 128},
		GAELambda:              0.95,
		ClippingEpsilon:        0.3,
	}
}

func (h Hyperparameters) Validate() error {
	switch {
	case h.NumTimesteps <= 0:
		return dynamo.Configf("num_timesteps must be positive, got %d", h.NumTimesteps)
	case h.NumEvals < 1:
		return dynamo.Configf("num_evals must be >= 1, got %d", h.NumEvals)
	case h.RewardScaling <= 0:
		return dynamo.Configf("reward_scaling must be positive, got %v", h.RewardScaling)
	case h.EpisodeLength < 1:
		return dynamo.Configf("episode_length must be >= 1, got %d", h.EpisodeLength)
	case h.ActionRepeat < 1:
		return dynamo.Configf("action_repeat must be >= 1, got %d", h.ActionRepeat)
	case h.UnrollLength < 1:
		return dynamo.Configf("unroll_length must be >= 1, got %d", h.UnrollLength)
	case h.NumMinibatches < 1:
		return dynamo.Configf("num_minibatches must be >= 1, got %d", h.NumMinibatches)
	case h.NumUpdatesPerBatch < 1:
		return dynamo.Configf("num_updates_per_batch must be >= 1, got %d", h.NumUpdatesPerBatch)
	case h.Discounting <= 0 || h.Discounting > 1:
		return dynamo.Configf("discounting must be in (0, 1], got %v", h.Discounting)
	case h.LearningRate <= 0:
		return dynamo.Configf("learning_rate must be positive, got %v", h.LearningRate)
	case h.EntropyCost < 0:
		return dynamo.Configf("entropy_cost must be >= 0, got %v", h.EntropyCost)
	case h.NumEnvs < 1:
		return dynamo.Configf("num_envs must be >= 1, got %d", h.NumEnvs)
	case h.NumEvalEnvs < 1:
		return dynamo.Configf("num_eval_envs must be >= 1, got %d", h.NumEvalEnvs)
	case h.BatchSize < 1:
		return dynamo.Configf("batch_size must be >= 1, got %d", h.BatchSize)
	case h.BatchSize*h.NumMinibatches%h.NumEnvs != 0:
		return dynamo.Configf("batch_size * num_minibatches (%d) must be a multiple of num_envs (%d)",
			h.BatchSize*h.NumMinibatches, h.NumEnvs)
	case h.GAELambda < 0 || h.GAELambda > 1:
		return dynamo.Configf("gae_lambda must be in [0, 1], got %v", h.GAELambda)
	case h.ClippingEpsilon <= 0:
		return dynamo.Configf("clipping_epsilon must be positive, got %v", h.ClippingEpsilon)
	case h.Workers < 0:
		return dynamo.Configf("workers must be >= 0, got %d", h.Workers)
	}
	for _, sizes := range [][]int{h.PolicyHiddenLayerSizes, h.ValueHiddenLayerSizes} {
		for _, n := range sizes {
			if n < 1 {
				return dynamo.Configf("hidden layer sizes must be positive, got %v", sizes)
			}
		}
	}
	return nil
}

// unrollsPerIteration is how many rounds of NumEnvs unrolls fill one
// training batch.
func (h Hyperparameters) unrollsPerIteration() int {
	n := h.BatchSize * h.NumMinibatches / h.NumEnvs
	if n < 1 {
		n = 1
	}
	return n
}

// stepsPerIteration is the number of environment steps one training
// iteration consumes.
func (h Hyperparameters) stepsPerIteration() int64 {
	return int64(h.unrollsPerIteration()) * int64(h.NumEnvs) * int64(h.UnrollLength) * int64(h.ActionRepeat)
}
