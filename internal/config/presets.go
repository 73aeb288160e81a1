package config

import (
	"sort"

	"github.com/san-kum/trajlab/internal/ppo"
)

func quickTraining(seed uint64) ppo.Hyperparameters {
	hp := ppo.Default()
	hp.NumTimesteps = 40_000
	hp.NumEvals = 4
	hp.EpisodeLength = 200
	hp.UnrollLength = 10
	hp.NumMinibatches = 4
	hp.NumUpdatesPerBatch = 4
	hp.NumEnvs = 16
	hp.NumEvalEnvs = 4
	hp.BatchSize = 32
	hp.PolicyHiddenLayerSizes = []int{64, 64}
	hp.ValueHiddenLayerSizes = []int{64, 64}
	hp.Seed = seed
	return hp
}

var Presets = map[string]map[string]*Config{
	"ball": {
		"default": {
			Scene: "ball", Steps: 5000, Integrator: "symplectic", Output: "ball_sim_v2.html",
			InitQD: []float64{5, 0, 0, 0, 10, 0},
		},
		"drop": {
			Scene: "ball", Steps: 2000, Integrator: "symplectic", Output: "ball_drop.html",
			InitQD: []float64{0, 0, 0, 0, 0, 0},
		},
	},
	"humanoid": {
		"default": {
			Env: "humanoid", Steps: 500, Integrator: "symplectic", Output: "humanoid_walk.html",
			Train: ppo.Default(),
		},
		"quick": {
			Env: "humanoid", Steps: 500, Integrator: "symplectic", Output: "humanoid_walk.html",
			Train: quickTraining(0),
		},
	},
	"ant": {
		"quick": {
			Env: "ant", Steps: 500, Integrator: "symplectic", Output: "ant_walk.html",
			Train: quickTraining(0),
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	cfg, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Groups lists the preset groups in order.
func Groups() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
