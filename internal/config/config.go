// Package config holds the YAML run configuration shared by the CLI
// commands, with named presets for the stock scenarios.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/integrators"
	"github.com/san-kum/trajlab/internal/ppo"
)

const (
	DefaultScene      = "ball"
	DefaultSteps      = 5000
	DefaultIntegrator = "symplectic"
	DefaultOutput     = "ball_sim_v2.html"
)

// Config describes one run. A scene run sets Scene; a train or walk run
// sets Env and Train.
type Config struct {
	Scene         string              `yaml:"scene"`
	Env           string              `yaml:"env"`
	Steps         int                 `yaml:"steps"`
	Seed          uint64              `yaml:"seed"`
	Integrator    string              `yaml:"integrator"`
	Output        string              `yaml:"output"`
	InitQD        []float64           `yaml:"init_qd"`
	Deterministic bool                `yaml:"deterministic,omitempty"`
	Train         ppo.Hyperparameters `yaml:"train"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:      DefaultScene,
		Steps:      DefaultSteps,
		Integrator: DefaultIntegrator,
		Output:     DefaultOutput,
		InitQD:     []float64{5, 0, 0, 0, 10, 0},
		Train:      ppo.Default(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %v", dynamo.ErrConfig, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", dynamo.ErrConfig, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrIO, err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.InitQD = append([]float64(nil), c.InitQD...)
	out.Train.PolicyHiddenLayerSizes = append([]int(nil), c.Train.PolicyHiddenLayerSizes...)
	out.Train.ValueHiddenLayerSizes = append([]int(nil), c.Train.ValueHiddenLayerSizes...)
	return &out
}

// Validate checks the fields a run depends on. Every failure wraps
// dynamo.ErrConfig.
func (c *Config) Validate() error {
	if c.Steps <= 0 {
		return dynamo.Configf("steps must be positive, got %d", c.Steps)
	}
	if _, err := integrators.New(c.Integrator); err != nil {
		return err
	}
	if c.Output != "" && !strings.EqualFold(filepath.Ext(c.Output), ".html") {
		return dynamo.Configf("output must be an .html file, got %q", c.Output)
	}

	switch {
	case c.Scene == "" && c.Env == "":
		return dynamo.Configf("config needs a scene or an env")
	case c.Scene != "" && c.Env != "":
		return dynamo.Configf("config sets both scene %q and env %q", c.Scene, c.Env)
	case c.Env != "":
		if !slices.Contains(envs.Names(), c.Env) {
			return dynamo.Configf("unknown environment: %s (available: %v)", c.Env, envs.Names())
		}
		return c.Train.Validate()
	}
	return nil
}
