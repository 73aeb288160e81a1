package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/trajlab/internal/config"
	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/metrics"
	"github.com/san-kum/trajlab/internal/ppo"
	"github.com/san-kum/trajlab/internal/render"
	"github.com/san-kum/trajlab/internal/rng"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/storage"
	"github.com/san-kum/trajlab/internal/viz"
)

const defaultEnv = "humanoid"

func envDefaults(name string) *config.Config {
	return &config.Config{
		Env:        name,
		Steps:      500,
		Integrator: config.DefaultIntegrator,
		Output:     name + "_walk.html",
		Train:      ppo.Default(),
	}
}

// envConfig resolves the config of a train, walk or run command. The env
// argument wins over the env named by a preset or config file.
func envConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := defaultEnv
	if len(args) > 0 {
		name = args[0]
	}
	cfg, err := resolveConfig(cmd, name, envPreset, envDefaults(name))
	if err != nil {
		return nil, err
	}
	if len(args) > 0 || cfg.Env == "" {
		cfg.Env = name
	}
	cfg.Scene = ""
	if cfg.Output == "" {
		cfg.Output = cfg.Env + "_walk.html"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := envConfig(cmd, args)
	if err != nil {
		return err
	}
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	_, _, err = trainPolicy(cmd.Context(), st, cfg)
	return err
}

func runWalk(cmd *cobra.Command, args []string) error {
	cfg, err := envConfig(cmd, args)
	if err != nil {
		return err
	}
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	ref := policyRef
	if ref == "" {
		ref, err = st.Latest(cmd.Context(), storage.KindTrain, cfg.Env)
		if err != nil {
			return fmt.Errorf("no policy given and %w; run `trajlab train %s` first", err, cfg.Env)
		}
	}
	params, err := st.LoadPolicy(ref)
	if err != nil {
		return fmt.Errorf("load policy %s: %w", ref, err)
	}
	return walkPolicy(cmd.Context(), st, cfg, params, ref)
}

// runTrainWalk is the full pipeline: train, hand the parameters to a fresh
// environment and walk it.
func runTrainWalk(cmd *cobra.Command, args []string) error {
	cfg, err := envConfig(cmd, args)
	if err != nil {
		return err
	}
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	params, runID, err := trainPolicy(cmd.Context(), st, cfg)
	if err != nil {
		return err
	}
	fmt.Println()
	return walkPolicy(cmd.Context(), st, cfg, params, runID)
}

func trainPolicy(ctx context.Context, st *storage.Store, cfg *config.Config) (*ppo.Params, string, error) {
	factory, err := envs.NewFactory(cfg.Env, envs.WithIntegrator(cfg.Integrator))
	if err != nil {
		return nil, "", err
	}

	hp := cfg.Train
	fmt.Printf("training %s: %d timesteps, %d envs, %d evals\n", cfg.Env, hp.NumTimesteps, hp.NumEnvs, hp.NumEvals)
	start := time.Now()
	progress := func(m ppo.Metrics) {
		pct := float64(m.Steps) / float64(hp.NumTimesteps)
		fmt.Printf("\r%s %5.1f%%  eval %d  reward %10.3f  length %6.1f",
			viz.ProgressBar(pct, 30), min(pct, 1)*100, m.Eval, m.EvalReward, m.EvalLength)
	}

	_, params, history, err := ppo.Train(ctx, factory, hp, progress)
	fmt.Println()
	if err != nil {
		return nil, "", fmt.Errorf("train %s: %w", cfg.Env, err)
	}
	elapsed := time.Since(start)

	summary := map[string]float64{"train_seconds": elapsed.Seconds()}
	if n := len(history); n > 0 {
		last := history[n-1]
		summary["eval_reward"] = last.EvalReward
		summary["eval_length"] = last.EvalLength
		summary["train_reward"] = last.TrainReward
		summary["timesteps"] = float64(last.Steps)
	}

	env, err := factory()
	if err != nil {
		return nil, "", err
	}
	runID, err := saveRun(ctx, st, storage.RunMetadata{
		Kind:       storage.KindTrain,
		Name:       cfg.Env,
		Scene:      env.Scene().Name(),
		Seed:       hp.Seed,
		Dt:         env.Scene().Timestep(),
		Integrator: cfg.Integrator,
		Metrics:    summary,
	}, nil)
	if err != nil {
		return nil, "", err
	}
	if err := st.SavePolicy(runID, params); err != nil {
		return nil, "", err
	}
	if err := st.SaveTraining(runID, history); err != nil {
		return nil, "", err
	}

	chart := filepath.Join(st.Dir(runID), "training.html")
	if err := render.WriteAtomic(chart, func(w io.Writer) error {
		return render.TrainingChart(w, cfg.Env+" training", history)
	}); err != nil {
		return nil, "", err
	}

	fmt.Printf("trained in %v\n", elapsed.Round(time.Second))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("chart:  %s\n", chart)
	printMetrics(summary)
	return params, runID, nil
}

// walkPolicy rolls out params on a fresh environment. The reset key and the
// rollout key stream both start from cfg.Seed.
func walkPolicy(ctx context.Context, st *storage.Store, cfg *config.Config, params *ppo.Params, policyID string) error {
	env, err := envs.Get(cfg.Env, envs.WithIntegrator(cfg.Integrator))
	if err != nil {
		return err
	}
	initial, err := env.Reset(rng.New(cfg.Seed))
	if err != nil {
		return err
	}
	source := rollout.Policy(ppo.MakeDecisionFunc(cfg.Deterministic), params)

	ms := []metrics.Metric{
		metrics.NewTotalReward(),
		metrics.NewStability(),
		metrics.NewMinHeight(0),
		metrics.NewMaxHeight(0),
		metrics.NewControlEffort(),
	}

	fmt.Printf("walking %s for %d steps...\n", cfg.Env, cfg.Steps)
	start := time.Now()
	traj, runErr := rollout.Run(ctx, env, initial, source,
		rollout.Config{Steps: cfg.Steps, Seed: cfg.Seed, Observers: metrics.Observers(ms...)})
	elapsed := time.Since(start)
	if runErr != nil {
		if traj == nil || traj.Len() == 0 || errors.Is(runErr, dynamo.ErrConfig) {
			return runErr
		}
		fmt.Printf("stopped after %d of %d steps: %v\n", traj.Len(), cfg.Steps, runErr)
	}

	if err := render.WriteFile(cfg.Output, env.Scene(), traj, render.Options{Title: cfg.Env + " walk"}); err != nil {
		return err
	}

	results := metrics.Collect(ms...)
	runID, err := saveRun(ctx, st, storage.RunMetadata{
		Kind:       storage.KindWalk,
		Name:       cfg.Env,
		Scene:      env.Scene().Name(),
		Seed:       cfg.Seed,
		Dt:         env.Scene().Timestep(),
		Steps:      traj.Len(),
		Integrator: cfg.Integrator,
		Output:     cfg.Output,
		Policy:     policyID,
		Metrics:    results,
	}, traj)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", traj.Len())
	fmt.Printf("html:   %s\n", cfg.Output)
	printMetrics(results)
	return runErr
}
