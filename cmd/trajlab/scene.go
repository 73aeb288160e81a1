package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/trajlab/internal/config"
	"github.com/san-kum/trajlab/internal/integrators"
	"github.com/san-kum/trajlab/internal/metrics"
	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/render"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
	"github.com/san-kum/trajlab/internal/storage"
	"github.com/san-kum/trajlab/internal/viz"
)

// sceneDefaults is the base config for a scene run. Only the stock ball
// scene carries a default initial velocity.
func sceneDefaults(name string) *config.Config {
	cfg := config.DefaultConfig()
	if name != config.DefaultScene {
		base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		cfg.InitQD = nil
		cfg.Output = base + ".html"
	}
	return cfg
}

func runScene(cmd *cobra.Command, args []string) error {
	name := config.DefaultScene
	if len(args) > 0 {
		name = args[0]
	}

	cfg, err := resolveConfig(cmd, name, scenePreset, sceneDefaults(name))
	if err != nil {
		return err
	}
	if len(args) > 0 || cfg.Scene == "" {
		cfg.Scene = name
	}
	cfg.Env = ""
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc, err := scene.Load(cfg.Scene)
	if err != nil {
		return err
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return err
	}
	pipe, err := physics.New(sc, physics.WithIntegrator(integ))
	if err != nil {
		return err
	}
	initial, err := pipe.Init(nil, cfg.InitQD)
	if err != nil {
		return err
	}

	ms := []metrics.Metric{
		metrics.NewMinHeight(0),
		metrics.NewMaxHeight(0),
		metrics.NewEnergyDrift(pipe),
		metrics.NewControlEffort(),
	}
	observers := metrics.Observers(ms...)
	if live {
		lr := viz.NewLiveRenderer(os.Stdout, sc, max(cfg.Steps/300, 1), ceiling(initial))
		defer lr.Close()
		observers = append(observers, lr)
	}

	fmt.Printf("simulating %s for %d steps (dt=%g, %s)...\n", sc.Name(), cfg.Steps, sc.Timestep(), cfg.Integrator)
	start := time.Now()

	traj, runErr := rollout.Run(cmd.Context(), rollout.Pipeline(pipe), rollout.FromPhysics(initial),
		rollout.Zero(sc.ActSize()), rollout.Config{Steps: cfg.Steps, Seed: cfg.Seed, Observers: observers})
	elapsed := time.Since(start)
	if runErr != nil {
		if traj == nil || traj.Len() == 0 {
			return runErr
		}
		fmt.Printf("stopped after %d of %d steps: %v\n", traj.Len(), cfg.Steps, runErr)
	}

	if err := render.WriteFile(cfg.Output, sc, traj, render.Options{}); err != nil {
		return err
	}

	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	results := metrics.Collect(ms...)
	runID, err := saveRun(cmd.Context(), st, storage.RunMetadata{
		Kind:       storage.KindScene,
		Name:       sc.Name(),
		Scene:      cfg.Scene,
		Seed:       cfg.Seed,
		Dt:         sc.Timestep(),
		Steps:      traj.Len(),
		Integrator: cfg.Integrator,
		Output:     cfg.Output,
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

// ceiling is the drawing height for the live view: a little above the
// highest body at the start.
func ceiling(s physics.State) float64 {
	top := 1.0
	for i := 0; i < len(s.Q)/7; i++ {
		top = max(top, physics.Position(s.Q, i).Z)
	}
	return top * 1.2
}

func benchScene(cmd *cobra.Command, args []string) error {
	name := config.DefaultScene
	if len(args) > 0 {
		name = args[0]
	}
	sc, err := scene.Load(name)
	if err != nil {
		return err
	}
	qd := sceneDefaults(name).InitQD
	if cmd.Flags().Changed("qd") {
		qd = initQD
	}

	fmt.Printf("comparing integrators on %s (dt=%g, %d steps)\n\n", sc.Name(), sc.Timestep(), benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tFINAL_Z\tMIN_Z\tENERGY_DRIFT\tTIME\tSTEPS/SEC")

	for _, intName := range integrators.Names() {
		integ, err := integrators.New(intName)
		if err != nil {
			return err
		}
		pipe, err := physics.New(sc, physics.WithIntegrator(integ))
		if err != nil {
			return err
		}
		initial, err := pipe.Init(nil, qd)
		if err != nil {
			return err
		}

		drift := metrics.NewEnergyDrift(pipe)
		low := metrics.NewMinHeight(0)

		start := time.Now()
		traj, err := rollout.Run(cmd.Context(), rollout.Pipeline(pipe), rollout.FromPhysics(initial),
			rollout.Zero(sc.ActSize()), rollout.Config{Steps: benchSteps, Observers: metrics.Observers(drift, low)})
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\t\n", intName, err)
			continue
		}

		last, _ := traj.Last()
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.2e\t%v\t%.0f\n",
			intName, last.Q[2], low.Value(), drift.Value(),
			elapsed.Round(time.Microsecond), float64(traj.Len())/elapsed.Seconds())
	}
	return w.Flush()
}

// saveRun persists a finished run even when ctx was cancelled by an
// interrupt, so the files on disk and the catalog row stay together.
func saveRun(ctx context.Context, st *storage.Store, meta storage.RunMetadata, traj *rollout.Trajectory) (string, error) {
	return st.SaveRun(context.WithoutCancel(ctx), meta, traj)
}

func printMetrics(results map[string]float64) {
	if len(results) == 0 {
		return
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-16s %.6f\n", name, results[name])
	}
}
