package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/trajlab/internal/config"
	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/integrators"
	"github.com/san-kum/trajlab/internal/scene"
	"github.com/san-kum/trajlab/internal/storage"
)

var (
	dataDir  string
	logLevel string

	steps         int
	seed          uint64
	integrator    string
	output        string
	initQD        []float64
	configFile    string
	scenePreset   string
	envPreset     string
	benchSteps    int
	live          bool
	deterministic bool
	timesteps     int64
	workers       int
	policyRef     string

	kind      string
	body      int
	chartPath string
	maxHz     float64
)

// main executes the root command. It exits with status 1 if the command
// returns an error.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd registers the commands and their flags. Commands that share a
// flag name bind separate variables where their defaults differ.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trajlab",
		Short:         "rigid-body trajectories and locomotion policies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return dynamo.Configf("bad log level %q: %v", logLevel, err)
			}
			logrus.SetLevel(lvl)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".trajlab", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "log level (debug, info, warning, error)")

	sceneCmd := &cobra.Command{
		Use:   "scene [name|file.xml]",
		Short: "simulate a scene with zero action and render it to html",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	sceneCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	sceneCmd.Flags().Float64SliceVar(&initQD, "qd", nil, "initial velocity (6 per body)")
	sceneCmd.Flags().StringVar(&output, "out", config.DefaultOutput, "html output path")
	sceneCmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	sceneCmd.Flags().StringVar(&scenePreset, "preset", "", "use preset configuration")
	sceneCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sceneCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	sceneCmd.Flags().BoolVar(&live, "live", false, "draw the scene in the terminal while stepping")

	trainCmd := &cobra.Command{
		Use:   "train [env]",
		Short: "train a ppo policy and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrain,
	}
	walkCmd := &cobra.Command{
		Use:   "walk [env]",
		Short: "roll out a stored policy and render it to html",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWalk,
	}
	walkCmd.Flags().StringVar(&policyRef, "policy", "", "run id or policy json path (default: latest training run)")

	runCmd := &cobra.Command{
		Use:   "run [env]",
		Short: "train a policy, then walk it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrainWalk,
	}
	for _, c := range []*cobra.Command{trainCmd, walkCmd, runCmd} {
		c.Flags().IntVar(&steps, "steps", 500, "rollout steps")
		c.Flags().Uint64Var(&seed, "seed", 0, "rollout seed")
		c.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
		c.Flags().StringVar(&output, "out", "", "html output path (default <env>_walk.html)")
		c.Flags().StringVar(&envPreset, "preset", "default", "use preset configuration")
		c.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
		c.Flags().BoolVar(&deterministic, "deterministic", false, "walk with the mean action")
		c.Flags().Int64Var(&timesteps, "timesteps", 0, "override training timesteps")
		c.Flags().IntVar(&workers, "workers", 0, "env stepping goroutines (0 = one per cpu)")
	}

	envsCmd := &cobra.Command{
		Use:   "envs",
		Short: "list environments, scenes and integrators",
		RunE:  listEnvs,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&kind, "kind", "", "only runs of this kind (scene, train, walk)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot body heights of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&chartPath, "chart", "", "also write an html chart to this path")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "step through a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a body height",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&body, "body", 0, "body index")
	analyzeCmd.Flags().Float64Var(&maxHz, "max-hz", 10, "highest frequency to plot")

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "compare integrators on a scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 1000, "number of steps")
	benchCmd.Flags().Float64SliceVar(&initQD, "qd", nil, "initial velocity (6 per body)")

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := config.Groups()
			if len(args) > 0 {
				groups = args
			}
			for _, g := range groups {
				presets := config.ListPresets(g)
				if len(presets) == 0 {
					fmt.Printf("no presets for: %s\n", g)
					continue
				}
				fmt.Printf("presets for %s:\n", g)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the run catalog from the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := storage.Open(dataDir)
			if err != nil {
				return err
			}
			defer st.Close()
			n, err := st.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d runs\n", n)
			return nil
		},
	}

	rootCmd.AddCommand(sceneCmd, trainCmd, walkCmd, runCmd, envsCmd, listCmd, plotCmd,
		viewCmd, exportCmd, analyzeCmd, benchCmd, presetsCmd, reindexCmd)
	return rootCmd
}

// resolveConfig layers base, the named preset, the --config file and
// finally any flag set on the command line. A preset missing from group is
// an error only when it was asked for explicitly.
func resolveConfig(cmd *cobra.Command, group, preset string, base *config.Config) (*config.Config, error) {
	cfg := base
	if preset != "" {
		p := config.GetPreset(group, preset)
		if p == nil {
			if cmd.Flags().Changed("preset") {
				return nil, dynamo.Configf("unknown preset: %s (available: %v)", preset, config.ListPresets(group))
			}
		} else {
			cfg = p
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("out") {
		cfg.Output = output
	}
	if flags.Changed("qd") {
		cfg.InitQD = append([]float64(nil), initQD...)
	}
	if flags.Changed("deterministic") {
		cfg.Deterministic = deterministic
	}
	if flags.Changed("timesteps") {
		cfg.Train.NumTimesteps = timesteps
	}
	if flags.Changed("workers") {
		cfg.Train.Workers = workers
	}
	return cfg, nil
}

func listEnvs(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENV\tBODIES\tOBS\tACT")
	for _, name := range envs.Names() {
		env, err := envs.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", name, env.Scene().NumBodies(), env.ObservationSize(), env.ActionSize())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nscenes:      %s\n", strings.Join(scene.Builtin(), ", "))
	fmt.Printf("integrators: %s\n", strings.Join(integrators.Names(), ", "))
	fmt.Printf("backend:     cpu (%s/%s, %d cores, %s)\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())
	return nil
}
