package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/trajlab/internal/config"
	"github.com/san-kum/trajlab/internal/storage"
)

func testCommand(t *testing.T) *cobra.Command {
	t.Helper()
	configFile, envPreset = "", ""
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&steps, "steps", 0, "")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "")
	cmd.Flags().StringVar(&integrator, "integrator", "", "")
	cmd.Flags().StringVar(&output, "out", "", "")
	cmd.Flags().Float64SliceVar(&initQD, "qd", nil, "")
	cmd.Flags().String("preset", "", "")
	cmd.Flags().StringVar(&configFile, "config", "", "")
	cmd.Flags().Int64Var(&timesteps, "timesteps", 0, "")
	return cmd
}

func TestResolveConfigDefaults(t *testing.T) {
	cmd := testCommand(t)
	cfg, err := resolveConfig(cmd, "ball", "", sceneDefaults("ball"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Steps != 5000 || cfg.Output != "ball_sim_v2.html" || len(cfg.InitQD) != 6 {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestResolveConfigFlagsWin(t *testing.T) {
	cmd := testCommand(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("scene: ball\nsteps: 300\nintegrator: rk4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	for flag, val := range map[string]string{"config": path, "preset": "drop", "steps": "42", "qd": "1,0,0,0,0,0"} {
		if err := cmd.Flags().Set(flag, val); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := resolveConfig(cmd, "ball", "drop", sceneDefaults("ball"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Steps != 42 {
		t.Errorf("steps = %d, want flag value 42", cfg.Steps)
	}
	if cfg.Integrator != "rk4" {
		t.Errorf("integrator = %s, want rk4 from the config file", cfg.Integrator)
	}
	if cfg.InitQD[0] != 1 {
		t.Errorf("qd = %v", cfg.InitQD)
	}
}

func TestResolveConfigPreset(t *testing.T) {
	cmd := testCommand(t)
	if err := cmd.Flags().Set("preset", "drop"); err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveConfig(cmd, "ball", "drop", sceneDefaults("ball"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Steps != 2000 || cfg.Output != "ball_drop.html" {
		t.Errorf("preset not applied: %+v", cfg)
	}
	if config.Presets["ball"]["drop"].Steps != 2000 {
		t.Error("preset was modified")
	}

	if err := cmd.Flags().Set("preset", "nope"); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(cmd, "ball", "nope", sceneDefaults("ball")); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func subcommand(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("no %s command", name)
	return nil
}

func TestScenePresetIndependentOfEnvCommands(t *testing.T) {
	configFile = ""
	root := newRootCmd()
	sceneCmd := subcommand(t, root, "scene")
	if err := sceneCmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(sceneCmd, "humanoid", scenePreset, sceneDefaults("humanoid"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Steps != config.DefaultSteps {
		t.Errorf("scene humanoid steps = %d, want %d", cfg.Steps, config.DefaultSteps)
	}
	if cfg.Output != "humanoid.html" {
		t.Errorf("scene humanoid output = %s, want humanoid.html", cfg.Output)
	}
	if cfg.Env != "" {
		t.Errorf("scene config picked up env %q", cfg.Env)
	}

	walkCmd := subcommand(t, root, "walk")
	if err := walkCmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if envPreset != "default" {
		t.Errorf("walk preset = %q, want default", envPreset)
	}
	if benchSteps != 1000 {
		t.Errorf("bench steps = %d, want 1000", benchSteps)
	}
}

func TestSceneDefaults(t *testing.T) {
	cfg := sceneDefaults("scenes/pendulum.xml")
	if cfg.InitQD != nil {
		t.Errorf("qd = %v, want scene defaults", cfg.InitQD)
	}
	if cfg.Output != "pendulum.html" {
		t.Errorf("output = %s", cfg.Output)
	}
}

func TestEnvConfig(t *testing.T) {
	cmd := testCommand(t)
	if err := cmd.Flags().Set("timesteps", "1000"); err != nil {
		t.Fatal(err)
	}
	cfg, err := envConfig(cmd, []string{"ant"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Env != "ant" || cfg.Scene != "" {
		t.Errorf("env = %q scene = %q", cfg.Env, cfg.Scene)
	}
	if cfg.Output != "ant_walk.html" || cfg.Train.NumTimesteps != 1000 {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := envConfig(testCommand(t), []string{"snake"}); err == nil {
		t.Error("expected error for unknown env")
	}
}

func TestSaveRunAfterInterrupt(t *testing.T) {
	st, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id, err := saveRun(ctx, st, storage.RunMetadata{Kind: storage.KindScene, Name: "ball", Scene: "ball"}, nil)
	if err != nil {
		t.Fatalf("save after cancel: %v", err)
	}
	runs, err := st.List(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != id {
		t.Errorf("catalog = %+v, want run %s", runs, id)
	}
}
