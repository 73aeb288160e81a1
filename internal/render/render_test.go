package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/ppo"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

func ballTrajectory(t *testing.T, steps int) (*scene.Scene, *rollout.Trajectory) {
	t.Helper()
	sc, err := scene.Load("ball")
	if err != nil {
		t.Fatal(err)
	}
	p, err := physics.New(sc)
	if err != nil {
		t.Fatal(err)
	}
	s, err := p.Init(nil, []float64{5, 0, 0, 0, 10, 0})
	if err != nil {
		t.Fatal(err)
	}
	traj, err := rollout.Run(context.Background(), rollout.Pipeline(p), rollout.FromPhysics(s),
		rollout.Zero(sc.ActSize()), rollout.Config{Steps: steps})
	if err != nil {
		t.Fatal(err)
	}
	return sc, traj
}

func TestHTMLIsDeterministic(t *testing.T) {
	sc, traj := ballTrajectory(t, 200)

	var a, b bytes.Buffer
	if err := HTML(&a, sc, traj, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := HTML(&b, sc, traj, Options{}); err != nil {
		t.Fatal(err)
	}
	if a.Len() == 0 {
		t.Fatal("empty output")
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("rendering twice produced different bytes")
	}
}

func TestHTMLContents(t *testing.T) {
	sc, traj := ballTrajectory(t, 50)

	var buf bytes.Buffer
	if err := HTML(&buf, sc, traj, Options{Title: "ball <test>"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"<canvas",
		"<svg",
		`<script id="trajectory" type="application/json">{"title":`,
		`"frames":[{"t":0.002,`,
		"ball &lt;test&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}
	if strings.Contains(out, `src="http`) || strings.Contains(out, `href="http`) {
		t.Error("player must not load remote resources")
	}
}

func TestHTMLStride(t *testing.T) {
	sc, traj := ballTrajectory(t, 10)
	doc := buildDocument(sc, traj, Options{Stride: 3}.withDefaults(sc))
	if len(doc.Frames) != 4 {
		t.Errorf("expected 4 frames with stride 3, got %d", len(doc.Frames))
	}
}

func TestHTMLRejectsBadInput(t *testing.T) {
	sc, traj := ballTrajectory(t, 5)

	bad := rollout.NewTrajectory(1)
	bad.Append(rollout.Frame{Q: []float64{1, 2, 3}})

	tests := []struct {
		name string
		sc   *scene.Scene
		traj *rollout.Trajectory
	}{
		{"nil scene", nil, traj},
		{"nil trajectory", sc, nil},
		{"empty trajectory", sc, rollout.NewTrajectory(0)},
		{"wrong layout", sc, bad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HTML(&bytes.Buffer{}, tt.sc, tt.traj, Options{})
			if !errors.Is(err, dynamo.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	sc, traj := ballTrajectory(t, 20)
	dir := t.TempDir()
	path := filepath.Join(dir, "ball.html")

	if err := WriteFile(path, sc, traj, Options{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var want bytes.Buffer
	if err := HTML(&want, sc, traj, Options{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, want.Bytes()) {
		t.Error("file content differs from HTML output")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestWriteFileIOError(t *testing.T) {
	sc, traj := ballTrajectory(t, 5)
	dir := t.TempDir()

	t.Run("missing directory", func(t *testing.T) {
		err := WriteFile(filepath.Join(dir, "missing", "out.html"), sc, traj, Options{})
		if !errors.Is(err, dynamo.ErrIO) {
			t.Errorf("expected ErrIO, got %v", err)
		}
	})

	t.Run("target is a directory", func(t *testing.T) {
		target := filepath.Join(dir, "taken")
		if err := os.Mkdir(target, 0755); err != nil {
			t.Fatal(err)
		}
		err := WriteFile(target, sc, traj, Options{})
		if !errors.Is(err, dynamo.ErrIO) {
			t.Errorf("expected ErrIO, got %v", err)
		}
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("temporary file %s left behind", e.Name())
			}
		}
	})
}

func TestWriteAtomicKeepsTargetOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.html")
	if err := os.WriteFile(path, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	err := WriteAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "partial"); err != nil {
			return err
		}
		return io.ErrUnexpectedEOF
	})
	if !errors.Is(err, dynamo.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}

	err = WriteAtomic(path, func(w io.Writer) error {
		return TrainingChart(w, "ant", nil)
	})
	if !errors.Is(err, dynamo.ErrConfig) || errors.Is(err, dynamo.ErrIO) {
		t.Errorf("expected bare ErrConfig, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "previous" {
		t.Errorf("target overwritten: %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}

	if err := WriteAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "next")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "next" {
		t.Errorf("got %q, want %q", data, "next")
	}
}

func TestPathSVG(t *testing.T) {
	if got := PathSVG(nil, 100, 50); got != "" {
		t.Errorf("expected empty svg for no points, got %q", got)
	}

	svg := PathSVG([]Series{
		{Name: "a", Color: "red", Points: []Point{{0, 0}, {1, 1}}},
		{Name: "single", Color: "blue", Points: []Point{{0, 0}}},
	}, 100, 50)
	if strings.Count(svg, "<path") != 1 {
		t.Errorf("expected one path, got %q", svg)
	}
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Errorf("malformed svg %q", svg)
	}
}

func TestCSSColor(t *testing.T) {
	tests := []struct {
		in   [4]float64
		want string
	}{
		{[4]float64{1, 0, 0, 1}, "rgba(255,0,0,1.00)"},
		{[4]float64{0.5, 2, -1, 0.5}, "rgba(128,255,0,0.50)"},
	}
	for _, tt := range tests {
		if got := cssColor(tt.in); got != tt.want {
			t.Errorf("cssColor(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCharts(t *testing.T) {
	sc, traj := ballTrajectory(t, 30)

	var h bytes.Buffer
	if err := HeightChart(&h, sc, traj, "ball"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.String(), "height") {
		t.Error("height chart is missing its chart id")
	}

	history := []ppo.Metrics{
		{Eval: 0, Steps: 0, EvalReward: -1},
		{Eval: 1, Steps: 100, EvalReward: 3},
	}
	var tr bytes.Buffer
	if err := TrainingChart(&tr, "ant", history); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tr.String(), "eval reward") {
		t.Error("training chart is missing its series")
	}

	if err := TrainingChart(&tr, "ant", nil); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig for empty history, got %v", err)
	}
}
