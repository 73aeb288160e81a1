package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

//go:embed player.html.tmpl
var playerSource string

var player = template.Must(template.New("player").Parse(playerSource))

type Options struct {
	// Title is shown in the page header. Leave it empty for output that
	// depends only on the scene and trajectory.
	Title string
	// Width and Height size the player canvas in pixels.
	Width  int
	Height int
	// Stride keeps every Stride-th frame.
	Stride int
}

func (o Options) withDefaults(sc *scene.Scene) Options {
	if o.Title == "" {
		o.Title = sc.Name()
	}
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 450
	}
	if o.Stride <= 0 {
		o.Stride = 1
	}
	return o
}

type page struct {
	Title  string
	Width  int
	Height int
	Paths  template.HTML
	Data   template.JS
}

// HTML writes a self-contained player page for traj to w.
func HTML(w io.Writer, sc *scene.Scene, traj *rollout.Trajectory, opts Options) error {
	if err := validate(sc, traj); err != nil {
		return err
	}
	opts = opts.withDefaults(sc)

	data, err := encode(buildDocument(sc, traj, opts))
	if err != nil {
		return fmt.Errorf("render: encode trajectory: %w", err)
	}
	return player.Execute(w, page{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Paths:  template.HTML(PathSVG(bodyPaths(sc, traj, opts.Stride), opts.Width, opts.Height/2)),
		Data:   template.JS(data),
	})
}

// WriteFile renders the player page to path through WriteAtomic.
func WriteFile(path string, sc *scene.Scene, traj *rollout.Trajectory, opts Options) error {
	if err := validate(sc, traj); err != nil {
		return err
	}
	if err := WriteAtomic(path, func(w io.Writer) error {
		return HTML(w, sc, traj, opts)
	}); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"frames": traj.Len(),
	}).Info("render: wrote trajectory")
	return nil
}
