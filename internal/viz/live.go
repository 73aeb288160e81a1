package viz

import (
	"fmt"
	"io"

	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws the scene every `every` steps while a rollout runs.
// It is a rollout.Observer.
type LiveRenderer struct {
	w       io.Writer
	scene   *scene.Scene
	every   int
	ceiling float64
	canvas  *Canvas
	started bool
}

func NewLiveRenderer(w io.Writer, sc *scene.Scene, every int, ceiling float64) *LiveRenderer {
	if every < 1 {
		every = 1
	}
	return &LiveRenderer{
		w:       w,
		scene:   sc,
		every:   every,
		ceiling: ceiling,
		canvas:  NewCanvas(72, 18),
	}
}

func (r *LiveRenderer) Observe(step int, f rollout.Frame) {
	if step%r.every != 0 {
		return
	}
	if !r.started {
		fmt.Fprint(r.w, hideCursor)
		r.started = true
	}
	drawFrame(r.canvas, r.scene, f, r.ceiling)
	fmt.Fprintf(r.w, "%s%s\n%s t=%.3fs  x=%.3f  z=%.3f\n",
		clearScreen, r.canvas.String(), r.scene.Name(), f.Time, f.Q[0], f.Q[2])
}

// Close restores the cursor.
func (r *LiveRenderer) Close() {
	if r.started {
		fmt.Fprint(r.w, showCursor)
	}
}
