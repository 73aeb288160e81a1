package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

const (
	fps         = 30
	graphWindow = 240
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Viewer steps through a recorded trajectory.
type Viewer struct {
	title   string
	scene   *scene.Scene
	traj    *rollout.Trajectory
	metrics map[string]float64

	canvas  *Canvas
	ceiling float64
	heights []float64

	frame   int
	carry   float64
	playing bool
	speed   float64
	theme   int
}

func NewViewer(title string, sc *scene.Scene, traj *rollout.Trajectory, metrics map[string]float64) *Viewer {
	return &Viewer{
		title:   title,
		scene:   sc,
		traj:    traj,
		metrics: metrics,
		canvas:  NewCanvas(72, 18),
		ceiling: ceilingOf(sc, traj),
		heights: traj.Heights(0),
		playing: true,
		speed:   1,
	}
}

func (v *Viewer) Init() tea.Cmd { return tick() }

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case " ":
			v.playing = !v.playing
		case "right", "l":
			v.playing = false
			v.seek(v.frame + 1)
		case "left", "h":
			v.playing = false
			v.seek(v.frame - 1)
		case "]":
			v.speed = min(v.speed*2, 64)
		case "[":
			v.speed = max(v.speed/2, 1.0/16)
		case "home":
			v.seek(0)
		case "end":
			v.seek(v.traj.Len() - 1)
		case "t":
			v.theme = (v.theme + 1) % len(themes)
		}
	case tea.WindowSizeMsg:
		w := max(20, min(msg.Width-36, 120))
		h := max(8, min(msg.Height-16, 40))
		v.canvas = NewCanvas(w, h)
	case TickMsg:
		if v.playing {
			v.advance(v.speed * (1.0 / fps))
		}
		return v, tick()
	}
	return v, nil
}

// advance moves playback forward by dt seconds of simulated time and wraps
// at the end.
func (v *Viewer) advance(dt float64) {
	n := v.traj.Len()
	if n < 2 {
		return
	}
	step := v.traj.Frame(1).Time - v.traj.Frame(0).Time
	if step <= 0 {
		step = v.scene.Timestep()
	}
	v.carry += dt / step
	k := int(v.carry)
	v.carry -= float64(k)
	v.frame = (v.frame + k) % n
}

func (v *Viewer) seek(i int) {
	v.frame = max(0, min(i, v.traj.Len()-1))
	v.carry = 0
}

func (v *Viewer) Frame() int { return v.frame }

func (v *Viewer) View() string {
	if v.traj.Len() == 0 {
		return "empty trajectory\n"
	}
	theme := themes[v.theme]
	f := v.traj.Frame(v.frame)

	drawFrame(v.canvas, v.scene, f, v.ceiling)
	canvas := lipgloss.NewStyle().Foreground(theme.Body).Render(v.canvas.String())

	status := StatusRunning.Render("PLAYING")
	if !v.playing {
		status = StatusPaused.Render("PAUSED")
	}

	var side strings.Builder
	row := func(label, value string) {
		side.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("time", fmt.Sprintf("%.3fs", f.Time))
	row("frame", fmt.Sprintf("%d/%d", v.frame+1, v.traj.Len()))
	row("speed", fmt.Sprintf("%gx", v.speed))
	row("x", fmt.Sprintf("%.3f", f.Q[0]))
	row("z", fmt.Sprintf("%.3f", f.Q[2]))
	if len(f.Action) > 0 {
		row("reward", fmt.Sprintf("%.3f", f.Reward))
	}
	if f.Done {
		side.WriteString(MetricLabel.Render("state") +
			lipgloss.NewStyle().Foreground(theme.Done).Bold(true).Render("DONE") + "\n")
	}
	if len(v.metrics) > 0 {
		side.WriteString("\n")
		names := make([]string, 0, len(v.metrics))
		for name := range v.metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			row(name, fmt.Sprintf("%.4g", v.metrics[name]))
		}
	}

	lo := max(0, v.frame+1-graphWindow)
	window := v.heights[lo : v.frame+1]
	graph := ""
	if len(window) > 1 {
		graph = asciigraph.Plot(window,
			asciigraph.Height(5),
			asciigraph.Width(v.canvas.Width),
			asciigraph.Caption(v.scene.Body(0).Name+" height"))
	}

	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(v.title)) + "  " + status + "\n\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, Panel.Render(canvas), " ", Panel.Render(side.String())))
	s.WriteString("\n")
	if graph != "" {
		s.WriteString(lipgloss.NewStyle().Foreground(theme.Graph).Render(graph) + "\n")
	}
	s.WriteString(KeyHint.Render("space play/pause  ←/→ step  [/] speed  home/end  t theme (" + theme.Name + ")  q quit"))
	s.WriteString("\n")
	return s.String()
}

// Run starts the viewer full screen and blocks until it quits.
func Run(v *Viewer) error {
	_, err := tea.NewProgram(v, tea.WithAltScreen()).Run()
	return err
}
