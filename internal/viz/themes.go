package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the viewer: Body for the scene drawing, Graph for the
// height plot and Done for frames where the episode has ended.
type Theme struct {
	Name  string
	Body  lipgloss.Color
	Graph lipgloss.Color
	Done  lipgloss.Color
}

// themes are cycled with the t key. The first one is the default.
var themes = [...]Theme{
	{Name: "cyberpunk", Body: "#ff00ff", Graph: "#00ffff", Done: "#ff8800"},
	{Name: "retro", Body: "#00ff00", Graph: "#00cc00", Done: "#ffff00"},
	{Name: "minimal", Body: "#ffffff", Graph: "#cccccc", Done: "#ffaa00"},
	{Name: "ocean", Body: "#0077be", Graph: "#00a8cc", Done: "#ffcc00"},
	{Name: "sunset", Body: "#ff6b6b", Graph: "#feca57", Done: "#ffc048"},
}
