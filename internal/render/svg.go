package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

type Point struct{ X, Y float64 }

// Series is one polyline of a path plot.
type Series struct {
	Name   string
	Color  string
	Points []Point
}

// PathSVG draws every series into one inline SVG element sharing the same
// bounds. Series with fewer than two points are skipped.
func PathSVG(series []Series, width, height int) string {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, p := range s.Points {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minX, 0) {
		return ""
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	minY -= rangeY * 0.1
	rangeX *= 1.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	sb.WriteString(`<rect width="100%" height="100%" fill="#0a0a0a"/>`)

	for _, s := range series {
		if len(s.Points) < 2 {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color)
		for i, p := range s.Points {
			x := (p.X - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		fmt.Fprintf(&sb, `"><title>%s</title></path>`, escapeText(s.Name))
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

// bodyPaths returns the x/z path of every body, one point per stride.
func bodyPaths(sc *scene.Scene, traj *rollout.Trajectory, stride int) []Series {
	bodies := sc.Bodies()
	out := make([]Series, len(bodies))
	for b, body := range bodies {
		color := cssColor(defaultColor)
		if len(body.Geoms) > 0 {
			color = cssColor(body.Geoms[0].RGBA)
		}
		out[b] = Series{Name: body.Name, Color: color}
		for i := 0; i < traj.Len(); i += stride {
			q := traj.Frame(i).Q
			out[b].Points = append(out[b].Points, Point{X: q[7*b], Y: q[7*b+2]})
		}
	}
	return out
}

var defaultColor = [4]float64{0.8, 0.6, 0.4, 1}

func cssColor(rgba [4]float64) string {
	c := func(v float64) int { return int(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return fmt.Sprintf("rgba(%d,%d,%d,%.2f)", c(rgba[0]), c(rgba[1]), c(rgba[2]), math.Max(0, math.Min(1, rgba[3])))
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeText(s string) string { return textEscaper.Replace(s) }
