// Package render turns trajectories into self-contained artifacts: an HTML
// player with the trajectory embedded as JSON, inline SVG paths, and
// go-echarts line charts.
//
// HTML output is a pure function of its inputs. Rendering the same scene
// and trajectory twice yields the same bytes.
package render
