package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/ppo"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

// TrainingChart plots the evaluation reward and episode length against
// environment steps.
func TrainingChart(w io.Writer, title string, history []ppo.Metrics) error {
	if len(history) == 0 {
		return dynamo.Configf("render: no training history")
	}

	steps := make([]string, len(history))
	reward := make([]opts.LineData, len(history))
	length := make([]opts.LineData, len(history))
	train := make([]opts.LineData, len(history))
	for i, m := range history {
		steps[i] = fmt.Sprintf("%d", m.Steps)
		reward[i] = opts.LineData{Value: m.EvalReward}
		length[i] = opts.LineData{Value: m.EvalLength}
		train[i] = opts.LineData{Value: m.TrainReward}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "evaluation episodes"}),
		charts.WithInitializationOpts(opts.Initialization{ChartID: "training", PageTitle: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "steps"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reward"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)
	line.SetXAxis(steps).
		AddSeries("eval reward", reward).
		AddSeries("train reward", train).
		AddSeries("eval length", length)

	return line.Render(w)
}

// HeightChart plots the height and forward speed of every body per frame.
func HeightChart(w io.Writer, sc *scene.Scene, traj *rollout.Trajectory, title string) error {
	if err := validate(sc, traj); err != nil {
		return err
	}

	n := traj.Len()
	stride := 1
	if n > 2000 {
		stride = (n + 1999) / 2000
	}

	var times []string
	for i := 0; i < n; i += stride {
		times = append(times, fmt.Sprintf("%.3f", traj.Frame(i).Time))
	}

	height := charts.NewLine()
	height.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "body height (m)"}),
		charts.WithInitializationOpts(opts.Initialization{ChartID: "height"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	height.SetXAxis(times)

	speed := charts.NewLine()
	speed.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Subtitle: "forward velocity (m/s)"}),
		charts.WithInitializationOpts(opts.Initialization{ChartID: "speed"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	speed.SetXAxis(times)

	for b, body := range sc.Bodies() {
		var zs, vs []opts.LineData
		for i := 0; i < n; i += stride {
			f := traj.Frame(i)
			zs = append(zs, opts.LineData{Value: f.Q[7*b+2]})
			vs = append(vs, opts.LineData{Value: f.QD[6*b]})
		}
		height.AddSeries(body.Name, zs)
		speed.AddSeries(body.Name, vs)
	}

	page := components.NewPage()
	page.AddCharts(height, speed)
	return page.Render(w)
}
