package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/trajlab/internal/analysis"
	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/render"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
	"github.com/san-kum/trajlab/internal/storage"
	"github.com/san-kum/trajlab/internal/viz"
)

// loadRun opens the store and reads one run with its trajectory.
func loadRun(runID string) (*storage.RunMetadata, *rollout.Trajectory, error) {
	st, err := storage.Open(dataDir)
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	if meta.Kind == storage.KindTrain {
		return meta, nil, fmt.Errorf("run %s is a training run and has no trajectory", runID)
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	if traj.Len() == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, traj, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context(), storage.Filter{Kind: storage.Kind(kind)})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tTIME\tSTEPS\tINTEG\tSEED\tOUTPUT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			run.ID,
			run.Kind,
			run.Name,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Integrator,
			run.Seed,
			run.Output,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	sc, err := scene.Load(meta.Scene)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("%s: %s\n", meta.Kind, meta.Name)
	fmt.Printf("frames: %d\n\n", traj.Len())

	bodies := sc.Bodies()
	if len(bodies) > 4 {
		bodies = bodies[:4]
	}
	for i, b := range bodies {
		graph := asciigraph.Plot(traj.Heights(i),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(b.Name+" height"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if chartPath == "" {
		return nil
	}
	if err := render.WriteAtomic(chartPath, func(w io.Writer) error {
		return render.HeightChart(w, sc, traj, meta.Name+" "+meta.ID)
	}); err != nil {
		return err
	}
	fmt.Printf("chart: %s\n", chartPath)
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	sc, err := scene.Load(meta.Scene)
	if err != nil {
		return err
	}
	return viz.Run(viz.NewViewer(fmt.Sprintf("%s %s", meta.Kind, meta.Name), sc, traj, meta.Metrics))
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, traj)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if body < 0 || 7*body >= len(traj.Frame(0).Q) {
		return dynamo.Configf("body %d out of range", body)
	}

	sp, err := analysis.PowerSpectrum(traj.Heights(body), meta.Dt)
	if err != nil {
		return err
	}
	band := sp.Band(maxHz)
	if len(band.Power) < 2 {
		return dynamo.Configf("no frequency bins below %g hz", maxHz)
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("%s: %s, body %d\n\n", meta.Kind, meta.Name, body)

	graph := asciigraph.Plot(band.Power,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum of height, 0 to %.1f hz", band.Freq[len(band.Freq)-1])),
	)
	fmt.Println(graph)
	fmt.Println()

	freq, _ := band.Dominant()
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1/freq)
	}
	return nil
}
