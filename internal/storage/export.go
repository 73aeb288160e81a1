package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/trajlab/internal/rollout"
)

type ExportData struct {
	ID         string             `json:"id"`
	Kind       Kind               `json:"kind"`
	Name       string             `json:"name"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Times      []float64          `json:"times"`
	Q          [][]float64        `json:"q"`
	QD         [][]float64        `json:"qd"`
	Actions    [][]float64        `json:"actions"`
	Rewards    []float64          `json:"rewards"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ExportJSON writes a run and its trajectory as one JSON document.
func ExportJSON(w io.Writer, meta *RunMetadata, traj *rollout.Trajectory) error {
	data := ExportData{
		ID:         meta.ID,
		Kind:       meta.Kind,
		Name:       meta.Name,
		Integrator: meta.Integrator,
		Dt:         meta.Dt,
		Steps:      traj.Len(),
		Times:      make([]float64, traj.Len()),
		Q:          make([][]float64, traj.Len()),
		QD:         make([][]float64, traj.Len()),
		Actions:    make([][]float64, traj.Len()),
		Rewards:    make([]float64, traj.Len()),
		Metrics:    meta.Metrics,
	}

	for i := 0; i < traj.Len(); i++ {
		f := traj.Frame(i)
		data.Times[i] = f.Time
		data.Q[i] = f.Q
		data.QD[i] = f.QD
		data.Actions[i] = f.Action
		data.Rewards[i] = f.Reward
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
