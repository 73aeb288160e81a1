package render

import (
	"encoding/json"
	"math"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

const precision = 1e6

type document struct {
	Title    string     `json:"title"`
	Model    string     `json:"model"`
	Timestep float64    `json:"dt"`
	Ground   bool       `json:"ground"`
	Bodies   []bodyDoc  `json:"bodies"`
	Frames   []frameDoc `json:"frames"`
	Bounds   [4]float64 `json:"bounds"`
}

type bodyDoc struct {
	Name  string    `json:"name"`
	Geoms []geomDoc `json:"geoms"`
}

type geomDoc struct {
	Type       string     `json:"type"`
	Pos        [3]float64 `json:"pos"`
	Radius     float64    `json:"radius,omitempty"`
	HalfLength float64    `json:"half_length,omitempty"`
	Axis       [3]float64 `json:"axis"`
	HalfSize   [3]float64 `json:"half_size"`
	Color      string     `json:"color"`
}

type frameDoc struct {
	T float64   `json:"t"`
	Q []float64 `json:"q"`
}

func round(v float64) float64 { return math.Round(v*precision) / precision }

func validate(sc *scene.Scene, traj *rollout.Trajectory) error {
	if sc == nil {
		return dynamo.Configf("render: nil scene")
	}
	if traj == nil || traj.Len() == 0 {
		return dynamo.Configf("render: empty trajectory")
	}
	for i := 0; i < traj.Len(); i++ {
		if n := len(traj.Frame(i).Q); n != sc.QSize() {
			return dynamo.Configf("render: frame %d has %d positions, scene needs %d", i, n, sc.QSize())
		}
	}
	return nil
}

func buildDocument(sc *scene.Scene, traj *rollout.Trajectory, o Options) document {
	doc := document{
		Title:    o.Title,
		Model:    sc.Name(),
		Timestep: sc.Timestep(),
		Ground:   sc.HasGround(),
	}
	for _, b := range sc.Bodies() {
		bd := bodyDoc{Name: b.Name}
		for _, g := range b.Geoms {
			bd.Geoms = append(bd.Geoms, geomDoc{
				Type:       string(g.Type),
				Pos:        [3]float64{round(g.Pos.X), round(g.Pos.Y), round(g.Pos.Z)},
				Radius:     round(g.Radius),
				HalfLength: round(g.HalfLength),
				Axis:       [3]float64{round(g.Axis.X), round(g.Axis.Y), round(g.Axis.Z)},
				HalfSize:   [3]float64{round(g.HalfSize.X), round(g.HalfSize.Y), round(g.HalfSize.Z)},
				Color:      cssColor(g.RGBA),
			})
		}
		doc.Bodies = append(doc.Bodies, bd)
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	maxZ := 0.0
	for i := 0; i < traj.Len(); i += o.Stride {
		f := traj.Frame(i)
		q := make([]float64, len(f.Q))
		for k, v := range f.Q {
			q[k] = round(v)
		}
		doc.Frames = append(doc.Frames, frameDoc{T: round(f.Time), Q: q})
		for b := 0; b < sc.NumBodies(); b++ {
			minX = math.Min(minX, f.Q[7*b])
			maxX = math.Max(maxX, f.Q[7*b])
			maxZ = math.Max(maxZ, f.Q[7*b+2])
		}
	}
	doc.Bounds = [4]float64{round(minX), round(maxX), 0, round(maxZ)}
	return doc
}

// encode marshals doc. Struct field order and fixed rounding make the
// output deterministic; json.Marshal escapes '<' so the result is safe
// inside a script element.
func encode(doc document) ([]byte, error) {
	return json.Marshal(doc)
}
