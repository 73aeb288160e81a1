package viz

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/rollout"
	"github.com/san-kum/trajlab/internal/scene"
)

// camera maps world x/z to canvas sub-pixels, following a body along x.
type camera struct {
	centerX float64
	scale   float64
	w, h    int
}

func newCamera(c *Canvas, follow, ceiling float64) camera {
	h := c.Height * 4
	return camera{
		centerX: follow,
		scale:   float64(h-2) / math.Max(ceiling, 1),
		w:       c.Width * 2,
		h:       h,
	}
}

func (cam camera) project(p r3.Vec) (int, int) {
	x := float64(cam.w)/2 + (p.X-cam.centerX)*cam.scale
	y := float64(cam.h-1) - p.Z*cam.scale
	return int(math.Round(x)), int(math.Round(y))
}

// drawFrame renders every body of f onto c. ceiling is the world height
// mapped to the top of the canvas.
func drawFrame(c *Canvas, sc *scene.Scene, f rollout.Frame, ceiling float64) {
	c.Clear()
	if len(f.Q) < sc.QSize() {
		return
	}
	cam := newCamera(c, f.Q[0], ceiling)

	if sc.HasGround() {
		_, gy := cam.project(r3.Vec{})
		c.DrawLine(0, gy, cam.w-1, gy)
	}

	for i, body := range sc.Bodies() {
		pos := physics.Position(f.Q, i)
		rot := physics.Orientation(f.Q, i)
		for _, g := range body.Geoms {
			center := r3.Add(pos, physics.Rotate(rot, g.Pos))
			cx, cy := cam.project(center)
			switch g.Type {
			case scene.Sphere:
				r := int(math.Round(g.Radius * cam.scale))
				c.DrawCircle(cx, cy, r)
				spoke := r3.Add(center, physics.Rotate(rot, r3.Vec{X: g.Radius}))
				sx, sy := cam.project(spoke)
				c.DrawLine(cx, cy, sx, sy)
			case scene.Capsule:
				axis := r3.Scale(g.HalfLength, physics.Rotate(rot, g.Axis))
				x0, y0 := cam.project(r3.Sub(center, axis))
				x1, y1 := cam.project(r3.Add(center, axis))
				c.DrawLine(x0, y0, x1, y1)
			case scene.Box:
				h := g.HalfSize
				corners := [4]r3.Vec{{X: -h.X, Z: -h.Z}, {X: h.X, Z: -h.Z}, {X: h.X, Z: h.Z}, {X: -h.X, Z: h.Z}}
				for k := range corners {
					p0 := r3.Add(center, physics.Rotate(rot, corners[k]))
					p1 := r3.Add(center, physics.Rotate(rot, corners[(k+1)%4]))
					x0, y0 := cam.project(p0)
					x1, y1 := cam.project(p1)
					c.DrawLine(x0, y0, x1, y1)
				}
			}
		}
	}
}

// ceilingOf is the highest body point reached over traj, padded.
func ceilingOf(sc *scene.Scene, traj *rollout.Trajectory) float64 {
	top := 1.0
	for i := 0; i < traj.Len(); i++ {
		q := traj.Frame(i).Q
		for b := 0; b < sc.NumBodies() && 7*b+2 < len(q); b++ {
			top = math.Max(top, q[7*b+2])
		}
	}
	return top * 1.2
}
