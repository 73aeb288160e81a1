package scene

import (
	"gonum.org/v1/gonum/spatial/r3"
)

type GeomType string

const (
	Plane   GeomType = "plane"
	Sphere  GeomType = "sphere"
	Capsule GeomType = "capsule"
	Box     GeomType = "box"
)

type Geom struct {
	Name string
	Type GeomType
	// Pos is the geom centre relative to the body COM.
	Pos r3.Vec
	// Radius applies to spheres and capsules.
	Radius float64
	// HalfLength and Axis describe the capsule segment around Pos.
	HalfLength float64
	Axis       r3.Vec
	// HalfSize applies to boxes.
	HalfSize r3.Vec
	Mass     float64
	RGBA     [4]float64
}

// ContactPoints returns the points (body frame) and radii used for ground
// contact.
func (g Geom) ContactPoints() ([]r3.Vec, []float64) {
	switch g.Type {
	case Sphere:
		return []r3.Vec{g.Pos}, []float64{g.Radius}
	case Capsule:
		d := r3.Scale(g.HalfLength, g.Axis)
		return []r3.Vec{r3.Add(g.Pos, d), r3.Sub(g.Pos, d)}, []float64{g.Radius, g.Radius}
	case Box:
		pts := make([]r3.Vec, 0, 8)
		radii := make([]float64, 0, 8)
		for _, sx := range []float64{-1, 1} {
			for _, sy := range []float64{-1, 1} {
				for _, sz := range []float64{-1, 1} {
					c := r3.Vec{X: sx * g.HalfSize.X, Y: sy * g.HalfSize.Y, Z: sz * g.HalfSize.Z}
					pts = append(pts, r3.Add(g.Pos, c))
					radii = append(radii, 0)
				}
			}
		}
		return pts, radii
	}
	return nil, nil
}

type JointType string

const (
	Free  JointType = "free"
	Hinge JointType = "hinge"
	Ball  JointType = "ball"
)

type Joint struct {
	Name string
	Type JointType
	// Body is the child body index; Parent is -1 for the world.
	Body   int
	Parent int
	// Anchor is relative to the child COM, ParentAnchor to the parent COM
	// (a world point when Parent is -1).
	Anchor       r3.Vec
	ParentAnchor r3.Vec
	Axis         r3.Vec
	Limited      bool
	Range        [2]float64
	Damping      float64
}

type Actuator struct {
	Name      string
	Joint     int
	Gear      float64
	CtrlRange [2]float64
}

// Clip limits a control value to the actuator's range.
func (a Actuator) Clip(v float64) float64 {
	if v < a.CtrlRange[0] {
		return a.CtrlRange[0]
	}
	if v > a.CtrlRange[1] {
		return a.CtrlRange[1]
	}
	return v
}

type Body struct {
	Name   string
	Parent int
	// Pos is the rest position of the COM in world coordinates.
	Pos  r3.Vec
	Mass float64
	// Inertia is the row-major inertia tensor about the COM in body axes.
	Inertia [9]float64
	Geoms   []Geom
	Free    bool
}

func (b Body) clone() Body {
	c := b
	c.Geoms = append([]Geom(nil), b.Geoms...)
	return c
}

// Contact holds the contact and solver knobs read from <custom> numerics.
type Contact struct {
	Elasticity  float64
	Friction    float64
	Damping     float64
	MaxVelocity float64
}

const (
	DefaultTimestep    = 0.002
	DefaultSubsteps    = 1
	DefaultIterations  = 4
	DefaultFriction    = 1.0
	DefaultMaxVelocity = 100.0
	DefaultDensity     = 1000.0
)

type Scene struct {
	name       string
	gravity    r3.Vec
	timestep   float64
	substeps   int
	iterations int
	ground     bool
	groundSize float64
	contact    Contact
	bodies     []Body
	joints     []Joint
	actuators  []Actuator
}

func (s *Scene) Name() string        { return s.name }
func (s *Scene) Gravity() r3.Vec     { return s.gravity }
func (s *Scene) Timestep() float64   { return s.timestep }
func (s *Scene) Substeps() int       { return s.substeps }
func (s *Scene) Iterations() int     { return s.iterations }
func (s *Scene) HasGround() bool     { return s.ground }
func (s *Scene) GroundSize() float64 { return s.groundSize }
func (s *Scene) Contact() Contact    { return s.contact }
func (s *Scene) NumBodies() int      { return len(s.bodies) }

// ActSize is the length of the action vector accepted by a step.
func (s *Scene) ActSize() int { return len(s.actuators) }

func (s *Scene) Body(i int) Body { return s.bodies[i].clone() }

func (s *Scene) Bodies() []Body {
	out := make([]Body, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = b.clone()
	}
	return out
}

func (s *Scene) Joints() []Joint {
	return append([]Joint(nil), s.joints...)
}

func (s *Scene) Actuators() []Actuator {
	return append([]Actuator(nil), s.actuators...)
}

// BodyIndex returns the index of the named body or -1.
func (s *Scene) BodyIndex(name string) int {
	for i, b := range s.bodies {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// QSize is 7 per body: position then quaternion (w, x, y, z).
func (s *Scene) QSize() int { return 7 * len(s.bodies) }

// QDSize is 6 per body: linear then angular velocity, world frame.
func (s *Scene) QDSize() int { return 6 * len(s.bodies) }

// InitQ returns the rest configuration embedded in the description.
func (s *Scene) InitQ() []float64 {
	q := make([]float64, 0, s.QSize())
	for _, b := range s.bodies {
		q = append(q, b.Pos.X, b.Pos.Y, b.Pos.Z, 1, 0, 0, 0)
	}
	return q
}

// InitQD returns zero velocities; MJCF has no way to embed them.
func (s *Scene) InitQD() []float64 {
	return make([]float64, s.QDSize())
}
