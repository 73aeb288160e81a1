package scene

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/trajlab/internal/dynamo"
)

type xmlDoc struct {
	XMLName  xml.Name `xml:"mujoco"`
	Model    string   `xml:"model,attr"`
	Compiler struct {
		Angle string `xml:"angle,attr"`
	} `xml:"compiler"`
	Option struct {
		Gravity  string `xml:"gravity,attr"`
		Timestep string `xml:"timestep,attr"`
	} `xml:"option"`
	Custom struct {
		Numerics []xmlNumeric `xml:"numeric"`
	} `xml:"custom"`
	Worldbody xmlBody `xml:"worldbody"`
	Actuator  struct {
		Motors []xmlMotor `xml:"motor"`
	} `xml:"actuator"`
}

type xmlNumeric struct {
	Name string `xml:"name,attr"`
	Data string `xml:"data,attr"`
}

type xmlBody struct {
	Name      string     `xml:"name,attr"`
	Pos       string     `xml:"pos,attr"`
	FreeJoint *struct{}  `xml:"freejoint"`
	Joints    []xmlJoint `xml:"joint"`
	Geoms     []xmlGeom  `xml:"geom"`
	Bodies    []xmlBody  `xml:"body"`
}

type xmlJoint struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Axis    string `xml:"axis,attr"`
	Pos     string `xml:"pos,attr"`
	Range   string `xml:"range,attr"`
	Limited string `xml:"limited,attr"`
	Damping string `xml:"damping,attr"`
}

type xmlGeom struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Size    string `xml:"size,attr"`
	Pos     string `xml:"pos,attr"`
	FromTo  string `xml:"fromto,attr"`
	Mass    string `xml:"mass,attr"`
	Density string `xml:"density,attr"`
	RGBA    string `xml:"rgba,attr"`
}

type xmlMotor struct {
	Name      string `xml:"name,attr"`
	Joint     string `xml:"joint,attr"`
	Gear      string `xml:"gear,attr"`
	CtrlRange string `xml:"ctrlrange,attr"`
}

var defaultRGBA = [4]float64{0.8, 0.6, 0.4, 1}

// Parse builds a Scene from an MJCF document. Every failure wraps
// dynamo.ErrParse.
func Parse(data []byte) (*Scene, error) {
	var doc xmlDoc
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrParse, err)
	}

	p := &parser{
		scene: &Scene{
			name:       doc.Model,
			gravity:    r3.Vec{Z: -9.81},
			timestep:   DefaultTimestep,
			substeps:   DefaultSubsteps,
			iterations: DefaultIterations,
			contact: Contact{
				Friction:    DefaultFriction,
				MaxVelocity: DefaultMaxVelocity,
			},
		},
		degrees: doc.Compiler.Angle != "radian",
	}

	if err := p.options(doc); err != nil {
		return nil, err
	}
	if err := p.world(doc.Worldbody); err != nil {
		return nil, err
	}
	if err := p.motors(doc.Actuator.Motors); err != nil {
		return nil, err
	}
	if len(p.scene.bodies) == 0 {
		return nil, dynamo.Parsef("scene has no bodies")
	}
	return p.scene, nil
}

type parser struct {
	scene   *Scene
	degrees bool
}

func (p *parser) options(doc xmlDoc) error {
	s := p.scene
	if doc.Option.Gravity != "" {
		g, err := parseVec(doc.Option.Gravity, "option gravity")
		if err != nil {
			return err
		}
		s.gravity = g
	}
	if doc.Option.Timestep != "" {
		dt, err := parsePositive(doc.Option.Timestep, "option timestep")
		if err != nil {
			return err
		}
		s.timestep = dt
	}

	for _, n := range doc.Custom.Numerics {
		v, err := parseFloat(n.Data, "numeric "+n.Name)
		if err != nil {
			return err
		}
		switch n.Name {
		case "substeps":
			if s.substeps, err = parseCount(v, "numeric substeps"); err != nil {
				return err
			}
		case "iterations":
			if s.iterations, err = parseCount(v, "numeric iterations"); err != nil {
				return err
			}
		case "elasticity":
			if s.contact.Elasticity, err = nonNegative(v, "numeric elasticity"); err != nil {
				return err
			}
		case "friction":
			if s.contact.Friction, err = nonNegative(v, "numeric friction"); err != nil {
				return err
			}
		case "damping":
			if s.contact.Damping, err = nonNegative(v, "numeric damping"); err != nil {
				return err
			}
		case "maxvel":
			s.contact.MaxVelocity = v
		}
	}
	return nil
}

func (p *parser) world(wb xmlBody) error {
	for i, g := range wb.Geoms {
		if g.Type != string(Plane) {
			return dynamo.Parsef("worldbody geom %d: only planes may be attached to the world, got %q", i, g.Type)
		}
		p.scene.ground = true
		p.scene.groundSize = 20
		if g.Size != "" {
			size, err := parseFloats(g.Size, "plane size")
			if err != nil {
				return err
			}
			if len(size) > 0 && size[0] > 0 {
				p.scene.groundSize = size[0]
			}
		}
	}
	if len(wb.Joints) > 0 {
		return dynamo.Parsef("worldbody cannot carry joints")
	}
	for _, b := range wb.Bodies {
		if err := p.body(b, -1, r3.Vec{}); err != nil {
			return err
		}
	}
	return nil
}

// body appends b and its children. origin is the parent body's frame origin
// in world coordinates.
func (p *parser) body(xb xmlBody, parent int, parentOrigin r3.Vec) error {
	idx := len(p.scene.bodies)
	name := xb.Name
	if name == "" {
		name = fmt.Sprintf("body%d", idx)
	}

	local := r3.Vec{}
	if xb.Pos != "" {
		v, err := parseVec(xb.Pos, "body "+name+" pos")
		if err != nil {
			return err
		}
		local = v
	}
	origin := r3.Add(parentOrigin, local)

	if len(xb.Geoms) == 0 {
		return dynamo.Parsef("body %q has no geoms", name)
	}

	geoms := make([]Geom, 0, len(xb.Geoms))
	for i, xg := range xb.Geoms {
		g, err := p.geom(xg, fmt.Sprintf("body %q geom %d", name, i))
		if err != nil {
			return err
		}
		geoms = append(geoms, g)
	}

	mass, com, inertia := massProperties(geoms)
	if mass <= 0 {
		return dynamo.Parsef("body %q has non-positive mass", name)
	}
	for i := range geoms {
		geoms[i].Pos = r3.Sub(geoms[i].Pos, com)
	}

	body := Body{
		Name:    name,
		Parent:  parent,
		Pos:     r3.Add(origin, com),
		Mass:    mass,
		Inertia: inertia,
		Geoms:   geoms,
		Free:    xb.FreeJoint != nil,
	}

	var joints []Joint
	for _, xj := range xb.Joints {
		if xj.Type == string(Free) {
			body.Free = true
			continue
		}
		j, err := p.joint(xj, idx, parent, origin, com)
		if err != nil {
			return fmt.Errorf("body %q: %w", name, err)
		}
		joints = append(joints, j)
	}

	switch {
	case body.Free && parent >= 0:
		return dynamo.Parsef("body %q: free joints are only allowed on top-level bodies", name)
	case body.Free && len(joints) > 0:
		return dynamo.Parsef("body %q: free joint cannot be combined with other joints", name)
	case !body.Free && len(joints) == 0:
		return dynamo.Parsef("body %q has no joint; welded bodies are not supported", name)
	}

	p.scene.bodies = append(p.scene.bodies, body)
	p.scene.joints = append(p.scene.joints, joints...)

	for _, child := range xb.Bodies {
		if err := p.body(child, idx, origin); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) geom(xg xmlGeom, where string) (Geom, error) {
	g := Geom{Name: xg.Name, Type: GeomType(xg.Type), RGBA: defaultRGBA}
	if g.Type == "" {
		g.Type = Sphere
	}

	size, err := parseFloats(xg.Size, where+" size")
	if err != nil {
		return g, err
	}
	if xg.Pos != "" {
		if g.Pos, err = parseVec(xg.Pos, where+" pos"); err != nil {
			return g, err
		}
	}
	if xg.RGBA != "" {
		rgba, err := parseFloats(xg.RGBA, where+" rgba")
		if err != nil {
			return g, err
		}
		if len(rgba) != 4 {
			return g, dynamo.Parsef("%s rgba needs 4 values", where)
		}
		copy(g.RGBA[:], rgba)
	}

	switch g.Type {
	case Sphere:
		if len(size) < 1 || size[0] <= 0 {
			return g, dynamo.Parsef("%s: sphere needs a positive radius", where)
		}
		g.Radius = size[0]
	case Capsule:
		if len(size) < 1 || size[0] <= 0 {
			return g, dynamo.Parsef("%s: capsule needs a positive radius", where)
		}
		g.Radius = size[0]
		if xg.FromTo != "" {
			ft, err := parseFloats(xg.FromTo, where+" fromto")
			if err != nil {
				return g, err
			}
			if len(ft) != 6 {
				return g, dynamo.Parsef("%s fromto needs 6 values", where)
			}
			from := r3.Vec{X: ft[0], Y: ft[1], Z: ft[2]}
			to := r3.Vec{X: ft[3], Y: ft[4], Z: ft[5]}
			seg := r3.Sub(to, from)
			length := r3.Norm(seg)
			if length == 0 {
				return g, dynamo.Parsef("%s: degenerate fromto", where)
			}
			g.Pos = r3.Scale(0.5, r3.Add(from, to))
			g.Axis = r3.Scale(1/length, seg)
			g.HalfLength = 0.5 * length
		} else {
			if len(size) < 2 || size[1] <= 0 {
				return g, dynamo.Parsef("%s: capsule needs fromto or a half length", where)
			}
			g.Axis = r3.Vec{Z: 1}
			g.HalfLength = size[1]
		}
	case Box:
		if len(size) != 3 || size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
			return g, dynamo.Parsef("%s: box needs 3 positive half sizes", where)
		}
		g.HalfSize = r3.Vec{X: size[0], Y: size[1], Z: size[2]}
	case Plane:
		return g, dynamo.Parsef("%s: planes belong to the worldbody", where)
	default:
		return g, dynamo.Parsef("%s: unknown geom type %q", where, xg.Type)
	}

	switch {
	case xg.Mass != "":
		if g.Mass, err = parsePositive(xg.Mass, where+" mass"); err != nil {
			return g, err
		}
	default:
		density := DefaultDensity
		if xg.Density != "" {
			if density, err = parsePositive(xg.Density, where+" density"); err != nil {
				return g, err
			}
		}
		g.Mass = density * volume(g)
	}
	return g, nil
}

func (p *parser) joint(xj xmlJoint, body, parent int, origin, com r3.Vec) (Joint, error) {
	j := Joint{
		Name:   xj.Name,
		Type:   JointType(xj.Type),
		Body:   body,
		Parent: parent,
		Axis:   r3.Vec{Z: 1},
	}
	if j.Type == "" {
		j.Type = Hinge
	}
	if j.Type != Hinge && j.Type != Ball {
		return j, dynamo.Parsef("joint %q: unsupported type %q", xj.Name, xj.Type)
	}

	anchor := r3.Vec{}
	if xj.Pos != "" {
		v, err := parseVec(xj.Pos, "joint "+xj.Name+" pos")
		if err != nil {
			return j, err
		}
		anchor = v
	}
	if xj.Axis != "" {
		v, err := parseVec(xj.Axis, "joint "+xj.Name+" axis")
		if err != nil {
			return j, err
		}
		n := r3.Norm(v)
		if n == 0 {
			return j, dynamo.Parsef("joint %q: zero axis", xj.Name)
		}
		j.Axis = r3.Scale(1/n, v)
	}
	if xj.Damping != "" {
		v, err := parseFloat(xj.Damping, "joint "+xj.Name+" damping")
		if err != nil {
			return j, err
		}
		j.Damping = v
	}
	if xj.Range != "" {
		r, err := parseFloats(xj.Range, "joint "+xj.Name+" range")
		if err != nil {
			return j, err
		}
		if len(r) != 2 || r[0] > r[1] {
			return j, dynamo.Parsef("joint %q: range needs lo <= hi", xj.Name)
		}
		if p.degrees {
			r[0], r[1] = r[0]*math.Pi/180, r[1]*math.Pi/180
		}
		j.Range = [2]float64{r[0], r[1]}
		j.Limited = xj.Limited != "false"
	}

	world := r3.Add(origin, anchor)
	j.Anchor = r3.Sub(anchor, com)
	if parent >= 0 {
		j.ParentAnchor = r3.Sub(world, p.scene.bodies[parent].Pos)
	} else {
		j.ParentAnchor = world
	}
	return j, nil
}

func (p *parser) motors(motors []xmlMotor) error {
	for i, m := range motors {
		ji := -1
		for k, j := range p.scene.joints {
			if j.Name == m.Joint {
				ji = k
				break
			}
		}
		if ji < 0 {
			return dynamo.Parsef("motor %d (%q): unknown joint %q", i, m.Name, m.Joint)
		}

		a := Actuator{Name: m.Name, Joint: ji, Gear: 1, CtrlRange: [2]float64{-1, 1}}
		if a.Name == "" {
			a.Name = m.Joint
		}
		if m.Gear != "" {
			g, err := parseFloats(m.Gear, "motor "+a.Name+" gear")
			if err != nil {
				return err
			}
			if len(g) == 0 {
				return dynamo.Parsef("motor %q: empty gear", a.Name)
			}
			a.Gear = g[0]
		}
		if m.CtrlRange != "" {
			r, err := parseFloats(m.CtrlRange, "motor "+a.Name+" ctrlrange")
			if err != nil {
				return err
			}
			if len(r) != 2 || r[0] > r[1] {
				return dynamo.Parsef("motor %q: ctrlrange needs lo <= hi", a.Name)
			}
			a.CtrlRange = [2]float64{r[0], r[1]}
		}
		p.scene.actuators = append(p.scene.actuators, a)
	}
	return nil
}

func parseFloat(s, what string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, dynamo.Parsef("%s: %q is not a number", what, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, dynamo.Parsef("%s: %q is not finite", what, s)
	}
	return v, nil
}

// maxCount bounds the per-step loop counts a model may request.
const maxCount = 1000

func parseCount(v float64, what string) (int, error) {
	if v != math.Trunc(v) || v < 1 || v > maxCount {
		return 0, dynamo.Parsef("%s must be an integer in [1, %d], got %v", what, maxCount, v)
	}
	return int(v), nil
}

func nonNegative(v float64, what string) (float64, error) {
	if v < 0 {
		return 0, dynamo.Parsef("%s must be >= 0, got %v", what, v)
	}
	return v, nil
}

func parsePositive(s, what string) (float64, error) {
	v, err := parseFloat(s, what)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, dynamo.Parsef("%s must be positive, got %v", what, v)
	}
	return v, nil
}

func parseFloats(s, what string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseFloat(f, what)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseVec(s, what string) (r3.Vec, error) {
	v, err := parseFloats(s, what)
	if err != nil {
		return r3.Vec{}, err
	}
	if len(v) != 3 {
		return r3.Vec{}, dynamo.Parsef("%s needs 3 values, got %d", what, len(v))
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}
