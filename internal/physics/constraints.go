package physics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/trajlab/internal/scene"
)

var up = r3.Vec{Z: 1}

// jointConstraint keeps a child anchor on its parent anchor. Bodies with a
// single hinge also get axis alignment and angle limits; bodies carrying
// several hinges or a ball joint only keep the point constraint.
type jointConstraint struct {
	child        int
	parent       int
	anchor       r3.Vec
	parentAnchor r3.Vec
	axis         r3.Vec
	ref          r3.Vec
	hinge        bool
	align        bool
	limited      bool
	lo, hi       float64
	damping      float64
}

func buildJoints(sc *scene.Scene) []jointConstraint {
	joints := sc.Joints()
	perBody := make(map[int]int)
	for _, j := range joints {
		perBody[j.Body]++
	}

	out := make([]jointConstraint, 0, len(joints))
	for _, j := range joints {
		single := j.Type == scene.Hinge && perBody[j.Body] == 1
		out = append(out, jointConstraint{
			child:        j.Body,
			parent:       j.Parent,
			anchor:       j.Anchor,
			parentAnchor: j.ParentAnchor,
			axis:         j.Axis,
			ref:          perpendicular(j.Axis),
			hinge:        j.Type == scene.Hinge,
			align:        single,
			limited:      single && j.Limited,
			lo:           j.Range[0],
			hi:           j.Range[1],
			damping:      j.Damping,
		})
	}
	return out
}

// parentFrame rotates v from the parent body frame into world coordinates.
func (j *jointConstraint) parentFrame(q []float64, v r3.Vec) r3.Vec {
	if j.parent < 0 {
		return v
	}
	return Rotate(quatAt(q, j.parent), v)
}

// angle is the rotation of the child about the joint axis, measured from
// the rest pose.
func (j *jointConstraint) angle(q []float64) float64 {
	a := j.parentFrame(q, j.axis)
	bp := j.parentFrame(q, j.ref)
	bc := Rotate(quatAt(q, j.child), j.ref)
	return math.Atan2(r3.Dot(r3.Cross(bp, bc), a), r3.Dot(bp, bc))
}

type contactPoint struct {
	body   int
	local  r3.Vec
	radius float64
}

func buildContacts(sc *scene.Scene) []contactPoint {
	var out []contactPoint
	for i, b := range sc.Bodies() {
		for _, g := range b.Geoms {
			pts, radii := g.ContactPoints()
			for k := range pts {
				out = append(out, contactPoint{body: i, local: pts[k], radius: radii[k]})
			}
		}
	}
	return out
}

// arm is the offset from the body COM to the lowest point of the contact
// sphere.
func (c *contactPoint) arm(q []float64) r3.Vec {
	r := Rotate(quatAt(q, c.body), c.local)
	r.Z -= c.radius
	return r
}

func (c *contactPoint) normalVelocity(q, qd []float64) float64 {
	arm := c.arm(q)
	v := r3.Add(vecAt(qd, 6*c.body), r3.Cross(vecAt(qd, 6*c.body+3), arm))
	return v.Z
}

func (p *Pipeline) invInertia(q []float64, i int) mat3 {
	return p.sys.bodies[i].worldInvInertia(rotation(quatAt(q, i)))
}

// pointWeight is the generalised inverse mass of body i along n at arm.
func (p *Pipeline) pointWeight(q []float64, i int, arm, n r3.Vec) float64 {
	if i < 0 {
		return 0
	}
	rn := r3.Cross(arm, n)
	return p.sys.bodies[i].invMass + r3.Dot(rn, p.invInertia(q, i).mulVec(rn))
}

func (p *Pipeline) angularWeight(q []float64, i int, n r3.Vec) float64 {
	if i < 0 {
		return 0
	}
	return r3.Dot(n, p.invInertia(q, i).mulVec(n))
}

// push applies a positional impulse at arm to body i.
func (p *Pipeline) push(q []float64, i int, impulse, arm r3.Vec) {
	if i < 0 {
		return
	}
	b := &p.sys.bodies[i]
	setVec(q, 7*i, r3.Add(vecAt(q, 7*i), r3.Scale(b.invMass, impulse)))
	p.twist(q, i, r3.Cross(arm, impulse))
}

// twist applies an angular positional impulse to body i.
func (p *Pipeline) twist(q []float64, i int, impulse r3.Vec) {
	if i < 0 {
		return
	}
	dtheta := p.invInertia(q, i).mulVec(impulse)
	setQuat(q, i, spin(quatAt(q, i), dtheta))
}

func (p *Pipeline) solveJoint(q []float64, j *jointConstraint) {
	if j.align {
		p.alignAxis(q, j)
		if j.limited {
			p.limitAngle(q, j)
		}
	}

	rc := Rotate(quatAt(q, j.child), j.anchor)
	pc := r3.Add(vecAt(q, 7*j.child), rc)
	rp := r3.Vec{}
	pp := j.parentAnchor
	if j.parent >= 0 {
		rp = Rotate(quatAt(q, j.parent), j.parentAnchor)
		pp = r3.Add(vecAt(q, 7*j.parent), rp)
	}

	d := r3.Sub(pp, pc)
	c := r3.Norm(d)
	if c < 1e-12 {
		return
	}
	n := r3.Scale(1/c, d)
	w := p.pointWeight(q, j.child, rc, n) + p.pointWeight(q, j.parent, rp, n)
	if w == 0 {
		return
	}
	impulse := r3.Scale(c/w, n)
	p.push(q, j.child, impulse, rc)
	p.push(q, j.parent, r3.Scale(-1, impulse), rp)
}

func (p *Pipeline) alignAxis(q []float64, j *jointConstraint) {
	ac := Rotate(quatAt(q, j.child), j.axis)
	ap := j.parentFrame(q, j.axis)
	d := r3.Cross(ac, ap)
	theta := r3.Norm(d)
	if theta < 1e-12 {
		return
	}
	p.rotateApart(q, j, r3.Scale(1/theta, d), theta)
}

func (p *Pipeline) limitAngle(q []float64, j *jointConstraint) {
	phi := j.angle(q)
	var corr float64
	switch {
	case phi < j.lo:
		corr = j.lo - phi
	case phi > j.hi:
		corr = j.hi - phi
	default:
		return
	}
	p.rotateApart(q, j, j.parentFrame(q, j.axis), corr)
}

// rotateApart turns the child by theta about n relative to its parent.
// Both bodies pivot about the joint point, so the point constraint is kept,
// and the turn is shared by inverse inertia about that point.
func (p *Pipeline) rotateApart(q []float64, j *jointConstraint, n r3.Vec, theta float64) {
	pivot := r3.Add(vecAt(q, 7*j.child), Rotate(quatAt(q, j.child), j.anchor))
	wc := p.pivotWeight(q, j.child, pivot, n)
	wp := p.pivotWeight(q, j.parent, pivot, n)
	w := wc + wp
	if w == 0 {
		return
	}
	p.turn(q, j.child, pivot, r3.Scale(theta*wc/w, n))
	p.turn(q, j.parent, pivot, r3.Scale(-theta*wp/w, n))
}

// pivotWeight is nᵀ I⁻¹ n with the inertia of body i taken about pivot.
func (p *Pipeline) pivotWeight(q []float64, i int, pivot, n r3.Vec) float64 {
	if i < 0 {
		return 0
	}
	b := &p.sys.bodies[i]
	r := r3.Sub(pivot, vecAt(q, 7*i))
	in := b.worldInertia(rotation(quatAt(q, i)))
	rv := [3]float64{r.X, r.Y, r.Z}
	r2 := r3.Dot(r, r)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			shift := -b.mass * rv[row] * rv[col]
			if row == col {
				shift += b.mass * r2
			}
			in[row*3+col] += shift
		}
	}
	return r3.Dot(n, in.inverse().mulVec(n))
}

// turn rotates body i about pivot by the rotation vector dtheta.
func (p *Pipeline) turn(q []float64, i int, pivot, dtheta r3.Vec) {
	if i < 0 {
		return
	}
	d := spin(quat.Number{Real: 1}, dtheta)
	x := r3.Add(pivot, Rotate(d, r3.Sub(vecAt(q, 7*i), pivot)))
	setVec(q, 7*i, x)
	setQuat(q, i, normalize(quat.Mul(d, quatAt(q, i))))
}

// solveContact lifts the contact point out of the ground plane and returns
// the positional impulse applied.
func (p *Pipeline) solveContact(q []float64, c *contactPoint) float64 {
	arm := c.arm(q)
	depth := -(vecAt(q, 7*c.body).Z + arm.Z)
	if depth <= 0 {
		return 0
	}
	w := p.pointWeight(q, c.body, arm, up)
	if w == 0 {
		return 0
	}
	lambda := depth / w
	p.push(q, c.body, r3.Scale(lambda, up), arm)
	return lambda
}

// applyImpulse changes the velocities of body i by impulse applied at arm.
func (p *Pipeline) applyImpulse(q, qd []float64, i int, impulse, arm r3.Vec) {
	if i < 0 {
		return
	}
	b := &p.sys.bodies[i]
	setVec(qd, 6*i, r3.Add(vecAt(qd, 6*i), r3.Scale(b.invMass, impulse)))
	dw := p.invInertia(q, i).mulVec(r3.Cross(arm, impulse))
	setVec(qd, 6*i+3, r3.Add(vecAt(qd, 6*i+3), dw))
}

func (p *Pipeline) applyAngular(q, qd []float64, i int, impulse r3.Vec) {
	if i < 0 {
		return
	}
	dw := p.invInertia(q, i).mulVec(impulse)
	setVec(qd, 6*i+3, r3.Add(vecAt(qd, 6*i+3), dw))
}

// dampJoints removes relative angular velocity across damped joints,
// implicitly so large damping stays stable.
func (p *Pipeline) dampJoints(q, qd []float64, h float64) {
	for k := range p.joints {
		j := &p.joints[k]
		if j.damping <= 0 {
			continue
		}
		rel := vecAt(qd, 6*j.child+3)
		if j.parent >= 0 {
			rel = r3.Sub(rel, vecAt(qd, 6*j.parent+3))
		}

		var n r3.Vec
		if j.hinge {
			n = Rotate(quatAt(q, j.child), j.axis)
		} else {
			l := r3.Norm(rel)
			if l < 1e-12 {
				continue
			}
			n = r3.Scale(1/l, rel)
		}
		wrel := r3.Dot(rel, n)
		w := p.angularWeight(q, j.child, n) + p.angularWeight(q, j.parent, n)
		if w == 0 || wrel == 0 {
			continue
		}
		dw := wrel * (1 - 1/(1+j.damping*h*w))
		impulse := r3.Scale(dw/w, n)
		p.applyAngular(q, qd, j.child, r3.Scale(-1, impulse))
		p.applyAngular(q, qd, j.parent, impulse)
	}
}

// contactVelocities applies restitution and Coulomb friction at every
// contact that was active during the position solve.
func (p *Pipeline) contactVelocities(q, qd []float64, h float64, ws *workspace) {
	g := r3.Norm(p.sys.gravity)
	for k := range p.contacts {
		if ws.lambda[k] <= 0 {
			continue
		}
		c := &p.contacts[k]
		arm := c.arm(q)
		v := r3.Add(vecAt(qd, 6*c.body), r3.Cross(vecAt(qd, 6*c.body+3), arm))
		vn := v.Z
		vt := r3.Vec{X: v.X, Y: v.Y}

		target := 0.0
		if ws.vnPre[k] < -2*g*h {
			target = -p.contact.Elasticity * ws.vnPre[k]
		}
		if dv := target - vn; dv != 0 {
			w := p.pointWeight(q, c.body, arm, up)
			if w > 0 {
				p.applyImpulse(q, qd, c.body, r3.Scale(dv/w, up), arm)
			}
		}

		speed := r3.Norm(vt)
		if speed < 1e-12 || p.contact.Friction <= 0 {
			continue
		}
		dir := r3.Scale(1/speed, vt)
		w := p.pointWeight(q, c.body, arm, dir)
		if w == 0 {
			continue
		}
		jt := math.Min(speed/w, p.contact.Friction*ws.lambda[k]/h)
		p.applyImpulse(q, qd, c.body, r3.Scale(-jt, dir), arm)
	}
}
