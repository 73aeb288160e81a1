package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/integrators"
	"github.com/san-kum/trajlab/internal/scene"
)

// State is one simulation snapshot. Step never mutates its input.
type State struct {
	Q    []float64
	QD   []float64
	Time float64
}

func (s State) Clone() State {
	return State{
		Q:    append([]float64(nil), s.Q...),
		QD:   append([]float64(nil), s.QD...),
		Time: s.Time,
	}
}

type Pipeline struct {
	scene      *scene.Scene
	sys        *rigidSystem
	integ      dynamo.Integrator
	joints     []jointConstraint
	contacts   []contactPoint
	contact    scene.Contact
	ground     bool
	dt         float64
	substeps   int
	iterations int
}

type Option func(*Pipeline)

// WithIntegrator replaces the default symplectic Euler integrator.
func WithIntegrator(integ dynamo.Integrator) Option {
	return func(p *Pipeline) {
		if integ != nil {
			p.integ = integ
		}
	}
}

func New(sc *scene.Scene, opts ...Option) (*Pipeline, error) {
	if sc == nil || sc.NumBodies() == 0 {
		return nil, dynamo.Configf("physics: empty scene")
	}
	p := &Pipeline{
		scene:      sc,
		sys:        newRigidSystem(sc),
		integ:      integrators.NewSymplecticEuler(),
		contact:    sc.Contact(),
		ground:     sc.HasGround(),
		dt:         sc.Timestep(),
		substeps:   sc.Substeps(),
		iterations: sc.Iterations(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.joints = buildJoints(sc)
	p.contacts = buildContacts(sc)
	return p, nil
}

func (p *Pipeline) Scene() *scene.Scene { return p.scene }
func (p *Pipeline) Timestep() float64   { return p.dt }

// Init builds the initial state. A nil slice selects the scene default; an
// explicit slice must match the scene layout.
func (p *Pipeline) Init(qInit, qdInit []float64) (State, error) {
	q := p.scene.InitQ()
	if qInit != nil {
		if len(qInit) != len(q) {
			return State{}, dynamo.Configf("initial q has %d values, scene needs %d", len(qInit), len(q))
		}
		q = append([]float64(nil), qInit...)
	}
	qd := p.scene.InitQD()
	if qdInit != nil {
		if len(qdInit) != len(qd) {
			return State{}, dynamo.Configf("initial qd has %d values, scene needs %d", len(qdInit), len(qd))
		}
		qd = append([]float64(nil), qdInit...)
	}
	if !finite(q) || !finite(qd) {
		return State{}, dynamo.Configf("initial state is not finite")
	}

	for i := 0; i < p.scene.NumBodies(); i++ {
		n := quatAt(q, i)
		if n.Real == 0 && n.Imag == 0 && n.Jmag == 0 && n.Kmag == 0 {
			return State{}, dynamo.Configf("body %d has a zero quaternion", i)
		}
		setQuat(q, i, normalize(n))
	}
	return State{Q: q, QD: qd}, nil
}

// Step advances s by one timestep. The action is clipped to each actuator's
// control range.
func (p *Pipeline) Step(s State, action []float64) (State, error) {
	if len(action) != p.scene.ActSize() {
		return s, dynamo.Configf("action has %d values, scene needs %d", len(action), p.scene.ActSize())
	}
	if len(s.Q) != p.scene.QSize() || len(s.QD) != p.scene.QDSize() {
		return s, dynamo.Configf("state layout does not match scene %q", p.scene.Name())
	}

	u := make(dynamo.Control, len(action))
	for k, a := range p.sys.actuators {
		u[k] = a.Clip(action[k])
	}

	n := p.sys.PosDim()
	x := make(dynamo.State, 0, n+len(s.QD))
	x = append(x, s.Q...)
	x = append(x, s.QD...)

	h := p.dt / float64(p.substeps)
	t := s.Time
	ws := newWorkspace(len(p.contacts), n)
	for sub := 0; sub < p.substeps; sub++ {
		x = p.integ.Step(p.sys, x, u, t, h)
		p.substep(x[:n], x[n:], h, ws)
		t += h
	}

	if !finite(x) {
		return s, &dynamo.SimulationError{
			Step:    int(math.Round(s.Time / p.dt)),
			Time:    s.Time,
			State:   x,
			Wrapped: dynamo.ErrDivergence,
		}
	}
	return State{
		Q:    append([]float64(nil), x[:n]...),
		QD:   append([]float64(nil), x[n:]...),
		Time: s.Time + p.dt,
	}, nil
}

// Energy is the total mechanical energy of s.
func (p *Pipeline) Energy(s State) float64 {
	x := make(dynamo.State, 0, len(s.Q)+len(s.QD))
	x = append(x, s.Q...)
	x = append(x, s.QD...)
	return p.sys.Energy(x)
}

// JointAngles returns the angle of every hinge joint, in scene order.
func (p *Pipeline) JointAngles(q []float64) []float64 {
	out := make([]float64, 0, len(p.joints))
	for i := range p.joints {
		if p.joints[i].hinge {
			out = append(out, p.joints[i].angle(q))
		}
	}
	return out
}

// NumHinges is the length of JointAngles.
func (p *Pipeline) NumHinges() int {
	n := 0
	for i := range p.joints {
		if p.joints[i].hinge {
			n++
		}
	}
	return n
}

type workspace struct {
	qInt   []float64
	lambda []float64
	vnPre  []float64
}

func newWorkspace(contacts, posDim int) *workspace {
	return &workspace{
		qInt:   make([]float64, posDim),
		lambda: make([]float64, contacts),
		vnPre:  make([]float64, contacts),
	}
}

// substep projects constraints on the integrated q and qd in place.
func (p *Pipeline) substep(q, qd []float64, h float64, ws *workspace) {
	for i := 0; i < p.scene.NumBodies(); i++ {
		setQuat(q, i, normalize(quatAt(q, i)))
	}
	copy(ws.qInt, q)
	for k := range p.contacts {
		ws.lambda[k] = 0
		ws.vnPre[k] = p.contacts[k].normalVelocity(q, qd)
	}

	for it := 0; it < p.iterations; it++ {
		for j := range p.joints {
			p.solveJoint(q, &p.joints[j])
		}
		if p.ground {
			for k := range p.contacts {
				ws.lambda[k] += p.solveContact(q, &p.contacts[k])
			}
		}
	}

	for i := 0; i < p.scene.NumBodies(); i++ {
		dx := r3.Sub(vecAt(q, 7*i), vecAt(ws.qInt, 7*i))
		setVec(qd, 6*i, r3.Add(vecAt(qd, 6*i), r3.Scale(1/h, dx)))
		dw := angularDelta(quatAt(ws.qInt, i), quatAt(q, i))
		setVec(qd, 6*i+3, r3.Add(vecAt(qd, 6*i+3), r3.Scale(1/h, dw)))
	}

	p.dampJoints(q, qd, h)
	if p.ground {
		p.contactVelocities(q, qd, h, ws)
	}
	p.limitVelocities(qd, h)
}

func (p *Pipeline) limitVelocities(qd []float64, h float64) {
	scale := 1.0
	if p.contact.Damping > 0 {
		scale = 1 / (1 + p.contact.Damping*h)
	}
	vmax := p.contact.MaxVelocity
	for i := 0; i < p.scene.NumBodies(); i++ {
		for _, off := range [2]int{6 * i, 6*i + 3} {
			v := r3.Scale(scale, vecAt(qd, off))
			if vmax > 0 {
				if l := r3.Norm(v); l > vmax {
					v = r3.Scale(vmax/l, v)
				}
			}
			setVec(qd, off, v)
		}
	}
}
