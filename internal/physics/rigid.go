package physics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/scene"
)

type body struct {
	invMass    float64
	mass       float64
	inertia    mat3
	invInertia mat3
}

// worldInvInertia returns R I⁻¹ Rᵀ for orientation rot.
func (b *body) worldInvInertia(rot mat3) mat3 {
	return rot.mul(b.invInertia).mul(rot.transpose())
}

func (b *body) worldInertia(rot mat3) mat3 {
	return rot.mul(b.inertia).mul(rot.transpose())
}

// rigidSystem is the unconstrained Newton-Euler dynamics of every body,
// driven by gravity and actuator torques. The state is [Q; QD].
type rigidSystem struct {
	bodies    []body
	joints    []scene.Joint
	actuators []scene.Actuator
	gravity   r3.Vec
}

func newRigidSystem(sc *scene.Scene) *rigidSystem {
	sys := &rigidSystem{
		joints:    sc.Joints(),
		actuators: sc.Actuators(),
		gravity:   sc.Gravity(),
	}
	for _, b := range sc.Bodies() {
		in := mat3(b.Inertia)
		sys.bodies = append(sys.bodies, body{
			mass:       b.Mass,
			invMass:    1 / b.Mass,
			inertia:    in,
			invInertia: in.inverse(),
		})
	}
	return sys
}

var (
	_ dynamo.SecondOrder = (*rigidSystem)(nil)
	_ dynamo.Hamiltonian = (*rigidSystem)(nil)
)

func (s *rigidSystem) StateDim() int   { return 13 * len(s.bodies) }
func (s *rigidSystem) ControlDim() int { return len(s.actuators) }
func (s *rigidSystem) PosDim() int     { return 7 * len(s.bodies) }

// torques maps an already clipped action to world torques per body.
func (s *rigidSystem) torques(q []float64, u dynamo.Control) []r3.Vec {
	out := make([]r3.Vec, len(s.bodies))
	for k, a := range s.actuators {
		if k >= len(u) || u[k] == 0 {
			continue
		}
		j := s.joints[a.Joint]
		axis := Rotate(quatAt(q, j.Body), j.Axis)
		tau := r3.Scale(a.Gear*u[k], axis)
		out[j.Body] = r3.Add(out[j.Body], tau)
		if j.Parent >= 0 {
			out[j.Parent] = r3.Sub(out[j.Parent], tau)
		}
	}
	return out
}

func (s *rigidSystem) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	n := s.PosDim()
	q, qd := x[:n], x[n:]
	out := make(dynamo.State, len(x))
	copy(out[:n], s.Kinematics(q, qd))

	tau := s.torques(q, u)
	for i := range s.bodies {
		b := &s.bodies[i]
		rot := rotation(quatAt(q, i))
		w := vecAt(qd, 6*i+3)
		iw := b.worldInertia(rot).mulVec(w)
		alpha := b.worldInvInertia(rot).mulVec(r3.Sub(tau[i], r3.Cross(w, iw)))

		setVec(out, n+6*i, s.gravity)
		setVec(out, n+6*i+3, alpha)
	}
	return out
}

// Kinematics returns dQ: linear velocity and ½ (0, ω) ⊗ q per body.
func (s *rigidSystem) Kinematics(q, qd dynamo.State) dynamo.State {
	out := make(dynamo.State, len(q))
	for i := range s.bodies {
		setVec(out, 7*i, vecAt(qd, 6*i))
		w := vecAt(qd, 6*i+3)
		qi := quatAt(q, i)
		// ½ (0, ω) ⊗ q written out.
		out[7*i+3] = 0.5 * (-w.X*qi.Imag - w.Y*qi.Jmag - w.Z*qi.Kmag)
		out[7*i+4] = 0.5 * (w.X*qi.Real + w.Y*qi.Kmag - w.Z*qi.Jmag)
		out[7*i+5] = 0.5 * (w.Y*qi.Real + w.Z*qi.Imag - w.X*qi.Kmag)
		out[7*i+6] = 0.5 * (w.Z*qi.Real + w.X*qi.Jmag - w.Y*qi.Imag)
	}
	return out
}

// Energy is kinetic plus gravitational potential energy.
func (s *rigidSystem) Energy(x dynamo.State) float64 {
	n := s.PosDim()
	q, qd := x[:n], x[n:]
	e := 0.0
	for i := range s.bodies {
		b := &s.bodies[i]
		v := vecAt(qd, 6*i)
		w := vecAt(qd, 6*i+3)
		iw := b.worldInertia(rotation(quatAt(q, i))).mulVec(w)
		e += 0.5*b.mass*r3.Dot(v, v) + 0.5*r3.Dot(w, iw)
		e -= b.mass * r3.Dot(s.gravity, vecAt(q, 7*i))
	}
	return e
}
