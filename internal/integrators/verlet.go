package integrators

import "github.com/san-kum/trajlab/internal/dynamo"

// Verlet is velocity Verlet over a dynamo.SecondOrder system. The half-step
// velocity drives the position update so quaternion blocks stay consistent.
type Verlet struct {
	scratch  dynamo.State
	fallback RK4
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	so, ok := dyn.(dynamo.SecondOrder)
	if !ok {
		return v.fallback.Step(dyn, x, u, t, dt)
	}

	n := so.PosDim()
	if len(v.scratch) != len(x) {
		v.scratch = make(dynamo.State, len(x))
	}

	halfDt := 0.5 * dt
	dx := dyn.Derive(x, u, t)

	for i := n; i < len(x); i++ {
		v.scratch[i] = x[i] + halfDt*dx[i]
	}
	dq := so.Kinematics(x[:n], v.scratch[n:])
	for i := 0; i < n; i++ {
		v.scratch[i] = x[i] + dt*dq[i]
	}

	dxNew := dyn.Derive(v.scratch, u, t+dt)

	result := v.scratch.Clone()
	for i := n; i < len(x); i++ {
		result[i] = v.scratch[i] + halfDt*dxNew[i]
	}
	return result
}
