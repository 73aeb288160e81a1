package integrators

import "github.com/san-kum/trajlab/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// SymplecticEuler updates velocities first and then advances positions with
// the new velocities. Systems that are not dynamo.SecondOrder fall back to
// explicit Euler.
type SymplecticEuler struct {
	fallback Euler
}

func NewSymplecticEuler() *SymplecticEuler {
	return &SymplecticEuler{}
}

func (s *SymplecticEuler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	so, ok := dyn.(dynamo.SecondOrder)
	if !ok {
		return s.fallback.Step(dyn, x, u, t, dt)
	}

	n := so.PosDim()
	dx := dyn.Derive(x, u, t)

	result := make(dynamo.State, len(x))
	for i := n; i < len(x); i++ {
		result[i] = x[i] + dt*dx[i]
	}

	dq := so.Kinematics(x[:n], result[n:])
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt*dq[i]
	}
	return result
}
