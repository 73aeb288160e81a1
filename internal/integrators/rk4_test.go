package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajlab/internal/dynamo"
)

// oscillator is the unit harmonic oscillator, a = -x, laid out as [x; v].
type oscillator struct{}

func (oscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (oscillator) StateDim() int   { return 2 }
func (oscillator) ControlDim() int { return 0 }
func (oscillator) PosDim() int     { return 1 }
func (oscillator) Kinematics(q, qd dynamo.State) dynamo.State {
	return qd.Clone()
}

func TestRK4Accuracy(t *testing.T) {
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(oscillator{}, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestSecondOrderIntegratorsTrackOscillator(t *testing.T) {
	tests := []struct {
		name string
		tol  float64
	}{
		{"symplectic", 2e-2},
		{"verlet", 1e-3},
		{"euler", 5e-2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ, err := New(tt.name)
			if err != nil {
				t.Fatalf("New(%q): %v", tt.name, err)
			}
			x := dynamo.State{1.0, 0.0}
			dt := 0.001
			for i := 0; i < 1000; i++ {
				x = integ.Step(oscillator{}, x, nil, float64(i)*dt, dt)
			}
			if math.Abs(x[0]-math.Cos(1.0)) > tt.tol {
				t.Errorf("x(1) = %.6f, want %.6f", x[0], math.Cos(1.0))
			}
		})
	}
}

func TestSymplecticEnergyBounded(t *testing.T) {
	integ := NewSymplecticEuler()
	x := dynamo.State{1.0, 0.0}
	dt := 0.05
	for i := 0; i < 10000; i++ {
		x = integ.Step(oscillator{}, x, nil, 0, dt)
	}
	energy := 0.5 * (x[0]*x[0] + x[1]*x[1])
	if math.Abs(energy-0.5) > 0.05 {
		t.Errorf("energy drifted to %.4f", energy)
	}
}

func TestStepDoesNotMutateInput(t *testing.T) {
	for _, name := range Names() {
		integ, _ := New(name)
		x := dynamo.State{1.0, 0.5}
		integ.Step(oscillator{}, x, nil, 0, 0.1)
		if x[0] != 1.0 || x[1] != 0.5 {
			t.Errorf("%s mutated its input: %v", name, x)
		}
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("rk45"); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}
