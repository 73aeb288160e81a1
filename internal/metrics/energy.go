package metrics

import (
	"math"

	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/rollout"
)

// Hamiltonian reports the mechanical energy of a state. *physics.Pipeline
// satisfies it.
type Hamiltonian interface {
	Energy(s physics.State) float64
}

// EnergyDrift is the largest relative deviation from the energy of the
// first observed frame.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	sys           Hamiltonian
}

func NewEnergyDrift(sys Hamiltonian) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		sys:  sys,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(_ int, f rollout.Frame) {
	energy := e.sys.Energy(physics.State{Q: f.Q, QD: f.QD, Time: f.Time})

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Final is the energy of the last observed frame.
func (e *EnergyDrift) Final() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
