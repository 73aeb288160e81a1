package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/trajlab/internal/physics"
	"github.com/san-kum/trajlab/internal/rollout"
)

// kinetic treats QD[0] as the speed of a unit mass.
type kinetic struct{}

func (kinetic) Energy(s physics.State) float64 { return 0.5 * s.QD[0] * s.QD[0] }

func frame(z, v float64, action ...float64) rollout.Frame {
	return rollout.Frame{
		Q:      []float64{0, 0, z, 1, 0, 0, 0},
		QD:     []float64{v, 0, 0, 0, 0, 0},
		Action: action,
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift(kinetic{})

	m.Observe(0, frame(1, 2))
	m.Observe(1, frame(1, 1))
	m.Observe(2, frame(1, 2))

	// 2 -> 0.5 is a 75% drop; returning to 2 must not lower the maximum.
	if math.Abs(m.Value()-0.75) > 1e-12 {
		t.Errorf("expected drift 0.75, got %f", m.Value())
	}
	if m.Final() != 2 {
		t.Errorf("expected final energy 2, got %f", m.Final())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestEnergyDriftZeroInitial(t *testing.T) {
	m := NewEnergyDrift(kinetic{})
	m.Observe(0, frame(1, 0))
	m.Observe(1, frame(1, 3))
	if m.Value() != 0 {
		t.Errorf("expected no relative drift from zero energy, got %f", m.Value())
	}
}

func TestHeights(t *testing.T) {
	lo, hi := NewMinHeight(0), NewMaxHeight(0)
	for i, z := range []float64{5, 3, 0.5, 0.7, 0.5} {
		lo.Observe(i, frame(z, 0))
		hi.Observe(i, frame(z, 0))
	}
	if lo.Value() != 0.5 {
		t.Errorf("min height: got %f", lo.Value())
	}
	if hi.Value() != 5 {
		t.Errorf("max height: got %f", hi.Value())
	}
	if lo.Name() != "min_height_0" || hi.Name() != "max_height_0" {
		t.Errorf("unexpected names %q %q", lo.Name(), hi.Name())
	}
}

func TestControlEffortAndReward(t *testing.T) {
	effort := NewControlEffort()
	reward := NewTotalReward()
	stab := NewStability()

	traj := rollout.NewTrajectory(3)
	for i, a := range [][]float64{{1, -1}, {0.5, 0}, {0, 0}} {
		f := frame(1, 0, a...)
		f.Reward = float64(i)
		f.Done = i == 2
		traj.Append(f)
	}

	got := Replay(traj, effort, reward, stab)
	tests := []struct {
		name string
		want float64
	}{
		{"control_effort", 2.5 / 3},
		{"total_reward", 3},
		{"stability", 2.0 / 3},
	}
	for _, tt := range tests {
		if math.Abs(got[tt.name]-tt.want) > 1e-12 {
			t.Errorf("%s: expected %f, got %f", tt.name, tt.want, got[tt.name])
		}
	}

	// Replay resets before observing.
	got = Replay(traj, effort, reward, stab)
	if got["total_reward"] != 3 {
		t.Errorf("replay did not reset: %f", got["total_reward"])
	}
}
