package rollout

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/trajlab/internal/dynamo"
	"github.com/san-kum/trajlab/internal/envs"
	"github.com/san-kum/trajlab/internal/rng"
)

// Observer is notified after every recorded frame.
type Observer interface {
	Observe(step int, f Frame)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(step int, f Frame)

func (f ObserverFunc) Observe(step int, fr Frame) { f(step, fr) }

type Config struct {
	Steps     int
	Seed      uint64
	Observers []Observer
}

func validateConfig(cfg Config, stepper Stepper, source ActionSource) error {
	if cfg.Steps <= 0 {
		return dynamo.Configf("steps must be positive, got %d", cfg.Steps)
	}
	if stepper == nil {
		return dynamo.Configf("rollout needs a stepper")
	}
	if source == nil {
		return dynamo.Configf("rollout needs an action source")
	}
	return nil
}

// Run steps from initial cfg.Steps times. On success the trajectory holds
// exactly cfg.Steps frames. If a step fails the loop stops and the frames
// recorded before the failure are returned along with the error.
func Run(ctx context.Context, stepper Stepper, initial envs.State, source ActionSource, cfg Config) (*Trajectory, error) {
	if err := validateConfig(cfg, stepper, source); err != nil {
		return nil, err
	}

	traj := NewTrajectory(cfg.Steps)
	key := rng.New(cfg.Seed)
	s := initial

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return traj, ctx.Err()
		default:
		}

		var sub rng.Key
		key, sub = rng.Split(key)

		action, err := source.Action(s, sub)
		if err != nil {
			return traj, fmt.Errorf("rollout: action at step %d: %w", i, err)
		}

		next, err := stepper.Step(s, action)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"step":   i,
				"frames": traj.Len(),
			}).Warn("rollout: step failed")
			return traj, fmt.Errorf("rollout: step %d: %w", i, err)
		}
		s = next

		f := frameOf(s, action)
		traj.Append(f)
		for _, obs := range cfg.Observers {
			obs.Observe(i, f)
		}
	}

	logrus.WithFields(logrus.Fields{
		"steps": cfg.Steps,
		"seed":  cfg.Seed,
	}).Debug("rollout: finished")
	return traj, nil
}
