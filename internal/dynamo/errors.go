package dynamo

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every package of the lab.
var (
	// ErrParse indicates a malformed scene description.
	ErrParse = errors.New("dynamo: malformed scene description")

	// ErrConfig indicates an unknown environment, a bad hyperparameter or an
	// inconsistent run configuration. Raised before any simulation work.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrDivergence indicates the simulation produced non-finite values.
	ErrDivergence = errors.New("dynamo: simulation diverged (NaN or Inf detected)")

	// ErrIO indicates the output artifact could not be written.
	ErrIO = errors.New("dynamo: artifact write failed")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Configf returns an error wrapping ErrConfig.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Parsef returns an error wrapping ErrParse.
func Parsef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
