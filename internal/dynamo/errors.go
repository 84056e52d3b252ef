package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrSingularSystem indicates the augmented constraint system has no
	// unique solution (redundant constraints, zero mass, disconnected
	// topology).
	ErrSingularSystem = errors.New("dynamo: singular constraint system")

	// ErrDimensionMismatch indicates a state or control vector whose
	// length does not match the system.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrBadTopology indicates invalid wiring of bodies and joints, such
	// as a joint referencing an unregistered body.
	ErrBadTopology = errors.New("dynamo: invalid body/joint topology")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// StepError wraps an error with the step at which it occurred.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
