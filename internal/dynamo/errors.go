package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation and reduction.
var (
	// ErrInvalidState indicates a state vector holding NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a physical parameter outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates vectors whose length is not 3N.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and chain")

	// ErrDegenerateBond indicates two bonded beads at the same position.
	ErrDegenerateBond = errors.New("dynamo: degenerate bond (zero length)")

	// ErrNoData indicates a trajectory with no usable frame after equilibration.
	ErrNoData = errors.New("dynamo: no data to reduce")

	// ErrMalformedLine indicates a trajectory line without the expected columns.
	ErrMalformedLine = errors.New("dynamo: malformed trajectory line")
)

// SimulationError wraps an error with the step at which a run aborted.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
