package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BondLength is the natural length L0 of every harmonic bond.
const BondLength = 1.0

// DefaultSampleInterval is the simulated time between two persisted frames.
const DefaultSampleInterval = 0.1

// State is a flat 3N vector; bead i occupies offsets 3i, 3i+1, 3i+2.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Beads returns the number of beads stored in s.
func (s State) Beads() int { return len(s) / 3 }

// Bead returns the 3-vector of bead i.
func (s State) Bead(i int) r3.Vec {
	return r3.Vec{X: s[3*i], Y: s[3*i+1], Z: s[3*i+2]}
}

// SetBead stores v as the 3-vector of bead i.
func (s State) SetBead(i int, v r3.Vec) {
	s[3*i], s[3*i+1], s[3*i+2] = v.X, v.Y, v.Z
}

// AddBead accumulates v onto bead i.
func (s State) AddBead(i int, v r3.Vec) {
	s[3*i] += v.X
	s[3*i+1] += v.Y
	s[3*i+2] += v.Z
}

// Zero clears every component of s.
func (s State) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// Config is the immutable description of a single run. It is written to the
// parameter record before integration starts.
type Config struct {
	K              float64
	Kb             float64
	Temperature    float64
	Alpha          float64
	N              int
	Dt             float64
	Mass           float64
	Steps          int
	X0             State
	V0             State
	Anchored       bool
	PullForce      float64
	Seed           int64
	SampleInterval float64
}

// Validate rejects parameter sets for which the force law or the integrator
// is undefined.
func (c *Config) Validate() error {
	switch {
	case c.N < 2:
		return fmt.Errorf("%w: chain needs at least 2 beads, got %d", ErrParameterBounds, c.N)
	case c.Mass <= 0:
		return fmt.Errorf("%w: mass must be positive, got %g", ErrParameterBounds, c.Mass)
	case c.K <= 0:
		return fmt.Errorf("%w: spring constant must be positive, got %g", ErrParameterBounds, c.K)
	case c.Dt <= 0:
		return fmt.Errorf("%w: dt must be positive, got %g", ErrParameterBounds, c.Dt)
	case c.Alpha < 0:
		return fmt.Errorf("%w: friction must be non-negative, got %g", ErrParameterBounds, c.Alpha)
	case c.Temperature < 0:
		return fmt.Errorf("%w: temperature must be non-negative, got %g", ErrParameterBounds, c.Temperature)
	case c.Kb < 0:
		return fmt.Errorf("%w: boltzmann constant must be non-negative, got %g", ErrParameterBounds, c.Kb)
	case c.Steps < 0:
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrParameterBounds, c.Steps)
	case c.SampleInterval < 0:
		return fmt.Errorf("%w: sample interval must be non-negative, got %g", ErrParameterBounds, c.SampleInterval)
	}
	if len(c.X0) != 3*c.N {
		return fmt.Errorf("%w: %d initial positions for %d beads", ErrDimensionMismatch, len(c.X0), c.N)
	}
	if len(c.V0) != 3*c.N {
		return fmt.Errorf("%w: %d initial velocities for %d beads", ErrDimensionMismatch, len(c.V0), c.N)
	}
	if !c.X0.IsValid() || !c.V0.IsValid() {
		return ErrInvalidState
	}
	return nil
}

// Interval returns the sampling interval, falling back to DefaultSampleInterval.
func (c *Config) Interval() float64 {
	if c.SampleInterval > 0 {
		return c.SampleInterval
	}
	return DefaultSampleInterval
}

// Observables are the scalar columns appended to every trajectory frame.
type Observables struct {
	Kinetic   float64
	Potential float64
	Total     float64
	Gyration  float64
	EndToEnd  float64
}

// Frame is one sampled line of a trajectory.
type Frame struct {
	Time float64
	X    State
	V    State
	Observables
}

// Estimate is a sample mean with its standard error.
type Estimate struct {
	Mean   float64
	StdErr float64
}

// Summary holds the reduced statistics of one trajectory.
type Summary struct {
	Kinetic   Estimate
	Potential Estimate
	EndToEnd  Estimate
	Gyration  Estimate
	N         int

	// HasPull is set for anchored runs; PullForce is meaningful only then.
	HasPull   bool
	PullForce float64

	Frames  int
	Skipped []int
}
