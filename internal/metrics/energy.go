package metrics

import (
	"math"

	"github.com/san-kum/polychain/internal/dynamo"
)

// Metric observes sampled frames and reports one scalar.
type Metric interface {
	Name() string
	Observe(f *dynamo.Frame)
	Value() float64
	Reset()
}

// Energy reports the mean total energy over the observed frames.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f *dynamo.Frame) {
	e.totalEnergy += f.Total
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift tracks the largest deviation of the total energy from its
// first observed value. It is relative when the initial energy is non-zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f *dynamo.Frame) {
	if e.samples == 0 {
		e.initialEnergy = f.Total
	}
	e.samples++

	drift := math.Abs(f.Total - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
