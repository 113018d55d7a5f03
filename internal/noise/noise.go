// Package noise supplies the thermal increments of the Langevin integrator.
package noise

import (
	"math"
	"math/rand"
)

// Source draws one standard-normal sample per call. *rand.Rand satisfies it.
type Source interface {
	NormFloat64() float64
}

// New returns a seeded generator. Each run owns its own generator so that
// runs are reproducible without process-wide state.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Constant always returns the same sample.
type Constant float64

func (c Constant) NormFloat64() float64 { return float64(c) }

// Thermal scales raw samples by sigma = sqrt(2 alpha kB T dt).
type Thermal struct {
	src   Source
	sigma float64
}

func NewThermal(src Source, alpha, kb, temperature, dt float64) *Thermal {
	return &Thermal{src: src, sigma: math.Sqrt(2 * alpha * kb * temperature * dt)}
}

// Sigma returns the per-degree-of-freedom increment scale.
func (t *Thermal) Sigma() float64 { return t.sigma }

// Fill draws one sample for every entry of eta. Samples are drawn even when
// sigma is zero so the stream position only depends on the step count.
func (t *Thermal) Fill(eta []float64) {
	for i := range eta {
		z := t.src.NormFloat64()
		if t.sigma == 0 {
			eta[i] = 0
			continue
		}
		eta[i] = t.sigma * z
	}
}
