package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/polychain/internal/dynamo"
)

// Stability reports the fraction of frames in which the chain stayed
// intact. A frame counts as diverged when a coordinate is non-finite or a
// bond is longer than threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f *dynamo.Frame) {
	s.samples++
	if !f.X.IsValid() || !f.V.IsValid() {
		s.violations++
		return
	}
	for i := 0; i < f.X.Beads()-1; i++ {
		if r3.Norm(r3.Sub(f.X.Bead(i+1), f.X.Bead(i))) > s.threshold {
			s.violations++
			return
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
