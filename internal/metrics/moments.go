package metrics

import (
	"math"

	"github.com/san-kum/polychain/internal/dynamo"
)

const roundOff = 1e-12

// Moments accumulates the first and second raw moments of a sample.
type Moments struct {
	n          int
	sum, sumSq float64
}

func (m *Moments) Add(x float64) {
	m.n++
	m.sum += x
	m.sumSq += x * x
}

func (m *Moments) Count() int { return m.n }

func (m *Moments) Mean() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// StdErr is sqrt((<x^2> - mu^2) / n). For a constant sample the difference
// of moments is pure round-off, so variances below roundOff relative to
// <x^2> are treated as zero.
func (m *Moments) StdErr() float64 {
	if m.n == 0 {
		return 0
	}
	n := float64(m.n)
	mu := m.sum / n
	meanSq := m.sumSq / n
	variance := meanSq - mu*mu
	if variance <= roundOff*meanSq {
		return 0
	}
	return math.Sqrt(variance / n)
}

func (m *Moments) Estimate() dynamo.Estimate {
	return dynamo.Estimate{Mean: m.Mean(), StdErr: m.StdErr()}
}

func (m *Moments) Reset() {
	*m = Moments{}
}
