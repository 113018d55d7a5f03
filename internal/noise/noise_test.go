package noise

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

type countingSource struct {
	calls int
}

func (c *countingSource) NormFloat64() float64 {
	c.calls++
	return 1.0
}

func TestThermal_Sigma(t *testing.T) {
	g := NewWithT(t)

	th := NewThermal(Constant(1), 0.5, 1, 2, 0.01)
	g.Expect(th.Sigma()).To(BeNumerically("~", math.Sqrt(0.02), 1e-15))

	eta := make([]float64, 6)
	th.Fill(eta)
	for _, v := range eta {
		g.Expect(v).To(BeNumerically("~", math.Sqrt(0.02), 1e-15))
	}
}

func TestThermal_ZeroTemperatureStillDraws(t *testing.T) {
	tests := []struct {
		name        string
		alpha, temp float64
	}{
		{"no friction", 0, 1},
		{"no temperature", 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			src := &countingSource{}
			th := NewThermal(src, tt.alpha, 1, tt.temp, 0.001)

			eta := []float64{7, 7, 7, 7}
			th.Fill(eta)

			g.Expect(src.calls).To(Equal(4))
			g.Expect(eta).To(HaveEach(0.0))
		})
	}
}

func TestNew_Reproducible(t *testing.T) {
	g := NewWithT(t)

	a, b := New(12456), New(12456)
	for i := 0; i < 100; i++ {
		g.Expect(a.NormFloat64()).To(Equal(b.NormFloat64()))
	}
}

func TestNew_StandardNormalMoments(t *testing.T) {
	src := New(1)
	n := 200000
	sum, sum2 := 0.0, 0.0
	for i := 0; i < n; i++ {
		z := src.NormFloat64()
		sum += z
		sum2 += z * z
	}
	mean := sum / float64(n)
	variance := sum2/float64(n) - mean*mean

	if math.Abs(mean) > 0.01 {
		t.Errorf("expected mean ~0, got %f", mean)
	}
	if math.Abs(variance-1) > 0.02 {
		t.Errorf("expected variance ~1, got %f", variance)
	}
}
