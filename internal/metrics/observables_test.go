package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/polychain/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

func TestKinetic(t *testing.T) {
	v := dynamo.State{1, 0, 0, 0, 2, 0}
	if got := Kinetic(v, 2.0); math.Abs(got-5.0) > 1e-12 {
		t.Errorf("expected kinetic energy 5, got %f", got)
	}
}

func TestGyration_StraightChain(t *testing.T) {
	// beads at x = 0, 1, 2, 3: centroid 1.5, Rg^2 = (2.25+0.25+0.25+2.25)/4
	x := dynamo.State{0, 0, 0, 1, 0, 0, 2, 0, 0, 3, 0, 0}
	if got := Gyration(x); math.Abs(got-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("expected Rg %f, got %f", math.Sqrt(1.25), got)
	}
}

func TestGyration_TranslationInvariant(t *testing.T) {
	x := dynamo.State{0.3, -1.2, 0.7, 1.1, 0.4, -0.2, 2.5, 0.9, 1.3, 2.8, 2.0, 0.1}
	shifts := [][3]float64{{1, 0, 0}, {-5, 3, 2}, {100, -100, 0.5}}

	base := Gyration(x)
	for _, s := range shifts {
		moved := x.Clone()
		for i := 0; i < moved.Beads(); i++ {
			moved[3*i] += s[0]
			moved[3*i+1] += s[1]
			moved[3*i+2] += s[2]
		}
		if got := Gyration(moved); math.Abs(got-base) > 1e-9 {
			t.Errorf("shift %v: expected Rg %f, got %f", s, base, got)
		}
	}
}

func TestEndToEnd_OnlyTerminalBeadsMatter(t *testing.T) {
	x := dynamo.State{0, 0, 1, 5, 5, 5, 9, 9, -9, 2, 3, 4}
	if got := EndToEnd(x); got != 3 {
		t.Errorf("expected end-to-end 3, got %f", got)
	}

	x[3], x[4], x[5] = -7, 8, 100
	x[6], x[7], x[8] = 0, 0, 0
	if got := EndToEnd(x); got != 3 {
		t.Errorf("interior beads changed end-to-end: got %f", got)
	}
}

func TestObserveTotal(t *testing.T) {
	x := dynamo.State{0, 0, 0, 1.5, 0, 0}
	v := dynamo.State{1, 0, 0, 1, 0, 0}
	obs := Observe(x, v, 1, 100)

	if math.Abs(obs.Potential-12.5) > 1e-12 {
		t.Errorf("expected potential 12.5, got %f", obs.Potential)
	}
	if math.Abs(obs.Total-(obs.Kinetic+obs.Potential)) > 1e-12 {
		t.Errorf("total %f is not kinetic + potential", obs.Total)
	}
}

func TestMoments_ConstantSample(t *testing.T) {
	var m Moments
	for i := 0; i < 50; i++ {
		m.Add(0.1)
	}

	if math.Abs(m.Mean()-0.1) > 1e-12 {
		t.Errorf("expected mean 0.1, got %f", m.Mean())
	}
	if m.StdErr() != 0 {
		t.Errorf("expected zero standard error, got %g", m.StdErr())
	}
}

func TestMoments_MatchesPopulationStdDev(t *testing.T) {
	xs := []float64{1.2, 3.4, 0.5, 2.2, 9.1, 4.4, 0.0, -1.5}

	var m Moments
	for _, x := range xs {
		m.Add(x)
	}

	mean, std := stat.PopMeanStdDev(xs, nil)
	if math.Abs(m.Mean()-mean) > 1e-12 {
		t.Errorf("expected mean %f, got %f", mean, m.Mean())
	}
	expected := std / math.Sqrt(float64(len(xs)))
	if math.Abs(m.StdErr()-expected) > 1e-12 {
		t.Errorf("expected standard error %f, got %f", expected, m.StdErr())
	}

	m.Reset()
	if m.Count() != 0 || m.Mean() != 0 {
		t.Error("expected empty moments after reset")
	}
}
