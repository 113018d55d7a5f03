package metrics

import (
	"math"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kinetic returns the sum of 1/2 m v^2 over every degree of freedom.
func Kinetic(v dynamo.State, m float64) float64 {
	k := 0.0
	for _, vi := range v {
		k += 0.5 * m * vi * vi
	}
	return k
}

// Potential returns the bond energy sum 1/2 K (r-L0)^2.
func Potential(x dynamo.State, k float64) float64 {
	return physics.BondEnergy(x, x.Beads(), k)
}

// Gyration returns the root-mean-square distance of the beads from their
// centroid.
func Gyration(x dynamo.State) float64 {
	n := x.Beads()
	if n == 0 {
		return 0
	}
	var cm r3.Vec
	for i := 0; i < n; i++ {
		cm = r3.Add(cm, x.Bead(i))
	}
	cm = r3.Scale(1/float64(n), cm)

	rg2 := 0.0
	for i := 0; i < n; i++ {
		rg2 += r3.Norm2(r3.Sub(x.Bead(i), cm))
	}
	return math.Sqrt(rg2 / float64(n))
}

// EndToEnd returns the z displacement between the last and the first bead.
func EndToEnd(x dynamo.State) float64 {
	n := x.Beads()
	if n == 0 {
		return 0
	}
	return x[3*(n-1)+2] - x[2]
}

// Observe computes every frame observable at once.
func Observe(x, v dynamo.State, m, k float64) dynamo.Observables {
	obs := dynamo.Observables{
		Kinetic:   Kinetic(v, m),
		Potential: Potential(x, k),
		Gyration:  Gyration(x),
		EndToEnd:  EndToEnd(x),
	}
	obs.Total = obs.Kinetic + obs.Potential
	return obs
}
