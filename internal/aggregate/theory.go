package aggregate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/polychain/internal/dynamo"
)

// IdealGyration is the radius of gyration of an ideal chain of n beads with
// unit bond length.
func IdealGyration(n float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sqrt((n*n - 1) / (6 * n))
}

// FreelyJointedExtension is the mean end-to-end extension of a freely
// jointed chain of n beads under force f, in units where kB*T and the bond
// length are 1.
func FreelyJointedExtension(f float64, n int) float64 {
	if math.Abs(f) < 1e-9 {
		return 0
	}
	return float64(n-1) * (1/math.Tanh(f) - 1/f)
}

// Theory returns the reference curve for a table's mode. anchoredN is only
// consulted in pulling mode.
func Theory(mode dynamo.Mode, anchoredN int) func(float64) float64 {
	if mode == dynamo.ModePulling {
		return func(f float64) float64 { return FreelyJointedExtension(f, anchoredN) }
	}
	return IdealGyration
}

// PowerLaw fits Mean = A * Key^Nu by least squares in log-log space. Rows
// with non-positive key or mean are ignored.
func (t *Table) PowerLaw() (a, nu float64, err error) {
	var xs, ys []float64
	for _, r := range t.Rows {
		if r.Key <= 0 || r.Mean <= 0 {
			continue
		}
		xs = append(xs, math.Log(r.Key))
		ys = append(ys, math.Log(r.Mean))
	}
	if len(xs) < 2 {
		return 0, 0, errors.New("power law fit needs at least two positive rows")
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return math.Exp(alpha), beta, nil
}
