package integrators

import (
	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/physics"
)

// Langevin is the BBK splitting of the Langevin equation. The damping
// coefficients a and b only depend on alpha, dt and m and are fixed at
// construction.
type Langevin struct {
	dt, m float64
	a, b  float64
}

func NewLangevin(alpha, dt, m float64) *Langevin {
	g := alpha * dt / (2.0 * m)
	return &Langevin{
		dt: dt,
		m:  m,
		a:  (1.0 - g) / (1.0 + g),
		b:  1.0 / (1.0 + g),
	}
}

// Coefficients returns the damping pair (a, b).
func (l *Langevin) Coefficients() (a, b float64) { return l.a, l.b }

// Step advances one timestep. Positions are updated first, forces are
// recomputed at the new positions, then velocities use both force sets.
// eta holds pre-scaled thermal increments, one per degree of freedom.
func (l *Langevin) Step(field physics.ForceField, xOld, vOld, fOld, eta, xNew, vNew, fNew dynamo.State) error {
	n := len(xOld)
	if len(vOld) != n || len(fOld) != n || len(eta) != n || len(xNew) != n || len(vNew) != n || len(fNew) != n {
		return dynamo.ErrDimensionMismatch
	}

	dt, m, a, b := l.dt, l.m, l.a, l.b
	dt2 := dt * dt

	for i := 0; i < n; i++ {
		xNew[i] = xOld[i] + vOld[i]*dt*b + fOld[i]*dt2*b/(2*m) + b*dt*eta[i]
	}

	anchor, anchored := field.(physics.Anchor)
	if anchored {
		for i := 0; i < n; i += 3 {
			if anchor.Pinned(i / 3) {
				copy(xNew[i:i+3], xOld[i:i+3])
			}
		}
	}

	if err := field.Forces(xNew, fNew); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		vNew[i] = a*vOld[i] + (a*fOld[i]+fNew[i])*dt/(2*m) + b*eta[i]/m
	}

	if anchored {
		for i := 0; i < n; i += 3 {
			if anchor.Pinned(i / 3) {
				vNew[i], vNew[i+1], vNew[i+2] = 0, 0, 0
			}
		}
	}

	return nil
}
