package physics

import (
	"fmt"

	"github.com/san-kum/polychain/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ForceField computes the net bonded force on every bead of a chain.
// Forces overwrites f; nothing is accumulated across calls.
type ForceField interface {
	Forces(x, f dynamo.State) error
	Potential(x dynamo.State) float64
	Beads() int
}

// Anchor is implemented by fields that hold some beads immovable.
type Anchor interface {
	Pinned(bead int) bool
}

// FreeChain is a linear chain of harmonic bonds with both ends free.
type FreeChain struct {
	n int
	k float64
}

func NewFreeChain(n int, k float64) *FreeChain {
	return &FreeChain{n: n, k: k}
}

func (c *FreeChain) Beads() int { return c.n }

func (c *FreeChain) Forces(x, f dynamo.State) error {
	f.Zero()
	return bondForces(x, f, c.n, c.k)
}

func (c *FreeChain) Potential(x dynamo.State) float64 {
	return BondEnergy(x, c.n, c.k)
}

// AnchoredChain pins bead 0 and pulls the last bead along +z with a
// constant force. Bond 0-1 still acts on bead 1; only bead 0 ignores it.
type AnchoredChain struct {
	n    int
	k    float64
	pull float64
}

func NewAnchoredChain(n int, k, pull float64) *AnchoredChain {
	return &AnchoredChain{n: n, k: k, pull: pull}
}

func (c *AnchoredChain) Beads() int { return c.n }

func (c *AnchoredChain) Pinned(bead int) bool { return bead == 0 }

func (c *AnchoredChain) Forces(x, f dynamo.State) error {
	f.Zero()
	if err := bondForces(x, f, c.n, c.k); err != nil {
		return err
	}
	f.SetBead(0, r3.Vec{})
	f[3*(c.n-1)+2] += c.pull
	return nil
}

func (c *AnchoredChain) Potential(x dynamo.State) float64 {
	return BondEnergy(x, c.n, c.k)
}

// PullForce returns the constant force applied to the last bead.
func (c *AnchoredChain) PullForce() float64 { return c.pull }

// New builds the force field selected by cfg.
func New(cfg *dynamo.Config) ForceField {
	if cfg.Anchored {
		return NewAnchoredChain(cfg.N, cfg.K, cfg.PullForce)
	}
	return NewFreeChain(cfg.N, cfg.K)
}

// bondForces adds K(r-L0)Δ/r to bead i and its negation to bead i+1 for
// every bond, with Δ = x[i+1]-x[i].
func bondForces(x, f dynamo.State, n int, k float64) error {
	for i := 0; i < n-1; i++ {
		d := r3.Sub(x.Bead(i+1), x.Bead(i))
		r := r3.Norm(d)
		if r == 0 {
			return fmt.Errorf("%w: beads %d and %d coincide", dynamo.ErrDegenerateBond, i, i+1)
		}
		bond := r3.Scale(k*(r-dynamo.BondLength)/r, d)
		f.AddBead(i, bond)
		f.AddBead(i+1, r3.Scale(-1, bond))
	}
	return nil
}

// BondEnergy is the harmonic energy sum 1/2 K (r-L0)^2 over all bonds.
func BondEnergy(x dynamo.State, n int, k float64) float64 {
	v := 0.0
	for i := 0; i < n-1; i++ {
		s := r3.Norm(r3.Sub(x.Bead(i+1), x.Bead(i))) - dynamo.BondLength
		v += 0.5 * k * s * s
	}
	return v
}

// StraightChain returns beads along x at unit spacing with zero velocity.
func StraightChain(n int) (x, v dynamo.State) {
	x = make(dynamo.State, 3*n)
	v = make(dynamo.State, 3*n)
	for i := 0; i < n; i++ {
		x[3*i] = float64(i) * dynamo.BondLength
	}
	return x, v
}

// ResetStraight overwrites x and v in place with the straight chain.
func ResetStraight(x, v dynamo.State) {
	x.Zero()
	v.Zero()
	for i := 0; i < x.Beads(); i++ {
		x[3*i] = float64(i) * dynamo.BondLength
	}
}
