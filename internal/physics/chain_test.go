package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/polychain/internal/dynamo"
)

func TestFreeChain_RestConfigurationHasNoForce(t *testing.T) {
	for _, n := range []int{2, 3, 4, 16} {
		x, _ := StraightChain(n)
		f := make(dynamo.State, 3*n)
		for i := range f {
			f[i] = 42
		}

		if err := NewFreeChain(n, 100).Forces(x, f); err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		for i, v := range f {
			if math.Abs(v) > 1e-12 {
				t.Errorf("n=%d: expected zero force at %d, got %f", n, i, v)
			}
		}
	}
}

func TestFreeChain_StretchedBondIsEqualAndOpposite(t *testing.T) {
	tests := []struct {
		name string
		x    dynamo.State
	}{
		{"stretched along x", dynamo.State{0, 0, 0, 1.5, 0, 0}},
		{"compressed along z", dynamo.State{0, 0, 0, 0, 0, 0.6}},
		{"stretched diagonal", dynamo.State{1, 1, 1, 2, 2, 2}},
	}

	k := 100.0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := make(dynamo.State, 6)
			if err := NewFreeChain(2, k).Forces(tt.x, f); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for j := 0; j < 3; j++ {
				if math.Abs(f[j]+f[3+j]) > 1e-12 {
					t.Errorf("component %d: forces not opposite: %f vs %f", j, f[j], f[3+j])
				}
			}

			dx, dy, dz := tt.x[3]-tt.x[0], tt.x[4]-tt.x[1], tt.x[5]-tt.x[2]
			r := math.Sqrt(dx*dx + dy*dy + dz*dz)
			expected := k * math.Abs(r-dynamo.BondLength)
			got := f[:3].Norm()
			if math.Abs(got-expected) > 1e-9 {
				t.Errorf("expected magnitude %f, got %f", expected, got)
			}

			// a stretched bond pulls bead 0 toward bead 1
			along := f[0]*dx + f[1]*dy + f[2]*dz
			if (r > dynamo.BondLength) != (along > 0) {
				t.Errorf("force on bead 0 has wrong sign: r=%f, projection=%f", r, along)
			}
		})
	}
}

func TestFreeChain_InteriorBeadSumsBothBonds(t *testing.T) {
	x := dynamo.State{0, 0, 0, 1.2, 0, 0, 2.0, 0, 0}
	f := make(dynamo.State, 9)

	if err := NewFreeChain(3, 10).Forces(x, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// left bond stretched by 0.2, right bond compressed by 0.2: both push bead 1 to -x
	if math.Abs(f[3]-(-4.0)) > 1e-9 {
		t.Errorf("expected interior force -4, got %f", f[3])
	}
	if math.Abs(f[0]-2.0) > 1e-9 || math.Abs(f[6]-2.0) > 1e-9 {
		t.Errorf("expected end forces 2, got %f and %f", f[0], f[6])
	}
}

func TestAnchoredChain_PinsFirstBeadAndPullsLast(t *testing.T) {
	x := dynamo.State{0, 0, 0, 1.1, 0, 0, 2.1, 0, 0}
	f := make(dynamo.State, 9)
	pull := 0.75

	field := NewAnchoredChain(3, 100, pull)
	if err := field.Forces(x, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for j := 0; j < 3; j++ {
		if f[j] != 0 {
			t.Errorf("anchor component %d should be 0, got %f", j, f[j])
		}
	}
	if math.Abs(f[8]-pull) > 1e-12 {
		t.Errorf("expected pull %f on last z, got %f", pull, f[8])
	}
	// bond 0-1 still acts on bead 1
	if math.Abs(f[3]-(-10.0)) > 1e-9 {
		t.Errorf("expected -10 on bead 1, got %f", f[3])
	}
	if !field.Pinned(0) || field.Pinned(1) {
		t.Error("only bead 0 should be pinned")
	}
}

func TestForces_DegenerateBond(t *testing.T) {
	x := dynamo.State{0, 0, 0, 0, 0, 0}
	f := make(dynamo.State, 6)

	for _, field := range []ForceField{NewFreeChain(2, 1), NewAnchoredChain(2, 1, 1)} {
		err := field.Forces(x, f)
		if !errors.Is(err, dynamo.ErrDegenerateBond) {
			t.Errorf("expected ErrDegenerateBond, got %v", err)
		}
	}
}

func TestBondEnergy(t *testing.T) {
	x := dynamo.State{0, 0, 0, 1.5, 0, 0, 1.5, 0, 0.5}
	expected := 0.5*4*0.25 + 0.5*4*0.25

	if got := NewFreeChain(3, 4).Potential(x); math.Abs(got-expected) > 1e-12 {
		t.Errorf("expected potential %f, got %f", expected, got)
	}
}

func TestNewSelectsVariant(t *testing.T) {
	cfg := &dynamo.Config{N: 4, K: 1}
	if _, ok := New(cfg).(*FreeChain); !ok {
		t.Error("expected free chain")
	}

	cfg.Anchored = true
	cfg.PullForce = 2
	field, ok := New(cfg).(*AnchoredChain)
	if !ok {
		t.Fatal("expected anchored chain")
	}
	if field.PullForce() != 2 {
		t.Errorf("expected pull 2, got %f", field.PullForce())
	}
}

func TestResetStraight(t *testing.T) {
	x := dynamo.State{5, 5, 5, 6, 6, 6}
	v := dynamo.State{1, 1, 1, 1, 1, 1}

	ResetStraight(x, v)

	wantX, wantV := StraightChain(2)
	for i := range x {
		if x[i] != wantX[i] || v[i] != wantV[i] {
			t.Fatalf("index %d: got (%f, %f), want (%f, %f)", i, x[i], v[i], wantX[i], wantV[i])
		}
	}
}
