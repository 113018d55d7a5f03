package sim

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/metrics"
	"github.com/san-kum/polychain/internal/noise"
	"github.com/san-kum/polychain/internal/physics"
	"github.com/san-kum/polychain/internal/storage"
)

func testConfig(n int) *dynamo.Config {
	x, v := physics.StraightChain(n)
	return &dynamo.Config{
		K:           100,
		Kb:          1,
		Temperature: 1,
		Alpha:       0.5,
		N:           n,
		Dt:          0.001,
		Mass:        1,
		Steps:       1000,
		X0:          x,
		V0:          v,
		Seed:        12456,
	}
}

func runFiles(dir string) storage.RunFiles {
	return storage.RunFiles{
		Params:     filepath.Join(dir, "params.txt"),
		Trajectory: filepath.Join(dir, "traj.txt"),
	}
}

func TestSimulatorRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(4)

	s := New(noise.New(cfg.Seed))
	result, err := s.Run(context.Background(), cfg, runFiles(dir))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 1000 {
		t.Errorf("expected 1000 steps, got %d", result.StepsTaken)
	}
	if math.Abs(result.SimTime-1.0) > 1e-9 {
		t.Errorf("expected simulated time 1.0, got %f", result.SimTime)
	}
	if result.Frames < 9 || result.Frames > 10 {
		t.Errorf("expected about 10 frames, got %d", result.Frames)
	}

	f, err := storage.OpenTrajectory(runFiles(dir).Trajectory)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	header, frames, err := storage.ReadFrames(f, 4)
	if err != nil {
		t.Fatal(err)
	}
	if header.Steps != 1000 || header.Dt != 0.001 {
		t.Errorf("unexpected header %+v", header)
	}
	if len(frames) != result.Frames {
		t.Errorf("file holds %d frames, result reports %d", len(frames), result.Frames)
	}

	p, err := storage.ReadParams(runFiles(dir).Params)
	if err != nil {
		t.Fatal(err)
	}
	if p.Config.N != 4 || p.Config.K != 100 {
		t.Errorf("parameter record mismatch: %+v", p.Config)
	}
	if p.WallTime <= 0 {
		t.Error("expected wall time to be recorded")
	}
}

func TestSimulatorSamplingTimes(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(3)
	cfg.Dt = 1.0 / 32
	cfg.SampleInterval = 0.125
	cfg.Steps = 40

	var times []float64
	s := New(noise.Constant(0))
	s.AddObserver(ObserverFunc(func(f *dynamo.Frame) {
		times = append(times, f.Time)
	}))

	result, err := s.Run(context.Background(), cfg, runFiles(dir))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Frames != 10 || len(times) != 10 {
		t.Fatalf("expected 10 frames, got %d", result.Frames)
	}
	for i, tm := range times {
		if want := 0.125 * float64(i+1); tm != want {
			t.Errorf("frame %d: expected time %f, got %f", i, want, tm)
		}
	}
}

func TestSimulatorDeterministic(t *testing.T) {
	dir := t.TempDir()
	read := func() []byte {
		cfg := testConfig(4)
		s := New(noise.Constant(0))
		if _, err := s.Run(context.Background(), cfg, runFiles(dir)); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		data, err := os.ReadFile(runFiles(dir).Trajectory)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first := read()
	second := read()
	if !bytes.Equal(first, second) {
		t.Error("identical runs produced different trajectories")
	}
}

func TestSimulatorSeededReproducible(t *testing.T) {
	run := func(dir string) []byte {
		cfg := testConfig(4)
		s := New(noise.New(cfg.Seed))
		if _, err := s.Run(context.Background(), cfg, storage.RunFiles{
			Params:     filepath.Join(dir, "p.txt"),
			Trajectory: filepath.Join(dir, "t.txt"),
		}); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "t.txt"))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	a := run(t.TempDir())
	b := run(t.TempDir())
	// header lines differ only in the parameter path
	a = a[bytes.IndexByte(a, '\n'):]
	b = b[bytes.IndexByte(b, '\n'):]
	if !bytes.Equal(a, b) {
		t.Error("same seed produced different trajectories")
	}
}

func maxEnergyError(t *testing.T, dt float64) float64 {
	t.Helper()

	cfg := testConfig(4)
	cfg.Alpha = 0
	cfg.Temperature = 0
	cfg.Dt = dt
	cfg.SampleInterval = dt
	cfg.Steps = int(math.Round(5 / dt))
	cfg.X0[6] += 0.5
	cfg.X0[9] += 0.5

	e0 := physics.BondEnergy(cfg.X0, cfg.N, cfg.K)
	worst := 0.0
	s := New(noise.Constant(0))
	s.AddObserver(ObserverFunc(func(f *dynamo.Frame) {
		worst = math.Max(worst, math.Abs(f.Total-e0))
	}))
	if _, err := s.Run(context.Background(), cfg, runFiles(t.TempDir())); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return worst
}

func TestSimulatorEnergyErrorScaling(t *testing.T) {
	coarse := maxEnergyError(t, 0.002)
	fine := maxEnergyError(t, 0.001)

	if coarse <= 0 || fine <= 0 {
		t.Fatalf("expected non-zero energy error, got %g and %g", coarse, fine)
	}
	if coarse/12.5 > 0.01 {
		t.Errorf("relative energy error %g too large", coarse/12.5)
	}
	ratio := coarse / fine
	if ratio < 3 || ratio > 5 {
		t.Errorf("expected second order energy error, ratio %f", ratio)
	}
}

func TestSimulatorMetrics(t *testing.T) {
	cfg := testConfig(4)
	cfg.Alpha = 0
	cfg.Temperature = 0

	s := New(noise.Constant(0))
	s.AddMetric(metrics.NewEnergy())
	s.AddMetric(metrics.NewEnergyDrift())

	result, err := s.Run(context.Background(), cfg, runFiles(t.TempDir()))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, ok := result.Metrics["energy"]; !ok {
		t.Error("missing energy metric")
	}
	// a relaxed chain without noise stays at rest
	if result.Metrics["energy_drift"] != 0 {
		t.Errorf("expected zero drift at rest, got %g", result.Metrics["energy_drift"])
	}
}

func TestSimulatorAnchored(t *testing.T) {
	cfg := testConfig(4)
	cfg.Anchored = true
	cfg.PullForce = 2
	cfg.Temperature = 0

	var last dynamo.State
	s := New(noise.Constant(0))
	s.AddObserver(ObserverFunc(func(f *dynamo.Frame) {
		last = f.X.Clone()
	}))
	if _, err := s.Run(context.Background(), cfg, runFiles(t.TempDir())); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for d := 0; d < 3; d++ {
		if last[d] != cfg.X0[d] {
			t.Errorf("anchor moved along axis %d: %f", d, last[d])
		}
	}
	if last[3*3+2] <= 0 {
		t.Errorf("expected pulled bead to move along +z, got %f", last[3*3+2])
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *dynamo.Config)
		want   error
	}{
		{"zero dt", func(c *dynamo.Config) { c.Dt = 0 }, dynamo.ErrParameterBounds},
		{"zero mass", func(c *dynamo.Config) { c.Mass = 0 }, dynamo.ErrParameterBounds},
		{"one bead", func(c *dynamo.Config) { c.N = 1 }, dynamo.ErrParameterBounds},
		{"short positions", func(c *dynamo.Config) { c.X0 = c.X0[:6] }, dynamo.ErrDimensionMismatch},
		{"nan velocity", func(c *dynamo.Config) { c.V0[0] = math.NaN() }, dynamo.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testConfig(4)
			tt.modify(cfg)

			_, err := New(noise.Constant(0)).Run(context.Background(), cfg, runFiles(dir))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if _, err := os.Stat(runFiles(dir).Params); !os.IsNotExist(err) {
				t.Error("invalid run must not write a parameter record")
			}
		})
	}
}

func TestSimulatorUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	files := storage.RunFiles{
		Params:     filepath.Join(dir, "params.txt"),
		Trajectory: filepath.Join(dir, "missing", "traj.txt"),
	}

	steps := 0
	s := New(noise.Constant(0))
	s.AddObserver(ObserverFunc(func(*dynamo.Frame) { steps++ }))

	_, err := s.Run(context.Background(), testConfig(4), files)
	if err == nil {
		t.Fatal("expected error for unwritable trajectory")
	}
	if steps != 0 {
		t.Errorf("expected no stepping, observed %d frames", steps)
	}
}

func TestSimulatorDegenerateBond(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(4)
	cfg.X0[3] = cfg.X0[0]

	_, err := New(noise.Constant(0)).Run(context.Background(), cfg, runFiles(dir))
	if !errors.Is(err, dynamo.ErrDegenerateBond) {
		t.Fatalf("expected degenerate bond, got %v", err)
	}
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %T", err)
	}
	if _, err := os.Stat(runFiles(dir).Trajectory); !os.IsNotExist(err) {
		t.Error("failed run left a trajectory behind")
	}
}

func TestSimulatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(noise.Constant(0)).Run(ctx, testConfig(4), runFiles(t.TempDir()))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatorResetInitial(t *testing.T) {
	cfg := testConfig(4)
	cfg.X0[5] = 0.3
	cfg.V0[1] = 2

	s := New(noise.New(1))
	if _, err := s.Run(context.Background(), cfg, runFiles(t.TempDir())); err != nil {
		t.Fatal(err)
	}
	if cfg.X0[5] != 0.3 || cfg.V0[1] != 2 {
		t.Error("initial buffers changed without ResetInitial")
	}

	s.ResetInitial = true
	if _, err := s.Run(context.Background(), cfg, runFiles(t.TempDir())); err != nil {
		t.Fatal(err)
	}
	x, v := physics.StraightChain(4)
	for i := range x {
		if cfg.X0[i] != x[i] || cfg.V0[i] != v[i] {
			t.Fatalf("component %d not reset: x=%f v=%f", i, cfg.X0[i], cfg.V0[i])
		}
	}
}

func TestStatePool(t *testing.T) {
	p := NewStatePool(6)
	s := p.GetAndCopy(dynamo.State{1, 2, 3, 4, 5, 6})
	if s[5] != 6 {
		t.Fatalf("copy failed: %v", s)
	}
	p.Put(s)
	r := p.Get()
	if len(r) != 6 {
		t.Fatalf("expected size 6, got %d", len(r))
	}
	for _, v := range r {
		if v != 0 {
			t.Fatalf("pooled state not cleared: %v", r)
		}
	}
}

func TestSimulatorAcquireCopiesInitialCondition(t *testing.T) {
	s := New(noise.Constant(0))
	x0 := dynamo.State{0, 0, 0, 1, 0, 0}
	v0 := dynamo.State{0.5, 0, 0, -0.5, 0, 0}

	b := s.acquire(x0, v0)
	if b.x[3] != 1 || b.v[0] != 0.5 || b.v[3] != -0.5 {
		t.Fatalf("expected initial condition, got x=%v v=%v", b.x, b.v)
	}
	b.x[3] = 7
	if x0[3] != 1 {
		t.Error("run buffer aliases the initial condition")
	}
	s.release(b)

	b = s.acquire(x0, v0)
	defer s.release(b)
	if b.x[3] != 1 || b.f[0] != 0 || b.xn[3] != 0 {
		t.Errorf("reused buffers not reset: x=%v f=%v xn=%v", b.x, b.f, b.xn)
	}
}
