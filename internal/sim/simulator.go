package sim

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/integrators"
	"github.com/san-kum/polychain/internal/metrics"
	"github.com/san-kum/polychain/internal/noise"
	"github.com/san-kum/polychain/internal/physics"
	"github.com/san-kum/polychain/internal/storage"
)

// Simulator drives the Langevin integrator for a fixed number of steps and
// persists a frame every sampling interval.
type Simulator struct {
	src       noise.Source
	metrics   []metrics.Metric
	observers []Observer
	pool      *StatePool

	// ResetInitial overwrites cfg.X0 and cfg.V0 with the straight chain
	// once a run completes, so the same buffers can seed the next run.
	ResetInitial bool
}

func New(src noise.Source) *Simulator {
	return &Simulator{
		src:       src,
		metrics:   make([]metrics.Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m metrics.Metric) { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }

type buffers struct {
	x, v, f, xn, vn, fn, eta dynamo.State
}

// acquire takes the run buffers from the pool, with x and v holding the
// initial condition.
func (s *Simulator) acquire(x0, v0 dynamo.State) *buffers {
	if s.pool == nil || s.pool.Size() != len(x0) {
		s.pool = NewStatePool(len(x0))
	}
	return &buffers{
		x: s.pool.GetAndCopy(x0), v: s.pool.GetAndCopy(v0), f: s.pool.Get(),
		xn: s.pool.Get(), vn: s.pool.Get(), fn: s.pool.Get(),
		eta: s.pool.Get(),
	}
}

func (s *Simulator) release(b *buffers) {
	for _, st := range []dynamo.State{b.x, b.v, b.f, b.xn, b.vn, b.fn, b.eta} {
		s.pool.Put(st)
	}
}

// Run writes the parameter record, creates the trajectory and integrates
// cfg.Steps steps. A run that fails after the trajectory was created
// removes it, so no partial trajectory is left behind.
func (s *Simulator) Run(ctx context.Context, cfg *dynamo.Config, files storage.RunFiles) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := storage.WriteParams(files.Params, cfg); err != nil {
		return nil, fmt.Errorf("write parameters: %w", err)
	}
	tw, err := storage.CreateTrajectory(files.Trajectory, cfg.Dt, cfg.Steps, files.Params)
	if err != nil {
		return nil, fmt.Errorf("create trajectory: %w", err)
	}

	start := time.Now()
	result, err := s.integrate(ctx, cfg, tw)
	if err != nil {
		tw.Abort()
		return nil, err
	}
	if err := tw.Close(); err != nil {
		_ = os.Remove(files.Trajectory)
		return nil, fmt.Errorf("close trajectory: %w", err)
	}
	result.WallTime = time.Since(start)

	if err := storage.AppendWallTime(files.Params, result.WallTime); err != nil {
		return result, fmt.Errorf("record wall time: %w", err)
	}

	if s.ResetInitial {
		physics.ResetStraight(cfg.X0, cfg.V0)
	}
	return result, nil
}

func (s *Simulator) integrate(ctx context.Context, cfg *dynamo.Config, tw *storage.TrajectoryWriter) (*Result, error) {
	field := physics.New(cfg)
	stepper := integrators.NewLangevin(cfg.Alpha, cfg.Dt, cfg.Mass)
	thermal := noise.NewThermal(s.src, cfg.Alpha, cfg.Kb, cfg.Temperature, cfg.Dt)

	b := s.acquire(cfg.X0, cfg.V0)
	defer s.release(b)

	if err := field.Forces(b.x, b.f); err != nil {
		return nil, &dynamo.SimulationError{Step: 0, Time: 0, Wrapped: err}
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result := &Result{Metrics: make(map[string]float64)}
	interval := cfg.Interval()
	counter := 0.0
	frame := &dynamo.Frame{}

	for step := 0; step < cfg.Steps; step++ {
		t := float64(step+1) * cfg.Dt

		select {
		case <-ctx.Done():
			return nil, &dynamo.SimulationError{Step: step, Time: t, Wrapped: ctx.Err()}
		default:
		}

		thermal.Fill(b.eta)
		if err := stepper.Step(field, b.x, b.v, b.f, b.eta, b.xn, b.vn, b.fn); err != nil {
			return nil, &dynamo.SimulationError{Step: step, Time: t, Wrapped: err}
		}

		counter += cfg.Dt
		if counter >= interval {
			frame.Time = t
			frame.X = b.xn
			frame.V = b.vn
			frame.Observables = metrics.Observe(b.xn, b.vn, cfg.Mass, cfg.K)

			if err := tw.WriteFrame(frame); err != nil {
				return nil, &dynamo.SimulationError{Step: step, Time: t, Wrapped: err}
			}
			for _, m := range s.metrics {
				m.Observe(frame)
			}
			for _, o := range s.observers {
				o.OnFrame(frame)
			}
			result.Frames++
			counter = 0
		}

		b.x, b.xn = b.xn, b.x
		b.v, b.vn = b.vn, b.v
		b.f, b.fn = b.fn, b.f
		result.StepsTaken++
		result.SimTime = t
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}
