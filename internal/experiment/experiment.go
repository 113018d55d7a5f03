// Package experiment expands a sweep configuration into runs, executes
// them, and reduces and aggregates their output.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/polychain/internal/aggregate"
	"github.com/san-kum/polychain/internal/catalog"
	"github.com/san-kum/polychain/internal/config"
	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/noise"
	"github.com/san-kum/polychain/internal/reduce"
	"github.com/san-kum/polychain/internal/sim"
	"github.com/san-kum/polychain/internal/storage"
)

// Plan is one run of a sweep.
type Plan struct {
	Index     int
	N         int
	Anchored  bool
	PullForce float64
	Seed      int64
}

// Mode is the layout a plan's records are stored under.
func (p Plan) Mode() dynamo.Mode {
	if p.Anchored {
		return dynamo.ModePulling
	}
	return dynamo.ModeScaling
}

type EventKind int

const (
	RunStarted EventKind = iota
	RunFinished
	RunFailed
)

// Event reports sweep progress. Done counts finished and failed runs.
type Event struct {
	Kind   EventKind
	Plan   Plan
	Files  storage.RunFiles
	Result *sim.Result
	Err    error
	Done   int
	Total  int
}

// Outcome pairs a plan with where it was written and what it produced.
type Outcome struct {
	Plan   Plan
	Files  storage.RunFiles
	Result *sim.Result
}

type Experiment struct {
	cfg      *config.Config
	mode     dynamo.Mode
	store    *storage.Store
	catalog  *catalog.Catalog
	registry *Registry
	metrics  []string
	logger   *log.Logger
	progress func(Event)
	observer func(Plan) sim.Observer

	mu   sync.Mutex
	done int
}

type Option func(*Experiment)

func WithCatalog(c *catalog.Catalog) Option { return func(e *Experiment) { e.catalog = c } }
func WithLogger(l *log.Logger) Option       { return func(e *Experiment) { e.logger = l } }
func WithMetrics(names ...string) Option    { return func(e *Experiment) { e.metrics = names } }

// WithProgress registers fn for sweep events. Calls are serialised.
func WithProgress(fn func(Event)) Option { return func(e *Experiment) { e.progress = fn } }

// WithObserver attaches a per-run frame observer built by fn.
func WithObserver(fn func(Plan) sim.Observer) Option {
	return func(e *Experiment) { e.observer = fn }
}

func New(cfg *config.Config, store *storage.Store, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := cfg.Mode()
	e := &Experiment{
		cfg:      cfg,
		mode:     mode,
		store:    store,
		registry: NewRegistry(),
		logger:   log.New(io.Discard, "", 0),
	}
	e.metrics = e.registry.DefaultMetrics()
	for _, opt := range opts {
		opt(e)
	}
	for _, name := range e.metrics {
		if _, err := e.registry.GetMetric(name); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Experiment) Mode() dynamo.Mode { return e.mode }

// Plans lists the runs of the sweep. Run i is seeded with Seed+i.
func (e *Experiment) Plans() []Plan {
	var plans []Plan
	switch e.mode {
	case dynamo.ModePulling:
		for i, f := range e.cfg.Sweep.Forces {
			plans = append(plans, Plan{Index: i, N: e.cfg.Sweep.AnchoredN, Anchored: true, PullForce: f, Seed: e.cfg.Seed + int64(i)})
		}
	default:
		for i, n := range e.cfg.Sweep.Chains {
			plans = append(plans, Plan{Index: i, N: n, Seed: e.cfg.Seed + int64(i)})
		}
	}
	return plans
}

func (e *Experiment) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Kind != RunStarted {
		e.done++
	}
	ev.Done = e.done
	if e.progress != nil {
		e.progress(ev)
	}
}

// Run executes every plan. Destinations are reserved in plan order before
// any run starts, so V_k indices follow the sweep order even when runs
// execute in parallel. The first failure cancels the remaining runs.
func (e *Experiment) Run(ctx context.Context) ([]Outcome, error) {
	plans := e.Plans()
	outcomes := make([]Outcome, len(plans))
	for i, p := range plans {
		files, err := e.store.NextRun(e.cfg.Physics.K, e.mode, e.cfg.Compress)
		if err != nil {
			e.release(outcomes[:i])
			return nil, fmt.Errorf("reserve run %d: %w", i, err)
		}
		outcomes[i] = Outcome{Plan: p, Files: files}
	}

	jobs := e.cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	e.done = 0

	for i := range outcomes {
		out := &outcomes[i]
		g.Go(func() error {
			res, err := e.runOne(gctx, out.Plan, out.Files, len(plans))
			if err != nil {
				return err
			}
			out.Result = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// RunPlan executes one plan on its own, outside the sweep.
func (e *Experiment) RunPlan(ctx context.Context, p Plan) (Outcome, error) {
	files, err := e.store.NextRun(e.cfg.Physics.K, p.Mode(), e.cfg.Compress)
	if err != nil {
		return Outcome{}, err
	}
	e.done = 0
	res, err := e.runOne(ctx, p, files, 1)
	if err != nil {
		return Outcome{Plan: p, Files: files}, err
	}
	return Outcome{Plan: p, Files: files, Result: res}, nil
}

// release drops reserved parameter files that never received a run.
func (e *Experiment) release(outs []Outcome) {
	for _, o := range outs {
		_ = os.Remove(o.Files.Params)
	}
}

func (e *Experiment) runOne(ctx context.Context, p Plan, files storage.RunFiles, total int) (*sim.Result, error) {
	if err := ctx.Err(); err != nil {
		_ = os.Remove(files.Params)
		return nil, err
	}

	rc := e.cfg.RunConfig(p.N, p.Anchored, p.PullForce, p.Seed)
	s := sim.New(noise.New(p.Seed))
	for _, name := range e.metrics {
		m, _ := e.registry.GetMetric(name)
		s.AddMetric(m)
	}
	if e.observer != nil {
		if o := e.observer(p); o != nil {
			s.AddObserver(o)
		}
	}

	e.logger.Printf("run V_%d: N=%d F_cte=%g seed=%d", files.Index, p.N, p.PullForce, p.Seed)
	e.emit(Event{Kind: RunStarted, Plan: p, Files: files, Total: total})

	res, err := s.Run(ctx, rc, files)
	if err != nil {
		_ = os.Remove(files.Params)
		e.emit(Event{Kind: RunFailed, Plan: p, Files: files, Err: err, Total: total})
		return nil, fmt.Errorf("run V_%d (N=%d): %w", files.Index, p.N, err)
	}

	if e.catalog != nil {
		rec := &catalog.Record{
			K:              rc.K,
			Mode:           p.Mode().String(),
			N:              rc.N,
			PullForce:      rc.PullForce,
			Seed:           rc.Seed,
			Dt:             rc.Dt,
			Steps:          rc.Steps,
			ParamPath:      files.Params,
			TrajectoryPath: files.Trajectory,
			Frames:         res.Frames,
			WallTime:       res.WallTime,
		}
		if err := e.catalog.Insert(ctx, rec); err != nil {
			e.logger.Printf("catalog V_%d: %v", files.Index, err)
		}
	}

	e.logger.Printf("run V_%d done: %d frames in %s", files.Index, res.Frames, res.WallTime)
	e.emit(Event{Kind: RunFinished, Plan: p, Files: files, Result: res, Total: total})
	return res, nil
}

// Analyze reduces every trajectory of the configuration, discarding the
// first Equilibration frames of each. Runs that cannot be reduced are
// logged and left out; their errors are joined into the returned error.
func (e *Experiment) Analyze(ctx context.Context) ([]*dynamo.Summary, error) {
	runs, err := e.store.Runs(e.cfg.Physics.K, e.mode)
	if err != nil {
		return nil, err
	}

	r := reduce.New(e.cfg.Equilibration, e.logger)
	var summaries []*dynamo.Summary
	var errs []error
	for _, rf := range runs {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		s, err := r.ReduceFile(rf.Trajectory, rf.Params, rf.Summary)
		if err != nil {
			e.logger.Printf("reduce V_%d: %v", rf.Index, err)
			errs = append(errs, err)
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, errors.Join(errs...)
}

// Report aggregates every summary of the configuration into its table.
func (e *Experiment) Report() (*aggregate.Table, error) {
	paths, err := e.store.Summaries(e.cfg.Physics.K, e.mode)
	if err != nil {
		return nil, err
	}
	summaries, err := aggregate.Load(paths)
	if err != nil {
		return nil, err
	}
	table, err := aggregate.Build(summaries, e.mode)
	if err != nil {
		return nil, err
	}
	if err := table.WriteFile(e.store.TablePath(e.cfg.Physics.K, e.mode)); err != nil {
		return nil, err
	}
	return table, nil
}
