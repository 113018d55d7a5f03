package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/san-kum/polychain/internal/aggregate"
	"github.com/san-kum/polychain/internal/catalog"
	"github.com/san-kum/polychain/internal/config"
	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/experiment"
	"github.com/san-kum/polychain/internal/reduce"
	"github.com/san-kum/polychain/internal/sim"
	"github.com/san-kum/polychain/internal/storage"
	"github.com/san-kum/polychain/internal/tui"
	"github.com/san-kum/polychain/internal/viz"
)

var (
	beads       int
	anchored    bool
	pullForce   float64
	metricNames []string
	showChain   bool
	reduceAfter bool

	mode    string
	chains  []int
	forces  []float64
	jobs    int
	noTUI   bool
	analyze bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a single chain",
		Args:  cobra.NoArgs,
		RunE:  runSingle,
	}
	cmd.Flags().IntVarP(&beads, "beads", "n", config.DefaultAnchoredN, "number of beads")
	cmd.Flags().BoolVar(&anchored, "anchored", false, "pin the first bead and pull the last")
	cmd.Flags().Float64Var(&pullForce, "pull", 0, "pulling force on the last bead (anchored)")
	cmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "run metrics (energy, energy_drift, stability)")
	cmd.Flags().BoolVar(&showChain, "view", false, "draw the final chain and the gyration trace")
	cmd.Flags().BoolVar(&reduceAfter, "reduce", false, "reduce the trajectory when done")
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run every chain length or pulling force of a sweep",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	cmd.Flags().StringVar(&mode, "mode", "", "scaling or pulling")
	cmd.Flags().IntSliceVar(&chains, "chains", nil, "chain lengths (scaling)")
	cmd.Flags().Float64SliceVar(&forces, "forces", nil, "pulling forces (pulling)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "runs executed in parallel")
	cmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "run metrics (energy, energy_drift, stability)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "plain progress output")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "reduce and aggregate after the sweep")
	return cmd
}

func experimentOptions(cmd *cobra.Command, cat *catalog.Catalog) []experiment.Option {
	opts := []experiment.Option{experiment.WithLogger(newLogger())}
	if cat != nil {
		opts = append(opts, experiment.WithCatalog(cat))
	}
	if cmd.Flags().Changed("metrics") {
		opts = append(opts, experiment.WithMetrics(metricNames...))
	}
	return opts
}

func runSingle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
	}

	var mu sync.Mutex
	var last dynamo.State
	var trace []float64
	opts := experimentOptions(cmd, cat)
	if showChain {
		opts = append(opts, experiment.WithObserver(func(experiment.Plan) sim.Observer {
			return sim.ObserverFunc(func(f *dynamo.Frame) {
				mu.Lock()
				defer mu.Unlock()
				last = f.X.Clone()
				trace = append(trace, f.Gyration)
			})
		}))
	}

	exp, err := experiment.New(cfg, storage.New(cfg.DataDir), opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	plan := experiment.Plan{N: beads, Anchored: anchored, PullForce: pullForce, Seed: cfg.Seed}
	fmt.Printf("running chain N=%d (%s)...\n", plan.N, plan.Mode())
	out, err := exp.RunPlan(ctx, plan)
	if err != nil {
		return err
	}

	res := out.Result
	fmt.Printf("completed in %v\n", res.WallTime.Round(time.Millisecond))
	fmt.Printf("trajectory: %s\n", out.Files.Trajectory)
	fmt.Printf("steps: %d  frames: %d  time: %g\n", res.StepsTaken, res.Frames, res.SimTime)
	printMetrics(res.Metrics)

	if showChain && last != nil {
		view := viz.NewChainView(60, 16)
		fmt.Println()
		fmt.Println(viz.Panel.Render(view.Render(last)))
		fmt.Println(viz.PlotSeries(trace, "radius of gyration", 70, 10))
	}

	if reduceAfter {
		r := reduce.New(cfg.Equilibration, newLogger())
		s, err := r.ReduceFile(out.Files.Trajectory, out.Files.Params, out.Files.Summary)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(viz.RenderSummary(s))
	}
	return nil
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func sweepConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Sweep.Mode = mode
	}
	if flags.Changed("chains") {
		cfg.Sweep.Chains = chains
	}
	if flags.Changed("forces") {
		cfg.Sweep.Forces = forces
	}
	if flags.Changed("jobs") {
		cfg.Jobs = jobs
	}
	return cfg, nil
}

// relay lets experiment hooks be built before the program exists.
type relay struct{ p *tea.Program }

func (r *relay) Send(msg tea.Msg) { r.p.Send(msg) }

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := sweepConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	interactive := !noTUI && term.IsTerminal(os.Stdout.Fd())
	opts := experimentOptions(cmd, cat)
	r := &relay{}
	if interactive {
		opts = append(opts,
			experiment.WithProgress(tui.Progress(r)),
			experiment.WithObserver(tui.Frames(r, 100*time.Millisecond)))
	} else {
		opts = append(opts, experiment.WithProgress(printEvent))
	}

	store := storage.New(cfg.DataDir)
	exp, err := experiment.New(cfg, store, opts...)
	if err != nil {
		return err
	}

	if interactive {
		title := fmt.Sprintf("%s sweep  K=%g", exp.Mode(), cfg.Physics.K)
		r.p = tea.NewProgram(tui.New(title, exp.Plans(), cancel))
		errc := make(chan error, 1)
		go func() {
			_, err := exp.Run(ctx)
			errc <- err
			r.p.Send(tui.DoneMsg{Err: err})
		}()
		if _, err := r.p.Run(); err != nil {
			cancel()
			<-errc
			return err
		}
		if err := <-errc; err != nil {
			return err
		}
	} else if _, err := exp.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("sweep written to %s\n", store.TrajectoryDir(cfg.Physics.K, exp.Mode()))
	if !analyze {
		return nil
	}
	if _, err := exp.Analyze(ctx); err != nil {
		return err
	}
	table, err := exp.Report()
	if err != nil {
		return err
	}
	printTable(table)
	return nil
}

func printEvent(ev experiment.Event) {
	label := fmt.Sprintf("V_%d N=%d", ev.Files.Index, ev.Plan.N)
	if ev.Plan.Anchored {
		label += fmt.Sprintf(" F=%g", ev.Plan.PullForce)
	}
	switch ev.Kind {
	case experiment.RunStarted:
		fmt.Printf("[%d/%d] %s started\n", ev.Done, ev.Total, label)
	case experiment.RunFinished:
		fmt.Printf("[%d/%d] %s done: %d frames in %v\n", ev.Done, ev.Total, label,
			ev.Result.Frames, ev.Result.WallTime.Round(time.Millisecond))
	case experiment.RunFailed:
		fmt.Printf("[%d/%d] %s failed: %v\n", ev.Done, ev.Total, label, ev.Err)
	}
}

func printTable(t *aggregate.Table) {
	fmt.Println(viz.RenderTable(t))
	if t.Mode != dynamo.ModeScaling {
		return
	}
	if a, nu, err := t.PowerLaw(); err == nil {
		fmt.Printf("fit: R_g = %.4f N^%.4f\n", a, nu)
	}
}
