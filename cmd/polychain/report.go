package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/polychain/internal/aggregate"
	"github.com/san-kum/polychain/internal/analysis"
	"github.com/san-kum/polychain/internal/catalog"
	"github.com/san-kum/polychain/internal/config"
	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/experiment"
	"github.com/san-kum/polychain/internal/export"
	"github.com/san-kum/polychain/internal/reduce"
	"github.com/san-kum/polychain/internal/storage"
	"github.com/san-kum/polychain/internal/viz"
)

var (
	tablePath  string
	outPath    string
	plotTitle  string
	theory     bool
	logScale   bool
	observable string
	listLimit  int
	listJSON   bool
	force      bool
)

func newReduceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reduce [trajectory params summary]",
		Short: "average the observables of trajectories",
		Long: "Without arguments, reduces every trajectory of the configured K and mode.\n" +
			"With arguments, reduces one trajectory into the given summary file.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("expected no arguments or 3, got %d", len(args))
			}
			return nil
		},
		RunE: reduceRuns,
	}
	cmd.Flags().StringVar(&mode, "mode", "", "scaling or pulling")
	return cmd
}

func reduceRuns(cmd *cobra.Command, args []string) error {
	cfg, err := sweepConfig(cmd)
	if err != nil {
		return err
	}

	if len(args) == 3 {
		s, err := reduce.New(cfg.Equilibration, newLogger()).ReduceFile(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Println(viz.RenderSummary(s))
		return nil
	}

	exp, err := experiment.New(cfg, storage.New(cfg.DataDir), experiment.WithLogger(newLogger()))
	if err != nil {
		return err
	}
	summaries, err := exp.Analyze(context.Background())
	for _, s := range summaries {
		fmt.Println(viz.RenderSummary(s))
		fmt.Println()
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d trajectories reduced\n", len(summaries))
	return nil
}

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "collect summaries into the result table",
		Args:  cobra.NoArgs,
		RunE:  aggregateRuns,
	}
	cmd.Flags().StringVar(&mode, "mode", "", "scaling or pulling")
	return cmd
}

func aggregateRuns(cmd *cobra.Command, args []string) error {
	cfg, err := sweepConfig(cmd)
	if err != nil {
		return err
	}
	store := storage.New(cfg.DataDir)
	exp, err := experiment.New(cfg, store)
	if err != nil {
		return err
	}
	table, err := exp.Report()
	if err != nil {
		return err
	}
	printTable(table)
	fmt.Printf("table written to %s\n", store.TablePath(cfg.Physics.K, exp.Mode()))
	return nil
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "plot the result table",
		Long: "Draws the result table in the terminal, or saves it as an image\n" +
			"when --out is given (png, svg, pdf by extension).",
		Args: cobra.NoArgs,
		RunE: plotTable,
	}
	cmd.Flags().StringVar(&mode, "mode", "", "scaling or pulling")
	cmd.Flags().StringVar(&tablePath, "table", "", "table file (defaults to the configured one)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "image file")
	cmd.Flags().StringVar(&plotTitle, "title", "", "plot title")
	cmd.Flags().BoolVar(&theory, "theory", true, "overlay the ideal chain curve")
	cmd.Flags().BoolVar(&logScale, "log", false, "log-log axes")
	return cmd
}

func plotTable(cmd *cobra.Command, args []string) error {
	cfg, err := sweepConfig(cmd)
	if err != nil {
		return err
	}
	m, err := cfg.Mode()
	if err != nil {
		return err
	}
	path := tablePath
	if path == "" {
		path = storage.New(cfg.DataDir).TablePath(cfg.Physics.K, m)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	table, err := aggregate.ReadTable(f, m)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if outPath == "" {
		fmt.Println(viz.PlotTable(table, 70, 15))
		return nil
	}
	title := plotTitle
	if title == "" {
		title = fmt.Sprintf("K = %g", cfg.Physics.K)
	}
	opts := export.Options{Title: title, Theory: theory, AnchoredN: cfg.Sweep.AnchoredN, LogLog: logScale}
	if err := export.SaveTable(table, outPath, opts); err != nil {
		return err
	}
	fmt.Printf("plot saved to %s\n", outPath)
	return nil
}

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [trajectory] [params]",
		Short: "plot an observable of one trajectory over time",
		Args:  cobra.ExactArgs(2),
		RunE:  traceRun,
	}
	cmd.Flags().StringVar(&observable, "observable", "rg", "ek, ep, et, rg or ree")
	return cmd
}

func traceRun(cmd *cobra.Command, args []string) error {
	params, err := storage.ReadParams(args[1])
	if err != nil {
		return err
	}
	f, err := storage.OpenTrajectory(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	_, frames, err := storage.ReadFrames(f, params.Config.N)
	if err != nil {
		return err
	}
	pick, caption, err := observableColumn(observable)
	if err != nil {
		return err
	}
	values := make([]float64, len(frames))
	for i, fr := range frames {
		values[i] = pick(fr.Observables)
	}
	fmt.Println(viz.PlotSeries(values, fmt.Sprintf("%s (%s)", caption, filepath.Base(args[0])), 70, 12))

	if equilibration >= 0 && equilibration < len(values) {
		st := analysis.Analyze(values[equilibration:])
		fmt.Printf("mean %.6f  se %.6f (naive %.6f)\n", st.Mean, st.StdErr, st.NaiveErr)
		fmt.Printf("autocorrelation time %.2f frames, %.0f independent samples\n", st.Tau, st.Effective)
		if freq, ok := analysis.DominantFrequency(values[equilibration:], params.Config.Interval()); ok {
			fmt.Printf("dominant frequency %.4f (period %.3f)\n", freq, 1/freq)
		}
	}
	return nil
}

func observableColumn(name string) (func(dynamo.Observables) float64, string, error) {
	switch name {
	case "ek":
		return func(o dynamo.Observables) float64 { return o.Kinetic }, "kinetic energy", nil
	case "ep":
		return func(o dynamo.Observables) float64 { return o.Potential }, "potential energy", nil
	case "et":
		return func(o dynamo.Observables) float64 { return o.Total }, "total energy", nil
	case "rg":
		return func(o dynamo.Observables) float64 { return o.Gyration }, "radius of gyration", nil
	case "ree":
		return func(o dynamo.Observables) float64 { return o.EndToEnd }, "end-to-end distance", nil
	}
	return nil, "", fmt.Errorf("unknown observable: %s", name)
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list cataloged runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	cmd.Flags().StringVar(&mode, "mode", "", "only runs of this mode")
	cmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of runs")
	cmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	return cmd
}

func listRuns(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	if cat == nil {
		return fmt.Errorf("catalog disabled")
	}
	defer cat.Close()

	filter := catalog.Filter{Limit: listLimit}
	if cmd.Flags().Changed("k") {
		filter.K = k
	}
	if cmd.Flags().Changed("mode") {
		m, err := dynamo.ParseMode(mode)
		if err != nil {
			return err
		}
		filter.Mode = m.String()
	}
	records, err := cat.List(context.Background(), filter)
	if err != nil {
		return err
	}

	if listJSON {
		return catalog.ExportJSON(os.Stdout, records)
	}
	if len(records) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tK\tMODE\tN\tF\tSEED\tFRAMES\tWALL\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%g\t%s\t%d\t%g\t%d\t%d\t%v\t%s\n",
			r.ID[:8], r.K, r.Mode, r.N, r.PullForce, r.Seed, r.Frames,
			r.WallTime.Round(time.Millisecond), r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMODE\tT\tDT\tTIME\tRUNS")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				runs := len(p.Sweep.Chains)
				if m, _ := p.Mode(); m == dynamo.ModePulling {
					runs = len(p.Sweep.Forces)
				}
				fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%d\n", name, p.Sweep.Mode,
					p.Physics.Temperature, p.Physics.Dt, p.Physics.Duration, runs)
			}
			return w.Flush()
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file with the current settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if fileExists(path) && !force {
				return fmt.Errorf("%s exists (use --force to overwrite)", path)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
