package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/polychain/internal/catalog"
	"github.com/san-kum/polychain/internal/config"
	"github.com/san-kum/polychain/internal/dynamo"
)

var (
	configFile  string
	preset      string
	dataDir     string
	catalogPath string
	verbose     bool

	k             float64
	temperature   float64
	alpha         float64
	dt            float64
	duration      float64
	steps         int
	seed          int64
	interval      float64
	equilibration int
	compress      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "polychain",
		Short:         "Langevin bead-spring chain simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (yaml, or toml by extension)")
	pf.StringVar(&preset, "preset", "", "start from a named preset")
	pf.StringVar(&dataDir, "data", "", "data directory")
	pf.StringVar(&catalogPath, "catalog", config.DefaultCatalogPath(), "run catalog database (empty to disable)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	pf.Float64Var(&k, "k", config.DefaultK, "spring constant")
	pf.Float64Var(&temperature, "temperature", config.DefaultTemperature, "bath temperature")
	pf.Float64Var(&alpha, "alpha", config.DefaultAlpha, "friction coefficient")
	pf.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	pf.Float64Var(&duration, "time", config.DefaultDuration, "simulated time")
	pf.IntVar(&steps, "steps", 0, "step count (overrides --time)")
	pf.Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	pf.Float64Var(&interval, "interval", dynamo.DefaultSampleInterval, "sampling interval in simulated time")
	pf.IntVar(&equilibration, "equilibration", config.DefaultEquilibration, "frames discarded before averaging")
	pf.BoolVar(&compress, "gzip", false, "gzip trajectories")

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newReduceCmd(),
		newAggregateCmd(),
		newPlotCmd(),
		newTraceCmd(),
		newListCmd(),
		newPresetsCmd(),
		newInitConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration: preset, then config file (or the
// default config path when present), then any flag set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	path := configFile
	if path == "" && preset == "" {
		if _, err := os.Stat(config.DefaultConfigPath()); err == nil {
			path = config.DefaultConfigPath()
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("k") {
		cfg.Physics.K = k
	}
	if flags.Changed("temperature") {
		cfg.Physics.Temperature = temperature
	}
	if flags.Changed("alpha") {
		cfg.Physics.Alpha = alpha
	}
	if flags.Changed("dt") {
		cfg.Physics.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Physics.Duration = duration
		cfg.Physics.Steps = 0
	}
	if flags.Changed("steps") {
		cfg.Physics.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("interval") {
		cfg.SampleInterval = interval
	}
	if flags.Changed("equilibration") {
		cfg.Equilibration = equilibration
	}
	if flags.Changed("gzip") {
		cfg.Compress = compress
	}
	return cfg, nil
}

func newLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "polychain: ", log.LstdFlags)
}

// openCatalog returns nil when the catalog is disabled.
func openCatalog() (*catalog.Catalog, error) {
	if catalogPath == "" {
		return nil, nil
	}
	return catalog.Open(catalogPath)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
