package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/physics"
)

const (
	DefaultK             = 100.0
	DefaultKb            = 1.0
	DefaultTemperature   = 1.0
	DefaultAlpha         = 0.5
	DefaultMass          = 1.0
	DefaultDt            = 0.001
	DefaultDuration      = 1500.0
	DefaultSeed          = 12456
	DefaultEquilibration = 5
	DefaultAnchoredN     = 4
	DefaultDataDir       = "."
)

// DefaultChains are the chain lengths of a scaling sweep.
var DefaultChains = []int{4, 8, 16, 32, 64}

// DefaultForces are the pulling forces of a pulling sweep.
var DefaultForces = []float64{
	0.001, 0.00215443, 0.00464159, 0.01, 0.0215443,
	0.0464159, 0.1, 0.148698, 0.215443, 0.464159,
	1.0, 2.15443, 4.47214, 10.0, 20.0,
}

type Config struct {
	Physics        PhysicsConfig `yaml:"physics" toml:"physics"`
	Sweep          SweepConfig   `yaml:"sweep" toml:"sweep"`
	Seed           int64         `yaml:"seed" toml:"seed"`
	Equilibration  int           `yaml:"equilibration" toml:"equilibration"`
	SampleInterval float64       `yaml:"sample_interval" toml:"sample_interval"`
	DataDir        string        `yaml:"data_dir" toml:"data_dir"`
	Compress       bool          `yaml:"compress" toml:"compress"`
	Jobs           int           `yaml:"jobs" toml:"jobs"`
}

type PhysicsConfig struct {
	K           float64 `yaml:"k" toml:"k"`
	Kb          float64 `yaml:"kb" toml:"kb"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	Alpha       float64 `yaml:"alpha" toml:"alpha"`
	Mass        float64 `yaml:"mass" toml:"mass"`
	Dt          float64 `yaml:"dt" toml:"dt"`
	Duration    float64 `yaml:"duration" toml:"duration"`
	Steps       int     `yaml:"steps,omitempty" toml:"steps,omitempty"`
}

type SweepConfig struct {
	Mode      string    `yaml:"mode" toml:"mode"`
	Chains    []int     `yaml:"chains" toml:"chains"`
	Forces    []float64 `yaml:"forces" toml:"forces"`
	AnchoredN int       `yaml:"anchored_n" toml:"anchored_n"`
}

func DefaultConfig() *Config {
	return &Config{
		Physics: PhysicsConfig{
			K:           DefaultK,
			Kb:          DefaultKb,
			Temperature: DefaultTemperature,
			Alpha:       DefaultAlpha,
			Mass:        DefaultMass,
			Dt:          DefaultDt,
			Duration:    DefaultDuration,
		},
		Sweep: SweepConfig{
			Mode:      dynamo.ModeScaling.String(),
			Chains:    append([]int(nil), DefaultChains...),
			Forces:    append([]float64(nil), DefaultForces...),
			AnchoredN: DefaultAnchoredN,
		},
		Seed:           DefaultSeed,
		Equilibration:  DefaultEquilibration,
		SampleInterval: dynamo.DefaultSampleInterval,
		DataDir:        DefaultDataDir,
		Jobs:           1,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML file, or TOML when path ends in ".toml". Keys missing
// from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Mode parses the sweep mode.
func (c *Config) Mode() (dynamo.Mode, error) {
	return dynamo.ParseMode(c.Sweep.Mode)
}

// StepCount is Steps when set, otherwise Duration/Dt rounded to the
// nearest step.
func (c *Config) StepCount() int {
	if c.Physics.Steps > 0 {
		return c.Physics.Steps
	}
	if c.Physics.Dt <= 0 {
		return 0
	}
	return int(math.Round(c.Physics.Duration / c.Physics.Dt))
}

// Validate checks the sweep definition. Physical bounds are checked per run
// by dynamo.Config.Validate.
func (c *Config) Validate() error {
	mode, err := c.Mode()
	if err != nil {
		return err
	}
	switch {
	case c.Equilibration < 0:
		return fmt.Errorf("%w: equilibration must be non-negative", dynamo.ErrParameterBounds)
	case c.Jobs < 0:
		return fmt.Errorf("%w: jobs must be non-negative", dynamo.ErrParameterBounds)
	case mode == dynamo.ModeScaling && len(c.Sweep.Chains) == 0:
		return fmt.Errorf("%w: scaling sweep without chain lengths", dynamo.ErrParameterBounds)
	case mode == dynamo.ModePulling && len(c.Sweep.Forces) == 0:
		return fmt.Errorf("%w: pulling sweep without forces", dynamo.ErrParameterBounds)
	case mode == dynamo.ModePulling && c.Sweep.AnchoredN < 2:
		return fmt.Errorf("%w: anchored chain needs at least 2 beads", dynamo.ErrParameterBounds)
	}
	return nil
}

// RunConfig builds the configuration of one run starting from the straight
// chain at rest.
func (c *Config) RunConfig(n int, anchored bool, pull float64, seed int64) *dynamo.Config {
	x, v := physics.StraightChain(n)
	return &dynamo.Config{
		K:              c.Physics.K,
		Kb:             c.Physics.Kb,
		Temperature:    c.Physics.Temperature,
		Alpha:          c.Physics.Alpha,
		N:              n,
		Dt:             c.Physics.Dt,
		Mass:           c.Physics.Mass,
		Steps:          c.StepCount(),
		X0:             x,
		V0:             v,
		Anchored:       anchored,
		PullForce:      pull,
		Seed:           seed,
		SampleInterval: c.SampleInterval,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Sweep.Chains = append([]int(nil), c.Sweep.Chains...)
	out.Sweep.Forces = append([]float64(nil), c.Sweep.Forces...)
	return &out
}
