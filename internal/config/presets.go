package config

import (
	"sort"

	"github.com/san-kum/polychain/internal/dynamo"
)

var Presets = map[string]*Config{
	// chain length scaling of the radius of gyration
	"escala": func() *Config {
		c := DefaultConfig()
		c.Sweep.Mode = dynamo.ModeScaling.String()
		return c
	}(),
	// force-extension of an anchored 4-bead chain
	"fijos": func() *Config {
		c := DefaultConfig()
		c.Sweep.Mode = dynamo.ModePulling.String()
		return c
	}(),
	"quick": func() *Config {
		c := DefaultConfig()
		c.Physics.Duration = 10
		c.Sweep.Chains = []int{4, 8}
		c.Equilibration = 5
		return c
	}(),
	"cold": func() *Config {
		c := DefaultConfig()
		c.Physics.Temperature = 0.1
		c.Physics.Duration = 200
		return c
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
