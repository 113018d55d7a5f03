package dynamo

import "fmt"

// Mode selects the experiment a run belongs to.
type Mode int

const (
	// ModeScaling sweeps the chain length with both ends free.
	ModeScaling Mode = iota
	// ModePulling anchors bead 0 and sweeps the pulling force.
	ModePulling
)

func (m Mode) String() string {
	switch m {
	case ModeScaling:
		return "scaling"
	case ModePulling:
		return "pulling"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the English names and the directory names of each mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "scaling", "escala", "ESCALA", "free":
		return ModeScaling, nil
	case "pulling", "fijos", "FIJOS", "anchored":
		return ModePulling, nil
	default:
		return 0, fmt.Errorf("unknown mode: %s", s)
	}
}

// ModeOf returns the mode implied by a run configuration.
func ModeOf(cfg *Config) Mode {
	if cfg.Anchored {
		return ModePulling
	}
	return ModeScaling
}
