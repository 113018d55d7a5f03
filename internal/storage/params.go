package storage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/polychain/internal/dynamo"
)

// Parameter record keys.
const (
	keyK         = "K"
	keyKb        = "kb"
	keyTemp      = "Temperatura"
	keyAlpha     = "alfa"
	keyN         = "N"
	keyDt        = "dt"
	keyMass      = "m"
	keySteps     = "pasos"
	keyAnchored  = "Modo_FIXED"
	keyPull      = "F_cte"
	keySeed      = "semilla"
	keyInterval  = "intervalo_muestreo"
	keyWallTime  = "tiempo_simulacion"
	keyPosPrefix = "x_0_"
	keyVelPrefix = "v_0_"
)

func formatG(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteParams writes the run configuration as "key value" lines.
func WriteParams(path string, cfg *dynamo.Config) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)

	fmt.Fprintln(w, "# Langevin chain run parameters")
	fmt.Fprintln(w, "# -----------------------------------------------")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", keyK, formatG(cfg.K))
	fmt.Fprintf(w, "%s %s\n", keyKb, formatG(cfg.Kb))
	fmt.Fprintf(w, "%s %s\n", keyTemp, formatG(cfg.Temperature))
	fmt.Fprintf(w, "%s %s\n", keyAlpha, formatG(cfg.Alpha))
	fmt.Fprintf(w, "%s %d\n", keyN, cfg.N)
	fmt.Fprintf(w, "%s %s\n", keyDt, formatG(cfg.Dt))
	fmt.Fprintf(w, "%s %s\n", keyMass, formatG(cfg.Mass))
	fmt.Fprintf(w, "%s %d\n", keySteps, cfg.Steps)
	if cfg.Anchored {
		fmt.Fprintf(w, "%s SI\n", keyAnchored)
		fmt.Fprintf(w, "%s %s\n", keyPull, formatG(cfg.PullForce))
		fmt.Fprintln(w, "# bead 0 is fixed; F_cte pulls the last bead along z")
	} else {
		fmt.Fprintf(w, "%s NO\n", keyAnchored)
	}
	fmt.Fprintf(w, "%s %d\n", keySeed, cfg.Seed)
	fmt.Fprintf(w, "%s %s\n", keyInterval, formatG(cfg.Interval()))

	fmt.Fprintln(w, "\n# initial positions")
	for i, v := range cfg.X0 {
		fmt.Fprintf(w, "%s%d %s\n", keyPosPrefix, i, formatG(v))
	}
	fmt.Fprintln(w, "\n# initial velocities")
	for i, v := range cfg.V0 {
		fmt.Fprintf(w, "%s%d %s\n", keyVelPrefix, i, formatG(v))
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// AppendWallTime records the wall-clock duration of a finished run.
func AppendWallTime(path string, d time.Duration) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(file, "\n%s %.6f\n", keyWallTime, d.Seconds()); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Params is a parameter record read back from disk.
type Params struct {
	Config   dynamo.Config
	WallTime time.Duration
}

// ReadParams parses a parameter record. Unknown keys are ignored; N is
// required.
func ReadParams(path string) (*Params, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	p := &Params{}
	cfg := &p.Config
	pos := map[int]float64{}
	vel := map[int]float64{}
	haveN := false

	sc := bufio.NewScanner(file)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key, val := fields[0], fields[1]

		var perr error
		switch {
		case key == keyK:
			cfg.K, perr = strconv.ParseFloat(val, 64)
		case key == keyKb:
			cfg.Kb, perr = strconv.ParseFloat(val, 64)
		case key == keyTemp:
			cfg.Temperature, perr = strconv.ParseFloat(val, 64)
		case key == keyAlpha:
			cfg.Alpha, perr = strconv.ParseFloat(val, 64)
		case key == keyN:
			cfg.N, perr = strconv.Atoi(val)
			haveN = perr == nil
		case key == keyDt:
			cfg.Dt, perr = strconv.ParseFloat(val, 64)
		case key == keyMass:
			cfg.Mass, perr = strconv.ParseFloat(val, 64)
		case key == keySteps:
			cfg.Steps, perr = strconv.Atoi(val)
		case key == keyAnchored:
			cfg.Anchored = val == "SI"
		case key == keyPull:
			cfg.PullForce, perr = strconv.ParseFloat(val, 64)
		case key == keySeed:
			cfg.Seed, perr = strconv.ParseInt(val, 10, 64)
		case key == keyInterval:
			cfg.SampleInterval, perr = strconv.ParseFloat(val, 64)
		case key == keyWallTime:
			var s float64
			s, perr = strconv.ParseFloat(val, 64)
			p.WallTime = time.Duration(s * float64(time.Second))
		case strings.HasPrefix(key, keyPosPrefix):
			perr = indexed(pos, strings.TrimPrefix(key, keyPosPrefix), val)
		case strings.HasPrefix(key, keyVelPrefix):
			perr = indexed(vel, strings.TrimPrefix(key, keyVelPrefix), val)
		}
		if perr != nil {
			return nil, fmt.Errorf("%s:%d: %s: %w", path, lineNo, key, perr)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !haveN || cfg.N <= 0 {
		return nil, fmt.Errorf("%s: %w: missing or invalid N", path, dynamo.ErrParameterBounds)
	}

	if len(pos) > 0 {
		cfg.X0 = collect(pos, 3*cfg.N)
	}
	if len(vel) > 0 {
		cfg.V0 = collect(vel, 3*cfg.N)
	}
	return p, nil
}

func indexed(dst map[int]float64, idx, val string) error {
	i, err := strconv.Atoi(idx)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return err
	}
	dst[i] = v
	return nil
}

func collect(src map[int]float64, n int) dynamo.State {
	s := make(dynamo.State, n)
	for i, v := range src {
		if i >= 0 && i < n {
			s[i] = v
		}
	}
	return s
}
