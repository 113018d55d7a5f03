// Package reduce turns a persisted trajectory into mean and standard error
// estimates of its observables.
package reduce

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/metrics"
	"github.com/san-kum/polychain/internal/storage"
)

// Reducer streams trajectories line by line, so memory use does not grow
// with trajectory length.
type Reducer struct {
	// NStart is the number of frames discarded as equilibration.
	NStart int
	Logger *log.Logger
}

func New(nStart int, logger *log.Logger) *Reducer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Reducer{NStart: nStart, Logger: logger}
}

// Reduce reads a trajectory of an n-bead chain. The header line and the
// first NStart frame lines are discarded. Lines whose observable columns
// cannot be parsed are logged, recorded in Summary.Skipped by line number
// and excluded from the statistics.
func (r *Reducer) Reduce(src io.Reader, n int) (*dynamo.Summary, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: chain length %d", dynamo.ErrParameterBounds, n)
	}
	if r.NStart < 0 {
		return nil, fmt.Errorf("%w: negative equilibration count %d", dynamo.ErrParameterBounds, r.NStart)
	}

	sc := storage.NewLineScanner(src)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, dynamo.ErrNoData
	}

	var kinetic, potential, endToEnd, gyration metrics.Moments
	summary := &dynamo.Summary{N: n}
	line, discarded := 1, 0

	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if discarded < r.NStart {
			discarded++
			continue
		}

		obs, err := storage.ParseObservables(text, n)
		if err != nil {
			r.Logger.Printf("line %d skipped: %v", line, err)
			summary.Skipped = append(summary.Skipped, line)
			continue
		}
		kinetic.Add(obs.Kinetic)
		potential.Add(obs.Potential)
		endToEnd.Add(obs.EndToEnd)
		gyration.Add(obs.Gyration)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if kinetic.Count() == 0 {
		return nil, fmt.Errorf("%w: %d frames discarded, %d skipped", dynamo.ErrNoData, discarded, len(summary.Skipped))
	}

	summary.Frames = kinetic.Count()
	summary.Kinetic = kinetic.Estimate()
	summary.Potential = potential.Estimate()
	summary.EndToEnd = endToEnd.Estimate()
	summary.Gyration = gyration.Estimate()
	return summary, nil
}

// ReduceFile reduces the trajectory at trajPath using N and the pulling force
// from the parameter record at paramPath, and writes the summary to outPath.
func (r *Reducer) ReduceFile(trajPath, paramPath, outPath string) (*dynamo.Summary, error) {
	params, err := storage.ReadParams(paramPath)
	if err != nil {
		return nil, fmt.Errorf("read parameters %s: %w", paramPath, err)
	}

	f, err := storage.OpenTrajectory(trajPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	summary, err := r.Reduce(f, params.Config.N)
	if err != nil {
		return nil, fmt.Errorf("reduce %s: %w", trajPath, err)
	}
	if params.Config.Anchored {
		summary.HasPull = true
		summary.PullForce = params.Config.PullForce
	}

	if err := storage.WriteSummary(outPath, summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	return summary, nil
}
