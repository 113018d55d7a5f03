// Package aggregate collects per-run summaries of one spring constant into
// a single table: radius of gyration against N for scaling sweeps, or
// end-to-end distance against pulling force for pulling sweeps.
package aggregate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/storage"
)

type Row struct {
	Key    float64
	Mean   float64
	StdErr float64
}

type Table struct {
	Mode dynamo.Mode
	Rows []Row
}

// Build extracts one row per summary, in input order.
func Build(summaries []*dynamo.Summary, mode dynamo.Mode) (*Table, error) {
	t := &Table{Mode: mode, Rows: make([]Row, 0, len(summaries))}
	for i, s := range summaries {
		switch mode {
		case dynamo.ModeScaling:
			t.Rows = append(t.Rows, Row{Key: float64(s.N), Mean: s.Gyration.Mean, StdErr: s.Gyration.StdErr})
		case dynamo.ModePulling:
			if !s.HasPull {
				return nil, fmt.Errorf("%w: summary %d has no pulling force", dynamo.ErrParameterBounds, i)
			}
			t.Rows = append(t.Rows, Row{Key: s.PullForce, Mean: s.EndToEnd.Mean, StdErr: s.EndToEnd.StdErr})
		default:
			return nil, fmt.Errorf("unknown mode %v", mode)
		}
	}
	return t, nil
}

// Load reads the summaries at paths, preserving their order.
func Load(paths []string) ([]*dynamo.Summary, error) {
	out := make([]*dynamo.Summary, 0, len(paths))
	for _, p := range paths {
		s, err := storage.ReadSummary(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ScanDir lists the summary records of dir in directory order, leaving out
// the table itself.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == storage.TableName || !strings.HasSuffix(name, ".txt") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// WriteTo emits one "key mean stderr" line per row. Scaling keys are
// integers.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for _, r := range t.Rows {
		var n int
		var err error
		if t.Mode == dynamo.ModeScaling {
			n, err = fmt.Fprintf(bw, "%d %.6f %.6f\n", int(r.Key), r.Mean, r.StdErr)
		} else {
			n, err = fmt.Fprintf(bw, "%.6f %.6f %.6f\n", r.Key, r.Mean, r.StdErr)
		}
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// WriteFile writes the table to path.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := t.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Keys returns the first column.
func (t *Table) Keys() []float64 {
	keys := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		keys[i] = r.Key
	}
	return keys
}

// Means returns the second column.
func (t *Table) Means() []float64 {
	means := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		means[i] = r.Mean
	}
	return means
}

// ReadTable parses a table written by WriteTo.
func ReadTable(r io.Reader, mode dynamo.Mode) (*Table, error) {
	t := &Table{Mode: mode}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var row Row
		if _, err := fmt.Sscanf(text, "%g %g %g", &row.Key, &row.Mean, &row.StdErr); err != nil {
			return nil, fmt.Errorf("%w: table line %d: %v", dynamo.ErrMalformedLine, line, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, sc.Err()
}
