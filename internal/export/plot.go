// Package export renders aggregated tables as image files.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/polychain/internal/aggregate"
	"github.com/san-kum/polychain/internal/dynamo"
)

var (
	dataColor   = color.RGBA{R: 65, G: 105, B: 225, A: 255}
	theoryColor = color.RGBA{R: 220, G: 20, B: 60, A: 255}
)

// ErrFormat is returned for output paths whose extension has no encoder.
var ErrFormat = errors.New("unsupported image format")

type Options struct {
	Title string
	// Theory overlays the ideal chain reference curve.
	Theory    bool
	AnchoredN int
	LogLog    bool
	Width     vg.Length
	Height    vg.Length
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// TablePlot draws a table's means with standard-error bars.
func TablePlot(t *aggregate.Table, opts Options) (*plot.Plot, error) {
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", dynamo.ErrNoData)
	}

	pts := errorPoints{
		XYs:     make(plotter.XYs, len(t.Rows)),
		YErrors: make(plotter.YErrors, len(t.Rows)),
	}
	minX, maxX := t.Rows[0].Key, t.Rows[0].Key
	for i, r := range t.Rows {
		if opts.LogLog && (r.Key <= 0 || r.Mean-r.StdErr <= 0) {
			return nil, fmt.Errorf("log scale needs positive values, row %d has (%g, %g)", i, r.Key, r.Mean)
		}
		pts.XYs[i].X = r.Key
		pts.XYs[i].Y = r.Mean
		pts.YErrors[i].Low = r.StdErr
		pts.YErrors[i].High = r.StdErr
		minX = min(minX, r.Key)
		maxX = max(maxX, r.Key)
	}

	p := plot.New()
	p.Title.Text = opts.Title
	switch t.Mode {
	case dynamo.ModePulling:
		p.X.Label.Text = "pulling force"
		p.Y.Label.Text = "end-to-end distance"
	default:
		p.X.Label.Text = "N"
		p.Y.Label.Text = "radius of gyration"
	}
	if opts.LogLog {
		p.X.Scale = plot.LogScale{}
		p.Y.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	line, scatter, err := plotter.NewLinePoints(pts.XYs)
	if err != nil {
		return nil, err
	}
	line.Color = dataColor
	line.Width = vg.Points(1)
	scatter.Color = dataColor
	bars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, err
	}
	bars.Color = dataColor
	p.Add(line, scatter, bars)
	p.Legend.Add("simulation", scatter)

	if opts.Theory && maxX > minX {
		fn := plotter.NewFunction(aggregate.Theory(t.Mode, opts.AnchoredN))
		fn.XMin, fn.XMax = minX, maxX
		fn.Samples = 200
		fn.Color = theoryColor
		fn.Width = vg.Points(1.5)
		fn.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(fn)
		p.Legend.Add("theory", fn)
	}
	p.Legend.Top = true
	return p, nil
}

// SaveTable writes the table plot to path, in the format named by its
// extension (png, svg, pdf, eps, jpg, tif).
func SaveTable(t *aggregate.Table, path string, opts Options) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg", ".pdf", ".eps", ".jpg", ".jpeg", ".tif", ".tiff":
	default:
		return fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
	}
	p, err := TablePlot(t, opts)
	if err != nil {
		return err
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 6 * vg.Inch
	}
	if h <= 0 {
		h = 4 * vg.Inch
	}
	return p.Save(w, h, path)
}
