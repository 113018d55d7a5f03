package viz

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/polychain/internal/aggregate"
	"github.com/san-kum/polychain/internal/dynamo"
)

func styledTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Subtle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

func estimate(e dynamo.Estimate) string {
	return fmt.Sprintf("%.6f ± %.6f", e.Mean, e.StdErr)
}

// RenderSummary shows the reduced statistics of one trajectory.
func RenderSummary(s *dynamo.Summary) string {
	t := styledTable("observable", "mean ± se")
	t.Row("kinetic energy", estimate(s.Kinetic))
	t.Row("potential energy", estimate(s.Potential))
	t.Row("end-to-end", estimate(s.EndToEnd))
	t.Row("gyration radius", estimate(s.Gyration))

	head := Title.Render(fmt.Sprintf("N = %d", s.N))
	if s.HasPull {
		head += Subtle.Render(fmt.Sprintf("  F = %g", s.PullForce))
	}
	foot := MetricLabel.Render("frames ") + MetricValue.Render(strconv.Itoa(s.Frames))
	if len(s.Skipped) > 0 {
		foot += StatusFailed.Render(fmt.Sprintf("  %d lines skipped", len(s.Skipped)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, head, t.Render(), foot)
}

func columnNames(mode dynamo.Mode) (key, value string) {
	if mode == dynamo.ModePulling {
		return "F", "R_ee"
	}
	return "N", "R_g"
}

// RenderTable shows an aggregate table.
func RenderTable(t *aggregate.Table) string {
	key, value := columnNames(t.Mode)
	out := styledTable(key, value, "se")
	for _, r := range t.Rows {
		k := strconv.FormatFloat(r.Key, 'g', -1, 64)
		out.Row(k, fmt.Sprintf("%.6f", r.Mean), fmt.Sprintf("%.6f", r.StdErr))
	}
	return out.Render()
}

// PlotTable draws the mean column of t against row order.
func PlotTable(t *aggregate.Table, width, height int) string {
	if len(t.Rows) == 0 {
		return Subtle.Render("no data")
	}
	key, value := columnNames(t.Mode)
	return asciigraph.Plot(t.Means(),
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("%s by %s", value, key)))
}

// PlotSeries draws a time series such as an observable column.
func PlotSeries(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return Subtle.Render("no data")
	}
	return asciigraph.Plot(values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption))
}
