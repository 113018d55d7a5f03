// Package viz renders simulation output for the terminal.
//
//   - [RenderSummary] and [RenderTable]: styled tables of reduced statistics
//   - [PlotTable] and [PlotSeries]: ASCII line charts
//   - [ChainView]: Braille projection of a chain conformation
package viz
