// Package viz renders pricing results for the terminal.
//
// Plots are drawn with asciigraph and styled with lipgloss:
//
//   - [PlotPaths]: sample price paths with the strike as a flat series
//   - [PlotConvergence]: median percentage error against path count
//   - [PlotSweep]: call prices across a one-parameter sweep
//   - [Theme]: color schemes shared by the CLI and the interactive panel
package viz
