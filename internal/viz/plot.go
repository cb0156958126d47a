package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/sim"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.DeepSkyBlue,
	asciigraph.Green,
	asciigraph.Gold,
	asciigraph.Violet,
	asciigraph.Orange,
	asciigraph.LightSeaGreen,
}

// PlotPaths draws up to limit sample paths with the strike as a red flat
// series. It returns an empty string when there is nothing to draw.
func PlotPaths(paths []sim.Path, strike float64, limit, width, height int, caption string) string {
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	if len(paths) == 0 || len(paths[0]) == 0 {
		return ""
	}

	data := make([][]float64, 0, len(paths)+1)
	colors := make([]asciigraph.AnsiColor, 0, len(paths)+1)
	for i, p := range paths {
		data = append(data, p)
		colors = append(colors, seriesColors[i%len(seriesColors)])
	}

	strikeLine := make([]float64, len(paths[0]))
	for i := range strikeLine {
		strikeLine[i] = strike
	}
	data = append(data, strikeLine)
	colors = append(colors, asciigraph.Red)

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	)
}

// PlotConvergence draws the median call and put percentage errors, one
// point per path count.
func PlotConvergence(points []analysis.ConvergencePoint, width, height int) string {
	if len(points) == 0 {
		return ""
	}

	call := make([]float64, len(points))
	put := make([]float64, len(points))
	for i, pt := range points {
		call[i] = pt.MedianCallPct
		put[i] = pt.MedianPutPct
	}

	caption := fmt.Sprintf("median %% error, N=%d..%d (call blue, put green)",
		points[0].Simulations, points[len(points)-1].Simulations)

	return asciigraph.PlotMany([][]float64{call, put},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.LowerBound(0),
		asciigraph.SeriesColors(asciigraph.DeepSkyBlue, asciigraph.Green),
		asciigraph.Caption(caption),
	)
}

// PlotSweep draws Monte Carlo and Black-Scholes call prices over a sweep of
// one parameter.
func PlotSweep(name string, values, mc, bs []float64, width, height int) string {
	if len(values) == 0 || len(mc) != len(values) || len(bs) != len(values) {
		return ""
	}

	caption := fmt.Sprintf("call price, %s=%g..%g (mc blue, bs red)", name, values[0], values[len(values)-1])
	return asciigraph.PlotMany([][]float64{mc, bs},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(asciigraph.DeepSkyBlue, asciigraph.Red),
		asciigraph.Caption(caption),
	)
}
