package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/optsim/internal/sim"
)

var palette = []string{"#00ccff", "#00ff88", "#ffcc00", "#ff00ff", "#ff8844", "#8888ff"}

// PathsToSVG draws the sample paths over [0, maturity] with the strike as a
// dashed horizontal line.
func PathsToSVG(paths []sim.Path, maturity, strike float64, width, height int) string {
	if len(paths) == 0 || len(paths[0]) < 2 || width <= 0 || height <= 0 {
		return ""
	}

	minY, maxY := strike, strike
	for _, p := range paths {
		for _, v := range p {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	if maturity <= 0 {
		maturity = 1
	}
	toY := func(v float64) float64 {
		return float64(height) - (v-minY)/rangeY*float64(height)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for i, p := range paths {
		times := p.Times(maturity)
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1" stroke-opacity="0.8" d="M`, palette[i%len(palette)]))
		for j, t := range times {
			x := t / maturity * float64(width)
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, toY(p[j])))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, toY(p[j])))
			}
		}
		sb.WriteString("\"/>\n")
	}

	ky := toY(strike)
	sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#ff4444" stroke-width="1.5" stroke-dasharray="6,4"/>
`, ky, width, ky))
	sb.WriteString(fmt.Sprintf(`<text x="4" y="%.1f" fill="#ff4444" font-family="monospace" font-size="12">K=%g</text>
`, ky-4, strike))

	sb.WriteString("</svg>")
	return sb.String()
}
