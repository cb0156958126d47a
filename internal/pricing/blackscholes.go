package pricing

import (
	"math"

	"github.com/san-kum/optsim/internal/params"
	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholes evaluates the closed-form European prices. When sigma*sqrt(T)
// is zero the formula degenerates and the deterministic limit
// max(S0 - K·e^{-rT}, 0) / max(K·e^{-rT} - S0, 0) is returned instead.
func BlackScholes(p params.Set) Estimate {
	call, put := intrinsic(p)

	volT := p.Volatility * math.Sqrt(p.Maturity)
	if volT > 0 {
		d1 := (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Volatility*p.Volatility)*p.Maturity) / volT
		d2 := d1 - volT

		fwd := p.Forward()
		c := p.Spot*phi(d1) - fwd*phi(d2)
		q := fwd*phi(-d2) - p.Spot*phi(-d1)
		if finite(c) && finite(q) {
			// cancellation can leave tiny negatives deep out of the money
			call, put = math.Max(c, 0), math.Max(q, 0)
		}
	}

	return Estimate{Source: SourceBlackScholes, Call: call, Put: put}
}

// Parity is the right-hand side of put-call parity, S0 - K·e^{-rT}.
func Parity(p params.Set) float64 {
	return p.Spot - p.Forward()
}

func intrinsic(p params.Set) (float64, float64) {
	fwd := p.Forward()
	return math.Max(p.Spot-fwd, 0), math.Max(fwd-p.Spot, 0)
}

func phi(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
