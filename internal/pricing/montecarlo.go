package pricing

import (
	"math"

	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/sim"
	"gonum.org/v1/gonum/stat"
)

// MonteCarlo prices both options from the terminal price of every path.
func MonteCarlo(paths []sim.Path, p params.Set) (Estimate, error) {
	terminals := make([]float64, len(paths))
	for i, path := range paths {
		terminals[i] = path.Terminal()
	}
	return MonteCarloTerminals(terminals, p)
}

// MonteCarloTerminals prices both options as exp(-rT) times the mean payoff
// over terminals. Payoffs are summed in slice order, so the result is
// reproducible for a given terminal sequence.
func MonteCarloTerminals(terminals []float64, p params.Set) (Estimate, error) {
	n := len(terminals)
	if n == 0 {
		return Estimate{}, ErrNoPaths
	}

	calls := make([]float64, n)
	puts := make([]float64, n)
	for i, s := range terminals {
		calls[i] = math.Max(s-p.Strike, 0)
		puts[i] = math.Max(p.Strike-s, 0)
	}

	disc := p.Discount()
	callMean, callSE := meanStdErr(calls)
	putMean, putSE := meanStdErr(puts)

	return Estimate{
		Source:     SourceMonteCarlo,
		Call:       disc * callMean,
		Put:        disc * putMean,
		CallStdErr: disc * callSE,
		PutStdErr:  disc * putSE,
		Paths:      n,
	}, nil
}

func meanStdErr(x []float64) (float64, float64) {
	if len(x) == 1 {
		return x[0], 0
	}
	mean, std := stat.MeanStdDev(x, nil)
	return mean, std / math.Sqrt(float64(len(x)))
}
