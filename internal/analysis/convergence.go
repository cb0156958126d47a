package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
	"gonum.org/v1/gonum/stat"
)

// RunFunc prices one parameter set with one seed.
type RunFunc func(ctx context.Context, p params.Set, seed int64) (mc, bs pricing.Estimate, err error)

// ConvergencePoint summarizes the repeated runs at one path count.
type ConvergencePoint struct {
	Simulations   int     `json:"simulations"`
	Runs          int     `json:"runs"`
	MedianCallPct float64 `json:"medianCallPct"`
	MedianPutPct  float64 `json:"medianPutPct"`
	MedianCallSE  float64 `json:"medianCallStdErr"`
	MedianPutSE   float64 `json:"medianPutStdErr"`
}

// Convergence runs base with each path count in sizes, runs times per
// size with seeds seed, seed+1, ..., and reports medians. Percentages that
// are not applicable are left out of the medians.
func Convergence(ctx context.Context, run RunFunc, base params.Set, sizes []int, seed int64, runs int) ([]ConvergencePoint, error) {
	if runs < 1 {
		return nil, fmt.Errorf("convergence: runs must be at least 1, got %d", runs)
	}

	points := make([]ConvergencePoint, 0, len(sizes))
	for _, n := range sizes {
		p := base
		p.Simulations = n
		if err := p.Validate(); err != nil {
			return nil, err
		}

		var callPct, putPct, callSE, putSE []float64
		for k := 0; k < runs; k++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			mc, bs, err := run(ctx, p, seed+int64(k))
			if err != nil {
				return nil, fmt.Errorf("convergence: n=%d run %d: %w", n, k, err)
			}
			rep := Compare(mc, bs)
			if rep.CallPct.Applicable {
				callPct = append(callPct, rep.CallPct.Value)
			}
			if rep.PutPct.Applicable {
				putPct = append(putPct, rep.PutPct.Value)
			}
			callSE = append(callSE, mc.CallStdErr)
			putSE = append(putSE, mc.PutStdErr)
		}

		points = append(points, ConvergencePoint{
			Simulations:   n,
			Runs:          runs,
			MedianCallPct: Median(callPct),
			MedianPutPct:  Median(putPct),
			MedianCallSE:  Median(callSE),
			MedianPutSE:   Median(putSE),
		})
	}

	return points, nil
}

// Median returns the median of x, or 0 for an empty slice. x is not modified.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	if len(sorted)%2 == 1 {
		return sorted[len(sorted)/2]
	}
	return stat.Mean(sorted[len(sorted)/2-1:len(sorted)/2+1], nil)
}
