// Package analysis measures how far Monte Carlo estimates are from the
// Black-Scholes benchmark.
//
// The package provides:
//
//   - [Compare]: absolute, signed and percentage error per option type
//   - [Convergence]: median error over repeated runs for a range of path counts
//   - [Median]: order statistic used by the convergence study
//
// # Percentages
//
// A percentage error is only defined against a positive benchmark. When the
// closed-form price is zero the report carries [NotApplicable], which prints
// as "n/a" and encodes as JSON null:
//
//	rep := analysis.Compare(mc, bs)
//	if !rep.CallPct.Applicable {
//	    // deep out of the money call, use rep.CallAbs
//	}
package analysis
