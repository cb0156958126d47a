// Package sim generates Geometric Brownian Motion price paths.
//
// Paths use the exact log-normal discretization
//
//	S[i+1] = S[i] * exp((r - sigma^2/2)*dt + sigma*sqrt(dt)*Z)
//
// which is unbiased for any dt and keeps prices positive.
//
// Randomness is always injected: [Simulate] takes a [NormalSource] and
// [Simulator.Run] derives one seeded stream per chunk of paths, so a run is
// reproducible from its seed alone.
package sim

import (
	"errors"
	"fmt"
	"math"
)

// NormalSource yields standard normal draws. *rand.Rand satisfies it.
type NormalSource interface {
	NormFloat64() float64
}

// ErrNonFinite indicates a simulated price left the positive finite range.
var ErrNonFinite = errors.New("sim: price is not positive and finite")

// StepError locates the step that produced an unusable price.
type StepError struct {
	Path  int
	Step  int
	Price float64
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sim: path %d step %d: price %g is not positive and finite", e.Path, e.Step, e.Price)
}

func (e *StepError) Unwrap() error { return ErrNonFinite }

// Path holds the M+1 prices of one simulated path, from t=0 to t=T.
// It is never modified after the simulator returns it.
type Path []float64

func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// Terminal returns the price at maturity.
func (p Path) Terminal() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// IsValid reports whether every price is positive and finite.
func (p Path) IsValid() bool {
	for _, v := range p {
		if !validPrice(v) {
			return false
		}
	}
	return true
}

// Times returns the time grid matching the path for a given maturity.
func (p Path) Times(maturity float64) []float64 {
	times := make([]float64, len(p))
	if len(p) < 2 {
		return times
	}
	dt := maturity / float64(len(p)-1)
	for i := range times {
		times[i] = float64(i) * dt
	}
	return times
}

// Result is the output of a pipeline simulation run.
type Result struct {
	// Terminals holds the terminal price of every simulated path, in path order.
	Terminals []float64
	// Samples holds the full first paths, at most the simulator's keep limit.
	Samples []Path
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
