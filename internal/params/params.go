// Package params defines the validated input of a pricing request.
//
// A [Set] is a plain value: copy it, pass it around, never mutate a Set
// that has already been handed to the pricing pipeline. Call [Set.Validate]
// before any computation; nothing downstream re-checks or clamps inputs.
package params

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultSpot        = 100.0
	DefaultStrike      = 105.0
	DefaultMaturity    = 1.0
	DefaultVolatility  = 0.2
	DefaultRate        = 0.05
	DefaultSimulations = 5000
	DefaultSteps       = 100
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("params: invalid parameter")

// ValidationError describes one violated invariant.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("params: %s = %g: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Set holds the inputs of one European option pricing request.
type Set struct {
	Spot        float64 `json:"spot"`
	Strike      float64 `json:"strike"`
	Maturity    float64 `json:"maturity"`
	Volatility  float64 `json:"volatility"`
	Rate        float64 `json:"rate"`
	Simulations int     `json:"simulations"`
	Steps       int     `json:"steps"`
}

func Default() Set {
	return Set{
		Spot:        DefaultSpot,
		Strike:      DefaultStrike,
		Maturity:    DefaultMaturity,
		Volatility:  DefaultVolatility,
		Rate:        DefaultRate,
		Simulations: DefaultSimulations,
		Steps:       DefaultSteps,
	}
}

// Validate reports every violated invariant at once. The returned error
// matches ErrInvalid and unwraps to one *ValidationError per field.
func (s Set) Validate() error {
	var errs []error

	positive := func(field string, v float64) {
		switch {
		case !finite(v):
			errs = append(errs, &ValidationError{Field: field, Value: v, Reason: "must be finite"})
		case v <= 0:
			errs = append(errs, &ValidationError{Field: field, Value: v, Reason: "must be positive"})
		}
	}

	positive("spot", s.Spot)
	positive("strike", s.Strike)
	positive("maturity", s.Maturity)

	switch {
	case !finite(s.Volatility):
		errs = append(errs, &ValidationError{Field: "volatility", Value: s.Volatility, Reason: "must be finite"})
	case s.Volatility < 0:
		errs = append(errs, &ValidationError{Field: "volatility", Value: s.Volatility, Reason: "must not be negative"})
	}

	if !finite(s.Rate) {
		errs = append(errs, &ValidationError{Field: "rate", Value: s.Rate, Reason: "must be finite"})
	}
	if s.Simulations < 1 {
		errs = append(errs, &ValidationError{Field: "simulations", Value: float64(s.Simulations), Reason: "must be at least 1"})
	}
	if s.Steps < 1 {
		errs = append(errs, &ValidationError{Field: "steps", Value: float64(s.Steps), Reason: "must be at least 1"})
	}

	return errors.Join(errs...)
}

// Dt is the length of one discretization step in years.
func (s Set) Dt() float64 { return s.Maturity / float64(s.Steps) }

// Discount is the present-value factor exp(-rT).
func (s Set) Discount() float64 { return math.Exp(-s.Rate * s.Maturity) }

// Forward is the strike discounted to today, K*exp(-rT).
func (s Set) Forward() float64 { return s.Strike * s.Discount() }

func (s Set) String() string {
	return fmt.Sprintf("S0=%.2f K=%.2f T=%.2f sigma=%.3f r=%.3f N=%d M=%d",
		s.Spot, s.Strike, s.Maturity, s.Volatility, s.Rate, s.Simulations, s.Steps)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
