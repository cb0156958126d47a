// Package pricing estimates European call and put prices.
//
// [MonteCarlo] averages discounted payoffs over simulated paths and
// [BlackScholes] evaluates the closed form. Both return an [Estimate]
// tagged with its source so the two can be compared side by side.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoPaths indicates a Monte Carlo estimate was requested over zero paths.
var ErrNoPaths = errors.New("pricing: no paths to average")

// Source names the method that produced an estimate.
type Source string

const (
	SourceMonteCarlo   Source = "monteCarlo"
	SourceBlackScholes Source = "blackScholes"
)

// Z95 is the two-sided 95% standard normal quantile.
const Z95 = 1.959963984540054

// Estimate is a call/put price pair. Closed-form estimates carry zero
// standard errors.
type Estimate struct {
	Source     Source  `json:"source"`
	Call       float64 `json:"call"`
	Put        float64 `json:"put"`
	CallStdErr float64 `json:"callStdErr,omitempty"`
	PutStdErr  float64 `json:"putStdErr,omitempty"`
	Paths      int     `json:"paths,omitempty"`
}

// Interval is a price confidence interval.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (i Interval) Contains(v float64) bool { return v >= i.Low && v <= i.High }

func (i Interval) String() string { return fmt.Sprintf("[%.4f, %.4f]", i.Low, i.High) }

// CallInterval returns Call ± z·CallStdErr with the lower bound floored at zero.
func (e Estimate) CallInterval(z float64) Interval { return interval(e.Call, e.CallStdErr, z) }

// PutInterval returns Put ± z·PutStdErr with the lower bound floored at zero.
func (e Estimate) PutInterval(z float64) Interval { return interval(e.Put, e.PutStdErr, z) }

func interval(price, stderr, z float64) Interval {
	return Interval{
		Low:  math.Max(price-z*stderr, 0),
		High: price + z*stderr,
	}
}
