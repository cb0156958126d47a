package analysis

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/san-kum/optsim/internal/pricing"
)

// Percent is a percentage error that is only defined when the benchmark
// price is positive.
type Percent struct {
	Value      float64
	Applicable bool
}

// NotApplicable is the percentage reported against a zero benchmark.
var NotApplicable = Percent{}

func (p Percent) String() string {
	if !p.Applicable {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", p.Value)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Applicable {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NotApplicable
		return nil
	}
	if err := json.Unmarshal(data, &p.Value); err != nil {
		return err
	}
	p.Applicable = true
	return nil
}

// Report holds the discrepancy between two estimates. Diff fields keep the
// sign (mc - bs); Abs and Pct are magnitudes.
type Report struct {
	CallDiff float64 `json:"callDiff"`
	PutDiff  float64 `json:"putDiff"`
	CallAbs  float64 `json:"callAbs"`
	PutAbs   float64 `json:"putAbs"`
	CallPct  Percent `json:"callPct"`
	PutPct   Percent `json:"putPct"`
}

// Compare reports how far mc is from the benchmark bs.
func Compare(mc, bs pricing.Estimate) Report {
	r := Report{
		CallDiff: mc.Call - bs.Call,
		PutDiff:  mc.Put - bs.Put,
	}
	r.CallAbs = math.Abs(r.CallDiff)
	r.PutAbs = math.Abs(r.PutDiff)
	r.CallPct = percent(r.CallAbs, bs.Call)
	r.PutPct = percent(r.PutAbs, bs.Put)
	return r
}

func percent(abs, benchmark float64) Percent {
	if !(benchmark > 0) {
		return NotApplicable
	}
	v := abs / benchmark * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotApplicable
	}
	return Percent{Value: v, Applicable: true}
}
