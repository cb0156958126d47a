package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
)

func TestCompare(t *testing.T) {
	mc := pricing.Estimate{Source: pricing.SourceMonteCarlo, Call: 10.5, Put: 5}
	bs := pricing.Estimate{Source: pricing.SourceBlackScholes, Call: 10, Put: 5.5}

	r := Compare(mc, bs)

	if r.CallDiff != 0.5 || r.PutDiff != -0.5 {
		t.Errorf("diffs = (%v, %v), want (0.5, -0.5)", r.CallDiff, r.PutDiff)
	}
	if r.CallAbs != 0.5 || r.PutAbs != 0.5 {
		t.Errorf("abs = (%v, %v), want (0.5, 0.5)", r.CallAbs, r.PutAbs)
	}
	if !r.CallPct.Applicable || math.Abs(r.CallPct.Value-5) > 1e-12 {
		t.Errorf("call pct = %+v, want 5%%", r.CallPct)
	}
	if !r.PutPct.Applicable || math.Abs(r.PutPct.Value-100.0/11) > 1e-12 {
		t.Errorf("put pct = %+v", r.PutPct)
	}
}

func TestCompareZeroBenchmark(t *testing.T) {
	tests := []struct {
		name    string
		mc, bs  float64
		wantAbs float64
	}{
		{"both zero", 0, 0, 0},
		{"mc positive", 0.25, 0, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Compare(pricing.Estimate{Call: tt.mc, Put: tt.mc}, pricing.Estimate{Call: tt.bs, Put: tt.bs})
			if r.CallAbs != tt.wantAbs || r.PutAbs != tt.wantAbs {
				t.Errorf("abs = (%v, %v), want %v", r.CallAbs, r.PutAbs, tt.wantAbs)
			}
			if r.CallPct.Applicable || r.PutPct.Applicable {
				t.Errorf("pct should be not applicable: %+v", r)
			}
			if math.IsNaN(r.CallPct.Value) || math.IsInf(r.CallPct.Value, 0) {
				t.Errorf("pct value must not be NaN/Inf, got %v", r.CallPct.Value)
			}
			if r.CallPct.String() != "n/a" {
				t.Errorf("expected n/a, got %q", r.CallPct.String())
			}
		})
	}
}

func TestPercentJSON(t *testing.T) {
	r := Report{CallPct: Percent{Value: 1.5, Applicable: true}, PutPct: NotApplicable}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["putPct"] != nil {
		t.Errorf("expected null putPct, got %v", raw["putPct"])
	}
	if raw["callPct"] != 1.5 {
		t.Errorf("expected callPct 1.5, got %v", raw["callPct"])
	}

	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.CallPct != r.CallPct || back.PutPct != r.PutPct {
		t.Errorf("decoded %+v, want %+v", back, r)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{3}, 3},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		if got := Median(tt.in); got != tt.want {
			t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 {
		t.Error("Median modified its input")
	}
}

func TestConvergence(t *testing.T) {
	base := params.Default()
	bs := pricing.BlackScholes(base)

	// fake runner whose error shrinks like 1/sqrt(n)
	run := func(_ context.Context, p params.Set, seed int64) (pricing.Estimate, pricing.Estimate, error) {
		off := float64(seed%3+1) / math.Sqrt(float64(p.Simulations))
		mc := pricing.Estimate{Call: bs.Call + off, Put: bs.Put - off, CallStdErr: off, PutStdErr: off}
		return mc, bs, nil
	}

	points, err := Convergence(context.Background(), run, base, []int{100, 10000}, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[1].MedianCallPct >= points[0].MedianCallPct {
		t.Errorf("expected error to shrink: %+v", points)
	}
	if math.Abs(points[0].MedianCallSE-0.2) > 1e-12 {
		t.Errorf("median stderr = %v, want 0.2", points[0].MedianCallSE)
	}
}

func TestConvergenceErrors(t *testing.T) {
	failing := errors.New("boom")
	run := func(context.Context, params.Set, int64) (pricing.Estimate, pricing.Estimate, error) {
		return pricing.Estimate{}, pricing.Estimate{}, failing
	}

	if _, err := Convergence(context.Background(), run, params.Default(), []int{10}, 0, 1); !errors.Is(err, failing) {
		t.Errorf("expected wrapped runner error, got %v", err)
	}
	if _, err := Convergence(context.Background(), run, params.Default(), []int{0}, 0, 1); !errors.Is(err, params.ErrInvalid) {
		t.Errorf("expected params.ErrInvalid, got %v", err)
	}
	if _, err := Convergence(context.Background(), run, params.Default(), []int{10}, 0, 0); err == nil {
		t.Error("expected error for zero runs")
	}
}
