package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	randv2 "math/rand/v2"
	"testing"

	"github.com/san-kum/optsim/internal/params"
)

type countingSource struct {
	src   NormalSource
	draws int
}

func (c *countingSource) NormFloat64() float64 {
	c.draws++
	return c.src.NormFloat64()
}

type constSource float64

func (c constSource) NormFloat64() float64 { return float64(c) }

func testParams() params.Set {
	return params.Set{
		Spot:        100,
		Strike:      105,
		Maturity:    1,
		Volatility:  0.2,
		Rate:        0.05,
		Simulations: 200,
		Steps:       50,
	}
}

func TestSimulateShape(t *testing.T) {
	tests := []struct {
		name string
		n, m int
	}{
		{"single step", 10, 1},
		{"single path", 1, 25},
		{"default grid", 200, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			p.Simulations, p.Steps = tt.n, tt.m

			src := &countingSource{src: rand.New(rand.NewSource(7))}
			paths, err := Simulate(p, src)
			if err != nil {
				t.Fatalf("simulate failed: %v", err)
			}
			if len(paths) != tt.n {
				t.Fatalf("expected %d paths, got %d", tt.n, len(paths))
			}
			for i, path := range paths {
				if len(path) != tt.m+1 {
					t.Fatalf("path %d: expected length %d, got %d", i, tt.m+1, len(path))
				}
				if path[0] != p.Spot {
					t.Errorf("path %d: expected start %v, got %v", i, p.Spot, path[0])
				}
				if !path.IsValid() {
					t.Errorf("path %d contains a non-positive or non-finite price", i)
				}
			}
			if src.draws != tt.n*tt.m {
				t.Errorf("expected %d draws, got %d", tt.n*tt.m, src.draws)
			}
		})
	}
}

func TestSimulateZeroVolatility(t *testing.T) {
	p := testParams()
	p.Volatility = 0
	p.Simulations = 3
	p.Steps = 10

	paths, err := Simulate(p, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	dt := p.Dt()
	for _, path := range paths {
		for i, s := range path {
			want := p.Spot * math.Exp(p.Rate*dt*float64(i))
			if math.Abs(s-want) > 1e-9 {
				t.Fatalf("step %d: expected %v, got %v", i, want, s)
			}
		}
	}
}

func TestSimulateExactStep(t *testing.T) {
	p := testParams()
	p.Simulations, p.Steps = 1, 4

	paths, err := Simulate(p, constSource(0.5))
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	dt := p.Dt()
	growth := math.Exp((p.Rate-0.5*p.Volatility*p.Volatility)*dt + p.Volatility*math.Sqrt(dt)*0.5)
	want := p.Spot * math.Pow(growth, 4)
	if got := paths[0].Terminal(); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected terminal %v, got %v", want, got)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	p := testParams()

	a, err := Simulate(p, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Simulate(p, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("path %d step %d differs: %v vs %v", i, j, a[i][j], b[i][j])
			}
		}
	}
}

func TestSimulateInvalidParams(t *testing.T) {
	p := testParams()
	p.Strike = -5

	src := &countingSource{src: rand.New(rand.NewSource(1))}
	if _, err := Simulate(p, src); !errors.Is(err, params.ErrInvalid) {
		t.Fatalf("expected params.ErrInvalid, got %v", err)
	}
	if src.draws != 0 {
		t.Errorf("expected no draws before validation, got %d", src.draws)
	}
}

func TestSimulateNonFinite(t *testing.T) {
	p := testParams()
	p.Volatility = 200
	p.Simulations, p.Steps = 1, 1

	_, err := Simulate(p, constSource(0))
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	var se *StepError
	if !errors.As(err, &se) || se.Step != 1 {
		t.Errorf("expected StepError at step 1, got %v", err)
	}
}

func TestRunWorkerInvariance(t *testing.T) {
	p := testParams()
	p.Simulations = 3*ChunkSize + 17
	p.Steps = 12

	base, err := New(1, 50).Run(context.Background(), p, 99)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, workers := range []int{2, 4, 8} {
		got, err := New(workers, 50).Run(context.Background(), p, 99)
		if err != nil {
			t.Fatalf("run with %d workers failed: %v", workers, err)
		}
		for i := range base.Terminals {
			if base.Terminals[i] != got.Terminals[i] {
				t.Fatalf("workers=%d: terminal %d differs", workers, i)
			}
		}
		for i := range base.Samples {
			for j := range base.Samples[i] {
				if base.Samples[i][j] != got.Samples[i][j] {
					t.Fatalf("workers=%d: sample %d step %d differs", workers, i, j)
				}
			}
		}
	}
}

func TestRunSamples(t *testing.T) {
	p := testParams()

	res, err := New(4, 50).Run(context.Background(), p, 5)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Terminals) != p.Simulations {
		t.Errorf("expected %d terminals, got %d", p.Simulations, len(res.Terminals))
	}
	if len(res.Samples) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(res.Samples))
	}
	for i, path := range res.Samples {
		if len(path) != p.Steps+1 {
			t.Errorf("sample %d: expected length %d, got %d", i, p.Steps+1, len(path))
		}
		if path.Terminal() != res.Terminals[i] {
			t.Errorf("sample %d terminal does not match terminals[%d]", i, i)
		}
	}
	for i, s := range res.Terminals {
		if !validPrice(s) {
			t.Fatalf("terminal %d = %v is not a valid price", i, s)
		}
	}

	p.Simulations = 7
	res, err = New(4, 50).Run(context.Background(), p, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Samples) != 7 {
		t.Errorf("expected samples capped at N=7, got %d", len(res.Samples))
	}
}

func TestRunMatchesSimulateForFirstChunk(t *testing.T) {
	p := testParams()
	p.Simulations = 20

	res, err := New(1, 20).Run(context.Background(), p, 11)
	if err != nil {
		t.Fatal(err)
	}
	paths, err := Simulate(p, randv2.New(randv2.NewPCG(11, 0)))
	if err != nil {
		t.Fatal(err)
	}

	for i := range paths {
		if paths[i].Terminal() != res.Terminals[i] {
			t.Fatalf("path %d: Simulate and Run disagree", i)
		}
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := testParams()
	p.Simulations = 4 * ChunkSize
	if _, err := New(2, 0).Run(ctx, p, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// expiringCtx reports cancellation after its first live Err calls.
type expiringCtx struct {
	context.Context
	live int
}

func (c *expiringCtx) Err() error {
	if c.live > 0 {
		c.live--
		return nil
	}
	return context.Canceled
}

func TestRunCanceledMidChunk(t *testing.T) {
	p := testParams()
	p.Simulations = ChunkSize / 2

	ctx := &expiringCtx{Context: context.Background(), live: 10}
	if _, err := New(1, 0).Run(ctx, p, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunAdjacentSeedsDisjoint(t *testing.T) {
	p := testParams()
	p.Simulations = 2 * ChunkSize
	p.Steps = 10

	a, err := New(2, 0).Run(context.Background(), p, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(2, 0).Run(context.Background(), p, 43)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[float64]bool, len(a.Terminals))
	for _, v := range a.Terminals {
		seen[v] = true
	}
	shared := 0
	for _, v := range b.Terminals {
		if seen[v] {
			shared++
		}
	}
	if shared != 0 {
		t.Errorf("seeds 42 and 43 share %d terminal prices", shared)
	}
}

func TestPathTimes(t *testing.T) {
	path := Path{100, 101, 102, 103, 104}
	times := path.Times(2)
	want := []float64{0, 0.5, 1, 1.5, 2}
	for i := range want {
		if math.Abs(times[i]-want[i]) > 1e-12 {
			t.Errorf("times[%d] = %v, want %v", i, times[i], want[i])
		}
	}
}
