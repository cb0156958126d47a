package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/san-kum/optsim/internal/params"
)

// gbm holds the per-step constants of one parameter set.
type gbm struct {
	drift float64
	vol   float64
}

func newGBM(p params.Set) gbm {
	dt := p.Dt()
	return gbm{
		drift: (p.Rate - 0.5*p.Volatility*p.Volatility) * dt,
		vol:   p.Volatility * math.Sqrt(dt),
	}
}

// walk advances one path through steps draws from src and returns its
// terminal price. When buf is non-nil it receives every price, buf[0]
// being s0.
func (g gbm) walk(idx int, s0 float64, steps int, src NormalSource, buf Path) (float64, error) {
	s := s0
	if buf != nil {
		buf[0] = s
	}
	for i := 0; i < steps; i++ {
		s *= math.Exp(g.drift + g.vol*src.NormFloat64())
		if !validPrice(s) {
			return 0, &StepError{Path: idx, Step: i + 1, Price: s}
		}
		if buf != nil {
			buf[i+1] = s
		}
	}
	return s, nil
}

// Simulate generates p.Simulations full paths, drawing p.Simulations*p.Steps
// normals from src in path-major order. Zero volatility still consumes the
// draws so the stream position does not depend on sigma.
func Simulate(p params.Set, src NormalSource) ([]Path, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := newGBM(p)
	paths := make([]Path, p.Simulations)
	for i := range paths {
		path := make(Path, p.Steps+1)
		if _, err := g.walk(i, p.Spot, p.Steps, src, path); err != nil {
			return nil, err
		}
		paths[i] = path
	}
	return paths, nil
}

// Simulator runs large path sets in parallel. It holds no state between
// runs; two runs with the same parameters and seed are bit-identical
// whatever the worker count.
type Simulator struct {
	workers int
	keep    int
}

// New returns a simulator using the given number of workers (NumCPU when
// workers < 1) that keeps the first keep paths in full.
func New(workers, keep int) *Simulator {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if keep < 0 {
		keep = 0
	}
	return &Simulator{workers: workers, keep: keep}
}

func (s *Simulator) Workers() int { return s.workers }

// Run simulates every path of p but only retains terminal prices, plus the
// first Keep paths in full. Chunk c of ChunkSize paths draws from its own
// PCG stream keyed on (seed, c), so no two (seed, chunk) pairs share draws.
func (s *Simulator) Run(ctx context.Context, p params.Set, seed int64) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	keep := min(s.keep, p.Simulations)
	result := &Result{
		Terminals: make([]float64, p.Simulations),
		Samples:   make([]Path, keep),
	}
	for i := range result.Samples {
		result.Samples[i] = make(Path, p.Steps+1)
	}

	g := newGBM(p)
	err := forEachChunk(ctx, p.Simulations, ChunkSize, s.workers, func(chunk, start, end int) error {
		src := rand.New(rand.NewPCG(uint64(seed), uint64(chunk)))
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf Path
			if i < keep {
				buf = result.Samples[i]
			}
			terminal, err := g.walk(i, p.Spot, p.Steps, src, buf)
			if err != nil {
				return err
			}
			result.Terminals[i] = terminal
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
