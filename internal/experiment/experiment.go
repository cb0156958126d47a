package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/metrics"
	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
	"github.com/san-kum/optsim/internal/sim"
)

// MaxSamplePaths caps the paths returned for display.
const MaxSamplePaths = 50

// Config describes one pricing request.
type Config struct {
	Params params.Set
	// Seed fully determines the random draws of a run.
	Seed int64
	// Workers bounds the simulation goroutines; NumCPU when < 1.
	Workers int
	// SampleLimit is the number of full paths kept for display, capped at
	// MaxSamplePaths. Zero means MaxSamplePaths; negative keeps none.
	SampleLimit int
}

func (c Config) sampleLimit() int {
	switch {
	case c.SampleLimit == 0:
		return MaxSamplePaths
	case c.SampleLimit < 0:
		return 0
	default:
		return min(c.SampleLimit, MaxSamplePaths)
	}
}

// Result is the output bundle of one pricing request.
type Result struct {
	Params       params.Set       `json:"params"`
	Seed         int64            `json:"seed"`
	MonteCarlo   pricing.Estimate `json:"monteCarlo"`
	BlackScholes pricing.Estimate `json:"blackScholes"`
	Errors       analysis.Report  `json:"errors"`
	// Samples is a subset of the simulated paths; the estimate always uses
	// all TotalPaths of them.
	Samples    []sim.Path    `json:"samples"`
	TotalPaths int           `json:"totalPaths"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Experiment prices one Config with a reusable simulator.
type Experiment struct {
	cfg       Config
	simulator *sim.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{
		cfg:       cfg,
		simulator: sim.New(cfg.Workers, cfg.sampleLimit()),
	}
}

func (e *Experiment) Config() Config { return e.cfg }

// Run validates the parameters, simulates every path and compares the
// Monte Carlo estimate against the closed form. Invalid parameters are
// rejected before any path is drawn.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	p := e.cfg.Params
	if err := p.Validate(); err != nil {
		metrics.RunsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := time.Now()

	simResult, err := e.simulator.Run(ctx, p, e.cfg.Seed)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("simulate: %w", err)
	}

	mc, err := pricing.MonteCarloTerminals(simResult.Terminals, p)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("monte carlo: %w", err)
	}
	bs := pricing.BlackScholes(p)

	result := &Result{
		Params:       p,
		Seed:         e.cfg.Seed,
		MonteCarlo:   mc,
		BlackScholes: bs,
		Errors:       analysis.Compare(mc, bs),
		Samples:      simResult.Samples,
		TotalPaths:   len(simResult.Terminals),
		Elapsed:      time.Since(start),
	}

	metrics.RunsTotal.WithLabelValues("ok").Inc()
	metrics.RunDuration.Observe(result.Elapsed.Seconds())
	metrics.PathsSimulated.Add(float64(result.TotalPaths))

	slog.Debug("pricing run complete",
		"n", p.Simulations,
		"m", p.Steps,
		"seed", e.cfg.Seed,
		"workers", e.simulator.Workers(),
		"elapsed", result.Elapsed)

	return result, nil
}

// Price runs a single request; it is a convenience for one-shot callers.
func Price(ctx context.Context, cfg Config) (*Result, error) {
	return New(cfg).Run(ctx)
}

// Runner adapts the pipeline to analysis.RunFunc for convergence studies.
func Runner(workers int) analysis.RunFunc {
	return func(ctx context.Context, p params.Set, seed int64) (pricing.Estimate, pricing.Estimate, error) {
		res, err := New(Config{Params: p, Seed: seed, Workers: workers, SampleLimit: -1}).Run(ctx)
		if err != nil {
			return pricing.Estimate{}, pricing.Estimate{}, err
		}
		return res.MonteCarlo, res.BlackScholes, nil
	}
}
