// Package automation runs scripted batches of pricing requests: YAML
// scenarios and one-parameter sweeps.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/config"
	"github.com/san-kum/optsim/internal/experiment"
	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
)

// Scenario is a named sequence of pricing requests.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset (or the defaults) and overrides the
// fields named in Params, keyed as in params.Fields.
type ScenarioStep struct {
	Name    string             `yaml:"name"`
	Preset  string             `yaml:"preset"`
	Params  map[string]float64 `yaml:"params"`
	Seed    int64              `yaml:"seed"`
	Samples int                `yaml:"samples"`
	Save    bool               `yaml:"save"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// ParameterSet resolves the parameter set of a step. It does not validate.
func (s ScenarioStep) ParameterSet() (params.Set, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return params.Set{}, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}

	p := cfg.ParameterSet()
	for name, v := range s.Params {
		next, ok := p.With(name, v)
		if !ok {
			return params.Set{}, fmt.Errorf("unknown parameter: %s", name)
		}
		p = next
	}
	return p, nil
}

// SaveFunc persists a result and returns its run id.
type SaveFunc func(*experiment.Result) (string, error)

// StepResult pairs a scenario step with its outcome.
type StepResult struct {
	Step   ScenarioStep
	Result *experiment.Result
	RunID  string
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results completed so far. save may be nil.
func RunScenario(ctx context.Context, scenario *Scenario, workers int, save SaveFunc) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		slog.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "name", step.Name)

		p, err := step.ParameterSet()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		samples := step.Samples
		if samples == 0 {
			samples = -1
		}

		result, err := experiment.Price(ctx, experiment.Config{
			Params:      p,
			Seed:        step.Seed,
			Workers:     workers,
			SampleLimit: samples,
		})
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: step, Result: result}
		if step.Save && save != nil {
			sr.RunID, err = save(result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}

		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep prices Base at NumSteps evenly spaced values of one
// parameter, all with the same seed.
type ParameterSweep struct {
	Base      params.Set
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Seed      int64
	Workers   int
}

type SweepResult struct {
	ParamValue   float64
	MonteCarlo   pricing.Estimate
	BlackScholes pricing.Estimate
	Errors       analysis.Report
}

func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep: need at least 2 steps, got %d", sweep.NumSteps)
	}
	if _, ok := sweep.Base.Get(sweep.ParamName); !ok {
		return nil, fmt.Errorf("sweep: unknown parameter: %s", sweep.ParamName)
	}

	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	results := make([]SweepResult, 0, sweep.NumSteps)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep
		p, _ := sweep.Base.With(sweep.ParamName, paramVal)

		result, err := experiment.Price(ctx, experiment.Config{
			Params:      p,
			Seed:        sweep.Seed,
			Workers:     sweep.Workers,
			SampleLimit: -1,
		})
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", sweep.ParamName, paramVal, err)
		}

		results = append(results, SweepResult{
			ParamValue:   paramVal,
			MonteCarlo:   result.MonteCarlo,
			BlackScholes: result.BlackScholes,
			Errors:       result.Errors,
		})

		slog.Debug("sweep point", "param", sweep.ParamName, "value", paramVal, "step", i+1, "of", sweep.NumSteps)
	}

	return results, nil
}
