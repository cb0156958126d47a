package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/optsim/internal/params"
)

const (
	DefaultWorkers = 0
	DefaultSamples = 50
)

type Config struct {
	Params  ParamsConfig `yaml:"params"`
	Seed    int64        `yaml:"seed"`
	Workers int          `yaml:"workers"`
	Samples int          `yaml:"samples"`
}

type ParamsConfig struct {
	Spot        float64 `yaml:"spot"`
	Strike      float64 `yaml:"strike"`
	Maturity    float64 `yaml:"maturity"`
	Volatility  float64 `yaml:"volatility"`
	Rate        float64 `yaml:"rate"`
	Simulations int     `yaml:"simulations"`
	Steps       int     `yaml:"steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Params:  FromParameterSet(params.Default()),
		Workers: DefaultWorkers,
		Samples: DefaultSamples,
	}
}

// Load reads a YAML file on top of the defaults, so a file only needs the
// fields it changes.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file on top of a copy of base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ParameterSet converts the file representation. It does not validate.
func (c *Config) ParameterSet() params.Set {
	return params.Set{
		Spot:        c.Params.Spot,
		Strike:      c.Params.Strike,
		Maturity:    c.Params.Maturity,
		Volatility:  c.Params.Volatility,
		Rate:        c.Params.Rate,
		Simulations: c.Params.Simulations,
		Steps:       c.Params.Steps,
	}
}

func FromParameterSet(p params.Set) ParamsConfig {
	return ParamsConfig{
		Spot:        p.Spot,
		Strike:      p.Strike,
		Maturity:    p.Maturity,
		Volatility:  p.Volatility,
		Rate:        p.Rate,
		Simulations: p.Simulations,
		Steps:       p.Steps,
	}
}
