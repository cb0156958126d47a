package config

import "sort"

var Presets = map[string]*Config{
	"default": {
		Params:  ParamsConfig{Spot: 100, Strike: 105, Maturity: 1, Volatility: 0.2, Rate: 0.05, Simulations: 5000, Steps: 100},
		Samples: DefaultSamples,
	},
	"atm": {
		Params:  ParamsConfig{Spot: 100, Strike: 100, Maturity: 1, Volatility: 0.2, Rate: 0.05, Simulations: 10000, Steps: 100},
		Samples: DefaultSamples,
	},
	"itm": {
		Params:  ParamsConfig{Spot: 120, Strike: 100, Maturity: 1, Volatility: 0.2, Rate: 0.05, Simulations: 10000, Steps: 100},
		Samples: DefaultSamples,
	},
	"otm": {
		Params:  ParamsConfig{Spot: 80, Strike: 100, Maturity: 1, Volatility: 0.2, Rate: 0.05, Simulations: 10000, Steps: 100},
		Samples: DefaultSamples,
	},
	"deterministic": {
		Params:  ParamsConfig{Spot: 100, Strike: 90, Maturity: 1, Volatility: 0, Rate: 0.05, Simulations: 100, Steps: 10},
		Samples: 10,
	},
	"long": {
		Params:  ParamsConfig{Spot: 100, Strike: 100, Maturity: 3, Volatility: 0.2, Rate: 0.05, Simulations: 10000, Steps: 500},
		Samples: DefaultSamples,
	},
	"high-vol": {
		Params:  ParamsConfig{Spot: 100, Strike: 100, Maturity: 1, Volatility: 0.5, Rate: 0.05, Simulations: 10000, Steps: 100},
		Samples: DefaultSamples,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
