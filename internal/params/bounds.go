package params

// Range is the interactive adjustment range of one parameter.
type Range struct {
	Min, Max, Step float64
}

// Clamp limits v to the range. It is only used for interactive nudging;
// Validate never clamps.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Bounds are the adjustment ranges offered by the interactive panel.
var Bounds = map[string]Range{
	"spot":        {Min: 50, Max: 150, Step: 1},
	"strike":      {Min: 50, Max: 150, Step: 1},
	"maturity":    {Min: 0.5, Max: 3.0, Step: 0.05},
	"volatility":  {Min: 0.1, Max: 0.5, Step: 0.01},
	"rate":        {Min: 0, Max: 0.2, Step: 0.005},
	"simulations": {Min: 100, Max: 10000, Step: 100},
	"steps":       {Min: 10, Max: 500, Step: 10},
}

// Fields lists the parameter names in display order.
var Fields = []string{"spot", "strike", "maturity", "volatility", "rate", "simulations", "steps"}

// Get returns the named field as a float64.
func (s Set) Get(name string) (float64, bool) {
	switch name {
	case "spot":
		return s.Spot, true
	case "strike":
		return s.Strike, true
	case "maturity":
		return s.Maturity, true
	case "volatility":
		return s.Volatility, true
	case "rate":
		return s.Rate, true
	case "simulations":
		return float64(s.Simulations), true
	case "steps":
		return float64(s.Steps), true
	}
	return 0, false
}

// With returns a copy of s with the named field replaced.
func (s Set) With(name string, v float64) (Set, bool) {
	switch name {
	case "spot":
		s.Spot = v
	case "strike":
		s.Strike = v
	case "maturity":
		s.Maturity = v
	case "volatility":
		s.Volatility = v
	case "rate":
		s.Rate = v
	case "simulations":
		s.Simulations = int(v + 0.5)
	case "steps":
		s.Steps = int(v + 0.5)
	default:
		return s, false
	}
	return s, true
}
