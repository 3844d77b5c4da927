package entities

import "fmt"

// EVMode selects which random parameters are replaced by their expectation
type EVMode int

const (
	EVDemand EVMode = iota
	EVYield
	EVAll
)

func (m EVMode) String() string {
	switch m {
	case EVDemand:
		return "demand"
	case EVYield:
		return "yield"
	case EVAll:
		return "all"
	default:
		return fmt.Sprintf("EVMode(%d)", int(m))
	}
}

// ParseEVMode parses demand, yield or all
func ParseEVMode(s string) (EVMode, error) {
	switch s {
	case "demand", "d":
		return EVDemand, nil
	case "yield", "y":
		return EVYield, nil
	case "all":
		return EVAll, nil
	}
	return 0, fmt.Errorf("unknown expected-value mode %q (want demand, yield or all)", s)
}

// ExpectedValueInstance returns a copy of inst where, within every
// distribution, the parameters selected by mode are replaced by their
// expectation under that distribution. Scenarios that become identical are
// merged and their probabilities summed.
func (inst *Instance) ExpectedValueInstance(mode EVMode) (*Instance, error) {
	data := InstanceData{
		Name:       fmt.Sprintf("%s-ev-%s", inst.name, mode),
		Facilities: inst.facilities,
		Products:   make([]Product, len(inst.products)),
	}

	for p, product := range inst.products {
		ev := copyProduct(product)
		for d := range ev.Distributions {
			ev.Distributions[d].Scenarios = expectScenarios(ev.Distributions[d].Scenarios, mode)
		}
		data.Products[p] = ev
	}
	return NewInstance(data)
}

func expectScenarios(scenarios []Scenario, mode EVMode) []Scenario {
	demand := 0.0
	yields := make([]float64, len(scenarios[0].Yields))
	for _, s := range scenarios {
		demand += s.Probability * s.Demand
		for f, y := range s.Yields {
			yields[f] += s.Probability * y
		}
	}

	merged := make([]Scenario, 0, len(scenarios))
	index := make(map[string]int, len(scenarios))
	for _, s := range scenarios {
		if mode == EVDemand || mode == EVAll {
			s.Demand = demand
		}
		if mode == EVYield || mode == EVAll {
			s.Yields = append([]float64(nil), yields...)
		}
		key := fmt.Sprint(s.Demand, s.Yields)
		if i, ok := index[key]; ok {
			merged[i].Probability += s.Probability
			continue
		}
		index[key] = len(merged)
		merged = append(merged, s)
	}
	return merged
}
