package entities

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// probabilityTolerance is the accepted distance of a distribution's probability mass from 1
var probabilityTolerance = decimal.New(1, -6)

// Level is a production level of a (facility, product) pair
type Level struct {
	Lower float64
	Upper float64
}

// Facility is a production site with a shared total capacity
type Facility struct {
	Name     string
	Capacity float64
}

// Scenario is a joint yield and demand realization of a distribution
type Scenario struct {
	Probability float64
	Demand      float64
	// Yields is indexed by facility
	Yields []float64
}

// Distribution is one combination of production levels, one per facility
type Distribution struct {
	Name string
	// Levels is indexed by facility
	Levels    []LevelID
	Scenarios []Scenario
}

// Product holds the per-product data of an instance. ManufacturingCosts and
// Levels are indexed by facility.
type Product struct {
	Name               string
	SalesPrice         float64
	LeftoverValue      float64
	ManufacturingCosts []float64
	Levels             [][]Level
	Distributions      []Distribution
}

// InstanceData is the raw, unvalidated input of an Instance
type InstanceData struct {
	Name       string
	Facilities []Facility
	Products   []Product
}

// Instance is the immutable problem data together with its derived bounds.
// Every accessor is safe for concurrent use.
type Instance struct {
	name       string
	facilities []Facility
	products   []Product

	// productionCeiling[p][d][s] bounds the realizable production of a scenario
	productionCeiling [][][]float64
	// expectationCeiling[p] bounds the expected second-stage profit of a product
	expectationCeiling []float64
	// disjunctionBound[p] is the Big-M of the optimality cuts of a product
	disjunctionBound []float64

	maxLevels        int
	maxDistributions int
	maxScenarios     int
}

// NewInstance validates data and builds an Instance. The input is deep-copied.
func NewInstance(data InstanceData) (*Instance, error) {
	if err := validateInstanceData(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstance, err)
	}

	inst := &Instance{
		name:       data.Name,
		facilities: append([]Facility(nil), data.Facilities...),
		products:   make([]Product, len(data.Products)),
	}
	for p, product := range data.Products {
		inst.products[p] = copyProduct(product)
	}

	inst.computeDerivedBounds()
	return inst, nil
}

func copyProduct(src Product) Product {
	dst := src
	dst.ManufacturingCosts = append([]float64(nil), src.ManufacturingCosts...)
	dst.Levels = make([][]Level, len(src.Levels))
	for f, levels := range src.Levels {
		dst.Levels[f] = append([]Level(nil), levels...)
	}
	dst.Distributions = make([]Distribution, len(src.Distributions))
	for d, dist := range src.Distributions {
		dst.Distributions[d] = Distribution{
			Name:      dist.Name,
			Levels:    append([]LevelID(nil), dist.Levels...),
			Scenarios: make([]Scenario, len(dist.Scenarios)),
		}
		for s, scenario := range dist.Scenarios {
			scenario.Yields = append([]float64(nil), scenario.Yields...)
			dst.Distributions[d].Scenarios[s] = scenario
		}
	}
	return dst
}

func validateInstanceData(data InstanceData) error {
	nFacilities := len(data.Facilities)
	if nFacilities == 0 {
		return fmt.Errorf("instance must have at least one facility")
	}
	if len(data.Products) == 0 {
		return fmt.Errorf("instance must have at least one product")
	}

	for f, facility := range data.Facilities {
		if facility.Capacity < 0 {
			return fmt.Errorf("facility %s capacity cannot be negative, got %g", FacilityID(f), facility.Capacity)
		}
	}

	for i, product := range data.Products {
		p := ProductID(i)
		if product.SalesPrice < 0 {
			return fmt.Errorf("product %s sales price cannot be negative, got %g", p, product.SalesPrice)
		}
		if product.LeftoverValue > product.SalesPrice {
			return fmt.Errorf("product %s leftover value %g exceeds sales price %g", p, product.LeftoverValue, product.SalesPrice)
		}
		if len(product.ManufacturingCosts) != nFacilities {
			return fmt.Errorf("product %s has %d manufacturing costs, want %d", p, len(product.ManufacturingCosts), nFacilities)
		}
		if len(product.Levels) != nFacilities {
			return fmt.Errorf("product %s has levels for %d facilities, want %d", p, len(product.Levels), nFacilities)
		}

		combinations := 1
		for j, levels := range product.Levels {
			f := FacilityID(j)
			if len(levels) == 0 {
				return fmt.Errorf("product %s has no production levels at facility %s", p, f)
			}
			for k, level := range levels {
				if level.Lower < 0 {
					return fmt.Errorf("level %s of product %s at facility %s has negative lower bound %g", LevelID(k), p, f, level.Lower)
				}
				if level.Upper < level.Lower {
					return fmt.Errorf("level %s of product %s at facility %s has upper bound %g below lower bound %g",
						LevelID(k), p, f, level.Upper, level.Lower)
				}
			}
			combinations *= len(levels)
		}

		if len(product.Distributions) != combinations {
			return fmt.Errorf("product %s has %d distributions, want one per level combination (%d)", p, len(product.Distributions), combinations)
		}

		seen := make(map[string]DistributionID, len(product.Distributions))
		for k, dist := range product.Distributions {
			d := DistributionID(k)
			if err := validateDistribution(product, dist, nFacilities); err != nil {
				return fmt.Errorf("product %s distribution %s: %w", p, d, err)
			}
			key := fmt.Sprint(dist.Levels)
			if other, exists := seen[key]; exists {
				return fmt.Errorf("product %s distributions %s and %s share level combination %s", p, other, d, key)
			}
			seen[key] = d
		}
	}

	return nil
}

func validateDistribution(product Product, dist Distribution, nFacilities int) error {
	if len(dist.Levels) != nFacilities {
		return fmt.Errorf("has %d facility levels, want %d", len(dist.Levels), nFacilities)
	}
	for f, level := range dist.Levels {
		if level < 0 || int(level) >= len(product.Levels[f]) {
			return fmt.Errorf("level %s at facility %s is out of range", level, FacilityID(f))
		}
	}
	if len(dist.Scenarios) == 0 {
		return fmt.Errorf("has no scenarios")
	}

	total := decimal.Zero
	for s, scenario := range dist.Scenarios {
		if scenario.Probability < 0 || scenario.Probability > 1 {
			return fmt.Errorf("scenario %s probability must be in [0, 1], got %g", ScenarioID(s), scenario.Probability)
		}
		if scenario.Demand < 0 {
			return fmt.Errorf("scenario %s demand cannot be negative, got %g", ScenarioID(s), scenario.Demand)
		}
		if len(scenario.Yields) != nFacilities {
			return fmt.Errorf("scenario %s has %d yields, want %d", ScenarioID(s), len(scenario.Yields), nFacilities)
		}
		for f, yield := range scenario.Yields {
			if yield < 0 {
				return fmt.Errorf("scenario %s yield at facility %s cannot be negative, got %g", ScenarioID(s), FacilityID(f), yield)
			}
		}
		total = total.Add(decimal.NewFromFloat(scenario.Probability))
	}
	if total.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(probabilityTolerance) {
		return fmt.Errorf("scenario probabilities sum to %s, want 1", total.String())
	}
	return nil
}

// computeDerivedBounds fills the production and expected-profit ceilings
func (inst *Instance) computeDerivedBounds() {
	inst.productionCeiling = make([][][]float64, len(inst.products))
	inst.expectationCeiling = make([]float64, len(inst.products))
	inst.disjunctionBound = make([]float64, len(inst.products))

	for f := range inst.facilities {
		for p := range inst.products {
			inst.maxLevels = max(inst.maxLevels, len(inst.products[p].Levels[f]))
		}
	}

	for p, product := range inst.products {
		inst.maxDistributions = max(inst.maxDistributions, len(product.Distributions))
		inst.productionCeiling[p] = make([][]float64, len(product.Distributions))
		best := math.Inf(-1)

		for d, dist := range product.Distributions {
			inst.maxScenarios = max(inst.maxScenarios, len(dist.Scenarios))
			ceilings := make([]float64, len(dist.Scenarios))
			expected := 0.0

			for s, scenario := range dist.Scenarios {
				for f, facility := range inst.facilities {
					upper := math.Min(product.Levels[f][dist.Levels[f]].Upper, facility.Capacity)
					ceilings[s] += scenario.Yields[f] * upper
				}
				expected += scenario.Probability * newsvendorCeiling(product, ceilings[s], scenario.Demand)
			}

			inst.productionCeiling[p][d] = ceilings
			best = math.Max(best, expected)
		}
		inst.expectationCeiling[p] = best

		// a linearization falls below zero only through the disposal cost of
		// the largest quantity the master can produce
		disposal := 0.0
		for f := range inst.facilities {
			disposal += inst.MaxYield(ProductID(p), FacilityID(f)) * inst.MaxProduction(ProductID(p), FacilityID(f))
		}
		inst.disjunctionBound[p] = best + math.Max(0, -product.LeftoverValue)*disposal
	}
}

// newsvendorCeiling bounds the profit of any production in [0, ceiling].
// A negative leftover value is never worth incurring, so only a positive one
// contributes on the oversupply side.
func newsvendorCeiling(product Product, ceiling, demand float64) float64 {
	return product.SalesPrice*math.Min(ceiling, demand) +
		math.Max(0, product.LeftoverValue)*math.Max(0, ceiling-demand)
}

// Name returns the instance name
func (inst *Instance) Name() string { return inst.name }

// NumFacilities returns |F|
func (inst *Instance) NumFacilities() int { return len(inst.facilities) }

// NumProducts returns |P|
func (inst *Instance) NumProducts() int { return len(inst.products) }

// FacilityName returns the display name of a facility, falling back to its ID
func (inst *Instance) FacilityName(f FacilityID) string {
	if name := inst.facilities[f].Name; name != "" {
		return name
	}
	return f.String()
}

// ProductName returns the display name of a product, falling back to its ID
func (inst *Instance) ProductName(p ProductID) string {
	if name := inst.products[p].Name; name != "" {
		return name
	}
	return p.String()
}

// Capacity returns the total capacity of a facility
func (inst *Instance) Capacity(f FacilityID) float64 { return inst.facilities[f].Capacity }

// ManufacturingCost returns the unit cost of producing p at f
func (inst *Instance) ManufacturingCost(f FacilityID, p ProductID) float64 {
	return inst.products[p].ManufacturingCosts[f]
}

// SalesPrice returns the unit sales price of a product
func (inst *Instance) SalesPrice(p ProductID) float64 { return inst.products[p].SalesPrice }

// LeftoverValue returns the unit value of unsold output; negative for a disposal cost
func (inst *Instance) LeftoverValue(p ProductID) float64 { return inst.products[p].LeftoverValue }

// NumLevels returns the number of production levels of p at f
func (inst *Instance) NumLevels(f FacilityID, p ProductID) int { return len(inst.products[p].Levels[f]) }

// LevelLowerBound returns the minimum production quantity of a level
func (inst *Instance) LevelLowerBound(f FacilityID, p ProductID, l LevelID) float64 {
	return inst.products[p].Levels[f][l].Lower
}

// LevelUpperBound returns the maximum production quantity of a level
func (inst *Instance) LevelUpperBound(f FacilityID, p ProductID, l LevelID) float64 {
	return inst.products[p].Levels[f][l].Upper
}

// NumDistributions returns the number of level combinations of a product
func (inst *Instance) NumDistributions(p ProductID) int { return len(inst.products[p].Distributions) }

// DistributionName returns the display name of a distribution, falling back to its ID
func (inst *Instance) DistributionName(p ProductID, d DistributionID) string {
	if name := inst.products[p].Distributions[d].Name; name != "" {
		return name
	}
	return d.String()
}

// DistributionLevel returns the level distribution d requires at facility f
func (inst *Instance) DistributionLevel(p ProductID, d DistributionID, f FacilityID) LevelID {
	return inst.products[p].Distributions[d].Levels[f]
}

// NumScenarios returns the number of scenarios of a distribution
func (inst *Instance) NumScenarios(p ProductID, d DistributionID) int {
	return len(inst.products[p].Distributions[d].Scenarios)
}

// Probability returns the joint probability of a scenario
func (inst *Instance) Probability(p ProductID, d DistributionID, s ScenarioID) float64 {
	return inst.products[p].Distributions[d].Scenarios[s].Probability
}

// Demand returns the demand realization of a scenario
func (inst *Instance) Demand(p ProductID, d DistributionID, s ScenarioID) float64 {
	return inst.products[p].Distributions[d].Scenarios[s].Demand
}

// Yield returns the yield realization of a scenario at facility f
func (inst *Instance) Yield(p ProductID, d DistributionID, f FacilityID, s ScenarioID) float64 {
	return inst.products[p].Distributions[d].Scenarios[s].Yields[f]
}

// MaxLevels returns the largest level count over all (facility, product) pairs
func (inst *Instance) MaxLevels() int { return inst.maxLevels }

// MaxDistributions returns the largest distribution count over all products
func (inst *Instance) MaxDistributions() int { return inst.maxDistributions }

// MaxScenarios returns the largest scenario count over all distributions
func (inst *Instance) MaxScenarios() int { return inst.maxScenarios }

// ProductionCeiling bounds the realizable production of scenario s
func (inst *Instance) ProductionCeiling(p ProductID, d DistributionID, s ScenarioID) float64 {
	return inst.productionCeiling[p][d][s]
}

// ExpectationCeiling bounds the expected second-stage profit of a product over
// every distribution.
func (inst *Instance) ExpectationCeiling(p ProductID) float64 { return inst.expectationCeiling[p] }

// DisjunctionBound is the Big-M of the optimality cuts of p. It covers phi up
// to ExpectationCeiling plus the lowest value any profit linearization takes
// over the master's quantity range. The two coincide unless the leftover
// value is negative.
func (inst *Instance) DisjunctionBound(p ProductID) float64 { return inst.disjunctionBound[p] }

// EnforcedDistribution returns the unique distribution whose levels are all
// active according to active.
func (inst *Instance) EnforcedDistribution(p ProductID, active func(f FacilityID, l LevelID) bool) (DistributionID, error) {
	found := DistributionID(-1)
	for k, dist := range inst.products[p].Distributions {
		matches := true
		for f, level := range dist.Levels {
			if !active(FacilityID(f), level) {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}
		if found >= 0 {
			return -1, fmt.Errorf("%w: product %s matches %s and %s", ErrAmbiguousDistribution, p, found, DistributionID(k))
		}
		found = DistributionID(k)
	}
	if found < 0 {
		return -1, fmt.Errorf("%w: product %s", ErrNoEnforcedDistribution, p)
	}
	return found, nil
}
