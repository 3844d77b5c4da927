package entities

import "math"

// MaxYield returns the highest yield of p at f over every distribution and scenario
func (inst *Instance) MaxYield(p ProductID, f FacilityID) float64 {
	highest := 0.0
	for _, dist := range inst.products[p].Distributions {
		for _, scenario := range dist.Scenarios {
			highest = math.Max(highest, scenario.Yields[f])
		}
	}
	return highest
}

// MaxProduction returns the largest quantity of p any level allows at f
func (inst *Instance) MaxProduction(p ProductID, f FacilityID) float64 {
	highest := 0.0
	for _, level := range inst.products[p].Levels[f] {
		highest = math.Max(highest, level.Upper)
	}
	return math.Min(highest, inst.facilities[f].Capacity)
}

// MaxYieldInDistribution returns the highest yield of p at f over the scenarios of d
func (inst *Instance) MaxYieldInDistribution(p ProductID, f FacilityID, d DistributionID) float64 {
	highest := 0.0
	for _, scenario := range inst.products[p].Distributions[d].Scenarios {
		highest = math.Max(highest, scenario.Yields[f])
	}
	return highest
}

// MaxYieldAtFacility returns the highest yield of any product at f
func (inst *Instance) MaxYieldAtFacility(f FacilityID) float64 {
	highest := 0.0
	for p := range inst.products {
		highest = math.Max(highest, inst.MaxYield(ProductID(p), f))
	}
	return highest
}

// ExpectedYield returns the probability-weighted yield of p at f under d
func (inst *Instance) ExpectedYield(p ProductID, f FacilityID, d DistributionID) float64 {
	expected := 0.0
	for _, scenario := range inst.products[p].Distributions[d].Scenarios {
		expected += scenario.Probability * scenario.Yields[f]
	}
	return expected
}

// MaxExpectedYield returns the highest expected yield of p at f over its distributions
func (inst *Instance) MaxExpectedYield(p ProductID, f FacilityID) float64 {
	highest := 0.0
	for d := range inst.products[p].Distributions {
		highest = math.Max(highest, inst.ExpectedYield(p, f, DistributionID(d)))
	}
	return highest
}

// MaxDemand returns the highest demand of p over every distribution and scenario
func (inst *Instance) MaxDemand(p ProductID) float64 {
	highest := 0.0
	for d := range inst.products[p].Distributions {
		highest = math.Max(highest, inst.MaxDemandInDistribution(p, DistributionID(d)))
	}
	return highest
}

// MaxDemandInDistribution returns the highest demand of p over the scenarios of d
func (inst *Instance) MaxDemandInDistribution(p ProductID, d DistributionID) float64 {
	highest := 0.0
	for _, scenario := range inst.products[p].Distributions[d].Scenarios {
		highest = math.Max(highest, scenario.Demand)
	}
	return highest
}

// HighestSalesPrice returns the largest sales price over all products
func (inst *Instance) HighestSalesPrice() float64 {
	highest := math.Inf(-1)
	for _, product := range inst.products {
		highest = math.Max(highest, product.SalesPrice)
	}
	return highest
}
