package services

import (
	"fmt"
	"math"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

// ScenarioOutcome is the closed-form second stage of one scenario
type ScenarioOutcome struct {
	TotalProduction float64
	Sales           float64
	Oversupply      float64
	Profit          float64
}

// Evaluator computes second-stage outcomes for fixed production quantities
type Evaluator struct {
	instance *entities.Instance
}

// NewEvaluator creates an evaluator for an instance
func NewEvaluator(instance *entities.Instance) *Evaluator {
	return &Evaluator{instance: instance}
}

// Evaluate returns the outcome of scenario s of distribution d given the
// per-facility quantities of product p.
func (e *Evaluator) Evaluate(p entities.ProductID, d entities.DistributionID, s entities.ScenarioID, quantities []float64) ScenarioOutcome {
	inst := e.instance

	total := 0.0
	for f, x := range quantities {
		total += inst.Yield(p, d, entities.FacilityID(f), s) * x
	}

	demand := inst.Demand(p, d, s)
	sales := math.Min(total, demand)
	out := ScenarioOutcome{
		TotalProduction: total,
		Sales:           sales,
		Oversupply:      total - sales,
	}
	if demand >= total {
		out.Profit = inst.SalesPrice(p) * total
	} else {
		out.Profit = inst.SalesPrice(p)*demand + inst.LeftoverValue(p)*(total-demand)
	}
	return out
}

// ExpectedProfit returns the probability-weighted second-stage profit of p under d
func (e *Evaluator) ExpectedProfit(p entities.ProductID, d entities.DistributionID, quantities []float64) float64 {
	expected := 0.0
	for s := range e.instance.NumScenarios(p, d) {
		sid := entities.ScenarioID(s)
		expected += e.instance.Probability(p, d, sid) * e.Evaluate(p, d, sid, quantities).Profit
	}
	return expected
}

// PlanValue returns the first-stage cost and the expected second-stage profit
// of a plan, replaying for every product the distribution its levels enforce.
func (e *Evaluator) PlanValue(plan *entities.ProductionPlan) (cost, profit float64, err error) {
	inst := e.instance
	if plan.NumProducts() != inst.NumProducts() || plan.NumFacilities() != inst.NumFacilities() {
		return 0, 0, fmt.Errorf("plan is %dx%d, instance is %dx%d",
			plan.NumProducts(), plan.NumFacilities(), inst.NumProducts(), inst.NumFacilities())
	}

	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		for f := range inst.NumFacilities() {
			cost += inst.ManufacturingCost(entities.FacilityID(f), p) * plan.Quantity(p, entities.FacilityID(f))
		}
		d, err := inst.EnforcedDistribution(p, func(f entities.FacilityID, l entities.LevelID) bool {
			return plan.Level(p, f) == l
		})
		if err != nil {
			return 0, 0, err
		}
		profit += e.ExpectedProfit(p, d, plan.Quantities(p))
	}
	return cost, profit, nil
}
