package services

import (
	"fmt"
	"math"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

// planTolerance absorbs solver round-off when checking plan bounds
const planTolerance = 1e-6

// PlanValidator checks first-stage plans against the master constraints
type PlanValidator struct {
	instance *entities.Instance
}

// NewPlanValidator creates a plan validator for an instance
func NewPlanValidator(instance *entities.Instance) *PlanValidator {
	return &PlanValidator{instance: instance}
}

// ValidationResult contains the results of plan validation
type ValidationResult struct {
	// EnforcedDistributions is indexed by product; -1 where none is enforced
	EnforcedDistributions []entities.DistributionID
	Errors                []string
}

// Valid reports whether the plan passed every check
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// ValidatePlan checks level selection, level bounds and facility capacity,
// and resolves the distribution each product's levels enforce.
func (v *PlanValidator) ValidatePlan(plan *entities.ProductionPlan) *ValidationResult {
	inst := v.instance
	result := &ValidationResult{
		EnforcedDistributions: make([]entities.DistributionID, inst.NumProducts()),
		Errors:                make([]string, 0),
	}

	if plan.NumProducts() != inst.NumProducts() || plan.NumFacilities() != inst.NumFacilities() {
		result.Errors = append(result.Errors, fmt.Sprintf("plan is %dx%d, instance is %dx%d",
			plan.NumProducts(), plan.NumFacilities(), inst.NumProducts(), inst.NumFacilities()))
		for p := range result.EnforcedDistributions {
			result.EnforcedDistributions[p] = -1
		}
		return result
	}

	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			result.Errors = append(result.Errors, v.checkLevel(plan, p, f)...)
		}

		d, err := inst.EnforcedDistribution(p, func(f entities.FacilityID, l entities.LevelID) bool {
			return plan.Level(p, f) == l
		})
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			d = -1
		}
		result.EnforcedDistributions[p] = d
	}

	for j := range inst.NumFacilities() {
		f := entities.FacilityID(j)
		load := 0.0
		for i := range inst.NumProducts() {
			load += plan.Quantity(entities.ProductID(i), f)
		}
		if load > inst.Capacity(f)+planTolerance {
			result.Errors = append(result.Errors,
				fmt.Sprintf("facility %s load %g exceeds capacity %g", inst.FacilityName(f), load, inst.Capacity(f)))
		}
	}

	return result
}

// checkLevel verifies that p has a valid level at f and that its quantity
// lies within the level's bounds
func (v *PlanValidator) checkLevel(plan *entities.ProductionPlan, p entities.ProductID, f entities.FacilityID) []string {
	inst := v.instance
	l := plan.Level(p, f)
	if l < 0 || int(l) >= inst.NumLevels(f, p) {
		return []string{fmt.Sprintf("product %s has no valid level at facility %s", inst.ProductName(p), inst.FacilityName(f))}
	}

	x := plan.Quantity(p, f)
	lower := inst.LevelLowerBound(f, p, l)
	upper := math.Min(inst.LevelUpperBound(f, p, l), inst.Capacity(f))
	if x < lower-planTolerance || x > upper+planTolerance {
		return []string{fmt.Sprintf("product %s quantity %g at facility %s outside level %s bounds [%g, %g]",
			inst.ProductName(p), x, inst.FacilityName(f), l, lower, upper)}
	}
	return nil
}
