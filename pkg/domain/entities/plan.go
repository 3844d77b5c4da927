package entities

import "fmt"

// ProductionPlan is a first-stage decision: a selected level and a quantity
// for every (product, facility) pair.
type ProductionPlan struct {
	levels     [][]LevelID
	quantities [][]float64
}

// NewProductionPlan creates an empty plan sized for an instance. Every level
// starts unselected (-1).
func NewProductionPlan(inst *Instance) *ProductionPlan {
	plan := &ProductionPlan{
		levels:     make([][]LevelID, inst.NumProducts()),
		quantities: make([][]float64, inst.NumProducts()),
	}
	for p := range plan.levels {
		plan.levels[p] = make([]LevelID, inst.NumFacilities())
		plan.quantities[p] = make([]float64, inst.NumFacilities())
		for f := range plan.levels[p] {
			plan.levels[p][f] = -1
		}
	}
	return plan
}

// Set records the level and quantity chosen for p at f
func (pl *ProductionPlan) Set(p ProductID, f FacilityID, level LevelID, quantity float64) error {
	if int(p) >= len(pl.levels) || p < 0 {
		return fmt.Errorf("product %s out of range", p)
	}
	if int(f) >= len(pl.levels[p]) || f < 0 {
		return fmt.Errorf("facility %s out of range", f)
	}
	if quantity < 0 {
		return fmt.Errorf("quantity cannot be negative, got %g", quantity)
	}
	pl.levels[p][f] = level
	pl.quantities[p][f] = quantity
	return nil
}

// Level returns the selected level of p at f, or -1 when none is selected
func (pl *ProductionPlan) Level(p ProductID, f FacilityID) LevelID { return pl.levels[p][f] }

// Quantity returns the planned quantity of p at f
func (pl *ProductionPlan) Quantity(p ProductID, f FacilityID) float64 { return pl.quantities[p][f] }

// Quantities returns a copy of the per-facility quantities of a product
func (pl *ProductionPlan) Quantities(p ProductID) []float64 {
	return append([]float64(nil), pl.quantities[p]...)
}

// NumProducts returns the number of products covered by the plan
func (pl *ProductionPlan) NumProducts() int { return len(pl.levels) }

// NumFacilities returns the number of facilities covered by the plan
func (pl *ProductionPlan) NumFacilities() int {
	if len(pl.levels) == 0 {
		return 0
	}
	return len(pl.levels[0])
}
