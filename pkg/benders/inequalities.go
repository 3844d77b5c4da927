package benders

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/mip"
)

// ValidInequality identifies one of the static families bounding phi
type ValidInequality int

const (
	VI1 ValidInequality = iota + 1
	VI2
	VI3
	VI4
	VI5
	VI6
)

// AllValidInequalities lists every family in application order
var AllValidInequalities = []ValidInequality{VI1, VI2, VI3, VI4, VI5, VI6}

func (vi ValidInequality) String() string { return fmt.Sprintf("VI%d", int(vi)) }

// ParseValidInequality parses "VI1".."VI6", case-insensitively
func ParseValidInequality(s string) (ValidInequality, error) {
	for _, vi := range AllValidInequalities {
		if strings.EqualFold(s, vi.String()) {
			return vi, nil
		}
	}
	return 0, fmt.Errorf("unknown valid inequality %q", s)
}

// AddValidInequality adds every constraint of a family and returns how many
// were added
func (m *MasterProblem) AddValidInequality(vi ValidInequality) (int, error) {
	constraints, err := m.ValidInequalityConstraints(vi)
	if err != nil {
		return 0, err
	}
	if err := m.addConstraints(constraints); err != nil {
		return 0, fmt.Errorf("failed to add %s: %w", vi, err)
	}
	m.tag(vi.String())
	m.logger.Info("valid inequalities added", zap.Stringer("family", vi), zap.Int("constraints", len(constraints)))
	return len(constraints), nil
}

// ValidInequalityConstraints builds the constraints of a family without adding them
func (m *MasterProblem) ValidInequalityConstraints(vi ValidInequality) ([]mip.Constraint, error) {
	switch vi {
	case VI1:
		return m.yieldBound(vi, func(p entities.ProductID, f entities.FacilityID) float64 {
			return m.instance.SalesPrice(p) * m.instance.MaxYield(p, f)
		}), nil
	case VI2:
		return m.leftoverBound(), nil
	case VI3:
		return m.distributionBounds(vi, false), nil
	case VI4:
		return m.distributionBounds(vi, true), nil
	case VI5:
		return m.aggregateBound(), nil
	case VI6:
		return m.yieldBound(vi, func(p entities.ProductID, f entities.FacilityID) float64 {
			return m.instance.SalesPrice(p) * m.instance.MaxExpectedYield(p, f)
		}), nil
	default:
		return nil, fmt.Errorf("unknown valid inequality %d", int(vi))
	}
}

// yieldBound builds phi[p] - Σ_f slope(p,f)·x[p,f] <= 0 for every product
func (m *MasterProblem) yieldBound(vi ValidInequality, slope func(entities.ProductID, entities.FacilityID) float64) []mip.Constraint {
	inst := m.instance
	constraints := make([]mip.Constraint, 0, inst.NumProducts())
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		expr := mip.NewLinExpr(inst.NumFacilities() + 1)
		expr.Add(m.Phi(p), 1)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			expr.Add(m.X(p, f), -slope(p, f))
		}
		constraints = append(constraints, mip.Le(fmt.Sprintf("%s_%s", vi, p), expr, 0))
	}
	return constraints
}

// leftoverBound builds VI2: every unit beyond the highest demand earns at most
// the leftover value
func (m *MasterProblem) leftoverBound() []mip.Constraint {
	inst := m.instance
	constraints := make([]mip.Constraint, 0, inst.NumProducts())
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		price, leftover := inst.SalesPrice(p), salvageValue(inst, p)

		expr := mip.NewLinExpr(inst.NumFacilities() + 1)
		expr.Add(m.Phi(p), 1)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			expr.Add(m.X(p, f), -leftover*inst.MaxYield(p, f))
		}
		rhs := (price - leftover) * inst.MaxDemand(p)
		constraints = append(constraints, mip.Le(fmt.Sprintf("%s_%s", VI2, p), expr, rhs))
	}
	return constraints
}

// distributionBounds builds the per-distribution Big-M families VI3 (sales
// price slope) and VI4 (leftover slope plus demand offset)
func (m *MasterProblem) distributionBounds(vi ValidInequality, leftoverSlope bool) []mip.Constraint {
	inst := m.instance
	nF := inst.NumFacilities()
	constraints := make([]mip.Constraint, 0)

	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		bigM := inst.ExpectationCeiling(p)
		price, leftover := inst.SalesPrice(p), salvageValue(inst, p)

		for k := range inst.NumDistributions(p) {
			d := entities.DistributionID(k)
			expr := mip.NewLinExpr(2*nF + 1)
			expr.Add(m.Phi(p), 1)

			slope := price
			rhs := bigM * float64(nF)
			if leftoverSlope {
				slope = leftover
				rhs += (price - leftover) * inst.MaxDemandInDistribution(p, d)
			}
			for j := range nF {
				f := entities.FacilityID(j)
				expr.Add(m.X(p, f), -slope*inst.MaxYieldInDistribution(p, f, d))
			}
			for j := range nF {
				f := entities.FacilityID(j)
				expr.Add(m.Y(p, f, inst.DistributionLevel(p, d, f)), bigM)
			}
			constraints = append(constraints, mip.Le(fmt.Sprintf("%s_%s_%s", vi, p, d), expr, rhs))
		}
	}
	return constraints
}

// salvageValue is the leftover value the bounds use. Profit grows with the
// leftover value, so a disposal cost is bounded by the zero-salvage profit,
// which keeps every slope nonnegative and ExpectationCeiling a valid Big-M.
func salvageValue(inst *entities.Instance, p entities.ProductID) float64 {
	return math.Max(0, inst.LeftoverValue(p))
}

// aggregateBound builds VI5 over the sum of all phi
func (m *MasterProblem) aggregateBound() []mip.Constraint {
	inst := m.instance
	expr := mip.NewLinExpr(inst.NumProducts())
	for i := range inst.NumProducts() {
		expr.Add(m.Phi(entities.ProductID(i)), 1)
	}
	rhs := 0.0
	for j := range inst.NumFacilities() {
		f := entities.FacilityID(j)
		rhs += inst.HighestSalesPrice() * inst.MaxYieldAtFacility(f) * inst.Capacity(f)
	}
	return []mip.Constraint{mip.Le(VI5.String(), expr, rhs)}
}
