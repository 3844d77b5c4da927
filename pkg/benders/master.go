// Package benders implements the Benders decomposition of the production
// planning problem: the master program, its static strengthening inequalities
// and the lazy optimality-cut separator.
package benders

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/mip"
)

// BaseExperiment names the master formulation before any strengthening
const BaseExperiment = "bdscV1"

// MasterProblem is the relaxed master program over y (level selection),
// x (quantities) and phi (expected second-stage profit estimates).
type MasterProblem struct {
	instance *entities.Instance
	model    *mip.Model
	logger   *zap.Logger

	y   [][][]mip.VarID // [p][f][l]
	x   [][]mip.VarID   // [p][f]
	phi []mip.VarID     // [p]

	tags []string
}

// NewMasterProblem builds the variables, base constraints and objective
func NewMasterProblem(instance *entities.Instance, logger *zap.Logger) (*MasterProblem, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MasterProblem{
		instance: instance,
		model:    mip.NewModel(instance.Name()),
		logger:   logger,
	}

	m.addVariables()
	if err := m.addBaseConstraints(); err != nil {
		return nil, fmt.Errorf("failed to build master constraints: %w", err)
	}
	m.setObjective()

	logger.Info("master problem built",
		zap.String("instance", instance.Name()),
		zap.Int("variables", m.model.NumVariables()),
		zap.Int("constraints", m.model.NumConstraints()))
	return m, nil
}

func (m *MasterProblem) addVariables() {
	inst := m.instance
	nP, nF := inst.NumProducts(), inst.NumFacilities()

	m.y = make([][][]mip.VarID, nP)
	m.x = make([][]mip.VarID, nP)
	m.phi = make([]mip.VarID, nP)
	for p := range nP {
		m.y[p] = make([][]mip.VarID, nF)
		m.x[p] = make([]mip.VarID, nF)
		for f := range nF {
			nL := inst.NumLevels(entities.FacilityID(f), entities.ProductID(p))
			m.y[p][f] = make([]mip.VarID, nL)
			for l := range nL {
				m.y[p][f][l] = m.model.AddBinary(fmt.Sprintf("y_%d_%d_%d", p, f, l))
			}
			m.x[p][f] = m.model.AddContinuous(fmt.Sprintf("x_%d_%d", p, f), 0, math.Inf(1))
		}
		m.phi[p] = m.model.AddFree(fmt.Sprintf("phi_%d", p))
	}
}

func (m *MasterProblem) addBaseConstraints() error {
	inst := m.instance
	constraints := make([]mip.Constraint, 0)

	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			nL := inst.NumLevels(f, p)

			lower := mip.NewLinExpr(nL + 1)
			upper := mip.NewLinExpr(nL + 1)
			choice := mip.NewLinExpr(nL)
			for k := range nL {
				l := entities.LevelID(k)
				lower.Add(m.Y(p, f, l), inst.LevelLowerBound(f, p, l))
				upper.Add(m.Y(p, f, l), -math.Min(inst.LevelUpperBound(f, p, l), inst.Capacity(f)))
				choice.Add(m.Y(p, f, l), 1)
			}
			lower.Add(m.X(p, f), -1)
			upper.Add(m.X(p, f), 1)

			constraints = append(constraints,
				mip.Le(fmt.Sprintf("level_lb_%s_%s", p, f), lower, 0),
				mip.Le(fmt.Sprintf("level_ub_%s_%s", p, f), upper, 0),
				mip.Eq(fmt.Sprintf("one_level_%s_%s", p, f), choice, 1))
		}

		ceiling := mip.NewLinExpr(1)
		ceiling.Add(m.Phi(p), 1)
		constraints = append(constraints, mip.Le(fmt.Sprintf("phi_ceiling_%s", p), ceiling, inst.ExpectationCeiling(p)))
	}

	for j := range inst.NumFacilities() {
		f := entities.FacilityID(j)
		load := mip.NewLinExpr(inst.NumProducts())
		for i := range inst.NumProducts() {
			load.Add(m.X(entities.ProductID(i), f), 1)
		}
		constraints = append(constraints, mip.Le(fmt.Sprintf("capacity_%s", f), load, inst.Capacity(f)))
	}

	return m.addConstraints(constraints)
}

func (m *MasterProblem) setObjective() {
	inst := m.instance
	objective := mip.NewLinExpr(inst.NumProducts() * (inst.NumFacilities() + 1))
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			objective.Add(m.X(p, f), -inst.ManufacturingCost(f, p))
		}
		objective.Add(m.Phi(p), 1)
	}
	m.model.SetObjective(objective, true)
}

func (m *MasterProblem) addConstraints(constraints []mip.Constraint) error {
	for _, c := range constraints {
		if _, err := m.model.AddConstraint(c); err != nil {
			return err
		}
	}
	return nil
}

// tag appends a strengthening suffix to the experiment name
func (m *MasterProblem) tag(suffix string) {
	m.tags = append(m.tags, suffix)
}

// Experiment returns the formulation name with its strengthening suffixes,
// e.g. "bdscV1+VI1+MCI"
func (m *MasterProblem) Experiment() string {
	if len(m.tags) == 0 {
		return BaseExperiment
	}
	return BaseExperiment + "+" + strings.Join(m.tags, "+")
}

// Instance returns the instance the master was built from
func (m *MasterProblem) Instance() *entities.Instance { return m.instance }

// Model returns the underlying program
func (m *MasterProblem) Model() *mip.Model { return m.model }

// Y returns the indicator of level l for p at f
func (m *MasterProblem) Y(p entities.ProductID, f entities.FacilityID, l entities.LevelID) mip.VarID {
	return m.y[p][f][l]
}

// X returns the production quantity of p at f
func (m *MasterProblem) X(p entities.ProductID, f entities.FacilityID) mip.VarID { return m.x[p][f] }

// Phi returns the expected-profit estimate of p
func (m *MasterProblem) Phi(p entities.ProductID) mip.VarID { return m.phi[p] }

// Quantities reads the per-facility quantities of p from a value vector
func (m *MasterProblem) Quantities(p entities.ProductID, values []float64) []float64 {
	quantities := make([]float64, len(m.x[p]))
	for f, v := range m.x[p] {
		quantities[f] = values[v]
	}
	return quantities
}

// LevelActive reports whether level l of p at f is selected in values
func (m *MasterProblem) LevelActive(values []float64, p entities.ProductID, f entities.FacilityID, l entities.LevelID) bool {
	return values[m.y[p][f][l]] >= 0.5
}

// Plan extracts the first-stage plan from a value vector
func (m *MasterProblem) Plan(values []float64) (*entities.ProductionPlan, error) {
	inst := m.instance
	plan := entities.NewProductionPlan(inst)
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			level := entities.LevelID(-1)
			for k := range inst.NumLevels(f, p) {
				if m.LevelActive(values, p, f, entities.LevelID(k)) {
					level = entities.LevelID(k)
					break
				}
			}
			if level < 0 {
				return nil, fmt.Errorf("no level selected for product %s at facility %s", p, f)
			}
			// Clamp solver round-off so the plan stays non-negative.
			if err := plan.Set(p, f, level, math.Max(0, values[m.X(p, f)])); err != nil {
				return nil, err
			}
		}
	}
	return plan, nil
}
