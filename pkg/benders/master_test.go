package benders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/services"
	"github.com/vsinha/endoplan/pkg/mip"
	testhelpers "github.com/vsinha/endoplan/pkg/infrastructure/testing"
)

// pointFor builds a master value vector from a level choice, quantities and
// phi values, all indexed [p][f] / [p].
func pointFor(m *MasterProblem, levels [][]entities.LevelID, x [][]float64, phi []float64) []float64 {
	inst := m.Instance()
	values := make([]float64, m.Model().NumVariables())
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			values[m.Y(p, f, levels[p][f])] = 1
			values[m.X(p, f)] = x[p][f]
		}
		values[m.Phi(p)] = phi[p]
	}
	return values
}

// feasiblePoints enumerates level choices of the two-facility instance with
// quantities at the level lower bound and half a unit above it, phi set to
// the exact expected profit.
func feasiblePoints(t *testing.T, m *MasterProblem) [][]float64 {
	t.Helper()
	inst := m.Instance()
	eval := services.NewEvaluator(inst)
	combos := testhelpers.LevelCombinations([]int{2, 2})

	var points [][]float64
	for _, c0 := range combos {
		for _, c1 := range combos {
			for _, offset := range []float64{0, 0.5} {
				levels := [][]entities.LevelID{c0, c1}
				x := make([][]float64, 2)
				phi := make([]float64, 2)
				for p := range 2 {
					x[p] = make([]float64, 2)
					for f := range 2 {
						x[p][f] = inst.LevelLowerBound(entities.FacilityID(f), entities.ProductID(p), levels[p][f]) + offset
					}
					d, err := inst.EnforcedDistribution(entities.ProductID(p), func(f entities.FacilityID, l entities.LevelID) bool {
						return levels[p][f] == l
					})
					require.NoError(t, err)
					phi[p] = eval.ExpectedProfit(entities.ProductID(p), d, x[p])
				}
				points = append(points, pointFor(m, levels, x, phi))
			}
		}
	}
	return points
}

func TestNewMasterProblem(t *testing.T) {
	inst := testhelpers.BuildTwoFacilityInstance()
	m, err := NewMasterProblem(inst, zaptest.NewLogger(t))
	require.NoError(t, err)

	model := m.Model()
	// per product: 2 facilities x (2 levels + 1 quantity) + phi
	assert.Equal(t, 14, model.NumVariables())
	// per product: 2 facilities x 3 level rows + phi ceiling; plus 2 capacity rows
	assert.Equal(t, 16, model.NumConstraints())
	assert.Len(t, model.BinaryVariables(), 8)
	assert.True(t, model.Maximize())
	assert.Equal(t, BaseExperiment, m.Experiment())

	names := make(map[string]bool)
	for _, c := range model.Constraints() {
		names[c.Name] = true
	}
	for _, want := range []string{"level_lb_P0_F1", "level_ub_P1_F0", "one_level_P1_F1", "phi_ceiling_P0", "capacity_F1"} {
		assert.True(t, names[want], "missing constraint %s", want)
	}

	assert.Equal(t, "y_1_0_1", model.Variable(m.Y(1, 0, 1)).Name)
	assert.Equal(t, mip.Continuous, model.Variable(m.X(0, 1)).Kind)
	assert.Equal(t, "phi_1", model.Variable(m.Phi(1)).Name)
}

func TestMasterProblem_FeasiblePointsSatisfyBaseConstraints(t *testing.T) {
	m, err := NewMasterProblem(testhelpers.BuildTwoFacilityInstance(), nil)
	require.NoError(t, err)

	for _, values := range feasiblePoints(t, m) {
		for _, c := range m.Model().Constraints() {
			assert.True(t, c.Satisfied(values, 1e-9), "%s violated by %.3f", c.Name, c.Violation(values))
		}
	}
}

func TestMasterProblem_UpperBoundCappedByCapacity(t *testing.T) {
	inst := testhelpers.BuildCoverInstance(10, []float64{6})
	m, err := NewMasterProblem(inst, nil)
	require.NoError(t, err)

	values := pointFor(m, [][]entities.LevelID{{0}}, [][]float64{{11}}, []float64{0})
	for _, c := range m.Model().Constraints() {
		if c.Name == "level_ub_P0_F0" {
			// the level allows 16 but the facility only 10
			assert.InDelta(t, 1, c.Violation(values), 1e-12)
			return
		}
	}
	t.Fatal("level_ub_P0_F0 not found")
}

func TestMasterProblem_Plan(t *testing.T) {
	m, err := NewMasterProblem(testhelpers.BuildTwoFacilityInstance(), nil)
	require.NoError(t, err)

	levels := [][]entities.LevelID{{1, 0}, {0, 1}}
	values := pointFor(m, levels, [][]float64{{7, 3}, {5, -1e-12}}, []float64{0, 0})
	plan, err := m.Plan(values)
	require.NoError(t, err)

	assert.Equal(t, entities.LevelID(1), plan.Level(0, 0))
	assert.Equal(t, entities.LevelID(1), plan.Level(1, 1))
	assert.Equal(t, []float64{7, 3}, plan.Quantities(0))
	assert.Equal(t, 0.0, plan.Quantity(1, 1))

	values[m.Y(0, 1, 0)] = 0
	_, err = m.Plan(values)
	assert.Error(t, err)
}
