package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	testhelpers "github.com/vsinha/endoplan/pkg/infrastructure/testing"
)

func TestPlanValidator_ValidatePlan(t *testing.T) {
	inst := testhelpers.BuildTwoFacilityInstance()

	tests := []struct {
		name       string
		set        func(plan *entities.ProductionPlan)
		wantValid  bool
		wantDists  []entities.DistributionID
		wantErrors int
	}{
		{
			name: "feasible plan",
			set: func(plan *entities.ProductionPlan) {
				mustSet(t, plan, 0, 0, 1, 7)
				mustSet(t, plan, 0, 1, 0, 3)
				mustSet(t, plan, 1, 0, 0, 5)
				mustSet(t, plan, 1, 1, 1, 6)
			},
			wantValid: true,
			wantDists: []entities.DistributionID{2, 1},
		},
		{
			name: "quantity below level lower bound",
			set: func(plan *entities.ProductionPlan) {
				mustSet(t, plan, 0, 0, 1, 2)
				mustSet(t, plan, 0, 1, 0, 3)
				mustSet(t, plan, 1, 0, 0, 0)
				mustSet(t, plan, 1, 1, 0, 0)
			},
			wantDists:  []entities.DistributionID{2, 0},
			wantErrors: 1,
		},
		{
			name: "capacity exceeded",
			set: func(plan *entities.ProductionPlan) {
				mustSet(t, plan, 0, 0, 1, 8)
				mustSet(t, plan, 0, 1, 0, 0)
				mustSet(t, plan, 1, 0, 1, 8)
				mustSet(t, plan, 1, 1, 0, 0)
			},
			wantDists:  []entities.DistributionID{2, 2},
			wantErrors: 1,
		},
		{
			name: "missing level",
			set: func(plan *entities.ProductionPlan) {
				mustSet(t, plan, 0, 0, 0, 1)
				mustSet(t, plan, 0, 1, 0, 1)
				mustSet(t, plan, 1, 0, 0, 1)
			},
			wantDists:  []entities.DistributionID{0, -1},
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := entities.NewProductionPlan(inst)
			tt.set(plan)

			result := NewPlanValidator(inst).ValidatePlan(plan)
			assert.Equal(t, tt.wantValid, result.Valid(), "errors: %v", result.Errors)
			assert.Len(t, result.Errors, tt.wantErrors)
			assert.Equal(t, tt.wantDists, result.EnforcedDistributions)
		})
	}
}

func mustSet(t *testing.T, plan *entities.ProductionPlan, p entities.ProductID, f entities.FacilityID, l entities.LevelID, x float64) {
	t.Helper()
	require.NoError(t, plan.Set(p, f, l, x))
}
