package benders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	testhelpers "github.com/vsinha/endoplan/pkg/infrastructure/testing"
)

func TestParseValidInequality(t *testing.T) {
	for _, vi := range AllValidInequalities {
		got, err := ParseValidInequality(vi.String())
		require.NoError(t, err)
		assert.Equal(t, vi, got)
	}

	got, err := ParseValidInequality("vi4")
	require.NoError(t, err)
	assert.Equal(t, VI4, got)

	_, err = ParseValidInequality("VI7")
	assert.Error(t, err)
}

func TestValidInequalityConstraints_Counts(t *testing.T) {
	m, err := NewMasterProblem(testhelpers.BuildTwoFacilityInstance(), nil)
	require.NoError(t, err)

	tests := []struct {
		vi   ValidInequality
		want int
	}{
		{VI1, 2},
		{VI2, 2},
		{VI3, 8},
		{VI4, 8},
		{VI5, 1},
		{VI6, 2},
	}
	for _, tt := range tests {
		t.Run(tt.vi.String(), func(t *testing.T) {
			constraints, err := m.ValidInequalityConstraints(tt.vi)
			require.NoError(t, err)
			assert.Len(t, constraints, tt.want)
		})
	}

	_, err = m.ValidInequalityConstraints(ValidInequality(9))
	assert.Error(t, err)
}

func TestValidInequalities_HoldAtFeasiblePoints(t *testing.T) {
	instances := []*entities.Instance{
		testhelpers.BuildTwoFacilityInstance(),
		testhelpers.BuildTwoFacilityDisposalInstance(),
	}
	for _, inst := range instances {
		t.Run(inst.Name(), func(t *testing.T) {
			m, err := NewMasterProblem(inst, nil)
			require.NoError(t, err)
			points := feasiblePoints(t, m)
			for p := range inst.NumProducts() {
				for _, point := range enforcedPoints(m, entities.ProductID(p)) {
					points = append(points, point.values)
				}
			}

			for _, vi := range AllValidInequalities {
				constraints, err := m.ValidInequalityConstraints(vi)
				require.NoError(t, err)
				for _, values := range points {
					for _, c := range constraints {
						assert.True(t, c.Satisfied(values, 1e-9), "%s violated by %.4f", c.Name, c.Violation(values))
					}
				}
			}
		})
	}
}

func TestValidInequalities_DisposalCostUsesZeroSalvage(t *testing.T) {
	// capacity 10, price 10, leftover -4, demand 5, yield 1
	m, err := NewMasterProblem(testhelpers.BuildNewsvendorInstance(10, 10, -4, 5, 1), nil)
	require.NoError(t, err)

	vi2, err := m.ValidInequalityConstraints(VI2)
	require.NoError(t, err)
	require.Len(t, vi2, 1)
	assert.InDelta(t, 50, vi2[0].RHS, 1e-12)
	for _, term := range vi2[0].Expr.Terms {
		if term.Var == m.X(0, 0) {
			assert.InDelta(t, 0, term.Coef, 1e-12)
		}
	}

	vi4, err := m.ValidInequalityConstraints(VI4)
	require.NoError(t, err)
	require.Len(t, vi4, 1)
	assert.InDelta(t, 50+m.Instance().ExpectationCeiling(0), vi4[0].RHS, 1e-12)
}

func TestNewsvendorValidInequalities(t *testing.T) {
	// capacity 10, price 10, leftover 1, demand 5, yield 1
	m, err := NewMasterProblem(testhelpers.BuildNewsvendorInstance(10, 10, 1, 5, 1), nil)
	require.NoError(t, err)

	vi1, err := m.ValidInequalityConstraints(VI1)
	require.NoError(t, err)
	require.Len(t, vi1, 1)
	assert.Equal(t, "1 phi_0 + -10 x_0_0 <= 0", vi1[0].Format(m.Model()))

	vi2, err := m.ValidInequalityConstraints(VI2)
	require.NoError(t, err)
	require.Len(t, vi2, 1)
	assert.Equal(t, "1 phi_0 + -1 x_0_0 <= 45", vi2[0].Format(m.Model()))

	vi5, err := m.ValidInequalityConstraints(VI5)
	require.NoError(t, err)
	require.Len(t, vi5, 1)
	assert.InDelta(t, 100, vi5[0].RHS, 1e-12)
}

func TestAddValidInequality_TagsExperiment(t *testing.T) {
	m, err := NewMasterProblem(testhelpers.BuildTwoFacilityInstance(), nil)
	require.NoError(t, err)
	before := m.Model().NumConstraints()

	n, err := m.AddValidInequality(VI3)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	_, err = m.AddValidInequality(VI6)
	require.NoError(t, err)

	assert.Equal(t, before+10, m.Model().NumConstraints())
	assert.Equal(t, "bdscV1+VI3+VI6", m.Experiment())
}
