package mip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_AddConstraint(t *testing.T) {
	m := NewModel("test")
	x := m.AddContinuous("x", 0, 10)
	y := m.AddBinary("y")

	expr := NewLinExpr(2)
	expr.Add(x, 1).Add(y, -10)
	idx, err := m.AddConstraint(Le("link", expr, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, m.NumConstraints())
	assert.Equal(t, []VarID{y}, m.BinaryVariables())
	assert.Equal(t, "1 x + -10 y <= 0", m.Constraints()[0].Format(m))

	bad := NewLinExpr(1)
	bad.Add(VarID(7), 1)
	_, err = m.AddConstraint(Le("bad", bad, 0))
	assert.Error(t, err)
}

func TestLinExpr_Compact(t *testing.T) {
	expr := NewLinExpr(4)
	expr.Add(2, 1.5).Add(0, 1).Add(2, -0.5).Add(1, 0)

	got := expr.Compact()
	assert.Equal(t, []Term{{Var: 0, Coef: 1}, {Var: 2, Coef: 1}}, got.Terms)
}

func TestConstraint_Violation(t *testing.T) {
	expr := NewLinExpr(2)
	expr.Add(0, 1).Add(1, 2)
	values := []float64{1, 2} // lhs = 5

	tests := []struct {
		name string
		c    Constraint
		want float64
	}{
		{"le satisfied", Le("c", expr, 6), 0},
		{"le violated", Le("c", expr, 4), 1},
		{"ge violated", Ge("c", expr, 7), 2},
		{"eq violated", Eq("c", expr, 4.5), 0.5},
		{"eq satisfied", Eq("c", expr, 5), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.c.Violation(values), 1e-12)
			assert.Equal(t, tt.want == 0, tt.c.Satisfied(values, 1e-9))
		})
	}
}

func TestRelativeGap(t *testing.T) {
	assert.True(t, math.IsInf(RelativeGap(10, 0, false), 1))
	assert.InDelta(t, 0.1, RelativeGap(110, 100, true), 1e-12)
	assert.InDelta(t, 0, RelativeGap(-50, -50, true), 1e-12)
}
