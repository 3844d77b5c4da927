package enumerate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/vsinha/endoplan/pkg/mip"
)

const (
	fixTolerance     = 1e-12
	zeroCoefficient  = 1e-12
	rowTolerance     = 1e-9
	simplexTolerance = 1e-10
)

var (
	errInfeasible = errors.New("relaxation infeasible")
	errUnbounded  = errors.New("relaxation unbounded")
)

type columnKind int

const (
	fixedColumn   columnKind = iota // v = offset
	shiftedColumn                   // v = offset + z
	flippedColumn                   // v = offset - z
	freeColumn                      // v = z+ - z-
)

// column maps a model variable onto non-negative standard-form columns
type column struct {
	kind   columnKind
	offset float64
	pos    int
	neg    int
}

// row is a standard-form row before slacks are appended
type row struct {
	coefs map[int]float64
	sense mip.Sense
	rhs   float64
}

// relaxation is an optimal LP point in model space
type relaxation struct {
	values    []float64
	objective float64
}

// solveRelaxation solves the LP relaxation of m with variable bounds
// overridden by lower/upper and the given constraints. Binaries are relaxed
// to their bounds.
func solveRelaxation(m *mip.Model, lower, upper []float64, constraints []mip.Constraint) (*relaxation, error) {
	columns, nStructural, err := mapColumns(lower, upper)
	if err != nil {
		return nil, err
	}

	rows := make([]row, 0, len(constraints))
	for _, c := range constraints {
		r, keep, err := standardRow(c, columns)
		if err != nil {
			return nil, err
		}
		if keep {
			rows = append(rows, r)
		}
	}
	for j, col := range columns {
		if col.kind == shiftedColumn && !math.IsInf(upper[j], 1) {
			rows = append(rows, row{coefs: map[int]float64{col.pos: 1}, sense: mip.LessEqual, rhs: upper[j] - lower[j]})
		}
	}

	// Objective as a minimization over the structural columns.
	sign := -1.0
	if !m.Maximize() {
		sign = 1
	}
	costs := make(map[int]float64, nStructural)
	for _, t := range m.Objective().Terms {
		addTerm(costs, columns[t.Var], sign*t.Coef)
	}
	cost := make([]float64, nStructural)
	for col, v := range costs {
		cost[col] = v
	}

	// Columns outside every row sit at zero unless they improve the objective forever.
	used := make([]bool, nStructural)
	for _, r := range rows {
		for col := range r.coefs {
			used[col] = true
		}
	}
	compact := make([]int, nStructural)
	nUsed := 0
	for col := range nStructural {
		if !used[col] {
			if cost[col] < 0 {
				return nil, errUnbounded
			}
			compact[col] = -1
			continue
		}
		compact[col] = nUsed
		nUsed++
	}

	z := make([]float64, nStructural)
	if len(rows) > 0 {
		nSlack := 0
		for _, r := range rows {
			if r.sense != mip.Equal {
				nSlack++
			}
		}
		nCols := nUsed + nSlack
		if len(rows) > nCols {
			return nil, fmt.Errorf("relaxation has %d rows but only %d columns", len(rows), nCols)
		}

		a := mat.NewDense(len(rows), nCols, nil)
		b := make([]float64, len(rows))
		c := make([]float64, nCols)
		for col := range nStructural {
			if compact[col] >= 0 {
				c[compact[col]] = cost[col]
			}
		}
		slack := nUsed
		for i, r := range rows {
			for col, v := range r.coefs {
				a.Set(i, compact[col], v)
			}
			switch r.sense {
			case mip.LessEqual:
				a.Set(i, slack, 1)
				slack++
			case mip.GreaterEqual:
				a.Set(i, slack, -1)
				slack++
			}
			b[i] = r.rhs
		}

		_, solution, err := lp.Simplex(c, a, b, simplexTolerance, nil)
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, errInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return nil, errUnbounded
		case err != nil:
			return nil, fmt.Errorf("simplex failed: %w", err)
		}
		for col := range nStructural {
			if compact[col] >= 0 {
				z[col] = solution[compact[col]]
			}
		}
	}

	values := make([]float64, len(columns))
	for j, col := range columns {
		switch col.kind {
		case fixedColumn:
			values[j] = col.offset
		case shiftedColumn:
			values[j] = col.offset + z[col.pos]
		case flippedColumn:
			values[j] = col.offset - z[col.pos]
		case freeColumn:
			values[j] = z[col.pos] - z[col.neg]
		}
	}

	return &relaxation{values: values, objective: m.Objective().Eval(values)}, nil
}

// mapColumns assigns standard-form columns to every variable
func mapColumns(lower, upper []float64) ([]column, int, error) {
	columns := make([]column, len(lower))
	n := 0
	for j := range lower {
		lo, hi := lower[j], upper[j]
		switch {
		case hi < lo-fixTolerance:
			return nil, 0, errInfeasible
		case math.Abs(hi-lo) <= fixTolerance:
			columns[j] = column{kind: fixedColumn, offset: lo, pos: -1, neg: -1}
		case !math.IsInf(lo, -1):
			columns[j] = column{kind: shiftedColumn, offset: lo, pos: n, neg: -1}
			n++
		case !math.IsInf(hi, 1):
			columns[j] = column{kind: flippedColumn, offset: hi, pos: n, neg: -1}
			n++
		default:
			columns[j] = column{kind: freeColumn, pos: n, neg: n + 1}
			n += 2
		}
	}
	return columns, n, nil
}

// addTerm adds coef·v to a sparse coefficient vector and returns the constant part
func addTerm(coefs map[int]float64, col column, coef float64) float64 {
	switch col.kind {
	case fixedColumn:
		return coef * col.offset
	case shiftedColumn:
		coefs[col.pos] += coef
		return coef * col.offset
	case flippedColumn:
		coefs[col.pos] -= coef
		return coef * col.offset
	default:
		coefs[col.pos] += coef
		coefs[col.neg] -= coef
		return 0
	}
}

// standardRow substitutes the column mapping into a constraint. Rows left
// without columns are checked and dropped.
func standardRow(c mip.Constraint, columns []column) (row, bool, error) {
	coefs := make(map[int]float64, len(c.Expr.Terms))
	constant := 0.0
	for _, t := range c.Expr.Terms {
		constant += addTerm(coefs, columns[t.Var], t.Coef)
	}
	for col, v := range coefs {
		if math.Abs(v) < zeroCoefficient {
			delete(coefs, col)
		}
	}

	rhs := c.RHS - constant
	if len(coefs) > 0 {
		return row{coefs: coefs, sense: c.Sense, rhs: rhs}, true, nil
	}

	feasible := true
	switch c.Sense {
	case mip.LessEqual:
		feasible = rhs >= -rowTolerance
	case mip.GreaterEqual:
		feasible = rhs <= rowTolerance
	case mip.Equal:
		feasible = math.Abs(rhs) <= rowTolerance
	}
	if !feasible {
		return row{}, false, errInfeasible
	}
	return row{}, false, nil
}
