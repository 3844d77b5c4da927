package mip

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Term is a coefficient applied to a variable
type Term struct {
	Var  VarID
	Coef float64
}

// LinExpr is a linear expression over model variables
type LinExpr struct {
	Terms []Term
}

// NewLinExpr creates an empty expression with room for n terms
func NewLinExpr(n int) LinExpr {
	return LinExpr{Terms: make([]Term, 0, n)}
}

// Add appends coef·v to the expression
func (e *LinExpr) Add(v VarID, coef float64) *LinExpr {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// Eval evaluates the expression against a dense value vector
func (e LinExpr) Eval(values []float64) float64 {
	sum := 0.0
	for _, t := range e.Terms {
		sum += t.Coef * values[t.Var]
	}
	return sum
}

// Compact merges repeated variables and drops zero coefficients. Terms come
// back ordered by variable.
func (e LinExpr) Compact() LinExpr {
	merged := make(map[VarID]float64, len(e.Terms))
	for _, t := range e.Terms {
		merged[t.Var] += t.Coef
	}
	out := NewLinExpr(len(merged))
	for v, c := range merged {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Var < out.Terms[j].Var })
	return out
}

// Sense is the relation of a constraint
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

// String method for Sense enum
func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Constraint is a linear constraint: Expr Sense RHS
type Constraint struct {
	Name  string
	Expr  LinExpr
	Sense Sense
	RHS   float64
}

// Le builds expr <= rhs
func Le(name string, expr LinExpr, rhs float64) Constraint {
	return Constraint{Name: name, Expr: expr, Sense: LessEqual, RHS: rhs}
}

// Ge builds expr >= rhs
func Ge(name string, expr LinExpr, rhs float64) Constraint {
	return Constraint{Name: name, Expr: expr, Sense: GreaterEqual, RHS: rhs}
}

// Eq builds expr = rhs
func Eq(name string, expr LinExpr, rhs float64) Constraint {
	return Constraint{Name: name, Expr: expr, Sense: Equal, RHS: rhs}
}

// Violation returns by how much values violate the constraint; zero when satisfied
func (c Constraint) Violation(values []float64) float64 {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case LessEqual:
		return math.Max(0, lhs-c.RHS)
	case GreaterEqual:
		return math.Max(0, c.RHS-lhs)
	default:
		return math.Abs(lhs - c.RHS)
	}
}

// Satisfied reports whether values satisfy the constraint within tol
func (c Constraint) Satisfied(values []float64, tol float64) bool {
	return c.Violation(values) <= tol
}

// Format renders the constraint with variable names from m
func (c Constraint) Format(m *Model) string {
	var b strings.Builder
	for i, t := range c.Expr.Terms {
		if i > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%g %s", t.Coef, m.Variable(t.Var).Name)
	}
	fmt.Fprintf(&b, " %s %g", c.Sense, c.RHS)
	return b.String()
}
