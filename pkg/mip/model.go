package mip

import (
	"fmt"
	"math"
)

// VarID indexes a variable of a Model
type VarID int

// VarKind distinguishes integer from continuous variables
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// String method for VarKind enum
func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "Continuous"
	case Binary:
		return "Binary"
	default:
		return "Unknown"
	}
}

// Variable is a decision variable declaration
type Variable struct {
	ID    VarID
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Model is a solver-agnostic mixed-integer program. Models are built by a
// single goroutine before the search starts; engines treat them as read-only.
type Model struct {
	name        string
	variables   []Variable
	constraints []Constraint
	objective   LinExpr
	maximize    bool
}

// NewModel creates an empty model
func NewModel(name string) *Model {
	return &Model{name: name}
}

// Name returns the model name
func (m *Model) Name() string { return m.name }

// AddBinary declares a {0,1} variable
func (m *Model) AddBinary(name string) VarID {
	return m.addVariable(name, Binary, 0, 1)
}

// AddContinuous declares a continuous variable in [lower, upper]. Use
// math.Inf for unbounded sides.
func (m *Model) AddContinuous(name string, lower, upper float64) VarID {
	return m.addVariable(name, Continuous, lower, upper)
}

// AddFree declares an unbounded continuous variable
func (m *Model) AddFree(name string) VarID {
	return m.addVariable(name, Continuous, math.Inf(-1), math.Inf(1))
}

func (m *Model) addVariable(name string, kind VarKind, lower, upper float64) VarID {
	id := VarID(len(m.variables))
	m.variables = append(m.variables, Variable{ID: id, Name: name, Kind: kind, Lower: lower, Upper: upper})
	return id
}

// AddConstraint appends a constraint and returns its index
func (m *Model) AddConstraint(c Constraint) (int, error) {
	for _, t := range c.Expr.Terms {
		if t.Var < 0 || int(t.Var) >= len(m.variables) {
			return -1, fmt.Errorf("constraint %q references unknown variable %d", c.Name, t.Var)
		}
	}
	m.constraints = append(m.constraints, c)
	return len(m.constraints) - 1, nil
}

// SetObjective sets the objective expression and direction
func (m *Model) SetObjective(expr LinExpr, maximize bool) {
	m.objective = expr
	m.maximize = maximize
}

// Objective returns the objective expression
func (m *Model) Objective() LinExpr { return m.objective }

// Maximize reports the objective direction
func (m *Model) Maximize() bool { return m.maximize }

// NumVariables returns the number of declared variables
func (m *Model) NumVariables() int { return len(m.variables) }

// NumConstraints returns the number of constraints
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Variable returns a variable declaration
func (m *Model) Variable(id VarID) Variable { return m.variables[id] }

// Variables returns the variable declarations
func (m *Model) Variables() []Variable { return m.variables }

// Constraints returns the constraints
func (m *Model) Constraints() []Constraint { return m.constraints }

// BinaryVariables returns the IDs of every binary variable in declaration order
func (m *Model) BinaryVariables() []VarID {
	ids := make([]VarID, 0)
	for _, v := range m.variables {
		if v.Kind == Binary {
			ids = append(ids, v.ID)
		}
	}
	return ids
}
