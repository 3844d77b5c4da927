package mip

import (
	"context"
	"math"
	"time"
)

// Params are the search knobs every engine honours
type Params struct {
	TimeLimit   time.Duration
	RelativeGap float64
	// ImprovementHeuristic toggles the engine's secondary improvement
	// heuristic (local branching or similar) when it has one.
	ImprovementHeuristic bool
	// LogFrequency is the interval between progress log lines; zero disables them
	LogFrequency time.Duration
}

// Candidate is an integer-feasible point offered to a LazyHandler
type Candidate interface {
	Value(v VarID) float64
	Values() []float64
	Objective() float64
	// Bound is the engine's best bound when the candidate was found
	Bound() float64
	Node() int64
	IsRoot() bool
}

// LazyHandler is called at every integer-feasible candidate. Returned
// constraints are added to the model and the candidate is rejected when any
// of them is violated. Implementations must be safe for concurrent use.
type LazyHandler interface {
	OnIntegerCandidate(ctx context.Context, c Candidate) ([]Constraint, error)
}

// LazyHandlerFunc adapts a function to LazyHandler
type LazyHandlerFunc func(ctx context.Context, c Candidate) ([]Constraint, error)

// OnIntegerCandidate calls f
func (f LazyHandlerFunc) OnIntegerCandidate(ctx context.Context, c Candidate) ([]Constraint, error) {
	return f(ctx, c)
}

// Status is the termination status of a search
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusTimeLimit
	StatusInfeasible
	StatusInterrupted
	StatusNodeLimit
)

// String method for Status enum
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusTimeLimit:
		return "TimeLimit"
	case StatusInfeasible:
		return "Infeasible"
	case StatusInterrupted:
		return "Interrupted"
	case StatusNodeLimit:
		return "NodeLimit"
	default:
		return "Unknown"
	}
}

// Outcome is the result of Engine.Solve
type Outcome struct {
	Status    Status
	Feasible  bool
	Objective float64
	BestBound float64
	Gap       float64
	Nodes     int64
	Values    []float64
	// LazyConstraints counts the constraints added through the handler
	LazyConstraints int
	Elapsed         time.Duration
}

// Value returns the incumbent value of v
func (o *Outcome) Value(v VarID) float64 { return o.Values[v] }

// Engine searches a Model, consulting a LazyHandler at integer candidates
type Engine interface {
	Name() string
	Solve(ctx context.Context, m *Model, handler LazyHandler, params Params) (*Outcome, error)
}

// RelativeGap returns |bound - incumbent| / |incumbent|, +Inf without an incumbent
func RelativeGap(bound, incumbent float64, feasible bool) float64 {
	if !feasible {
		return math.Inf(1)
	}
	denom := math.Max(math.Abs(incumbent), 1e-10)
	return math.Abs(bound-incumbent) / denom
}

// Point is a plain Candidate backed by a value vector
type Point struct {
	X         []float64
	Obj       float64
	BestBound float64
	NodeID    int64
	AtRoot    bool
}

// Value returns the value of v
func (p *Point) Value(v VarID) float64 { return p.X[v] }

// Values returns the value vector
func (p *Point) Values() []float64 { return p.X }

// Objective returns the candidate objective
func (p *Point) Objective() float64 { return p.Obj }

// Bound returns the engine bound at the time the candidate was found
func (p *Point) Bound() float64 { return p.BestBound }

// Node returns the search node that produced the candidate
func (p *Point) Node() int64 { return p.NodeID }

// IsRoot reports whether the candidate was found at the root node
func (p *Point) IsRoot() bool { return p.AtRoot }
