//go:build highs

// Package highs drives the HiGHS MIP solver in a row-generation loop: each
// master optimum is offered to the lazy handler as an integer candidate and
// re-solved with the returned constraints until none is violated.
package highs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lanl/highs"
	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/mip"
)

const violationTolerance = 1e-9

// defaultRelativeGap is the mip_rel_gap HiGHS applies to every master solve.
// The Model interface of the bindings has no option setters, so a requested
// gap other than this one is reported and ignored.
const defaultRelativeGap = 1e-4

// Engine solves master programs with HiGHS
type Engine struct {
	logger *zap.Logger
}

// New creates a HiGHS engine
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

var _ mip.Engine = (*Engine)(nil)

// Name returns "highs"
func (e *Engine) Name() string { return "highs" }

// Solve runs the row-generation loop. The time limit and the context are
// checked between master solves, so a single master solve can run past the
// limit. Every master solve uses HiGHS's own relative gap.
func (e *Engine) Solve(ctx context.Context, m *mip.Model, handler mip.LazyHandler, params mip.Params) (*mip.Outcome, error) {
	start := time.Now()
	if params.ImprovementHeuristic {
		e.logger.Info("improvement heuristic not exposed by the highs bindings")
	}
	if params.RelativeGap > 0 && params.RelativeGap != defaultRelativeGap {
		e.logger.Warn("relative gap not exposed by the highs bindings, using the solver default",
			zap.Float64("requested", params.RelativeGap),
			zap.Float64("used", defaultRelativeGap))
	}

	model := buildModel(m)
	out := &mip.Outcome{Status: mip.StatusUnknown, BestBound: math.Inf(1), Objective: math.NaN()}
	if !m.Maximize() {
		out.BestBound = math.Inf(-1)
	}

	rootBound, ok, err := solveRelaxation(model)
	if err != nil {
		return nil, err
	}
	if !ok {
		out.Status = mip.StatusInfeasible
		out.Gap = math.Inf(1)
		out.Elapsed = time.Since(start)
		return out, nil
	}
	out.BestBound = rootBound
	e.logger.Info("root relaxation solved", zap.Float64("bound", rootBound), zap.Duration("elapsed", time.Since(start)))

	lastLog := start
	for iteration := int64(0); ; iteration++ {
		switch {
		case ctx.Err() != nil:
			out.Status = mip.StatusInterrupted
		case params.TimeLimit > 0 && time.Since(start) > params.TimeLimit:
			out.Status = mip.StatusTimeLimit
		}
		if out.Status != mip.StatusUnknown {
			break
		}

		sol, err := model.Solve()
		if err != nil {
			return nil, fmt.Errorf("highs solve at iteration %d: %w", iteration, err)
		}
		out.Nodes = iteration + 1
		if sol.Status != highs.Optimal {
			e.logger.Warn("master not optimal", zap.Any("status", sol.Status))
			out.Status = mip.StatusInfeasible
			break
		}
		// Every master optimum bounds the true optimum since lazy cuts are valid.
		out.BestBound = sol.Objective

		candidate := &mip.Point{
			X:         sol.ColumnPrimal,
			Obj:       sol.Objective,
			BestBound: out.BestBound,
			NodeID:    iteration,
			AtRoot:    iteration == 0,
		}
		cuts, err := handler.OnIntegerCandidate(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("lazy handler at iteration %d: %w", iteration, err)
		}

		violated := false
		for _, c := range cuts {
			addRow(model, c)
			out.LazyConstraints++
			if !c.Satisfied(sol.ColumnPrimal, violationTolerance) {
				violated = true
			}
		}
		if !violated {
			out.Status = mip.StatusOptimal
			out.Feasible = true
			out.Objective = sol.Objective
			out.Values = sol.ColumnPrimal
			break
		}

		if params.LogFrequency > 0 && time.Since(lastLog) >= params.LogFrequency {
			lastLog = time.Now()
			e.logger.Info("row generation progress",
				zap.Int64("iteration", iteration),
				zap.Float64("bound", out.BestBound),
				zap.Int("lazy_constraints", out.LazyConstraints),
				zap.Duration("elapsed", time.Since(start)))
		}
	}

	out.Gap = mip.RelativeGap(out.BestBound, out.Objective, out.Feasible)
	out.Elapsed = time.Since(start)
	return out, nil
}

// buildModel translates a mip.Model into a HiGHS model
func buildModel(m *mip.Model) *highs.Model {
	n := m.NumVariables()
	model := &highs.Model{
		Maximize: m.Maximize(),
		ColCosts: make([]float64, n),
		ColLower: make([]float64, n),
		ColUpper: make([]float64, n),
		VarTypes: make([]highs.VariableType, n),
	}
	for _, v := range m.Variables() {
		model.ColLower[v.ID] = v.Lower
		model.ColUpper[v.ID] = v.Upper
		// the zero VariableType is continuous
		if v.Kind == mip.Binary {
			model.VarTypes[v.ID] = highs.IntegerType
		}
	}
	for _, t := range m.Objective().Compact().Terms {
		model.ColCosts[t.Var] = t.Coef
	}
	for _, c := range m.Constraints() {
		addRow(model, c)
	}
	return model
}

// addRow appends a constraint as a ranged row
func addRow(model *highs.Model, c mip.Constraint) {
	row := len(model.RowLower)
	for _, t := range c.Expr.Compact().Terms {
		model.ConstMatrix = append(model.ConstMatrix, highs.Nonzero{Row: row, Col: int(t.Var), Val: t.Coef})
	}
	lower, upper := math.Inf(-1), math.Inf(1)
	switch c.Sense {
	case mip.LessEqual:
		upper = c.RHS
	case mip.GreaterEqual:
		lower = c.RHS
	case mip.Equal:
		lower, upper = c.RHS, c.RHS
	}
	model.RowLower = append(model.RowLower, lower)
	model.RowUpper = append(model.RowUpper, upper)
}

// solveRelaxation solves model with every integrality requirement dropped
// and reports whether it reached optimality
func solveRelaxation(model *highs.Model) (float64, bool, error) {
	relaxed := *model
	relaxed.VarTypes = nil
	sol, err := relaxed.Solve()
	if err != nil {
		return 0, false, fmt.Errorf("highs root relaxation: %w", err)
	}
	return sol.Objective, sol.Status == highs.Optimal, nil
}
