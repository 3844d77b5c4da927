// Package enumerate is a pure-Go branch-and-bound engine for small master
// programs. Every node solves its LP relaxation with the gonum simplex.
package enumerate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/mip"
)

const (
	// DefaultMaxNodes caps the search tree when no limit is configured
	DefaultMaxNodes = 200000

	integralityTolerance = 1e-6
	violationTolerance   = 1e-9
	maxCutRounds         = 10000
)

// Engine explores binary assignments depth-first with LP bounding
type Engine struct {
	logger   *zap.Logger
	maxNodes int64
}

// New creates an engine. maxNodes <= 0 selects DefaultMaxNodes.
func New(logger *zap.Logger, maxNodes int64) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &Engine{logger: logger, maxNodes: maxNodes}
}

var _ mip.Engine = (*Engine)(nil)

// Name returns "enumerate"
func (e *Engine) Name() string { return "enumerate" }

// lazyPool is the engine-side store of constraints added at candidates
type lazyPool struct {
	mu          sync.Mutex
	constraints []mip.Constraint
}

// add appends cuts and reports whether any of them cuts off values
func (pool *lazyPool) add(cuts []mip.Constraint, values []float64) bool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	violated := false
	for _, c := range cuts {
		pool.constraints = append(pool.constraints, c)
		if !c.Satisfied(values, violationTolerance) {
			violated = true
		}
	}
	return violated
}

func (pool *lazyPool) snapshot() []mip.Constraint {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return append([]mip.Constraint(nil), pool.constraints...)
}

func (pool *lazyPool) len() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return len(pool.constraints)
}

// search is the state of one Solve call
type search struct {
	ctx      context.Context
	model    *mip.Model
	handler  mip.LazyHandler
	params   mip.Params
	logger   *zap.Logger
	maxNodes int64

	binaries []mip.VarID
	base     []mip.Constraint
	lazy     lazyPool
	sense    float64
	start    time.Time
	deadline time.Time
	lastLog  time.Time

	nodes        int64
	rootBound    float64
	prunedBound  float64
	incumbent    []float64
	incumbentObj float64
	feasible     bool
	stopped      mip.Status
}

// Solve runs the branch-and-bound
func (e *Engine) Solve(ctx context.Context, m *mip.Model, handler mip.LazyHandler, params mip.Params) (*mip.Outcome, error) {
	s := &search{
		ctx:      ctx,
		model:    m,
		handler:  handler,
		params:   params,
		logger:   e.logger,
		maxNodes: e.maxNodes,
		binaries: m.BinaryVariables(),
		base:     m.Constraints(),
		sense:    1,
		start:    time.Now(),
	}
	if !m.Maximize() {
		s.sense = -1
	}
	s.lastLog = s.start
	s.rootBound = s.sense * math.Inf(1)
	s.prunedBound = s.sense * math.Inf(-1)
	if params.TimeLimit > 0 {
		s.deadline = s.start.Add(params.TimeLimit)
	}
	if params.ImprovementHeuristic {
		e.logger.Info("improvement heuristic not available in the enumerate engine")
	}

	lower := make([]float64, m.NumVariables())
	upper := make([]float64, m.NumVariables())
	for _, v := range m.Variables() {
		lower[v.ID], upper[v.ID] = v.Lower, v.Upper
	}

	if err := s.explore(lower, upper); err != nil {
		return nil, err
	}
	return s.outcome(), nil
}

// better reports whether objective a beats b by more than tol
func (s *search) better(a, b, tol float64) bool {
	return s.sense*(a-b) > tol
}

// pruneTolerance honours the relative gap target around the incumbent
func (s *search) pruneTolerance() float64 {
	return math.Max(violationTolerance, s.params.RelativeGap*math.Abs(s.incumbentObj))
}

func (s *search) stop() bool {
	switch {
	case s.stopped != mip.StatusUnknown:
	case s.ctx.Err() != nil:
		s.stopped = mip.StatusInterrupted
	case !s.deadline.IsZero() && time.Now().After(s.deadline):
		s.stopped = mip.StatusTimeLimit
	case s.nodes >= s.maxNodes:
		s.stopped = mip.StatusNodeLimit
	}
	return s.stopped != mip.StatusUnknown
}

// explore solves one node, re-solving while the handler cuts off its
// integral optimum, and branches on the most fractional binary
func (s *search) explore(lower, upper []float64) error {
	if s.stop() {
		return nil
	}
	node := s.nodes
	s.nodes++
	s.progress()

	var branchVar mip.VarID = -1
	var branchValue float64
	for round := 0; ; round++ {
		if round >= maxCutRounds {
			return fmt.Errorf("node %d: no fixed point after %d cut rounds", node, round)
		}

		constraints := append(append([]mip.Constraint(nil), s.base...), s.lazy.snapshot()...)
		relax, err := solveRelaxation(s.model, lower, upper, constraints)
		if errors.Is(err, errInfeasible) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("node %d: %w", node, err)
		}
		if node == 0 && round == 0 {
			s.rootBound = relax.objective
		}
		if s.feasible && !s.better(relax.objective, s.incumbentObj, s.pruneTolerance()) {
			if s.better(relax.objective, s.prunedBound, 0) {
				s.prunedBound = relax.objective
			}
			return nil
		}

		branchVar, branchValue = s.fractional(relax.values)
		if branchVar >= 0 {
			break
		}

		candidate := &mip.Point{
			X:         relax.values,
			Obj:       relax.objective,
			BestBound: s.rootBound,
			NodeID:    node,
			AtRoot:    node == 0,
		}
		cuts, err := s.handler.OnIntegerCandidate(s.ctx, candidate)
		if err != nil {
			return fmt.Errorf("lazy handler at node %d: %w", node, err)
		}
		if !s.lazy.add(cuts, relax.values) {
			s.accept(relax)
			return nil
		}
	}

	// Visit the child nearest the relaxation value first.
	first := math.Round(branchValue)
	for _, value := range []float64{first, 1 - first} {
		childLower := append([]float64(nil), lower...)
		childUpper := append([]float64(nil), upper...)
		childLower[branchVar], childUpper[branchVar] = value, value
		if err := s.explore(childLower, childUpper); err != nil {
			return err
		}
	}
	return nil
}

// fractional returns the binary farthest from integrality, or -1
func (s *search) fractional(values []float64) (mip.VarID, float64) {
	best, bestDist := mip.VarID(-1), integralityTolerance
	for _, id := range s.binaries {
		if dist := math.Abs(values[id] - math.Round(values[id])); dist > bestDist {
			best, bestDist = id, dist
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, values[best]
}

func (s *search) accept(relax *relaxation) {
	if s.feasible && !s.better(relax.objective, s.incumbentObj, 0) {
		return
	}
	s.incumbent = relax.values
	for _, id := range s.binaries {
		s.incumbent[id] = math.Round(s.incumbent[id])
	}
	s.incumbentObj = relax.objective
	s.feasible = true
	s.logger.Debug("new incumbent", zap.Float64("objective", relax.objective), zap.Int64("nodes", s.nodes))
}

func (s *search) progress() {
	if s.params.LogFrequency <= 0 || time.Since(s.lastLog) < s.params.LogFrequency {
		return
	}
	s.lastLog = time.Now()
	s.logger.Info("search progress",
		zap.Int64("nodes", s.nodes),
		zap.Bool("feasible", s.feasible),
		zap.Float64("incumbent", s.incumbentObj),
		zap.Float64("root_bound", s.rootBound),
		zap.Int("lazy_constraints", s.lazy.len()),
		zap.Duration("elapsed", time.Since(s.start)))
}

func (s *search) outcome() *mip.Outcome {
	out := &mip.Outcome{
		Feasible:        s.feasible,
		Objective:       s.incumbentObj,
		Nodes:           s.nodes,
		Values:          s.incumbent,
		LazyConstraints: s.lazy.len(),
		Elapsed:         time.Since(s.start),
	}

	switch {
	case s.stopped != mip.StatusUnknown:
		out.Status = s.stopped
		out.BestBound = s.rootBound
	case !s.feasible:
		out.Status = mip.StatusInfeasible
		out.BestBound = s.rootBound
	default:
		out.Status = mip.StatusOptimal
		out.BestBound = s.incumbentObj
		if s.better(s.prunedBound, s.incumbentObj, 0) {
			out.BestBound = s.prunedBound
		}
	}
	if !s.feasible {
		out.Objective = math.NaN()
	}
	out.Gap = mip.RelativeGap(out.BestBound, out.Objective, out.Feasible)
	return out
}
