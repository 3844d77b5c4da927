package benders

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/services"
	"github.com/vsinha/endoplan/pkg/infrastructure/metrics"
	"github.com/vsinha/endoplan/pkg/mip"
)

// cutTolerance is how far phi may exceed the closed-form expected profit
// before a cut is generated
const cutTolerance = 1e-9

// SeparatorStats is a snapshot of the separator diagnostics
type SeparatorStats struct {
	Cuts         int64
	Candidates   int64
	CallbackTime time.Duration
	RootCaptured bool
	RootBound    float64
	RootTime     time.Duration
}

// CutSeparator generates Big-M optimality cuts at integer candidates. It is
// reentrant: each call works on its own scratch state and the diagnostics are
// atomic, so engines may invoke it from several workers at once.
type CutSeparator struct {
	master    *MasterProblem
	evaluator *services.Evaluator
	pool      CutPool
	metrics   *metrics.Metrics
	observer  Observer
	logger    *zap.Logger
	started   time.Time

	cuts          atomic.Int64
	candidates    atomic.Int64
	callbackNanos atomic.Int64
	rootClaimed   atomic.Bool
	rootCaptured  atomic.Bool
	rootBound     atomic.Uint64
	rootNanos     atomic.Int64
}

// SeparatorOption configures a CutSeparator
type SeparatorOption func(*CutSeparator)

// WithCutPool records every generated cut in pool
func WithCutPool(pool CutPool) SeparatorOption {
	return func(s *CutSeparator) { s.pool = pool }
}

// WithSeparatorMetrics reports callback diagnostics to m
func WithSeparatorMetrics(m *metrics.Metrics) SeparatorOption {
	return func(s *CutSeparator) { s.metrics = m }
}

// WithSeparatorObserver notifies o of every generated cut
func WithSeparatorObserver(o Observer) SeparatorOption {
	return func(s *CutSeparator) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSeparatorLogger sets the logger
func WithSeparatorLogger(logger *zap.Logger) SeparatorOption {
	return func(s *CutSeparator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCutSeparator creates a separator for a master problem. The root-time
// clock starts here.
func NewCutSeparator(master *MasterProblem, opts ...SeparatorOption) *CutSeparator {
	s := &CutSeparator{
		master:    master,
		evaluator: services.NewEvaluator(master.Instance()),
		observer:  noopObserver{},
		logger:    zap.NewNop(),
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ mip.LazyHandler = (*CutSeparator)(nil)

// OnIntegerCandidate returns one optimality cut for every product whose phi
// overestimates the expected profit of its enforced distribution
func (s *CutSeparator) OnIntegerCandidate(ctx context.Context, c mip.Candidate) ([]mip.Constraint, error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		s.callbackNanos.Add(int64(elapsed))
		s.metrics.CandidateSeparated(elapsed)
	}()

	s.candidates.Add(1)
	if c.IsRoot() {
		s.captureRoot(c.Bound())
	}

	inst := s.master.Instance()
	values := c.Values()
	var constraints []mip.Constraint
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		cut, err := s.Separate(p, values)
		if err != nil {
			return nil, fmt.Errorf("separation at node %d failed: %w", c.Node(), err)
		}
		if cut == nil {
			continue
		}
		cut.Node = c.Node()
		if s.pool != nil {
			if err := s.pool.Add(*cut); err != nil {
				return nil, fmt.Errorf("failed to record cut for product %s: %w", p, err)
			}
		}
		s.cuts.Add(1)
		s.metrics.CutAdded(inst.ProductName(p))
		s.observer.CutAdded(*cut)
		s.logger.Debug("optimality cut",
			zap.Stringer("product", p),
			zap.Stringer("distribution", cut.Distribution),
			zap.Int64("node", cut.Node),
			zap.Float64("phi", cut.Phi),
			zap.Float64("expected_profit", cut.ExpectedProfit))
		constraints = append(constraints, cut.Constraint)
	}
	return constraints, nil
}

// Separate checks product p at a candidate and returns the violated cut, or
// nil when phi is already consistent with the closed-form expected profit
func (s *CutSeparator) Separate(p entities.ProductID, values []float64) (*Cut, error) {
	inst := s.master.Instance()
	d, err := inst.EnforcedDistribution(p, func(f entities.FacilityID, l entities.LevelID) bool {
		return s.master.LevelActive(values, p, f, l)
	})
	if err != nil {
		return nil, err
	}

	x := s.master.Quantities(p, values)
	expected := s.evaluator.ExpectedProfit(p, d, x)
	phi := values[s.master.Phi(p)]
	if phi <= expected+cutTolerance {
		return nil, nil
	}

	return &Cut{
		Product:        p,
		Distribution:   d,
		Phi:            phi,
		ExpectedProfit: expected,
		Constraint:     s.master.OptimalityCut(p, d, x),
	}, nil
}

// OptimalityCut linearizes the expected profit of p under d around the
// quantities x and guards it with Big-M terms on d's level indicators:
//
//	phi[p] + M·Σ_f y[p,f,level(d,f)] - Σ_f c_f·x[p,f] <= RHS + M·|F|
//
// M is the instance's DisjunctionBound, so the cut is slack at every point
// that enforces another distribution.
//
// Scenarios whose demand is covered by the production at x contribute the
// leftover slope and a demand term to RHS, the others the sales price slope.
func (m *MasterProblem) OptimalityCut(p entities.ProductID, d entities.DistributionID, x []float64) mip.Constraint {
	inst := m.instance
	nF := inst.NumFacilities()
	price, leftover := inst.SalesPrice(p), inst.LeftoverValue(p)

	slopes := make([]float64, nF)
	rhs := 0.0
	for k := range inst.NumScenarios(p, d) {
		sc := entities.ScenarioID(k)
		prob := inst.Probability(p, d, sc)
		demand := inst.Demand(p, d, sc)

		total := 0.0
		for f := range nF {
			total += inst.Yield(p, d, entities.FacilityID(f), sc) * x[f]
		}

		unit := price
		if demand <= total {
			rhs += prob * (price - leftover) * demand
			unit = leftover
		}
		for f := range nF {
			slopes[f] += prob * unit * inst.Yield(p, d, entities.FacilityID(f), sc)
		}
	}

	bigM := inst.DisjunctionBound(p)
	expr := mip.NewLinExpr(2*nF + 1)
	expr.Add(m.Phi(p), 1)
	for j := range nF {
		f := entities.FacilityID(j)
		expr.Add(m.Y(p, f, inst.DistributionLevel(p, d, f)), bigM)
	}
	for j := range nF {
		f := entities.FacilityID(j)
		expr.Add(m.X(p, f), -slopes[f])
	}
	return mip.Le(fmt.Sprintf("optcut_%s_%s", p, d), expr, rhs+bigM*float64(nF))
}

// captureRoot records the first root-node bound and the time it took to get there
func (s *CutSeparator) captureRoot(bound float64) {
	if !s.rootClaimed.CompareAndSwap(false, true) {
		return
	}
	elapsed := time.Since(s.started)
	s.rootBound.Store(math.Float64bits(bound))
	s.rootNanos.Store(int64(elapsed))
	s.rootCaptured.Store(true)
	s.logger.Info("root node reached", zap.Float64("bound", bound), zap.Duration("elapsed", elapsed))
}

// Stats returns a snapshot of the diagnostics counters
func (s *CutSeparator) Stats() SeparatorStats {
	stats := SeparatorStats{
		Cuts:         s.cuts.Load(),
		Candidates:   s.candidates.Load(),
		CallbackTime: time.Duration(s.callbackNanos.Load()),
		RootCaptured: s.rootCaptured.Load(),
		RootBound:    math.NaN(),
	}
	if stats.RootCaptured {
		stats.RootBound = math.Float64frombits(s.rootBound.Load())
		stats.RootTime = time.Duration(s.rootNanos.Load())
	}
	return stats
}
