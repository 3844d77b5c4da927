package benders

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/services"
	"github.com/vsinha/endoplan/pkg/infrastructure/metrics"
	"github.com/vsinha/endoplan/pkg/mip"
)

// Options selects the master strengthening and the engine parameters
type Options struct {
	ValidInequalities []ValidInequality
	Covers            CoverOptions
	Params            mip.Params
}

// ScenarioReport is the replayed second stage of one scenario
type ScenarioReport struct {
	Scenario    entities.ScenarioID
	Probability float64
	Demand      float64
	services.ScenarioOutcome
}

// ProductReport is the replayed second stage of one product
type ProductReport struct {
	Product        entities.ProductID
	Distribution   entities.DistributionID
	Phi            float64
	ExpectedProfit float64
	Scenarios      []ScenarioReport
}

// Solution is the result of a decomposition run
type Solution struct {
	Instance   *entities.Instance
	Experiment string
	Engine     string
	Outcome    *mip.Outcome
	// Plan and SecondStage are nil when no feasible point was found
	Plan                *entities.ProductionPlan
	SecondStage         []ProductReport
	Stats               SeparatorStats
	ValidInequalities   int
	CoverInequalities   []CoverInequality
	FirstStageCost      float64
	ExpectedSecondStage float64
	BuildTime           time.Duration
	SolveTime           time.Duration
}

// Solver builds the strengthened master and drives an engine over it
type Solver struct {
	engine   mip.Engine
	logger   *zap.Logger
	metrics  *metrics.Metrics
	pool     CutPool
	observer Observer
}

// Option configures a Solver
type Option func(*Solver)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics reports diagnostics to m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Solver) { s.metrics = m }
}

// WithPool records every generated cut in pool
func WithPool(pool CutPool) Option {
	return func(s *Solver) { s.pool = pool }
}

// WithObserver notifies o of solve milestones
func WithObserver(o Observer) Option {
	return func(s *Solver) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewSolver creates a solver on top of an engine
func NewSolver(engine mip.Engine, opts ...Option) *Solver {
	s := &Solver{engine: engine, logger: zap.NewNop(), observer: noopObserver{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve runs the decomposition on an instance
func (s *Solver) Solve(ctx context.Context, inst *entities.Instance, opts Options) (*Solution, error) {
	buildStart := time.Now()
	master, err := NewMasterProblem(inst, s.logger)
	if err != nil {
		return nil, err
	}

	nVI := 0
	for _, vi := range opts.ValidInequalities {
		n, err := master.AddValidInequality(vi)
		if err != nil {
			return nil, err
		}
		nVI += n
	}

	covers, err := master.AddCoverInequalities(ctx, services.NewCoverFinder(inst, s.logger), opts.Covers, s.observer)
	if err != nil {
		return nil, err
	}
	perKind := make(map[CoverKind]int)
	for _, ci := range covers {
		perKind[ci.Kind]++
	}
	for kind, n := range perKind {
		s.metrics.CoverInequalitiesAdded(kind.String(), n)
	}

	model := master.Model()
	s.observer.MasterBuilt(master.Experiment(), model.NumVariables(), model.NumConstraints())
	buildTime := time.Since(buildStart)

	separator := NewCutSeparator(master,
		WithCutPool(s.pool),
		WithSeparatorMetrics(s.metrics),
		WithSeparatorObserver(s.observer),
		WithSeparatorLogger(s.logger))

	s.logger.Info("starting search",
		zap.String("experiment", master.Experiment()),
		zap.String("engine", s.engine.Name()),
		zap.Duration("time_limit", opts.Params.TimeLimit),
		zap.Float64("target_gap", opts.Params.RelativeGap))

	solveStart := time.Now()
	outcome, err := s.engine.Solve(ctx, model, separator, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("engine %s failed: %w", s.engine.Name(), err)
	}

	sol := &Solution{
		Instance:          inst,
		Experiment:        master.Experiment(),
		Engine:            s.engine.Name(),
		Outcome:           outcome,
		Stats:             separator.Stats(),
		ValidInequalities: nVI,
		CoverInequalities: covers,
		BuildTime:         buildTime,
		SolveTime:         time.Since(solveStart),
	}
	if outcome.Feasible {
		if err := s.replay(master, sol); err != nil {
			return nil, err
		}
	}

	s.metrics.SolveCompleted(outcome.Status.String())
	s.observer.SolveCompleted(sol)
	s.logger.Info("search finished",
		zap.Stringer("status", outcome.Status),
		zap.Float64("objective", outcome.Objective),
		zap.Float64("best_bound", outcome.BestBound),
		zap.Float64("gap", outcome.Gap),
		zap.Int64("nodes", outcome.Nodes),
		zap.Int64("cuts", sol.Stats.Cuts),
		zap.Duration("elapsed", sol.SolveTime))
	return sol, nil
}

// replay recovers the plan and the second stage of the incumbent
func (s *Solver) replay(master *MasterProblem, sol *Solution) error {
	inst := master.Instance()
	values := sol.Outcome.Values
	plan, err := master.Plan(values)
	if err != nil {
		return fmt.Errorf("failed to read incumbent plan: %w", err)
	}
	sol.Plan = plan

	evaluator := services.NewEvaluator(inst)
	validation := services.NewPlanValidator(inst).ValidatePlan(plan)
	if !validation.Valid() {
		s.logger.Warn("incumbent violates plan checks", zap.Strings("errors", validation.Errors))
	}

	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		d := validation.EnforcedDistributions[p]
		if d < 0 {
			return fmt.Errorf("%w: product %s in incumbent", entities.ErrNoEnforcedDistribution, p)
		}
		x := plan.Quantities(p)
		for f := range inst.NumFacilities() {
			sol.FirstStageCost += inst.ManufacturingCost(entities.FacilityID(f), p) * x[f]
		}

		report := ProductReport{
			Product:      p,
			Distribution: d,
			Phi:          values[master.Phi(p)],
			Scenarios:    make([]ScenarioReport, inst.NumScenarios(p, d)),
		}
		for k := range report.Scenarios {
			sc := entities.ScenarioID(k)
			out := evaluator.Evaluate(p, d, sc, x)
			prob := inst.Probability(p, d, sc)
			report.Scenarios[k] = ScenarioReport{Scenario: sc, Probability: prob, Demand: inst.Demand(p, d, sc), ScenarioOutcome: out}
			report.ExpectedProfit += prob * out.Profit
		}
		sol.ExpectedSecondStage += report.ExpectedProfit
		sol.SecondStage = append(sol.SecondStage, report)
	}
	return nil
}
