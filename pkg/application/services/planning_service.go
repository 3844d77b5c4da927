package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/application/dto"
	"github.com/vsinha/endoplan/pkg/benders"
	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/repositories"
	domainservices "github.com/vsinha/endoplan/pkg/domain/services"
	"github.com/vsinha/endoplan/pkg/infrastructure/events"
	"github.com/vsinha/endoplan/pkg/infrastructure/metrics"
	"github.com/vsinha/endoplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/endoplan/pkg/infrastructure/repositories/json"
	"github.com/vsinha/endoplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/endoplan/pkg/mip"
)

// PlanningService loads instances and runs the decomposition on them. Every
// run gets its own id, cut pool and event stream.
type PlanningService struct {
	engine  mip.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   events.EventStore
	loaders map[string]repositories.InstanceLoader
}

// ServiceOption configures a PlanningService
type ServiceOption func(*PlanningService)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *PlanningService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics reports solver diagnostics to m
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *PlanningService) { s.metrics = m }
}

// WithEventStore records run events in store instead of a private in-memory store
func WithEventStore(store events.EventStore) ServiceOption {
	return func(s *PlanningService) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLevelOffset makes the file loaders subtract offset from every level upper bound
func WithLevelOffset(offset float64) ServiceOption {
	return func(s *PlanningService) {
		s.loaders["csv"] = csv.NewLoader(offset)
		s.loaders["json"] = json.NewLoader(offset)
	}
}

// WithLoader registers a loader for a format name
func WithLoader(format string, loader repositories.InstanceLoader) ServiceOption {
	return func(s *PlanningService) { s.loaders[strings.ToLower(format)] = loader }
}

// NewPlanningService creates a service on top of an engine
func NewPlanningService(engine mip.Engine, opts ...ServiceOption) *PlanningService {
	s := &PlanningService{
		engine: engine,
		logger: zap.NewNop(),
		loaders: map[string]repositories.InstanceLoader{
			"csv":  csv.NewLoader(0),
			"json": json.NewLoader(0),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = events.NewInMemoryEventStore(s.logger)
	}
	return s
}

// Events returns the event store runs are recorded in
func (s *PlanningService) Events() events.EventStore { return s.store }

// LoadInstance reads an instance with the loader of format, or of the file
// extension when format is empty.
func (s *PlanningService) LoadInstance(path, format string) (*entities.Instance, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	loader, ok := s.loaders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no loader for format %q of %s", format, path)
	}
	inst, err := loader.LoadInstance(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load instance: %w", err)
	}
	s.logger.Info("instance loaded",
		zap.String("instance", inst.Name()),
		zap.Int("facilities", inst.NumFacilities()),
		zap.Int("products", inst.NumProducts()),
		zap.Int("max_distributions", inst.MaxDistributions()),
		zap.Int("max_scenarios", inst.MaxScenarios()))
	return inst, nil
}

// Solve loads the instance at path and solves it
func (s *PlanningService) Solve(ctx context.Context, path, format string, opts benders.Options) (*dto.SolveResult, error) {
	inst, err := s.LoadInstance(path, format)
	if err != nil {
		return nil, err
	}
	return s.SolveInstance(ctx, inst, opts)
}

// SolveInstance runs the decomposition on inst
func (s *PlanningService) SolveInstance(ctx context.Context, inst *entities.Instance, opts benders.Options) (*dto.SolveResult, error) {
	runID, sol, pool, err := s.run(ctx, inst, opts)
	if err != nil {
		return nil, err
	}
	return buildSolveResult(runID, sol, pool, s.replay(runID)), nil
}

// replay reads back the event stream of a run
func (s *PlanningService) replay(runID string) []dto.RunEvent {
	recorded, err := s.store.ReadEvents(runID, 1)
	if err != nil {
		s.logger.Warn("failed to replay run events", zap.String("run_id", runID), zap.Error(err))
		return nil
	}
	timeline := make([]dto.RunEvent, 0, len(recorded))
	for _, event := range recorded {
		timeline = append(timeline, dto.RunEvent{
			Version: event.Version(),
			Type:    event.Type(),
			At:      event.Timestamp(),
		})
	}
	return timeline
}

func (s *PlanningService) run(ctx context.Context, inst *entities.Instance, opts benders.Options) (string, *benders.Solution, *memory.CutRepository, error) {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("instance", inst.Name()))
	pool := memory.NewCutRepository(inst.NumProducts())

	solver := benders.NewSolver(s.engine,
		benders.WithLogger(logger),
		benders.WithMetrics(s.metrics),
		benders.WithPool(pool),
		benders.WithObserver(events.NewSolveRecorder(s.store, runID, inst, logger)))

	sol, err := solver.Solve(ctx, inst, opts)
	if err != nil {
		return "", nil, nil, fmt.Errorf("run %s on %s: %w", runID, inst.Name(), err)
	}
	return runID, sol, pool, nil
}

// ComputeEEV solves the expected-value instance ev, fixes its first-stage
// plan and evaluates that plan on the stochastic instance inst. The EV run
// uses the last valid inequality and no covers.
func (s *PlanningService) ComputeEEV(ctx context.Context, inst, ev *entities.Instance, mode string, opts benders.Options) (*dto.EEVResult, error) {
	if ev.NumProducts() != inst.NumProducts() || ev.NumFacilities() != inst.NumFacilities() {
		return nil, fmt.Errorf("EV instance %s is %dx%d, stochastic instance %s is %dx%d",
			ev.Name(), ev.NumProducts(), ev.NumFacilities(), inst.Name(), inst.NumProducts(), inst.NumFacilities())
	}

	evOpts := benders.Options{
		ValidInequalities: []benders.ValidInequality{benders.VI6},
		Params:            opts.Params,
	}
	runID, sol, pool, err := s.run(ctx, ev, evOpts)
	if err != nil {
		return nil, fmt.Errorf("EV problem: %w", err)
	}
	if sol.Plan == nil {
		return nil, fmt.Errorf("EV problem %s ended %s without a feasible plan", ev.Name(), sol.Outcome.Status)
	}

	cost, profit, err := domainservices.NewEvaluator(inst).PlanValue(sol.Plan)
	if err != nil {
		return nil, fmt.Errorf("EV plan on %s: %w", inst.Name(), err)
	}

	result := &dto.EEVResult{
		RunID:               runID,
		Instance:            inst.Name(),
		Mode:                mode,
		Size:                sizeOf(inst),
		EV:                  buildSolveResult(runID, sol, pool, s.replay(runID)),
		FirstStageCost:      decimal.NewFromFloat(cost),
		ExpectedSecondStage: decimal.NewFromFloat(profit),
		EEV:                 decimal.NewFromFloat(profit).Sub(decimal.NewFromFloat(cost)),
	}
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		d, err := inst.EnforcedDistribution(p, func(f entities.FacilityID, l entities.LevelID) bool {
			return sol.Plan.Level(p, f) == l
		})
		if err != nil {
			return nil, err
		}
		result.Distributions = append(result.Distributions, inst.DistributionName(p, d))
	}

	s.logger.Info("EEV computed",
		zap.String("run_id", runID),
		zap.String("instance", inst.Name()),
		zap.String("mode", mode),
		zap.String("eev", result.EEV.StringFixed(4)))
	return result, nil
}

func sizeOf(inst *entities.Instance) dto.InstanceSize {
	return dto.InstanceSize{
		Products:         inst.NumProducts(),
		Facilities:       inst.NumFacilities(),
		MaxDistributions: inst.MaxDistributions(),
		MaxScenarios:     inst.MaxScenarios(),
	}
}

func buildSolveResult(runID string, sol *benders.Solution, pool benders.CutPool, timeline []dto.RunEvent) *dto.SolveResult {
	inst := sol.Instance
	out := sol.Outcome
	result := &dto.SolveResult{
		RunID:               runID,
		Instance:            inst.Name(),
		Experiment:          sol.Experiment,
		Engine:              sol.Engine,
		Size:                sizeOf(inst),
		Status:              out.Status.String(),
		Feasible:            out.Feasible,
		Objective:           out.Objective,
		BestBound:           out.BestBound,
		Gap:                 out.Gap,
		Nodes:               out.Nodes,
		BuildTime:           sol.BuildTime,
		SolveTime:           sol.SolveTime,
		CallbackTime:        sol.Stats.CallbackTime,
		RootCaptured:        sol.Stats.RootCaptured,
		RootBound:           sol.Stats.RootBound,
		RootTime:            sol.Stats.RootTime,
		Cuts:                sol.Stats.Cuts,
		CutsByProduct:       make(map[string]int, inst.NumProducts()),
		Candidates:          sol.Stats.Candidates,
		ValidInequalities:   sol.ValidInequalities,
		CoverInequalities:   make(map[string]int),
		FirstStageCost:      decimal.NewFromFloat(sol.FirstStageCost),
		ExpectedSecondStage: decimal.NewFromFloat(sol.ExpectedSecondStage),
		Events:              timeline,
	}
	for _, ci := range sol.CoverInequalities {
		result.CoverInequalities[ci.Kind.String()]++
	}
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		result.CutsByProduct[inst.ProductName(p)] = len(pool.ByProduct(p))
	}

	if sol.Plan == nil {
		return result
	}
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			l := sol.Plan.Level(p, f)
			result.Plan = append(result.Plan, dto.PlanEntry{
				Product:    inst.ProductName(p),
				Facility:   inst.FacilityName(f),
				Level:      int(l),
				LowerBound: inst.LevelLowerBound(f, p, l),
				UpperBound: inst.LevelUpperBound(f, p, l),
				Quantity:   sol.Plan.Quantity(p, f),
			})
		}
	}
	for _, report := range sol.SecondStage {
		line := dto.ProductSecondStage{
			Product:        inst.ProductName(report.Product),
			Distribution:   inst.DistributionName(report.Product, report.Distribution),
			Phi:            report.Phi,
			ExpectedProfit: decimal.NewFromFloat(report.ExpectedProfit),
		}
		for _, sc := range report.Scenarios {
			line.Scenarios = append(line.Scenarios, dto.ScenarioLine{
				Scenario:    int(sc.Scenario),
				Probability: sc.Probability,
				Demand:      sc.Demand,
				Production:  sc.TotalProduction,
				Sales:       sc.Sales,
				Oversupply:  sc.Oversupply,
				Profit:      sc.Profit,
			})
		}
		result.SecondStage = append(result.SecondStage, line)
	}
	return result
}
