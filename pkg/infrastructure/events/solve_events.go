package events

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/benders"
	"github.com/vsinha/endoplan/pkg/domain/entities"
)

const (
	MasterBuiltEvent    = "master.built"
	CoverFoundEvent     = "cover.found"
	CutAddedEvent       = "cut.added"
	SolveCompletedEvent = "solve.completed"
)

// AllSolveEvents lists every event type a SolveRecorder emits
var AllSolveEvents = []string{MasterBuiltEvent, CoverFoundEvent, CutAddedEvent, SolveCompletedEvent}

type MasterBuilt struct {
	Experiment  string `json:"experiment"`
	Variables   int    `json:"variables"`
	Constraints int    `json:"constraints"`
}

type CoverFound struct {
	Facility     string  `json:"facility"`
	Cover        string  `json:"cover"`
	Size         int     `json:"size"`
	Weight       float64 `json:"weight"`
	Inequalities int     `json:"inequalities"`
}

type CutAdded struct {
	Product        string  `json:"product"`
	Distribution   string  `json:"distribution"`
	Node           int64   `json:"node"`
	Phi            float64 `json:"phi"`
	ExpectedProfit float64 `json:"expected_profit"`
}

type SolveCompleted struct {
	Experiment string  `json:"experiment"`
	Engine     string  `json:"engine"`
	Status     string  `json:"status"`
	Feasible   bool    `json:"feasible"`
	Objective  float64 `json:"objective"`
	BestBound  float64 `json:"best_bound"`
	Gap        float64 `json:"gap"`
	Nodes      int64   `json:"nodes"`
	Cuts       int64   `json:"cuts"`
}

// SolveRecorder turns solve milestones into events on one stream
type SolveRecorder struct {
	store    EventStore
	streamID string
	instance *entities.Instance
	logger   *zap.Logger
}

// NewSolveRecorder creates a recorder appending to streamID
func NewSolveRecorder(store EventStore, streamID string, instance *entities.Instance, logger *zap.Logger) *SolveRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolveRecorder{store: store, streamID: streamID, instance: instance, logger: logger}
}

var _ benders.Observer = (*SolveRecorder)(nil)

func (r *SolveRecorder) MasterBuilt(experiment string, variables, constraints int) {
	r.append(MasterBuiltEvent, MasterBuilt{Experiment: experiment, Variables: variables, Constraints: constraints})
}

func (r *SolveRecorder) CoverFound(cover *entities.Cover, inequalities int) {
	r.append(CoverFoundEvent, CoverFound{
		Facility:     r.instance.FacilityName(cover.Facility),
		Cover:        cover.String(),
		Size:         cover.Size(),
		Weight:       cover.Weight,
		Inequalities: inequalities,
	})
}

func (r *SolveRecorder) CutAdded(cut benders.Cut) {
	r.append(CutAddedEvent, CutAdded{
		Product:        r.instance.ProductName(cut.Product),
		Distribution:   r.instance.DistributionName(cut.Product, cut.Distribution),
		Node:           cut.Node,
		Phi:            cut.Phi,
		ExpectedProfit: cut.ExpectedProfit,
	})
}

func (r *SolveRecorder) SolveCompleted(sol *benders.Solution) {
	out := sol.Outcome
	r.append(SolveCompletedEvent, SolveCompleted{
		Experiment: sol.Experiment,
		Engine:     sol.Engine,
		Status:     out.Status.String(),
		Feasible:   out.Feasible,
		Objective:  out.Objective,
		BestBound:  out.BestBound,
		Gap:        out.Gap,
		Nodes:      out.Nodes,
		Cuts:       sol.Stats.Cuts,
	})
}

func (r *SolveRecorder) append(eventType string, data any) {
	if err := r.store.AppendEvent(r.streamID, NewEvent(eventType, r.streamID, data)); err != nil {
		r.logger.Warn("failed to record event", zap.String("type", eventType), zap.Error(err))
	}
}

// ProgressLogger logs the milestones of a run as they are recorded. Cut
// events are logged at debug level.
type ProgressLogger struct {
	logger *zap.Logger
}

// NewProgressLogger creates a handler logging to logger
func NewProgressLogger(logger *zap.Logger) *ProgressLogger {
	return &ProgressLogger{logger: logger}
}

var _ EventHandler = (*ProgressLogger)(nil)

// CanHandle reports whether eventType is a solve event
func (h *ProgressLogger) CanHandle(eventType string) bool {
	for _, t := range AllSolveEvents {
		if t == eventType {
			return true
		}
	}
	return false
}

// Handle logs one event
func (h *ProgressLogger) Handle(event Event) error {
	run := zap.String("run", event.StreamID())
	switch data := event.Data().(type) {
	case MasterBuilt:
		h.logger.Info("master built", run, zap.String("experiment", data.Experiment),
			zap.Int("variables", data.Variables), zap.Int("constraints", data.Constraints))
	case CoverFound:
		h.logger.Info("cover found", run, zap.String("cover", data.Cover), zap.Int("inequalities", data.Inequalities))
	case CutAdded:
		h.logger.Debug("cut added", run, zap.String("product", data.Product),
			zap.String("distribution", data.Distribution), zap.Int64("node", data.Node))
	case SolveCompleted:
		h.logger.Info("solve completed", run, zap.String("status", data.Status),
			zap.Float64("objective", data.Objective), zap.Float64("gap", data.Gap), zap.Int64("cuts", data.Cuts))
	default:
		return fmt.Errorf("unexpected payload %T for %s", event.Data(), event.Type())
	}
	return nil
}
