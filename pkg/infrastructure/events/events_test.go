package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vsinha/endoplan/pkg/benders"
	"github.com/vsinha/endoplan/pkg/infrastructure/solvers/enumerate"
	testhelpers "github.com/vsinha/endoplan/pkg/infrastructure/testing"
)

type countingHandler struct {
	mu     sync.Mutex
	seen   []string
	accept string
	err    error
}

func (h *countingHandler) Handle(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event.Type())
	return h.err
}

func (h *countingHandler) CanHandle(eventType string) bool { return eventType == h.accept }

func TestInMemoryEventStore_AppendAndRead(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	require.NoError(t, store.AppendEvent("run-1", NewEvent(MasterBuiltEvent, "run-1", MasterBuilt{Experiment: "bdscV1"})))
	require.NoError(t, store.AppendEvent("run-2", NewEvent(MasterBuiltEvent, "run-2", MasterBuilt{})))
	require.NoError(t, store.AppendEvent("run-1", NewEvent(SolveCompletedEvent, "run-1", SolveCompleted{Status: "Optimal"})))

	events, err := store.ReadEvents("run-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version())
	assert.Equal(t, 2, events[1].Version())
	assert.Equal(t, SolveCompletedEvent, events[1].Type())
	assert.Equal(t, "bdscV1", events[0].Data().(MasterBuilt).Experiment)

	later, err := store.ReadEvents("run-1", 2)
	require.NoError(t, err)
	assert.Len(t, later, 1)

	none, err := store.ReadEvents("run-1", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := store.ReadAllEvents(1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-2", all[0].StreamID())

	assert.Error(t, store.AppendEvent("", NewEvent(CutAddedEvent, "", CutAdded{})))
}

func TestInMemoryEventStore_Subscribers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := NewInMemoryEventStore(zap.New(core))

	cuts := &countingHandler{accept: CutAddedEvent}
	failing := &countingHandler{accept: SolveCompletedEvent, err: errors.New("sink closed")}
	require.NoError(t, store.Subscribe([]string{CutAddedEvent}, cuts))
	require.NoError(t, store.Subscribe([]string{SolveCompletedEvent}, failing))
	assert.Error(t, store.Subscribe([]string{CutAddedEvent}, nil))

	require.NoError(t, store.AppendEvent("run", NewEvent(CutAddedEvent, "run", CutAdded{})))
	require.NoError(t, store.AppendEvent("run", NewEvent(SolveCompletedEvent, "run", SolveCompleted{})))

	assert.Equal(t, []string{CutAddedEvent}, cuts.seen)
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())

	require.NoError(t, store.Unsubscribe(cuts))
	require.NoError(t, store.AppendEvent("run", NewEvent(CutAddedEvent, "run", CutAdded{})))
	assert.Len(t, cuts.seen, 1)
}

func TestSolveRecorder_RecordsRun(t *testing.T) {
	inst := testhelpers.BuildTwoFacilityInstance()
	store := NewInMemoryEventStore(nil)
	core, logs := observer.New(zap.DebugLevel)
	require.NoError(t, store.Subscribe(AllSolveEvents, NewProgressLogger(zap.New(core))))

	recorder := NewSolveRecorder(store, "run-42", inst, nil)
	solver := benders.NewSolver(enumerate.New(nil, 0), benders.WithObserver(recorder))
	sol, err := solver.Solve(context.Background(), inst, benders.Options{})
	require.NoError(t, err)

	events, err := store.ReadEvents("run-42", 1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(events), 3)

	assert.Equal(t, MasterBuiltEvent, events[0].Type())
	last := events[len(events)-1]
	assert.Equal(t, SolveCompletedEvent, last.Type())
	completed := last.Data().(SolveCompleted)
	assert.Equal(t, "Optimal", completed.Status)
	assert.Equal(t, sol.Stats.Cuts, completed.Cuts)

	cutEvents := 0
	for _, e := range events {
		if e.Type() == CutAddedEvent {
			cutEvents++
			cut := e.Data().(CutAdded)
			assert.Contains(t, []string{"Wheat", "Barley"}, cut.Product)
		}
	}
	assert.Equal(t, int(sol.Stats.Cuts), cutEvents)
	assert.Equal(t, 1, logs.FilterMessage("solve completed").Len())
	assert.Equal(t, cutEvents, logs.FilterMessage("cut added").Len())
}

func TestProgressLogger_RejectsUnknownPayload(t *testing.T) {
	h := NewProgressLogger(zap.NewNop())
	assert.True(t, h.CanHandle(CoverFoundEvent))
	assert.False(t, h.CanHandle("order.planned"))
	assert.Error(t, h.Handle(NewEvent(CoverFoundEvent, "run", "not a cover")))
}
