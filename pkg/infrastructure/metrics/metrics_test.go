package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CutAdded("P0")
	m.CutAdded("P0")
	m.CutAdded("P1")
	m.CandidateSeparated(time.Millisecond)
	m.CoverInequalitiesAdded("minimal", 3)
	m.CoverInequalitiesAdded("extended", 0)
	m.SolveCompleted("Optimal")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cutsAdded.WithLabelValues("P0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cutsAdded.WithLabelValues("P1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.candidates))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.coverInequalities.WithLabelValues("minimal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.solves.WithLabelValues("Optimal")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CutAdded("P0")
		m.CandidateSeparated(time.Second)
		m.CoverInequalitiesAdded("minimal", 1)
		m.SolveCompleted("Optimal")
	})
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CandidateSeparated(time.Microsecond)

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "endoplan_integer_candidates_total")
	assert.Contains(t, names, "endoplan_callback_duration_seconds")
}
