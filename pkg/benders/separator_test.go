package benders

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/services"
	"github.com/vsinha/endoplan/pkg/infrastructure/metrics"
	"github.com/vsinha/endoplan/pkg/mip"
	testhelpers "github.com/vsinha/endoplan/pkg/infrastructure/testing"
)

// slicePool is a minimal concurrent CutPool
type slicePool struct {
	mu   sync.Mutex
	cuts []Cut
}

func (sp *slicePool) Add(cut Cut) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.cuts = append(sp.cuts, cut)
	return nil
}

func (sp *slicePool) Count() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return len(sp.cuts)
}

func (sp *slicePool) ByProduct(p entities.ProductID) []Cut {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	var out []Cut
	for _, c := range sp.cuts {
		if c.Product == p {
			out = append(out, c)
		}
	}
	return out
}

// newsvendorMaster is capacity 10, price 10, leftover 1, demand 5, yield 1
func newsvendorMaster(t *testing.T) *MasterProblem {
	t.Helper()
	m, err := NewMasterProblem(testhelpers.BuildNewsvendorInstance(10, 10, 1, 5, 1), zaptest.NewLogger(t))
	require.NoError(t, err)
	return m
}

func newsvendorPoint(m *MasterProblem, y, x, phi float64) []float64 {
	values := make([]float64, m.Model().NumVariables())
	values[m.Y(0, 0, 0)] = y
	values[m.X(0, 0)] = x
	values[m.Phi(0)] = phi
	return values
}

func TestOptimalityCut_Newsvendor(t *testing.T) {
	m := newsvendorMaster(t)
	assert.InDelta(t, 55, m.Instance().ExpectationCeiling(0), 1e-12)

	// at x=8 the single scenario is oversupplied: leftover slope, demand term 9*5
	cut := m.OptimalityCut(0, 0, []float64{8})
	assert.Equal(t, "optcut_P0_D0", cut.Name)
	assert.Equal(t, "1 phi_0 + 55 y_0_0_0 + -1 x_0_0 <= 100", cut.Format(m.Model()))

	// tight at the candidate
	assert.InDelta(t, cut.RHS, cut.Expr.Eval(newsvendorPoint(m, 1, 8, 53)), 1e-9)
	// cuts off the overestimate
	assert.False(t, cut.Satisfied(newsvendorPoint(m, 1, 8, 60), 1e-9))
	// vacuous when the distribution is not enforced
	assert.True(t, cut.Satisfied(newsvendorPoint(m, 0, 10, 55), 0))

	// at x=3 demand is not met: price slope, no demand term
	under := m.OptimalityCut(0, 0, []float64{3})
	assert.Equal(t, "1 phi_0 + 55 y_0_0_0 + -10 x_0_0 <= 55", under.Format(m.Model()))
	assert.InDelta(t, under.RHS, under.Expr.Eval(newsvendorPoint(m, 1, 3, 30)), 1e-9)
}

func TestOptimalityCut_OverestimatesEverywhere(t *testing.T) {
	inst := testhelpers.BuildTwoFacilityInstance()
	m, err := NewMasterProblem(inst, nil)
	require.NoError(t, err)
	s := NewCutSeparator(m)

	grid := [][]float64{{0, 0}, {2, 1}, {5, 4}, {6, 4}, {8, 6}, {12, 9}}
	for p := range inst.NumProducts() {
		pid := entities.ProductID(p)
		for d := range inst.NumDistributions(pid) {
			did := entities.DistributionID(d)
			levels := make([][]entities.LevelID, 2)
			for q := range levels {
				levels[q] = []entities.LevelID{inst.DistributionLevel(pid, did, 0), inst.DistributionLevel(pid, did, 1)}
			}
			for _, at := range grid {
				cut := m.OptimalityCut(pid, did, at)
				for _, x := range grid {
					xs := [][]float64{x, x}
					phi := []float64{0, 0}
					phi[p] = s.evaluator.ExpectedProfit(pid, did, x)
					values := pointFor(m, levels, xs, phi)
					assert.True(t, cut.Satisfied(values, 1e-9),
						"cut for %s/%s at %v cuts off %v", pid, did, at, x)
				}
			}
		}
	}
}

// enforcedPoint is a master point that sets only one product's variables
type enforcedPoint struct {
	distribution entities.DistributionID
	x            []float64
	values       []float64
}

// enforcedPoints lists, for every distribution of p, the points whose
// quantities sit at the lower bound, midpoint or capped upper bound of the
// distribution's level at each facility, with phi at the exact expected profit.
func enforcedPoints(m *MasterProblem, p entities.ProductID) []enforcedPoint {
	inst := m.Instance()
	nF := inst.NumFacilities()
	eval := services.NewEvaluator(inst)
	counts := make([]int, nF)
	for f := range counts {
		counts[f] = 3
	}

	var points []enforcedPoint
	for k := range inst.NumDistributions(p) {
		d := entities.DistributionID(k)
		for _, pick := range testhelpers.LevelCombinations(counts) {
			values := make([]float64, m.Model().NumVariables())
			x := make([]float64, nF)
			for j := range nF {
				f := entities.FacilityID(j)
				l := inst.DistributionLevel(p, d, f)
				lo := inst.LevelLowerBound(f, p, l)
				hi := math.Min(inst.LevelUpperBound(f, p, l), inst.Capacity(f))
				x[j] = []float64{lo, (lo + hi) / 2, hi}[pick[j]]
				values[m.Y(p, f, l)] = 1
				values[m.X(p, f)] = x[j]
			}
			values[m.Phi(p)] = eval.ExpectedProfit(p, d, x)
			points = append(points, enforcedPoint{distribution: d, x: x, values: values})
		}
	}
	return points
}

func TestOptimalityCut_HoldsAtEveryEnforcedPoint(t *testing.T) {
	instances := []*entities.Instance{
		testhelpers.BuildTwoFacilityInstance(),
		testhelpers.BuildTwoFacilityDisposalInstance(),
		testhelpers.BuildDisposalInstance(),
	}
	for _, inst := range instances {
		t.Run(inst.Name(), func(t *testing.T) {
			m, err := NewMasterProblem(inst, nil)
			require.NoError(t, err)

			for i := range inst.NumProducts() {
				p := entities.ProductID(i)
				points := enforcedPoints(m, p)
				for _, at := range points {
					cut := m.OptimalityCut(p, at.distribution, at.x)
					// tight at its own linearization point
					assert.InDelta(t, cut.RHS, cut.Expr.Eval(at.values), 1e-9)
					for _, other := range points {
						assert.True(t, cut.Satisfied(other.values, 1e-9),
							"cut for %s/%s at %v removes %s at %v by %.4f",
							p, at.distribution, at.x, other.distribution, other.x, cut.Violation(other.values))
					}
				}
			}
		})
	}
}

func TestOptimalityCut_DisposalCost(t *testing.T) {
	inst := testhelpers.BuildDisposalInstance()
	m, err := NewMasterProblem(inst, nil)
	require.NoError(t, err)
	s := NewCutSeparator(m)

	assert.InDelta(t, 200, inst.ExpectationCeiling(0), 1e-12)
	// 5 per unit of disposal over 20 units of production
	assert.InDelta(t, 300, inst.DisjunctionBound(0), 1e-12)

	point := func(level entities.LevelID, x, phi float64) []float64 {
		values := make([]float64, m.Model().NumVariables())
		values[m.Y(0, 0, level)] = 1
		values[m.X(0, 0)] = x
		values[m.Phi(0)] = phi
		return values
	}

	// producing 20 against a demand of 2 loses 90 on disposal
	cut, err := s.Separate(0, point(0, 20, 200))
	require.NoError(t, err)
	require.NotNil(t, cut)
	assert.Equal(t, entities.DistributionID(0), cut.Distribution)
	assert.InDelta(t, -70, cut.ExpectedProfit, 1e-12)
	assert.InDelta(t, 330, cut.Constraint.RHS, 1e-12)
	assert.False(t, cut.Constraint.Satisfied(point(0, 20, 200), 1e-9))

	// the optimum enforces the other distribution and keeps its full profit
	optimum := point(1, 20, 200)
	assert.True(t, cut.Constraint.Satisfied(optimum, 1e-9), "violation %.4f", cut.Constraint.Violation(optimum))
	for _, vi := range AllValidInequalities {
		constraints, err := m.ValidInequalityConstraints(vi)
		require.NoError(t, err)
		for _, c := range constraints {
			assert.True(t, c.Satisfied(optimum, 1e-9), "%s violated by %.4f", c.Name, c.Violation(optimum))
		}
	}
}

func TestCutSeparator_Separate(t *testing.T) {
	m := newsvendorMaster(t)
	s := NewCutSeparator(m)

	cut, err := s.Separate(0, newsvendorPoint(m, 1, 8, 60))
	require.NoError(t, err)
	require.NotNil(t, cut)
	assert.Equal(t, entities.DistributionID(0), cut.Distribution)
	assert.InDelta(t, 53, cut.ExpectedProfit, 1e-12)
	assert.InDelta(t, 60, cut.Phi, 1e-12)

	// within tolerance of the closed form
	cut, err = s.Separate(0, newsvendorPoint(m, 1, 8, 53+1e-10))
	require.NoError(t, err)
	assert.Nil(t, cut)

	_, err = s.Separate(0, newsvendorPoint(m, 0, 8, 60))
	assert.ErrorIs(t, err, entities.ErrNoEnforcedDistribution)
}

func TestCutSeparator_OnIntegerCandidate(t *testing.T) {
	m := newsvendorMaster(t)
	pool := &slicePool{}
	observer := &recordingObserver{}
	reg := prometheus.NewRegistry()
	met := metrics.New(reg)
	s := NewCutSeparator(m, WithCutPool(pool), WithSeparatorObserver(observer), WithSeparatorMetrics(met))

	cuts, err := s.OnIntegerCandidate(context.Background(), &mip.Point{X: newsvendorPoint(m, 1, 8, 60), NodeID: 4})
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.Equal(t, "optcut_P0_D0", cuts[0].Name)

	// the candidate with phi at the closed form is accepted
	cuts, err = s.OnIntegerCandidate(context.Background(), &mip.Point{X: newsvendorPoint(m, 1, 8, 53), NodeID: 5})
	require.NoError(t, err)
	assert.Empty(t, cuts)

	assert.Equal(t, 1, pool.Count())
	assert.Equal(t, int64(4), pool.ByProduct(0)[0].Node)
	assert.Len(t, observer.cuts, 1)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Cuts)
	assert.Equal(t, int64(2), stats.Candidates)
	assert.False(t, stats.RootCaptured)
	assert.True(t, stats.RootBound != stats.RootBound, "root bound should be NaN before the root")

	expected := `
# HELP endoplan_optimality_cuts_total Optimality cuts injected by the lazy separator, by product
# TYPE endoplan_optimality_cuts_total counter
endoplan_optimality_cuts_total{product="P1"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "endoplan_optimality_cuts_total"))
}

func TestCutSeparator_InvariantViolation(t *testing.T) {
	m := newsvendorMaster(t)
	s := NewCutSeparator(m)

	_, err := s.OnIntegerCandidate(context.Background(), &mip.Point{X: newsvendorPoint(m, 0, 0, 0)})
	assert.ErrorIs(t, err, entities.ErrNoEnforcedDistribution)
}

func TestCutSeparator_RootCapture(t *testing.T) {
	m := newsvendorMaster(t)
	s := NewCutSeparator(m)

	_, err := s.OnIntegerCandidate(context.Background(), &mip.Point{X: newsvendorPoint(m, 1, 8, 53), BestBound: 77, AtRoot: true})
	require.NoError(t, err)
	_, err = s.OnIntegerCandidate(context.Background(), &mip.Point{X: newsvendorPoint(m, 1, 8, 53), BestBound: 50, AtRoot: true})
	require.NoError(t, err)

	stats := s.Stats()
	assert.True(t, stats.RootCaptured)
	assert.Equal(t, 77.0, stats.RootBound)
	assert.Positive(t, stats.RootTime)
}

func TestCutSeparator_ConcurrentCandidates(t *testing.T) {
	defer goleak.VerifyNone(t)

	inst := testhelpers.BuildTwoFacilityInstance()
	m, err := NewMasterProblem(inst, nil)
	require.NoError(t, err)
	pool := &slicePool{}
	s := NewCutSeparator(m, WithCutPool(pool))

	levels := [][]entities.LevelID{{1, 0}, {0, 1}}
	values := pointFor(m, levels, [][]float64{{6, 3}, {2, 5}}, []float64{1e6, 1e6})

	const workers, calls = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, workers*calls)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range calls {
				point := &mip.Point{X: values, NodeID: int64(w*calls + i), AtRoot: i == 0, BestBound: float64(w)}
				cuts, err := s.OnIntegerCandidate(context.Background(), point)
				if err != nil {
					errs <- err
					continue
				}
				if len(cuts) != 2 {
					errs <- assert.AnError
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	stats := s.Stats()
	assert.Equal(t, int64(workers*calls), stats.Candidates)
	assert.Equal(t, int64(2*workers*calls), stats.Cuts)
	assert.Equal(t, 2*workers*calls, pool.Count())
	assert.True(t, stats.RootCaptured)
	assert.Len(t, pool.ByProduct(1), workers*calls)
}
