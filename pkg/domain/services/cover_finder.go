package services

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/path"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

// CoverFinder searches knapsack covers over production-level lower bounds.
// Each search builds its own graph, so one finder may serve several
// facilities concurrently.
type CoverFinder struct {
	instance *entities.Instance
	logger   *zap.Logger
}

// NewCoverFinder creates a cover finder for an instance
func NewCoverFinder(instance *entities.Instance, logger *zap.Logger) *CoverFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverFinder{instance: instance, logger: logger}
}

// levelLine is a chain edge p -> p+1 standing for level l of product p
type levelLine struct {
	multi.WeightedLine
	product entities.ProductID
	level   entities.LevelID
}

// lightestLine summarises parallel lines by their minimum weight
func lightestLine(lines graph.WeightedLines) float64 {
	lightest := math.Inf(1)
	if lines == nil {
		return lightest
	}
	for lines.Next() {
		lightest = math.Min(lightest, lines.WeightedLine().Weight())
	}
	lines.Reset()
	return lightest
}

// FindMinimalCover runs the chain shortest-path search for facility f.
// The second return value is false when no cover exists.
func (cf *CoverFinder) FindMinimalCover(f entities.FacilityID) (*entities.Cover, bool) {
	inst := cf.instance
	nProducts := inst.NumProducts()
	capacity := inst.Capacity(f)

	g := multi.NewWeightedDirectedGraph()
	g.EdgeWeightFunc = lightestLine
	for n := 0; n <= nProducts; n++ {
		g.AddNode(multi.Node(n))
	}

	nEdges := 0
	for p := range nProducts {
		for l := range inst.NumLevels(f, entities.ProductID(p)) {
			line := g.NewWeightedLine(multi.Node(p), multi.Node(p+1),
				inst.LevelLowerBound(f, entities.ProductID(p), entities.LevelID(l)))
			g.SetWeightedLine(levelLine{
				WeightedLine: line.(multi.WeightedLine),
				product:      entities.ProductID(p),
				level:        entities.LevelID(l),
			})
			nEdges++
		}
	}

	source, sink := multi.Node(0), multi.Node(nProducts)
	for nEdges >= nProducts {
		_, weight := path.DijkstraFromTo(source, sink, g)
		if math.IsInf(weight, 1) {
			cf.logger.Debug("cover search exhausted a product", zap.Stringer("facility", f))
			return nil, false
		}

		chosen := chainLines(g, nProducts)
		if weight <= capacity {
			cheapest := chosen[0]
			for _, line := range chosen[1:] {
				if line.W < cheapest.W {
					cheapest = line
				}
			}
			g.RemoveLine(cheapest.F.ID(), cheapest.T.ID(), cheapest.UID)
			nEdges--
			continue
		}

		cover := &entities.Cover{Facility: f, Weight: weight}
		for _, line := range chosen {
			if line.W > 0 {
				cover.Items = append(cover.Items, entities.CoverItem{Product: line.product, Level: line.level})
			}
		}
		cf.logger.Debug("minimal cover found", zap.Stringer("cover", cover))
		return cover, true
	}

	cf.logger.Debug("no cover", zap.Stringer("facility", f), zap.Int("edges", nEdges))
	return nil, false
}

// chainLines returns the lightest line of every chain hop. Ties go to the
// lowest level so the result does not depend on map order.
func chainLines(g *multi.WeightedDirectedGraph, nProducts int) []levelLine {
	chosen := make([]levelLine, 0, nProducts)
	for p := 0; p < nProducts; p++ {
		lines := g.WeightedLines(int64(p), int64(p+1))
		var best levelLine
		found := false
		for lines.Next() {
			line := lines.WeightedLine().(levelLine)
			if !found || line.W < best.W || (line.W == best.W && line.level < best.level) {
				best = line
				found = true
			}
		}
		chosen = append(chosen, best)
	}
	return chosen
}
