package testing

import (
	"fmt"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

// LevelCombinations enumerates every level combination for the given
// per-facility level counts, last facility varying fastest.
func LevelCombinations(levelCounts []int) [][]entities.LevelID {
	combos := [][]entities.LevelID{{}}
	for _, n := range levelCounts {
		next := make([][]entities.LevelID, 0, len(combos)*n)
		for _, prefix := range combos {
			for l := 0; l < n; l++ {
				combo := append(append([]entities.LevelID(nil), prefix...), entities.LevelID(l))
				next = append(next, combo)
			}
		}
		combos = next
	}
	return combos
}

// MustInstance builds an Instance and panics on invalid data
func MustInstance(data entities.InstanceData) *entities.Instance {
	inst, err := entities.NewInstance(data)
	if err != nil {
		panic(err)
	}
	return inst
}

// BuildNewsvendorInstance builds one facility and one product with a single
// level, distribution and scenario.
func BuildNewsvendorInstance(capacity, price, leftover, demand, yield float64) *entities.Instance {
	return MustInstance(entities.InstanceData{
		Name:       "newsvendor",
		Facilities: []entities.Facility{{Name: "F1", Capacity: capacity}},
		Products: []entities.Product{{
			Name:               "P1",
			SalesPrice:         price,
			LeftoverValue:      leftover,
			ManufacturingCosts: []float64{0},
			Levels:             [][]entities.Level{{{Lower: 0, Upper: capacity}}},
			Distributions: []entities.Distribution{{
				Name:      "D1",
				Levels:    []entities.LevelID{0},
				Scenarios: []entities.Scenario{{Probability: 1, Demand: demand, Yields: []float64{yield}}},
			}},
		}},
	})
}

// BuildCoverInstance builds one facility and one product per entry of
// lowerBounds, where lowerBounds[p] lists the lower bounds of p's levels.
// Every distribution has a single certain scenario.
func BuildCoverInstance(capacity float64, lowerBounds ...[]float64) *entities.Instance {
	data := entities.InstanceData{
		Name:       "cover",
		Facilities: []entities.Facility{{Name: "F1", Capacity: capacity}},
	}
	for p, bounds := range lowerBounds {
		levels := make([]entities.Level, len(bounds))
		for l, lb := range bounds {
			levels[l] = entities.Level{Lower: lb, Upper: lb + capacity}
		}
		product := entities.Product{
			Name:               fmt.Sprintf("P%d", p+1),
			SalesPrice:         10,
			LeftoverValue:      1,
			ManufacturingCosts: []float64{1},
			Levels:             [][]entities.Level{levels},
		}
		for _, combo := range LevelCombinations([]int{len(bounds)}) {
			product.Distributions = append(product.Distributions, entities.Distribution{
				Levels:    combo,
				Scenarios: []entities.Scenario{{Probability: 1, Demand: capacity, Yields: []float64{1}}},
			})
		}
		data.Products = append(data.Products, product)
	}
	return MustInstance(data)
}

// BuildTwoFacilityInstance builds two facilities and two products with two
// levels each. Higher levels improve yields, so the level choice shapes the
// scenario set.
func BuildTwoFacilityInstance() *entities.Instance {
	return buildTwoFacilityInstance("two-facility", 2, 0.5)
}

// BuildTwoFacilityDisposalInstance is BuildTwoFacilityInstance with a
// disposal cost on every leftover unit.
func BuildTwoFacilityDisposalInstance() *entities.Instance {
	return buildTwoFacilityInstance("two-facility-disposal", -3, -1.5)
}

func buildTwoFacilityInstance(name string, wheatLeftover, barleyLeftover float64) *entities.Instance {
	facilities := []entities.Facility{{Name: "North", Capacity: 12}, {Name: "South", Capacity: 9}}
	levels := [][]entities.Level{
		{{Lower: 0, Upper: 6}, {Lower: 5, Upper: 12}},
		{{Lower: 0, Upper: 4}, {Lower: 4, Upper: 9}},
	}

	products := []entities.Product{
		{Name: "Wheat", SalesPrice: 12, LeftoverValue: wheatLeftover, ManufacturingCosts: []float64{3, 4}, Levels: levels},
		{Name: "Barley", SalesPrice: 9, LeftoverValue: barleyLeftover, ManufacturingCosts: []float64{2, 2.5}, Levels: levels},
	}

	for p := range products {
		for _, combo := range LevelCombinations([]int{2, 2}) {
			boost := 0.1 * float64(combo[0]+combo[1])
			products[p].Distributions = append(products[p].Distributions, entities.Distribution{
				Name:   fmt.Sprintf("%s-%d%d", products[p].Name, combo[0], combo[1]),
				Levels: combo,
				Scenarios: []entities.Scenario{
					{Probability: 0.3, Demand: 6 + 2*float64(p), Yields: []float64{0.7 + boost, 0.6 + boost}},
					{Probability: 0.5, Demand: 10, Yields: []float64{0.8 + boost, 0.8 + boost}},
					{Probability: 0.2, Demand: 14 - 2*float64(p), Yields: []float64{0.9, 0.9 + boost/2}},
				},
			})
		}
	}

	return MustInstance(entities.InstanceData{Name: name, Facilities: facilities, Products: products})
}

// BuildDisposalInstance builds one facility of capacity 20 and one product
// with price 10, unit cost 1 and a disposal cost of 5. Both levels span the
// whole capacity. The low level faces a certain demand of 2, the high level a
// certain demand of 20, so the optimum produces 20 at the high level.
func BuildDisposalInstance() *entities.Instance {
	certain := func(demand float64) []entities.Scenario {
		return []entities.Scenario{{Probability: 1, Demand: demand, Yields: []float64{1}}}
	}
	return MustInstance(entities.InstanceData{
		Name:       "disposal",
		Facilities: []entities.Facility{{Name: "F1", Capacity: 20}},
		Products: []entities.Product{{
			Name:               "P1",
			SalesPrice:         10,
			LeftoverValue:      -5,
			ManufacturingCosts: []float64{1},
			Levels:             [][]entities.Level{{{Lower: 0, Upper: 20}, {Lower: 0, Upper: 20}}},
			Distributions: []entities.Distribution{
				{Name: "low", Levels: []entities.LevelID{0}, Scenarios: certain(2)},
				{Name: "high", Levels: []entities.LevelID{1}, Scenarios: certain(20)},
			},
		}},
	})
}
