package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

// InstanceTables is the sectioned form of an instance. Demand scenarios are
// shared by every distribution and crossed with its yield scenarios on load.
type InstanceTables struct {
	Facilities          []entities.Facility
	Products            []ProductTables
	DemandProbabilities []float64
	// Demands is indexed by demand scenario, then product
	Demands [][]float64
}

// ProductTables holds the rows of one product
type ProductTables struct {
	Name               string
	SalesPrice         float64
	LeftoverValue      float64
	ManufacturingCosts []float64
	Levels             [][]entities.Level
	Distributions      []DistributionTables
}

// DistributionTables holds one distribution and its yield scenarios
type DistributionTables struct {
	Name   string
	Levels []entities.LevelID
	Yields []YieldScenario
}

// YieldScenario is one yield row of a distribution
type YieldScenario struct {
	Probability float64
	Yields      []float64
}

// WriteTables writes t in the format Loader reads. Facility and product
// references are one-based, level references zero-based.
func WriteTables(w io.Writer, t *InstanceTables) error {
	nF, nP := len(t.Facilities), len(t.Products)
	out := csv.NewWriter(w)
	rows := [][]string{
		{"facilities", strconv.Itoa(nF)},
		{"products", strconv.Itoa(nP)},
		{"facility", "capacity"},
	}
	for _, facility := range t.Facilities {
		rows = append(rows, []string{facility.Name, formatFloat(facility.Capacity)})
	}

	rows = append(rows, []string{"product", "leftover", "price"})
	for _, product := range t.Products {
		rows = append(rows, []string{product.Name, formatFloat(product.LeftoverValue), formatFloat(product.SalesPrice)})
	}

	rows = append(rows, []string{"facility", "product", "cost", "levels"})
	for f := range nF {
		for p, product := range t.Products {
			if len(product.Levels) != nF || len(product.ManufacturingCosts) != nF {
				return fmt.Errorf("product %s has %d level sets and %d costs, want %d", product.Name, len(product.Levels), len(product.ManufacturingCosts), nF)
			}
			rows = append(rows, []string{strconv.Itoa(f + 1), strconv.Itoa(p + 1),
				formatFloat(product.ManufacturingCosts[f]), strconv.Itoa(len(product.Levels[f]))})
		}
	}

	rows = append(rows, []string{"facility", "product", "level", "name", "lower", "upper"})
	for f := range nF {
		for p, product := range t.Products {
			for k, level := range product.Levels[f] {
				rows = append(rows, []string{strconv.Itoa(f + 1), strconv.Itoa(p + 1), strconv.Itoa(k + 1),
					fmt.Sprintf("L%d", k+1), formatFloat(level.Lower), formatFloat(level.Upper)})
			}
		}
	}

	header := []string{"scenario", "probability"}
	for p := range nP {
		header = append(header, fmt.Sprintf("demand_%d", p+1))
	}
	rows = append(rows, header)
	for s, demand := range t.Demands {
		if len(demand) != nP {
			return fmt.Errorf("demand scenario %d has %d values, want %d", s, len(demand), nP)
		}
		row := []string{strconv.Itoa(s), formatFloat(t.DemandProbabilities[s])}
		for _, d := range demand {
			row = append(row, formatFloat(d))
		}
		rows = append(rows, row)
	}

	header = []string{"distribution", "product"}
	for f := range nF {
		header = append(header, fmt.Sprintf("level_%d", f+1))
	}
	rows = append(rows, append(header, "scenarios"))
	for p, product := range t.Products {
		for _, dist := range product.Distributions {
			row := []string{dist.Name, strconv.Itoa(p + 1)}
			for _, level := range dist.Levels {
				row = append(row, strconv.Itoa(int(level)))
			}
			rows = append(rows, append(row, strconv.Itoa(len(dist.Yields))))
		}
	}

	header = []string{"distribution", "product", "scenario", "probability"}
	for f := range nF {
		header = append(header, fmt.Sprintf("yield_%d", f+1))
	}
	rows = append(rows, header)
	for p, product := range t.Products {
		for _, dist := range product.Distributions {
			for s, scenario := range dist.Yields {
				row := []string{dist.Name, strconv.Itoa(p + 1), strconv.Itoa(s + 1), formatFloat(scenario.Probability)}
				for _, y := range scenario.Yields {
					row = append(row, formatFloat(y))
				}
				rows = append(rows, row)
			}
		}
	}

	if err := out.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write instance CSV: %w", err)
	}
	return nil
}
