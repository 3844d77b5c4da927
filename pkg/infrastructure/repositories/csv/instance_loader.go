package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/repositories"
)

// Loader reads instances in the sectioned CSV format: facility and product
// counts, capacities, prices, costs and level counts, level bounds, demand
// scenarios, distributions and their yield scenarios, each section preceded
// by a header line.
type Loader struct {
	// offset is subtracted from every level upper bound
	offset float64
}

// NewLoader creates a new CSV loader
func NewLoader(offset float64) *Loader {
	return &Loader{offset: offset}
}

// Verify interface compliance
var _ repositories.InstanceLoader = (*Loader)(nil)

// LoadInstance loads an instance from a CSV file. The instance is named after
// the file.
func (l *Loader) LoadInstance(filename string) (*entities.Instance, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open instance file %s: %w", filename, err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return l.Read(file, name)
}

// Read parses an instance from r
func (l *Loader) Read(r io.Reader, name string) (*entities.Instance, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read instance CSV: %w", err)
	}

	data, err := l.parse(&sectionReader{records: records}, name)
	if err != nil {
		return nil, err
	}
	return entities.NewInstance(*data)
}

// sectionReader walks the CSV records section by section
type sectionReader struct {
	records [][]string
	pos     int
}

func (rs *sectionReader) next(minColumns int) ([]string, error) {
	if rs.pos >= len(rs.records) {
		return nil, fmt.Errorf("instance CSV ends early after row %d", rs.pos)
	}
	record := rs.records[rs.pos]
	rs.pos++
	if len(record) < minColumns {
		return nil, fmt.Errorf("instance CSV row %d: expected at least %d columns, got %d", rs.pos, minColumns, len(record))
	}
	return record, nil
}

func (rs *sectionReader) skipHeader() error {
	_, err := rs.next(1)
	return err
}

// startsWithIndex reports whether the next record begins with an integer
func (rs *sectionReader) startsWithIndex() bool {
	if rs.pos >= len(rs.records) || len(rs.records[rs.pos]) == 0 {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(rs.records[rs.pos][0]))
	return err == nil
}

func (rs *sectionReader) parseFloat(record []string, column int) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(record[column]), 64)
	if err != nil {
		return 0, fmt.Errorf("instance CSV row %d column %d: invalid number %q", rs.pos, column+1, record[column])
	}
	return value, nil
}

func (rs *sectionReader) parseInt(record []string, column int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(record[column]))
	if err != nil {
		return 0, fmt.Errorf("instance CSV row %d column %d: invalid integer %q", rs.pos, column+1, record[column])
	}
	return value, nil
}

// yieldScenario is one row of a distribution's yield section
type yieldScenario struct {
	probability float64
	yields      []float64
}

func (l *Loader) parse(rs *sectionReader, name string) (*entities.InstanceData, error) {
	count := func(label string) (int, error) {
		record, err := rs.next(2)
		if err != nil {
			return 0, err
		}
		n, err := rs.parseInt(record, 1)
		if err != nil {
			return 0, err
		}
		if n <= 0 {
			return 0, fmt.Errorf("instance CSV row %d: %s must be positive, got %d", rs.pos, label, n)
		}
		return n, nil
	}

	nF, err := count("number of facilities")
	if err != nil {
		return nil, err
	}
	nP, err := count("number of products")
	if err != nil {
		return nil, err
	}
	data := &entities.InstanceData{
		Name:       name,
		Facilities: make([]entities.Facility, nF),
		Products:   make([]entities.Product, nP),
	}

	// Capacities
	if err := rs.skipHeader(); err != nil {
		return nil, err
	}
	for f := range nF {
		record, err := rs.next(2)
		if err != nil {
			return nil, err
		}
		capacity, err := rs.parseFloat(record, 1)
		if err != nil {
			return nil, err
		}
		data.Facilities[f] = entities.Facility{Name: strings.TrimSpace(record[0]), Capacity: capacity}
	}

	// Leftover values and sales prices
	if err := rs.skipHeader(); err != nil {
		return nil, err
	}
	for p := range nP {
		record, err := rs.next(3)
		if err != nil {
			return nil, err
		}
		leftover, err := rs.parseFloat(record, 1)
		if err != nil {
			return nil, err
		}
		price, err := rs.parseFloat(record, 2)
		if err != nil {
			return nil, err
		}
		data.Products[p] = entities.Product{
			Name:               strings.TrimSpace(record[0]),
			SalesPrice:         price,
			LeftoverValue:      leftover,
			ManufacturingCosts: make([]float64, nF),
			Levels:             make([][]entities.Level, nF),
		}
	}

	// Manufacturing costs and level counts, facility-major
	if err := rs.skipHeader(); err != nil {
		return nil, err
	}
	for f := range nF {
		for p := range nP {
			record, err := rs.next(4)
			if err != nil {
				return nil, err
			}
			cost, err := rs.parseFloat(record, 2)
			if err != nil {
				return nil, err
			}
			nL, err := rs.parseInt(record, 3)
			if err != nil {
				return nil, err
			}
			if nL <= 0 {
				return nil, fmt.Errorf("instance CSV row %d: product %d has no production levels at facility %d", rs.pos, p+1, f+1)
			}
			data.Products[p].ManufacturingCosts[f] = cost
			data.Products[p].Levels[f] = make([]entities.Level, nL)
		}
	}

	// Level bounds
	if err := rs.skipHeader(); err != nil {
		return nil, err
	}
	for f := range nF {
		for p := range nP {
			for k := range data.Products[p].Levels[f] {
				record, err := rs.next(6)
				if err != nil {
					return nil, err
				}
				lower, err := rs.parseFloat(record, 4)
				if err != nil {
					return nil, err
				}
				upper, err := rs.parseFloat(record, 5)
				if err != nil {
					return nil, err
				}
				data.Products[p].Levels[f][k] = entities.Level{Lower: lower, Upper: upper - l.offset}
			}
		}
	}

	// Demand scenarios, one column per product
	if err := rs.skipHeader(); err != nil {
		return nil, err
	}
	var demandProbabilities []float64
	var demands [][]float64
	for rs.startsWithIndex() {
		record, err := rs.next(2 + nP)
		if err != nil {
			return nil, err
		}
		index, err := rs.parseInt(record, 0)
		if err != nil {
			return nil, err
		}
		if index != len(demands) {
			return nil, fmt.Errorf("instance CSV row %d: demand scenario %d out of order, want %d", rs.pos, index, len(demands))
		}
		probability, err := rs.parseFloat(record, 1)
		if err != nil {
			return nil, err
		}
		demand := make([]float64, nP)
		for p := range nP {
			if demand[p], err = rs.parseFloat(record, 2+p); err != nil {
				return nil, err
			}
		}
		demandProbabilities = append(demandProbabilities, probability)
		demands = append(demands, demand)
	}
	if len(demands) == 0 {
		return nil, fmt.Errorf("instance CSV row %d: no demand scenarios", rs.pos)
	}

	// Distributions: name, product, one level per facility, yield scenario count
	if err := rs.skipHeader(); err != nil {
		return nil, err
	}
	yieldCounts := make([][]int, nP)
	for p := range nP {
		nD := 1
		for f := range nF {
			nD *= len(data.Products[p].Levels[f])
		}
		data.Products[p].Distributions = make([]entities.Distribution, nD)
		yieldCounts[p] = make([]int, nD)
		for d := range nD {
			record, err := rs.next(3 + nF)
			if err != nil {
				return nil, err
			}
			dist := entities.Distribution{Name: strings.TrimSpace(record[0]), Levels: make([]entities.LevelID, nF)}
			for f := range nF {
				level, err := rs.parseInt(record, 2+f)
				if err != nil {
					return nil, err
				}
				dist.Levels[f] = entities.LevelID(level)
			}
			if yieldCounts[p][d], err = rs.parseInt(record, 2+nF); err != nil {
				return nil, err
			}
			data.Products[p].Distributions[d] = dist
		}
	}

	// Yield scenarios, merged with every demand scenario
	if err := rs.skipHeader(); err != nil {
		return nil, err
	}
	for p := range nP {
		for d := range data.Products[p].Distributions {
			yields := make([]yieldScenario, yieldCounts[p][d])
			for s := range yields {
				record, err := rs.next(4 + nF)
				if err != nil {
					return nil, err
				}
				if yields[s].probability, err = rs.parseFloat(record, 3); err != nil {
					return nil, err
				}
				yields[s].yields = make([]float64, nF)
				for f := range nF {
					if yields[s].yields[f], err = rs.parseFloat(record, 4+f); err != nil {
						return nil, err
					}
				}
			}
			data.Products[p].Distributions[d].Scenarios = mergeScenarios(yields, demandProbabilities, demands, p)
		}
	}

	return data, nil
}

// mergeScenarios builds the joint scenarios of one distribution, yield
// scenarios outermost
func mergeScenarios(yields []yieldScenario, demandProbabilities []float64, demands [][]float64, p int) []entities.Scenario {
	scenarios := make([]entities.Scenario, 0, len(yields)*len(demands))
	for _, y := range yields {
		for sd, demand := range demands {
			scenarios = append(scenarios, entities.Scenario{
				Probability: y.probability * demandProbabilities[sd],
				Demand:      demand[p],
				Yields:      append([]float64(nil), y.yields...),
			})
		}
	}
	return scenarios
}
