// Package json reads instances from JSON documents with explicit
// per-distribution scenarios.
package json

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/repositories"
)

// Loader reads instance documents of the form
//
//	{"name": "...", "facilities": [{"name", "capacity"}],
//	 "products": [{"name", "sales_price", "leftover_value",
//	   "manufacturing_costs": [f], "levels": [f][{"lower", "upper"}],
//	   "distributions": [{"name", "levels": [f],
//	     "scenarios": [{"probability", "demand", "yields": [f]}]}]}]}
type Loader struct {
	offset float64
}

// NewLoader creates a JSON loader. offset is subtracted from every level
// upper bound.
func NewLoader(offset float64) *Loader {
	return &Loader{offset: offset}
}

// Verify interface compliance
var _ repositories.InstanceLoader = (*Loader)(nil)

// LoadInstance loads an instance from a JSON file
func (l *Loader) LoadInstance(filename string) (*entities.Instance, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance file %s: %w", filename, err)
	}
	return l.Parse(content)
}

// Parse builds an instance from a JSON document
func (l *Loader) Parse(content []byte) (*entities.Instance, error) {
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("instance document is not valid JSON")
	}
	doc := gjson.ParseBytes(content)

	data := entities.InstanceData{Name: doc.Get("name").String()}
	if data.Name == "" {
		data.Name = "unnamed"
	}

	facilities := doc.Get("facilities")
	if !facilities.IsArray() {
		return nil, fmt.Errorf("instance document: facilities must be an array")
	}
	var err error
	facilities.ForEach(func(key, v gjson.Result) bool {
		capacity := v.Get("capacity")
		if !capacity.Exists() {
			err = fmt.Errorf("facility %d: missing capacity", key.Int())
			return false
		}
		data.Facilities = append(data.Facilities, entities.Facility{Name: v.Get("name").String(), Capacity: capacity.Float()})
		return true
	})
	if err != nil {
		return nil, err
	}

	products := doc.Get("products")
	if !products.IsArray() {
		return nil, fmt.Errorf("instance document: products must be an array")
	}
	products.ForEach(func(key, v gjson.Result) bool {
		var product entities.Product
		product, err = l.parseProduct(v)
		if err != nil {
			err = fmt.Errorf("product %d: %w", key.Int(), err)
			return false
		}
		data.Products = append(data.Products, product)
		return true
	})
	if err != nil {
		return nil, err
	}

	return entities.NewInstance(data)
}

func (l *Loader) parseProduct(v gjson.Result) (entities.Product, error) {
	for _, field := range []string{"sales_price", "leftover_value", "manufacturing_costs", "levels", "distributions"} {
		if !v.Get(field).Exists() {
			return entities.Product{}, fmt.Errorf("missing %s", field)
		}
	}

	product := entities.Product{
		Name:          v.Get("name").String(),
		SalesPrice:    v.Get("sales_price").Float(),
		LeftoverValue: v.Get("leftover_value").Float(),
	}
	for _, cost := range v.Get("manufacturing_costs").Array() {
		product.ManufacturingCosts = append(product.ManufacturingCosts, cost.Float())
	}
	for _, facility := range v.Get("levels").Array() {
		levels := make([]entities.Level, 0)
		for _, level := range facility.Array() {
			levels = append(levels, entities.Level{
				Lower: level.Get("lower").Float(),
				Upper: level.Get("upper").Float() - l.offset,
			})
		}
		product.Levels = append(product.Levels, levels)
	}

	for _, d := range v.Get("distributions").Array() {
		dist := entities.Distribution{Name: d.Get("name").String()}
		for _, level := range d.Get("levels").Array() {
			dist.Levels = append(dist.Levels, entities.LevelID(level.Int()))
		}
		for _, s := range d.Get("scenarios").Array() {
			scenario := entities.Scenario{
				Probability: s.Get("probability").Float(),
				Demand:      s.Get("demand").Float(),
			}
			for _, y := range s.Get("yields").Array() {
				scenario.Yields = append(scenario.Yields, y.Float())
			}
			dist.Scenarios = append(dist.Scenarios, scenario)
		}
		product.Distributions = append(product.Distributions, dist)
	}
	return product, nil
}
