package csv

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

func sampleTables() *InstanceTables {
	yields := func(probability float64, y ...float64) YieldScenario {
		return YieldScenario{Probability: probability, Yields: y}
	}
	return &InstanceTables{
		Facilities: []entities.Facility{{Name: "F1", Capacity: 100}, {Name: "F2", Capacity: 80}},
		Products: []ProductTables{{
			Name:               "P1",
			SalesPrice:         10,
			LeftoverValue:      2,
			ManufacturingCosts: []float64{3, 4},
			Levels: [][]entities.Level{
				{{Lower: 0, Upper: 60}},
				{{Lower: 0, Upper: 40}, {Lower: 30, Upper: 90}},
			},
			Distributions: []DistributionTables{
				{Name: "D1", Levels: []entities.LevelID{0, 0}, Yields: []YieldScenario{yields(0.5, 0.9, 0.8), yields(0.5, 1, 0.9)}},
				{Name: "D2", Levels: []entities.LevelID{0, 1}, Yields: []YieldScenario{yields(1, 0.95, 0.7)}},
			},
		}},
		DemandProbabilities: []float64{0.4, 0.6},
		Demands:             [][]float64{{50}, {70}},
	}
}

func TestWriteTables_LoadsBack(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTables(&buf, sampleTables()); err != nil {
		t.Fatalf("WriteTables() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "facilities,2\nproducts,1\nfacility,capacity\nF1,100\n") {
		t.Errorf("unexpected prefix:\n%s", buf.String())
	}

	inst, err := NewLoader(0).Read(&buf, "written")
	if err != nil {
		t.Fatalf("Read() error = %v\n%s", err, buf.String())
	}

	if inst.NumFacilities() != 2 || inst.NumProducts() != 1 {
		t.Fatalf("got %dx%d, want 2 facilities and 1 product", inst.NumFacilities(), inst.NumProducts())
	}
	if inst.FacilityName(1) != "F2" || inst.ProductName(0) != "P1" {
		t.Errorf("names = %s, %s", inst.FacilityName(1), inst.ProductName(0))
	}
	if inst.LevelLowerBound(1, 0, 1) != 30 || inst.LevelUpperBound(1, 0, 1) != 90 {
		t.Errorf("level bounds = [%g, %g], want [30, 90]", inst.LevelLowerBound(1, 0, 1), inst.LevelUpperBound(1, 0, 1))
	}
	if inst.NumScenarios(0, 0) != 4 || inst.NumScenarios(0, 1) != 2 {
		t.Errorf("scenario counts = %d, %d, want 4 and 2", inst.NumScenarios(0, 0), inst.NumScenarios(0, 1))
	}
	// yield scenario 2 crossed with demand scenario 1
	if p := inst.Probability(0, 0, 3); math.Abs(p-0.3) > 1e-12 {
		t.Errorf("Probability(D1, S3) = %g, want 0.3", p)
	}
	if d := inst.Demand(0, 0, 3); d != 70 {
		t.Errorf("Demand(D1, S3) = %g, want 70", d)
	}
	if y := inst.Yield(0, 1, 1, 0); y != 0.7 {
		t.Errorf("Yield(D2, F2, S0) = %g, want 0.7", y)
	}
}

func TestWriteTables_ShapeErrors(t *testing.T) {
	tables := sampleTables()
	tables.Products[0].ManufacturingCosts = []float64{3}
	if err := WriteTables(&bytes.Buffer{}, tables); err == nil || !strings.Contains(err.Error(), "want 2") {
		t.Errorf("WriteTables() error = %v, want cost count error", err)
	}

	tables = sampleTables()
	tables.Demands[1] = []float64{70, 80}
	if err := WriteTables(&bytes.Buffer{}, tables); err == nil || !strings.Contains(err.Error(), "demand scenario 1") {
		t.Errorf("WriteTables() error = %v, want demand error", err)
	}
}
