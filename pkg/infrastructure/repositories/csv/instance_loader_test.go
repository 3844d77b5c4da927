package csv

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

const sampleInstance = `facilities,2
products,1
facility,capacity
1,100
2,80
product,leftover,price
1,2,10
facility,product,cost,levels
1,1,3,1
2,1,4,2
facility,product,level,name,lower,upper
1,1,1,base,0,60
2,1,1,low,0,40
2,1,2,high,30,90
scenario,probability,demand_1
0,0.4,50
1,0.6,70
distribution,product,level_1,level_2,scenarios
D1,1,0,0,2
D2,1,0,1,2
distribution,product,scenario,probability,yield_1,yield_2
D1,1,1,0.5,0.9,0.8
D1,1,2,0.5,1.0,0.9
D2,1,1,0.25,0.95,0.7
D2,1,2,0.75,0.9,1.0
`

func writeInstance(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write instance file: %v", err)
	}
	return path
}

func TestLoader_LoadInstance(t *testing.T) {
	inst, err := NewLoader(1).LoadInstance(writeInstance(t, sampleInstance))
	if err != nil {
		t.Fatalf("Failed to load instance: %v", err)
	}

	if inst.Name() != "sample" {
		t.Errorf("Expected instance name sample, got %s", inst.Name())
	}
	if inst.NumFacilities() != 2 || inst.NumProducts() != 1 {
		t.Fatalf("Expected 2 facilities and 1 product, got %d and %d", inst.NumFacilities(), inst.NumProducts())
	}
	if inst.Capacity(1) != 80 {
		t.Errorf("Expected capacity 80 at facility 2, got %g", inst.Capacity(1))
	}
	if inst.SalesPrice(0) != 10 || inst.LeftoverValue(0) != 2 {
		t.Errorf("Expected price 10 and leftover 2, got %g and %g", inst.SalesPrice(0), inst.LeftoverValue(0))
	}
	if inst.ManufacturingCost(1, 0) != 4 {
		t.Errorf("Expected manufacturing cost 4, got %g", inst.ManufacturingCost(1, 0))
	}

	// the offset comes off every upper bound
	if got := inst.LevelUpperBound(0, 0, 0); got != 59 {
		t.Errorf("Expected upper bound 59, got %g", got)
	}
	if got := inst.LevelLowerBound(1, 0, 1); got != 30 {
		t.Errorf("Expected lower bound 30, got %g", got)
	}

	if inst.NumDistributions(0) != 2 {
		t.Fatalf("Expected 2 distributions, got %d", inst.NumDistributions(0))
	}
	if inst.DistributionName(0, 1) != "D2" || inst.DistributionLevel(0, 1, 1) != 1 {
		t.Errorf("Unexpected distribution D2: %s level %d", inst.DistributionName(0, 1), inst.DistributionLevel(0, 1, 1))
	}
}

func TestLoader_MergesScenarios(t *testing.T) {
	inst, err := NewLoader(0).LoadInstance(writeInstance(t, sampleInstance))
	if err != nil {
		t.Fatalf("Failed to load instance: %v", err)
	}

	if inst.NumScenarios(0, 1) != 4 {
		t.Fatalf("Expected 4 joint scenarios, got %d", inst.NumScenarios(0, 1))
	}

	tests := []struct {
		scenario    entities.ScenarioID
		probability float64
		demand      float64
		yield2      float64
	}{
		{0, 0.25 * 0.4, 50, 0.7},
		{1, 0.25 * 0.6, 70, 0.7},
		{2, 0.75 * 0.4, 50, 1.0},
		{3, 0.75 * 0.6, 70, 1.0},
	}
	for _, tt := range tests {
		if got := inst.Probability(0, 1, tt.scenario); abs(got-tt.probability) > 1e-12 {
			t.Errorf("Scenario %s: expected probability %g, got %g", tt.scenario, tt.probability, got)
		}
		if got := inst.Demand(0, 1, tt.scenario); got != tt.demand {
			t.Errorf("Scenario %s: expected demand %g, got %g", tt.scenario, tt.demand, got)
		}
		if got := inst.Yield(0, 1, 1, tt.scenario); got != tt.yield2 {
			t.Errorf("Scenario %s: expected yield %g, got %g", tt.scenario, tt.yield2, got)
		}
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "truncated",
			content: strings.Join(strings.Split(sampleInstance, "\n")[:12], "\n"),
			wantErr: "ends early",
		},
		{
			name:    "bad capacity",
			content: strings.Replace(sampleInstance, "1,100", "1,lots", 1),
			wantErr: "invalid number",
		},
		{
			name:    "zero levels",
			content: strings.Replace(sampleInstance, "1,1,3,1", "1,1,3,0", 1),
			wantErr: "no production levels",
		},
		{
			name:    "demand scenarios out of order",
			content: strings.Replace(sampleInstance, "1,0.6,70", "2,0.6,70", 1),
			wantErr: "out of order",
		},
		{
			name:    "probabilities do not sum to one",
			content: strings.Replace(sampleInstance, "D1,1,2,0.5,1.0,0.9", "D1,1,2,0.6,1.0,0.9", 1),
			wantErr: "sum to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(0).LoadInstance(writeInstance(t, tt.content))
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoader_InvalidInstanceIsWrapped(t *testing.T) {
	content := strings.Replace(sampleInstance, "2,1,2,high,30,90", "2,1,2,high,95,90", 1)
	_, err := NewLoader(0).LoadInstance(writeInstance(t, content))
	if !errors.Is(err, entities.ErrInvalidInstance) {
		t.Errorf("Expected ErrInvalidInstance, got %v", err)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(0).LoadInstance(filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
