package json

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

const sampleDocument = `{
  "name": "orchard",
  "facilities": [{"name": "Valley", "capacity": 10}],
  "products": [{
    "name": "Apples",
    "sales_price": 10,
    "leftover_value": 1,
    "manufacturing_costs": [2],
    "levels": [[{"lower": 0, "upper": 6}, {"lower": 4, "upper": 11}]],
    "distributions": [
      {"name": "low", "levels": [0], "scenarios": [{"probability": 1, "demand": 5, "yields": [0.9]}]},
      {"name": "high", "levels": [1], "scenarios": [
        {"probability": 0.5, "demand": 5, "yields": [1]},
        {"probability": 0.5, "demand": 8, "yields": [0.8]}
      ]}
    ]
  }]
}`

func TestLoader_Parse(t *testing.T) {
	inst, err := NewLoader(1).Parse([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "orchard", inst.Name())
	assert.Equal(t, "Valley", inst.FacilityName(0))
	assert.Equal(t, "Apples", inst.ProductName(0))
	assert.Equal(t, 2.0, inst.ManufacturingCost(0, 0))
	assert.Equal(t, 10.0, inst.LevelUpperBound(0, 0, 1))
	assert.Equal(t, 2, inst.NumDistributions(0))
	assert.Equal(t, "high", inst.DistributionName(0, 1))
	assert.Equal(t, 2, inst.NumScenarios(0, 1))
	assert.Equal(t, 8.0, inst.Demand(0, 1, 1))
	assert.Equal(t, 0.8, inst.Yield(0, 1, 0, 1))
}

func TestLoader_LoadInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orchard.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o644))

	inst, err := NewLoader(0).LoadInstance(path)
	require.NoError(t, err)
	assert.Equal(t, 11.0, inst.LevelUpperBound(0, 0, 1))

	_, err = NewLoader(0).LoadInstance(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoader_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		document string
		wantErr  string
	}{
		{"not json", `{"facilities": [`, "not valid JSON"},
		{"facilities not array", `{"facilities": 3, "products": []}`, "facilities must be an array"},
		{"missing capacity", `{"facilities": [{"name": "A"}], "products": []}`, "missing capacity"},
		{"missing price", `{"facilities": [{"capacity": 1}], "products": [{"name": "P"}]}`, "missing sales_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(0).Parse([]byte(tt.document))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_InvalidInstance(t *testing.T) {
	doc := `{"facilities": [{"capacity": 10}], "products": []}`
	_, err := NewLoader(0).Parse([]byte(doc))
	assert.True(t, errors.Is(err, entities.ErrInvalidInstance))
}
