package commands

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for instance generation
type GenerateConfig struct {
	Facilities      int    // Number of facilities
	Products        int    // Number of products
	Levels          int    // Production levels per (facility, product) pair
	DemandScenarios int    // Demand scenarios shared by every distribution
	YieldScenarios  int    // Yield scenarios per distribution
	OutputFile      string // Instance file to write
	Seed            int64  // Random seed for reproducible generation
}

// GenerateCommand writes random instances in the sectioned CSV format
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
	logger *zap.Logger
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig, logger *zap.Logger) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		config.Seed = seed
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	c := cmd.config
	if c.Facilities <= 0 || c.Products <= 0 || c.Levels <= 0 || c.DemandScenarios <= 0 || c.YieldScenarios <= 0 {
		return fmt.Errorf("facilities, products, levels and scenario counts must be positive")
	}
	if c.DemandScenarios > 100 || c.YieldScenarios > 100 {
		return fmt.Errorf("at most 100 demand and 100 yield scenarios are supported")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd.logger.Info("generating instance",
		zap.Int("facilities", c.Facilities),
		zap.Int("products", c.Products),
		zap.Int("levels", c.Levels),
		zap.Int("demand_scenarios", c.DemandScenarios),
		zap.Int("yield_scenarios", c.YieldScenarios),
		zap.Int64("seed", c.Seed),
		zap.String("output", c.OutputFile))

	tables := cmd.Generate()

	if err := os.MkdirAll(filepath.Dir(c.OutputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(c.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create instance file: %w", err)
	}
	defer file.Close()

	if err := csv.WriteTables(file, tables); err != nil {
		return err
	}
	return file.Close()
}

// Generate draws a random instance. Higher production levels raise the
// yields, so the level choice shapes the scenario set.
func (cmd *GenerateCommand) Generate() *csv.InstanceTables {
	c := cmd.config
	tables := &csv.InstanceTables{
		Facilities: make([]entities.Facility, c.Facilities),
		Products:   make([]csv.ProductTables, c.Products),
	}

	for f := range tables.Facilities {
		tables.Facilities[f] = entities.Facility{
			Name:     fmt.Sprintf("F%d", f+1),
			Capacity: float64(50 + cmd.rand.Intn(101)),
		}
	}

	for p := range tables.Products {
		price := float64(5 + cmd.rand.Intn(16))
		product := csv.ProductTables{
			Name:               fmt.Sprintf("P%d", p+1),
			SalesPrice:         price,
			LeftoverValue:      cmd.round(cmd.rand.Float64() * 0.3 * price),
			ManufacturingCosts: make([]float64, c.Facilities),
			Levels:             make([][]entities.Level, c.Facilities),
		}
		for f, facility := range tables.Facilities {
			product.ManufacturingCosts[f] = cmd.round(1 + cmd.rand.Float64()*0.4*price)
			product.Levels[f] = cmd.generateLevels(facility.Capacity)
		}
		for k, combo := range levelCombinations(c.Facilities, c.Levels) {
			product.Distributions = append(product.Distributions, csv.DistributionTables{
				Name:   fmt.Sprintf("D%d_%d", p+1, k+1),
				Levels: combo,
				Yields: cmd.generateYields(combo),
			})
		}
		tables.Products[p] = product
	}

	tables.DemandProbabilities = cmd.generateProbabilities(c.DemandScenarios)
	tables.Demands = make([][]float64, c.DemandScenarios)
	for s := range tables.Demands {
		tables.Demands[s] = make([]float64, c.Products)
		for p := range tables.Demands[s] {
			tables.Demands[s][p] = float64(10 + cmd.rand.Intn(91))
		}
	}
	return tables
}

// generateLevels splits [0, capacity] into consecutive levels that overlap
// at their endpoints
func (cmd *GenerateCommand) generateLevels(capacity float64) []entities.Level {
	step := math.Floor(capacity / float64(cmd.config.Levels))
	levels := make([]entities.Level, cmd.config.Levels)
	for k := range levels {
		levels[k] = entities.Level{Lower: float64(k) * step, Upper: float64(k+1) * step}
	}
	levels[len(levels)-1].Upper = capacity
	return levels
}

func (cmd *GenerateCommand) generateYields(combo []entities.LevelID) []csv.YieldScenario {
	boost := 0.0
	for _, level := range combo {
		boost += 0.05 * float64(level)
	}
	probabilities := cmd.generateProbabilities(cmd.config.YieldScenarios)
	scenarios := make([]csv.YieldScenario, len(probabilities))
	for s, probability := range probabilities {
		yields := make([]float64, len(combo))
		for f := range yields {
			yields[f] = cmd.round(math.Min(1, 0.5+0.4*cmd.rand.Float64()+boost))
		}
		scenarios[s] = csv.YieldScenario{Probability: probability, Yields: yields}
	}
	return scenarios
}

// generateProbabilities draws n probabilities in hundredths summing to one
func (cmd *GenerateCommand) generateProbabilities(n int) []float64 {
	weights := make([]int, n)
	for i := range weights {
		weights[i] = 1
	}
	for range 100 - n {
		weights[cmd.rand.Intn(n)]++
	}
	probabilities := make([]float64, n)
	for i, w := range weights {
		probabilities[i] = float64(w) / 100
	}
	return probabilities
}

func (cmd *GenerateCommand) round(v float64) float64 {
	return math.Round(v*100) / 100
}

// levelCombinations enumerates every level assignment, last facility fastest
func levelCombinations(facilities, levels int) [][]entities.LevelID {
	combos := [][]entities.LevelID{{}}
	for range facilities {
		next := make([][]entities.LevelID, 0, len(combos)*levels)
		for _, prefix := range combos {
			for l := range levels {
				next = append(next, append(append([]entities.LevelID(nil), prefix...), entities.LevelID(l)))
			}
		}
		combos = next
	}
	return combos
}
