package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vsinha/endoplan/pkg/application/dto"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	// Out receives console output; nil means stdout
	Out io.Writer
}

func (c Config) writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Generate writes a solve result in the configured format
func Generate(result *dto.SolveResult, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(result, config)
	case "json":
		return writeJSON(newJSONResult(result), baseName(result)+".json", config)
	case "csv":
		return generateCSVOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// GenerateEEV writes an EEV result in the configured format
func GenerateEEV(result *dto.EEVResult, config Config) error {
	switch config.Format {
	case "text":
		return generateEEVText(result, config)
	case "json":
		return writeJSON(jsonEEV{EEVResult: result, EV: newJSONResult(result.EV)}, result.Instance+"_eev-"+result.Mode+".json", config)
	case "csv":
		if err := generateCSVOutput(result.EV, config); err != nil {
			return err
		}
		return writeCSVFile(filepath.Join(config.OutputDir, "eev.csv"), config,
			[]string{"instance", "mode", "first_stage_cost", "expected_second_stage", "eev"},
			[][]string{{result.Instance, result.Mode, result.FirstStageCost.String(), result.ExpectedSecondStage.String(), result.EEV.String()}})
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func baseName(result *dto.SolveResult) string {
	return result.Instance + "_" + result.Experiment
}

// generateTextOutput creates human-readable text output
func generateTextOutput(result *dto.SolveResult, config Config) error {
	w := config.writer()
	fmt.Fprintf(w, "Run %s\n", result.RunID)
	fmt.Fprintf(w, "==================================================\n\n")

	fmt.Fprintf(w, "Instance:    %s (%d products, %d facilities, up to %d distributions x %d scenarios)\n",
		result.Instance, result.Size.Products, result.Size.Facilities, result.Size.MaxDistributions, result.Size.MaxScenarios)
	fmt.Fprintf(w, "Experiment:  %s on %s\n", result.Experiment, result.Engine)
	fmt.Fprintf(w, "Status:      %s\n", result.Status)
	fmt.Fprintf(w, "Objective:   %s\n", formatNumber(result.Objective, result.Feasible))
	fmt.Fprintf(w, "Best bound:  %s\n", formatNumber(result.BestBound, true))
	fmt.Fprintf(w, "Gap:         %s\n", formatGap(result.Gap))
	fmt.Fprintf(w, "Nodes:       %d\n", result.Nodes)
	fmt.Fprintf(w, "Cuts:        %d over %d candidates (callback %v)\n", result.Cuts, result.Candidates, result.CallbackTime)
	fmt.Fprintf(w, "Inequalities: %d valid", result.ValidInequalities)
	for _, kind := range []string{"minimal", "alternative_minimal", "extended", "alternative_extended"} {
		if n := result.CoverInequalities[kind]; n > 0 {
			fmt.Fprintf(w, ", %d %s", n, kind)
		}
	}
	fmt.Fprintln(w)
	if result.RootCaptured {
		fmt.Fprintf(w, "Root bound:  %s after %v\n", formatNumber(result.RootBound, true), result.RootTime)
	}
	fmt.Fprintf(w, "Build time:  %v\n", result.BuildTime)
	fmt.Fprintf(w, "Solve time:  %v\n\n", result.SolveTime)

	if !result.Feasible {
		fmt.Fprintf(w, "No feasible plan found.\n")
		return nil
	}

	fmt.Fprintf(w, "First-stage cost:          %s\n", result.FirstStageCost.StringFixed(4))
	fmt.Fprintf(w, "Expected second-stage:     %s\n\n", result.ExpectedSecondStage.StringFixed(4))

	writePlanTable(w, result.Plan)

	if config.Verbose {
		for _, product := range result.SecondStage {
			fmt.Fprintf(w, "%s under %s: phi %.4f, expected profit %s\n",
				product.Product, product.Distribution, product.Phi, product.ExpectedProfit.StringFixed(4))
			fmt.Fprintf(w, "  %-8s %-12s %-10s %-12s %-10s %-12s %-10s\n",
				"Scenario", "Probability", "Demand", "Production", "Sales", "Oversupply", "Profit")
			for _, sc := range product.Scenarios {
				fmt.Fprintf(w, "  %-8d %-12.4f %-10.3f %-12.3f %-10.3f %-12.3f %-10.3f\n",
					sc.Scenario, sc.Probability, sc.Demand, sc.Production, sc.Sales, sc.Oversupply, sc.Profit)
			}
			fmt.Fprintln(w)
		}
	}

	if config.OutputDir != "" {
		return saveCopy(result, config)
	}
	return nil
}

func writePlanTable(w io.Writer, plan []dto.PlanEntry) {
	fmt.Fprintf(w, "Production plan:\n")
	fmt.Fprintf(w, "%-15s %-15s %-6s %-10s %-10s %-10s\n",
		"Product", "Facility", "Level", "Lower", "Upper", "Quantity")
	fmt.Fprintf(w, "%-15s %-15s %-6s %-10s %-10s %-10s\n",
		"---------------", "---------------", "------", "----------", "----------", "----------")
	for _, entry := range plan {
		fmt.Fprintf(w, "%-15s %-15s %-6d %-10.3f %-10.3f %-10.3f\n",
			entry.Product, entry.Facility, entry.Level, entry.LowerBound, entry.UpperBound, entry.Quantity)
	}
	fmt.Fprintln(w)
}

func generateEEVText(result *dto.EEVResult, config Config) error {
	w := config.writer()
	fmt.Fprintf(w, "EEV of %s (expected %s)\n", result.Instance, result.Mode)
	fmt.Fprintf(w, "==================================================\n\n")
	fmt.Fprintf(w, "EV run:            %s, %s, objective %s, gap %s, %v\n",
		result.EV.Instance, result.EV.Status, formatNumber(result.EV.Objective, result.EV.Feasible),
		formatGap(result.EV.Gap), result.EV.SolveTime)
	for i, name := range result.Distributions {
		fmt.Fprintf(w, "Enforced:          %s -> %s\n", result.EV.SecondStage[i].Product, name)
	}
	fmt.Fprintf(w, "First-stage cost:  %s\n", result.FirstStageCost.StringFixed(4))
	fmt.Fprintf(w, "Expected profit:   %s\n", result.ExpectedSecondStage.StringFixed(4))
	fmt.Fprintf(w, "EEV:               %s\n\n", result.EEV.StringFixed(4))
	writePlanTable(w, result.EV.Plan)
	return nil
}

// saveCopy writes the JSON form next to the text report
func saveCopy(result *dto.SolveResult, config Config) error {
	data, err := json.MarshalIndent(newJSONResult(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return saveFile(filepath.Join(config.OutputDir, baseName(result)+".json"), data, config)
}

// jsonResult replaces the non-finite numbers JSON cannot carry with nulls
type jsonResult struct {
	*dto.SolveResult
	Objective *float64 `json:"objective"`
	BestBound *float64 `json:"best_bound"`
	Gap       *float64 `json:"gap"`
	RootBound *float64 `json:"root_bound"`
}

type jsonEEV struct {
	*dto.EEVResult
	EV jsonResult `json:"ev"`
}

func newJSONResult(r *dto.SolveResult) jsonResult {
	out := jsonResult{
		SolveResult: r,
		BestBound:   finite(r.BestBound),
		Gap:         finite(r.Gap),
	}
	if r.Feasible {
		out.Objective = finite(r.Objective)
	}
	if r.RootCaptured {
		out.RootBound = finite(r.RootBound)
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeJSON(v any, filename string, config Config) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if config.OutputDir == "" {
		fmt.Fprintln(config.writer(), string(data))
		return nil
	}
	return saveFile(filepath.Join(config.OutputDir, filename), data, config)
}

func saveFile(filename string, data []byte, config Config) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "Results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes the plan and the second stage as two CSV files
func generateCSVOutput(result *dto.SolveResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}

	planRows := make([][]string, 0, len(result.Plan))
	for _, entry := range result.Plan {
		planRows = append(planRows, []string{
			entry.Product, entry.Facility, strconv.Itoa(entry.Level),
			formatFloat(entry.LowerBound), formatFloat(entry.UpperBound), formatFloat(entry.Quantity),
		})
	}
	planFile := filepath.Join(config.OutputDir, baseName(result)+"_plan.csv")
	err := writeCSVFile(planFile, config,
		[]string{"product", "facility", "level", "lower_bound", "upper_bound", "quantity"}, planRows)
	if err != nil {
		return fmt.Errorf("failed to write plan CSV: %w", err)
	}

	var stageRows [][]string
	for _, product := range result.SecondStage {
		for _, sc := range product.Scenarios {
			stageRows = append(stageRows, []string{
				product.Product, product.Distribution, strconv.Itoa(sc.Scenario),
				formatFloat(sc.Probability), formatFloat(sc.Demand), formatFloat(sc.Production),
				formatFloat(sc.Sales), formatFloat(sc.Oversupply), formatFloat(sc.Profit),
			})
		}
	}
	stageFile := filepath.Join(config.OutputDir, baseName(result)+"_second_stage.csv")
	err = writeCSVFile(stageFile, config,
		[]string{"product", "distribution", "scenario", "probability", "demand", "production", "sales", "oversupply", "profit"},
		stageRows)
	if err != nil {
		return fmt.Errorf("failed to write second-stage CSV: %w", err)
	}
	return nil
}

func writeCSVFile(filename string, config Config, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "Results saved to: %s\n", filename)
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatNumber(v float64, ok bool) string {
	if !ok || math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatGap(gap float64) string {
	if math.IsInf(gap, 0) || math.IsNaN(gap) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f%%", 100*gap)
}
