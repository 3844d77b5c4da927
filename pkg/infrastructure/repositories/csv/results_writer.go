package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/vsinha/endoplan/pkg/application/dto"
)

var (
	runHeader = []string{"version", "n_products", "n_facilities", "max_n_distributions", "max_n_scenarios", "experiment",
		"gap", "best_integer", "best_bound", "solution_time", "root_lp_time", "root_lp_bound",
		"n_nodes", "n_cuts", "callback_time", "n_callback_calls", "instance_file", "experiment_time"}
	eevHeader = []string{"version", "n_products", "n_facilities", "max_n_distributions", "max_n_scenarios", "experiment",
		"eev", "ev_solution_time", "ev_gap", "instance_file", "experiment_time"}
)

// ResultsWriter appends run summaries to a CSV file, writing the header when
// the file is new or empty
type ResultsWriter struct {
	path string
	mu   sync.Mutex
}

// NewResultsWriter creates a writer for path. The file is created on first write.
func NewResultsWriter(path string) *ResultsWriter {
	return &ResultsWriter{path: path}
}

// SaveRun appends one decomposition run
func (w *ResultsWriter) SaveRun(_ context.Context, rec dto.RunRecord) error {
	row := append(sizeColumns(rec.Version, rec.InstanceSize), rec.Experiment,
		formatFloat(rec.Gap), formatFloat(rec.BestInteger), formatFloat(rec.BestBound),
		formatSeconds(rec.SolutionTime), formatSeconds(rec.RootTime), formatFloat(rec.RootBound),
		strconv.FormatInt(rec.Nodes, 10), strconv.FormatInt(rec.Cuts, 10),
		formatSeconds(rec.CallbackTime), strconv.FormatInt(rec.CallbackCalls, 10),
		rec.InstanceFile, rec.RecordedAt.Format(time.RFC3339))
	return w.append(runHeader, row)
}

// SaveEEV appends one EEV computation
func (w *ResultsWriter) SaveEEV(_ context.Context, rec dto.EEVRecord) error {
	row := append(sizeColumns(rec.Version, rec.InstanceSize), rec.Experiment,
		formatFloat(rec.EEV), formatSeconds(rec.EVSolutionTime), formatFloat(rec.EVGap),
		rec.InstanceFile, rec.RecordedAt.Format(time.RFC3339))
	return w.append(eevHeader, row)
}

// Close is a no-op; every write closes the file
func (w *ResultsWriter) Close() error { return nil }

func (w *ResultsWriter) append(header, row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results file %s: %w", w.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat results file %s: %w", w.path, err)
	}

	out := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := out.Write(header); err != nil {
			return fmt.Errorf("failed to write results header: %w", err)
		}
	}
	if err := out.Write(row); err != nil {
		return fmt.Errorf("failed to write results row: %w", err)
	}
	out.Flush()
	return out.Error()
}

func sizeColumns(version string, size dto.InstanceSize) []string {
	return []string{
		version,
		strconv.Itoa(size.Products),
		strconv.Itoa(size.Facilities),
		strconv.Itoa(size.MaxDistributions),
		strconv.Itoa(size.MaxScenarios),
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatSeconds(d time.Duration) string { return formatFloat(d.Seconds()) }
