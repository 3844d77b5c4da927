// Package sqlite keeps run summaries in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vsinha/endoplan/pkg/application/dto"
)

// ResultStore records run and EEV summaries
type ResultStore struct {
	db     *sql.DB
	dbPath string
}

// NewResultStore opens or creates the database at dbPath
func NewResultStore(dbPath string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	store := &ResultStore{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *ResultStore) Path() string {
	return s.dbPath
}

func (s *ResultStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		version TEXT NOT NULL,
		n_products INTEGER NOT NULL,
		n_facilities INTEGER NOT NULL,
		max_n_distributions INTEGER NOT NULL,
		max_n_scenarios INTEGER NOT NULL,
		experiment TEXT NOT NULL,
		gap REAL,
		best_integer REAL,
		best_bound REAL,
		solution_time REAL NOT NULL,
		root_lp_time REAL NOT NULL,
		root_lp_bound REAL,
		n_nodes INTEGER NOT NULL,
		n_cuts INTEGER NOT NULL,
		callback_time REAL NOT NULL,
		n_callback_calls INTEGER NOT NULL,
		instance_file TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_experiment ON results(experiment);

	CREATE TABLE IF NOT EXISTS eev_results (
		version TEXT NOT NULL,
		n_products INTEGER NOT NULL,
		n_facilities INTEGER NOT NULL,
		max_n_distributions INTEGER NOT NULL,
		max_n_scenarios INTEGER NOT NULL,
		experiment TEXT NOT NULL,
		eev REAL NOT NULL,
		ev_solution_time REAL NOT NULL,
		ev_gap REAL,
		instance_file TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts one decomposition run
func (s *ResultStore) SaveRun(ctx context.Context, rec dto.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (version, n_products, n_facilities, max_n_distributions, max_n_scenarios, experiment,
			gap, best_integer, best_bound, solution_time, root_lp_time, root_lp_bound,
			n_nodes, n_cuts, callback_time, n_callback_calls, instance_file, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Version, rec.Products, rec.Facilities, rec.MaxDistributions, rec.MaxScenarios, rec.Experiment,
		finite(rec.Gap), finite(rec.BestInteger), finite(rec.BestBound), rec.SolutionTime.Seconds(), rec.RootTime.Seconds(), finite(rec.RootBound),
		rec.Nodes, rec.Cuts, rec.CallbackTime.Seconds(), rec.CallbackCalls, rec.InstanceFile,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// SaveEEV inserts one EEV computation
func (s *ResultStore) SaveEEV(ctx context.Context, rec dto.EEVRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO eev_results (version, n_products, n_facilities, max_n_distributions, max_n_scenarios, experiment,
			eev, ev_solution_time, ev_gap, instance_file, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Version, rec.Products, rec.Facilities, rec.MaxDistributions, rec.MaxScenarios, rec.Experiment,
		rec.EEV, rec.EVSolutionTime.Seconds(), finite(rec.EVGap), rec.InstanceFile,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save EEV: %w", err)
	}
	return nil
}

// Runs returns the stored runs of an experiment in insertion order; an empty
// experiment returns every run
func (s *ResultStore) Runs(ctx context.Context, experiment string) ([]dto.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, n_products, n_facilities, max_n_distributions, max_n_scenarios, experiment,
			gap, best_integer, best_bound, solution_time, root_lp_time, root_lp_bound,
			n_nodes, n_cuts, callback_time, n_callback_calls, instance_file, recorded_at
		FROM results
		WHERE ? = '' OR experiment = ?
		ORDER BY rowid`, experiment, experiment)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []dto.RunRecord
	for rows.Next() {
		var (
			rec                                  dto.RunRecord
			gap, bestInteger, bestBound, rootBound sql.NullFloat64
			solution, rootTime, callbackTime       float64
			recordedAt                             string
		)
		err := rows.Scan(&rec.Version, &rec.Products, &rec.Facilities, &rec.MaxDistributions, &rec.MaxScenarios,
			&rec.Experiment, &gap, &bestInteger, &bestBound, &solution, &rootTime, &rootBound,
			&rec.Nodes, &rec.Cuts, &callbackTime, &rec.CallbackCalls, &rec.InstanceFile, &recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Gap = orElse(gap, math.Inf(1))
		rec.BestInteger = orElse(bestInteger, math.NaN())
		rec.BestBound = orElse(bestBound, math.NaN())
		rec.RootBound = orElse(rootBound, math.NaN())
		rec.SolutionTime = seconds(solution)
		rec.RootTime = seconds(rootTime)
		rec.CallbackTime = seconds(callbackTime)
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp %q: %w", recordedAt, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountEEV returns the number of stored EEV computations
func (s *ResultStore) CountEEV(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eev_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count EEV results: %w", err)
	}
	return n, nil
}

// finite maps non-finite values to NULL
func finite(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func orElse(v sql.NullFloat64, fallback float64) float64 {
	if v.Valid {
		return v.Float64
	}
	return fallback
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
