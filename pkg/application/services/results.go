package services

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vsinha/endoplan/pkg/application/dto"
	"github.com/vsinha/endoplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/endoplan/pkg/infrastructure/repositories/sqlite"
)

// ResultSink keeps one summary row per run
type ResultSink interface {
	SaveRun(ctx context.Context, rec dto.RunRecord) error
	SaveEEV(ctx context.Context, rec dto.EEVRecord) error
	Close() error
}

var (
	_ ResultSink = (*csv.ResultsWriter)(nil)
	_ ResultSink = (*sqlite.ResultStore)(nil)
)

// OpenResultSink opens a SQLite database for paths ending in .db and a CSV
// file otherwise
func OpenResultSink(path string) (ResultSink, error) {
	if strings.EqualFold(filepath.Ext(path), ".db") {
		return sqlite.NewResultStore(path)
	}
	return csv.NewResultsWriter(path), nil
}
