package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/application/dto"
	"github.com/vsinha/endoplan/pkg/application/services"
	"github.com/vsinha/endoplan/pkg/infrastructure/config"
	"github.com/vsinha/endoplan/pkg/interfaces/cli/output"
)

// SolveConfig holds configuration for the solve command
type SolveConfig struct {
	InstanceFile string
	OutputDir    string
	Verbose      bool
	Settings     *config.Config
	// Out receives the report; nil means stdout
	Out io.Writer
}

// SolveCommand solves one instance and reports the run
type SolveCommand struct {
	config  SolveConfig
	service *services.PlanningService
	logger  *zap.Logger
}

// NewSolveCommand creates a new solve command
func NewSolveCommand(config SolveConfig, service *services.PlanningService, logger *zap.Logger) *SolveCommand {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolveCommand{config: config, service: service, logger: logger}
}

// Execute runs the solve command
func (c *SolveCommand) Execute(ctx context.Context) error {
	settings := c.config.Settings
	if c.config.InstanceFile == "" {
		return fmt.Errorf("instance file is required")
	}
	opts, err := settings.SolveOptions()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	result, err := c.service.Solve(ctx, c.config.InstanceFile, settings.Input.Format, opts)
	if err != nil {
		return err
	}

	err = output.Generate(result, output.Config{
		Format:    settings.Output.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Out:       c.config.Out,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	return saveResult(ctx, settings.Output.ResultsFile, c.logger, func(sink services.ResultSink) error {
		return sink.SaveRun(ctx, dto.NewRunRecord(result, settings.Output.Version, c.config.InstanceFile, time.Now()))
	})
}

// saveResult appends a summary row to the configured results file, if any
func saveResult(ctx context.Context, path string, logger *zap.Logger, save func(services.ResultSink) error) error {
	if path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sink, err := services.OpenResultSink(path)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer sink.Close()

	if err := save(sink); err != nil {
		return err
	}
	logger.Info("results saved", zap.String("file", path))
	return sink.Close()
}
