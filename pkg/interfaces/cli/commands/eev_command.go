package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/application/dto"
	"github.com/vsinha/endoplan/pkg/application/services"
	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/infrastructure/config"
	"github.com/vsinha/endoplan/pkg/interfaces/cli/output"
)

// EEVConfig holds configuration for the eev command
type EEVConfig struct {
	InstanceFile string
	// EVFile is an expected-value instance to use instead of deriving one
	EVFile string
	// Mode is demand, yield or all
	Mode      string
	OutputDir string
	Verbose   bool
	Settings  *config.Config
	Out       io.Writer
}

// EEVCommand computes the expected result of the expected-value solution
type EEVCommand struct {
	config  EEVConfig
	service *services.PlanningService
	logger  *zap.Logger
}

// NewEEVCommand creates a new eev command
func NewEEVCommand(config EEVConfig, service *services.PlanningService, logger *zap.Logger) *EEVCommand {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EEVCommand{config: config, service: service, logger: logger}
}

// Execute runs the eev command
func (c *EEVCommand) Execute(ctx context.Context) error {
	settings := c.config.Settings
	if c.config.InstanceFile == "" {
		return fmt.Errorf("instance file is required")
	}
	mode, err := entities.ParseEVMode(c.config.Mode)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	opts, err := settings.SolveOptions()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	inst, err := c.service.LoadInstance(c.config.InstanceFile, settings.Input.Format)
	if err != nil {
		return err
	}

	var ev *entities.Instance
	if c.config.EVFile != "" {
		ev, err = c.service.LoadInstance(c.config.EVFile, settings.Input.Format)
	} else {
		ev, err = inst.ExpectedValueInstance(mode)
	}
	if err != nil {
		return fmt.Errorf("failed to build EV instance: %w", err)
	}

	result, err := c.service.ComputeEEV(ctx, inst, ev, mode.String(), opts)
	if err != nil {
		return err
	}

	err = output.GenerateEEV(result, output.Config{
		Format:    settings.Output.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Out:       c.config.Out,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	return saveResult(ctx, settings.Output.ResultsFile, c.logger, func(sink services.ResultSink) error {
		return sink.SaveEEV(ctx, dto.NewEEVRecord(result, settings.Output.Version, c.config.InstanceFile, time.Now()))
	})
}
