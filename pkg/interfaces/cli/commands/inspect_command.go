package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/vsinha/endoplan/pkg/application/services"
	"github.com/vsinha/endoplan/pkg/interfaces/cli/output"
)

// InspectConfig holds configuration for the inspect command
type InspectConfig struct {
	InstanceFile string
	Format       string
	Verbose      bool
	Out          io.Writer
}

// InspectCommand loads an instance and prints its data
type InspectCommand struct {
	config  InspectConfig
	service *services.PlanningService
}

// NewInspectCommand creates a new inspect command
func NewInspectCommand(config InspectConfig, service *services.PlanningService) *InspectCommand {
	return &InspectCommand{config: config, service: service}
}

// Execute runs the inspect command
func (c *InspectCommand) Execute() error {
	if c.config.InstanceFile == "" {
		return fmt.Errorf("instance file is required")
	}
	inst, err := c.service.LoadInstance(c.config.InstanceFile, c.config.Format)
	if err != nil {
		return err
	}
	out := c.config.Out
	if out == nil {
		out = os.Stdout
	}
	output.WriteInstanceSummary(out, inst, c.config.Verbose)
	return nil
}
