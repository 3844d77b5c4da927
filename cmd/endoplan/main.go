package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/endoplan/pkg/application/services"
	"github.com/vsinha/endoplan/pkg/infrastructure/config"
	"github.com/vsinha/endoplan/pkg/infrastructure/events"
	"github.com/vsinha/endoplan/pkg/infrastructure/logging"
	"github.com/vsinha/endoplan/pkg/infrastructure/metrics"
)

// app carries what every subcommand needs once the root pre-run has loaded
// the configuration
type app struct {
	configFile string
	verbose    bool
	flags      solveFlags

	settings *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "endoplan",
		Short: "Production planning under decision-dependent uncertainty",
		Long: `endoplan chooses production levels per facility and product so that
the chosen levels select the yield distribution of each product, and
maximizes expected profit with a Benders decomposition.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.finish()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newSolveCommand(a),
		newEEVCommand(a),
		newInspectCommand(a),
		newGenerateCommand(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	settings := config.Default()
	if a.configFile != "" {
		loaded, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		settings = loaded
	}
	a.flags.apply(cmd, settings)
	if err := settings.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(settings.Logging, a.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.settings = settings
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	return nil
}

// newService wires the configured engine, metrics and loaders together and
// logs run milestones from the service's event stream
func (a *app) newService() (*services.PlanningService, error) {
	engine, err := newEngine(a.settings.Engine, a.logger, a.settings.Solve.MaxNodes)
	if err != nil {
		return nil, err
	}
	service := services.NewPlanningService(engine,
		services.WithLogger(a.logger),
		services.WithMetrics(metrics.New(a.registry)),
		services.WithLevelOffset(a.settings.Input.LevelOffset),
	)
	if err := service.Events().Subscribe(events.AllSolveEvents, events.NewProgressLogger(a.logger)); err != nil {
		return nil, fmt.Errorf("failed to subscribe progress logger: %w", err)
	}
	return service, nil
}

// finish reports the collected counters and flushes the logger
func (a *app) finish() {
	if a.logger == nil {
		return
	}
	if a.verbose {
		families, err := a.registry.Gather()
		if err != nil {
			a.logger.Warn("failed to gather metrics", zap.Error(err))
		}
		for _, mf := range families {
			total := 0.0
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue() + float64(m.GetHistogram().GetSampleCount())
			}
			a.logger.Debug("metric", zap.String("name", mf.GetName()), zap.Float64("total", total))
		}
	}
	_ = a.logger.Sync()
}

// timeout bounds a command by the configured time limit plus a grace period
// for model building and reporting
func (a *app) timeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.settings.Solve.TimeLimit+time.Minute)
}
