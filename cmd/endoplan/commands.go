package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/endoplan/pkg/infrastructure/config"
	"github.com/vsinha/endoplan/pkg/interfaces/cli/commands"
)

// solveFlags are the command line overrides of the solve section
type solveFlags struct {
	vi           [6]bool
	minimal      bool
	extended     bool
	heuristic    bool
	timeLimit    time.Duration
	gap          float64
	logFrequency time.Duration
	offset       float64
	engine       string
	maxNodes     int64
	inputFormat  string
	format       string
	results      string
	version      string
}

func addSolveFlags(cmd *cobra.Command, f *solveFlags) {
	flags := cmd.Flags()
	for i := range f.vi {
		flags.BoolVar(&f.vi[i], fmt.Sprintf("vi%d", i+1), false, fmt.Sprintf("Add valid inequality VI%d to the master", i+1))
	}
	flags.BoolVar(&f.minimal, "mci", false, "Add minimal and alternative cover inequalities")
	flags.BoolVar(&f.extended, "eci", false, "Add extended and alternative-extended cover inequalities")
	flags.BoolVar(&f.heuristic, "heuristic", false, "Request the engine improvement heuristic")
	flags.DurationVar(&f.timeLimit, "time-limit", 0, "Wall clock limit of the master search")
	flags.Float64Var(&f.gap, "gap", 0, "Target relative optimality gap")
	flags.DurationVar(&f.logFrequency, "log-frequency", 0, "Interval between progress lines")
	flags.Float64Var(&f.offset, "offset", 0, "Subtract this amount from every production level upper bound on load")
	flags.StringVar(&f.engine, "engine", "", "MIP engine: enumerate or highs")
	flags.Int64Var(&f.maxNodes, "max-nodes", 0, "Node limit of the enumerate engine")
	flags.StringVar(&f.inputFormat, "input-format", "", "Instance format: csv or json (default by extension)")
	flags.StringVar(&f.format, "format", "", "Output format: text, json, csv")
	flags.StringVar(&f.results, "results", "", "Append a summary row to this CSV file or SQLite database (.db)")
	flags.StringVar(&f.version, "run-version", "", "Version tag of summary rows")
}

// apply copies every flag set on the command line over settings
func (f *solveFlags) apply(cmd *cobra.Command, settings *config.Config) {
	changed := cmd.Flags().Changed

	anyVI := false
	for i := range f.vi {
		anyVI = anyVI || changed(fmt.Sprintf("vi%d", i+1))
	}
	if anyVI {
		settings.Solve.ValidInequalities = nil
		for i, on := range f.vi {
			if on {
				settings.Solve.ValidInequalities = append(settings.Solve.ValidInequalities, fmt.Sprintf("VI%d", i+1))
			}
		}
	}

	if changed("mci") {
		settings.Solve.MinimalCovers = f.minimal
	}
	if changed("eci") {
		settings.Solve.ExtendedCovers = f.extended
	}
	if changed("heuristic") {
		settings.Solve.ImprovementHeuristic = f.heuristic
	}
	if changed("time-limit") {
		settings.Solve.TimeLimit = f.timeLimit
	}
	if changed("gap") {
		settings.Solve.TargetGap = f.gap
	}
	if changed("log-frequency") {
		settings.Solve.LogFrequency = f.logFrequency
	}
	if changed("offset") {
		settings.Input.LevelOffset = f.offset
	}
	if changed("engine") {
		settings.Engine = f.engine
	}
	if changed("max-nodes") {
		settings.Solve.MaxNodes = f.maxNodes
	}
	if changed("input-format") {
		settings.Input.Format = f.inputFormat
	}
	if changed("format") {
		settings.Output.Format = f.format
	}
	if changed("results") {
		settings.Output.ResultsFile = f.results
	}
	if changed("run-version") {
		settings.Output.Version = f.version
	}
}

func newSolveCommand(a *app) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "solve <instance>",
		Short: "Solve an instance and report the production plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := a.newService()
			if err != nil {
				return err
			}
			ctx, cancel := a.timeout(cmd)
			defer cancel()

			return commands.NewSolveCommand(commands.SolveConfig{
				InstanceFile: args[0],
				OutputDir:    outputDir,
				Verbose:      a.verbose,
				Settings:     a.settings,
				Out:          cmd.OutOrStdout(),
			}, service, a.logger).Execute(ctx)
		},
	}
	addSolveFlags(cmd, &a.flags)
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for CSV reports and JSON copies")
	return cmd
}

func newEEVCommand(a *app) *cobra.Command {
	var (
		outputDir string
		evFile    string
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "eev <instance>",
		Short: "Evaluate the expected-value plan under the stochastic instance",
		Long: `eev solves the expected-value instance, where demands and/or yields are
replaced by their expectations, and evaluates its first-stage plan against
the distributions of the stochastic instance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := a.newService()
			if err != nil {
				return err
			}
			ctx, cancel := a.timeout(cmd)
			defer cancel()

			return commands.NewEEVCommand(commands.EEVConfig{
				InstanceFile: args[0],
				EVFile:       evFile,
				Mode:         mode,
				OutputDir:    outputDir,
				Verbose:      a.verbose,
				Settings:     a.settings,
				Out:          cmd.OutOrStdout(),
			}, service, a.logger).Execute(ctx)
		},
	}
	addSolveFlags(cmd, &a.flags)
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for CSV reports")
	cmd.Flags().StringVar(&evFile, "ev-file", "", "Expected-value instance to use instead of deriving one")
	cmd.Flags().StringVar(&mode, "mode", "all", "Expectation taken over: demand, yield or all")
	return cmd
}

func newInspectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <instance>",
		Short: "Print the facilities, products, levels and distributions of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := a.newService()
			if err != nil {
				return err
			}
			return commands.NewInspectCommand(commands.InspectConfig{
				InstanceFile: args[0],
				Format:       a.settings.Input.Format,
				Verbose:      a.verbose,
				Out:          cmd.OutOrStdout(),
			}, service).Execute()
		},
	}
	cmd.Flags().Float64Var(&a.flags.offset, "offset", 0, "Subtract this amount from every production level upper bound on load")
	cmd.Flags().StringVar(&a.flags.inputFormat, "input-format", "", "Instance format: csv or json (default by extension)")
	return cmd
}

func newGenerateCommand(a *app) *cobra.Command {
	var gen commands.GenerateConfig
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random instance in the sectioned CSV format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gen.OutputFile == "" {
				return fmt.Errorf("--output is required")
			}
			if err := commands.NewGenerateCommand(gen, a.logger).Execute(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Instance written to %s\n", gen.OutputFile)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&gen.Facilities, "facilities", 2, "Number of facilities")
	flags.IntVar(&gen.Products, "products", 3, "Number of products")
	flags.IntVar(&gen.Levels, "levels", 2, "Production levels per facility and product")
	flags.IntVar(&gen.DemandScenarios, "demand-scenarios", 3, "Demand scenarios")
	flags.IntVar(&gen.YieldScenarios, "yield-scenarios", 3, "Yield scenarios per distribution")
	flags.StringVarP(&gen.OutputFile, "output", "o", "", "Instance file to write")
	flags.Int64Var(&gen.Seed, "seed", 0, "Random seed (0 draws one from the clock)")
	return cmd
}
