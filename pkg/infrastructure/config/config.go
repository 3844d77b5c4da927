// Package config loads run settings from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/endoplan/pkg/benders"
	"github.com/vsinha/endoplan/pkg/mip"
)

// Config is the complete run configuration
type Config struct {
	Engine  string        `yaml:"engine" validate:"required,oneof=enumerate highs"`
	Solve   SolveConfig   `yaml:"solve"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// SolveConfig selects the master strengthening and the search limits
type SolveConfig struct {
	TimeLimit            time.Duration `yaml:"time_limit" validate:"gt=0"`
	TargetGap            float64       `yaml:"target_gap" validate:"gte=0,lt=1"`
	LogFrequency         time.Duration `yaml:"log_frequency" validate:"gte=0"`
	ValidInequalities    []string      `yaml:"valid_inequalities" validate:"unique,dive,oneof=VI1 VI2 VI3 VI4 VI5 VI6"`
	MinimalCovers        bool          `yaml:"minimal_covers"`
	ExtendedCovers       bool          `yaml:"extended_covers"`
	ImprovementHeuristic bool          `yaml:"improvement_heuristic"`
	// MaxNodes caps the enumerate engine; zero keeps its default
	MaxNodes int64 `yaml:"max_nodes" validate:"gte=0"`
}

// InputConfig controls instance loading
type InputConfig struct {
	// Format is csv or json; empty selects by file extension
	Format      string  `yaml:"format" validate:"omitempty,oneof=csv json"`
	LevelOffset float64 `yaml:"level_offset" validate:"gte=0"`
}

// OutputConfig controls reporting
type OutputConfig struct {
	Format string `yaml:"format" validate:"oneof=text json csv"`
	// ResultsFile receives one summary row per run: a SQLite database when it
	// ends in .db, a CSV file otherwise. Empty disables it.
	ResultsFile string `yaml:"results_file"`
	// Version tags every summary row
	Version string `yaml:"version" validate:"required"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Engine: "enumerate",
		Solve: SolveConfig{
			TimeLimit: 1800 * time.Second,
			TargetGap: 1e-4,
		},
		Output:  OutputConfig{Format: "text", Version: "v1"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(content)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Params returns the engine parameters
func (c *Config) Params() mip.Params {
	return mip.Params{
		TimeLimit:            c.Solve.TimeLimit,
		RelativeGap:          c.Solve.TargetGap,
		ImprovementHeuristic: c.Solve.ImprovementHeuristic,
		LogFrequency:         c.Solve.LogFrequency,
	}
}

// SolveOptions returns the decomposition options
func (c *Config) SolveOptions() (benders.Options, error) {
	opts := benders.Options{
		Covers: benders.CoverOptions{Minimal: c.Solve.MinimalCovers, Extended: c.Solve.ExtendedCovers},
		Params: c.Params(),
	}
	for _, name := range c.Solve.ValidInequalities {
		vi, err := benders.ParseValidInequality(name)
		if err != nil {
			return benders.Options{}, err
		}
		opts.ValidInequalities = append(opts.ValidInequalities, vi)
	}
	return opts, nil
}
