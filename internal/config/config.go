package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"evokit/internal/evo"
	"evokit/internal/storage"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the root run configuration.
type Config struct {
	Seed          int64           `yaml:"seed"`
	Scape         string          `yaml:"scape"`
	Population    int             `yaml:"population"`
	Generations   int             `yaml:"generations"`
	FitnessTarget float64         `yaml:"fitness_target"`
	Timeout       time.Duration   `yaml:"timeout"`
	Workers       int             `yaml:"workers"`
	Selection     SelectionConfig `yaml:"selection"`
	Operators     OperatorConfig  `yaml:"operators"`
	Storage       StorageConfig   `yaml:"storage"`
	Artifacts     ArtifactsConfig `yaml:"artifacts"`
	Logging       LogConfig       `yaml:"logging"`
	Metrics       MetricsConfig   `yaml:"metrics"`
}

type SelectionConfig struct {
	Name  string `yaml:"name"`
	Param int    `yaml:"param"` // rank cutoff for rank_based, pool size for elitist
}

type OperatorConfig struct {
	GenomeLength  int     `yaml:"genome_length"`
	CrossoverRate float64 `yaml:"crossover_rate"`
	MutationRate  float64 `yaml:"mutation_rate"`
	MutationSigma float64 `yaml:"mutation_sigma"`
}

type StorageConfig struct {
	Kind   string `yaml:"kind"` // memory|sqlite
	DBPath string `yaml:"db_path"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // auto|text|json
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a config with every default applied.
func Default() *Config {
	return &Config{
		Seed:        1,
		Scape:       "onemax",
		Population:  50,
		Generations: 100,
		Workers:     1,
		Selection:   SelectionConfig{Name: evo.SelectionFitnessProportional},
		Operators: OperatorConfig{
			GenomeLength:  32,
			CrossoverRate: 0.9,
			MutationRate:  0.02,
			MutationSigma: 0.1,
		},
		Storage:   StorageConfig{Kind: storage.DefaultStoreKind(), DBPath: "evokit.db"},
		Artifacts: ArtifactsConfig{Dir: "runs"},
		Logging:   LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads a YAML config file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes data over Default, so keys absent from the document keep their
// defaults and keys present keep their values, zero included.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.DefaultSelectionParam()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSelectionParam sets the rank cutoff or pool size to a fifth of the
// population when the selection reads a param and none is set, and clears it
// otherwise.
func (c *Config) DefaultSelectionParam() {
	switch {
	case !evo.SelectionTakesParam(c.Selection.Name):
		c.Selection.Param = 0
	case c.Selection.Param == 0:
		c.Selection.Param = max(1, c.Population/5)
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Scape == "":
		return fmt.Errorf("%w: scape is required", ErrInvalidConfig)
	case c.Population <= 0:
		return fmt.Errorf("%w: population must be > 0", ErrInvalidConfig)
	case c.Generations < 0:
		return fmt.Errorf("%w: generations must be >= 0", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be > 0", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfig)
	case c.Operators.GenomeLength <= 0:
		return fmt.Errorf("%w: operators.genome_length must be > 0", ErrInvalidConfig)
	case !isRate(c.Operators.CrossoverRate):
		return fmt.Errorf("%w: operators.crossover_rate must be in [0,1]", ErrInvalidConfig)
	case !isRate(c.Operators.MutationRate):
		return fmt.Errorf("%w: operators.mutation_rate must be in [0,1]", ErrInvalidConfig)
	case c.Operators.MutationSigma < 0:
		return fmt.Errorf("%w: operators.mutation_sigma must be >= 0", ErrInvalidConfig)
	}

	if !knownSelection(c.Selection.Name) {
		return fmt.Errorf("%w: selection %q (want one of %v)", ErrInvalidConfig, c.Selection.Name, evo.SelectionNames())
	}
	if evo.SelectionTakesParam(c.Selection.Name) && c.Selection.Param <= 0 {
		return fmt.Errorf("%w: selection.param must be > 0 for %s", ErrInvalidConfig, c.Selection.Name)
	}

	switch c.Storage.Kind {
	case storage.KindMemory, storage.KindSQLite:
	default:
		return fmt.Errorf("%w: storage.kind %q", ErrInvalidConfig, c.Storage.Kind)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func knownSelection(name string) bool {
	for _, known := range evo.SelectionNames() {
		if name == known {
			return true
		}
	}
	return false
}

func isRate(v float64) bool {
	return v >= 0 && v <= 1
}
