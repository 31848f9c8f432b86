// Package config loads the training job configuration from YAML.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/pkg/log"
	"github.com/ezoic/carprice/sklearn/model_selection"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "CARPRICE_CONFIG"

// Config holds the carprice job configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Features FeatureConfig  `yaml:"features"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Search   SearchConfig   `yaml:"search"`
	Report   ReportConfig   `yaml:"report"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	TrainData string `yaml:"train_data"` // zip archive holding one CSV
	TestData  string `yaml:"test_data"`
	Model     string `yaml:"model"`   // gzip-compressed gob of the fitted search
	Metrics   string `yaml:"metrics"` // JSON lines
	PlotsDir  string `yaml:"plots_dir"`
}

// FeatureConfig holds the feature engineering settings.
type FeatureConfig struct {
	ReferenceYear int      `yaml:"reference_year"`
	Target        string   `yaml:"target"`
	YearColumn    string   `yaml:"year_column"`
	AgeColumn     string   `yaml:"age_column"`
	DropColumns   []string `yaml:"drop_columns"`
}

// PipelineConfig holds the column grouping of the model pipeline.
// Column names are matched exactly, including case.
type PipelineConfig struct {
	CategoricalColumns []string `yaml:"categorical_columns"`
	ScoreFunc          string   `yaml:"score_func"` // f_regression (default) or r_regression
}

// SearchConfig holds the hyperparameter search settings.
type SearchConfig struct {
	KMin    int    `yaml:"k_min"`
	KMax    int    `yaml:"k_max"`
	CV      int    `yaml:"cv"`
	Scoring string `yaml:"scoring"`
	NJobs   int    `yaml:"n_jobs"` // <= 0 uses every CPU
	Verbose bool   `yaml:"verbose"`
}

// ReportConfig holds plot output settings.
type ReportConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Search: SearchConfig{NJobs: -1},
		Report: ReportConfig{Enabled: true},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. Keys absent from the file keep
// their built-in values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, carErrors.Wrapf(err, "failed to read config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, substituting ${VAR} and
// ${VAR:-default} from the environment first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, carErrors.Wrap(err, "failed to parse config")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, carErrors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// FromEnv loads the file named by CARPRICE_CONFIG, or returns the built-in
// configuration when the variable is unset.
func FromEnv() (Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Paths.TrainData == "" {
		c.Paths.TrainData = "files/input/train_data.csv.zip"
	}
	if c.Paths.TestData == "" {
		c.Paths.TestData = "files/input/test_data.csv.zip"
	}
	if c.Paths.Model == "" {
		c.Paths.Model = "files/models/model.pkl.gz"
	}
	if c.Paths.Metrics == "" {
		c.Paths.Metrics = "files/output/metrics.json"
	}
	if c.Paths.PlotsDir == "" {
		c.Paths.PlotsDir = "files/output/plots"
	}
	if c.Features.ReferenceYear == 0 {
		c.Features.ReferenceYear = 2021
	}
	if c.Features.Target == "" {
		c.Features.Target = "Present_Price"
	}
	if c.Features.YearColumn == "" {
		c.Features.YearColumn = "Year"
	}
	if c.Features.AgeColumn == "" {
		c.Features.AgeColumn = "Age"
	}
	if len(c.Features.DropColumns) == 0 {
		c.Features.DropColumns = []string{"Year", "Car_Name"}
	}
	if len(c.Pipeline.CategoricalColumns) == 0 {
		c.Pipeline.CategoricalColumns = []string{"Fuel_Type", "Selling_type", "Transmission"}
	}
	if c.Pipeline.ScoreFunc == "" {
		c.Pipeline.ScoreFunc = "f_regression"
	}
	if c.Search.KMin == 0 {
		c.Search.KMin = 1
	}
	if c.Search.KMax == 0 {
		c.Search.KMax = 11
	}
	if c.Search.CV == 0 {
		c.Search.CV = 10
	}
	if c.Search.Scoring == "" {
		c.Search.Scoring = "neg_mean_absolute_error"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	paths := map[string]string{
		"paths.train_data": c.Paths.TrainData,
		"paths.test_data":  c.Paths.TestData,
		"paths.model":      c.Paths.Model,
		"paths.metrics":    c.Paths.Metrics,
		"paths.plots_dir":  c.Paths.PlotsDir,
	}
	for key, p := range paths {
		if strings.TrimSpace(p) == "" {
			return carErrors.NewValidationError(key, "is required", p)
		}
	}

	if c.Search.KMin < 1 {
		return carErrors.NewValidationError("search.k_min", "must be at least 1", c.Search.KMin)
	}
	if c.Search.KMax < c.Search.KMin {
		return carErrors.NewValidationError("search.k_max", "must not be less than search.k_min", c.Search.KMax)
	}
	if c.Search.CV < 2 {
		return carErrors.NewValidationError("search.cv", "must be at least 2", c.Search.CV)
	}
	if !slices.Contains(model_selection.ScorerNames(), c.Search.Scoring) {
		return carErrors.NewValidationError("search.scoring",
			"must be one of "+strings.Join(model_selection.ScorerNames(), ", "), c.Search.Scoring)
	}

	switch c.Pipeline.ScoreFunc {
	case "f_regression", "r_regression":
	default:
		return carErrors.NewValidationError("pipeline.score_func", "must be f_regression or r_regression", c.Pipeline.ScoreFunc)
	}
	for _, col := range c.Pipeline.CategoricalColumns {
		if col == "" {
			return carErrors.NewValidationError("pipeline.categorical_columns", "column names must not be empty", col)
		}
		if col == c.Features.Target {
			return carErrors.NewValidationError("pipeline.categorical_columns", "must not contain the target column", col)
		}
	}

	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
