// Package config loads application settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Data     Data     `yaml:"data"`
	Model    Model    `yaml:"model"`
	Database Database `yaml:"database"`
	Cache    Cache    `yaml:"cache"`
	Training Training `yaml:"training"`
	Annotate Annotate `yaml:"annotate"`
}

type HTTP struct {
	Port           int           `yaml:"port" env:"HTTP_PORT" validate:"min=1,max=65535"`
	Timeout        time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" validate:"gt=0"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" validate:"gt=0"`
}

type Log struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" validate:"oneof=console json"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" validate:"gte=0"`
}

// Data points at the reference dataset the service looks records up in.
type Data struct {
	ReferencePath string `yaml:"reference_path" env:"DATA_REFERENCE_PATH" validate:"required"`
	ReferenceYear int    `yaml:"reference_year" env:"DATA_REFERENCE_YEAR" validate:"gt=0"`
}

type Model struct {
	Type         string `yaml:"type" env:"MODEL_TYPE" validate:"oneof=random_forest regression_tree"`
	Path         string `yaml:"path" env:"MODEL_PATH" validate:"required"`
	FeaturesPath string `yaml:"features_path" env:"MODEL_FEATURES_PATH" validate:"required"`
}

// Database is optional; an empty path disables run and prediction history.
type Database struct {
	Path string `yaml:"path" env:"DATABASE_PATH"`
}

type Cache struct {
	Size int `yaml:"size" env:"CACHE_SIZE" validate:"gte=0"`
}

type Training struct {
	DatasetPath    string   `yaml:"dataset_path" env:"TRAINING_DATASET_PATH" validate:"required"`
	Target         string   `yaml:"target" env:"TRAINING_TARGET" validate:"required"`
	DropColumns    []string `yaml:"drop_columns" env:"TRAINING_DROP_COLUMNS" envSeparator:","`
	TestSize       float64  `yaml:"test_size" env:"TRAINING_TEST_SIZE" validate:"gt=0,lt=1"`
	Seed           int64    `yaml:"seed" env:"TRAINING_SEED"`
	NEstimators    int      `yaml:"n_estimators" env:"TRAINING_N_ESTIMATORS" validate:"gt=0"`
	MaxDepth       int      `yaml:"max_depth" env:"TRAINING_MAX_DEPTH" validate:"gte=0"`
	MinSamplesLeaf int      `yaml:"min_samples_leaf" env:"TRAINING_MIN_SAMPLES_LEAF" validate:"gte=1"`
	MaxFeatures    int      `yaml:"max_features" env:"TRAINING_MAX_FEATURES" validate:"gte=0"`
	Workers        int      `yaml:"workers" env:"TRAINING_WORKERS" validate:"gte=0"`
}

type Annotate struct {
	InputPath  string `yaml:"input_path" env:"ANNOTATE_INPUT_PATH" validate:"required"`
	OutputPath string `yaml:"output_path" env:"ANNOTATE_OUTPUT_PATH" validate:"required,nefield=InputPath"`
	Column     string `yaml:"column" env:"ANNOTATE_COLUMN" validate:"required"`
	Min        int    `yaml:"min" env:"ANNOTATE_MIN"`
	Max        int    `yaml:"max" env:"ANNOTATE_MAX" validate:"gtfield=Min"`
	Seed       int64  `yaml:"seed" env:"ANNOTATE_SEED"`
}

// Default returns the settings the application runs with when no file overrides them.
func Default() Config {
	return Config{
		Http: HTTP{
			Port:           5000,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		Log: Log{
			Level:      "info",
			Encoding:   "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Data: Data{
			ReferencePath: "life_expectancy_preprocessed.csv",
			ReferenceYear: 2015,
		},
		Model: Model{
			Type:         "random_forest",
			Path:         "model/model.json",
			FeaturesPath: "model/features.json",
		},
		Cache: Cache{Size: 1024},
		Training: Training{
			DatasetPath:    "life_expectancy_preprocessed_with_target.csv",
			Target:         "Life expectancy",
			DropColumns:    []string{"Country", "Status"},
			TestSize:       0.2,
			Seed:           42,
			NEstimators:    200,
			MinSamplesLeaf: 1,
		},
		Annotate: Annotate{
			InputPath:  "life_expectancy_preprocessed.csv",
			OutputPath: "life_expectancy_preprocessed_with_target.csv",
			Column:     "Life expectancy",
			Min:        50,
			Max:        86,
		},
	}
}

// Load reads path on top of Default, then applies environment overrides.
// A missing file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	config := Default()

	payload, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(payload, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("env.Parse: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field constraints declared in the struct tags.
func Validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Resolve looks for name in the working directory and then up to two
// parents, so binaries under cmd/<tool> can be started from their own
// directory. A name found nowhere is returned as is.
func Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(searchDir(name), name)
}

// Rebase places a relative output path in the directory Resolve found
// anchor in, so artifacts land beside the inputs they were built from.
func Rebase(anchor, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	if filepath.IsAbs(anchor) {
		return name
	}
	return filepath.Join(searchDir(anchor), name)
}

func searchDir(name string) string {
	for _, dir := range []string{".", "..", filepath.Join("..", "..")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir
		}
	}
	return "."
}
