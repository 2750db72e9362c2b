// Package training turns an annotated dataset into the model and feature
// artifacts the prediction service loads.
package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"lifecalc/config"
	"lifecalc/dataset"
	"lifecalc/ml"
)

type Options struct {
	DatasetPath  string
	Target       string
	DropColumns  []string
	TestSize     float64
	Forest       ml.ForestOptions
	ModelPath    string
	FeaturesPath string
}

// OptionsFromConfig maps the training and model sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DatasetPath: cfg.Training.DatasetPath,
		Target:      cfg.Training.Target,
		DropColumns: cfg.Training.DropColumns,
		TestSize:    cfg.Training.TestSize,
		Forest: ml.ForestOptions{
			NEstimators:    cfg.Training.NEstimators,
			MaxDepth:       cfg.Training.MaxDepth,
			MinSamplesLeaf: cfg.Training.MinSamplesLeaf,
			MaxFeatures:    cfg.Training.MaxFeatures,
			Seed:           cfg.Training.Seed,
			Workers:        cfg.Training.Workers,
		},
		ModelPath:    cfg.Model.Path,
		FeaturesPath: cfg.Model.FeaturesPath,
	}
}

// Report describes one finished training run.
type Report struct {
	Features  []string
	TrainRows int
	TestRows  int
	Skipped   int
	Scores    ml.Scores
	Duration  time.Duration
	TrainedAt time.Time
}

func (o Options) validate() error {
	switch {
	case o.DatasetPath == "":
		return errors.New("dataset path is required")
	case o.Target == "":
		return errors.New("target column is required")
	case o.ModelPath == "" || o.FeaturesPath == "":
		return errors.New("model and features paths are required")
	case o.ModelPath == o.FeaturesPath:
		return errors.New("model and features paths must differ")
	}
	return nil
}

// Run reads the dataset, fits a random forest on the training split, scores
// it on the held-out split and writes both artifacts.
func Run(ctx context.Context, opts Options, logger *zap.Logger) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	table, err := dataset.ReadCSV(opts.DatasetPath)
	if err != nil {
		return nil, err
	}
	matrix, err := table.Matrix(opts.Target, opts.DropColumns)
	if err != nil {
		return nil, fmt.Errorf("build matrix from %s: %w", opts.DatasetPath, err)
	}
	if matrix.Skipped > 0 {
		logger.Warn("skipped incomplete rows", zap.Int("rows", matrix.Skipped))
	}
	if len(matrix.X) < 2 {
		return nil, fmt.Errorf("need at least 2 complete rows, got %d", len(matrix.X))
	}
	logger.Info("feature count", zap.Int("count", len(matrix.Names)), zap.Strings("features", matrix.Names))

	trainX, trainY, testX, testY := ml.TrainTestSplit(matrix.X, matrix.Y, opts.TestSize, opts.Forest.Seed)

	forest := ml.NewRandomForest(opts.Forest)
	if err := forest.FitContext(ctx, trainX, trainY); err != nil {
		return nil, err
	}

	scores, err := ml.Evaluate(forest, testX, testY)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.ModelPath), 0o755); err != nil {
		return nil, err
	}
	if err := forest.Save(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	if err := ml.SaveFeatureNames(opts.FeaturesPath, matrix.Names); err != nil {
		return nil, fmt.Errorf("save features: %w", err)
	}

	report := &Report{
		Features:  matrix.Names,
		TrainRows: len(trainX),
		TestRows:  len(testX),
		Skipped:   matrix.Skipped,
		Scores:    scores,
		Duration:  time.Since(start),
		TrainedAt: time.Now().UTC(),
	}
	logger.Info("model trained",
		zap.Int("trees", forest.TreeCount()),
		zap.Int("train_rows", report.TrainRows),
		zap.Int("test_rows", report.TestRows),
		zap.Float64("rmse", scores.RMSE),
		zap.Float64("mae", scores.MAE),
		zap.Float64("r2", scores.R2),
		zap.Duration("took", report.Duration),
		zap.String("model_path", opts.ModelPath),
	)
	return report, nil
}
