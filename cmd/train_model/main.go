package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lifecalc/config"
	"lifecalc/db"
	"lifecalc/logging"
	"lifecalc/ml"
	"lifecalc/training"
)

type flags struct {
	configPath   string
	datasetPath  string
	modelPath    string
	featuresPath string
	nEstimators  int
	maxDepth     int
	testRatio    float64
	watch        bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "config.yaml", "config file path")
	flag.StringVar(&f.datasetPath, "dataset", "", "annotated dataset (overrides config)")
	flag.StringVar(&f.modelPath, "model_path", "", "model output path (overrides config)")
	flag.StringVar(&f.featuresPath, "features_path", "", "feature list output path (overrides config)")
	flag.IntVar(&f.nEstimators, "n_estimators", 0, "number of trees (overrides config)")
	flag.IntVar(&f.maxDepth, "max_depth", -1, "max tree depth, 0 for unlimited (overrides config)")
	flag.Float64Var(&f.testRatio, "test_ratio", 0, "held-out ratio (overrides config)")
	flag.BoolVar(&f.watch, "watch", false, "retrain whenever the dataset changes")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "train_model: %v\n", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup so that a failed run still flushes the
// logger and closes the database before main exits.
func run(f flags) error {
	cfg, err := config.Load(config.Resolve(f.configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	opts := training.OptionsFromConfig(cfg)
	if f.datasetPath != "" {
		opts.DatasetPath = f.datasetPath
	}
	if f.modelPath != "" {
		opts.ModelPath = f.modelPath
	}
	if f.featuresPath != "" {
		opts.FeaturesPath = f.featuresPath
	}
	if f.nEstimators > 0 {
		opts.Forest.NEstimators = f.nEstimators
	}
	if f.maxDepth >= 0 {
		opts.Forest.MaxDepth = f.maxDepth
	}
	if f.testRatio > 0 {
		opts.TestSize = f.testRatio
	}

	anchor := opts.DatasetPath
	opts.DatasetPath = config.Resolve(anchor)
	opts.ModelPath = config.Rebase(anchor, opts.ModelPath)
	opts.FeaturesPath = config.Rebase(anchor, opts.FeaturesPath)

	var store *db.Store
	if cfg.Database.Path != "" {
		store, err = db.Open(config.Rebase(anchor, cfg.Database.Path))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	train := func(ctx context.Context) error {
		report, err := training.Run(ctx, opts, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Feature count: %d\n", len(report.Features))
		fmt.Printf("held-out RMSE=%s MAE=%s R2=%s (n=%d)\n",
			score(report.Scores.RMSE), score(report.Scores.MAE), score(report.Scores.R2), report.Scores.N)
		fmt.Printf("model saved to %s\n", opts.ModelPath)
		if store != nil {
			if err := store.SaveTrainingLog(ctx, trainingLog(opts, report)); err != nil {
				logger.Warn("failed to record training run", zap.Error(err))
			}
		}
		return nil
	}

	if err := train(ctx); err != nil {
		if !f.watch {
			logger.Error("training failed", zap.Error(err))
			return err
		}
		logger.Error("training failed, waiting for dataset changes", zap.Error(err))
	}

	if f.watch {
		return training.Watch(ctx, opts.DatasetPath, training.DefaultDebounce, train, logger)
	}
	return nil
}

func score(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

func trainingLog(opts training.Options, report *training.Report) db.TrainingLog {
	return db.TrainingLog{
		ModelName:    ml.ModelTypeRandomForest,
		DatasetPath:  opts.DatasetPath,
		FeatureCount: len(report.Features),
		TrainRows:    report.TrainRows,
		TestRows:     report.TestRows,
		SkippedRows:  report.Skipped,
		RMSE:         report.Scores.RMSE,
		MAE:          report.Scores.MAE,
		R2:           report.Scores.R2,
		TrainedAt:    report.TrainedAt.Truncate(time.Second),
	}
}
