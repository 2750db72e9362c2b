package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lifecalc/config"
	"lifecalc/dataset"
	"lifecalc/db"
	qhttp "lifecalc/http"
	"lifecalc/logging"
	"lifecalc/ml"
	"lifecalc/predictor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(config.Resolve(*configPath))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("exiting")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// 2. Load artifacts and reference data
	model, err := ml.LoadModel(cfg.Model.Type, config.Resolve(cfg.Model.Path))
	if err != nil {
		return err
	}
	features, err := ml.LoadFeatureNames(config.Resolve(cfg.Model.FeaturesPath))
	if err != nil {
		return fmt.Errorf("load features: %w", err)
	}
	reference, err := dataset.LoadReference(config.Resolve(cfg.Data.ReferencePath))
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}
	logger.Info("artifacts loaded",
		zap.String("model", cfg.Model.Path),
		zap.Int("features", len(features)),
		zap.Int("reference_rows", reference.Len()),
	)

	// 3. Optional prediction history
	opts := predictor.Options{
		Model:         model,
		Features:      features,
		Reference:     reference,
		ReferenceYear: cfg.Data.ReferenceYear,
		CacheSize:     cfg.Cache.Size,
		Logger:        logger,
	}
	var history qhttp.HistoryStore
	if cfg.Database.Path != "" {
		path := config.Rebase(cfg.Data.ReferencePath, cfg.Database.Path)
		store, err := db.Open(path)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer store.Close()
		opts.History = store
		history = store
		logger.Info("database initialized", zap.String("path", path))
	}

	service, err := predictor.NewService(opts)
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	metrics := qhttp.NewMetrics()
	handlers, err := qhttp.NewHandlers(service, history, metrics, logger)
	if err != nil {
		return err
	}
	server := qhttp.NewServer(qhttp.ServerConfigFrom(cfg.Http), handlers, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
