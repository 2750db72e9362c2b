package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"lifecalc/predictor"
)

const schema = `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        country TEXT NOT NULL,
        age INTEGER,
        height REAL,
        weight REAL,
        bmi REAL,
        smoking TEXT,
        alcohol REAL,
        education REAL,
        income TEXT,
        result REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        dataset_path TEXT,
        feature_count INTEGER,
        train_rows INTEGER,
        test_rows INTEGER,
        skipped_rows INTEGER,
        rmse REAL,
        mae REAL,
        r2 REAL,
        trained_at DATETIME NOT NULL
    );
    `

var errNotInitialized = errors.New("database not initialized")

// Store keeps prediction history and training runs in SQLite.
type Store struct {
	database *sql.DB
}

// Open creates the file and schema at path if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

// SavePrediction satisfies predictor.HistoryStore.
func (s *Store) SavePrediction(ctx context.Context, entry predictor.HistoryEntry) error {
	if s == nil || s.database == nil {
		return errNotInitialized
	}
	req := entry.Request
	_, err := s.database.ExecContext(ctx, `
        INSERT INTO predictions (
            country, age, height, weight, bmi, smoking, alcohol, education, income, result, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Country, req.Age, req.Height, req.Weight, entry.BMI,
		req.Smoking, req.Alcohol, req.Education, req.Income,
		entry.Result, entry.CreatedAt,
	)
	return err
}

// RecentPredictions returns up to limit entries, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]predictor.HistoryEntry, error) {
	if s == nil || s.database == nil {
		return nil, errNotInitialized
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT country, age, height, weight, bmi, smoking, alcohol, education, income, result, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]predictor.HistoryEntry, 0)
	for rows.Next() {
		var e predictor.HistoryEntry
		r := &e.Request
		if err := rows.Scan(&r.Country, &r.Age, &r.Height, &r.Weight, &e.BMI,
			&r.Smoking, &r.Alcohol, &r.Education, &r.Income, &e.Result, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type TrainingLog struct {
	ModelName    string    `json:"model_name"`
	DatasetPath  string    `json:"dataset_path"`
	FeatureCount int       `json:"feature_count"`
	TrainRows    int       `json:"train_rows"`
	TestRows     int       `json:"test_rows"`
	SkippedRows  int       `json:"skipped_rows"`
	RMSE         float64   `json:"rmse"`
	MAE          float64   `json:"mae"`
	R2           float64   `json:"r2"`
	TrainedAt    time.Time `json:"trained_at"`
}

func (s *Store) SaveTrainingLog(ctx context.Context, log TrainingLog) error {
	if s == nil || s.database == nil {
		return errNotInitialized
	}
	_, err := s.database.ExecContext(ctx, `
        INSERT INTO training_log (
            model_name, dataset_path, feature_count, train_rows, test_rows, skipped_rows, rmse, mae, r2, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ModelName, log.DatasetPath, log.FeatureCount, log.TrainRows, log.TestRows,
		log.SkippedRows, log.RMSE, log.MAE, log.R2, log.TrainedAt,
	)
	return err
}

func (s *Store) LoadTrainingLog(ctx context.Context) ([]TrainingLog, error) {
	if s == nil || s.database == nil {
		return nil, errNotInitialized
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT model_name, dataset_path, feature_count, train_rows, test_rows, skipped_rows, rmse, mae, r2, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.DatasetPath, &log.FeatureCount, &log.TrainRows, &log.TestRows,
			&log.SkippedRows, &log.RMSE, &log.MAE, &log.R2, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
