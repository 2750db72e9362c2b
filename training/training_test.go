package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lifecalc/config"
	"lifecalc/ml"
)

func writeDataset(t *testing.T, dir string, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Country,Year,Status,Adult_Mortality,BMI,Life expectancy\n")
	for i := 0; i < rows; i++ {
		mortality := float64(i * 5)
		bmi := 18 + float64(i%10)
		fmt.Fprintf(&b, "C%d,2015,Developing,%.1f,%.1f,%.1f\n", i, mortality, bmi, 85-mortality/10)
	}
	// incomplete row
	b.WriteString("Gap,2015,Developing,,22.0,70\n")

	path := filepath.Join(dir, "annotated.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func testOptions(dir, datasetPath string) Options {
	return Options{
		DatasetPath: datasetPath,
		Target:      "Life expectancy",
		DropColumns: []string{"Country", "Status"},
		TestSize:    0.2,
		Forest: ml.ForestOptions{
			NEstimators: 20,
			Seed:        42,
			Workers:     4,
		},
		ModelPath:    filepath.Join(dir, "model", "model.json"),
		FeaturesPath: filepath.Join(dir, "model", "features.json"),
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir, writeDataset(t, dir, 60))

	report, err := Run(context.Background(), opts, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Year", "Adult_Mortality", "BMI"}, report.Features)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 12, report.TestRows)
	assert.Equal(t, 48, report.TrainRows)
	assert.Greater(t, report.Scores.R2, 0.8)

	model, err := ml.LoadModel(ml.ModelTypeRandomForest, opts.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, 3, model.FeatureCount())

	names, err := ml.LoadFeatureNames(opts.FeaturesPath)
	require.NoError(t, err)
	assert.Equal(t, report.Features, names)
}

func TestRunIsReproducible(t *testing.T) {
	dir := t.TempDir()
	datasetPath := writeDataset(t, dir, 40)

	first, err := Run(context.Background(), testOptions(filepath.Join(dir, "a"), datasetPath), nil)
	require.NoError(t, err)
	second, err := Run(context.Background(), testOptions(filepath.Join(dir, "b"), datasetPath), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Scores, second.Scores)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	datasetPath := writeDataset(t, dir, 10)

	opts := testOptions(dir, datasetPath)
	opts.Target = "Missing"
	_, err := Run(context.Background(), opts, nil)
	assert.Error(t, err)

	opts = testOptions(dir, filepath.Join(dir, "nope.csv"))
	_, err = Run(context.Background(), opts, nil)
	assert.Error(t, err)

	opts = testOptions(dir, datasetPath)
	opts.FeaturesPath = opts.ModelPath
	_, err = Run(context.Background(), opts, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, testOptions(dir, datasetPath), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	opts := OptionsFromConfig(&cfg)
	assert.Equal(t, 200, opts.Forest.NEstimators)
	assert.Equal(t, int64(42), opts.Forest.Seed)
	assert.Equal(t, 0.2, opts.TestSize)
	assert.Equal(t, []string{"Country", "Status"}, opts.DropColumns)
	assert.Equal(t, "model/model.json", opts.ModelPath)
}

func TestWatchRetrainsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 50*time.Millisecond, func(context.Context) error {
			calls <- struct{}{}
			return nil
		}, zaptest.NewLogger(t))
	}()

	// give the watcher time to register before writing
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("a\n2\n"), 0o600))

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("retrain was not triggered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
