package ml

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearData(n int, seed int64) ([][]float64, []float64) {
	rnd := rand.New(rand.NewSource(seed))
	features := make([][]float64, n)
	targets := make([]float64, n)
	for i := range features {
		a, b := rnd.Float64()*10, rnd.Float64()*10
		features[i] = []float64{a, b}
		targets[i] = 3*a + b
	}
	return features, targets
}

func predictAll(t *testing.T, model Predictor, rows [][]float64) []float64 {
	t.Helper()
	out := make([]float64, len(rows))
	for i, row := range rows {
		value, err := model.Predict(row)
		require.NoError(t, err)
		out[i] = value
	}
	return out
}

func TestRandomForestDeterministicAcrossWorkers(t *testing.T) {
	features, targets := linearData(120, 1)

	serial := NewRandomForest(ForestOptions{NEstimators: 12, Seed: 42, Workers: 1})
	require.NoError(t, serial.Fit(features, targets))
	parallel := NewRandomForest(ForestOptions{NEstimators: 12, Seed: 42, Workers: 4})
	require.NoError(t, parallel.Fit(features, targets))

	sample, _ := linearData(20, 2)
	if diff := cmp.Diff(predictAll(t, serial, sample), predictAll(t, parallel, sample)); diff != "" {
		t.Fatalf("predictions differ (-serial +parallel):\n%s", diff)
	}
	assert.Equal(t, 12, parallel.TreeCount())
}

func TestRandomForestLearnsSignal(t *testing.T) {
	features, targets := linearData(400, 3)
	trainX, trainY, testX, testY := TrainTestSplit(features, targets, 0.2, 42)

	model := NewRandomForest(ForestOptions{NEstimators: 30, Seed: 42})
	require.NoError(t, model.Fit(trainX, trainY))

	scores, err := Evaluate(model, testX, testY)
	require.NoError(t, err)
	assert.Equal(t, 80, scores.N)
	assert.Greater(t, scores.R2, 0.9)
}

func TestRandomForestSaveLoad(t *testing.T) {
	features, targets := linearData(60, 4)
	model := NewRandomForest(ForestOptions{NEstimators: 5, Seed: 7})
	require.NoError(t, model.Fit(features, targets))

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path))

	loaded, err := LoadModel(ModelTypeRandomForest, path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.FeatureCount())
	assert.Equal(t, predictAll(t, model, features), predictAll(t, loaded, features))

	_, err = LoadModel(ModelTypeRegressionTree, path)
	assert.Error(t, err, "a forest file is not a tree file")
}

func TestRandomForestFitHonoursCancel(t *testing.T) {
	features, targets := linearData(50, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := NewRandomForest(ForestOptions{NEstimators: 8, Seed: 1})
	assert.ErrorIs(t, model.FitContext(ctx, features, targets), context.Canceled)
	_, err := model.Predict([]float64{1, 2})
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestLoadModelUnknownType(t *testing.T) {
	_, err := LoadModel("svm", "whatever.json")
	assert.Error(t, err)
}

func TestFeatureNamesArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model", "features.json")
	names := []string{"Year", "BMI", "Alcohol"}

	require.NoError(t, SaveFeatureNames(path, names))
	loaded, err := LoadFeatureNames(path)
	require.NoError(t, err)
	assert.Equal(t, names, loaded)

	assert.Error(t, SaveFeatureNames(path, nil))
}

func TestTrainTestSplit(t *testing.T) {
	features, targets := linearData(11, 6)

	trainX, trainY, testX, testY := TrainTestSplit(features, targets, 0.2, 42)
	assert.Len(t, testX, 3, "ceil(0.2*11)")
	assert.Len(t, testY, 3)
	assert.Len(t, trainX, 8)
	assert.Len(t, trainY, 8)

	againX, _, _, _ := TrainTestSplit(features, targets, 0.2, 42)
	assert.Equal(t, trainX, againX)
}

func TestEvaluatePerfectModel(t *testing.T) {
	features, targets := stepData()
	model := &RegressionTree{}
	require.NoError(t, model.Fit(features, targets))

	scores, err := Evaluate(model, features, targets)
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores.RMSE)
	assert.Equal(t, 0.0, scores.MAE)
	assert.Equal(t, 1.0, scores.R2)
}
