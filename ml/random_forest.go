package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForestOptions are the hyperparameters of a RandomForest.
type ForestOptions struct {
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int
	Seed           int64
	// Workers bounds concurrent tree fitting; 0 means GOMAXPROCS.
	Workers int
}

// RandomForest averages bootstrap-trained regression trees.
type RandomForest struct {
	options      ForestOptions
	trees        []*RegressionTree
	featureCount int
}

type forestFile struct {
	Type         string            `json:"type"`
	NEstimators  int               `json:"n_estimators"`
	MaxDepth     int               `json:"max_depth"`
	Seed         int64             `json:"seed"`
	FeatureCount int               `json:"feature_count"`
	Trees        []*RegressionTree `json:"trees"`
}

func NewRandomForest(options ForestOptions) *RandomForest {
	if options.NEstimators <= 0 {
		options.NEstimators = 100
	}
	if options.MinSamplesLeaf <= 0 {
		options.MinSamplesLeaf = 1
	}
	return &RandomForest{options: options}
}

func (f *RandomForest) Fit(features [][]float64, targets []float64) error {
	return f.FitContext(context.Background(), features, targets)
}

// FitContext fits every tree, in parallel, on its own bootstrap sample.
// Tree i is seeded from Seed and i alone, so the result does not depend on
// scheduling.
func (f *RandomForest) FitContext(ctx context.Context, features [][]float64, targets []float64) error {
	if err := checkTrainingSet(features, targets); err != nil {
		return err
	}

	workers := f.options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*RegressionTree, f.options.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rnd := rand.New(rand.NewSource(f.options.Seed + int64(i)))
			tree := &RegressionTree{
				MaxDepth:       f.options.MaxDepth,
				MinSamplesLeaf: f.options.MinSamplesLeaf,
				MaxFeatures:    f.options.MaxFeatures,
			}
			tree.fitIndices(features, targets, bootstrap(len(features), rnd), rnd)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fit forest: %w", err)
	}

	f.trees = trees
	f.featureCount = len(features[0])
	return nil
}

func (f *RandomForest) Predict(features []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != f.featureCount {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrFeatureMismatch, f.featureCount, len(features))
	}
	sum := 0.0
	for _, tree := range f.trees {
		value, err := tree.Predict(features)
		if err != nil {
			return 0, err
		}
		sum += value
	}
	return sum / float64(len(f.trees)), nil
}

func (f *RandomForest) FeatureCount() int {
	return f.featureCount
}

func (f *RandomForest) TreeCount() int {
	return len(f.trees)
}

func (f *RandomForest) Save(path string) error {
	if len(f.trees) == 0 {
		return ErrNotTrained
	}
	payload, err := json.Marshal(forestFile{
		Type:         ModelTypeRandomForest,
		NEstimators:  len(f.trees),
		MaxDepth:     f.options.MaxDepth,
		Seed:         f.options.Seed,
		FeatureCount: f.featureCount,
		Trees:        f.trees,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (f *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file forestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if file.Type != ModelTypeRandomForest {
		return fmt.Errorf("%s holds %q, not a random forest", path, file.Type)
	}
	if len(file.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for _, tree := range file.Trees {
		if tree.FeatureCount() != file.FeatureCount {
			return ErrFeatureMismatch
		}
	}
	f.trees = file.Trees
	f.featureCount = file.FeatureCount
	f.options.NEstimators = file.NEstimators
	f.options.MaxDepth = file.MaxDepth
	f.options.Seed = file.Seed
	return nil
}

func bootstrap(n int, rnd *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rnd.Intn(n)
	}
	return idx
}
