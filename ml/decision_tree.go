package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
)

// RegressionTree is a CART tree grown on squared error.
type RegressionTree struct {
	// MaxDepth of 0 grows until leaves are pure.
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures of 0 considers every feature at each split.
	MaxFeatures int
	Seed        int64

	nodes        []TreeNode
	featureCount int
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	Samples    int     `json:"samples"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeFile struct {
	FeatureCount int        `json:"feature_count"`
	Nodes        []TreeNode `json:"nodes"`
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

func (dt *RegressionTree) Fit(features [][]float64, targets []float64) error {
	if err := checkTrainingSet(features, targets); err != nil {
		return err
	}
	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	dt.fitIndices(features, targets, idx, rand.New(rand.NewSource(dt.Seed)))
	return nil
}

// fitIndices grows the tree on the rows named by idx, which may repeat.
func (dt *RegressionTree) fitIndices(features [][]float64, targets []float64, idx []int, rnd *rand.Rand) {
	dt.nodes = nil
	dt.featureCount = len(features[0])
	dt.grow(features, targets, idx, 0, rnd)
}

func (dt *RegressionTree) Predict(features []float64) (float64, error) {
	if len(dt.nodes) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != dt.featureCount {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrFeatureMismatch, dt.featureCount, len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func (dt *RegressionTree) FeatureCount() int {
	return dt.featureCount
}

// NodeCount returns the number of nodes in the fitted tree.
func (dt *RegressionTree) NodeCount() int {
	return len(dt.nodes)
}

func (dt *RegressionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return ErrNotTrained
	}
	payload, err := json.Marshal(dt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *RegressionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dt)
}

func (dt *RegressionTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(treeFile{FeatureCount: dt.featureCount, Nodes: dt.nodes})
}

func (dt *RegressionTree) UnmarshalJSON(payload []byte) error {
	var file treeFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if len(file.Nodes) == 0 || file.FeatureCount <= 0 {
		return errors.New("tree file has no nodes")
	}
	dt.nodes = file.Nodes
	dt.featureCount = file.FeatureCount
	return nil
}

func (dt *RegressionTree) grow(features [][]float64, targets []float64, idx []int, depth int, rnd *rand.Rand) int {
	pos := len(dt.nodes)
	mean := meanAt(targets, idx)
	dt.nodes = append(dt.nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      mean,
		Samples:    len(idx),
		IsLeaf:     true,
	})

	minLeaf := max(dt.MinSamplesLeaf, 1)
	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) || len(idx) < 2*minLeaf || isConstant(targets, idx) {
		return pos
	}

	best, ok := dt.findBestSplit(features, targets, idx, minLeaf, rnd)
	if !ok {
		return pos
	}

	leftIdx, rightIdx := partition(features, idx, best.feature, best.threshold)
	left := dt.grow(features, targets, leftIdx, depth+1, rnd)
	right := dt.grow(features, targets, rightIdx, depth+1, rnd)

	dt.nodes[pos] = TreeNode{
		FeatureIdx: best.feature,
		Threshold:  best.threshold,
		LeftChild:  left,
		RightChild: right,
		Value:      mean,
		Samples:    len(idx),
	}
	return pos
}

// findBestSplit maximises sum_l^2/n_l + sum_r^2/n_r, which is the same as
// minimising the summed squared error of the two children.
func (dt *RegressionTree) findBestSplit(features [][]float64, targets []float64, idx []int, minLeaf int, rnd *rand.Rand) (split, bool) {
	n := len(idx)
	total := 0.0
	for _, i := range idx {
		total += targets[i]
	}

	best := split{feature: -1, score: math.Inf(-1)}
	sorted := make([]int, n)
	for _, feature := range dt.candidateFeatures(len(features[0]), rnd) {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return features[sorted[a]][feature] < features[sorted[b]][feature]
		})

		leftSum := 0.0
		for i := 1; i < n; i++ {
			leftSum += targets[sorted[i-1]]
			if i < minLeaf || n-i < minLeaf {
				continue
			}
			lo := features[sorted[i-1]][feature]
			hi := features[sorted[i]][feature]
			if !(hi > lo) {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(i) + rightSum*rightSum/float64(n-i)
			if score > best.score {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: feature, threshold: threshold, score: score}
			}
		}
	}
	return best, best.feature >= 0
}

func (dt *RegressionTree) candidateFeatures(count int, rnd *rand.Rand) []int {
	if dt.MaxFeatures <= 0 || dt.MaxFeatures >= count {
		all := make([]int, count)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := rnd.Perm(count)[:dt.MaxFeatures]
	sort.Ints(picked)
	return picked
}

func partition(features [][]float64, idx []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func meanAt(values []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += values[i]
	}
	return sum / float64(len(idx))
}

func isConstant(values []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if values[i] != values[idx[0]] {
			return false
		}
	}
	return true
}
