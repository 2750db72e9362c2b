package ml

import (
	"math"
	"math/rand"
)

// TrainTestSplit shuffles rows with seed and holds out ceil(testRatio*n)
// of them, mirroring the usual shuffle-split convention.
func TrainTestSplit(features [][]float64, targets []float64, testRatio float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	n := len(features)
	testCount := int(math.Ceil(testRatio * float64(n)))
	if testCount >= n {
		testCount = n - 1
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(n)
	for i, idx := range indices {
		if i < testCount {
			testX = append(testX, features[idx])
			testY = append(testY, targets[idx])
		} else {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, targets[idx])
		}
	}
	return trainX, trainY, testX, testY
}
