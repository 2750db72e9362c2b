package ml

import "errors"

var (
	ErrNotTrained      = errors.New("model not trained")
	ErrFeatureMismatch = errors.New("feature count mismatch")
)

// Regressor is a model mapping a numeric feature row to a numeric target.
type Regressor interface {
	Fit(features [][]float64, targets []float64) error
	Predict(features []float64) (float64, error)
	FeatureCount() int
	Save(path string) error
	Load(path string) error
}

// Predictor is the read-only half of Regressor used at serving time.
type Predictor interface {
	Predict(features []float64) (float64, error)
	FeatureCount() int
}

func checkTrainingSet(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("feature rows are empty")
	}
	for _, row := range features {
		if len(row) != width {
			return ErrFeatureMismatch
		}
	}
	return nil
}
