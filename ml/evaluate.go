package ml

import (
	"errors"
	"math"
)

// Scores summarises a regressor on held-out rows.
type Scores struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
	N    int     `json:"n"`
}

func Evaluate(model Predictor, features [][]float64, targets []float64) (Scores, error) {
	if len(features) == 0 {
		return Scores{}, errors.New("no rows to evaluate")
	}
	if len(features) != len(targets) {
		return Scores{}, errors.New("features and targets size mismatch")
	}

	mean := 0.0
	for _, y := range targets {
		mean += y
	}
	mean /= float64(len(targets))

	var sse, sae, sst float64
	for i, row := range features {
		pred, err := model.Predict(row)
		if err != nil {
			return Scores{}, err
		}
		diff := targets[i] - pred
		sse += diff * diff
		sae += math.Abs(diff)
		dev := targets[i] - mean
		sst += dev * dev
	}

	n := float64(len(features))
	scores := Scores{
		RMSE: math.Sqrt(sse / n),
		MAE:  sae / n,
		N:    len(features),
	}
	if sst > 0 {
		scores.R2 = 1 - sse/sst
	}
	return scores, nil
}
