package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	ModelTypeRandomForest   = "random_forest"
	ModelTypeRegressionTree = "regression_tree"
)

func LoadModel(modelType, path string) (Regressor, error) {
	var model Regressor
	switch modelType {
	case ModelTypeRandomForest:
		model = &RandomForest{}
	case ModelTypeRegressionTree:
		model = &RegressionTree{}
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
	if err := model.Load(path); err != nil {
		return nil, fmt.Errorf("load %s model from %s: %w", modelType, path, err)
	}
	return model, nil
}

// SaveFeatureNames persists the ordered feature list next to a model.
func SaveFeatureNames(path string, names []string) error {
	if len(names) == 0 {
		return errors.New("feature list is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func LoadFeatureNames(path string) ([]string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s lists no features", path)
	}
	return names, nil
}
