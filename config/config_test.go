package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Http.Port)
	assert.Equal(t, 2015, cfg.Data.ReferenceYear)
	assert.Equal(t, 200, cfg.Training.NEstimators)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, []string{"Country", "Status"}, cfg.Training.DropColumns)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
http:
  port: 8081
  timeout: 5s
model:
  path: artifacts/model.json
training:
  n_estimators: 10
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("TRAINING_N_ESTIMATORS", "25")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Http.Port)
	assert.Equal(t, 5*time.Second, cfg.Http.Timeout)
	assert.Equal(t, "artifacts/model.json", cfg.Model.Path)
	assert.Equal(t, "model/features.json", cfg.Model.FeaturesPath)
	assert.Equal(t, 25, cfg.Training.NEstimators)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"port":      func(c *Config) { c.Http.Port = 0 },
		"log level": func(c *Config) { c.Log.Level = "loud" },
		"test size": func(c *Config) { c.Training.TestSize = 1.5 },
		"bounds":    func(c *Config) { c.Annotate.Max = c.Annotate.Min },
		"same path": func(c *Config) { c.Annotate.OutputPath = c.Annotate.InputPath },
		"model":     func(c *Config) { c.Model.Type = "svm" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, Validate(&cfg))
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(&cfg))
}

func TestResolveAndRebaseFromSubdirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.csv"), []byte("a\n"), 0o600))
	sub := filepath.Join(root, "cmd", "tool")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	t.Chdir(sub)
	assert.Equal(t, filepath.Join("..", "..", "data.csv"), Resolve("data.csv"))
	assert.Equal(t, filepath.Join("..", "..", "model", "model.json"), Rebase("data.csv", "model/model.json"))
	assert.Equal(t, "missing.csv", Resolve("missing.csv"))
	assert.Equal(t, "/abs/model.json", Rebase("data.csv", "/abs/model.json"))
	assert.Equal(t, "", Rebase("data.csv", ""))

	t.Chdir(root)
	assert.Equal(t, "data.csv", Resolve("data.csv"))
	assert.Equal(t, "model/model.json", Rebase("data.csv", "model/model.json"))
}
