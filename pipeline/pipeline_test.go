package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpulse/demandcast/artifact"
	"github.com/jobpulse/demandcast/baseline"
	_ "github.com/jobpulse/demandcast/baseline/arima"
	"github.com/jobpulse/demandcast/datastore"
	"github.com/jobpulse/demandcast/lstm"
	"github.com/jobpulse/demandcast/scaler"
	"github.com/jobpulse/demandcast/timeseries"
)

func writeHistoryCSV(t *testing.T, dir string, weeks int) {
	t.Helper()

	var buf []byte
	buf = append(buf, "week_start,postings_count\n"...)
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < weeks; i++ {
		count := 100 + 0.5*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/13.0)
		row := fmt.Sprintf("%s,%.2f\n", start.AddDate(0, 0, 7*i).Format("2006-01-02"), count)
		buf = append(buf, row...)
	}
	require.Nil(t, os.WriteFile(filepath.Join(dir, "software_engineer_austin_tx.csv"), buf, 0o644))
}

func testConfig(dataDir, artifactsDir string) Config {
	cfg := NewDefaultConfig()
	cfg.Role = "Software Engineer"
	cfg.Location = "Austin, TX"
	cfg.DataDir = dataDir
	cfg.ArtifactsDir = artifactsDir
	cfg.WindowSize = 4
	cfg.Model = lstm.Config{InputSize: 1, HiddenSize: 8, NumLayers: 1, Dropout: 0}
	cfg.Train = lstm.TrainConfig{Epochs: 5, BatchSize: 8, LearningRate: 0.01, Patience: 10, Seed: 42}
	return cfg
}

func TestRun(t *testing.T) {
	dataDir := t.TempDir()
	artifactsDir := t.TempDir()
	writeHistoryCSV(t, dataDir, 60)

	cfg := testConfig(dataDir, artifactsDir)
	report, err := Run(cfg, datastore.NewCSVStore(dataDir))
	require.Nil(t, err)

	// 60 weeks split 0.7/0.15/0.15
	assert.Equal(t, 42, report.TrainWeeks)
	assert.Equal(t, 9, report.ValidationWeeks)
	assert.Equal(t, 9, report.TestWeeks)
	assert.Greater(t, report.TrainResult.EpochsRun, 0)

	assert.False(t, math.IsNaN(report.Metrics.LSTM.RMSE))
	assert.Contains(t, report.Metrics.Baselines, "naive")
	assert.Contains(t, report.Metrics.Baselines, "moving_average")
	assert.Contains(t, report.Metrics.Baselines, "arima")

	// the exported artifact round-trips through the store
	art, err := artifact.NewStore(artifactsDir).Load(cfg.Role, cfg.Location)
	require.Nil(t, err)
	assert.Equal(t, cfg.WindowSize, art.Meta.WindowSize)
	assert.Equal(t, cfg.Model, art.Meta.ModelConfig)
	assert.Equal(t, "2023-01-02", art.Meta.TrainDateRange.Start)
}

func TestRunDeterministicGivenSeed(t *testing.T) {
	dataDir := t.TempDir()
	writeHistoryCSV(t, dataDir, 60)

	cfg := testConfig(dataDir, t.TempDir())
	first, err := Run(cfg, datastore.NewCSVStore(dataDir))
	require.Nil(t, err)

	cfg.ArtifactsDir = t.TempDir()
	second, err := Run(cfg, datastore.NewCSVStore(dataDir))
	require.Nil(t, err)

	assert.Equal(t, first.Artifact.Network.Weights(), second.Artifact.Network.Weights())
	assert.Equal(t, first.Metrics.LSTM, second.Metrics.LSTM)
}

func TestRunInsufficientData(t *testing.T) {
	dataDir := t.TempDir()
	writeHistoryCSV(t, dataDir, 12)

	cfg := testConfig(dataDir, t.TempDir())
	_, err := Run(cfg, datastore.NewCSVStore(dataDir))
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)
}

func TestRunValidate(t *testing.T) {
	testData := map[string]struct {
		mutate func(*Config)
	}{
		"missing role":     {mutate: func(c *Config) { c.Role = "" }},
		"missing location": {mutate: func(c *Config) { c.Location = "" }},
		"bad window":       {mutate: func(c *Config) { c.WindowSize = 0 }},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t.TempDir(), t.TempDir())
			td.mutate(&cfg)
			_, err := Run(cfg, datastore.NewCSVStore(cfg.DataDir))
			assert.NotNil(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.yaml")
	require.Nil(t, os.WriteFile(path, []byte(`
role: Nurse
location: Boston, MA
window_size: 8
scaler: minmax
model:
  hidden_size: 32
train:
  epochs: 20
arima_order:
  p: 2
  d: 0
  q: 1
`), 0o644))

	cfg, err := LoadConfig(path)
	require.Nil(t, err)

	assert.Equal(t, "Nurse", cfg.Role)
	assert.Equal(t, "Boston, MA", cfg.Location)
	assert.Equal(t, 8, cfg.WindowSize)
	assert.Equal(t, scaler.MinMax, cfg.ScalerKind)
	assert.Equal(t, 32, cfg.Model.HiddenSize)
	assert.Equal(t, 20, cfg.Train.Epochs)
	assert.Equal(t, baseline.Order{P: 2, D: 0, Q: 1}, cfg.ARIMAOrder)

	// unset keys keep their defaults
	assert.Equal(t, "data/processed", cfg.DataDir)
	assert.Equal(t, timeseries.NewDefaultSplitRatios(), cfg.Split)
	assert.Equal(t, 4, cfg.MovingAverageWindow)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NotNil(t, err)
}
