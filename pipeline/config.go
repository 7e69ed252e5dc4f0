package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jobpulse/demandcast/baseline"
	"github.com/jobpulse/demandcast/lstm"
	"github.com/jobpulse/demandcast/scaler"
	"github.com/jobpulse/demandcast/timeseries"
)

var ErrMissingKey = errors.New("role and location are required")

// Config drives one end-to-end training run for a (role, location) pair.
type Config struct {
	Role     string `yaml:"role"`
	Location string `yaml:"location"`

	DataDir      string `yaml:"data_dir"`
	ArtifactsDir string `yaml:"artifacts_dir"`

	WindowSize      int                    `yaml:"window_size"`
	MaxHistoryWeeks int                    `yaml:"max_history_weeks"`
	ScalerKind      scaler.Kind            `yaml:"scaler"`
	Split           timeseries.SplitRatios `yaml:"split"`

	Model lstm.Config      `yaml:"model"`
	Train lstm.TrainConfig `yaml:"train"`

	MovingAverageWindow int            `yaml:"moving_average_window"`
	ARIMAOrder          baseline.Order `yaml:"arima_order"`
}

// NewDefaultConfig mirrors the standard weekly posting setup: 12 week
// windows, standardization fit on the 70 percent train split, and a two
// layer network.
func NewDefaultConfig() Config {
	return Config{
		DataDir:             "data/processed",
		ArtifactsDir:        "artifacts",
		WindowSize:          12,
		ScalerKind:          scaler.Standard,
		Split:               timeseries.NewDefaultSplitRatios(),
		Model:               lstm.NewDefaultConfig(),
		Train:               lstm.NewDefaultTrainConfig(),
		MovingAverageWindow: 4,
		ARIMAOrder:          baseline.Order{P: 1, D: 1, Q: 1},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := NewDefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config %s, %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config %s, %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Role == "" || c.Location == "" {
		return ErrMissingKey
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	return nil
}
