// Package artifact serializes and reconstructs trained model artifacts. Each
// (role, location) pair owns one directory keyed by its slug holding the
// network architecture and weights, the fitted scaler state, and a metadata
// record, all under a single versioned schema.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/jobpulse/demandcast/evaluate"
	"github.com/jobpulse/demandcast/lstm"
	"github.com/jobpulse/demandcast/scaler"
)

var (
	ErrNotFound       = errors.New("no trained model artifact for key")
	ErrSchemaMismatch = errors.New("artifact schema does not match expected layout")
)

// SchemaVersion guards against loading artifacts written by an incompatible
// layout. Bump on any breaking change to the files below.
const SchemaVersion = 1

const (
	modelFileName    = "model.json"
	scalerFileName   = "scaler.json"
	metadataFileName = "metadata.json"
)

// Slug normalizes a role or location string into a storage key segment:
// lowercase, comma sequences and spaces become underscores, repeated
// underscores collapse.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "_")
	s = strings.ReplaceAll(s, " ", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// Key returns the artifact directory name for a (role, location) pair.
func Key(role, location string) string {
	return Slug(role) + "_" + Slug(location)
}

// DateRange bounds the training segment.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MetricsReport groups the predictor scores with the baseline comparator
// scores.
type MetricsReport struct {
	LSTM      evaluate.Metrics            `json:"lstm"`
	Baselines map[string]evaluate.Metrics `json:"baselines"`
}

// Metadata is the descriptive record exported next to the weights. The
// architecture stored here must exactly match the one used to rebuild the
// network.
type Metadata struct {
	SchemaVersion  int           `json:"schema_version"`
	Role           string        `json:"role"`
	Location       string        `json:"location"`
	WindowSize     int           `json:"window_size"`
	ModelType      string        `json:"model_type"`
	ModelConfig    lstm.Config   `json:"model_config"`
	TrainedAt      string        `json:"trained_at"`
	TrainDateRange DateRange     `json:"train_date_range"`
	Metrics        MetricsReport `json:"metrics"`
}

// Artifact bundles everything needed to serve forecasts for one key.
type Artifact struct {
	Network *lstm.Network
	Scaler  *scaler.Scaler
	Meta    Metadata
}

type modelFile struct {
	SchemaVersion int          `json:"schema_version"`
	Config        lstm.Config  `json:"config"`
	Weights       lstm.Weights `json:"weights"`
}

type scalerFile struct {
	SchemaVersion int          `json:"schema_version"`
	State         scaler.State `json:"state"`
}

// Store reads and writes artifact directories under a base directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) keyDir(role, location string) string {
	return filepath.Join(s.dir, Key(role, location))
}

// Export writes the model, scaler, and metadata files for the given key and
// returns the assembled artifact. The export timestamp is recorded in UTC.
func (s *Store) Export(net *lstm.Network, sc *scaler.Scaler, windowSize int, metrics MetricsReport, role, location string, trainRange DateRange) (*Artifact, error) {
	dir := s.keyDir(role, location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create artifact directory %s, %w", dir, err)
	}

	meta := Metadata{
		SchemaVersion:  SchemaVersion,
		Role:           role,
		Location:       location,
		WindowSize:     windowSize,
		ModelType:      "lstm",
		ModelConfig:    net.Config(),
		TrainedAt:      time.Now().UTC().Format(time.RFC3339),
		TrainDateRange: trainRange,
		Metrics:        metrics,
	}

	if err := writeJSON(filepath.Join(dir, modelFileName), modelFile{
		SchemaVersion: SchemaVersion,
		Config:        net.Config(),
		Weights:       net.Weights(),
	}); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, scalerFileName), scalerFile{
		SchemaVersion: SchemaVersion,
		State:         sc.State(),
	}); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, metadataFileName), meta); err != nil {
		return nil, err
	}

	log.Info().Str("dir", dir).Str("role", role).Str("location", location).Msg("exported model artifact")
	return &Artifact{Network: net, Scaler: sc, Meta: meta}, nil
}

// Load reconstructs the artifact for a key, failing with ErrNotFound when
// the directory is absent and ErrSchemaMismatch when the stored architecture
// disagrees with the metadata record.
func (s *Store) Load(role, location string) (*Artifact, error) {
	dir := s.keyDir(role, location)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("expected directory %s, %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("unable to stat artifact directory %s, %w", dir, err)
	}

	var meta Metadata
	if err := readJSON(filepath.Join(dir, metadataFileName), &meta); err != nil {
		return nil, err
	}
	if meta.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("metadata schema version %d, expected %d, %w", meta.SchemaVersion, SchemaVersion, ErrSchemaMismatch)
	}

	var mf modelFile
	if err := readJSON(filepath.Join(dir, modelFileName), &mf); err != nil {
		return nil, err
	}
	if mf.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("model schema version %d, expected %d, %w", mf.SchemaVersion, SchemaVersion, ErrSchemaMismatch)
	}
	if mf.Config != meta.ModelConfig {
		return nil, fmt.Errorf("model config %+v disagrees with metadata %+v, %w", mf.Config, meta.ModelConfig, ErrSchemaMismatch)
	}

	net, err := lstm.NewFromWeights(mf.Config, mf.Weights)
	if err != nil {
		return nil, fmt.Errorf("unable to rebuild network from artifact, %w", err)
	}

	var sf scalerFile
	if err := readJSON(filepath.Join(dir, scalerFileName), &sf); err != nil {
		return nil, err
	}
	if sf.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("scaler schema version %d, expected %d, %w", sf.SchemaVersion, SchemaVersion, ErrSchemaMismatch)
	}
	sc, err := scaler.FromState(sf.State)
	if err != nil {
		return nil, fmt.Errorf("unable to rebuild scaler from artifact, %w", err)
	}

	return &Artifact{Network: net, Scaler: sc, Meta: meta}, nil
}

func writeJSON(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal %s, %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("missing %s, %w", path, ErrNotFound)
		}
		return fmt.Errorf("unable to read %s, %w", path, err)
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("unable to unmarshal %s, %w", path, err)
	}
	return nil
}
