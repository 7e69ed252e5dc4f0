package demandcast

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jobpulse/demandcast/artifact"
	"github.com/jobpulse/demandcast/timeseries"
)

// HistoryStore is the external history collaborator. Implementations return
// the ordered weekly series for a key, truncated to the most recent maxWeeks
// observations, and fail with an error wrapping ErrNotFound when no data
// exists for the key.
type HistoryStore interface {
	LoadSeries(role, location string, maxWeeks int) (*timeseries.Series, error)
}

// ForecastService answers forecast requests by combining cached model
// artifacts with recent history. Loaded artifacts are cached per normalized
// key for the lifetime of the process and never evicted; concurrent first
// loads for the same key are collapsed into a single storage read.
type ForecastService struct {
	opt       *ServiceOptions
	artifacts *artifact.Store
	history   HistoryStore

	mu    sync.RWMutex
	cache map[string]*artifact.Artifact
	group singleflight.Group
}

// NewForecastService returns a service reading artifacts from store and
// history from the provided collaborator. Nil options fall back to defaults.
func NewForecastService(store *artifact.Store, history HistoryStore, opt *ServiceOptions) *ForecastService {
	if opt == nil {
		opt = NewDefaultServiceOptions()
	}
	return &ForecastService{
		opt:       opt,
		artifacts: store,
		history:   history,
		cache:     make(map[string]*artifact.Artifact),
	}
}

// Forecast produces the multi-week forecast for a (role, location) pair. The
// returned forecast always has exactly horizon points dated on consecutive
// weeks starting the week after the last historical date.
func (s *ForecastService) Forecast(role, location string, horizon int) (*ForecastResult, error) {
	res, err := s.forecast(role, location, horizon)
	forecastsTotal.WithLabelValues(statusLabel(err)).Inc()
	return res, err
}

func (s *ForecastService) forecast(role, location string, horizon int) (*ForecastResult, error) {
	if horizon < 1 || horizon > s.opt.MaxHorizon {
		return nil, fmt.Errorf("got %d, want 1 to %d, %w", horizon, s.opt.MaxHorizon, ErrInvalidHorizon)
	}

	art, err := s.loadArtifact(role, location)
	if err != nil {
		return nil, err
	}

	history, err := s.history.LoadSeries(role, location, s.opt.MaxHistoryWeeks)
	if err != nil {
		return nil, fmt.Errorf("unable to load history for %q/%q, %w", role, location, err)
	}

	windowSize := art.Meta.WindowSize
	if history.Len() < windowSize {
		return nil, fmt.Errorf("need at least %d weeks, got %d, %w", windowSize, history.Len(), ErrInsufficientHistory)
	}

	seed := history.Y[history.Len()-windowSize:]
	predictions, err := RecursiveForecast(art.Network, art.Scaler, seed, horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast %q/%q, %w", role, location, err)
	}

	return &ForecastResult{
		Role:     role,
		Location: location,
		History:  seriesPoints(history),
		Forecast: forecastPoints(history.EndDate(), predictions),
		Model: ModelInfo{
			Type:      art.Meta.ModelType,
			Window:    windowSize,
			TrainedOn: art.Meta.TrainedAt,
		},
	}, nil
}

// loadArtifact returns the cached artifact for the key, reading it from
// storage at most once across concurrent first requests. Cache entries are
// inserted on first load and never invalidated; loads are pure so a
// redundant read is wasted work, not corruption.
func (s *ForecastService) loadArtifact(role, location string) (*artifact.Artifact, error) {
	key := artifact.Key(role, location)

	s.mu.RLock()
	art, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		artifactCacheHits.Inc()
		return art, nil
	}
	artifactCacheMisses.Inc()

	v, err, _ := s.group.Do(key, func() (any, error) {
		art, err := s.artifacts.Load(role, location)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = art
		s.mu.Unlock()
		log.Info().Str("key", key).Msg("loaded model artifact into cache")
		return art, nil
	})
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, fmt.Errorf("artifact for %q/%q, %w", role, location, ErrNotFound)
		}
		return nil, fmt.Errorf("unable to load artifact for %q/%q, %w", role, location, err)
	}
	return v.(*artifact.Artifact), nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, ErrInvalidHorizon):
		return "invalid_horizon"
	default:
		return "error"
	}
}
