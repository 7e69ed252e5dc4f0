// Package pipeline runs the end-to-end training flow for one (role,
// location) pair: chronological split, leakage-safe scaling, window
// construction, network training, evaluation against baselines, and artifact
// export.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	demandcast "github.com/jobpulse/demandcast"
	"github.com/jobpulse/demandcast/artifact"
	"github.com/jobpulse/demandcast/baseline"
	"github.com/jobpulse/demandcast/evaluate"
	"github.com/jobpulse/demandcast/lstm"
	"github.com/jobpulse/demandcast/scaler"
	"github.com/jobpulse/demandcast/timeseries"
)

// minTrainingBuffer is the number of observations required beyond the window
// size before a training run is worth attempting.
const minTrainingBuffer = 10

var ErrInsufficientTrainingData = errors.New("insufficient training data")

// Report summarizes one training run.
type Report struct {
	Artifact    *artifact.Artifact
	TrainResult *lstm.TrainResult
	Metrics     artifact.MetricsReport

	TrainWeeks      int
	ValidationWeeks int
	TestWeeks       int
}

// Run trains, evaluates, and exports a model for the configured key using
// history from the provided collaborator.
func Run(cfg Config, history demandcast.HistoryStore) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	series, err := history.LoadSeries(cfg.Role, cfg.Location, cfg.MaxHistoryWeeks)
	if err != nil {
		return nil, fmt.Errorf("unable to load series for %q/%q, %w", cfg.Role, cfg.Location, err)
	}
	if series.Len() < cfg.WindowSize+minTrainingBuffer {
		return nil, fmt.Errorf("need at least %d weeks, got %d, %w",
			cfg.WindowSize+minTrainingBuffer, series.Len(), ErrInsufficientTrainingData)
	}

	train, validation, test, err := series.Split(cfg.Split)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("train", train.Len()).
		Int("validation", validation.Len()).
		Int("test", test.Len()).
		Msg("split series chronologically")

	sc, err := scaler.New(cfg.ScalerKind)
	if err != nil {
		return nil, err
	}
	// fit on the train segment only; the same instance transforms every
	// other segment
	if err := sc.Fit(train.Y); err != nil {
		return nil, fmt.Errorf("unable to fit scaler, %w", err)
	}

	trainScaled, err := sc.Transform(train.Y)
	if err != nil {
		return nil, err
	}
	valScaled, err := sc.Transform(validation.Y)
	if err != nil {
		return nil, err
	}
	testScaled, err := sc.Transform(test.Y)
	if err != nil {
		return nil, err
	}

	trainSamples := timeseries.Windows(trainScaled, cfg.WindowSize)
	valSamples := timeseries.Windows(valScaled, cfg.WindowSize)
	testSamples := timeseries.Windows(testScaled, cfg.WindowSize)

	net, err := lstm.New(cfg.Model, cfg.Train.Seed)
	if err != nil {
		return nil, err
	}
	trainRes, err := lstm.NewTrainer(&cfg.Train).Fit(net, trainSamples, valSamples)
	if err != nil {
		return nil, fmt.Errorf("unable to train network, %w", err)
	}
	log.Info().
		Int("epochs", trainRes.EpochsRun).
		Bool("early_stopped", trainRes.EarlyStopped).
		Float64("best_val_loss", trainRes.BestValLoss).
		Msg("training complete")

	var lstmMetrics evaluate.Metrics
	if len(testSamples) > 0 {
		lstmMetrics, err = oneStepTestMetrics(net, sc, testSamples)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn().Msg("test segment too short for one-step evaluation")
	}

	baselineMetrics := evaluate.Baselines(train.Y, test.Y,
		baseline.NewNaive(),
		baseline.NewMovingAverage(cfg.MovingAverageWindow),
		baseline.NewARIMA(cfg.ARIMAOrder),
	)
	metrics := artifact.MetricsReport{LSTM: lstmMetrics, Baselines: baselineMetrics}

	store := artifact.NewStore(cfg.ArtifactsDir)
	art, err := store.Export(net, sc, cfg.WindowSize, metrics, cfg.Role, cfg.Location, artifact.DateRange{
		Start: train.StartDate().Format(demandcast.DateFormat),
		End:   train.EndDate().Format(demandcast.DateFormat),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to export artifact, %w", err)
	}

	return &Report{
		Artifact:        art,
		TrainResult:     trainRes,
		Metrics:         metrics,
		TrainWeeks:      train.Len(),
		ValidationWeeks: validation.Len(),
		TestWeeks:       test.Len(),
	}, nil
}

// oneStepTestMetrics scores the network's one-step-ahead test predictions in
// raw space so they are directly comparable to the baseline scores.
func oneStepTestMetrics(net *lstm.Network, sc *scaler.Scaler, samples []timeseries.WindowSample) (evaluate.Metrics, error) {
	predScaled := make([]float64, len(samples))
	targetScaled := make([]float64, len(samples))
	for i, sample := range samples {
		pred, err := net.Predict(sample.X)
		if err != nil {
			return evaluate.Metrics{}, fmt.Errorf("unable to predict test sample %d, %w", i, err)
		}
		predScaled[i] = pred
		targetScaled[i] = sample.Y
	}

	pred, err := sc.Inverse(predScaled)
	if err != nil {
		return evaluate.Metrics{}, err
	}
	target, err := sc.Inverse(targetScaled)
	if err != nil {
		return evaluate.Metrics{}, err
	}
	return evaluate.NewMetrics(target, pred)
}
