// Command demandcast trains and serves weekly job-posting demand forecasts
// from processed CSV history.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	demandcast "github.com/jobpulse/demandcast"
	"github.com/jobpulse/demandcast/artifact"
	_ "github.com/jobpulse/demandcast/baseline/arima"
	"github.com/jobpulse/demandcast/datastore"
	"github.com/jobpulse/demandcast/pipeline"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "demandcast",
		Short: "Weekly job-posting demand forecaster",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(newTrainCmd(), newForecastCmd())
	return cmd
}

func newTrainCmd() *cobra.Command {
	var (
		configPath string
		role       string
		location   string
		profileCPU bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and export a model for one role and location",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := pipeline.NewDefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = pipeline.LoadConfig(configPath); err != nil {
					return err
				}
			}
			if role != "" {
				cfg.Role = role
			}
			if location != "" {
				cfg.Location = location
			}

			if profileCPU {
				defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
			}

			report, err := pipeline.Run(cfg, datastore.NewCSVStore(cfg.DataDir))
			if err != nil {
				return err
			}
			log.Info().
				Float64("lstm_rmse", report.Metrics.LSTM.RMSE).
				Float64("lstm_mape", report.Metrics.LSTM.MAPE).
				Int("baselines", len(report.Metrics.Baselines)).
				Str("trained_at", report.Artifact.Meta.TrainedAt).
				Msg("training run complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML training config")
	cmd.Flags().StringVar(&role, "role", "", "job role (overrides config)")
	cmd.Flags().StringVar(&location, "location", "", "location (overrides config)")
	cmd.Flags().BoolVar(&profileCPU, "profile", false, "write a CPU profile for the run")
	return cmd
}

func newForecastCmd() *cobra.Command {
	var (
		role         string
		location     string
		horizon      int
		dataDir      string
		artifactsDir string
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print the forecast for one role and location as JSON",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc := demandcast.NewForecastService(
				artifact.NewStore(artifactsDir),
				datastore.NewCSVStore(dataDir),
				nil,
			)
			res, err := svc.Forecast(role, location, horizon)
			if err != nil {
				return err
			}
			buf, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(buf))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "job role")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().IntVar(&horizon, "horizon", 8, "number of weeks to forecast")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data/processed", "processed CSV directory")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "artifacts", "model artifacts directory")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}
