package evaluate

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/jobpulse/demandcast/baseline"
)

// Baselines fits each model on the raw training values and scores its
// predictions against the raw test values. A model whose capability is
// unavailable is skipped; any other per-model failure is logged and isolated
// so the remaining comparators still get scored.
func Baselines(train, test []float64, models ...baseline.Model) map[string]Metrics {
	report := make(map[string]Metrics, len(models))
	for _, m := range models {
		if err := m.Fit(train); err != nil {
			if errors.Is(err, baseline.ErrUnavailable) {
				log.Info().Str("baseline", m.Name()).Msg("baseline capability unavailable, skipping")
				continue
			}
			log.Warn().Err(err).Str("baseline", m.Name()).Msg("baseline fit failed, skipping")
			continue
		}

		pred, err := m.Predict(len(test))
		if err != nil {
			log.Warn().Err(err).Str("baseline", m.Name()).Msg("baseline predict failed, skipping")
			continue
		}
		scores, err := NewMetrics(test, pred)
		if err != nil {
			log.Warn().Err(err).Str("baseline", m.Name()).Msg("baseline scoring failed, skipping")
			continue
		}
		report[m.Name()] = scores
	}
	return report
}
