package demandcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forecastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "demandcast",
		Name:      "forecasts_total",
		Help:      "Forecast requests served, labeled by outcome.",
	}, []string{"status"})

	artifactCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demandcast",
		Name:      "artifact_cache_hits_total",
		Help:      "Model artifact loads served from the in-process cache.",
	})

	artifactCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demandcast",
		Name:      "artifact_cache_misses_total",
		Help:      "Model artifact loads that had to read from storage.",
	})
)
