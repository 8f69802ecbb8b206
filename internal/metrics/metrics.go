package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluationsTotal counts evaluation attempts by outcome: ok, degraded, error.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_evaluations_total",
		Help: "Total number of transcript evaluations",
	}, []string{"outcome"})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "practice_evaluation_duration_seconds",
		Help:    "Time spent waiting on the evaluation model",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40},
	})

	// SuggestionsTotal counts suggestion streams by outcome: ready, failed, superseded.
	SuggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_suggestions_total",
		Help: "Total number of suggestion generations",
	}, []string{"outcome"})

	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "practice_active_calls",
		Help: "Current number of live voice calls",
	})

	// ResultLookupsTotal counts results reads by source: cache, store, miss.
	ResultLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_result_lookups_total",
		Help: "Total number of result lookups",
	}, []string{"source"})
)
