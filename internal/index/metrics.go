package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationsTotal counts index mutations.
	// Labels: op = "add", "remove", "upsert", "load"; result = "ok", "error".
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_index_mutations_total",
		Help: "Index mutations by operation and result",
	}, []string{"op", "result"})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_index_queries_total",
		Help: "Paged queries by kind",
	}, []string{"kind"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_index_query_duration_seconds",
		Help:    "Paged query duration by kind",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	}, []string{"kind"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_index_cache_lookups_total",
		Help: "Result cache lookups by outcome",
	}, []string{"result"})

	documentsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "folio_index_documents",
		Help: "Documents currently indexed by kind",
	}, []string{"kind"})

	invariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_index_invariant_violations_total",
		Help: "Bucket/store divergences detected during removal",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
