package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	ExpansionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "query_expansions_total",
			Help:      "Total query expansion attempts",
		},
		[]string{"status"}, // "success" / "malformed" / "error"
	)

	SubqueryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "subquery_failures_total",
			Help:      "Sub-query retrieval failures degraded to empty results",
		},
		[]string{"stage"}, // "embed" / "search"
	)

	AsksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "asks_total",
			Help:      "Total question-answering invocations",
		},
		[]string{"status"}, // "success" / "error" / "canceled"
	)

	AskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end question-answering duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	MergedDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "merged_documents",
			Help:      "Unique documents per merged result set",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExpansionsTotal)
	prometheus.MustRegister(SubqueryFailuresTotal)
	prometheus.MustRegister(AsksTotal)
	prometheus.MustRegister(AskDuration)
	prometheus.MustRegister(MergedDocuments)
	pipelineMetricsRegistered = true
}
