package services

import "github.com/prometheus/client_golang/prometheus"

var (
	documentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poem_mood_documents_processed_total",
			Help: "Total number of documents handled by an enrichment pass.",
		},
		[]string{"pass"},
	)
	enrichmentErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poem_mood_enrichment_errors_total",
			Help: "Total number of per-document failures during enrichment passes.",
		},
		[]string{"pass"},
	)
	passDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poem_mood_pass_duration_seconds",
			Help:    "Duration of complete enrichment passes.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"pass"},
	)
	recommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poem_mood_recommendations_total",
			Help: "Total number of recommendations by fallback tier.",
		},
		[]string{"tier"},
	)
	importedPoems = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "poem_mood_imported_poems_total",
			Help: "Total number of poems added by the importer.",
		},
	)
)

func init() {
	prometheus.MustRegister(documentsProcessed, enrichmentErrors, passDuration, recommendations, importedPoems)
}
