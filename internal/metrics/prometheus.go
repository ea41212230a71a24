package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpbot_queries_total",
			Help: "Total queries resolved, by response state",
		},
		[]string{"state"},
	)

	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpbot_intents_total",
			Help: "Classified intents",
		},
		[]string{"intent"},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helpbot_query_duration_seconds",
			Help:    "End-to-end query resolution duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helpbot_confidence_score",
			Help:    "Response confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.2},
		},
	)

	MatchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helpbot_match_results_count",
			Help:    "Number of surviving match candidates per question query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	RateLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "helpbot_rate_limit_rejections_total",
			Help: "Requests rejected by the sliding-window rate limiter",
		},
	)

	ValidationRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "helpbot_validation_rejections_total",
			Help: "Requests rejected by input validation",
		},
	)

	EscalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "helpbot_escalations_total",
			Help: "Escalations to human support",
		},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpbot_feedback_total",
			Help: "Feedback submissions, by outcome",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpbot_cache_hits_total",
			Help: "Popular-list cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpbot_cache_misses_total",
			Help: "Popular-list cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(IntentsTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(MatchResults)
	prometheus.MustRegister(RateLimitRejections)
	prometheus.MustRegister(ValidationRejections)
	prometheus.MustRegister(EscalationsTotal)
	prometheus.MustRegister(FeedbackTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
