package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReviewDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resume_agent_review_duration_seconds",
			Help:    "End-to-end review processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"has_job"},
	)

	ReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_agent_reviews_total",
			Help: "Total number of reviews processed",
		},
		[]string{"status"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resume_agent_confidence_score",
			Help:    "Review confidence scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ConfidenceBand = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_agent_confidence_band_total",
			Help: "Reviews per confidence band",
		},
		[]string{"band"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_agent_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"state"},
	)

	IntentsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_agent_intents_emitted_total",
			Help: "Total outbound message intents emitted",
		},
		[]string{"template"},
	)

	TurnsDeferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_agent_turns_deferred_total",
			Help: "Turns deferred by the per-session rate budget",
		},
	)

	StateConflictRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_agent_state_conflict_retries_total",
			Help: "Session updates retried after a version conflict",
		},
	)

	DeliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_agent_delivery_failures_total",
			Help: "Outbound messages that failed after retries",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_agent_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	JobFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_agent_job_fetch_total",
			Help: "Job description fetches by platform and status",
		},
		[]string{"platform", "status"},
	)

	ArticlesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_agent_articles_ingested_total",
			Help: "Total newsletter articles ingested",
		},
	)

	ChunksLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resume_agent_chunks_loaded",
			Help: "Newsletter chunks currently loaded in the content store",
		},
	)
)

func Init() {
	prometheus.MustRegister(ReviewDuration)
	prometheus.MustRegister(ReviewsTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(ConfidenceBand)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(IntentsEmitted)
	prometheus.MustRegister(TurnsDeferred)
	prometheus.MustRegister(StateConflictRetries)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(JobFetchTotal)
	prometheus.MustRegister(ArticlesIngested)
	prometheus.MustRegister(ChunksLoaded)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
