package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betai_upstream_requests_total",
		Help: "Outbound requests to odds, scores and fantasy APIs.",
	}, []string{"gateway", "outcome"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betai_upstream_request_seconds",
		Help:    "Latency of outbound API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betai_odds_cache_lookups_total",
		Help: "Odds cache lookups by result.",
	}, []string{"result"})

	LLMAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betai_llm_attempts_total",
		Help: "LLM calls by model and outcome.",
	}, []string{"model", "outcome"})

	ChatReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betai_chat_replies_total",
		Help: "Chat replies by source and intent.",
	}, []string{"source", "intent"})

	ChatWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betai_chat_workers",
		Help: "Running chat workers.",
	})

	ChatQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betai_chat_queued_jobs",
		Help: "Chat requests waiting for a worker.",
	})
)

// ObserveUpstream records one outbound call.
func ObserveUpstream(gateway string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequests.WithLabelValues(gateway, outcome).Inc()
	UpstreamLatency.WithLabelValues(gateway).Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
