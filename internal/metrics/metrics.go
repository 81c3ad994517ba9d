// Package metrics provides Prometheus instrumentation for fraudforge.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

const namespace = "fraudforge"

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route pattern.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// EvaluationsTotal counts evaluations by domain and status.
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total evaluations by domain and resulting status.",
		},
		[]string{"domain", "status"},
	)

	// EvaluationScore observes total scores by domain.
	EvaluationScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_score",
			Help:      "Distribution of total risk scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
		[]string{"domain"},
	)

	// EvaluationDuration observes end-to-end processing time by domain.
	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time to resolve history, score and persist one event.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"domain"},
	)

	// AnalyzerHitsTotal counts analyzers that contributed a non-zero score.
	AnalyzerHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyzer_hits_total",
			Help:      "Analyzers that contributed risk, by domain and dimension.",
		},
		[]string{"domain", "dimension"},
	)

	// InvalidEventsTotal counts events rejected as invalid input.
	InvalidEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_events_total",
			Help:      "Events rejected before scoring, by domain.",
		},
		[]string{"domain"},
	)

	// BlocklistWritesTotal counts blocklist additions by source (api, auto).
	BlocklistWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocklist_writes_total",
			Help:      "Blocklist entries added, by source.",
		},
		[]string{"source"},
	)

	// WorkerMessagesTotal counts asynchronous submissions by result.
	WorkerMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_messages_total",
			Help:      "Asynchronous submissions handled by the worker, by result.",
		},
		[]string{"result"},
	)

	// RulesLoaded tracks the number of compiled operator rules.
	RulesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_loaded",
			Help:      "Number of operator rules currently loaded.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EvaluationsTotal,
		EvaluationScore,
		EvaluationDuration,
		AnalyzerHitsTotal,
		InvalidEventsTotal,
		BlocklistWritesTotal,
		WorkerMessagesTotal,
		RulesLoaded,
	)
}

// ObserveEvaluation records one completed evaluation.
func ObserveEvaluation(res *domain.AnalysisResult, elapsed time.Duration) {
	d := string(res.Domain)
	EvaluationsTotal.WithLabelValues(d, string(res.Status)).Inc()
	EvaluationScore.WithLabelValues(d).Observe(res.TotalScore)
	EvaluationDuration.WithLabelValues(d).Observe(elapsed.Seconds())
	for _, c := range res.Contributions {
		if c.Score > 0 {
			AnalyzerHitsTotal.WithLabelValues(d, c.Dimension).Inc()
		}
	}
}

// Middleware records request metrics keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := routePattern(r)
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, statusBucket(ww.Status())).Inc()
	})
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern uses the matched pattern, not the raw path, to bound cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code == 0:
		return "2xx"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
