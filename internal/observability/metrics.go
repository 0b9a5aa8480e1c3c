package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consentstudio_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consentstudio_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// ignored editor operations, labelled by diagnostic kind
	EditorDiagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consentstudio_editor_diagnostics_total",
			Help: "Editor operations ignored because they would break the document",
		},
		[]string{"kind"},
	)

	// save attempts by payload mode and outcome
	SaveCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consentstudio_saves_total",
			Help: "Banner save attempts",
		},
		[]string{"mode", "outcome"},
	)

	// duration of calls to the template store
	SaveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consentstudio_save_duration_seconds",
			Help:    "Duration of banner saves",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// images uploaded together with a banner
	AssetsUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consentstudio_assets_uploaded_total",
			Help: "Total images uploaded with banner saves",
		},
	)

	// open editor sessions
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "consentstudio_active_sessions",
			Help: "Editor sessions currently open",
		},
	)

	// template store writes by operation and outcome
	TemplateWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consentstudio_template_writes_total",
			Help: "Template create and update operations",
		},
		[]string{"op", "outcome"},
	)

	// session requests refused by the per-session rate limiter
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consentstudio_rate_limit_hits_total",
			Help: "Session requests refused by rate limiting",
		},
		[]string{"op"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		EditorDiagnostics,
		SaveCount,
		SaveLatency,
		AssetsUploaded,
		ActiveSessions,
		TemplateWrites,
		RateLimitHits,
	)
}
