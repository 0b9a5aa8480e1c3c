package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components receive it by injection instead of touching the Prometheus
// globals.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Editor metrics
	IncrementDiagnostics(kind string)
	SetActiveSessions(n int)

	// Save metrics
	IncrementSaves(mode, outcome string)
	RecordSaveLatency(mode string, duration time.Duration)
	AddAssetsUploaded(n int)

	// Template store metrics
	IncrementTemplateWrites(op, outcome string)

	// Rate limiting metrics
	IncrementRateLimitHits(op string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Editor metrics
func (r *PrometheusRegistry) IncrementDiagnostics(kind string) {
	EditorDiagnostics.WithLabelValues(kind).Inc()
}

func (r *PrometheusRegistry) SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

// Save metrics
func (r *PrometheusRegistry) IncrementSaves(mode, outcome string) {
	SaveCount.WithLabelValues(mode, outcome).Inc()
}

func (r *PrometheusRegistry) RecordSaveLatency(mode string, duration time.Duration) {
	SaveLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) AddAssetsUploaded(n int) {
	AssetsUploaded.Add(float64(n))
}

// Template store metrics
func (r *PrometheusRegistry) IncrementTemplateWrites(op, outcome string) {
	TemplateWrites.WithLabelValues(op, outcome).Inc()
}

// Rate limiting metrics
func (r *PrometheusRegistry) IncrementRateLimitHits(op string) {
	RateLimitHits.WithLabelValues(op).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementDiagnostics(kind string)                                     {}
func (r *NoOpRegistry) SetActiveSessions(n int)                                              {}
func (r *NoOpRegistry) IncrementSaves(mode, outcome string)                                  {}
func (r *NoOpRegistry) RecordSaveLatency(mode string, duration time.Duration)                {}
func (r *NoOpRegistry) AddAssetsUploaded(n int)                                              {}
func (r *NoOpRegistry) IncrementTemplateWrites(op, outcome string)                           {}
func (r *NoOpRegistry) IncrementRateLimitHits(op string)                                     {}
