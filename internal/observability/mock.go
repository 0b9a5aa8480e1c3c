package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry records counters in memory so tests can assert on them.
type MockMetricsRegistry struct {
	mu          sync.Mutex
	Requests    map[string]int
	Diagnostics map[string]int
	Saves       map[string]int
	Uploaded    int
	Sessions    int
	Writes      map[string]int
	RateLimited map[string]int
}

// NewMockMetricsRegistry returns an empty MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Requests:    make(map[string]int),
		Diagnostics: make(map[string]int),
		Saves:       make(map[string]int),
		Writes:      make(map[string]int),
		RateLimited: make(map[string]int),
	}
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.mu.Lock()
	m.Requests[method+" "+endpoint+" "+status]++
	m.mu.Unlock()
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementDiagnostics(kind string) {
	m.mu.Lock()
	m.Diagnostics[kind]++
	m.mu.Unlock()
}

func (m *MockMetricsRegistry) SetActiveSessions(n int) {
	m.mu.Lock()
	m.Sessions = n
	m.mu.Unlock()
}

// IncrementSaves keys the count by "mode/outcome".
func (m *MockMetricsRegistry) IncrementSaves(mode, outcome string) {
	m.mu.Lock()
	m.Saves[mode+"/"+outcome]++
	m.mu.Unlock()
}

func (m *MockMetricsRegistry) RecordSaveLatency(mode string, duration time.Duration) {}

func (m *MockMetricsRegistry) AddAssetsUploaded(n int) {
	m.mu.Lock()
	m.Uploaded += n
	m.mu.Unlock()
}

// IncrementTemplateWrites keys the count by "op/outcome".
func (m *MockMetricsRegistry) IncrementTemplateWrites(op, outcome string) {
	m.mu.Lock()
	m.Writes[op+"/"+outcome]++
	m.mu.Unlock()
}

func (m *MockMetricsRegistry) IncrementRateLimitHits(op string) {
	m.mu.Lock()
	m.RateLimited[op]++
	m.mu.Unlock()
}

// DiagnosticCount returns how often kind was recorded.
func (m *MockMetricsRegistry) DiagnosticCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Diagnostics[kind]
}

// SaveCount returns how often a save with mode and outcome was recorded.
func (m *MockMetricsRegistry) SaveCount(mode, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Saves[mode+"/"+outcome]
}
