package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/assets"
	"github.com/patrickwarner/consentstudio/internal/editor"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/save"
	"github.com/patrickwarner/consentstudio/internal/storage"
	"github.com/patrickwarner/consentstudio/internal/units"
)

// ErrTooManySessions is returned when the session limit is reached.
var ErrTooManySessions = errors.New("too many editor sessions")

// Session is one open editor with its own save orchestrator.
type Session struct {
	ID          string
	Editor      *editor.Editor
	Saver       *save.Orchestrator
	Diagnostics *editor.DiagnosticLog
	CreatedAt   time.Time
}

// SessionManager keeps editor sessions in memory, keyed by uuid.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int

	logger     *zap.Logger
	metrics    observability.MetricsRegistry
	store      storage.TemplateStore
	registry   assets.Registry
	normalizer *normalize.Normalizer
	canvas     models.ByDevice[units.Size]
}

// NewSessionManager returns a manager creating sessions that save through
// store and resolve pending images from registry. max <= 0 means unbounded.
func NewSessionManager(logger *zap.Logger, metrics observability.MetricsRegistry, store storage.TemplateStore, registry assets.Registry, n *normalize.Normalizer, canvas models.ByDevice[units.Size], max int) *SessionManager {
	return &SessionManager{
		sessions:   make(map[string]*Session),
		max:        max,
		logger:     logger,
		metrics:    metrics,
		store:      store,
		registry:   registry,
		normalizer: n,
		canvas:     canvas,
	}
}

// Create opens a session on a new document, or on doc when it is not nil.
func (m *SessionManager) Create(doc *models.BannerDocument) (*Session, error) {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id))
	diags := editor.NewDiagnosticLog(0)

	opts := []editor.Option{
		editor.WithMetrics(m.metrics),
		editor.WithDiagnosticSink(diags),
	}
	if m.normalizer != nil {
		opts = append(opts, editor.WithNormalizer(m.normalizer))
	}
	for _, d := range models.Devices {
		if size := m.canvas.Get(d); size.Width > 0 && size.Height > 0 {
			opts = append(opts, editor.WithCanvas(d, size))
		}
	}
	ed := editor.New(logger, opts...)
	if doc != nil {
		ed.Load(doc, editor.WithSelectFirst())
	}

	s := &Session{
		ID:          id,
		Editor:      ed,
		Saver:       save.New(ed, m.store, m.registry, logger, m.metrics),
		Diagnostics: diags,
		CreatedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	if m.max > 0 && len(m.sessions) >= m.max {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(n)
	logger.Info("editor session opened", zap.Bool("loaded", doc != nil))
	return s, nil
}

// Get returns the session with id.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete closes the session with id.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if ok {
		m.metrics.SetActiveSessions(n)
		m.logger.Info("editor session closed", zap.String("session_id", id))
	}
	return ok
}

// Len returns the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
