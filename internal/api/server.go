package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/assets"
	"github.com/patrickwarner/consentstudio/internal/config"
	"github.com/patrickwarner/consentstudio/internal/middleware"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/ratelimit"
	"github.com/patrickwarner/consentstudio/internal/storage"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger     *zap.Logger
	Metrics    observability.MetricsRegistry
	Config     config.Config
	Normalizer *normalize.Normalizer
	// Templates is set when this process is the template store. Store is
	// what editor sessions save through; it is Templates itself or a client
	// of a remote store.
	Templates *storage.Service
	Store     storage.TemplateStore
	Registry  assets.Registry
	Sessions  *SessionManager
	Limiter   *ratelimit.SessionLimiter
}

// NewServer constructs a Server. templates may be nil when store points at a
// remote template store.
func NewServer(logger *zap.Logger, metrics observability.MetricsRegistry, cfg config.Config, n *normalize.Normalizer, templates *storage.Service, store storage.TemplateStore, registry assets.Registry) *Server {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if n == nil {
		n = normalize.New(logger)
	}
	if registry == nil {
		registry = assets.NewMemoryRegistry()
	}
	if store == nil && templates != nil {
		store = templates
	}
	limiter := ratelimit.NewSessionLimiter(ratelimit.Config{
		Capacity:   cfg.RateLimitCapacity,
		RefillRate: cfg.RateLimitRefillRate,
		Enabled:    cfg.RateLimitEnabled,
	}, metrics)
	return &Server{
		Logger:     logger,
		Metrics:    metrics,
		Config:     cfg,
		Normalizer: n,
		Templates:  templates,
		Store:      store,
		Registry:   registry,
		Sessions:   NewSessionManager(logger, metrics, store, registry, n, cfg.Canvas, cfg.MaxSessions),
		Limiter:    limiter,
	}
}

// Router registers every route on a new mux router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(s.Logger))
	r.Use(middleware.AccessLog(s.Logger, observability.SamplingRateFor(s.Config.Environment)))

	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	if s.Templates != nil {
		r.HandleFunc("/assets/{id}", s.GetAsset).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	if s.Templates != nil {
		api.HandleFunc("/templates", s.ListTemplates).Methods("GET")
		api.HandleFunc("/templates", s.CreateTemplate).Methods("POST")
		api.HandleFunc("/templates/{id}", s.GetTemplate).Methods("GET")
		api.HandleFunc("/templates/{id}", s.UpdateTemplate).Methods("PUT")
	}

	api.HandleFunc("/sessions", s.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{sid}", s.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{sid}", s.DeleteSession).Methods("DELETE")
	sess := api.PathPrefix("/sessions/{sid}").Subrouter()
	sess.HandleFunc("/name", s.RenameSession).Methods("PUT")
	sess.HandleFunc("/layout/{device}", s.UpdateLayout).Methods("PATCH")
	sess.HandleFunc("/components", s.AddComponent).Methods("POST")
	sess.HandleFunc("/components/{cid}", s.DeleteComponent).Methods("DELETE")
	sess.HandleFunc("/components/{cid}/duplicate", s.DuplicateComponent).Methods("POST")
	sess.HandleFunc("/components/{cid}/order", s.ReorderComponent).Methods("PUT")
	sess.HandleFunc("/components/{cid}/content", s.UpdateContent).Methods("PUT")
	sess.HandleFunc("/components/{cid}/style/{device}", s.UpdateStyle).Methods("PATCH")
	sess.HandleFunc("/components/{cid}/position/{device}", s.UpdatePosition).Methods("PUT")
	sess.HandleFunc("/components/{cid}/quick-position/{device}", s.QuickPosition).Methods("POST")
	sess.HandleFunc("/components/{cid}/align/{device}", s.AlignComponent).Methods("POST")
	sess.HandleFunc("/components/{cid}/move/{device}", s.MoveComponent).Methods("POST")
	sess.HandleFunc("/assets", s.UploadAsset).Methods("POST")
	sess.HandleFunc("/save", s.SaveSession).Methods("POST")
	sess.HandleFunc("/preview", s.Preview).Methods("GET")
	sess.HandleFunc("/diagnostics", s.SessionDiagnostics).Methods("GET")

	return r
}

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// observe records request count and latency for one handler call.
func (s *Server) observe(endpoint, method string, status int, start time.Time) {
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
