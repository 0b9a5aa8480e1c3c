package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/middleware"
	"github.com/patrickwarner/consentstudio/internal/storage"
)

// storeStatus maps template store errors to HTTP status codes.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CreateTemplate stores a banner sent as JSON or as multipart with images.
func (s *Server) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	s.writeTemplate(w, r, "create_template", "POST", "")
}

// UpdateTemplate replaces an existing banner.
func (s *Server) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	s.writeTemplate(w, r, "update_template", "PUT", mux.Vars(r)["id"])
}

func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, endpoint, method, id string) {
	start := time.Now()
	logger := middleware.LoggerFromRequest(r, s.Logger)

	decoded, err := storage.DecodePayload(r.Header.Get("Content-Type"), r.Body, s.Templates.MaxPayloadBytes())
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		logger.Warn("invalid template payload", zap.Error(err))
		http.Error(w, err.Error(), status)
		s.observe(endpoint, method, status, start)
		return
	}

	doc, err := s.Templates.Write(r.Context(), id, decoded)
	if err != nil {
		status := storeStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("template write failed", zap.String("template_id", id), zap.Error(err))
			http.Error(w, "internal error", status)
		} else {
			http.Error(w, err.Error(), status)
		}
		s.observe(endpoint, method, status, start)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, doc)
	s.observe(endpoint, method, status, start)
}

// GetTemplate returns a normalized banner.
func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "get_template"
	const method = "GET"

	doc, err := s.Templates.Fetch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := storeStatus(err)
		if status == http.StatusInternalServerError {
			middleware.LoggerFromRequest(r, s.Logger).Error("template fetch failed", zap.Error(err))
		}
		http.Error(w, http.StatusText(status), status)
		s.observe(endpoint, method, status, start)
		return
	}
	writeJSON(w, http.StatusOK, doc)
	s.observe(endpoint, method, http.StatusOK, start)
}

// ListTemplates returns the most recently updated banners. ?limit= caps the
// result.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "list_templates"
	const method = "GET"

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			s.observe(endpoint, method, http.StatusBadRequest, start)
			return
		}
		limit = n
	}
	list, err := s.Templates.List(r.Context(), limit)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("list templates", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		s.observe(endpoint, method, http.StatusInternalServerError, start)
		return
	}
	if list == nil {
		list = []storage.TemplateSummary{}
	}
	writeJSON(w, http.StatusOK, list)
	s.observe(endpoint, method, http.StatusOK, start)
}

// GetAsset serves an uploaded image.
func (s *Server) GetAsset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "asset"
	const method = "GET"

	a, err := s.Templates.Asset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := storeStatus(err)
		http.Error(w, http.StatusText(status), status)
		s.observe(endpoint, method, status, start)
		return
	}
	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
	s.observe(endpoint, method, http.StatusOK, start)
}
