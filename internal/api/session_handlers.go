package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/assets"
	"github.com/patrickwarner/consentstudio/internal/editor"
	"github.com/patrickwarner/consentstudio/internal/middleware"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/save"
	"github.com/patrickwarner/consentstudio/internal/units"
)

// sessionView is the JSON shape of an editor session.
type sessionView struct {
	ID        string                 `json:"id"`
	Selected  string                 `json:"selected,omitempty"`
	SaveState string                 `json:"saveState"`
	Document  *models.BannerDocument `json:"document"`
}

func viewOf(sess *Session) sessionView {
	return sessionView{
		ID:        sess.ID,
		Selected:  sess.Editor.Selected(),
		SaveState: sess.Saver.State().String(),
		Document:  sess.Editor.Snapshot(),
	}
}

// mutationResult reports whether an editor operation changed the document.
// A refused operation carries the diagnostic explaining why.
type mutationResult struct {
	Applied     bool                   `json:"applied"`
	ComponentID string                 `json:"componentId,omitempty"`
	Diagnostic  *editor.Diagnostic     `json:"diagnostic,omitempty"`
	Document    *models.BannerDocument `json:"document"`
}

// session resolves {sid} or answers 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request, endpoint, method string, start time.Time) (*Session, bool) {
	sess, ok := s.Sessions.Get(mux.Vars(r)["sid"])
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		s.observe(endpoint, method, http.StatusNotFound, start)
		return nil, false
	}
	return sess, true
}

// allow applies the per-session rate limit to endpoint or answers 429.
func (s *Server) allow(w http.ResponseWriter, sess *Session, endpoint, method string, start time.Time) bool {
	if s.Limiter.Allow(sess.ID, endpoint) {
		return true
	}
	w.Header().Set("Retry-After", "1")
	http.Error(w, "too many requests", http.StatusTooManyRequests)
	s.observe(endpoint, method, http.StatusTooManyRequests, start)
	return false
}

// device resolves {device} or answers 400.
func (s *Server) device(w http.ResponseWriter, r *http.Request, endpoint, method string, start time.Time) (models.Device, bool) {
	d, err := models.ParseDevice(mux.Vars(r)["device"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		s.observe(endpoint, method, http.StatusBadRequest, start)
		return "", false
	}
	return d, true
}

// decode reads a JSON body into v or answers 400. An empty body leaves v
// untouched when optional is set.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, optional bool, endpoint, method string, start time.Time) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	http.Error(w, "invalid json", http.StatusBadRequest)
	s.observe(endpoint, method, http.StatusBadRequest, start)
	return false
}

// respondMutation answers 200 when the editor applied the change and 422
// with the latest diagnostic when it refused it.
func (s *Server) respondMutation(w http.ResponseWriter, sess *Session, applied bool, componentID, endpoint, method string, start time.Time) {
	res := mutationResult{Applied: applied, ComponentID: componentID, Document: sess.Editor.Snapshot()}
	status := http.StatusOK
	if !applied {
		status = http.StatusUnprocessableEntity
		if entries := sess.Diagnostics.Entries(); len(entries) > 0 {
			last := entries[len(entries)-1]
			res.Diagnostic = &last
		}
	}
	writeJSON(w, status, res)
	s.observe(endpoint, method, status, start)
}

type createSessionRequest struct {
	TemplateID string          `json:"templateId"`
	Document   json.RawMessage `json:"document"`
}

// CreateSession opens an editor on a new banner, a stored template or a
// posted document.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "create_session"
	const method = "POST"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var req createSessionRequest
	if !s.decode(w, r, &req, true, endpoint, method, start) {
		return
	}

	var doc *models.BannerDocument
	switch {
	case req.TemplateID != "":
		fetched, err := s.Store.Fetch(r.Context(), req.TemplateID)
		if err != nil {
			status := storeStatus(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadGateway
				logger.Error("load template for session", zap.String("template_id", req.TemplateID), zap.Error(err))
			}
			http.Error(w, http.StatusText(status), status)
			s.observe(endpoint, method, status, start)
			return
		}
		doc = fetched
	case len(req.Document) > 0:
		doc = s.Normalizer.NormalizeJSON(req.Document)
	}

	sess, err := s.Sessions.Create(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		s.observe(endpoint, method, http.StatusServiceUnavailable, start)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess))
	s.observe(endpoint, method, http.StatusCreated, start)
}

// GetSession returns the session document.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "get_session"
	const method = "GET"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
	s.observe(endpoint, method, http.StatusOK, start)
}

// DeleteSession closes a session. Unsaved changes are lost.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "delete_session"
	const method = "DELETE"

	sid := mux.Vars(r)["sid"]
	if !s.Sessions.Delete(sid) {
		http.Error(w, "session not found", http.StatusNotFound)
		s.observe(endpoint, method, http.StatusNotFound, start)
		return
	}
	s.Limiter.Forget(sid)
	w.WriteHeader(http.StatusNoContent)
	s.observe(endpoint, method, http.StatusNoContent, start)
}

// SessionDiagnostics lists the refused operations of a session.
func (s *Server) SessionDiagnostics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "session_diagnostics"
	const method = "GET"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	entries := sess.Diagnostics.Entries()
	if entries == nil {
		entries = []editor.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, entries)
	s.observe(endpoint, method, http.StatusOK, start)
}

// RenameSession sets the banner name.
func (s *Server) RenameSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "rename"
	const method = "PUT"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	sess.Editor.SetName(req.Name)
	s.respondMutation(w, sess, true, "", endpoint, method, start)
}

// UpdateLayout sets one layout property for a device.
func (s *Server) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "update_layout"
	const method = "PATCH"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	d, ok := s.device(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		Property string `json:"property"`
		Value    string `json:"value"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	applied := sess.Editor.UpdateLayoutForDevice(d, req.Property, req.Value)
	s.respondMutation(w, sess, applied, "", endpoint, method, start)
}

type addComponentRequest struct {
	Type     models.ComponentType `json:"type"`
	Top      string               `json:"top"`
	Left     string               `json:"left"`
	Content  json.RawMessage      `json:"content"`
	Style    models.Style         `json:"style"`
	ParentID string               `json:"parentId"`
}

// AddComponent inserts a component with defaults for what is not given.
func (s *Server) AddComponent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "add_component"
	const method = "POST"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req addComponentRequest
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}

	var opts []editor.AddOption
	if req.Top != "" || req.Left != "" {
		opts = append(opts, editor.AtPosition(req.Top, req.Left))
	}
	if len(req.Content) > 0 {
		var c models.Content
		if err := json.Unmarshal(req.Content, &c); err != nil {
			http.Error(w, "invalid content", http.StatusBadRequest)
			s.observe(endpoint, method, http.StatusBadRequest, start)
			return
		}
		opts = append(opts, editor.WithContent(c))
	}
	if req.Style != nil {
		opts = append(opts, editor.WithStyle(req.Style))
	}
	if req.ParentID != "" {
		opts = append(opts, editor.InContainer(req.ParentID))
	}

	id := sess.Editor.AddComponent(req.Type, opts...)
	s.respondMutation(w, sess, id != "", id, endpoint, method, start)
}

// DeleteComponent removes an unlocked component.
func (s *Server) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "delete_component"
	const method = "DELETE"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	cid := mux.Vars(r)["cid"]
	s.respondMutation(w, sess, sess.Editor.DeleteComponent(cid), cid, endpoint, method, start)
}

// DuplicateComponent copies a component next to the original.
func (s *Server) DuplicateComponent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "duplicate_component"
	const method = "POST"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	id := sess.Editor.DuplicateComponent(mux.Vars(r)["cid"])
	s.respondMutation(w, sess, id != "", id, endpoint, method, start)
}

// ReorderComponent moves a component among its siblings.
func (s *Server) ReorderComponent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "reorder_component"
	const method = "PUT"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	cid := mux.Vars(r)["cid"]
	s.respondMutation(w, sess, sess.Editor.ReorderComponent(cid, req.Index), cid, endpoint, method, start)
}

// UpdateContent replaces the content of a component.
func (s *Server) UpdateContent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "update_content"
	const method = "PUT"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		Content *models.Content `json:"content"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	if req.Content == nil {
		http.Error(w, "content is required", http.StatusBadRequest)
		s.observe(endpoint, method, http.StatusBadRequest, start)
		return
	}
	cid := mux.Vars(r)["cid"]
	s.respondMutation(w, sess, sess.Editor.UpdateContent(cid, *req.Content), cid, endpoint, method, start)
}

// UpdateStyle merges style properties for one device. A null value removes
// the property.
func (s *Server) UpdateStyle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "update_style"
	const method = "PATCH"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	d, ok := s.device(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var partial models.Style
	if !s.decode(w, r, &partial, false, endpoint, method, start) {
		return
	}
	cid := mux.Vars(r)["cid"]
	s.respondMutation(w, sess, sess.Editor.UpdateStyleForDevice(cid, d, partial), cid, endpoint, method, start)
}

// UpdatePosition sets the position of a component for one device. Pixel
// values are converted against the device canvas.
func (s *Server) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "update_position"
	const method = "PUT"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	d, ok := s.device(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		Top  string `json:"top"`
		Left string `json:"left"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	cid := mux.Vars(r)["cid"]
	s.respondMutation(w, sess, sess.Editor.UpdatePositionForDevice(cid, d, req.Top, req.Left), cid, endpoint, method, start)
}

// measured carries the client-side measurement of a component.
type measured struct {
	Measurement units.Measurement `json:"measurement"`
}

func (m measured) measurer(componentID string) units.Measurer {
	return units.StaticMeasurer{componentID: m.Measurement}
}

// QuickPosition snaps a component to one of the nine grid positions.
func (s *Server) QuickPosition(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "quick_position"
	const method = "POST"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	d, ok := s.device(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		measured
		Code units.GridCode `json:"code"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	cid := mux.Vars(r)["cid"]
	applied := sess.Editor.ApplyQuickPosition(r.Context(), cid, d, req.Code, req.measurer(cid))
	s.respondMutation(w, sess, applied, cid, endpoint, method, start)
}

// AlignComponent aligns a component along one axis of its container.
func (s *Server) AlignComponent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "align_component"
	const method = "POST"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	d, ok := s.device(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		measured
		Alignment units.Alignment `json:"alignment"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	cid := mux.Vars(r)["cid"]
	applied := sess.Editor.AlignComponent(r.Context(), cid, d, req.Alignment, req.measurer(cid))
	s.respondMutation(w, sess, applied, cid, endpoint, method, start)
}

// MoveComponent drops a component at a pixel offset inside its container.
func (s *Server) MoveComponent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "move_component"
	const method = "POST"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	d, ok := s.device(w, r, endpoint, method, start)
	if !ok {
		return
	}
	var req struct {
		measured
		Top  float64 `json:"top"`
		Left float64 `json:"left"`
	}
	if !s.decode(w, r, &req, false, endpoint, method, start) {
		return
	}
	cid := mux.Vars(r)["cid"]
	applied := sess.Editor.MoveToPixels(r.Context(), cid, d, req.Top, req.Left, req.measurer(cid))
	s.respondMutation(w, sess, applied, cid, endpoint, method, start)
}

type uploadResponse struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	ComponentID string `json:"componentId,omitempty"`
	Attached    bool   `json:"attached"`
}

// UploadAsset registers an image under a new reference token. With a
// componentId form field the image is attached to that component.
func (s *Server) UploadAsset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "upload_asset"
	const method = "POST"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok || !s.allow(w, sess, endpoint, method, start) {
		return
	}
	limit := s.Config.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		s.observe(endpoint, method, http.StatusBadRequest, start)
		return
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read upload", http.StatusBadRequest)
		s.observe(endpoint, method, http.StatusBadRequest, start)
		return
	}

	h := assets.SniffMimeType(models.BinaryHandle{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	token, err := assets.AttachNew(r.Context(), s.Registry, h)
	if err != nil {
		logger.Error("register upload", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		s.observe(endpoint, method, http.StatusInternalServerError, start)
		return
	}

	res := uploadResponse{Token: token, Name: h.Name, Size: h.Size, Type: h.MimeType}
	if cid := r.FormValue("componentId"); cid != "" {
		res.ComponentID = cid
		res.Attached = sess.Editor.AttachImage(cid, token, nil, r.FormValue("previewUrl"))
	}
	writeJSON(w, http.StatusCreated, res)
	s.observe(endpoint, method, http.StatusCreated, start)
}

// SaveSession persists the session document.
func (s *Server) SaveSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "save"
	const method = "POST"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok || !s.allow(w, sess, endpoint, method, start) {
		return
	}
	res, err := sess.Saver.Save(r.Context(), nil)
	if err != nil {
		var status int
		switch {
		case errors.Is(err, save.ErrSaveInProgress):
			status = http.StatusConflict
		case errors.Is(err, save.ErrNameRequired):
			status = http.StatusUnprocessableEntity
		default:
			status = storeStatus(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadGateway
			}
		}
		http.Error(w, err.Error(), status)
		s.observe(endpoint, method, status, start)
		return
	}
	writeJSON(w, http.StatusOK, res)
	s.observe(endpoint, method, http.StatusOK, start)
}
