// Package save persists the document of an editor session. At most one save
// runs at a time per orchestrator; pending images are uploaded in the same
// request as the document.
package save

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickwarner/consentstudio/internal/assets"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	// ErrSaveInProgress is returned when a save is requested while another
	// one is still running.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrNameRequired is returned when the banner has no name.
	ErrNameRequired = errors.New("banner name is required")
)

// State is the lifecycle of the most recent save.
type State int32

const (
	StateIdle State = iota
	StateSaving
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSaving:
		return "saving"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Document is the editor side of a save.
// The generation returned with a snapshot ties a save result to the document
// it was taken from.
type Document interface {
	VersionedSnapshot() (*models.BannerDocument, uint64)
	ApplySaved(generation uint64, id string, uploaded map[string]string) bool
}

// Result describes a successful save.
type Result struct {
	ID       string                 `json:"id"`
	Created  bool                   `json:"created"`
	Mode     string                 `json:"mode"`
	Uploaded []string               `json:"uploaded,omitempty"`
	Document *models.BannerDocument `json:"document"`
}

// Orchestrator saves one editor document through a TemplateStore.
type Orchestrator struct {
	doc       Document
	store     storage.TemplateStore
	collector *assets.Collector
	registry  assets.Registry
	logger    *zap.Logger
	metrics   observability.MetricsRegistry

	state   atomic.Int32
	mu      sync.Mutex
	lastErr error
}

// New returns an Orchestrator. registry may be nil when images are only
// attached through component temp files.
func New(doc Document, store storage.TemplateStore, registry assets.Registry, logger *zap.Logger, metrics observability.MetricsRegistry) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Orchestrator{
		doc:       doc,
		store:     store,
		collector: assets.NewCollector(registry, logger),
		registry:  registry,
		logger:    logger,
		metrics:   metrics,
	}
}

// State returns the state of the most recent save.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// LastError returns the error of the most recent failed save.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Save persists the editor document, or override when it is not nil. It
// creates a template when the document has no id and updates it otherwise.
// On failure the editor document is left untouched.
func (o *Orchestrator) Save(ctx context.Context, override *models.BannerDocument) (*Result, error) {
	for {
		cur := o.state.Load()
		if State(cur) == StateSaving {
			o.metrics.IncrementSaves("none", "rejected")
			return nil, ErrSaveInProgress
		}
		if o.state.CompareAndSwap(cur, int32(StateSaving)) {
			break
		}
	}

	res, err := o.save(ctx, override)

	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	if err != nil {
		o.state.Store(int32(StateFailed))
		return nil, err
	}
	o.state.Store(int32(StateSuccess))
	return res, nil
}

func (o *Orchestrator) save(ctx context.Context, override *models.BannerDocument) (*Result, error) {
	ctx, span := observability.Tracer("save").Start(ctx, "save.banner")
	defer span.End()

	doc, generation := o.doc.VersionedSnapshot()
	if override != nil {
		doc = override.Clone()
	}
	if strings.TrimSpace(doc.Name) == "" {
		o.metrics.IncrementSaves("none", "invalid")
		return nil, ErrNameRequired
	}

	pending := o.collector.Collect(ctx, doc)
	payload, err := BuildPayload(doc, pending)
	if err != nil {
		o.metrics.IncrementSaves("none", "invalid")
		return nil, err
	}
	mode := payload.Mode()
	created := doc.ID == ""
	span.SetAttributes(
		attribute.String("banner.mode", mode),
		attribute.Bool("banner.created", created),
		attribute.Int("banner.uploads", len(payload.Uploads)),
	)

	start := time.Now()
	var saved *models.BannerDocument
	if created {
		saved, err = o.store.Create(ctx, payload)
	} else {
		saved, err = o.store.Update(ctx, doc.ID, payload)
	}
	o.metrics.RecordSaveLatency(mode, time.Since(start))
	if err != nil {
		o.metrics.IncrementSaves(mode, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error("banner save failed",
			zap.String("banner_id", doc.ID),
			zap.String("mode", mode),
			zap.Error(err))
		return nil, fmt.Errorf("save banner: %w", err)
	}
	if saved == nil {
		saved = doc
	}
	id := saved.ID
	if id == "" {
		id = doc.ID
	}

	uploaded := resolvedUploads(doc, saved, payload.Uploads)
	if !o.doc.ApplySaved(generation, id, uploaded) {
		o.logger.Warn("document replaced while saving, result not merged",
			zap.String("banner_id", id))
	}
	if o.registry != nil && len(uploaded) > 0 {
		tokens := make([]string, 0, len(uploaded))
		for t := range uploaded {
			tokens = append(tokens, t)
		}
		if err := o.registry.Remove(ctx, tokens...); err != nil {
			o.logger.Warn("failed to release uploaded assets", zap.Error(err))
		}
	}

	o.metrics.IncrementSaves(mode, "success")
	o.metrics.AddAssetsUploaded(len(uploaded))
	o.logger.Info("banner saved",
		zap.String("banner_id", id),
		zap.Bool("created", created),
		zap.String("mode", mode),
		zap.Int("uploaded", len(uploaded)))

	res := &Result{ID: id, Created: created, Mode: mode, Document: saved}
	for t := range uploaded {
		res.Uploaded = append(res.Uploaded, t)
	}
	return res, nil
}

// resolvedUploads maps each uploaded token to the URL the store replaced it
// with, matching components by id. The persisted content is a bare string
// whose kind depends on how it was decoded, so any non-token string counts.
// Tokens the store left unresolved are kept pending.
func resolvedUploads(sent, saved *models.BannerDocument, tokens []string) map[string]string {
	out := make(map[string]string)
	if len(tokens) == 0 {
		return out
	}
	wanted := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		wanted[t] = true
	}
	models.Walk(sent.Components, func(c *models.Component) bool {
		if c.Content.Kind != models.ContentImageReference || !wanted[c.Content.Value] {
			return true
		}
		persisted := saved.Find(c.ID)
		if persisted == nil || !persisted.Content.IsString() {
			return true
		}
		if v := persisted.Content.Value; v != "" && !models.IsReferenceToken(v) {
			out[c.Content.Value] = v
		}
		return true
	})
	return out
}
