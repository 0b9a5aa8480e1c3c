package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/patrickwarner/consentstudio/internal/ids"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"

	"go.uber.org/zap"
)

// Service is the template store. It normalizes every document it accepts,
// stores uploaded images as assets and rewrites their reference tokens to
// public asset URLs.
type Service struct {
	repo          Repository
	normalizer    *normalize.Normalizer
	publicBaseURL string
	maxBytes      int64
	logger        *zap.Logger
	metrics       observability.MetricsRegistry
	now           func() time.Time
}

// ServiceConfig holds Service settings.
type ServiceConfig struct {
	// PublicBaseURL prefixes asset URLs, e.g. "https://studio.example.com".
	PublicBaseURL string
	// MaxPayloadBytes bounds a decoded payload.
	MaxPayloadBytes int64
}

// NewService returns a Service over repo.
func NewService(repo Repository, n *normalize.Normalizer, cfg ServiceConfig, logger *zap.Logger, metrics observability.MetricsRegistry) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if n == nil {
		n = normalize.New(logger)
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 10 << 20
	}
	return &Service{
		repo:          repo,
		normalizer:    n,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:      cfg.MaxPayloadBytes,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
	}
}

// MaxPayloadBytes returns the payload size limit.
func (s *Service) MaxPayloadBytes() int64 { return s.maxBytes }

// AssetURL returns the public URL of an asset.
func (s *Service) AssetURL(id string) string {
	return s.publicBaseURL + "/assets/" + id
}

// Create stores a new template.
func (s *Service) Create(ctx context.Context, p Payload) (*models.BannerDocument, error) {
	d, err := DecodePayload(p.ContentType, bytes.NewReader(p.Body), s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return s.Write(ctx, "", d)
}

// Update replaces the template with id.
func (s *Service) Update(ctx context.Context, id string, p Payload) (*models.BannerDocument, error) {
	d, err := DecodePayload(p.ContentType, bytes.NewReader(p.Body), s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return s.Write(ctx, id, d)
}

// Write stores a decoded payload. An empty id creates a new template.
func (s *Service) Write(ctx context.Context, id string, d Decoded) (*models.BannerDocument, error) {
	op := "create"
	if id != "" {
		op = "update"
	}
	doc, err := s.write(ctx, id, d)
	if err != nil {
		s.metrics.IncrementTemplateWrites(op, "failure")
		return nil, err
	}
	s.metrics.IncrementTemplateWrites(op, "success")
	return doc, nil
}

func (s *Service) write(ctx context.Context, id string, d Decoded) (*models.BannerDocument, error) {
	trimmed := bytes.TrimSpace(d.Document)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: banner must be a JSON object", ErrRejected)
	}
	if id != "" {
		if _, err := s.repo.Template(ctx, id); err != nil {
			return nil, err
		}
	}

	doc := s.normalizer.Parse(trimmed)
	doc.StripTransient()
	doc = s.normalizer.Normalize(doc)
	if id == "" {
		id = ids.New()
	}
	doc.ID = id

	now := s.now().UTC()
	urls := make(map[string]string, len(d.Uploads))
	for _, u := range d.Uploads {
		a := &Asset{ID: ids.New(), Name: u.Handle.Name, MimeType: u.Handle.MimeType, Data: u.Handle.Data, CreatedAt: now}
		if err := s.repo.SaveAsset(ctx, a); err != nil {
			return nil, fmt.Errorf("save asset %s: %w", u.Handle.Name, err)
		}
		urls[u.Token] = s.AssetURL(a.ID)
	}

	models.Walk(doc.Components, func(c *models.Component) bool {
		if c.Content.Kind != models.ContentImageReference {
			return true
		}
		if u, ok := urls[c.Content.Value]; ok {
			c.Content = models.ImageURL(u)
		} else {
			s.logger.Warn("image reference stored without upload",
				zap.String("template_id", id),
				zap.String("component_id", c.ID),
				zap.String("token", c.Content.Value))
		}
		return true
	})

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode banner: %w", err)
	}
	if err := s.repo.SaveTemplate(ctx, &Template{ID: id, Name: doc.Name, Document: raw, CreatedAt: now, UpdatedAt: now}); err != nil {
		return nil, fmt.Errorf("save template %s: %w", id, err)
	}
	s.logger.Info("template stored",
		zap.String("template_id", id),
		zap.Int("components", len(doc.Components)),
		zap.Int("assets", len(urls)))
	return doc, nil
}

// Fetch loads and normalizes the template with id.
func (s *Service) Fetch(ctx context.Context, id string) (*models.BannerDocument, error) {
	t, err := s.repo.Template(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := s.normalizer.NormalizeJSON(t.Document)
	doc.ID = t.ID
	return doc, nil
}

// List returns the most recently updated templates.
func (s *Service) List(ctx context.Context, limit int) ([]TemplateSummary, error) {
	return s.repo.ListTemplates(ctx, limit)
}

// Asset returns a stored image.
func (s *Service) Asset(ctx context.Context, id string) (*Asset, error) {
	return s.repo.Asset(ctx, id)
}
