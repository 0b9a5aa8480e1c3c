package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Template is a stored banner document.
type Template struct {
	ID        string
	Name      string
	Document  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateSummary is a template listing entry.
type TemplateSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Asset is an uploaded image.
type Asset struct {
	ID        string
	Name      string
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// Repository stores templates and assets.
type Repository interface {
	// SaveTemplate inserts or replaces t. CreatedAt is kept on replace.
	SaveTemplate(ctx context.Context, t *Template) error
	Template(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context, limit int) ([]TemplateSummary, error)
	SaveAsset(ctx context.Context, a *Asset) error
	Asset(ctx context.Context, id string) (*Asset, error)
}

// MemoryRepository is a Repository kept in process memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	templates map[string]Template
	assets    map[string]Asset
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{templates: make(map[string]Template), assets: make(map[string]Asset)}
}

func (r *MemoryRepository) SaveTemplate(_ context.Context, t *Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.Document = append(json.RawMessage(nil), t.Document...)
	if prev, ok := r.templates[t.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	}
	r.templates[t.ID] = cp
	return nil
}

func (r *MemoryRepository) Template(_ context.Context, id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) ListTemplates(_ context.Context, limit int) ([]TemplateSummary, error) {
	r.mu.RLock()
	out := make([]TemplateSummary, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, TemplateSummary{ID: t.ID, Name: t.Name, UpdatedAt: t.UpdatedAt})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) SaveAsset(_ context.Context, a *Asset) error {
	r.mu.Lock()
	r.assets[a.ID] = *a
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Asset(_ context.Context, id string) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}
