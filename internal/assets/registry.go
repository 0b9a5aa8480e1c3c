// Package assets tracks binaries that have been attached to a banner but not
// uploaded yet. Each binary is addressed by a reference token that stands in
// for the image URL until the banner is saved.
package assets

import (
	"context"
	"errors"
	"sync"

	"github.com/patrickwarner/consentstudio/internal/models"
)

// ErrInvalidToken is returned when a token does not carry the reserved prefix.
var ErrInvalidToken = errors.New("invalid asset reference token")

// Registry maps reference tokens to pending binaries. Entries stay until they
// are removed explicitly.
type Registry interface {
	Attach(ctx context.Context, token string, h models.BinaryHandle) error
	Resolve(ctx context.Context, token string) (models.BinaryHandle, bool, error)
	Remove(ctx context.Context, tokens ...string) error
	Len(ctx context.Context) (int, error)
}

// MemoryRegistry is an in-process Registry safe for concurrent use.
type MemoryRegistry struct {
	mu      sync.RWMutex
	handles map[string]models.BinaryHandle
}

// NewMemoryRegistry returns an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{handles: make(map[string]models.BinaryHandle)}
}

// Attach stores h under token, replacing any previous binary.
func (r *MemoryRegistry) Attach(_ context.Context, token string, h models.BinaryHandle) error {
	if !models.IsReferenceToken(token) {
		return ErrInvalidToken
	}
	r.mu.Lock()
	r.handles[token] = h
	r.mu.Unlock()
	return nil
}

// Resolve returns the binary stored under token.
func (r *MemoryRegistry) Resolve(_ context.Context, token string) (models.BinaryHandle, bool, error) {
	r.mu.RLock()
	h, ok := r.handles[token]
	r.mu.RUnlock()
	return h, ok, nil
}

// Remove deletes the given tokens. Unknown tokens are ignored.
func (r *MemoryRegistry) Remove(_ context.Context, tokens ...string) error {
	r.mu.Lock()
	for _, t := range tokens {
		delete(r.handles, t)
	}
	r.mu.Unlock()
	return nil
}

// Len returns the number of pending binaries.
func (r *MemoryRegistry) Len(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles), nil
}
