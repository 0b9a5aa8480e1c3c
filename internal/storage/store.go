// Package storage persists banner templates. TemplateStore is what the save
// orchestrator talks to; Client reaches a remote store over HTTP and Service
// is the store itself, backed by a Repository.
package storage

import (
	"context"
	"errors"

	"github.com/patrickwarner/consentstudio/internal/models"
)

var (
	// ErrNotFound is returned when a template or asset does not exist.
	ErrNotFound = errors.New("template not found")
	// ErrRejected is returned when the store refuses a payload.
	ErrRejected = errors.New("template rejected")
)

// TemplateStore creates, updates and fetches banner templates. Create and
// Update return the document as persisted, with its id and with uploaded
// reference tokens replaced by asset URLs.
type TemplateStore interface {
	Create(ctx context.Context, p Payload) (*models.BannerDocument, error)
	Update(ctx context.Context, id string, p Payload) (*models.BannerDocument, error)
	Fetch(ctx context.Context, id string) (*models.BannerDocument, error)
}
