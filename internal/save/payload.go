package save

import (
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/storage"
)

// BuildPayload strips editor-only state from a copy of doc and encodes it.
// With pending images the payload is multipart, otherwise plain JSON.
func BuildPayload(doc *models.BannerDocument, pending map[string]models.BinaryHandle) (storage.Payload, error) {
	clean := doc.Clone()
	clean.StripTransient()
	if len(pending) == 0 {
		return storage.JSONPayload(clean)
	}
	return storage.MultipartPayload(clean, storage.UploadsFrom(pending))
}
