package assets

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/patrickwarner/consentstudio/internal/ids"
	"github.com/patrickwarner/consentstudio/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// fileNameSep separates the token id from the original file name in
// multipart uploads.
const fileNameSep = "__"

// NewToken returns a fresh reference token.
func NewToken() string {
	return models.ReferencePrefix + ids.New()
}

// TokenID strips the reserved prefix from token.
func TokenID(token string) string {
	return strings.TrimPrefix(token, models.ReferencePrefix)
}

// FileNameFor embeds token into the upload file name so the receiving side
// can tell which reference each binary resolves.
func FileNameFor(token, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return TokenID(token) + fileNameSep + name
}

// TokenFromFileName reverses FileNameFor. ok is false when the name does not
// carry a token.
func TokenFromFileName(fileName string) (token, name string, ok bool) {
	id, name, found := strings.Cut(fileName, fileNameSep)
	if !found || id == "" {
		return "", fileName, false
	}
	return models.ReferencePrefix + id, name, true
}

// SniffMimeType fills in a missing or generic mime type from the binary
// content.
func SniffMimeType(h models.BinaryHandle) models.BinaryHandle {
	if (h.MimeType == "" || h.MimeType == "application/octet-stream") && len(h.Data) > 0 {
		h.MimeType = mimetype.Detect(h.Data).String()
	}
	if h.Size == 0 {
		h.Size = int64(len(h.Data))
	}
	return h
}

// AttachNew stores h under a fresh token and returns the token.
func AttachNew(ctx context.Context, reg Registry, h models.BinaryHandle) (string, error) {
	token := NewToken()
	if err := reg.Attach(ctx, token, SniffMimeType(h)); err != nil {
		return "", fmt.Errorf("attach asset %s: %w", h.Name, err)
	}
	return token, nil
}
