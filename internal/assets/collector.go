package assets

import (
	"context"

	"github.com/patrickwarner/consentstudio/internal/models"

	"go.uber.org/zap"
)

// StyleTempFileKey is the transient style key under which a capture flow may
// park a binary handle for one device.
const StyleTempFileKey = "_tempFile"

// Collector gathers the binaries behind every reference token of a document.
type Collector struct {
	Registry Registry
	Logger   *zap.Logger
}

// NewCollector returns a Collector resolving tokens against reg.
func NewCollector(reg Registry, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Registry: reg, Logger: logger}
}

// Collect walks the image components of doc and returns the binary for each
// reference token found. A token is resolved from the component's TempFile
// first, then from a _tempFile style entry, then from the registry. Tokens
// that cannot be resolved are logged and left out.
func (c *Collector) Collect(ctx context.Context, doc *models.BannerDocument) map[string]models.BinaryHandle {
	out := make(map[string]models.BinaryHandle)
	if doc == nil {
		return out
	}
	models.Walk(doc.Components, func(comp *models.Component) bool {
		if comp.Type != models.ComponentImage || comp.Content.Kind != models.ContentImageReference {
			return true
		}
		token := comp.Content.Value
		if _, done := out[token]; done {
			return true
		}
		if h, ok := c.resolve(ctx, comp, token); ok {
			out[token] = SniffMimeType(h)
		} else {
			c.Logger.Warn("unresolved asset reference skipped",
				zap.String("component_id", comp.ID),
				zap.String("token", token))
		}
		return true
	})
	return out
}

func (c *Collector) resolve(ctx context.Context, comp *models.Component, token string) (models.BinaryHandle, bool) {
	if comp.TempFile != nil {
		return *comp.TempFile, true
	}
	for _, d := range models.Devices {
		if h, ok := styleTempFile(comp.Style.Get(d)); ok {
			return h, true
		}
	}
	if c.Registry == nil {
		return models.BinaryHandle{}, false
	}
	h, ok, err := c.Registry.Resolve(ctx, token)
	if err != nil {
		c.Logger.Error("asset registry lookup failed", zap.String("token", token), zap.Error(err))
		return models.BinaryHandle{}, false
	}
	return h, ok
}

func styleTempFile(s models.Style) (models.BinaryHandle, bool) {
	switch v := s[StyleTempFileKey].(type) {
	case *models.BinaryHandle:
		if v != nil {
			return *v, true
		}
	case models.BinaryHandle:
		return v, true
	}
	return models.BinaryHandle{}, false
}
