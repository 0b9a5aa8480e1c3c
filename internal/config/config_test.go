package config

import (
	"testing"
	"time"

	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/units"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, RegistryMemory, cfg.AssetRegistry)
	assert.Zero(t, cfg.AssetTTL)
	assert.Equal(t, "http://localhost:8787", cfg.PublicBaseURL)
	assert.Equal(t, normalize.DefaultCanvas, cfg.Canvas)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 20, cfg.RateLimitCapacity)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ASSET_REGISTRY", "Redis")
	t.Setenv("ASSET_TTL", "3600")
	t.Setenv("TEMPLATE_STORE_TIMEOUT", "2s")
	t.Setenv("CANVAS_MOBILE", "390x844")
	t.Setenv("CANVAS_TABLET", "wide")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_SAMPLE_RATE", "0.25")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, RegistryRedis, cfg.AssetRegistry)
	assert.Equal(t, time.Hour, cfg.AssetTTL)
	assert.Equal(t, 2*time.Second, cfg.TemplateStoreTimeout)
	assert.Equal(t, units.Size{Width: 390, Height: 844}, cfg.Canvas.Mobile)
	assert.Equal(t, normalize.DefaultCanvas.Tablet, cfg.Canvas.Tablet)
	assert.True(t, cfg.TracingEnabled)
	assert.InDelta(t, 0.25, cfg.TracingSampleRate, 1e-9)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestEnvSizeRejectsNonPositive(t *testing.T) {
	def := units.Size{Width: 1, Height: 1}
	t.Setenv("SIZE", "0x10")
	assert.Equal(t, def, envSize("SIZE", def))
	t.Setenv("SIZE", " 800 X 600 ")
	assert.Equal(t, units.Size{Width: 800, Height: 600}, envSize("SIZE", def))
}
