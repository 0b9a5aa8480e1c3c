package assets

import (
	"context"
	"testing"
	"time"

	"github.com/patrickwarner/consentstudio/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// setupTestRedis spins up an in-memory Redis for the registry.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisRegistry) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, NewRedisRegistry(client, time.Hour)
}

func exerciseRegistry(t *testing.T, reg Registry) {
	ctx := context.Background()
	h := models.BinaryHandle{Name: "logo.png", Size: int64(len(pngHeader)), MimeType: "image/png", Data: pngHeader}

	token, err := AttachNew(ctx, reg, h)
	require.NoError(t, err)
	assert.True(t, models.IsReferenceToken(token))

	got, ok, err := reg.Resolve(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h, got)

	replacement := models.BinaryHandle{Name: "other.png", Size: 1, MimeType: "image/png", Data: []byte{1}}
	require.NoError(t, reg.Attach(ctx, token, replacement))
	got, _, _ = reg.Resolve(ctx, token)
	assert.Equal(t, "other.png", got.Name)

	second, err := AttachNew(ctx, reg, h)
	require.NoError(t, err)
	n, err := reg.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, reg.Remove(ctx, token, "@@asset:unknown"))
	_, ok, err = reg.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
	n, _ = reg.Len(ctx)
	assert.Equal(t, 1, n)

	_, ok, _ = reg.Resolve(ctx, second)
	assert.True(t, ok)

	assert.ErrorIs(t, reg.Attach(ctx, "https://cdn/logo.png", h), ErrInvalidToken)
}

func TestMemoryRegistry(t *testing.T) {
	exerciseRegistry(t, NewMemoryRegistry())
}

func TestRedisRegistry(t *testing.T) {
	s, reg := setupTestRedis(t)
	exerciseRegistry(t, reg)

	keys := s.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Hour, s.TTL(keys[0]))
}

func TestRedisRegistryWithoutTTL(t *testing.T) {
	s, _ := setupTestRedis(t)
	reg := NewRedisRegistry(redis.NewClient(&redis.Options{Addr: s.Addr()}), 0)

	_, err := AttachNew(context.Background(), reg, models.BinaryHandle{Name: "a.png", Data: pngHeader})
	require.NoError(t, err)
	keys := s.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Duration(0), s.TTL(keys[0]))
}

func TestFileNameRoundTrip(t *testing.T) {
	token := NewToken()
	name := FileNameFor(token, "C:\\Users\\me\\my logo.png")
	assert.Equal(t, TokenID(token)+"__my logo.png", name)

	got, original, ok := TokenFromFileName(name)
	require.True(t, ok)
	assert.Equal(t, token, got)
	assert.Equal(t, "my logo.png", original)

	_, _, ok = TokenFromFileName("plain.png")
	assert.False(t, ok)

	assert.Equal(t, TokenID(token)+"__image", FileNameFor(token, ""))
}

func TestSniffMimeType(t *testing.T) {
	h := SniffMimeType(models.BinaryHandle{Name: "paste", Data: pngHeader})
	assert.Equal(t, "image/png", h.MimeType)
	assert.Equal(t, int64(len(pngHeader)), h.Size)

	h = SniffMimeType(models.BinaryHandle{Name: "x", MimeType: "image/webp", Data: pngHeader})
	assert.Equal(t, "image/webp", h.MimeType, "declared type wins")
}

func TestCollect(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	inRegistry, err := AttachNew(ctx, reg, models.BinaryHandle{Name: "reg.png", MimeType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	tempFileToken := NewToken()
	styleToken := NewToken()
	missing := NewToken()

	doc := &models.BannerDocument{Components: []*models.Component{
		{ID: "a", Type: models.ComponentImage, Content: models.ImageReference(tempFileToken),
			TempFile: &models.BinaryHandle{Name: "temp.png", MimeType: "image/png", Data: pngHeader}},
		{ID: "b", Type: models.ComponentContainer, Children: []*models.Component{
			{ID: "c", Type: models.ComponentImage, Content: models.ImageReference(inRegistry)},
		}},
		{ID: "d", Type: models.ComponentImage, Content: models.ImageReference(styleToken),
			Style: models.ByDevice[models.Style]{Mobile: models.Style{StyleTempFileKey: &models.BinaryHandle{Name: "style.png", Data: pngHeader}}}},
		{ID: "e", Type: models.ComponentImage, Content: models.ImageReference(missing)},
		{ID: "f", Type: models.ComponentImage, Content: models.ImageURL("/uploaded.png")},
		{ID: "g", Type: models.ComponentText, Content: models.PlainText(inRegistry)},
	}}

	got := NewCollector(reg, zaptest.NewLogger(t)).Collect(ctx, doc)

	require.Len(t, got, 3)
	assert.Equal(t, "temp.png", got[tempFileToken].Name)
	assert.Equal(t, "reg.png", got[inRegistry].Name)
	assert.Equal(t, "style.png", got[styleToken].Name)
	assert.Equal(t, "image/png", got[styleToken].MimeType)
	assert.NotContains(t, got, missing)
}
