package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/ids"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/storage"
)

func newTestTools(storeURL string) *BannerTools {
	logger := zap.NewNop()
	return &BannerTools{
		normalizer: normalize.New(logger, normalize.WithIDGenerator(ids.Sequence("gen"))),
		store:      storage.NewClient(storeURL, 5*time.Second, logger, observability.NewNoOpRegistry()),
		logger:     logger,
	}
}

func resultDocument(t *testing.T, res *mcp.CallToolResult) *models.BannerDocument {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var doc models.BannerDocument
	require.NoError(t, json.Unmarshal([]byte(text.Text), &doc))
	return &doc
}

func TestNormalizeBannerAcceptsObjectAndString(t *testing.T) {
	tools := newTestTools("http://unused.test")
	raw := `{"name":"Cookies","components":[{"type":"text","content":"Hello"}]}`

	for name, input := range map[string]json.RawMessage{
		"object": json.RawMessage(raw),
		"string": mustMarshal(t, raw),
	} {
		t.Run(name, func(t *testing.T) {
			res, _, err := tools.NormalizeBanner(context.Background(), nil, NormalizeBannerInput{Banner: input})
			require.NoError(t, err)
			doc := resultDocument(t, res)
			assert.Equal(t, "Cookies", doc.Name)
			require.Len(t, doc.Components, 1)
			assert.NotEmpty(t, doc.Components[0].ID)
			assert.Equal(t, "Hello", doc.Components[0].Content.Text(""))
			for _, d := range models.Devices {
				assert.NotNil(t, doc.Components[0].Position.Get(d), string(d))
			}
		})
	}
}

func TestNormalizeBannerRepairsGarbage(t *testing.T) {
	tools := newTestTools("http://unused.test")
	res, _, err := tools.NormalizeBanner(context.Background(), nil, NormalizeBannerInput{Banner: json.RawMessage(`[1,2,3]`)})
	require.NoError(t, err)
	doc := resultDocument(t, res)
	assert.Equal(t, normalize.DefaultName, doc.Name)
	assert.Empty(t, doc.Components)
}

func TestPositionByCode(t *testing.T) {
	tools := newTestTools("http://unused.test")
	cases := []struct {
		code      string
		top, left string
	}{
		{"tl", "0%", "0%"},
		{"cc", "40%", "45%"},
		{"br", "80%", "90%"},
	}
	for _, tc := range cases {
		_, out, err := tools.PositionByCode(context.Background(), nil, PositionByCodeInput{
			Code:          tc.code,
			WidthPercent:  10,
			HeightPercent: 20,
		})
		require.NoError(t, err, tc.code)
		assert.Equal(t, PositionByCodeOutput{Top: tc.top, Left: tc.left}, out, tc.code)
	}

	_, _, err := tools.PositionByCode(context.Background(), nil, PositionByCodeInput{Code: "xx"})
	assert.Error(t, err)
}

func TestFetchBanner(t *testing.T) {
	stored := &models.BannerDocument{ID: "t1", Name: "Stored banner"}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/templates/t1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stored)
	}))
	defer ts.Close()

	tools := newTestTools(ts.URL)

	res, _, err := tools.FetchBanner(context.Background(), nil, FetchBannerInput{ID: "t1"})
	require.NoError(t, err)
	doc := resultDocument(t, res)
	assert.Equal(t, "t1", doc.ID)
	assert.Equal(t, "Stored banner", doc.Name)

	_, _, err = tools.FetchBanner(context.Background(), nil, FetchBannerInput{ID: "missing"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, _, err = tools.FetchBanner(context.Background(), nil, FetchBannerInput{})
	assert.Error(t, err)
}

func TestNewMCPServerRegistersTools(t *testing.T) {
	assert.NotNil(t, newMCPServer(newTestTools("http://unused.test")))
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
