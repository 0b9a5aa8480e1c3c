package normalize

import (
	"encoding/json"
	"testing"

	"github.com/patrickwarner/consentstudio/internal/ids"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	return New(zaptest.NewLogger(t), WithIDGenerator(ids.Sequence("gen")))
}

func assertPercentEverywhere(t *testing.T, components []*models.Component) {
	t.Helper()
	models.Walk(components, func(c *models.Component) bool {
		for _, d := range models.Devices {
			pos := c.Position.Get(d)
			require.NotNil(t, pos, "component %s device %s", c.ID, d)
			assert.True(t, units.IsPercent(string(pos.Top)), "top %q of %s/%s", pos.Top, c.ID, d)
			assert.True(t, units.IsPercent(string(pos.Left)), "left %q of %s/%s", pos.Left, c.ID, d)
		}
		return true
	})
}

func TestNormalizeImageWithoutPositionOrStyle(t *testing.T) {
	n := newTestNormalizer(t)
	doc := n.NormalizeJSON([]byte(`{"components":[{"type":"image","content":"/foo.png"}]}`))

	require.Len(t, doc.Components, 1)
	c := doc.Components[0]
	assert.Equal(t, "gen-1", c.ID)
	assert.Equal(t, models.ContentImageURL, c.Content.Kind)
	assert.Equal(t, "/foo.png", c.Content.Value)

	for _, d := range models.Devices {
		assert.Equal(t, &models.Position{Top: "10%", Left: "10%"}, c.Position.Get(d), string(d))
		assert.NotEmpty(t, c.Style.Get(d), string(d))
	}
	assert.Equal(t, DefaultName, doc.Name)
	assert.Equal(t, DefaultLayout(), doc.Layout.Desktop)
	assert.Equal(t, DefaultLayout(), doc.Layout.Mobile)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := []byte(`{
		"id": 42,
		"name": "Cookie notice",
		"layout": {"desktop": {"type": "modal", "position": "center"}},
		"components": [
			{"id": "title", "type": "text", "content": "We use cookies", "style": {"fontSize": "20px"}},
			{"id": "title", "type": "button", "locked": true, "content": {"text": "OK", "translatable": true},
			 "action": {"type": "accept_all"}, "position": {"desktop": {"top": "72px", "left": 64}}},
			{"type": "container", "children": [
				{"type": "image", "content": "@@asset:01HZX"},
				{"type": "weird", "position": {"top": "5%", "left": "bogus"}}
			]},
			null,
			"not a component"
		]
	}`)

	n := newTestNormalizer(t)
	once := n.NormalizeJSON(raw)
	twice := n.Normalize(once)
	assert.Equal(t, once, twice)

	encoded, err := json.Marshal(once)
	require.NoError(t, err)
	thrice := n.NormalizeJSON(encoded)
	assert.Equal(t, once, thrice)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := &models.BannerDocument{
		Components: []*models.Component{{ID: "a", Type: models.ComponentText, Content: models.PlainText("hi")}},
	}
	_ = newTestNormalizer(t).Normalize(in)

	assert.Empty(t, in.Name)
	assert.Equal(t, models.ContentPlainText, in.Components[0].Content.Kind)
	assert.Nil(t, in.Components[0].Position.Desktop)
}

func TestNormalizePercentageInvariant(t *testing.T) {
	n := newTestNormalizer(t)
	doc := n.NormalizeJSON([]byte(`{"components":[
		{"type":"text","position":{"desktop":{"top":"72px","left":"128"},"mobile":{"top":66.7,"left":"37.5px"}}},
		{"type":"text","position":{"tablet":{"top":"50%","left":"nope"}}},
		{"type":"container","children":[{"type":"text","position":{"desktop":{"top":"1px","left":"2px"}}}]}
	]}`))

	assertPercentEverywhere(t, doc.Components)

	first := doc.Components[0]
	assert.Equal(t, models.Coord("10%"), first.Position.Desktop.Top)
	assert.Equal(t, models.Coord("10%"), first.Position.Desktop.Left)
	assert.Equal(t, models.Coord("10%"), first.Position.Mobile.Top)
	assert.Equal(t, models.Coord("10%"), first.Position.Mobile.Left)
	assert.Equal(t, first.Position.Desktop, first.Position.Tablet, "tablet cloned from converted desktop")
	assert.NotSame(t, first.Position.Desktop, first.Position.Tablet)

	second := doc.Components[1]
	assert.Equal(t, models.Coord("50%"), second.Position.Tablet.Top)
	assert.Equal(t, DefaultCoord, second.Position.Tablet.Left, "unreadable value reset")
	assert.Equal(t, DefaultPosition(), second.Position.Desktop)
}

func TestNormalizeUsesConfiguredCanvas(t *testing.T) {
	n := New(nil, WithCanvas(models.DeviceDesktop, units.Size{Width: 1000, Height: 500}))
	doc := n.NormalizeJSON([]byte(`{"components":[{"type":"text","position":{"desktop":{"top":"100px","left":"100px"}}}]}`))

	pos := doc.Components[0].Position.Desktop
	assert.Equal(t, models.Coord("20%"), pos.Top)
	assert.Equal(t, models.Coord("10%"), pos.Left)
	assert.Equal(t, units.Size{Width: 1000, Height: 500}, n.Canvas(models.DeviceDesktop))
	assert.Equal(t, DefaultCanvas.Mobile, n.Canvas(models.DeviceMobile))
}

func TestNormalizeContent(t *testing.T) {
	n := newTestNormalizer(t)
	doc := n.NormalizeJSON([]byte(`{"components":[
		{"id":"plain","type":"text","content":"Hello"},
		{"id":"legacy","type":"button","content":{"text":"Accept","translatable":false}},
		{"id":"multi","type":"text","content":{"texts":{"en":"Hi","de":"Hallo"},"translatable":true}},
		{"id":"token","type":"image","content":"@@asset:01J0000000000000000000000"},
		{"id":"empty","type":"button"}
	]}`))

	plain := doc.Find("plain").Content
	assert.Equal(t, models.ContentMultiLang, plain.Kind)
	assert.Equal(t, map[string]string{"en": "Hello"}, plain.Texts)
	assert.True(t, plain.Translatable)

	legacy := doc.Find("legacy").Content
	assert.Equal(t, map[string]string{"en": "Accept"}, legacy.Texts)
	assert.False(t, legacy.Translatable)
	require.NotNil(t, legacy.LegacyText)
	assert.Equal(t, "Accept", *legacy.LegacyText)

	multi := doc.Find("multi").Content
	assert.Equal(t, "Hallo", multi.Text("de"))
	assert.Equal(t, "Hi", multi.Text("fr"))

	token := doc.Find("token").Content
	assert.Equal(t, models.ContentImageReference, token.Kind)

	assert.Equal(t, "Button", doc.Find("empty").Content.Text("en"))
}

func TestNormalizeStyles(t *testing.T) {
	n := newTestNormalizer(t)
	doc := n.NormalizeJSON([]byte(`{"components":[
		{"id":"none","type":"button"},
		{"id":"flat","type":"text","style":{"color":"red"}},
		{"id":"mobile-only","type":"text","style":{"mobile":{"color":"blue"}}}
	]}`))

	none := doc.Find("none")
	assert.Equal(t, "16px", none.Style.Desktop["fontSize"])
	assert.Equal(t, "14px", none.Style.Tablet["fontSize"])
	assert.Equal(t, "12px", none.Style.Mobile["fontSize"])

	flat := doc.Find("flat")
	assert.Equal(t, models.Style{"color": "red"}, flat.Style.Desktop)
	assert.Equal(t, models.Style{"color": "red"}, flat.Style.Tablet)
	flat.Style.Tablet["color"] = "green"
	assert.Equal(t, "red", flat.Style.Desktop["color"], "cloned, not shared")

	mobileOnly := doc.Find("mobile-only")
	assert.Equal(t, DefaultStyle(models.ComponentText, models.DeviceDesktop), mobileOnly.Style.Desktop)
	assert.Equal(t, models.Style{"color": "blue"}, mobileOnly.Style.Mobile)
}

func TestNormalizeRepairsIDsAndTypes(t *testing.T) {
	n := newTestNormalizer(t)
	doc := n.NormalizeJSON([]byte(`{"components":[
		{"id":"a","type":"text"},
		{"id":"a","type":"text"},
		{"type":"text","children":[{"id":"a"}]},
		{"id":7,"type":""}
	]}`))

	require.Len(t, doc.Components, 4)
	assert.Equal(t, "a", doc.Components[0].ID)
	assert.Equal(t, "gen-1", doc.Components[1].ID)
	assert.Equal(t, "gen-2", doc.Components[2].ID)
	assert.Equal(t, "gen-3", doc.Components[2].Children[0].ID)
	assert.Equal(t, models.ComponentText, doc.Components[2].Children[0].Type)
	assert.Equal(t, "7", doc.Components[3].ID)
	assert.Equal(t, models.ComponentText, doc.Components[3].Type)
}

func TestNormalizeLayout(t *testing.T) {
	n := newTestNormalizer(t)
	doc := n.NormalizeJSON([]byte(`{"name":"x","layout":{"desktop":{"type":"floating","position":"top"},"mobile":{}}}`))

	assert.Equal(t, "x", doc.Name)
	assert.Equal(t, "floating", doc.Layout.Desktop.Type)
	assert.Equal(t, *doc.Layout.Desktop, *doc.Layout.Tablet)
	assert.Equal(t, *doc.Layout.Desktop, *doc.Layout.Mobile)
	assert.NotSame(t, doc.Layout.Desktop, doc.Layout.Mobile)
	assert.NotNil(t, doc.Components)
}

func TestParseToleratesGarbage(t *testing.T) {
	n := newTestNormalizer(t)

	for _, raw := range []string{``, `[]`, `"banner"`, `{"components": 5}`, `{"layout": "wide"}`} {
		doc := n.NormalizeJSON([]byte(raw))
		require.NotNil(t, doc, raw)
		assert.Equal(t, DefaultName, doc.Name, raw)
		assert.Empty(t, doc.Components, raw)
		assert.NotNil(t, doc.Layout.Tablet, raw)
	}
}
