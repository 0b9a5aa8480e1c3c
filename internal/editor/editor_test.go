package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/patrickwarner/consentstudio/internal/ids"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEditor(t *testing.T, opts ...Option) (*Editor, *DiagnosticLog, *observability.MockMetricsRegistry) {
	t.Helper()
	diags := NewDiagnosticLog(10)
	metrics := observability.NewMockMetricsRegistry()
	base := []Option{
		WithIDGenerator(ids.Sequence("c")),
		WithDiagnosticSink(diags),
		WithMetrics(metrics),
		WithCanvas(models.DeviceDesktop, units.Size{Width: 1000, Height: 500}),
	}
	return New(zaptest.NewLogger(t), append(base, opts...)...), diags, metrics
}

func TestNewDocumentHasLockedConsentButtons(t *testing.T) {
	e, _, _ := newTestEditor(t)
	doc := e.Snapshot()

	require.Len(t, doc.Components, 3)
	actions := []string{}
	for _, c := range doc.Components {
		assert.True(t, c.Locked)
		assert.Equal(t, models.ComponentButton, c.Type)
		require.NotNil(t, c.Action)
		actions = append(actions, c.Action.Type)
	}
	assert.Equal(t, []string{models.ActionAcceptAll, models.ActionRejectAll, models.ActionShowPreferences}, actions)
	assert.Equal(t, normalize.DefaultName, doc.Name)
	assert.Empty(t, doc.ID)
}

func TestDeleteLockedComponentIsNoop(t *testing.T) {
	e, diags, metrics := newTestEditor(t)
	before := e.Snapshot()

	assert.False(t, e.DeleteComponent(before.Components[0].ID))
	assert.Equal(t, before, e.Snapshot())

	entries := diags.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, DiagLockedComponent, entries[0].Kind)
	assert.Equal(t, "delete_component", entries[0].Op)
	assert.Equal(t, 1, metrics.DiagnosticCount(string(DiagLockedComponent)))
}

func TestUnknownIDsAreReported(t *testing.T) {
	e, diags, _ := newTestEditor(t)
	before := e.Snapshot()

	assert.False(t, e.DeleteComponent("nope"))
	assert.False(t, e.UpdateContent("nope", models.PlainText("x")))
	assert.False(t, e.UpdateStyleForDevice("nope", models.DeviceMobile, models.Style{"color": "red"}))
	assert.False(t, e.UpdatePositionForDevice("nope", models.DeviceMobile, "1%", "1%"))
	assert.Equal(t, "", e.DuplicateComponent("nope"))
	assert.False(t, e.Select("nope"))

	assert.Equal(t, before, e.Snapshot())
	for _, d := range diags.Entries() {
		assert.Equal(t, DiagUnknownComponent, d.Kind)
		assert.Equal(t, "nope", d.ComponentID)
	}
	assert.Len(t, diags.Entries(), 6)
}

func TestAddAndDeleteComponent(t *testing.T) {
	e, _, _ := newTestEditor(t)

	id := e.AddComponent(models.ComponentImage, AtPosition("100px", "25%"))
	require.NotEmpty(t, id)
	c, ok := e.Component(id)
	require.True(t, ok)
	assert.Equal(t, models.ContentImageURL, c.Content.Kind)
	assert.Equal(t, &models.Position{Top: "20%", Left: "25%"}, c.Position.Desktop)
	for _, d := range models.Devices {
		assert.True(t, units.IsPercent(string(c.Position.Get(d).Top)), d)
		assert.NotEmpty(t, c.Style.Get(d), d)
	}

	require.True(t, e.Select(id))
	assert.True(t, e.DeleteComponent(id))
	assert.Equal(t, "", e.Selected())
	_, ok = e.Component(id)
	assert.False(t, ok)

	assert.Equal(t, "", e.AddComponent("video"))
	assert.Equal(t, "", e.AddComponent(models.ComponentText, AtPosition("far", "away")))
}

func TestAddComponentInContainer(t *testing.T) {
	e, _, _ := newTestEditor(t)
	box := e.AddComponent(models.ComponentContainer)
	text := e.AddComponent(models.ComponentText,
		InContainer(box),
		WithContent(models.PlainText("Hello")),
		WithStyle(models.Style{"color": "#000"}))
	require.NotEmpty(t, text)

	doc := e.Snapshot()
	parent := doc.Find(box)
	require.Len(t, parent.Children, 1)
	child := parent.Children[0]
	assert.Equal(t, text, child.ID)
	assert.Equal(t, map[string]string{"en": "Hello"}, child.Content.Texts)
	assert.Equal(t, "#000", child.Style.Mobile["color"])
	assert.Equal(t, "12px", child.Style.Mobile["fontSize"])

	assert.Equal(t, "", e.AddComponent(models.ComponentText, InContainer(text)), "text is not a container")
	assert.True(t, e.DeleteComponent(box))
	assert.Nil(t, e.Snapshot().Find(text))
}

func TestUpdateContentPreservesTranslations(t *testing.T) {
	e, _, _ := newTestEditor(t)
	legacy := "Old"
	e.Load(&models.BannerDocument{Name: "n", Components: []*models.Component{
		{ID: "t", Type: models.ComponentText, Content: models.Content{
			Kind: models.ContentMultiLang, Texts: map[string]string{"en": "Hi", "de": "Hallo"}, Translatable: true, LegacyText: &legacy,
		}},
		{ID: "img", Type: models.ComponentImage, Content: models.ImageURL("/a.png")},
	}})

	require.True(t, e.UpdateContent("t", models.PlainText("Hello")))
	c, _ := e.Component("t")
	assert.Equal(t, map[string]string{"en": "Hello", "de": "Hallo"}, c.Content.Texts)
	require.NotNil(t, c.Content.LegacyText)
	assert.Equal(t, "Old", *c.Content.LegacyText)

	require.True(t, e.UpdateContent("t", models.MultiLang(map[string]string{"fr": "Salut"}, false)))
	c, _ = e.Component("t")
	assert.Equal(t, map[string]string{"fr": "Salut"}, c.Content.Texts)
	assert.Nil(t, c.Content.LegacyText)

	require.True(t, e.UpdateContent("img", models.PlainText("/b.png")))
	c, _ = e.Component("img")
	assert.Equal(t, models.ImageURL("/b.png"), c.Content)

	assert.False(t, e.UpdateContent("img", models.Content{}))
}

func TestUpdateContentTreatsTokenLikeTextAsText(t *testing.T) {
	e, _, _ := newTestEditor(t)
	e.Load(&models.BannerDocument{Name: "n", Components: []*models.Component{
		{ID: "t", Type: models.ComponentText, Content: models.MultiLang(map[string]string{"en": "Hi", "de": "Hallo"}, true)},
		{ID: "b", Type: models.ComponentButton, Content: models.PlainText("OK")},
	}})

	require.True(t, e.UpdateContent("t", models.StringContent("@@asset:literal")))
	c, _ := e.Component("t")
	assert.Equal(t, models.ContentMultiLang, c.Content.Kind)
	assert.Equal(t, map[string]string{"en": "@@asset:literal", "de": "Hallo"}, c.Content.Texts)

	require.True(t, e.UpdateContent("b", models.StringContent("@@asset:literal")))
	c, _ = e.Component("b")
	assert.Equal(t, models.PlainText("@@asset:literal"), c.Content)
}

func TestUpdateStyleOnlyTouchesOneDevice(t *testing.T) {
	e, _, _ := newTestEditor(t)
	id := e.AddComponent(models.ComponentText)
	before, _ := e.Component(id)

	require.True(t, e.UpdateStyleForDevice(id, models.DeviceMobile, models.Style{"fontSize": "10px", "padding": nil}))
	after, _ := e.Component(id)

	assert.Equal(t, before.Style.Desktop, after.Style.Desktop)
	assert.Equal(t, before.Style.Tablet, after.Style.Tablet)
	assert.Equal(t, "10px", after.Style.Mobile["fontSize"])
	assert.NotContains(t, after.Style.Mobile, "padding")
	assert.Equal(t, before.Style.Mobile["color"], after.Style.Mobile["color"])
}

func TestUpdatePositionForDevice(t *testing.T) {
	e, diags, _ := newTestEditor(t)
	id := e.AddComponent(models.ComponentText)

	require.True(t, e.UpdatePositionForDevice(id, models.DeviceDesktop, "250px", "100"))
	c, _ := e.Component(id)
	assert.Equal(t, &models.Position{Top: "50%", Left: "10%"}, c.Position.Desktop)
	assert.Equal(t, normalize.DefaultPosition(), c.Position.Mobile)

	assert.False(t, e.UpdatePositionForDevice(id, models.DeviceDesktop, "12em", "1%"))
	c, _ = e.Component(id)
	assert.Equal(t, models.Coord("50%"), c.Position.Desktop.Top)
	assert.Equal(t, DiagInvalidValue, diags.Entries()[0].Kind)
}

func TestUpdateLayoutForDevice(t *testing.T) {
	e, _, _ := newTestEditor(t)

	assert.True(t, e.UpdateLayoutForDevice(models.DeviceMobile, "type", models.LayoutModal))
	assert.True(t, e.UpdateLayoutForDevice(models.DeviceMobile, "backgroundColor", "#000"))
	assert.False(t, e.UpdateLayoutForDevice(models.DeviceMobile, "type", "popover"))
	assert.False(t, e.UpdateLayoutForDevice(models.DeviceMobile, "zIndex", "3"))

	doc := e.Snapshot()
	assert.Equal(t, models.LayoutModal, doc.Layout.Mobile.Type)
	assert.Equal(t, "#000", doc.Layout.Mobile.BackgroundColor)
	assert.Equal(t, models.LayoutBanner, doc.Layout.Desktop.Type)
}

func TestDuplicateAndReorder(t *testing.T) {
	e, _, _ := newTestEditor(t)
	doc := e.Snapshot()
	locked := doc.Components[1].ID

	dup := e.DuplicateComponent(locked)
	require.NotEmpty(t, dup)

	doc = e.Snapshot()
	require.Len(t, doc.Components, 4)
	assert.Equal(t, dup, doc.Components[2].ID, "copy follows the original")
	assert.False(t, doc.Components[2].Locked)
	assert.Equal(t, doc.Components[1].Content, doc.Components[2].Content)
	assert.True(t, e.DeleteComponent(dup))

	first := doc.Components[0].ID
	require.True(t, e.ReorderComponent(first, 99))
	doc = e.Snapshot()
	assert.Equal(t, first, doc.Components[len(doc.Components)-1].ID)

	require.True(t, e.ReorderComponent(first, -1))
	assert.Equal(t, first, e.Snapshot().Components[0].ID)
}

func TestLoadNormalizesAndSelectsFirst(t *testing.T) {
	e, _, _ := newTestEditor(t)
	e.Load(&models.BannerDocument{Components: []*models.Component{
		{Type: models.ComponentImage, Content: models.PlainText("/foo.png")},
	}}, WithSelectFirst())

	doc := e.Snapshot()
	require.Len(t, doc.Components, 1)
	assert.Equal(t, doc.Components[0].ID, e.Selected())
	assert.Equal(t, models.ImageURL("/foo.png"), doc.Components[0].Content)
	assert.NotNil(t, doc.Layout.Tablet)

	e.NewDocument()
	assert.Len(t, e.Snapshot().Components, 3)
	assert.Equal(t, "", e.Selected())
}

func TestSnapshotIsIsolated(t *testing.T) {
	e, _, _ := newTestEditor(t)
	snap := e.Snapshot()
	snap.Components[0].Style.Desktop["color"] = "hotpink"
	snap.Name = "changed"

	again := e.Snapshot()
	assert.NotEqual(t, "hotpink", again.Components[0].Style.Desktop["color"])
	assert.Equal(t, normalize.DefaultName, again.Name)
}

func TestQuickPositionAndMove(t *testing.T) {
	e, diags, _ := newTestEditor(t)
	id := e.AddComponent(models.ComponentButton)
	m := units.StaticMeasurer{
		id: {Component: units.Box{Width: 300, Height: 100}, Container: units.Box{Width: 1000, Height: 500}},
	}
	ctx := context.Background()

	require.True(t, e.ApplyQuickPosition(ctx, id, models.DeviceTablet, units.CenterCenter, m))
	c, _ := e.Component(id)
	assert.Equal(t, &models.Position{Top: "40%", Left: "35%"}, c.Position.Tablet)
	assert.Equal(t, normalize.DefaultPosition(), c.Position.Desktop)

	require.True(t, e.MoveToPixels(ctx, id, models.DeviceDesktop, 450, -20, m))
	c, _ = e.Component(id)
	assert.Equal(t, &models.Position{Top: "80%", Left: "0%"}, c.Position.Desktop)

	require.True(t, e.AlignComponent(ctx, id, models.DeviceDesktop, units.AlignRight, m))
	c, _ = e.Component(id)
	assert.Equal(t, &models.Position{Top: "80%", Left: "70%"}, c.Position.Desktop)

	before := e.Snapshot()
	assert.False(t, e.ApplyQuickPosition(ctx, id, models.DeviceDesktop, "zz", m))
	assert.False(t, e.ApplyQuickPosition(ctx, "other", models.DeviceDesktop, units.TopLeft, m))
	assert.False(t, e.MoveToPixels(ctx, id, models.DeviceDesktop, 1, 1, nil))
	assert.Equal(t, before, e.Snapshot())

	kinds := []DiagnosticKind{}
	for _, d := range diags.Entries() {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []DiagnosticKind{DiagInvalidValue, DiagUnknownComponent, DiagNotMeasurable}, kinds)
}

type failingMeasurer struct{}

func (failingMeasurer) Measure(context.Context, string) (units.Measurement, error) {
	return units.Measurement{}, errors.New("view not mounted")
}

func TestMeasurementFailureLeavesDocument(t *testing.T) {
	e, diags, _ := newTestEditor(t)
	id := e.AddComponent(models.ComponentText)
	before := e.Snapshot()

	assert.False(t, e.ApplyQuickPosition(context.Background(), id, models.DeviceDesktop, units.TopRight, failingMeasurer{}))
	assert.Equal(t, before, e.Snapshot())
	require.Len(t, diags.Entries(), 1)
	assert.Equal(t, DiagNotMeasurable, diags.Entries()[0].Kind)
}

func TestApplySavedRewritesUploadedTokens(t *testing.T) {
	e, _, _ := newTestEditor(t)
	img := e.AddComponent(models.ComponentImage)
	pending := e.AddComponent(models.ComponentImage)
	handle := &models.BinaryHandle{Name: "logo.png"}
	require.True(t, e.AttachImage(img, "@@asset:one", handle, "blob:1"))
	require.True(t, e.AttachImage(pending, "@@asset:two", handle, "blob:2"))

	_, gen := e.VersionedSnapshot()
	require.True(t, e.ApplySaved(gen, "banner-1", map[string]string{"@@asset:one": "https://cdn/one.png"}))

	doc := e.Snapshot()
	assert.Equal(t, "banner-1", doc.ID)
	uploaded := doc.Find(img)
	assert.Equal(t, models.ImageURL("https://cdn/one.png"), uploaded.Content)
	assert.Nil(t, uploaded.TempFile)
	assert.Empty(t, uploaded.PreviewURL)
	assert.Equal(t, models.ImageReference("@@asset:two"), doc.Find(pending).Content)

	assert.False(t, e.AttachImage(doc.Components[0].ID, "@@asset:x", nil, ""), "buttons take no images")
}

func TestApplySavedIgnoresReplacedDocument(t *testing.T) {
	e, _, _ := newTestEditor(t)
	img := e.AddComponent(models.ComponentImage)
	require.True(t, e.AttachImage(img, "@@asset:one", nil, ""))
	_, gen := e.VersionedSnapshot()

	e.NewDocument()
	assert.False(t, e.ApplySaved(gen, "banner-1", map[string]string{"@@asset:one": "https://cdn/one.png"}))
	assert.Empty(t, e.Snapshot().ID)

	_, gen = e.VersionedSnapshot()
	e.Load(&models.BannerDocument{Name: "other"})
	assert.False(t, e.ApplySaved(gen, "banner-1", nil))
	assert.Empty(t, e.Snapshot().ID)

	_, gen = e.VersionedSnapshot()
	assert.True(t, e.ApplySaved(gen, "banner-2", nil))
	assert.Equal(t, "banner-2", e.Snapshot().ID)
}

func TestResolveFallsBackToDesktop(t *testing.T) {
	c := &models.Component{
		Style:    models.ByDevice[models.Style]{Desktop: models.Style{"color": "red"}},
		Position: models.ByDevice[*models.Position]{Desktop: &models.Position{Top: "1%", Left: "2%"}},
	}
	assert.Equal(t, models.Style{"color": "red"}, ResolveStyle(c, models.DeviceMobile))
	assert.Equal(t, c.Position.Desktop, ResolvePosition(c, models.DeviceTablet))
	assert.Equal(t, &models.Position{Top: "10%", Left: "10%"}, ResolvePosition(&models.Component{}, models.DeviceMobile))
}

func TestSetCanvas(t *testing.T) {
	e, _, _ := newTestEditor(t)
	assert.False(t, e.SetCanvas(models.DeviceMobile, units.Size{}))
	require.True(t, e.SetCanvas(models.DeviceMobile, units.Size{Width: 400, Height: 800}))

	id := e.AddComponent(models.ComponentText)
	require.True(t, e.UpdatePositionForDevice(id, models.DeviceMobile, "80px", "40px"))
	c, _ := e.Component(id)
	assert.Equal(t, &models.Position{Top: "10%", Left: "10%"}, c.Position.Mobile)
}
