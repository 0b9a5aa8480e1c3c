// Package editor owns a banner document during an editing session and is the
// only way to change it. Every mutation keeps the document normalized;
// operations that would break it are ignored and reported as diagnostics.
package editor

import (
	"sync"
	"time"

	"github.com/patrickwarner/consentstudio/internal/ids"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/units"

	"go.uber.org/zap"
)

// Editor is safe for concurrent use.
type Editor struct {
	mu       sync.Mutex
	doc      *models.BannerDocument
	selected string
	canvas   models.ByDevice[units.Size]

	// generation changes whenever the document is replaced.
	generation uint64

	normalizer *normalize.Normalizer
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
	sink       DiagnosticSink
	newID      func() string
	now        func() time.Time
}

// Option configures an Editor.
type Option func(*Editor)

// WithMetrics records diagnostics in m.
func WithMetrics(m observability.MetricsRegistry) Option {
	return func(e *Editor) { e.metrics = m }
}

// WithDiagnosticSink forwards diagnostics to s.
func WithDiagnosticSink(s DiagnosticSink) Option {
	return func(e *Editor) { e.sink = s }
}

// WithNormalizer replaces the normalizer used by Load.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(e *Editor) { e.normalizer = n }
}

// WithIDGenerator overrides component id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Editor) { e.newID = fn }
}

// WithCanvas sets the container size used to convert pixel input on d.
func WithCanvas(d models.Device, size units.Size) Option {
	return func(e *Editor) {
		if size.Width > 0 && size.Height > 0 {
			e.canvas.Set(d, size)
		}
	}
}

// New returns an Editor holding a new default document.
func New(logger *zap.Logger, opts ...Option) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Editor{
		logger:  logger,
		metrics: observability.NewNoOpRegistry(),
		newID:   ids.New,
		now:     time.Now,
		canvas:  normalize.DefaultCanvas,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.normalizer == nil {
		e.normalizer = normalize.New(logger,
			normalize.WithIDGenerator(e.newID),
			normalize.WithCanvas(models.DeviceDesktop, e.canvas.Desktop),
			normalize.WithCanvas(models.DeviceTablet, e.canvas.Tablet),
			normalize.WithCanvas(models.DeviceMobile, e.canvas.Mobile),
		)
	}
	e.doc = e.defaultDocument()
	return e
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	selectFirst bool
}

// WithSelectFirst selects the first top-level component after loading.
func WithSelectFirst() LoadOption {
	return func(o *loadOptions) { o.selectFirst = true }
}

// Load replaces the session document with a normalized copy of doc.
func (e *Editor) Load(doc *models.BannerDocument, opts ...LoadOption) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	normalized := e.normalizer.Normalize(doc)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = normalized
	e.generation++
	e.selected = ""
	if o.selectFirst && len(normalized.Components) > 0 {
		e.selected = normalized.Components[0].ID
	}
	e.logger.Debug("banner loaded",
		zap.String("banner_id", normalized.ID),
		zap.Int("components", len(normalized.Components)))
}

// NewDocument discards the session document and starts a default one.
func (e *Editor) NewDocument() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = e.defaultDocument()
	e.generation++
	e.selected = ""
}

// defaultDocument holds the three mandatory consent buttons.
func (e *Editor) defaultDocument() *models.BannerDocument {
	doc := &models.BannerDocument{Name: normalize.DefaultName, Components: []*models.Component{}}
	for _, d := range models.Devices {
		doc.Layout.Set(d, normalize.DefaultLayout())
	}
	buttons := []struct {
		label, action string
		left          models.Coord
	}{
		{"Accept All", models.ActionAcceptAll, "10%"},
		{"Reject All", models.ActionRejectAll, "35%"},
		{"Preferences", models.ActionShowPreferences, "60%"},
	}
	for _, b := range buttons {
		c := e.newComponent(models.ComponentButton)
		c.Locked = true
		c.Content = models.MultiLang(map[string]string{models.DefaultLanguage: b.label}, true)
		c.Action = &models.Action{Type: b.action}
		for _, d := range models.Devices {
			c.Position.Set(d, &models.Position{Top: "50%", Left: b.left})
		}
		doc.Components = append(doc.Components, c)
	}
	return doc
}

func (e *Editor) newComponent(t models.ComponentType) *models.Component {
	c := &models.Component{
		ID:      e.newID(),
		Type:    t,
		Content: normalize.DefaultContent(t),
		Style:   normalize.DefaultStyles(t),
	}
	for _, d := range models.Devices {
		c.Position.Set(d, normalize.DefaultPosition())
	}
	return c
}

// Snapshot returns a deep copy of the document.
func (e *Editor) Snapshot() *models.BannerDocument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// VersionedSnapshot returns a deep copy of the document together with its
// generation. ApplySaved only merges results for the same generation.
func (e *Editor) VersionedSnapshot() (*models.BannerDocument, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone(), e.generation
}

// Component returns a copy of the component with id.
func (e *Editor) Component(id string) (*models.Component, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.doc.Find(id)
	if c == nil {
		return nil, false
	}
	return c.Clone(), true
}

// SetName renames the banner.
func (e *Editor) SetName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc.Name = name
}

// Select marks id as the selected component. An empty id clears the selection.
func (e *Editor) Select(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" && e.doc.Find(id) == nil {
		e.report(DiagUnknownComponent, "select", id, "")
		return false
	}
	e.selected = id
	return true
}

// Selected returns the id of the selected component, or "".
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// SetCanvas sets the container size used to convert pixel input on d.
func (e *Editor) SetCanvas(d models.Device, size units.Size) bool {
	if size.Width <= 0 || size.Height <= 0 {
		e.mu.Lock()
		e.report(DiagInvalidValue, "set_canvas", "", "canvas must have a positive size")
		e.mu.Unlock()
		return false
	}
	e.mu.Lock()
	e.canvas.Set(d, size)
	e.mu.Unlock()
	return true
}

// Canvas returns the container size used for d.
func (e *Editor) Canvas(d models.Device) units.Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvas.Get(d)
}

// report must be called with e.mu held.
func (e *Editor) report(kind DiagnosticKind, op, componentID, detail string) {
	d := Diagnostic{Kind: kind, Op: op, ComponentID: componentID, Detail: detail, At: e.now()}
	e.logger.Warn("editor operation ignored",
		zap.String("kind", string(kind)),
		zap.String("op", op),
		zap.String("component_id", componentID),
		zap.String("detail", detail))
	e.metrics.IncrementDiagnostics(string(kind))
	if e.sink != nil {
		e.sink.Report(d)
	}
}
