// Package normalize repairs partial or legacy banner documents into documents
// that satisfy every data model invariant. It never fails: malformed parts are
// replaced with defaults and the repairs are logged.
package normalize

import (
	"github.com/patrickwarner/consentstudio/internal/ids"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/units"

	"go.uber.org/zap"
)

// maxDepth bounds container nesting accepted from stored documents.
const maxDepth = 32

// Normalizer turns raw banner documents into normalized ones.
type Normalizer struct {
	logger *zap.Logger
	canvas models.ByDevice[units.Size]
	newID  func() string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCanvas sets the reference container size of a device.
func WithCanvas(d models.Device, size units.Size) Option {
	return func(n *Normalizer) {
		if size.Width > 0 && size.Height > 0 {
			n.canvas.Set(d, size)
		}
	}
}

// WithIDGenerator overrides component id generation.
func WithIDGenerator(fn func() string) Option {
	return func(n *Normalizer) { n.newID = fn }
}

// New returns a Normalizer. A nil logger disables logging.
func New(logger *zap.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Normalizer{logger: logger, canvas: DefaultCanvas, newID: ids.New}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Canvas returns the reference container size of d.
func (n *Normalizer) Canvas(d models.Device) units.Size {
	return n.canvas.Get(d)
}

// NormalizeJSON leniently decodes raw and normalizes the result.
func (n *Normalizer) NormalizeJSON(raw []byte) *models.BannerDocument {
	return n.Normalize(n.Parse(raw))
}

type pass struct {
	*Normalizer
	seen    map[string]bool
	repairs int
}

func (p *pass) repair(msg string, fields ...zap.Field) {
	p.repairs++
	p.logger.Debug(msg, fields...)
}

// Normalize returns a normalized deep copy of doc. The input is not modified.
func (n *Normalizer) Normalize(doc *models.BannerDocument) *models.BannerDocument {
	p := &pass{Normalizer: n, seen: make(map[string]bool)}

	var out *models.BannerDocument
	if doc == nil {
		p.repair("nil document replaced")
		out = &models.BannerDocument{}
	} else {
		out = doc.Clone()
	}

	if out.Name == "" {
		out.Name = DefaultName
		p.repair("default name assigned")
	}

	p.layout(out)

	components := make([]*models.Component, 0, len(out.Components))
	for _, c := range out.Components {
		if c == nil {
			p.repair("nil component dropped")
			continue
		}
		p.component(c, 0)
		components = append(components, c)
	}
	out.Components = components

	if p.repairs > 0 {
		n.logger.Debug("banner document normalized",
			zap.String("banner_id", out.ID),
			zap.Int("repairs", p.repairs))
	}
	return out
}

func (p *pass) layout(doc *models.BannerDocument) {
	if doc.Layout.Desktop.IsZero() {
		doc.Layout.Desktop = DefaultLayout()
		p.repair("default desktop layout assigned")
	}
	for _, d := range []models.Device{models.DeviceTablet, models.DeviceMobile} {
		if doc.Layout.Get(d).IsZero() {
			cp := *doc.Layout.Desktop
			doc.Layout.Set(d, &cp)
			p.repair("layout cloned from desktop", zap.String("device", string(d)))
		}
	}
}

func (p *pass) component(c *models.Component, depth int) {
	if c.ID == "" || p.seen[c.ID] {
		old := c.ID
		c.ID = p.newID()
		p.repair("component id assigned", zap.String("previous", old), zap.String("id", c.ID))
	}
	p.seen[c.ID] = true

	if !c.Type.Valid() {
		p.repair("unknown component type repaired", zap.String("component_id", c.ID), zap.String("type", string(c.Type)))
		c.Type = models.ComponentText
	}

	p.content(c)
	p.style(c)
	p.position(c)

	if len(c.Children) == 0 {
		c.Children = nil
		return
	}
	if depth >= maxDepth {
		p.repair("children beyond nesting limit dropped", zap.String("component_id", c.ID))
		c.Children = nil
		return
	}
	children := make([]*models.Component, 0, len(c.Children))
	for _, child := range c.Children {
		if child == nil {
			p.repair("nil child dropped", zap.String("component_id", c.ID))
			continue
		}
		p.component(child, depth+1)
		children = append(children, child)
	}
	c.Children = children
}

func (p *pass) content(c *models.Component) {
	switch c.Content.Kind {
	case models.ContentNone:
		c.Content = DefaultContent(c.Type)
		p.repair("default content assigned", zap.String("component_id", c.ID))
	case models.ContentPlainText, models.ContentImageURL, models.ContentImageReference:
		if c.Type == models.ComponentImage {
			if c.Content.Kind == models.ContentPlainText {
				c.Content = models.ImageURL(c.Content.Value)
			}
			return
		}
		c.Content = models.MultiLang(map[string]string{models.DefaultLanguage: c.Content.Value}, true)
		p.repair("string content upgraded", zap.String("component_id", c.ID))
	case models.ContentMultiLang:
		if c.Content.Texts != nil {
			return
		}
		c.Content.Texts = map[string]string{}
		if c.Content.LegacyText != nil {
			c.Content.Texts[models.DefaultLanguage] = *c.Content.LegacyText
			p.repair("legacy text content upgraded", zap.String("component_id", c.ID))
		}
	}
}

func (p *pass) style(c *models.Component) {
	if len(c.Style.Desktop) == 0 && len(c.Style.Tablet) == 0 && len(c.Style.Mobile) == 0 {
		c.Style = DefaultStyles(c.Type)
		p.repair("default style assigned", zap.String("component_id", c.ID))
		return
	}
	if len(c.Style.Desktop) == 0 {
		c.Style.Desktop = DefaultStyle(c.Type, models.DeviceDesktop)
		p.repair("default desktop style assigned", zap.String("component_id", c.ID))
	}
	for _, d := range []models.Device{models.DeviceTablet, models.DeviceMobile} {
		if len(c.Style.Get(d)) == 0 {
			c.Style.Set(d, c.Style.Desktop.Clone())
			p.repair("style cloned from desktop", zap.String("component_id", c.ID), zap.String("device", string(d)))
		}
	}
}

func (p *pass) position(c *models.Component) {
	if c.Position.Desktop == nil && c.Position.Tablet == nil && c.Position.Mobile == nil {
		for _, d := range models.Devices {
			c.Position.Set(d, DefaultPosition())
		}
		p.repair("default position assigned", zap.String("component_id", c.ID))
		return
	}
	if c.Position.Desktop == nil {
		c.Position.Desktop = DefaultPosition()
		p.repair("default desktop position assigned", zap.String("component_id", c.ID))
	}
	for _, d := range models.Devices {
		pos := c.Position.Get(d)
		if pos == nil {
			// Desktop was already converted above since it comes first.
			c.Position.Set(d, c.Position.Desktop.Clone())
			continue
		}
		canvas := p.canvas.Get(d)
		pos.Top = p.coord(c.ID, d, pos.Top, canvas.Height)
		pos.Left = p.coord(c.ID, d, pos.Left, canvas.Width)
	}
}

func (p *pass) coord(id string, d models.Device, v models.Coord, containerPx float64) models.Coord {
	if units.IsPercent(string(v)) {
		return v
	}
	pct, ok := units.ToPercent(string(v), containerPx)
	if !ok {
		p.repair("unreadable coordinate reset", zap.String("component_id", id), zap.String("device", string(d)), zap.String("value", string(v)))
		return DefaultCoord
	}
	p.repair("coordinate converted to percent", zap.String("component_id", id), zap.String("device", string(d)), zap.String("value", string(v)))
	return models.Coord(pct)
}
