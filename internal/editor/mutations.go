package editor

import (
	"fmt"

	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/units"
)

// AddOption customizes a component created by AddComponent.
type AddOption func(*addOptions)

type addOptions struct {
	top, left string
	content   *models.Content
	style     models.Style
	parentID  string
}

// AtPosition places the new component. Values may be percentages or pixels;
// pixels are converted against each device canvas.
func AtPosition(top, left string) AddOption {
	return func(o *addOptions) { o.top, o.left = top, left }
}

// WithContent replaces the default content of the new component.
func WithContent(c models.Content) AddOption {
	return func(o *addOptions) { o.content = &c }
}

// WithStyle merges s into the default style of every device.
func WithStyle(s models.Style) AddOption {
	return func(o *addOptions) { o.style = s }
}

// InContainer adds the component as the last child of a container.
func InContainer(parentID string) AddOption {
	return func(o *addOptions) { o.parentID = parentID }
}

// AddComponent appends a component of type t and returns its id. It returns
// "" when the type, position or parent is invalid.
func (e *Editor) AddComponent(t models.ComponentType, opts ...AddOption) string {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !t.Valid() {
		e.report(DiagInvalidValue, "add_component", "", fmt.Sprintf("unknown component type %q", t))
		return ""
	}

	siblings := &e.doc.Components
	if o.parentID != "" {
		parent := e.doc.Find(o.parentID)
		if parent == nil {
			e.report(DiagUnknownComponent, "add_component", o.parentID, "parent not found")
			return ""
		}
		if parent.Type != models.ComponentContainer {
			e.report(DiagInvalidValue, "add_component", o.parentID, "parent is not a container")
			return ""
		}
		siblings = &parent.Children
	}

	c := e.newComponent(t)
	if o.top != "" || o.left != "" {
		for _, d := range models.Devices {
			pos, ok := e.percentPosition(d, orDefault(o.top), orDefault(o.left))
			if !ok {
				e.report(DiagInvalidValue, "add_component", "", fmt.Sprintf("unreadable position %q/%q", o.top, o.left))
				return ""
			}
			c.Position.Set(d, pos)
		}
	}
	if o.content != nil {
		if o.content.Kind == models.ContentNone {
			e.report(DiagInvalidValue, "add_component", "", "empty content")
			return ""
		}
		c.Content = contentFor(c, o.content.Clone())
	}
	for k, v := range o.style {
		for _, d := range models.Devices {
			c.Style.Get(d)[k] = v
		}
	}

	*siblings = append(*siblings, c)
	return c.ID
}

func orDefault(v string) string {
	if v == "" {
		return string(normalize.DefaultCoord)
	}
	return v
}

// percentPosition must be called with e.mu held.
func (e *Editor) percentPosition(d models.Device, top, left string) (*models.Position, bool) {
	canvas := e.canvas.Get(d)
	t, ok := units.ToPercent(top, canvas.Height)
	if !ok {
		return nil, false
	}
	l, ok := units.ToPercent(left, canvas.Width)
	if !ok {
		return nil, false
	}
	return &models.Position{Top: models.Coord(t), Left: models.Coord(l)}, true
}

// DeleteComponent removes the component and its children. Locked components
// are never removed.
func (e *Editor) DeleteComponent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.doc.Find(id)
	if c == nil {
		e.report(DiagUnknownComponent, "delete_component", id, "")
		return false
	}
	if c.Locked {
		e.report(DiagLockedComponent, "delete_component", id, "locked components can only be edited")
		return false
	}
	var lockedChild string
	models.Walk(c.Children, func(child *models.Component) bool {
		if child.Locked {
			lockedChild = child.ID
			return false
		}
		return true
	})
	if lockedChild != "" {
		e.report(DiagLockedComponent, "delete_component", id, "contains locked component "+lockedChild)
		return false
	}

	siblings, idx := e.locate(id)
	*siblings = append((*siblings)[:idx], (*siblings)[idx+1:]...)

	if e.selected != "" && e.doc.Find(e.selected) == nil {
		e.selected = ""
	}
	return true
}

// locate returns the slice holding id and its index. Must be called with
// e.mu held and only for ids known to exist.
func (e *Editor) locate(id string) (*[]*models.Component, int) {
	var search func(list *[]*models.Component) (*[]*models.Component, int)
	search = func(list *[]*models.Component) (*[]*models.Component, int) {
		for i, c := range *list {
			if c.ID == id {
				return list, i
			}
			if s, idx := search(&c.Children); s != nil {
				return s, idx
			}
		}
		return nil, -1
	}
	return search(&e.doc.Components)
}

// UpdateContent changes the content of a component. A plain string sent to
// multi-language content only replaces the default language text; any other
// content replaces the previous value.
func (e *Editor) UpdateContent(id string, content models.Content) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.doc.Find(id)
	if c == nil {
		e.report(DiagUnknownComponent, "update_content", id, "")
		return false
	}
	if content.Kind == models.ContentNone {
		e.report(DiagInvalidValue, "update_content", id, "empty content")
		return false
	}
	c.Content = contentFor(c, content.Clone())
	if c.Content.Kind != models.ContentImageReference {
		c.TempFile = nil
		c.PreviewURL = ""
	}
	return true
}

// contentFor merges next into the current content of c.
func contentFor(c *models.Component, next models.Content) models.Content {
	if next.Kind == models.ContentImageReference && c.Type != models.ComponentImage {
		next = models.PlainText(next.Value)
	}
	if next.Kind == models.ContentPlainText {
		if c.Type == models.ComponentImage {
			return models.ImageURL(next.Value)
		}
		if c.Content.Kind == models.ContentMultiLang {
			merged := c.Content.Clone()
			if merged.Texts == nil {
				merged.Texts = map[string]string{}
			}
			merged.Texts[models.DefaultLanguage] = next.Value
			return merged
		}
	}
	if next.Kind == models.ContentMultiLang && next.Texts == nil {
		next.Texts = map[string]string{}
		if next.LegacyText != nil {
			next.Texts[models.DefaultLanguage] = *next.LegacyText
		}
	}
	return next
}

// AttachImage points an image component at a pending binary. previewURL is
// transient and never persisted.
func (e *Editor) AttachImage(id, token string, h *models.BinaryHandle, previewURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.doc.Find(id)
	if c == nil {
		e.report(DiagUnknownComponent, "attach_image", id, "")
		return false
	}
	if c.Type != models.ComponentImage || !models.IsReferenceToken(token) {
		e.report(DiagInvalidValue, "attach_image", id, "only image components take reference tokens")
		return false
	}
	c.Content = models.ImageReference(token)
	c.TempFile = h
	c.PreviewURL = previewURL
	return true
}

// UpdateStyleForDevice shallow-merges partial into the style of one device.
// A nil value removes the property.
func (e *Editor) UpdateStyleForDevice(id string, d models.Device, partial models.Style) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.doc.Find(id)
	if c == nil {
		e.report(DiagUnknownComponent, "update_style", id, "")
		return false
	}
	style := c.Style.Get(d)
	if style == nil {
		style = models.Style{}
	}
	for k, v := range partial {
		if v == nil {
			delete(style, k)
			continue
		}
		style[k] = v
	}
	if len(style) == 0 {
		if d == models.DeviceDesktop {
			style = normalize.DefaultStyle(c.Type, d)
		} else {
			style = c.Style.Desktop.Clone()
		}
	}
	c.Style.Set(d, style)
	return true
}

// UpdatePositionForDevice moves a component on one device. Both values are
// stored as percentages; pixel input is converted against the device canvas.
func (e *Editor) UpdatePositionForDevice(id string, d models.Device, top, left string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.doc.Find(id)
	if c == nil {
		e.report(DiagUnknownComponent, "update_position", id, "")
		return false
	}
	pos, ok := e.percentPosition(d, top, left)
	if !ok {
		e.report(DiagInvalidValue, "update_position", id, fmt.Sprintf("unreadable position %q/%q", top, left))
		return false
	}
	c.Position.Set(d, pos)
	return true
}

// UpdateLayoutForDevice sets one layout property on one device.
func (e *Editor) UpdateLayoutForDevice(d models.Device, property, value string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	layout := e.doc.Layout.Get(d)
	if layout == nil {
		layout = normalize.DefaultLayout()
		e.doc.Layout.Set(d, layout)
	}
	switch property {
	case "type":
		switch value {
		case models.LayoutBanner, models.LayoutModal, models.LayoutFloating:
		default:
			e.report(DiagInvalidValue, "update_layout", "", fmt.Sprintf("unknown layout type %q", value))
			return false
		}
		layout.Type = value
	case "position":
		switch value {
		case models.AnchorTop, models.AnchorBottom, models.AnchorCenter:
		default:
			e.report(DiagInvalidValue, "update_layout", "", fmt.Sprintf("unknown layout position %q", value))
			return false
		}
		layout.Position = value
	case "backgroundColor":
		layout.BackgroundColor = value
	case "width":
		layout.Width = value
	case "height":
		layout.Height = value
	case "minHeight":
		layout.MinHeight = value
	default:
		e.report(DiagInvalidValue, "update_layout", "", fmt.Sprintf("unknown layout property %q", property))
		return false
	}
	return true
}

// DuplicateComponent inserts a copy of the component right after it and
// returns the id of the copy. Copies get fresh ids and are never locked.
func (e *Editor) DuplicateComponent(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.doc.Find(id)
	if c == nil {
		e.report(DiagUnknownComponent, "duplicate_component", id, "")
		return ""
	}
	cp := c.Clone()
	models.Walk([]*models.Component{cp}, func(n *models.Component) bool {
		n.ID = e.newID()
		n.Locked = false
		return true
	})

	siblings, idx := e.locate(id)
	list := append((*siblings)[:idx+1:idx+1], cp)
	*siblings = append(list, (*siblings)[idx+1:]...)
	return cp.ID
}

// ReorderComponent moves a component to index among its siblings. Later
// components render on top.
func (e *Editor) ReorderComponent(id string, index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.doc.Find(id) == nil {
		e.report(DiagUnknownComponent, "reorder_component", id, "")
		return false
	}
	siblings, idx := e.locate(id)
	list := *siblings
	if index < 0 {
		index = 0
	}
	if index >= len(list) {
		index = len(list) - 1
	}
	c := list[idx]
	list = append(list[:idx], list[idx+1:]...)
	list = append(list[:index], append([]*models.Component{c}, list[index:]...)...)
	*siblings = list
	return true
}

// ApplySaved merges the result of a successful save: the persisted id and
// the URLs that replaced uploaded reference tokens. It reports false and
// changes nothing when the document was replaced after the snapshot of
// generation was taken.
func (e *Editor) ApplySaved(generation uint64, id string, uploaded map[string]string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if generation != e.generation {
		return false
	}
	if id != "" {
		e.doc.ID = id
	}
	if len(uploaded) == 0 {
		return true
	}
	models.Walk(e.doc.Components, func(c *models.Component) bool {
		if c.Content.Kind != models.ContentImageReference {
			return true
		}
		if url, ok := uploaded[c.Content.Value]; ok {
			c.Content = models.ImageURL(url)
			c.TempFile = nil
			c.PreviewURL = ""
		}
		return true
	})
	return true
}
