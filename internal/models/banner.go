package models

import (
	"bytes"
	"encoding/json"
)

// ComponentType enumerates the building blocks of a banner.
type ComponentType string

const (
	ComponentText      ComponentType = "text"
	ComponentButton    ComponentType = "button"
	ComponentImage     ComponentType = "image"
	ComponentContainer ComponentType = "container"
)

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	switch t {
	case ComponentText, ComponentButton, ComponentImage, ComponentContainer:
		return true
	}
	return false
}

// Layout types and anchor positions of a banner.
const (
	LayoutBanner   = "banner"
	LayoutModal    = "modal"
	LayoutFloating = "floating"

	AnchorTop    = "top"
	AnchorBottom = "bottom"
	AnchorCenter = "center"
)

// Consent actions wired to interactive components.
const (
	ActionAcceptAll       = "accept_all"
	ActionRejectAll       = "reject_all"
	ActionShowPreferences = "show_preferences"
)

// BannerDocument is the complete description of a consent banner.
type BannerDocument struct {
	// ID is empty until the document has been persisted once.
	ID         string                `json:"id,omitempty"`
	Name       string                `json:"name"`
	Layout     ByDevice[*LayoutSpec] `json:"layout"`
	Components []*Component          `json:"components"`
}

// LayoutSpec describes the banner frame for one device.
type LayoutSpec struct {
	Type            string `json:"type,omitempty"`
	Position        string `json:"position,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Width           string `json:"width,omitempty"`
	Height          string `json:"height,omitempty"`
	MinHeight       string `json:"minHeight,omitempty"`
}

// IsZero reports whether no property of the layout is set.
func (l *LayoutSpec) IsZero() bool {
	return l == nil || *l == LayoutSpec{}
}

// Action is the behaviour attached to an interactive component.
type Action struct {
	Type string `json:"type"`
}

// Style is a free-form bag of style properties for one device. Keys starting
// with an underscore are transient editor markers and are never persisted.
type Style map[string]any

// Clone returns a deep copy of the style bag.
func (s Style) Clone() Style {
	if s == nil {
		return nil
	}
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Style:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// Coord is one coordinate of a position. Normalized documents only hold
// percentage strings; raw input may carry pixels or unitless numbers.
type Coord string

// UnmarshalJSON accepts both strings and numbers.
func (c *Coord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Coord(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Coord(n.String())
	return nil
}

// Position places a component inside its container for one device.
type Position struct {
	Top  Coord `json:"top"`
	Left Coord `json:"left"`
}

// Clone returns a copy of p, nil stays nil.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Component is one element of a banner.
type Component struct {
	ID       string              `json:"id"`
	Type     ComponentType       `json:"type"`
	Locked   bool                `json:"locked"`
	Content  Content             `json:"content"`
	Style    ByDevice[Style]     `json:"style"`
	Position ByDevice[*Position] `json:"position"`
	Action   *Action             `json:"action,omitempty"`
	Children []*Component        `json:"children,omitempty"`

	// PreviewURL and TempFile are transient editor state for an image that
	// has been attached but not uploaded.
	PreviewURL string        `json:"_previewUrl,omitempty"`
	TempFile   *BinaryHandle `json:"-"`
}

// Clone returns a deep copy of the component and its children. TempFile is
// shared since binary handles are immutable once captured.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	out := *c
	out.Content = c.Content.Clone()
	out.Style = ByDevice[Style]{Desktop: c.Style.Desktop.Clone(), Tablet: c.Style.Tablet.Clone(), Mobile: c.Style.Mobile.Clone()}
	out.Position = ByDevice[*Position]{Desktop: c.Position.Desktop.Clone(), Tablet: c.Position.Tablet.Clone(), Mobile: c.Position.Mobile.Clone()}
	if c.Action != nil {
		a := *c.Action
		out.Action = &a
	}
	out.Children = CloneComponents(c.Children)
	return &out
}

// CloneComponents deep-copies a component slice.
func CloneComponents(cs []*Component) []*Component {
	if cs == nil {
		return nil
	}
	out := make([]*Component, 0, len(cs))
	for _, c := range cs {
		if c == nil {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *BannerDocument) Clone() *BannerDocument {
	if d == nil {
		return nil
	}
	out := &BannerDocument{ID: d.ID, Name: d.Name, Components: CloneComponents(d.Components)}
	for _, dev := range Devices {
		if l := d.Layout.Get(dev); l != nil {
			cp := *l
			out.Layout.Set(dev, &cp)
		}
	}
	return out
}

// Walk calls fn for every component in depth-first order, parents before
// children. Returning false from fn stops the walk.
func Walk(components []*Component, fn func(c *Component) bool) bool {
	for _, c := range components {
		if c == nil {
			continue
		}
		if !fn(c) {
			return false
		}
		if !Walk(c.Children, fn) {
			return false
		}
	}
	return true
}

// Find returns the component with the given id anywhere in the tree.
func (d *BannerDocument) Find(id string) *Component {
	var found *Component
	Walk(d.Components, func(c *Component) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}
