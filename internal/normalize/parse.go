package normalize

import (
	"bytes"
	"encoding/json"

	"github.com/patrickwarner/consentstudio/internal/models"

	"go.uber.org/zap"
)

// Parse parses a stored banner document field by field. Fields that cannot
// be decoded are dropped and logged so a single bad value never discards the
// whole document. The result still needs Normalize.
func (n *Normalizer) Parse(raw []byte) *models.BannerDocument {
	doc := &models.BannerDocument{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		n.logger.Warn("banner document is not a JSON object, starting empty", zap.Error(err))
		return doc
	}

	doc.ID, _ = decodeString(fields["id"])
	doc.Name, _ = decodeString(fields["name"])

	if rawLayout, ok := fields["layout"]; ok {
		var byDevice map[string]json.RawMessage
		if err := json.Unmarshal(rawLayout, &byDevice); err != nil {
			n.logger.Warn("layout dropped", zap.Error(err))
		}
		for _, d := range models.Devices {
			if v, ok := byDevice[string(d)]; ok {
				var l models.LayoutSpec
				if err := json.Unmarshal(v, &l); err != nil {
					n.logger.Warn("device layout dropped", zap.String("device", string(d)), zap.Error(err))
					continue
				}
				doc.Layout.Set(d, &l)
			}
		}
	}

	doc.Components = n.decodeComponents(fields["components"], 0)
	return doc
}

func (n *Normalizer) decodeComponents(raw json.RawMessage, depth int) []*models.Component {
	if isNull(raw) {
		return nil
	}
	if depth > maxDepth {
		n.logger.Warn("component nesting too deep, children dropped", zap.Int("depth", depth))
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		n.logger.Warn("components dropped", zap.Error(err))
		return nil
	}
	out := make([]*models.Component, 0, len(items))
	for i, item := range items {
		c, ok := n.decodeComponent(item, depth)
		if !ok {
			n.logger.Warn("component dropped", zap.Int("index", i), zap.Int("depth", depth))
			continue
		}
		out = append(out, c)
	}
	return out
}

func (n *Normalizer) decodeComponent(raw json.RawMessage, depth int) (*models.Component, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	c := &models.Component{}
	c.ID, _ = decodeString(fields["id"])
	t, _ := decodeString(fields["type"])
	c.Type = models.ComponentType(t)

	if v, ok := fields["locked"]; ok {
		if err := json.Unmarshal(v, &c.Locked); err != nil {
			n.logger.Debug("locked flag dropped", zap.String("component_id", c.ID), zap.Error(err))
		}
	}
	if v, ok := fields["content"]; ok {
		if err := json.Unmarshal(v, &c.Content); err != nil {
			n.logger.Debug("content dropped", zap.String("component_id", c.ID), zap.Error(err))
			c.Content = models.Content{}
		}
	}
	if v, ok := fields["action"]; ok && !isNull(v) {
		var a models.Action
		if err := json.Unmarshal(v, &a); err != nil || a.Type == "" {
			n.logger.Debug("action dropped", zap.String("component_id", c.ID))
		} else {
			c.Action = &a
		}
	}
	if v, ok := fields["_previewUrl"]; ok {
		c.PreviewURL, _ = decodeString(v)
	}

	n.decodeStyle(c, fields["style"])
	n.decodePosition(c, fields["position"])
	c.Children = n.decodeComponents(fields["children"], depth+1)
	return c, true
}

// decodeStyle accepts {"desktop": {...}, ...}. An object without any device
// key is treated as the desktop style.
func (n *Normalizer) decodeStyle(c *models.Component, raw json.RawMessage) {
	if isNull(raw) {
		return
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		n.logger.Debug("style dropped", zap.String("component_id", c.ID), zap.Error(err))
		return
	}
	if !hasDeviceKey(obj) {
		var flat models.Style
		if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
			c.Style.Desktop = flat
		}
		return
	}
	for _, d := range models.Devices {
		v, ok := obj[string(d)]
		if !ok || isNull(v) {
			continue
		}
		var s models.Style
		if err := json.Unmarshal(v, &s); err != nil {
			n.logger.Debug("device style dropped", zap.String("component_id", c.ID), zap.String("device", string(d)), zap.Error(err))
			continue
		}
		c.Style.Set(d, s)
	}
}

// decodePosition accepts {"desktop": {"top", "left"}, ...}. A bare
// {"top", "left"} object is treated as the desktop position.
func (n *Normalizer) decodePosition(c *models.Component, raw json.RawMessage) {
	if isNull(raw) {
		return
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		n.logger.Debug("position dropped", zap.String("component_id", c.ID), zap.Error(err))
		return
	}
	if !hasDeviceKey(obj) {
		if _, ok := obj["top"]; ok {
			c.Position.Desktop = n.decodeCoords(c.ID, obj)
		} else if _, ok := obj["left"]; ok {
			c.Position.Desktop = n.decodeCoords(c.ID, obj)
		}
		return
	}
	for _, d := range models.Devices {
		v, ok := obj[string(d)]
		if !ok || isNull(v) {
			continue
		}
		var coords map[string]json.RawMessage
		if err := json.Unmarshal(v, &coords); err != nil {
			n.logger.Debug("device position dropped", zap.String("component_id", c.ID), zap.String("device", string(d)), zap.Error(err))
			continue
		}
		c.Position.Set(d, n.decodeCoords(c.ID, coords))
	}
}

func (n *Normalizer) decodeCoords(id string, coords map[string]json.RawMessage) *models.Position {
	pos := &models.Position{}
	for key, dst := range map[string]*models.Coord{"top": &pos.Top, "left": &pos.Left} {
		v, ok := coords[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			n.logger.Debug("coordinate dropped", zap.String("component_id", id), zap.String("axis", key), zap.Error(err))
		}
	}
	return pos
}

func hasDeviceKey(obj map[string]json.RawMessage) bool {
	for _, d := range models.Devices {
		if _, ok := obj[string(d)]; ok {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeString accepts a JSON string or number.
func decodeString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), true
	}
	return "", false
}
