package models

import "strings"

// IsTransientStyleKey reports whether a style key is editor-only state.
func IsTransientStyleKey(k string) bool {
	return strings.HasPrefix(k, "_")
}

// StripTransient removes editor-only state from every component in place:
// temp files, preview URLs and underscore-prefixed style keys.
func (d *BannerDocument) StripTransient() {
	Walk(d.Components, func(c *Component) bool {
		c.TempFile = nil
		c.PreviewURL = ""
		for _, dev := range Devices {
			for k := range c.Style.Get(dev) {
				if IsTransientStyleKey(k) {
					delete(c.Style.Get(dev), k)
				}
			}
		}
		return true
	})
}
