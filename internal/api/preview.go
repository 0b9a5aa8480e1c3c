package api

import (
	"net/http"
	"time"

	"github.com/avct/uasurfer"

	"github.com/patrickwarner/consentstudio/internal/editor"
	"github.com/patrickwarner/consentstudio/internal/models"
)

// DeviceFromUserAgent picks the editing device matching a User-Agent.
// Unknown devices preview as desktop.
func DeviceFromUserAgent(ua string) models.Device {
	switch uasurfer.Parse(ua).DeviceType {
	case uasurfer.DevicePhone:
		return models.DeviceMobile
	case uasurfer.DeviceTablet:
		return models.DeviceTablet
	default:
		return models.DeviceDesktop
	}
}

// PreviewComponent is a component resolved for a single device and
// language.
type PreviewComponent struct {
	ID       string               `json:"id"`
	Type     models.ComponentType `json:"type"`
	Text     string               `json:"text,omitempty"`
	Src      string               `json:"src,omitempty"`
	Pending  bool                 `json:"pending,omitempty"`
	Action   string               `json:"action,omitempty"`
	Style    models.Style         `json:"style"`
	Top      models.Coord         `json:"top"`
	Left     models.Coord         `json:"left"`
	Children []PreviewComponent   `json:"children,omitempty"`
}

// Preview is a banner resolved for a single device and language.
type Preview struct {
	Device     models.Device      `json:"device"`
	Language   string             `json:"language"`
	Name       string             `json:"name"`
	Layout     *models.LayoutSpec `json:"layout"`
	Components []PreviewComponent `json:"components"`
}

// BuildPreview resolves doc for device d in language lang. Styles and
// positions missing for d fall back to desktop.
func BuildPreview(doc *models.BannerDocument, d models.Device, lang string) Preview {
	if lang == "" {
		lang = models.DefaultLanguage
	}
	layout := doc.Layout.Get(d)
	if layout.IsZero() {
		layout = doc.Layout.Desktop
	}
	return Preview{
		Device:     d,
		Language:   lang,
		Name:       doc.Name,
		Layout:     layout,
		Components: previewComponents(doc.Components, d, lang),
	}
}

func previewComponents(cs []*models.Component, d models.Device, lang string) []PreviewComponent {
	out := make([]PreviewComponent, 0, len(cs))
	for _, c := range cs {
		pos := editor.ResolvePosition(c, d)
		pc := PreviewComponent{
			ID:    c.ID,
			Type:  c.Type,
			Style: editor.ResolveStyle(c, d),
			Top:   pos.Top,
			Left:  pos.Left,
		}
		switch c.Content.Kind {
		case models.ContentImageURL:
			pc.Src = c.Content.Value
		case models.ContentImageReference:
			pc.Src = c.PreviewURL
			pc.Pending = true
		default:
			pc.Text = c.Content.Text(lang)
		}
		if c.Action != nil {
			pc.Action = c.Action.Type
		}
		if len(c.Children) > 0 {
			pc.Children = previewComponents(c.Children, d, lang)
		}
		out = append(out, pc)
	}
	return out
}

// Preview renders the session banner for ?device=, or for the device of the
// requesting User-Agent, in ?lang=.
func (s *Server) Preview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "preview"
	const method = "GET"

	sess, ok := s.session(w, r, endpoint, method, start)
	if !ok {
		return
	}
	d := DeviceFromUserAgent(r.UserAgent())
	if v := r.URL.Query().Get("device"); v != "" {
		parsed, err := models.ParseDevice(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			s.observe(endpoint, method, http.StatusBadRequest, start)
			return
		}
		d = parsed
	}
	writeJSON(w, http.StatusOK, BuildPreview(sess.Editor.Snapshot(), d, r.URL.Query().Get("lang")))
	s.observe(endpoint, method, http.StatusOK, start)
}
