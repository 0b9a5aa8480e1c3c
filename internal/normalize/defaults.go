package normalize

import (
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/units"
)

const (
	// DefaultName is given to documents saved without a name.
	DefaultName = "Untitled Banner"
	// DefaultCoord is used for every missing or unreadable coordinate.
	DefaultCoord models.Coord = "10%"
	// PlaceholderImage is the content of a new image component.
	PlaceholderImage = "/placeholder-image.png"
)

// DefaultCanvas is the reference container size per device used to convert
// pixel coordinates found in stored documents.
var DefaultCanvas = models.ByDevice[units.Size]{
	Desktop: units.Size{Width: 1280, Height: 720},
	Tablet:  units.Size{Width: 768, Height: 1024},
	Mobile:  units.Size{Width: 375, Height: 667},
}

// DefaultLayout returns the layout given to documents without one.
func DefaultLayout() *models.LayoutSpec {
	return &models.LayoutSpec{
		Type:            models.LayoutBanner,
		Position:        models.AnchorBottom,
		BackgroundColor: "#ffffff",
		Width:           "100%",
		Height:          "auto",
		MinHeight:       "100px",
	}
}

// DefaultPosition returns the position of a component without one.
func DefaultPosition() *models.Position {
	return &models.Position{Top: DefaultCoord, Left: DefaultCoord}
}

// DefaultContent returns the initial content for a component type.
func DefaultContent(t models.ComponentType) models.Content {
	switch t {
	case models.ComponentImage:
		return models.ImageURL(PlaceholderImage)
	case models.ComponentButton:
		return models.MultiLang(map[string]string{models.DefaultLanguage: "Button"}, true)
	case models.ComponentContainer:
		return models.MultiLang(nil, true)
	default:
		return models.MultiLang(map[string]string{models.DefaultLanguage: "New text"}, true)
	}
}

// DefaultStyle returns the initial style for a component type on a device.
// Sizes shrink from desktop to mobile.
func DefaultStyle(t models.ComponentType, d models.Device) models.Style {
	scale := map[models.Device]int{models.DeviceDesktop: 0, models.DeviceTablet: 1, models.DeviceMobile: 2}[d]
	pick := func(values ...string) string { return values[scale] }

	switch t {
	case models.ComponentButton:
		return models.Style{
			"fontSize":        pick("16px", "14px", "12px"),
			"padding":         pick("10px 20px", "8px 16px", "6px 12px"),
			"backgroundColor": "#007bff",
			"color":           "#ffffff",
			"border":          "none",
			"borderRadius":    "4px",
			"cursor":          "pointer",
		}
	case models.ComponentImage:
		return models.Style{
			"width":     pick("100px", "80px", "60px"),
			"height":    "auto",
			"objectFit": "contain",
		}
	case models.ComponentContainer:
		return models.Style{
			"width":           pick("300px", "250px", "200px"),
			"height":          pick("200px", "160px", "120px"),
			"padding":         pick("16px", "12px", "8px"),
			"backgroundColor": "transparent",
			"border":          "1px dashed #cccccc",
		}
	default:
		return models.Style{
			"fontSize":   pick("16px", "14px", "12px"),
			"padding":    pick("8px", "6px", "4px"),
			"color":      "#333333",
			"fontWeight": "normal",
		}
	}
}

// DefaultStyles returns DefaultStyle for every device.
func DefaultStyles(t models.ComponentType) models.ByDevice[models.Style] {
	var out models.ByDevice[models.Style]
	for _, d := range models.Devices {
		out.Set(d, DefaultStyle(t, d))
	}
	return out
}
