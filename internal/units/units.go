// Package units converts between pixel and percentage coordinates and
// derives grid and alignment positions from measured bounding boxes.
//
// Every function here is pure. Measuring the live view is the caller's job,
// see Measurer.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PixelsToPercent converts px into a percentage of containerPx.
func PixelsToPercent(px, containerPx float64) float64 {
	return px / containerPx * 100
}

// PercentToPixels converts percent of containerPx back into pixels.
func PercentToPixels(percent, containerPx float64) float64 {
	return percent / 100 * containerPx
}

// SafeInput describes a value to clamp along one axis.
type SafeInput struct {
	Value         float64
	ComponentSize float64
	ContainerSize float64
}

// SafePosition clamps in.Value to [0, ContainerSize-ComponentSize] so the
// component stays inside its container. A component larger than its
// container is pinned to 0.
func SafePosition(in SafeInput) float64 {
	limit := in.ContainerSize - in.ComponentSize
	if limit <= 0 {
		return 0
	}
	return math.Min(math.Max(in.Value, 0), limit)
}

// GridCode is one of the nine quick-position codes.
type GridCode string

const (
	TopLeft      GridCode = "tl"
	TopCenter    GridCode = "tc"
	TopRight     GridCode = "tr"
	CenterLeft   GridCode = "cl"
	CenterCenter GridCode = "cc"
	CenterRight  GridCode = "cr"
	BottomLeft   GridCode = "bl"
	BottomCenter GridCode = "bc"
	BottomRight  GridCode = "br"
)

// Dimensions is the rendered size of a component relative to its container.
type Dimensions struct {
	WidthPercent  float64
	HeightPercent float64
}

// PercentPoint is a position expressed in percentages of the container.
type PercentPoint struct {
	Top  float64
	Left float64
}

// PositionByCode places the component so that its edge or center lines up
// with the matching edge or center of the container.
func PositionByCode(code GridCode, dims Dimensions) (PercentPoint, error) {
	s := strings.ToLower(string(code))
	if len(s) != 2 {
		return PercentPoint{}, fmt.Errorf("invalid position code %q", code)
	}
	var p PercentPoint
	switch s[0] {
	case 't':
		p.Top = 0
	case 'c':
		p.Top = 50 - dims.HeightPercent/2
	case 'b':
		p.Top = 100 - dims.HeightPercent
	default:
		return PercentPoint{}, fmt.Errorf("invalid position code %q", code)
	}
	switch s[1] {
	case 'l':
		p.Left = 0
	case 'c':
		p.Left = 50 - dims.WidthPercent/2
	case 'r':
		p.Left = 100 - dims.WidthPercent
	default:
		return PercentPoint{}, fmt.Errorf("invalid position code %q", code)
	}
	return p, nil
}

// Alignment aligns a component along a single axis.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
	AlignTop    Alignment = "top"
	AlignMiddle Alignment = "middle"
	AlignBottom Alignment = "bottom"
)

// Axis names the coordinate an alignment changes.
type Axis string

const (
	AxisLeft Axis = "left"
	AxisTop  Axis = "top"
)

// AlignmentOffset returns the axis and percentage offset that aligns the
// component as requested. The other axis is left alone.
func AlignmentOffset(a Alignment, dims Dimensions) (Axis, float64, error) {
	switch a {
	case AlignLeft:
		return AxisLeft, 0, nil
	case AlignCenter:
		return AxisLeft, 50 - dims.WidthPercent/2, nil
	case AlignRight:
		return AxisLeft, 100 - dims.WidthPercent, nil
	case AlignTop:
		return AxisTop, 0, nil
	case AlignMiddle:
		return AxisTop, 50 - dims.HeightPercent/2, nil
	case AlignBottom:
		return AxisTop, 100 - dims.HeightPercent, nil
	}
	return "", 0, fmt.Errorf("invalid alignment %q", a)
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Box is a rendered bounding box in pixels.
type Box struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DimensionsFromBoxes expresses the component box as percentages of the
// container box. ok is false when the container has no area, in which case
// conversion is unavailable.
func DimensionsFromBoxes(component, container Box) (Dimensions, bool) {
	if container.Width <= 0 || container.Height <= 0 {
		return Dimensions{}, false
	}
	return Dimensions{
		WidthPercent:  PixelsToPercent(component.Width, container.Width),
		HeightPercent: PixelsToPercent(component.Height, container.Height),
	}, true
}

// FormatPercent renders v as a percentage string rounded to four decimals,
// e.g. 12.5 -> "12.5%".
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	v = math.Round(v*10000) / 10000
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// ParsePercent parses a percentage string such as "12.5%".
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsPercent reports whether s is a valid percentage string.
func IsPercent(s string) bool {
	_, ok := ParsePercent(s)
	return ok
}

// ParsePixels parses "120px", "120" or "120.5" as a pixel value.
func ParsePixels(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ToPercent enforces the percentage invariant on a coordinate. Percentages
// are returned unchanged; pixel and unitless values are converted against
// containerPx. ok is false when the value cannot be interpreted or the
// container size is unknown.
func ToPercent(value string, containerPx float64) (string, bool) {
	value = strings.TrimSpace(value)
	if IsPercent(value) {
		return value, true
	}
	px, ok := ParsePixels(value)
	if !ok || containerPx <= 0 {
		return "", false
	}
	return FormatPercent(PixelsToPercent(px, containerPx)), true
}
