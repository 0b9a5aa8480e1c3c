package editor

import (
	"context"

	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/units"
)

// measure runs m without holding the editor lock. ok is false when the
// component is unknown or cannot be measured; a diagnostic is reported.
func (e *Editor) measure(ctx context.Context, op, id string, m units.Measurer) (units.Measurement, bool) {
	e.mu.Lock()
	exists := e.doc.Find(id) != nil
	if !exists {
		e.report(DiagUnknownComponent, op, id, "")
	}
	e.mu.Unlock()
	if !exists {
		return units.Measurement{}, false
	}

	var (
		ms  units.Measurement
		err error
	)
	if m != nil {
		ms, err = m.Measure(ctx, id)
	} else {
		err = units.ErrNotMeasurable
	}
	if err == nil {
		if _, ok := ms.Dimensions(); !ok {
			err = units.ErrNotMeasurable
		}
	}
	if err != nil {
		e.mu.Lock()
		e.report(DiagNotMeasurable, op, id, err.Error())
		e.mu.Unlock()
		return units.Measurement{}, false
	}
	return ms, true
}

// setPosition stores a percentage position unless the component vanished
// while it was being measured.
func (e *Editor) setPosition(op, id string, d models.Device, update func(p *models.Position)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.doc.Find(id)
	if c == nil {
		e.report(DiagUnknownComponent, op, id, "removed while measuring")
		return false
	}
	pos := ResolvePosition(c, d).Clone()
	update(pos)
	c.Position.Set(d, pos)
	return true
}

// ApplyQuickPosition snaps a component to one of the nine grid positions of
// its container on device d.
func (e *Editor) ApplyQuickPosition(ctx context.Context, id string, d models.Device, code units.GridCode, m units.Measurer) bool {
	ms, ok := e.measure(ctx, "quick_position", id, m)
	if !ok {
		return false
	}
	dims, _ := ms.Dimensions()
	p, err := units.PositionByCode(code, dims)
	if err != nil {
		e.mu.Lock()
		e.report(DiagInvalidValue, "quick_position", id, err.Error())
		e.mu.Unlock()
		return false
	}
	return e.setPosition("quick_position", id, d, func(pos *models.Position) {
		pos.Top = models.Coord(units.FormatPercent(p.Top))
		pos.Left = models.Coord(units.FormatPercent(p.Left))
	})
}

// AlignComponent aligns a component along one axis of its container on
// device d. The other coordinate is kept.
func (e *Editor) AlignComponent(ctx context.Context, id string, d models.Device, a units.Alignment, m units.Measurer) bool {
	ms, ok := e.measure(ctx, "align", id, m)
	if !ok {
		return false
	}
	dims, _ := ms.Dimensions()
	axis, v, err := units.AlignmentOffset(a, dims)
	if err != nil {
		e.mu.Lock()
		e.report(DiagInvalidValue, "align", id, err.Error())
		e.mu.Unlock()
		return false
	}
	return e.setPosition("align", id, d, func(pos *models.Position) {
		if axis == units.AxisTop {
			pos.Top = models.Coord(units.FormatPercent(v))
		} else {
			pos.Left = models.Coord(units.FormatPercent(v))
		}
	})
}

// MoveToPixels moves a component to a pixel offset inside its container,
// clamped so it stays fully visible, and stores the result as percentages.
func (e *Editor) MoveToPixels(ctx context.Context, id string, d models.Device, topPx, leftPx float64, m units.Measurer) bool {
	ms, ok := e.measure(ctx, "move", id, m)
	if !ok {
		return false
	}
	top := units.SafePosition(units.SafeInput{Value: topPx, ComponentSize: ms.Component.Height, ContainerSize: ms.Container.Height})
	left := units.SafePosition(units.SafeInput{Value: leftPx, ComponentSize: ms.Component.Width, ContainerSize: ms.Container.Width})
	return e.setPosition("move", id, d, func(pos *models.Position) {
		pos.Top = models.Coord(units.FormatPercent(units.PixelsToPercent(top, ms.Container.Height)))
		pos.Left = models.Coord(units.FormatPercent(units.PixelsToPercent(left, ms.Container.Width)))
	})
}

// ResolveStyle returns the style of c on d, falling back to desktop when the
// device has none.
func ResolveStyle(c *models.Component, d models.Device) models.Style {
	if s := c.Style.Get(d); len(s) > 0 {
		return s
	}
	return c.Style.Desktop
}

// ResolvePosition returns the position of c on d, falling back to desktop
// and then to the default position.
func ResolvePosition(c *models.Component, d models.Device) *models.Position {
	if p := c.Position.Get(d); p != nil {
		return p
	}
	if c.Position.Desktop != nil {
		return c.Position.Desktop
	}
	return &models.Position{Top: "10%", Left: "10%"}
}
