package units

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotMeasurable is returned when a component cannot be located in the
// live view or its container has no size.
var ErrNotMeasurable = errors.New("component not measurable")

// Measurement pairs a component box with the box of its container.
type Measurement struct {
	Component Box `json:"component"`
	Container Box `json:"container"`
}

// Dimensions converts the measurement into container-relative percentages.
func (m Measurement) Dimensions() (Dimensions, bool) {
	return DimensionsFromBoxes(m.Component, m.Container)
}

// Measurer queries rendered bounding boxes. It is supplied by the rendering
// layer.
type Measurer interface {
	Measure(ctx context.Context, componentID string) (Measurement, error)
}

// StaticMeasurer answers from a fixed set of measurements, typically posted
// by a client that measured its own view.
type StaticMeasurer map[string]Measurement

// Measure implements Measurer.
func (s StaticMeasurer) Measure(_ context.Context, componentID string) (Measurement, error) {
	m, ok := s[componentID]
	if !ok {
		return Measurement{}, fmt.Errorf("%w: %s", ErrNotMeasurable, componentID)
	}
	if m.Container.Width <= 0 || m.Container.Height <= 0 {
		return Measurement{}, fmt.Errorf("%w: %s has an empty container", ErrNotMeasurable, componentID)
	}
	return m, nil
}
