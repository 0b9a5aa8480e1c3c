package units

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelsPercentRoundTrip(t *testing.T) {
	containers := []float64{1, 320, 375, 768, 1000, 1280, 1920.5}
	pixels := []float64{0, 1, 12.5, 100, 333.33, 1280, 2500}

	for _, c := range containers {
		for _, px := range pixels {
			got := PercentToPixels(PixelsToPercent(px, c), c)
			assert.InDelta(t, px, got, 1e-9, "px=%v container=%v", px, c)
		}
	}
}

func TestSafePosition(t *testing.T) {
	tests := []struct {
		name string
		in   SafeInput
		want float64
	}{
		{"inside", SafeInput{Value: 50, ComponentSize: 100, ContainerSize: 500}, 50},
		{"negative clamps to zero", SafeInput{Value: -20, ComponentSize: 100, ContainerSize: 500}, 0},
		{"overflow clamps to edge", SafeInput{Value: 450, ComponentSize: 100, ContainerSize: 500}, 400},
		{"component larger than container", SafeInput{Value: 30, ComponentSize: 600, ContainerSize: 500}, 0},
		{"exact fit", SafeInput{Value: 10, ComponentSize: 500, ContainerSize: 500}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafePosition(tt.in))
		})
	}
}

func TestPositionByCode(t *testing.T) {
	dims := Dimensions{WidthPercent: 30, HeightPercent: 20}
	tests := []struct {
		code GridCode
		want PercentPoint
	}{
		{TopLeft, PercentPoint{Top: 0, Left: 0}},
		{TopCenter, PercentPoint{Top: 0, Left: 35}},
		{TopRight, PercentPoint{Top: 0, Left: 70}},
		{CenterLeft, PercentPoint{Top: 40, Left: 0}},
		{CenterCenter, PercentPoint{Top: 40, Left: 35}},
		{CenterRight, PercentPoint{Top: 40, Left: 70}},
		{BottomLeft, PercentPoint{Top: 80, Left: 0}},
		{BottomCenter, PercentPoint{Top: 80, Left: 35}},
		{BottomRight, PercentPoint{Top: 80, Left: 70}},
	}
	for _, tt := range tests {
		got, err := PositionByCode(tt.code, dims)
		require.NoError(t, err)
		assert.InDelta(t, tt.want.Top, got.Top, 1e-9, string(tt.code))
		assert.InDelta(t, tt.want.Left, got.Left, 1e-9, string(tt.code))
	}

	_, err := PositionByCode("xx", dims)
	assert.Error(t, err)
	_, err = PositionByCode("t", dims)
	assert.Error(t, err)
}

func TestPositionByCodeCenterFormula(t *testing.T) {
	for _, d := range []Dimensions{{0, 0}, {10, 90}, {33.3, 12.7}, {100, 100}, {150, 5}} {
		got, err := PositionByCode(CenterCenter, d)
		require.NoError(t, err)
		assert.Equal(t, 50-d.HeightPercent/2, got.Top)
		assert.Equal(t, 50-d.WidthPercent/2, got.Left)
	}
}

func TestAlignmentOffset(t *testing.T) {
	dims := Dimensions{WidthPercent: 40, HeightPercent: 10}

	axis, v, err := AlignmentOffset(AlignRight, dims)
	require.NoError(t, err)
	assert.Equal(t, AxisLeft, axis)
	assert.Equal(t, 60.0, v)

	axis, v, err = AlignmentOffset(AlignMiddle, dims)
	require.NoError(t, err)
	assert.Equal(t, AxisTop, axis)
	assert.Equal(t, 45.0, v)

	_, _, err = AlignmentOffset("diagonal", dims)
	assert.Error(t, err)
}

func TestDimensionsFromBoxes(t *testing.T) {
	d, ok := DimensionsFromBoxes(Box{Width: 200, Height: 50}, Box{Width: 800, Height: 200})
	require.True(t, ok)
	assert.Equal(t, 25.0, d.WidthPercent)
	assert.Equal(t, 25.0, d.HeightPercent)

	_, ok = DimensionsFromBoxes(Box{Width: 200, Height: 50}, Box{Width: 0, Height: 200})
	assert.False(t, ok, "zero-width container cannot be converted")
}

func TestToPercent(t *testing.T) {
	tests := []struct {
		value     string
		container float64
		want      string
		ok        bool
	}{
		{"12.5%", 1000, "12.5%", true},
		{" 40% ", 0, "40%", true},
		{"100px", 1000, "10%", true},
		{"128", 1280, "10%", true},
		{"1", 3, "33.3333%", true},
		{"-50px", 1000, "-5%", true},
		{"abc", 1000, "", false},
		{"", 1000, "", false},
		{"100px", 0, "", false},
	}
	for _, tt := range tests {
		got, ok := ToPercent(tt.value, tt.container)
		assert.Equal(t, tt.ok, ok, tt.value)
		assert.Equal(t, tt.want, got, tt.value)
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "0%", FormatPercent(math.Copysign(0, -1)))
	assert.Equal(t, "0%", FormatPercent(math.NaN()))
	assert.Equal(t, "12.5%", FormatPercent(12.5))
	assert.Equal(t, "66.6667%", FormatPercent(200.0/3))
}

func TestStaticMeasurer(t *testing.T) {
	m := StaticMeasurer{
		"a": {Component: Box{Width: 10, Height: 10}, Container: Box{Width: 100, Height: 100}},
		"b": {Component: Box{Width: 10, Height: 10}},
	}

	got, err := m.Measure(context.Background(), "a")
	require.NoError(t, err)
	d, ok := got.Dimensions()
	require.True(t, ok)
	assert.Equal(t, 10.0, d.WidthPercent)

	_, err = m.Measure(context.Background(), "b")
	assert.True(t, errors.Is(err, ErrNotMeasurable))

	_, err = m.Measure(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotMeasurable))
}
