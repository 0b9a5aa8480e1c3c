package models

import (
	"fmt"
	"strings"
)

// Device is a responsive profile. Layout, style and position data are kept
// independently for each one.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceTablet  Device = "tablet"
	DeviceMobile  Device = "mobile"
)

// Devices lists every profile in canonical order. Desktop comes first because
// it is the source the other profiles inherit from.
var Devices = []Device{DeviceDesktop, DeviceTablet, DeviceMobile}

// ParseDevice converts a user supplied string into a Device.
func ParseDevice(s string) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceDesktop:
		return DeviceDesktop, nil
	case DeviceTablet:
		return DeviceTablet, nil
	case DeviceMobile:
		return DeviceMobile, nil
	}
	return "", fmt.Errorf("unknown device profile %q", s)
}

// ByDevice holds one value per device profile.
type ByDevice[T any] struct {
	Desktop T `json:"desktop"`
	Tablet  T `json:"tablet"`
	Mobile  T `json:"mobile"`
}

// Get returns the value stored for d. Unknown devices read as desktop.
func (b *ByDevice[T]) Get(d Device) T {
	switch d {
	case DeviceTablet:
		return b.Tablet
	case DeviceMobile:
		return b.Mobile
	default:
		return b.Desktop
	}
}

// Set stores v for d. Unknown devices are ignored.
func (b *ByDevice[T]) Set(d Device, v T) {
	switch d {
	case DeviceDesktop:
		b.Desktop = v
	case DeviceTablet:
		b.Tablet = v
	case DeviceMobile:
		b.Mobile = v
	}
}
