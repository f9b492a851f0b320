package devices

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoUsableDevice is returned when enumeration finds no device that
// passes the usability probe.
var ErrNoUsableDevice = errors.New("no usable capture device found")

// DeviceInfo represents one capture device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
	Usable     bool // Passed the usability probe
}

// Label returns the display label for device pickers, "<index>: <name>".
// The index is taken from the device node number.
func (d DeviceInfo) Label() string {
	return fmt.Sprintf("%d: %s", deviceIndex(d.DevicePath), d.DeviceName)
}

// deviceIndex extracts the numeric suffix of a device node path.
// "/dev/video12" yields 12; paths without a suffix yield 0.
func deviceIndex(path string) int {
	i := len(path)
	for i > 0 && path[i-1] >= '0' && path[i-1] <= '9' {
		i--
	}
	n := 0
	for _, c := range path[i:] {
		n = n*10 + int(c-'0')
	}
	return n
}

// Detector provides platform-specific device detection.
type Detector interface {
	// FindDevices returns all capture devices, probed for usability.
	FindDevices() ([]DeviceInfo, error)

	// UsableDevices returns only devices that passed the usability
	// probe. Returns ErrNoUsableDevice when none did.
	UsableDevices() ([]DeviceInfo, error)

	// GetDevicePathByID returns the device path for a stable device ID.
	GetDevicePathByID(deviceID string) (string, error)
}

// NewDetector creates a platform-specific device detector.
func NewDetector() Detector {
	return newDetector()
}

// usableOnly filters a probed device list, preserving order.
func usableOnly(all []DeviceInfo) ([]DeviceInfo, error) {
	usable := make([]DeviceInfo, 0, len(all))
	for _, d := range all {
		if d.Usable {
			usable = append(usable, d)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoUsableDevice
	}
	return usable, nil
}

// ResolveDevicePath converts a device ID to an openable device path.
func ResolveDevicePath(deviceID string) (string, error) {
	// If it's already a full path, use it directly
	if strings.HasPrefix(deviceID, "/dev/") {
		return deviceID, nil
	}
	return resolveStablePath(deviceID)
}
