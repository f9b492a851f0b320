//go:build darwin

package devices

import (
	"fmt"
	"log"
)

// Mock devices for developing the UI on macOS.
var mockDevices = []DeviceInfo{
	{
		DevicePath: "/dev/video0",
		DeviceName: "Mock USB Webcam HD",
		DeviceID:   "usb-mock-webcam-001",
		Caps:       0x84000001, // VIDEO_CAPTURE | STREAMING | DEVICE_CAPS
		Usable:     true,
	},
	{
		DevicePath: "/dev/video1",
		DeviceName: "Mock USB Webcam (no MJPEG)",
		DeviceID:   "usb-mock-webcam-002",
		Caps:       0x84000001,
		Usable:     false,
	},
}

type darwinDetector struct{}

func newDetector() Detector {
	log.Println("INFO: Using mock V4L2 devices for testing on macOS")
	return &darwinDetector{}
}

// FindDevices returns mock devices for testing on macOS.
func (d *darwinDetector) FindDevices() ([]DeviceInfo, error) {
	return mockDevices, nil
}

// UsableDevices returns the mock devices that pretend to pass the probe.
func (d *darwinDetector) UsableDevices() ([]DeviceInfo, error) {
	return usableOnly(mockDevices)
}

// GetDevicePathByID returns the mock device path for a device ID.
func (d *darwinDetector) GetDevicePathByID(deviceID string) (string, error) {
	for _, dev := range mockDevices {
		if dev.DeviceID == deviceID {
			return dev.DevicePath, nil
		}
	}
	return "", fmt.Errorf("device not found: %s", deviceID)
}
