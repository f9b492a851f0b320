//go:build linux

package devices

import (
	"log/slog"

	"github.com/smazurov/kamview/internal/logging"
	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

type linuxDetector struct {
	logger *slog.Logger
}

func newDetector() Detector {
	return &linuxDetector{
		logger: logging.GetLogger("devices"),
	}
}

// FindDevices returns all capture devices with their usability probed.
func (d *linuxDetector) FindDevices() ([]DeviceInfo, error) {
	v4l2Devices, err := v4l2.FindDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, len(v4l2Devices))
	for i, dev := range v4l2Devices {
		usable := d.probe(dev.DevicePath)
		devices[i] = DeviceInfo{
			DevicePath: dev.DevicePath,
			DeviceName: dev.DeviceName,
			DeviceID:   dev.DeviceID,
			Caps:       dev.Caps,
			Usable:     usable,
		}
	}

	return devices, nil
}

// UsableDevices returns only devices that passed the probe.
func (d *linuxDetector) UsableDevices() ([]DeviceInfo, error) {
	all, err := d.FindDevices()
	if err != nil {
		return nil, err
	}
	return usableOnly(all)
}

// GetDevicePathByID returns the device path for a stable device ID.
func (d *linuxDetector) GetDevicePathByID(deviceID string) (string, error) {
	return v4l2.GetDevicePathByID(deviceID)
}

// probe checks whether a device can actually deliver MJPEG frames: open
// it, commit the format, verify the driver did not substitute another
// fourcc, bring up a trial stream, then release everything. Devices that
// fail any step are listed as unusable rather than dropped so the picker
// can still show them.
func (d *linuxDetector) probe(path string) bool {
	dev, err := v4l2.Open(path)
	if err != nil {
		d.logger.Debug("Probe open failed", "device", path, "error", err)
		return false
	}
	defer dev.Close()

	committed, err := dev.SetPixFormat(v4l2.PixFmtMJPEG)
	if err != nil {
		d.logger.Debug("Probe format commit failed", "device", path, "error", err)
		return false
	}
	if committed.PixelFormat != v4l2.PixFmtMJPEG {
		d.logger.Debug("Probe format substituted",
			"device", path, "fourcc", v4l2.FormatFourCC(committed.PixelFormat))
		return false
	}

	stream, err := v4l2.NewStream(dev, 1)
	if err != nil {
		d.logger.Debug("Probe stream failed", "device", path, "error", err)
		return false
	}
	_ = stream.Close()

	return true
}
