// Package camera manages the lifecycle of one open capture device: the
// negotiated MJPEG format, the kernel buffer ring, and raw control
// access. A Session is single-owner and not safe for concurrent use;
// the tick loop is the only caller.
package camera

import (
	"errors"

	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

// ErrFormatRejected means the driver accepted S_FMT but substituted a
// pixel format other than MJPG. Such devices are unusable for preview.
var ErrFormatRejected = errors.New("device does not support MJPG")

// DefaultBufferCount is the depth of the kernel buffer ring. Preview
// only ever shows the newest frame, so the ring stays small to keep
// latency down.
const DefaultBufferCount = 4

// Session is an open capture device with a committed format and an
// active stream.
type Session interface {
	// Path returns the device node path.
	Path() string

	// Format returns the committed capture format.
	Format() v4l2.PixFormat

	// NextFrame dequeues one compressed frame, waiting at most
	// timeoutMs. Returns v4l2.ErrNoFrame when nothing arrived in time.
	NextFrame(timeoutMs int) ([]byte, error)

	// QueryControls returns the device's control descriptors.
	QueryControls() ([]v4l2.ControlInfo, error)

	// GetControl reads the current value of a control.
	GetControl(id uint32) (int32, error)

	// SetControl writes a new value to a control.
	SetControl(id uint32, value int32) error

	// Close stops streaming and releases the device.
	Close() error
}

// Open opens the device at path and negotiates an MJPEG stream.
func Open(path string) (Session, error) {
	return open(path)
}
