// Types in this file carry no syscall dependencies and build on every
// platform so UI code can reference control descriptors in mock mode.

package v4l2

import "errors"

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// PixFormat describes a committed capture format.
type PixFormat struct {
	Width       uint32
	Height      uint32
	PixelFormat uint32
	SizeImage   uint32
}

// ControlType identifies the kind of a hardware control.
type ControlType uint32

// Control types from videodev2.h. Values beyond IntegerMenu are reported
// as-is so callers can detect and skip kinds they do not handle.
const (
	CtrlTypeInteger     ControlType = 1
	CtrlTypeBoolean     ControlType = 2
	CtrlTypeMenu        ControlType = 3
	CtrlTypeButton      ControlType = 4
	CtrlTypeInteger64   ControlType = 5
	CtrlTypeClass       ControlType = 6
	CtrlTypeString      ControlType = 7
	CtrlTypeBitmask     ControlType = 8
	CtrlTypeIntegerMenu ControlType = 9
)

// ControlInfo is the raw descriptor of one hardware control as reported
// by VIDIOC_QUERYCTRL, plus menu items when the control is menu-valued.
type ControlInfo struct {
	ID      uint32
	Name    string
	Type    ControlType
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
	Items   []MenuItem // populated for Menu and IntegerMenu types only
}

// MenuItem is one (raw value, label) pair of a menu control. For integer
// menus the label is the decimal rendering of the item's value.
type MenuItem struct {
	Value int64
	Label string
}

// Capability flags.
const (
	V4L2_CAP_VIDEO_CAPTURE = 0x00000001
	V4L2_CAP_STREAMING     = 0x04000000
	V4L2_CAP_DEVICE_CAPS   = 0x80000000
)

// Format flags.
const (
	V4L2_FMT_FLAG_EMULATED = 0x0002
)

// Common pixel formats.
const (
	PixFmtYUYV  = 0x56595559 // 'YUYV'
	PixFmtMJPEG = 0x47504a4d // 'MJPG'
	PixFmtH264  = 0x34363248 // 'H264'
	PixFmtNV12  = 0x3231564e // 'NV12'
)

// Buffer type and memory model.
const (
	V4L2_BUF_TYPE_VIDEO_CAPTURE = 1
	V4L2_MEMORY_MMAP            = 1
)

// Control flags and ID ranges.
const (
	V4L2_CTRL_FLAG_DISABLED  = 0x00000001
	V4L2_CTRL_FLAG_NEXT_CTRL = 0x80000000

	V4L2_CID_BASE         = 0x00980900
	V4L2_CID_PRIVATE_BASE = 0x08000000
)

// ErrNoFrame is returned by Stream.Next when no buffer became ready
// within the bounded wait.
var ErrNoFrame = errors.New("v4l2: no frame available")
