//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"strconv"
	"syscall"
	"unsafe"
)

// QueryControls returns the descriptors of every control the device
// exposes, in driver order. Disabled controls and control-class markers
// are omitted; everything else is returned as reported so callers can
// decide which kinds they handle.
//
// Enumeration uses the NEXT_CTRL flag when the driver supports it and
// falls back to scanning the standard and private ID ranges otherwise.
func (d *Device) QueryControls() ([]ControlInfo, error) {
	probe := v4l2_queryctrl{id: V4L2_CTRL_FLAG_NEXT_CTRL}
	err := ioctl(d.fd, VIDIOC_QUERYCTRL, unsafe.Pointer(&probe))
	switch {
	case err == nil:
		return d.queryControlsChained(&probe)
	case errors.Is(err, syscall.EINVAL), errors.Is(err, syscall.ENOTTY):
		return d.queryControlsScanned()
	default:
		return nil, fmt.Errorf("failed to query controls: %w", err)
	}
}

// queryControlsChained walks the control list via NEXT_CTRL, starting
// from an already-filled first descriptor.
func (d *Device) queryControlsChained(first *v4l2_queryctrl) ([]ControlInfo, error) {
	var controls []ControlInfo
	qc := *first
	for {
		if info, ok := d.describe(&qc); ok {
			controls = append(controls, info)
		}

		qc = v4l2_queryctrl{id: qc.id | V4L2_CTRL_FLAG_NEXT_CTRL}
		if err := ioctl(d.fd, VIDIOC_QUERYCTRL, unsafe.Pointer(&qc)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				return controls, nil // end of list
			}
			return controls, fmt.Errorf("failed to query control after 0x%x: %w", qc.id, err)
		}
	}
}

// queryControlsScanned brute-forces the legacy ID ranges for drivers
// that predate NEXT_CTRL enumeration.
func (d *Device) queryControlsScanned() ([]ControlInfo, error) {
	var controls []ControlInfo
	scan := func(from, to uint32) {
		for id := from; id < to; id++ {
			qc := v4l2_queryctrl{id: id}
			if err := ioctl(d.fd, VIDIOC_QUERYCTRL, unsafe.Pointer(&qc)); err != nil {
				continue
			}
			if info, ok := d.describe(&qc); ok {
				controls = append(controls, info)
			}
		}
	}
	scan(V4L2_CID_BASE, V4L2_CID_BASE+64)
	scan(V4L2_CID_PRIVATE_BASE, V4L2_CID_PRIVATE_BASE+128)
	return controls, nil
}

// describe converts a raw queryctrl result into a ControlInfo, fetching
// menu items when the control is menu-valued. Disabled controls and
// class markers report ok=false.
func (d *Device) describe(qc *v4l2_queryctrl) (ControlInfo, bool) {
	if qc.flags&V4L2_CTRL_FLAG_DISABLED != 0 || ControlType(qc.typ) == CtrlTypeClass {
		return ControlInfo{}, false
	}

	info := ControlInfo{
		ID:      qc.id,
		Name:    cstr(qc.name[:]),
		Type:    ControlType(qc.typ),
		Minimum: qc.minimum,
		Maximum: qc.maximum,
		Step:    qc.step,
		Default: qc.default_value,
	}

	if info.Type == CtrlTypeMenu || info.Type == CtrlTypeIntegerMenu {
		info.Items = d.queryMenuItems(qc)
	}

	return info, true
}

// queryMenuItems enumerates the valid (value, label) pairs of a menu
// control. Indexes inside [minimum, maximum] that the driver rejects are
// simply absent from the result.
func (d *Device) queryMenuItems(qc *v4l2_queryctrl) []MenuItem {
	var items []MenuItem
	for idx := qc.minimum; idx <= qc.maximum; idx++ {
		qm := v4l2_querymenu{id: qc.id, index: uint32(idx)}
		if err := ioctl(d.fd, VIDIOC_QUERYMENU, unsafe.Pointer(&qm)); err != nil {
			continue
		}

		item := MenuItem{Value: int64(idx)}
		if ControlType(qc.typ) == CtrlTypeIntegerMenu {
			// The union carries an int64 value instead of a name.
			item.Value = *(*int64)(unsafe.Pointer(&qm.name[0]))
			item.Label = strconv.FormatInt(item.Value, 10)
		} else {
			item.Label = cstr(qm.name[:])
		}
		items = append(items, item)
	}
	return items
}

// GetControl reads the current value of a control.
func (d *Device) GetControl(id uint32) (int32, error) {
	ctrl := v4l2_control{id: id}
	if err := ioctl(d.fd, VIDIOC_G_CTRL, unsafe.Pointer(&ctrl)); err != nil {
		return 0, fmt.Errorf("failed to get control 0x%x: %w", id, err)
	}
	return ctrl.value, nil
}

// SetControl writes a new value to a control.
func (d *Device) SetControl(id uint32, value int32) error {
	ctrl := v4l2_control{id: id, value: value}
	if err := ioctl(d.fd, VIDIOC_S_CTRL, unsafe.Pointer(&ctrl)); err != nil {
		return fmt.Errorf("failed to set control 0x%x: %w", id, err)
	}
	return nil
}
