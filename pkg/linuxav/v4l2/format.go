//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// GetFormats returns all supported pixel formats for a device.
func GetFormats(devicePath string) ([]FormatInfo, error) {
	fd, err := open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeFd(fd)

	var formats []FormatInfo

	for i := uint32(0); ; i++ {
		fmtdesc := v4l2_fmtdesc{
			index: i,
			typ:   V4L2_BUF_TYPE_VIDEO_CAPTURE,
		}

		if ioctlErr := ioctl(fd, VIDIOC_ENUM_FMT, unsafe.Pointer(&fmtdesc)); ioctlErr != nil {
			if errors.Is(ioctlErr, syscall.EINVAL) {
				break // End of enumeration
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, ioctlErr)
		}

		formats = append(formats, FormatInfo{
			PixelFormat: fmtdesc.pixelformat,
			FormatName:  cstr(fmtdesc.description[:]),
			Emulated:    fmtdesc.flags&V4L2_FMT_FLAG_EMULATED != 0,
		})
	}

	return formats, nil
}

// GetPixFormat reads the currently committed capture format.
func (d *Device) GetPixFormat() (PixFormat, error) {
	format := v4l2_format{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	if err := ioctl(d.fd, VIDIOC_G_FMT, unsafe.Pointer(&format)); err != nil {
		return PixFormat{}, fmt.Errorf("failed to get format: %w", err)
	}
	return pixFromRaw(format.pix()), nil
}

// SetPixFormat requests the given pixel encoding, keeping whatever frame
// size the driver currently has, and returns the format the hardware
// actually committed. Drivers may substitute a different encoding; the
// caller must compare the returned PixelFormat against the request.
func (d *Device) SetPixFormat(pixelFormat uint32) (PixFormat, error) {
	format := v4l2_format{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	if err := ioctl(d.fd, VIDIOC_G_FMT, unsafe.Pointer(&format)); err != nil {
		return PixFormat{}, fmt.Errorf("failed to get current format: %w", err)
	}

	format.pix().pixelformat = pixelFormat
	if err := ioctl(d.fd, VIDIOC_S_FMT, unsafe.Pointer(&format)); err != nil {
		return PixFormat{}, fmt.Errorf("failed to set format: %w", err)
	}

	return pixFromRaw(format.pix()), nil
}

func pixFromRaw(pix *v4l2_pix_format) PixFormat {
	return PixFormat{
		Width:       pix.width,
		Height:      pix.height,
		PixelFormat: pix.pixelformat,
		SizeImage:   pix.sizeimage,
	}
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}

// FourCC builds a pixel format code from its four-character name.
func FourCC(s string) uint32 {
	if len(s) != 4 {
		return 0
	}
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}
