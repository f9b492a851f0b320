//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format negotiation, hardware controls, and
// memory-mapped frame capture.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Format Negotiation
//
// Open a device, request an encoding, and check what the hardware
// actually committed (drivers may silently substitute another format):
//
//	dev, _ := v4l2.Open("/dev/video0")
//	got, _ := dev.SetPixFormat(v4l2.PixFmtMJPEG)
//	if got.PixelFormat != v4l2.PixFmtMJPEG {
//	    // device does not deliver MJPG
//	}
//
// # Controls
//
// QueryControls returns the descriptors of every control the device
// exposes, including menu items for menu-valued controls. Integer and
// boolean controls can be read back with GetControl; menu controls
// cannot (VIDIOC_G_CTRL reports the raw index but drivers are unreliable
// about it for menus queried through the legacy control interface, and
// callers here treat menu state as write-only).
//
// # Streaming
//
// NewStream allocates mmap'd kernel buffers and starts capture;
// Stream.Next performs one bounded-wait dequeue:
//
//	stream, _ := v4l2.NewStream(dev, 4)
//	frame, err := stream.Next(100) // wait at most 100ms
package v4l2
