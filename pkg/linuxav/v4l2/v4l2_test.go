//go:build linux

package v4l2

import "testing"

func TestFourCCRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		code uint32
	}{
		{"MJPG", PixFmtMJPEG},
		{"YUYV", PixFmtYUYV},
		{"H264", PixFmtH264},
		{"NV12", PixFmtNV12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FourCC(tt.name); got != tt.code {
				t.Errorf("FourCC(%q) = 0x%08x, want 0x%08x", tt.name, got, tt.code)
			}
			if got := FormatFourCC(tt.code); got != tt.name {
				t.Errorf("FormatFourCC(0x%08x) = %q, want %q", tt.code, got, tt.name)
			}
		})
	}
}

func TestCstr(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"terminated", []byte{'B', 'r', 'i', 'g', 'h', 't', 0, 'x', 'x'}, "Bright"},
		{"full", []byte{'a', 'b', 'c'}, "abc"},
		{"empty", []byte{0, 0, 0}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cstr(tt.in); got != tt.want {
				t.Errorf("cstr(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
