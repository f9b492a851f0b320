//go:build linux

package camera

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/kamview/internal/logging"
	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

type session struct {
	dev    *v4l2.Device
	stream *v4l2.Stream
	format v4l2.PixFormat
	logger *slog.Logger
}

// open brings up a capture session step by step: open the node, commit
// MJPEG, verify the driver did not silently substitute another format,
// then start the buffer ring. Any failure releases what was acquired.
func open(path string) (Session, error) {
	dev, err := v4l2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", path, err)
	}

	format, err := dev.SetPixFormat(v4l2.PixFmtMJPEG)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to negotiate format on %s: %w", path, err)
	}
	if format.PixelFormat != v4l2.PixFmtMJPEG {
		dev.Close()
		return nil, fmt.Errorf("device %s substituted format %s: %w",
			path, v4l2.FormatFourCC(format.PixelFormat), ErrFormatRejected)
	}

	stream, err := v4l2.NewStream(dev, DefaultBufferCount)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to start stream on %s: %w", path, err)
	}

	logger := logging.GetLogger("camera")
	logger.Info("Capture session started",
		"device", path,
		"resolution", fmt.Sprintf("%dx%d", format.Width, format.Height),
		"fourcc", v4l2.FormatFourCC(format.PixelFormat))

	return &session{dev: dev, stream: stream, format: format, logger: logger}, nil
}

func (s *session) Path() string           { return s.dev.Path() }
func (s *session) Format() v4l2.PixFormat { return s.format }

func (s *session) NextFrame(timeoutMs int) ([]byte, error) {
	return s.stream.Next(timeoutMs)
}

func (s *session) QueryControls() ([]v4l2.ControlInfo, error) {
	return s.dev.QueryControls()
}

func (s *session) GetControl(id uint32) (int32, error) {
	return s.dev.GetControl(id)
}

func (s *session) SetControl(id uint32, value int32) error {
	return s.dev.SetControl(id, value)
}

func (s *session) Close() error {
	var firstErr error
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			firstErr = err
		}
		s.stream = nil
	}
	if s.dev != nil {
		if err := s.dev.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.dev = nil
	}
	s.logger.Debug("Capture session closed")
	return firstErr
}
