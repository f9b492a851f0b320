// Package frame turns compressed camera frames into rasters the UI can
// draw. One frame is decoded per tick; a tick with no frame or a broken
// frame leaves the previous raster on screen.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/smazurov/kamview/internal/logging"
	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

// DefaultDequeueTimeoutMs bounds the per-tick wait for a frame so a
// stalled device cannot freeze the tick loop.
const DefaultDequeueTimeoutMs = 100

// Source delivers compressed frames. Implemented by camera.Session.
type Source interface {
	NextFrame(timeoutMs int) ([]byte, error)
}

// Pipeline decodes MJPEG frames into NRGBA rasters. The output is
// always 8-bit 4-channel with non-premultiplied alpha, which is what
// the viewer uploads to the GPU.
type Pipeline struct {
	source    Source
	timeoutMs int
	logger    *slog.Logger

	decoded uint64
	dropped uint64
	lastRaw []byte
}

// NewPipeline creates a pipeline reading from the given source.
func NewPipeline(source Source) *Pipeline {
	return &Pipeline{
		source:    source,
		timeoutMs: DefaultDequeueTimeoutMs,
		logger:    logging.GetLogger("frame"),
	}
}

// Tick dequeues and decodes at most one frame. Returns v4l2.ErrNoFrame
// when the device produced nothing within the wait; other errors mean
// the dequeued frame could not be decoded. Both are per-tick conditions
// and never fatal.
func (p *Pipeline) Tick() (*image.NRGBA, error) {
	data, err := p.source.NextFrame(p.timeoutMs)
	if err != nil {
		if !errors.Is(err, v4l2.ErrNoFrame) {
			p.dropped++
			p.logger.Debug("Frame dequeue failed", "error", err)
		}
		return nil, err
	}

	img, err := Decode(data)
	if err != nil {
		p.dropped++
		p.logger.Debug("Frame decode failed", "bytes", len(data), "error", err)
		return nil, err
	}

	p.decoded++
	p.lastRaw = data
	return img, nil
}

// Raw returns the compressed bytes of the most recently decoded frame,
// or nil when nothing has been decoded yet. Capture writes these bytes
// straight to disk so the saved file keeps the camera's own encoding.
func (p *Pipeline) Raw() []byte {
	return p.lastRaw
}

// Counts returns the number of frames decoded and dropped so far.
func (p *Pipeline) Counts() (decoded, dropped uint64) {
	return p.decoded, p.dropped
}

// Decode decodes one JPEG frame into a non-premultiplied NRGBA raster.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	// Clone always yields *image.NRGBA regardless of the decoder's
	// native color model.
	return imaging.Clone(img), nil
}
