//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// Stream is an active memory-mapped capture stream on a device. It owns
// a small ring of kernel buffers; frames are copied out on dequeue so
// callers never hold a mapped buffer across ticks.
type Stream struct {
	dev     *Device
	buffers [][]byte
	on      bool
}

// NewStream requests count mmap buffers, queues them all and starts
// streaming. The device must already have its capture format committed.
func NewStream(dev *Device, count uint32) (*Stream, error) {
	req := v4l2_requestbuffers{
		count:  count,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err := ioctl(dev.fd, VIDIOC_REQBUFS, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("failed to request buffers: %w", err)
	}
	if req.count == 0 {
		return nil, errors.New("driver granted no buffers")
	}

	s := &Stream{dev: dev, buffers: make([][]byte, 0, req.count)}

	for i := uint32(0); i < req.count; i++ {
		buf := v4l2_buffer{
			index:  i,
			typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
			memory: V4L2_MEMORY_MMAP,
		}
		if err := ioctl(dev.fd, VIDIOC_QUERYBUF, unsafe.Pointer(&buf)); err != nil {
			s.release()
			return nil, fmt.Errorf("failed to query buffer %d: %w", i, err)
		}

		data, err := syscall.Mmap(dev.fd, int64(buf.offset()), int(buf.length),
			syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("failed to map buffer %d: %w", i, err)
		}
		s.buffers = append(s.buffers, data)

		if err := ioctl(dev.fd, VIDIOC_QBUF, unsafe.Pointer(&buf)); err != nil {
			s.release()
			return nil, fmt.Errorf("failed to queue buffer %d: %w", i, err)
		}
	}

	streamType := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	if err := ioctl(dev.fd, VIDIOC_STREAMON, unsafe.Pointer(&streamType)); err != nil {
		s.release()
		return nil, fmt.Errorf("failed to start streaming: %w", err)
	}
	s.on = true

	return s, nil
}

// Next waits up to timeoutMs for a filled buffer, dequeues it, copies the
// payload out and immediately requeues the buffer. Returns ErrNoFrame if
// nothing became ready within the wait.
func (s *Stream) Next(timeoutMs int) ([]byte, error) {
	ready, err := waitReadable(s.dev.fd, timeoutMs)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for frame: %w", err)
	}
	if !ready {
		return nil, ErrNoFrame
	}

	buf := v4l2_buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err := ioctl(s.dev.fd, VIDIOC_DQBUF, unsafe.Pointer(&buf)); err != nil {
		if errors.Is(err, syscall.EAGAIN) {
			return nil, ErrNoFrame
		}
		return nil, fmt.Errorf("failed to dequeue buffer: %w", err)
	}

	if int(buf.index) >= len(s.buffers) {
		return nil, fmt.Errorf("driver returned out-of-range buffer index %d", buf.index)
	}

	n := int(buf.bytesused)
	if n > len(s.buffers[buf.index]) {
		n = len(s.buffers[buf.index])
	}
	frame := make([]byte, n)
	copy(frame, s.buffers[buf.index][:n])

	if err := ioctl(s.dev.fd, VIDIOC_QBUF, unsafe.Pointer(&buf)); err != nil {
		return frame, fmt.Errorf("failed to requeue buffer %d: %w", buf.index, err)
	}

	return frame, nil
}

// Close stops streaming and releases all mapped buffers. Safe to call
// more than once.
func (s *Stream) Close() error {
	var firstErr error
	if s.on {
		streamType := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
		if err := ioctl(s.dev.fd, VIDIOC_STREAMOFF, unsafe.Pointer(&streamType)); err != nil {
			firstErr = fmt.Errorf("failed to stop streaming: %w", err)
		}
		s.on = false
	}
	s.release()
	return firstErr
}

// release unmaps every buffer and asks the driver to drop its ring.
func (s *Stream) release() {
	for _, b := range s.buffers {
		_ = syscall.Munmap(b)
	}
	s.buffers = nil

	// Returning the count to zero frees the kernel-side buffers; some
	// drivers reject this while a stream is active, so errors are ignored.
	req := v4l2_requestbuffers{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	_ = ioctl(s.dev.fd, VIDIOC_REQBUFS, unsafe.Pointer(&req))
}

// waitReadable blocks until fd has data to read or the timeout passes.
func waitReadable(fd, timeoutMs int) (bool, error) {
	for {
		var fds syscall.FdSet
		fdSet(&fds, fd)
		tv := syscall.NsecToTimeval(int64(timeoutMs) * 1e6)
		n, err := syscall.Select(fd+1, &fds, nil, nil, &tv)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return false, err
		}
		return n > 0, nil
	}
}
