package devices

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smazurov/kamview/internal/logging"
)

// Monitor watches /dev for video node churn and re-enumerates devices
// when nodes appear or disappear. Changes are reported as a full fresh
// device list so consumers never diff stale state.
type Monitor struct {
	detector Detector
	debounce time.Duration
	handler  func([]DeviceInfo)
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewMonitor creates a device monitor. The handler receives the probed
// device list after each change settles.
func NewMonitor(detector Detector, handler func([]DeviceInfo)) *Monitor {
	return &Monitor{
		detector: detector,
		debounce: 1500 * time.Millisecond,
		handler:  handler,
		logger:   logging.GetLogger("devices"),
	}
}

// Start begins watching for device changes.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add("/dev"); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	ctx, m.cancel = context.WithCancel(ctx)
	go m.watch(ctx)

	m.logger.Info("Device monitoring started", "debounce", m.debounce)
	return nil
}

// Stop stops watching and cleans up resources.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.watcher != nil {
		err := m.watcher.Close()
		m.watcher = nil
		return err
	}
	return nil
}

// watch is the main loop that listens for video node changes.
func (m *Monitor) watch(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			m.logger.Debug("Device monitor stopped")
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(event.Name, "/dev/video") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove) != 0 {
				m.logger.Debug("Video node change detected", "node", event.Name, "op", event.Op.String())

				// Debounce: the kernel enumerates several nodes per
				// physical device, so wait for the churn to settle.
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(m.debounce)
				timerC = timer.C
			}

		case <-timerC:
			m.rescan()
			timerC = nil

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Device monitor error", "error", err)
		}
	}
}

// rescan re-enumerates devices and notifies the handler.
func (m *Monitor) rescan() {
	devices, err := m.detector.FindDevices()
	if err != nil {
		m.logger.Error("Failed to enumerate devices after change", "error", err)
		return
	}

	m.logger.Info("Device list refreshed", "count", len(devices))
	if m.handler != nil {
		m.handler(devices)
	}
}
