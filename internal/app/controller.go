// Package app hosts the single-threaded synchronization loop. One tick
// drains queued UI intents, performs at most one device switch, runs the
// control read/present/write cycle, and decodes at most one frame. All
// device state is owned by the tick goroutine; the event bus is the only
// way in from outside.
package app

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/kamview/internal/camera"
	"github.com/smazurov/kamview/internal/capture"
	"github.com/smazurov/kamview/internal/config"
	"github.com/smazurov/kamview/internal/controls"
	"github.com/smazurov/kamview/internal/devices"
	"github.com/smazurov/kamview/internal/events"
	"github.com/smazurov/kamview/internal/frame"
	"github.com/smazurov/kamview/internal/logging"
	"github.com/smazurov/kamview/internal/metrics"
	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

// Options configures a Controller.
type Options struct {
	// OpenSession overrides how capture sessions are created. Defaults
	// to camera.Open.
	OpenSession func(path string) (camera.Session, error)

	// CaptureDir overrides the capture destination. Empty resolves the
	// platform pictures directory.
	CaptureDir string

	// Presets stores named control snapshots. Nil disables preset
	// handling.
	Presets *config.PresetManager
}

// intents collects requests queued by bus subscribers between ticks.
// The bus delivers on its own goroutines; the tick loop drains this
// under the mutex and applies everything single-threaded.
type intents struct {
	mu             sync.Mutex
	switchTo       string // device path, "" when no switch requested
	edits          []events.ControlEditedEvent
	takePhoto      bool
	restore        bool
	refreshDevices []devices.DeviceInfo
	hasRefresh     bool
	savePreset     string
	applyPreset    string
}

// Controller owns the active capture session and drives one tick at a
// time. Apart from the intent queue it is confined to the tick
// goroutine.
type Controller struct {
	detector    devices.Detector
	bus         *events.Bus
	saver       *capture.Saver
	presets     *config.PresetManager
	openSession func(path string) (camera.Session, error)
	logger      *slog.Logger

	devices  []devices.DeviceInfo
	active   devices.DeviceInfo
	session  camera.Session
	sync     *controls.Synchronizer
	pipeline *frame.Pipeline

	frame  *image.NRGBA
	status string

	queue   intents
	unsubs  []func()
	started bool
}

// New creates a controller. Call Start before the first Tick.
func New(detector devices.Detector, bus *events.Bus, opts Options) *Controller {
	open := opts.OpenSession
	if open == nil {
		open = camera.Open
	}

	c := &Controller{
		detector:    detector,
		bus:         bus,
		saver:       capture.NewSaver(opts.CaptureDir),
		presets:     opts.Presets,
		openSession: open,
		logger:      logging.GetLogger("app"),
	}
	c.subscribe()
	return c
}

// subscribe queues bus intents for the next tick.
func (c *Controller) subscribe() {
	c.unsubs = append(c.unsubs,
		c.bus.Subscribe(func(e events.SelectDeviceEvent) {
			c.queue.mu.Lock()
			c.queue.switchTo = e.DevicePath
			c.queue.mu.Unlock()
		}),
		c.bus.Subscribe(func(e events.ControlEditedEvent) {
			c.queue.mu.Lock()
			c.queue.edits = append(c.queue.edits, e)
			c.queue.mu.Unlock()
		}),
		c.bus.Subscribe(func(events.TakePhotoEvent) {
			c.queue.mu.Lock()
			c.queue.takePhoto = true
			c.queue.mu.Unlock()
		}),
		c.bus.Subscribe(func(events.RestoreDefaultsEvent) {
			c.queue.mu.Lock()
			c.queue.restore = true
			c.queue.mu.Unlock()
		}),
		c.bus.Subscribe(func(e events.SavePresetEvent) {
			c.queue.mu.Lock()
			c.queue.savePreset = e.Name
			c.queue.mu.Unlock()
		}),
		c.bus.Subscribe(func(e events.ApplyPresetEvent) {
			c.queue.mu.Lock()
			c.queue.applyPreset = e.Name
			c.queue.mu.Unlock()
		}),
	)
}

// UpdateDevices replaces the device list on the next tick. Wired to the
// hotplug monitor.
func (c *Controller) UpdateDevices(list []devices.DeviceInfo) {
	c.queue.mu.Lock()
	c.queue.refreshDevices = list
	c.queue.hasRefresh = true
	c.queue.mu.Unlock()
}

// Start enumerates devices and opens the first usable one. This is the
// only place where failure is fatal: a preview app with no camera has
// nothing to show.
func (c *Controller) Start() error {
	usable, err := c.detector.UsableDevices()
	if err != nil {
		return err
	}

	all, err := c.detector.FindDevices()
	if err != nil {
		return err
	}
	c.devices = all

	var lastErr error
	for _, dev := range usable {
		if err := c.open(dev); err != nil {
			c.logger.Warn("Startup open failed, trying next device",
				"device", dev.DevicePath, "error", err)
			lastErr = err
			continue
		}
		c.started = true
		return nil
	}

	if lastErr == nil {
		lastErr = devices.ErrNoUsableDevice
	}
	return fmt.Errorf("failed to open any usable device: %w", lastErr)
}

// open brings up a session on dev. The previous session is fully torn
// down first: nodes of the same physical camera share exclusive
// hardware access, so the old stream must release its buffers before
// the new one negotiates. A failed open therefore leaves no active
// session; the tick loop idles until the next switch.
func (c *Controller) open(dev devices.DeviceInfo) error {
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.logger.Warn("Closing previous session failed", "error", err)
		}
		c.session = nil
		c.pipeline = nil
		c.sync = nil
		c.frame = nil
	}

	session, err := c.openSession(dev.DevicePath)
	if err != nil {
		return err
	}

	c.session = session
	c.active = dev
	c.pipeline = frame.NewPipeline(session)
	c.sync = controls.NewSynchronizer(session)
	c.sync.LoadCatalog()
	c.frame = nil

	format := session.Format()
	c.status = fmt.Sprintf("%s %dx%d", dev.DeviceName, format.Width, format.Height)
	c.bus.Publish(events.DeviceOpenedEvent{
		DevicePath: dev.DevicePath,
		DeviceID:   dev.DeviceID,
		DeviceName: dev.DeviceName,
		Width:      format.Width,
		Height:     format.Height,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
	return nil
}

// Tick runs one cycle of the synchronization loop.
func (c *Controller) Tick() {
	start := time.Now()
	defer func() {
		metrics.ObserveTick(time.Since(start).Seconds())
	}()

	c.queue.mu.Lock()
	switchTo := c.queue.switchTo
	edits := c.queue.edits
	takePhoto := c.queue.takePhoto
	restore := c.queue.restore
	refresh := c.queue.refreshDevices
	hasRefresh := c.queue.hasRefresh
	savePreset := c.queue.savePreset
	applyPreset := c.queue.applyPreset
	c.queue.switchTo = ""
	c.queue.edits = nil
	c.queue.takePhoto = false
	c.queue.restore = false
	c.queue.refreshDevices = nil
	c.queue.hasRefresh = false
	c.queue.savePreset = ""
	c.queue.applyPreset = ""
	c.queue.mu.Unlock()

	if hasRefresh {
		c.devices = refresh
	}

	if switchTo != "" {
		c.switchDevice(switchTo)
	}

	if c.session == nil {
		return
	}

	for _, e := range edits {
		if e.MenuLabel != "" {
			c.sync.EditMenu(e.ControlName, e.MenuLabel)
		} else {
			c.sync.Edit(e.ControlName, e.Value)
		}
	}

	if restore {
		c.sync.RestoreDefaults()
	}

	if applyPreset != "" {
		c.applyControlPreset(applyPreset)
	}

	c.sync.Tick()

	if savePreset != "" {
		c.saveControlPreset(savePreset)
	}

	img, err := c.pipeline.Tick()
	switch {
	case err == nil:
		c.frame = img
		metrics.IncFrameDecoded()
	case errors.Is(err, v4l2.ErrNoFrame):
		// Keep the previous frame on screen.
	default:
		metrics.IncFrameDropped()
	}

	if takePhoto {
		c.savePhoto()
	}
}

// switchDevice handles a queued device selection. Selecting the device
// that is already active is detected by comparing paths and skipped
// entirely, so the stream never glitches on a redundant pick.
func (c *Controller) switchDevice(path string) {
	if c.session != nil && path == c.active.DevicePath {
		c.logger.Debug("Device switch is a no-op", "device", path)
		return
	}

	target := devices.DeviceInfo{DevicePath: path}
	for _, dev := range c.devices {
		if dev.DevicePath == path {
			target = dev
			break
		}
	}

	if err := c.open(target); err != nil {
		// The old session is already released; nothing streams until
		// the operator picks a device that opens.
		c.status = fmt.Sprintf("Failed to open %s", path)
		c.logger.Error("Device switch failed", "device", path, "error", err)
		c.bus.Publish(events.DeviceLostEvent{
			DevicePath: path,
			Error:      err.Error(),
			Timestamp:  time.Now().Format(time.RFC3339),
		})
		return
	}

	metrics.IncDeviceSwitch()
	c.logger.Info("Switched device", "device", path, "name", target.DeviceName)
}

// savePhoto writes the latest compressed frame to disk.
func (c *Controller) savePhoto() {
	data := c.pipeline.Raw()
	if data == nil {
		c.status = "No frame to save yet"
		metrics.IncCapture(false)
		c.bus.Publish(events.CaptureFailedEvent{
			Error:     "no frame available",
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	path, err := c.saver.Save(data)
	if err != nil {
		c.status = fmt.Sprintf("Capture failed: %v", err)
		metrics.IncCapture(false)
		c.bus.Publish(events.CaptureFailedEvent{
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	c.status = fmt.Sprintf("Saved capture: %s", path)
	metrics.IncCapture(true)
	c.bus.Publish(events.CaptureSavedEvent{
		Path:      path,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// deviceKey picks the stable identifier presets are keyed on, falling
// back to the path for devices without a by-id link.
func (c *Controller) deviceKey() string {
	if c.active.DeviceID != "" {
		return c.active.DeviceID
	}
	return c.active.DevicePath
}

// saveControlPreset snapshots the current catalog under name. Menu
// controls contribute their tracked selection; a selection that was
// never confirmed is left out rather than guessed.
func (c *Controller) saveControlPreset(name string) {
	if c.presets == nil {
		return
	}

	preset := config.ControlPreset{
		Name:           name,
		Device:         c.deviceKey(),
		Values:         make(map[string]int32),
		MenuSelections: make(map[string]string),
	}
	for _, ctrl := range c.sync.Controls() {
		switch ctrl.Kind {
		case controls.KindInteger, controls.KindBoolean:
			preset.Values[ctrl.Name] = ctrl.Value
		case controls.KindMenu:
			if sel := c.sync.MenuSelection(ctrl.Name); sel != controls.UnknownSelection {
				preset.MenuSelections[ctrl.Name] = sel
			}
		}
	}

	if err := c.presets.SetPreset(preset); err != nil {
		c.status = fmt.Sprintf("Preset save failed: %v", err)
		c.logger.Error("Failed to save preset", "preset", name, "error", err)
		return
	}
	c.status = fmt.Sprintf("Saved preset: %s", name)
	c.logger.Info("Saved preset", "preset", name, "device", preset.Device)
}

// applyControlPreset queues a stored preset's values as pending edits.
// The regular write phase applies them, so clamping and menu label
// resolution behave exactly as manual edits do.
func (c *Controller) applyControlPreset(name string) {
	if c.presets == nil {
		return
	}

	preset, ok := c.presets.GetPreset(name)
	if !ok {
		c.status = fmt.Sprintf("Preset not found: %s", name)
		return
	}
	if preset.Device != c.deviceKey() {
		c.status = fmt.Sprintf("Preset %s was saved for another device", name)
		c.logger.Warn("Preset device mismatch",
			"preset", name, "saved_for", preset.Device, "active", c.deviceKey())
		return
	}

	for ctrlName, value := range preset.Values {
		c.sync.Edit(ctrlName, value)
	}
	for ctrlName, label := range preset.MenuSelections {
		c.sync.EditMenu(ctrlName, label)
	}
	c.status = fmt.Sprintf("Applied preset: %s", name)
	c.logger.Info("Applied preset", "preset", name)
}

// CaptureDir returns the directory captures are written to.
func (c *Controller) CaptureDir() string {
	return c.saver.Dir()
}

// Frame returns the latest decoded raster, or nil before the first
// frame arrives.
func (c *Controller) Frame() *image.NRGBA {
	return c.frame
}

// Status returns the one-line status for the UI.
func (c *Controller) Status() string {
	return c.status
}

// Devices returns the last enumerated device list.
func (c *Controller) Devices() []devices.DeviceInfo {
	return c.devices
}

// ActiveDevice returns the device currently streaming.
func (c *Controller) ActiveDevice() devices.DeviceInfo {
	return c.active
}

// Controls returns the active device's control catalog.
func (c *Controller) Controls() []controls.Control {
	if c.sync == nil {
		return nil
	}
	return c.sync.Controls()
}

// MenuSelection returns the tracked selection of a menu control.
func (c *Controller) MenuSelection(name string) string {
	if c.sync == nil {
		return controls.UnknownSelection
	}
	return c.sync.MenuSelection(name)
}

// Close tears down the session and bus subscriptions.
func (c *Controller) Close() error {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil

	if c.session != nil {
		err := c.session.Close()
		c.session = nil
		return err
	}
	return nil
}
