package app

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/kamview/internal/camera"
	"github.com/smazurov/kamview/internal/config"
	"github.com/smazurov/kamview/internal/controls"
	"github.com/smazurov/kamview/internal/devices"
	"github.com/smazurov/kamview/internal/events"
	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

// fakeSession implements camera.Session against canned data.
type fakeSession struct {
	path     string
	frames   [][]byte
	controls []v4l2.ControlInfo
	values   map[uint32]int32
	closed   bool
}

func (f *fakeSession) Path() string { return f.path }

func (f *fakeSession) Format() v4l2.PixFormat {
	return v4l2.PixFormat{Width: 64, Height: 48, PixelFormat: v4l2.PixFmtMJPEG}
}

func (f *fakeSession) NextFrame(_ int) ([]byte, error) {
	if len(f.frames) == 0 {
		return nil, v4l2.ErrNoFrame
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, nil
}

func (f *fakeSession) QueryControls() ([]v4l2.ControlInfo, error) { return f.controls, nil }

func (f *fakeSession) GetControl(id uint32) (int32, error) {
	v, ok := f.values[id]
	if !ok {
		return 0, errors.New("no such control")
	}
	return v, nil
}

func (f *fakeSession) SetControl(id uint32, value int32) error {
	f.values[id] = value
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// fakeDetector returns a fixed device list.
type fakeDetector struct {
	list []devices.DeviceInfo
}

func (f *fakeDetector) FindDevices() ([]devices.DeviceInfo, error) { return f.list, nil }

func (f *fakeDetector) UsableDevices() ([]devices.DeviceInfo, error) {
	var usable []devices.DeviceInfo
	for _, d := range f.list {
		if d.Usable {
			usable = append(usable, d)
		}
	}
	if len(usable) == 0 {
		return nil, devices.ErrNoUsableDevice
	}
	return usable, nil
}

func (f *fakeDetector) GetDevicePathByID(string) (string, error) {
	return "", errors.New("not implemented")
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

type testRig struct {
	controller *Controller
	bus        *events.Bus
	sessions   map[string]*fakeSession
	opens      map[string]int
	failOpen   map[string]bool
}

func newRig(t *testing.T, devList []devices.DeviceInfo, frames map[string][][]byte) *testRig {
	t.Helper()

	rig := &testRig{
		bus:      events.New(),
		sessions: make(map[string]*fakeSession),
		opens:    make(map[string]int),
		failOpen: make(map[string]bool),
	}

	open := func(path string) (camera.Session, error) {
		rig.opens[path]++
		if rig.failOpen[path] {
			return nil, errors.New("device busy")
		}
		s := &fakeSession{
			path:   path,
			frames: frames[path],
			controls: []v4l2.ControlInfo{
				{ID: 1, Name: "Brightness", Type: v4l2.CtrlTypeInteger,
					Minimum: 0, Maximum: 255, Step: 1, Default: 128},
				{ID: 2, Name: "Power Line Frequency", Type: v4l2.CtrlTypeMenu,
					Minimum: 0, Maximum: 1, Default: 0,
					Items: []v4l2.MenuItem{
						{Value: 0, Label: "Disabled"},
						{Value: 1, Label: "50 Hz"},
					}},
			},
			values: map[uint32]int32{1: 128},
		}
		rig.sessions[path] = s
		return s, nil
	}

	rig.controller = New(&fakeDetector{list: devList}, rig.bus, Options{
		OpenSession: open,
		CaptureDir:  t.TempDir(),
		Presets:     config.NewPresetManager(filepath.Join(t.TempDir(), "presets.toml")),
	})
	t.Cleanup(func() { rig.controller.Close() })
	return rig
}

func twoDevices() []devices.DeviceInfo {
	return []devices.DeviceInfo{
		{DevicePath: "/dev/video0", DeviceName: "Cam A", DeviceID: "usb-a", Usable: true},
		{DevicePath: "/dev/video2", DeviceName: "Cam B", DeviceID: "usb-b", Usable: true},
	}
}

func TestStartOpensFirstUsableDevice(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)

	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := rig.controller.ActiveDevice().DevicePath; got != "/dev/video0" {
		t.Errorf("active device = %s, want /dev/video0", got)
	}
	if len(rig.controller.Controls()) != 2 {
		t.Errorf("controls = %d, want 2", len(rig.controller.Controls()))
	}
}

func TestStartFailsWithoutUsableDevice(t *testing.T) {
	rig := newRig(t, []devices.DeviceInfo{
		{DevicePath: "/dev/video0", Usable: false},
	}, nil)

	if err := rig.controller.Start(); !errors.Is(err, devices.ErrNoUsableDevice) {
		t.Errorf("Start err = %v, want ErrNoUsableDevice", err)
	}
}

func TestDeviceSwitchNoOp(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig.controller.queue.mu.Lock()
	rig.controller.queue.switchTo = "/dev/video0" // already active
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	if rig.opens["/dev/video0"] != 1 {
		t.Errorf("device reopened on no-op switch, opens = %d", rig.opens["/dev/video0"])
	}
	if rig.sessions["/dev/video0"].closed {
		t.Error("session closed on no-op switch")
	}
}

func TestDeviceSwitchReplacesSessionAndClearsShadow(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Leave a trace in the shadow table on the first device
	rig.controller.queue.mu.Lock()
	rig.controller.queue.edits = []events.ControlEditedEvent{
		{ControlName: "Power Line Frequency", MenuLabel: "50 Hz"},
	}
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()
	if got := rig.controller.MenuSelection("Power Line Frequency"); got != "50 Hz" {
		t.Fatalf("shadow = %q, want 50 Hz", got)
	}

	rig.controller.queue.mu.Lock()
	rig.controller.queue.switchTo = "/dev/video2"
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	if got := rig.controller.ActiveDevice().DevicePath; got != "/dev/video2" {
		t.Errorf("active device = %s, want /dev/video2", got)
	}
	if !rig.sessions["/dev/video0"].closed {
		t.Error("old session not closed after switch")
	}
	if got := rig.controller.MenuSelection("Power Line Frequency"); got != controls.UnknownSelection {
		t.Errorf("shadow after switch = %q, want %q", got, controls.UnknownSelection)
	}
}

func TestDeviceSwitchTearsDownBeforeReopen(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rig.failOpen["/dev/video2"] = true

	lost := make(chan events.DeviceLostEvent, 1)
	unsub := rig.bus.Subscribe(func(e events.DeviceLostEvent) { lost <- e })
	defer unsub()

	rig.controller.queue.mu.Lock()
	rig.controller.queue.switchTo = "/dev/video2"
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	// Exclusive hardware access: the old stream must be released
	// before the new one negotiates, even when the open then fails.
	if !rig.sessions["/dev/video0"].closed {
		t.Error("old session still open after switch attempt")
	}
	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Fatal("no DeviceLostEvent published")
	}

	// The loop idles without a session; further ticks must not panic.
	rig.controller.Tick()
	if rig.controller.Frame() != nil {
		t.Error("frame survived a failed switch")
	}
}

func TestTickDecodesFrame(t *testing.T) {
	rig := newRig(t, twoDevices(), map[string][][]byte{
		"/dev/video0": {testJPEG(t)},
	})
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig.controller.Tick()
	if rig.controller.Frame() == nil {
		t.Fatal("no frame after tick")
	}

	// A tick without a fresh frame keeps the previous raster
	prev := rig.controller.Frame()
	rig.controller.Tick()
	if rig.controller.Frame() != prev {
		t.Error("frame replaced on a frameless tick")
	}
}

func TestTakePhotoSavesLatestFrame(t *testing.T) {
	rig := newRig(t, twoDevices(), map[string][][]byte{
		"/dev/video0": {testJPEG(t)},
	})
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	saved := make(chan events.CaptureSavedEvent, 1)
	unsub := rig.bus.Subscribe(func(e events.CaptureSavedEvent) { saved <- e })
	defer unsub()

	rig.controller.Tick() // decode the frame

	rig.controller.queue.mu.Lock()
	rig.controller.queue.takePhoto = true
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	select {
	case e := <-saved:
		if filepath.Base(e.Path) != "img_0.jpg" {
			t.Errorf("capture path = %s, want img_0.jpg", e.Path)
		}
		if _, err := os.Stat(e.Path); err != nil {
			t.Errorf("capture file missing: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("no CaptureSavedEvent published")
	}

	if !strings.HasPrefix(rig.controller.Status(), "Saved capture: ") {
		t.Errorf("status = %q, want Saved capture prefix", rig.controller.Status())
	}
}

func TestTakePhotoWithoutFrameFails(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	failed := make(chan events.CaptureFailedEvent, 1)
	unsub := rig.bus.Subscribe(func(e events.CaptureFailedEvent) { failed <- e })
	defer unsub()

	rig.controller.queue.mu.Lock()
	rig.controller.queue.takePhoto = true
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("no CaptureFailedEvent published")
	}
}

func TestRestoreDefaultsIntent(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session := rig.sessions["/dev/video0"]
	session.values[1] = 7 // drifted away from default

	rig.controller.queue.mu.Lock()
	rig.controller.queue.restore = true
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	if session.values[1] != 128 {
		t.Errorf("Brightness = %d, want default 128", session.values[1])
	}
}

func TestPresetSaveAndApply(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	session := rig.sessions["/dev/video0"]

	// Move the controls away from their defaults, then snapshot
	rig.controller.queue.mu.Lock()
	rig.controller.queue.edits = []events.ControlEditedEvent{
		{ControlName: "Brightness", Value: 200},
		{ControlName: "Power Line Frequency", MenuLabel: "50 Hz"},
	}
	rig.controller.queue.savePreset = "evening"
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	if !strings.HasPrefix(rig.controller.Status(), "Saved preset: ") {
		t.Fatalf("status = %q, want Saved preset prefix", rig.controller.Status())
	}

	// Drift away, then apply the snapshot back
	rig.controller.queue.mu.Lock()
	rig.controller.queue.restore = true
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()
	if session.values[1] != 128 {
		t.Fatalf("Brightness after restore = %d, want 128", session.values[1])
	}

	rig.controller.queue.mu.Lock()
	rig.controller.queue.applyPreset = "evening"
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	if session.values[1] != 200 {
		t.Errorf("Brightness after apply = %d, want 200", session.values[1])
	}
	if got := rig.controller.MenuSelection("Power Line Frequency"); got != "50 Hz" {
		t.Errorf("menu selection after apply = %q, want 50 Hz", got)
	}
}

func TestPresetApplyRejectsOtherDevice(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig.controller.queue.mu.Lock()
	rig.controller.queue.savePreset = "keep"
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	rig.controller.queue.mu.Lock()
	rig.controller.queue.switchTo = "/dev/video2"
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	session := rig.sessions["/dev/video2"]
	session.values[1] = 42

	rig.controller.queue.mu.Lock()
	rig.controller.queue.applyPreset = "keep"
	rig.controller.queue.mu.Unlock()
	rig.controller.Tick()

	if session.values[1] != 42 {
		t.Errorf("preset for another device was applied, Brightness = %d", session.values[1])
	}
	if !strings.Contains(rig.controller.Status(), "another device") {
		t.Errorf("status = %q, want device mismatch notice", rig.controller.Status())
	}
}

func TestBusIntentReachesQueue(t *testing.T) {
	rig := newRig(t, twoDevices(), nil)
	if err := rig.controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig.bus.Publish(events.SelectDeviceEvent{DevicePath: "/dev/video2"})

	// Intent delivery is asynchronous; wait for it to land, then tick.
	deadline := time.After(time.Second)
	for {
		rig.controller.queue.mu.Lock()
		queued := rig.controller.queue.switchTo != ""
		rig.controller.queue.mu.Unlock()
		if queued {
			break
		}
		select {
		case <-deadline:
			t.Fatal("intent never reached the queue")
		case <-time.After(5 * time.Millisecond):
		}
	}

	rig.controller.Tick()
	if got := rig.controller.ActiveDevice().DevicePath; got != "/dev/video2" {
		t.Errorf("active device = %s, want /dev/video2", got)
	}
}
