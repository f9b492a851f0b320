// Package viewer is the ebiten front-end: it hosts the tick loop in
// Update, draws the latest frame in Draw, and translates keyboard input
// into bus intents. It holds no device state of its own.
package viewer

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/smazurov/kamview/internal/app"
	"github.com/smazurov/kamview/internal/controls"
	"github.com/smazurov/kamview/internal/events"
	"github.com/smazurov/kamview/internal/logging"
)

const (
	logViewLines = 12

	// Keyboard-driven presets always use one slot.
	defaultPresetName = "default"
)

// UI implements ebiten.Game on top of the app controller.
type UI struct {
	controller *app.Controller
	bus        *events.Bus

	texture *ebiten.Image
	texW    int
	texH    int

	selected int
	showLog  bool
	logLines []string
	logCh    chan any
	unsubLog func()
}

// New creates the UI and wires the on-screen log view to the bus.
func New(controller *app.Controller, bus *events.Bus) *UI {
	ui := &UI{
		controller: controller,
		bus:        bus,
		logCh:      make(chan any, 64),
	}
	ui.unsubLog = events.SubscribeToChannel[events.LogEntryEvent](bus, ui.logCh)

	// Mirror log output into the bus so the overlay sees it
	logging.SetLogCallback(newLogBridge(bus))

	return ui
}

// newLogBridge forwards log entries onto the bus. The callback fires
// from whatever goroutine logged (watcher, monitor, tick loop), so the
// sequence counter is atomic.
func newLogBridge(bus *events.Bus) func(logging.LogEntry) {
	var seq atomic.Uint64
	return func(entry logging.LogEntry) {
		bus.Publish(events.LogEntryEvent{
			Seq:       seq.Add(1),
			Timestamp: entry.Timestamp.Format("15:04:05"),
			Level:     entry.Level,
			Module:    entry.Module,
			Message:   entry.Message,
		})
	}
}

// Run opens the window and blocks until the user quits.
func Run(ui *UI) error {
	ebiten.SetWindowTitle("kamview")
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.MaximizeWindow()
	defer ui.close()
	return ebiten.RunGame(ui)
}

func (ui *UI) close() {
	if ui.unsubLog != nil {
		ui.unsubLog()
		ui.unsubLog = nil
	}
	logging.SetLogCallback(nil)
}

// Update runs one tick: input first so this tick's intents are already
// queued when the controller drains them.
func (ui *UI) Update() error {
	ui.drainLog()
	ui.handleInput()
	ui.controller.Tick()
	return nil
}

func (ui *UI) drainLog() {
	for {
		select {
		case raw := <-ui.logCh:
			if entry, ok := raw.(events.LogEntryEvent); ok {
				line := fmt.Sprintf("%s [%s] %s: %s",
					entry.Timestamp, strings.ToUpper(entry.Level), entry.Module, entry.Message)
				ui.logLines = append(ui.logLines, line)
				if len(ui.logLines) > logViewLines {
					ui.logLines = ui.logLines[len(ui.logLines)-logViewLines:]
				}
			}
		default:
			return
		}
	}
}

func (ui *UI) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		ui.bus.Publish(events.TakePhotoEvent{})
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		ui.bus.Publish(events.RestoreDefaultsEvent{})
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		ui.bus.Publish(events.SavePresetEvent{Name: defaultPresetName})
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		ui.bus.Publish(events.ApplyPresetEvent{Name: defaultPresetName})
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		ui.selectNextDevice()
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		ui.showLog = !ui.showLog
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		ui.moveSelection(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		ui.moveSelection(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft):
		ui.adjustSelected(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyRight):
		ui.adjustSelected(1)
	}
}

// selectNextDevice cycles through the usable devices in list order.
func (ui *UI) selectNextDevice() {
	list := ui.controller.Devices()
	if len(list) == 0 {
		return
	}

	active := ui.controller.ActiveDevice().DevicePath
	start := 0
	for i, dev := range list {
		if dev.DevicePath == active {
			start = i + 1
			break
		}
	}

	for off := 0; off < len(list); off++ {
		dev := list[(start+off)%len(list)]
		if dev.Usable && dev.DevicePath != active {
			ui.bus.Publish(events.SelectDeviceEvent{
				DevicePath: dev.DevicePath,
				DeviceID:   dev.DeviceID,
			})
			return
		}
	}
}

func (ui *UI) moveSelection(delta int) {
	n := len(ui.controller.Controls())
	if n == 0 {
		return
	}
	ui.selected = (ui.selected + delta + n) % n
}

// adjustSelected nudges the selected control: integers step by their
// increment, booleans toggle, menus cycle through their items.
func (ui *UI) adjustSelected(direction int) {
	catalog := ui.controller.Controls()
	if ui.selected >= len(catalog) {
		return
	}
	ctrl := catalog[ui.selected]

	switch ctrl.Kind {
	case controls.KindInteger:
		step := ctrl.Step
		if step < 1 {
			step = 1
		}
		ui.bus.Publish(events.ControlEditedEvent{
			ControlName: ctrl.Name,
			Value:       ctrl.Value + int32(direction)*step,
		})
	case controls.KindBoolean:
		ui.bus.Publish(events.ControlEditedEvent{
			ControlName: ctrl.Name,
			Value:       1 - ctrl.Value,
		})
	case controls.KindMenu:
		if label, ok := nextMenuLabel(ctrl, ui.controller.MenuSelection(ctrl.Name), direction); ok {
			ui.bus.Publish(events.ControlEditedEvent{
				ControlName: ctrl.Name,
				MenuLabel:   label,
			})
		}
	}
}

// nextMenuLabel picks the item adjacent to the current shadow
// selection. An unknown selection starts at the first item.
func nextMenuLabel(ctrl controls.Control, current string, direction int) (string, bool) {
	if len(ctrl.Items) == 0 {
		return "", false
	}
	if current == controls.UnknownSelection {
		return ctrl.Items[0].Label, true
	}
	for i, item := range ctrl.Items {
		if item.Label == current {
			n := len(ctrl.Items)
			return ctrl.Items[(i+direction+n)%n].Label, true
		}
	}
	return ctrl.Items[0].Label, true
}

// Draw renders the frame letterboxed into the window plus the overlays.
func (ui *UI) Draw(screen *ebiten.Image) {
	ui.drawFrame(screen)
	ui.drawStatus(screen)
	ui.drawControls(screen)
	if ui.showLog {
		ui.drawLog(screen)
	}
}

func (ui *UI) drawFrame(screen *ebiten.Image) {
	img := ui.controller.Frame()
	if img == nil {
		ebitenutil.DebugPrintAt(screen, "Waiting for frames...", 8, 8)
		return
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if ui.texture == nil || ui.texW != w || ui.texH != h {
		ui.texture = ebiten.NewImage(w, h)
		ui.texW, ui.texH = w, h
	}
	ui.texture.WritePixels(img.Pix)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale := min(float64(sw)/float64(w), float64(sh)/float64(h))

	op := &ebiten.DrawImageOptions{}
	op.Filter = ebiten.FilterLinear
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(
		(float64(sw)-float64(w)*scale)/2,
		(float64(sh)-float64(h)*scale)/2,
	)
	screen.DrawImage(ui.texture, op)
}

func (ui *UI) drawStatus(screen *ebiten.Image) {
	status := ui.controller.Status()
	device := ui.controller.ActiveDevice()
	line := fmt.Sprintf("%s | %s | space=photo tab=device r=defaults l=log", device.Label(), status)
	ebitenutil.DebugPrintAt(screen, line, 8, screen.Bounds().Dy()-16)
}

func (ui *UI) drawControls(screen *ebiten.Image) {
	catalog := ui.controller.Controls()
	y := 8
	for i, ctrl := range catalog {
		marker := "  "
		if i == ui.selected {
			marker = "> "
		}

		var value string
		switch ctrl.Kind {
		case controls.KindInteger:
			value = fmt.Sprintf("%d", ctrl.Value)
		case controls.KindBoolean:
			value = "off"
			if ctrl.Value != 0 {
				value = "on"
			}
		case controls.KindMenu:
			value = ui.controller.MenuSelection(ctrl.Name)
		default:
			value = "-"
		}

		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s%s: %s", marker, ctrl.Name, value), 8, y)
		y += 16
	}
}

func (ui *UI) drawLog(screen *ebiten.Image) {
	x := screen.Bounds().Dx() / 2
	y := 8
	for _, line := range ui.logLines {
		ebitenutil.DebugPrintAt(screen, line, x, y)
		y += 16
	}
}

// Layout fills the whole window.
func (ui *UI) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
