// Package controls keeps the UI's view of camera controls and the
// hardware state converging. Every tick runs three phases in order:
// read refreshes hardware-backed values, present hands the UI a
// consistent snapshot, and write pushes the UI's pending edits back to
// the device.
//
// Menu controls are the awkward case: UVC hardware widely reports menu
// values that cannot be read back reliably, so they are treated as
// write-only. The synchronizer tracks the last selection it wrote in a
// shadow table keyed by control name, optimistically updated on write
// and cleared whenever the device changes.
package controls

import (
	"log/slog"

	"github.com/smazurov/kamview/internal/logging"
	"github.com/smazurov/kamview/internal/metrics"
	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

// UnknownSelection is the shadow entry for a menu control whose current
// hardware selection has never been observed.
const UnknownSelection = "select"

// Driver is the raw control access the synchronizer needs. Implemented
// by camera.Session.
type Driver interface {
	QueryControls() ([]v4l2.ControlInfo, error)
	GetControl(id uint32) (int32, error)
	SetControl(id uint32, value int32) error
}

// edit is one queued UI change, applied during the write phase.
type edit struct {
	name  string
	value int32
	label string // menu edits carry the item label
}

// Synchronizer owns the control catalog and the shadow selection table
// for one device. Not safe for concurrent use; the tick loop is the
// only caller.
type Synchronizer struct {
	driver  Driver
	catalog []Control
	index   map[string]int // name -> catalog position
	shadow  map[string]string
	pending []edit
	logger  *slog.Logger
}

// NewSynchronizer creates a synchronizer bound to a driver. Call
// LoadCatalog before the first tick.
func NewSynchronizer(driver Driver) *Synchronizer {
	return &Synchronizer{
		driver: driver,
		index:  make(map[string]int),
		shadow: make(map[string]string),
		logger: logging.GetLogger("controls"),
	}
}

// LoadCatalog queries the device's controls and rebuilds the catalog.
// A query failure degrades to an empty catalog: preview must keep
// working on devices whose control enumeration is broken.
func (s *Synchronizer) LoadCatalog() {
	s.catalog = nil
	s.index = make(map[string]int)
	s.shadow = make(map[string]string)
	s.pending = nil

	raw, err := s.driver.QueryControls()
	if err != nil {
		s.logger.Warn("Control enumeration failed, continuing without controls", "error", err)
		return
	}

	s.catalog = buildCatalog(raw)
	for i, ctrl := range s.catalog {
		s.index[ctrl.Name] = i
		if ctrl.Kind == KindMenu {
			s.shadow[ctrl.Name] = UnknownSelection
		}
	}

	s.logger.Info("Control catalog loaded", "count", len(s.catalog))
}

// Controls returns the current catalog. The slice is shared; callers
// must treat it as read-only and not hold it across ticks.
func (s *Synchronizer) Controls() []Control {
	return s.catalog
}

// MenuSelection returns the shadow selection for a menu control, or
// UnknownSelection when nothing has been written yet.
func (s *Synchronizer) MenuSelection(name string) string {
	if label, ok := s.shadow[name]; ok {
		return label
	}
	return UnknownSelection
}

// Edit queues a value change for an integer or boolean control. The
// value is clamped and quantized when written.
func (s *Synchronizer) Edit(name string, value int32) {
	s.pending = append(s.pending, edit{name: name, value: value})
}

// EditMenu queues a selection change for a menu control.
func (s *Synchronizer) EditMenu(name, label string) {
	i, ok := s.index[name]
	if !ok {
		s.logger.Warn("Edit for unknown control dropped", "control", name)
		return
	}
	for _, item := range s.catalog[i].Items {
		if item.Label == label {
			s.pending = append(s.pending, edit{name: name, value: int32(item.Value), label: label})
			return
		}
	}
	s.logger.Warn("Menu edit with unknown label dropped", "control", name, "label", label)
}

// Tick runs one read-present-write cycle. Read refreshes hardware-backed
// values so external changes (other tools, auto-exposure toggles) show
// up; write applies everything the UI queued since the last tick. Read
// runs first so a tick's snapshot is never a mix of old and new state.
func (s *Synchronizer) Tick() {
	s.readPhase()
	s.writePhase()
}

// readPhase refreshes integer and boolean values from hardware. Menu
// controls are skipped: their reported values are unreliable. Failures
// keep the previous value; a flaky control must not take the tick down.
func (s *Synchronizer) readPhase() {
	for i := range s.catalog {
		ctrl := &s.catalog[i]
		if ctrl.Kind != KindInteger && ctrl.Kind != KindBoolean {
			continue
		}
		value, err := s.driver.GetControl(ctrl.ID)
		if err != nil {
			s.logger.Debug("Control read failed", "control", ctrl.Name, "error", err)
			metrics.IncControlReadSkip()
			continue
		}
		ctrl.Value = value
	}
}

// writePhase applies pending edits in queue order.
func (s *Synchronizer) writePhase() {
	edits := s.pending
	s.pending = nil

	for _, e := range edits {
		i, ok := s.index[e.name]
		if !ok {
			continue
		}
		ctrl := &s.catalog[i]

		switch ctrl.Kind {
		case KindInteger:
			s.write(ctrl, Quantize(e.value, ctrl.Minimum, ctrl.Maximum, ctrl.Step))
		case KindBoolean:
			s.write(ctrl, e.value)
		case KindMenu:
			// Optimistic: hardware cannot confirm menu state, so the
			// shadow records the selection even if the write fails.
			s.shadow[ctrl.Name] = e.label
			s.write(ctrl, e.value)
		default:
			s.logger.Debug("Edit for unsupported control dropped", "control", ctrl.Name)
		}
	}
}

// write pushes a value to the device and mirrors it into the catalog on
// success.
func (s *Synchronizer) write(ctrl *Control, value int32) bool {
	if err := s.driver.SetControl(ctrl.ID, value); err != nil {
		s.logger.Warn("Control write failed", "control", ctrl.Name, "value", value, "error", err)
		metrics.IncControlWrite(false)
		return false
	}
	metrics.IncControlWrite(true)
	if ctrl.Kind == KindInteger || ctrl.Kind == KindBoolean {
		ctrl.Value = value
	}
	return true
}

// RestoreDefaults writes every control's default value back to the
// device, best effort: a control that refuses its own default is logged
// and skipped. Menu shadows are set to the default item's label when
// one matches the default value.
func (s *Synchronizer) RestoreDefaults() {
	for i := range s.catalog {
		ctrl := &s.catalog[i]

		switch ctrl.Kind {
		case KindInteger, KindBoolean:
			s.write(ctrl, ctrl.Default)
		case KindMenu:
			// Shadow first: the rendered selection must show the
			// default even when the hardware write silently fails.
			if label, ok := defaultLabel(*ctrl); ok {
				s.shadow[ctrl.Name] = label
			} else {
				s.shadow[ctrl.Name] = UnknownSelection
			}
			s.write(ctrl, ctrl.Default)
		}
	}
	s.logger.Info("Controls restored to defaults", "count", len(s.catalog))
}

// Quantize clamps value to [min, max] and snaps it to the control's
// step grid anchored at min.
func Quantize(value, min, max, step int32) int32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	if step <= 1 {
		return value
	}

	offset := value - min
	snapped := min + ((offset+step/2)/step)*step
	if snapped > max {
		snapped -= step
	}
	return snapped
}
