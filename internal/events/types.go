package events

// Event type constants for kelindar/event.
const (
	TypeSelectDevice uint32 = iota + 1
	TypeControlEdited
	TypeTakePhoto
	TypeRestoreDefaults
	TypeDeviceOpened
	TypeDeviceLost
	TypeCaptureSaved
	TypeCaptureFailed
	TypeSavePreset
	TypeApplyPreset
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SelectDeviceEvent asks the controller to switch to another device.
type SelectDeviceEvent struct {
	DevicePath string `json:"device_path"`
	DeviceID   string `json:"device_id"`
}

// Type returns the event type identifier for SelectDeviceEvent.
func (e SelectDeviceEvent) Type() uint32 { return TypeSelectDevice }

// ControlEditedEvent carries a pending control edit from the UI.
// Integer and boolean controls carry a value; menu controls carry the
// selected item's label instead, since menus are tracked by label.
type ControlEditedEvent struct {
	ControlName string `json:"control_name"`
	Value       int32  `json:"value"`
	MenuLabel   string `json:"menu_label,omitempty"`
}

// Type returns the event type identifier for ControlEditedEvent.
func (e ControlEditedEvent) Type() uint32 { return TypeControlEdited }

// TakePhotoEvent asks the controller to save the next decoded frame.
type TakePhotoEvent struct{}

// Type returns the event type identifier for TakePhotoEvent.
func (e TakePhotoEvent) Type() uint32 { return TypeTakePhoto }

// RestoreDefaultsEvent asks the controller to reset every control to its
// hardware default.
type RestoreDefaultsEvent struct{}

// Type returns the event type identifier for RestoreDefaultsEvent.
func (e RestoreDefaultsEvent) Type() uint32 { return TypeRestoreDefaults }

// DeviceOpenedEvent is published after a device switch completes.
type DeviceOpenedEvent struct {
	DevicePath string `json:"device_path"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Width      uint32 `json:"width"`
	Height     uint32 `json:"height"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for DeviceOpenedEvent.
func (e DeviceOpenedEvent) Type() uint32 { return TypeDeviceOpened }

// DeviceLostEvent is published when the active device stops responding.
type DeviceLostEvent struct {
	DevicePath string `json:"device_path"`
	Error      string `json:"error"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for DeviceLostEvent.
func (e DeviceLostEvent) Type() uint32 { return TypeDeviceLost }

// CaptureSavedEvent is published after a frame is written to disk.
type CaptureSavedEvent struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for CaptureSavedEvent.
func (e CaptureSavedEvent) Type() uint32 { return TypeCaptureSaved }

// CaptureFailedEvent is published when saving a frame fails.
type CaptureFailedEvent struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for CaptureFailedEvent.
func (e CaptureFailedEvent) Type() uint32 { return TypeCaptureFailed }

// SavePresetEvent asks the controller to snapshot the active device's
// control values under a preset name.
type SavePresetEvent struct {
	Name string `json:"name"`
}

// Type returns the event type identifier for SavePresetEvent.
func (e SavePresetEvent) Type() uint32 { return TypeSavePreset }

// ApplyPresetEvent asks the controller to queue a stored preset's values
// as edits for the active device.
type ApplyPresetEvent struct {
	Name string `json:"name"`
}

// Type returns the event type identifier for ApplyPresetEvent.
func (e ApplyPresetEvent) Type() uint32 { return TypeApplyPreset }

// LogEntryEvent mirrors a log entry into the on-screen log view.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq"`
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
