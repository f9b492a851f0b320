package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(CaptureSavedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case SelectDeviceEvent:
		event.Publish(b.dispatcher, e)
	case ControlEditedEvent:
		event.Publish(b.dispatcher, e)
	case TakePhotoEvent:
		event.Publish(b.dispatcher, e)
	case RestoreDefaultsEvent:
		event.Publish(b.dispatcher, e)
	case DeviceOpenedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceLostEvent:
		event.Publish(b.dispatcher, e)
	case CaptureSavedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureFailedEvent:
		event.Publish(b.dispatcher, e)
	case SavePresetEvent:
		event.Publish(b.dispatcher, e)
	case ApplyPresetEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e CaptureSavedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	// For each known event type, check if the handler matches
	switch h := handler.(type) {
	case func(SelectDeviceEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ControlEditedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TakePhotoEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RestoreDefaultsEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceLostEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureSavedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SavePresetEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ApplyPresetEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
