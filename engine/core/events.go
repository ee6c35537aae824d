package core

import "sync"

// EventContext is what listeners receive. Data depends on the code.
type EventContext struct {
	Code   SystemEventCode
	Sender interface{}
	Data   interface{}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode uint16

const (
	// Shuts the application down on the next frame.
	/* Context usage: no data. */
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// The watched config file was parsed again.
	/* Context usage:
	 * cfg := context.Data.(*Config)
	 */
	EVENT_CODE_CONFIG_RELOADED SystemEventCode = 0x02

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(context EventContext, listener interface{}) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventSystem dispatches events synchronously on the goroutine that fires them.
type EventSystem struct {
	mutex      sync.RWMutex
	registered map[SystemEventCode][]registeredEvent
}

func NewEventSystem() *EventSystem {
	return &EventSystem{registered: make(map[SystemEventCode][]registeredEvent)}
}

/**
 * Register to listen for when events are sent with the provided code. A listener can
 * only be registered once per code.
 * @param code The event code to listen for.
 * @param listener A listener instance. Can be nil.
 * @param onEvent The callback invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func (es *EventSystem) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	es.mutex.Lock()
	defer es.mutex.Unlock()
	for _, e := range es.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	es.registered[code] = append(es.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

// Unregister removes the listener from code, returning false when it was not registered.
func (es *EventSystem) Unregister(code SystemEventCode, listener interface{}) bool {
	es.mutex.Lock()
	defer es.mutex.Unlock()
	events := es.registered[code]
	for i, e := range events {
		if e.listener == listener {
			es.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func (es *EventSystem) Fire(code SystemEventCode, sender interface{}, data interface{}) bool {
	es.mutex.RLock()
	events := es.registered[code]
	es.mutex.RUnlock()

	context := EventContext{Code: code, Sender: sender, Data: data}
	for _, e := range events {
		if e.callback(context, e.listener) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (es *EventSystem) Shutdown() {
	es.mutex.Lock()
	es.registered = make(map[SystemEventCode][]registeredEvent)
	es.mutex.Unlock()
}
