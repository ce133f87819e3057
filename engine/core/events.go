package core

import "sync"

type EventCode int

// System internal event codes. Application should use codes beyond 255.
const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel scrolled.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Resized/resolution changed from the OS.
	EVENT_CODE_RESIZED EventCode = 0x08

	MAX_EVENT_CODE EventCode = 0xFF
)

// EventContext is one fired event: its code plus a typed payload.
type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type FnOnEvent func(context EventContext)

type eventSystemState struct {
	mutex      sync.RWMutex
	registered map[EventCode][]FnOnEvent
	queue      chan EventContext
	done       chan struct{}
}

var onceEvent sync.Once
var eventState *eventSystemState

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[EventCode][]FnOnEvent),
			queue:      make(chan EventContext, 256),
			done:       make(chan struct{}),
		}
	})
	return eventState != nil
}

// EventRegister subscribes a callback to an event code. Callbacks run on the
// event-processing goroutine, in registration order.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if eventState == nil || onEvent == nil {
		return false
	}
	eventState.mutex.Lock()
	defer eventState.mutex.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventFire queues an event for dispatch. A full queue drops the event
// rather than stalling the firing thread.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	select {
	case eventState.queue <- context:
		return true
	default:
		LogWarn("event queue full, dropping event %d", context.Type)
		return false
	}
}

// ProcessEvents dispatches queued events until shutdown. Run it on its own
// goroutine.
func ProcessEvents() {
	for {
		select {
		case context := <-eventState.queue:
			eventState.mutex.RLock()
			callbacks := eventState.registered[context.Type]
			eventState.mutex.RUnlock()
			for _, callback := range callbacks {
				callback(context)
			}
		case <-eventState.done:
			return
		}
	}
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	close(eventState.done)
	eventState.mutex.Lock()
	eventState.registered = make(map[EventCode][]FnOnEvent)
	eventState.mutex.Unlock()
	return nil
}
