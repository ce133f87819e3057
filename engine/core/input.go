package core

import (
	"fmt"
)

type Button uint8

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// KeyCode identifies a keyboard key. The set covers exactly what the
// platform layer translates from GLFW; unmapped keys never reach the input
// state. KEY_A..KEY_Z and KEY_0..KEY_9 are contiguous so the platform can
// map ranges by offset.
type KeyCode uint8

const (
	KEY_A KeyCode = iota
	KEY_B
	KEY_C
	KEY_D
	KEY_E
	KEY_F
	KEY_G
	KEY_H
	KEY_I
	KEY_J
	KEY_K
	KEY_L
	KEY_M
	KEY_N
	KEY_O
	KEY_P
	KEY_Q
	KEY_R
	KEY_S
	KEY_T
	KEY_U
	KEY_V
	KEY_W
	KEY_X
	KEY_Y
	KEY_Z
	KEY_0
	KEY_1
	KEY_2
	KEY_3
	KEY_4
	KEY_5
	KEY_6
	KEY_7
	KEY_8
	KEY_9
	KEY_ESCAPE
	KEY_SPACE
	KEY_ENTER
	KEY_TAB
	KEY_SHIFT
	KEY_LEFT
	KEY_RIGHT
	KEY_UP
	KEY_DOWN
	KEYS_MAX_KEYS
)

type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

type MouseState struct {
	X       uint16
	Y       uint16
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// InputState double-buffers keyboard and mouse state: queries against the
// previous frame make edge detection (pressed this frame, released this
// frame) possible.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState
}

var inputState *InputState

func InputInitialize() error {
	if inputState != nil {
		return fmt.Errorf("input system already initialized")
	}
	inputState = &InputState{}
	LogInfo("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	inputState = nil
	return nil
}

// InputUpdate snapshots the frame's state so the Was* queries answer
// against the previous frame. Call once per frame, after all input events
// for the frame have been processed.
func InputUpdate(deltaTime float64) error {
	if inputState == nil {
		return fmt.Errorf("input system not initialized")
	}
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
	inputState.MousePrevious = inputState.MouseCurrent
	return nil
}

func InputIsKeyDown(key KeyCode) bool {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return false
	}
	return inputState.KeyboardCurrent.Keys[key]
}

func InputIsKeyUp(key KeyCode) bool {
	return !InputIsKeyDown(key)
}

func InputWasKeyDown(key KeyCode) bool {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return false
	}
	return inputState.KeyboardPrevious.Keys[key]
}

func InputWasKeyUp(key KeyCode) bool {
	return !InputWasKeyDown(key)
}

// InputProcessKey records a key transition and fires the matching event.
// Repeated reports of an unchanged state are ignored, so OS key repeat does
// not spam the event queue.
func InputProcessKey(key KeyCode, pressed bool) error {
	if inputState == nil {
		return fmt.Errorf("input system not initialized")
	}
	if key >= KEYS_MAX_KEYS {
		return fmt.Errorf("key code %d out of range", key)
	}
	if inputState.KeyboardCurrent.Keys[key] == pressed {
		return nil
	}
	inputState.KeyboardCurrent.Keys[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	EventFire(EventContext{
		Type: code,
		Data: &KeyEvent{KeyCode: key},
	})
	return nil
}

func InputIsButtonDown(button Button) bool {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return false
	}
	return inputState.MouseCurrent.Buttons[button]
}

func InputIsButtonUp(button Button) bool {
	return !InputIsButtonDown(button)
}

func InputWasButtonDown(button Button) bool {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return false
	}
	return inputState.MousePrevious.Buttons[button]
}

func InputWasButtonUp(button Button) bool {
	return !InputWasButtonDown(button)
}

func InputGetMousePosition() (int32, int32) {
	if inputState == nil {
		return 0, 0
	}
	return int32(inputState.MouseCurrent.X), int32(inputState.MouseCurrent.Y)
}

func InputGetPreviousMousePosition() (int32, int32) {
	if inputState == nil {
		return 0, 0
	}
	return int32(inputState.MousePrevious.X), int32(inputState.MousePrevious.Y)
}

func InputProcessButton(button Button, pressed bool) error {
	if inputState == nil {
		return fmt.Errorf("input system not initialized")
	}
	if button >= BUTTON_MAX_BUTTONS {
		return fmt.Errorf("button %d out of range", button)
	}
	if inputState.MouseCurrent.Buttons[button] == pressed {
		return nil
	}
	inputState.MouseCurrent.Buttons[button] = pressed

	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	EventFire(EventContext{
		Type: code,
		Data: &MouseEvent{Button: button, PosX: inputState.MouseCurrent.X, PosY: inputState.MouseCurrent.Y},
	})
	return nil
}

func InputProcessMouseMove(x uint16, y uint16) error {
	if inputState == nil {
		return fmt.Errorf("input system not initialized")
	}
	if inputState.MouseCurrent.X == x && inputState.MouseCurrent.Y == y {
		return nil
	}
	inputState.MouseCurrent.X = x
	inputState.MouseCurrent.Y = y

	EventFire(EventContext{
		Type: EVENT_CODE_MOUSE_MOVED,
		Data: &MouseEvent{PosX: x, PosY: y},
	})
	return nil
}

func InputProcessMouseWheel(zDelta int8) error {
	if inputState == nil {
		return fmt.Errorf("input system not initialized")
	}
	EventFire(EventContext{
		Type: EVENT_CODE_MOUSE_WHEEL,
		Data: &MouseEvent{Scroll: zDelta},
	})
	return nil
}
