package input

import "sync"

// StateKeyboard is a keyboard whose key state is driven programmatically,
// for local players fed by platform event callbacks and for tests.
type StateKeyboard struct {
	mu      sync.Mutex
	pressed map[Key]bool
}

// NewStateKeyboard returns an empty keyboard.
func NewStateKeyboard() *StateKeyboard {
	return &StateKeyboard{pressed: make(map[Key]bool)}
}

// Set marks a key as held or released.
func (k *StateKeyboard) Set(key Key, down bool) {
	if k == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if down {
		k.pressed[key] = true
	} else {
		delete(k.pressed, key)
	}
}

// Sample implements Keyboard.
func (k *StateKeyboard) Sample() KeyboardSample {
	if k == nil {
		return KeyboardSample{}
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	pressed := make(map[Key]bool, len(k.pressed))
	for key := range k.pressed {
		pressed[key] = true
	}
	return KeyboardSample{Pressed: pressed}
}

// StateGamepad is a gamepad whose state is driven programmatically.
type StateGamepad struct {
	mu    sync.Mutex
	state GamepadSample
}

// NewStateGamepad returns a disconnected gamepad.
func NewStateGamepad() *StateGamepad {
	return &StateGamepad{}
}

// SetState replaces the full gamepad state.
func (g *StateGamepad) SetState(state GamepadSample) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()
}

// Sample implements Gamepad.
func (g *StateGamepad) Sample() GamepadSample {
	if g == nil {
		return GamepadSample{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// StateMouse is a mouse whose button state and motion are driven
// programmatically. Motion accumulates between samples and is consumed by
// Sample.
type StateMouse struct {
	mu     sync.Mutex
	right  bool
	deltaX float64
}

// NewStateMouse returns a mouse with no buttons held.
func NewStateMouse() *StateMouse {
	return &StateMouse{}
}

// SetRightButton marks the right button as held or released.
func (m *StateMouse) SetRightButton(down bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.right = down
	m.mu.Unlock()
}

// Move accumulates horizontal motion until the next sample.
func (m *StateMouse) Move(deltaX float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.deltaX += deltaX
	m.mu.Unlock()
}

// Sample implements Mouse and resets the accumulated motion.
func (m *StateMouse) Sample() MouseSample {
	if m == nil {
		return MouseSample{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sample := MouseSample{RightButton: m.right, DeltaX: m.deltaX}
	m.deltaX = 0
	return sample
}
