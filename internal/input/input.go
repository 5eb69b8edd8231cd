// Package input turns raw device samples into movement actions. The
// collector diffs successive samples so that callers only see edges for
// edge-driven devices and level changes for level-driven ones.
package input

import (
	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

// MouseSensitivity scales horizontal mouse motion into a rotation rate.
const MouseSensitivity = 0.125

// Key identifies a bound keyboard control.
type Key int

const (
	KeyForward Key = iota
	KeyBackward
	KeyLeft
	KeyRight
	KeyRun
	KeyJump
	KeyRotateLeft
	KeyRotateRight
)

// KeyboardSample is the set of bound keys held down at sample time.
type KeyboardSample struct {
	Pressed map[Key]bool
}

// Held reports whether the key was down in this sample.
func (s KeyboardSample) Held(key Key) bool {
	return s.Pressed[key]
}

// GamepadSample is the analog stick and button state at sample time.
type GamepadSample struct {
	Connected bool
	StickX    float64
	StickY    float64
	South     bool
}

// MouseSample is the button state and motion accumulated since the previous
// sample.
type MouseSample struct {
	RightButton bool
	DeltaX      float64
}

// Keyboard supplies keyboard samples.
type Keyboard interface {
	Sample() KeyboardSample
}

// Gamepad supplies gamepad samples.
type Gamepad interface {
	Sample() GamepadSample
}

// Mouse supplies mouse samples.
type Mouse interface {
	Sample() MouseSample
}

// movement key to direction increment
var keyDirections = map[Key]vec.Vec3{
	KeyForward:  {Z: 1},
	KeyBackward: {Z: -1},
	KeyLeft:     {X: -1},
	KeyRight:    {X: 1},
}

// ordered for deterministic action output
var movementKeys = []Key{KeyForward, KeyBackward, KeyLeft, KeyRight}

// Collector polls the attached devices and emits the actions implied by
// what changed since the previous poll. Any device may be nil.
type Collector struct {
	keyboard Keyboard
	gamepad  Gamepad
	mouse    Mouse

	prevKeys  KeyboardSample
	prevPad   GamepadSample
	prevMouse MouseSample
}

// NewCollector wires a collector to its devices.
func NewCollector(keyboard Keyboard, gamepad Gamepad, mouse Mouse) *Collector {
	return &Collector{keyboard: keyboard, gamepad: gamepad, mouse: mouse}
}

// Poll samples every device once and returns the resulting actions in a
// stable order: keyboard, gamepad, mouse.
func (c *Collector) Poll() []sim.MovementAction {
	if c == nil {
		return nil
	}
	var actions []sim.MovementAction
	if c.keyboard != nil {
		actions = append(actions, c.collectKeyboard(c.keyboard.Sample())...)
	}
	if c.gamepad != nil {
		actions = append(actions, c.collectGamepad(c.gamepad.Sample())...)
	}
	if c.mouse != nil {
		actions = append(actions, c.collectMouse(c.mouse.Sample())...)
	}
	return actions
}

// collectKeyboard emits edge actions: a key press adds its direction and the
// matching release subtracts it again, so holds accumulate symmetrically.
func (c *Collector) collectKeyboard(sample KeyboardSample) []sim.MovementAction {
	prev := c.prevKeys
	c.prevKeys = sample

	var actions []sim.MovementAction
	for _, key := range movementKeys {
		was, now := prev.Held(key), sample.Held(key)
		if was == now {
			continue
		}
		dir := keyDirections[key]
		if !now {
			dir = dir.Scale(-1)
		}
		actions = append(actions, sim.AddMove(dir))
	}
	if was, now := prev.Held(KeyRun), sample.Held(KeyRun); was != now {
		if now {
			actions = append(actions, sim.SetSpeed(sim.WalkSpeed))
		} else {
			actions = append(actions, sim.SetSpeed(sim.RunSpeed))
		}
	}
	if was, now := prev.Held(KeyJump), sample.Held(KeyJump); was != now {
		actions = append(actions, sim.SetJump(now))
	}
	if was, now := prev.Held(KeyRotateLeft), sample.Held(KeyRotateLeft); was != now {
		actions = append(actions, sim.RotateLeft(now))
	}
	if was, now := prev.Held(KeyRotateRight), sample.Held(KeyRotateRight); was != now {
		actions = append(actions, sim.RotateRight(now))
	}
	return actions
}

// collectGamepad emits the stick level whenever it moves and jump edges for
// the south button. A disconnect zeroes the stick once.
func (c *Collector) collectGamepad(sample GamepadSample) []sim.MovementAction {
	prev := c.prevPad
	c.prevPad = sample

	var actions []sim.MovementAction
	switch {
	case sample.Connected:
		if !prev.Connected || sample.StickX != prev.StickX || sample.StickY != prev.StickY {
			actions = append(actions, sim.SetMove(vec.Vec3{X: sample.StickX, Z: sample.StickY}))
		}
		if sample.South != (prev.Connected && prev.South) {
			actions = append(actions, sim.SetJump(sample.South))
		}
	case prev.Connected:
		actions = append(actions, sim.SetMove(vec.Zero))
		if prev.South {
			actions = append(actions, sim.SetJump(false))
		}
	}
	return actions
}

// collectMouse emits a rotation rate while the right button is held and a
// single zero on release. Motion with the button up is discarded.
func (c *Collector) collectMouse(sample MouseSample) []sim.MovementAction {
	prev := c.prevMouse
	c.prevMouse = sample

	var actions []sim.MovementAction
	switch {
	case sample.RightButton:
		if sample.DeltaX != 0 {
			actions = append(actions, sim.SetRotate(-sample.DeltaX*MouseSensitivity))
		}
	case prev.RightButton:
		actions = append(actions, sim.SetRotate(0))
	}
	return actions
}
