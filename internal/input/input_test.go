package input

import (
	"testing"

	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

func TestKeyboardPressAndReleaseNegate(t *testing.T) {
	keyboard := NewStateKeyboard()
	collector := NewCollector(keyboard, nil, nil)

	if got := collector.Poll(); len(got) != 0 {
		t.Fatalf("idle poll emitted %v", got)
	}

	keyboard.Set(KeyForward, true)
	press := collector.Poll()
	if len(press) != 1 || press[0].Kind != sim.ActionAddMove {
		t.Fatalf("press = %v, want one AddMove", press)
	}
	if press[0].Move != (vec.Vec3{Z: 1}) {
		t.Fatalf("press direction = %v, want +Z", press[0].Move)
	}

	// nothing while held
	if got := collector.Poll(); len(got) != 0 {
		t.Fatalf("hold poll emitted %v", got)
	}

	keyboard.Set(KeyForward, false)
	release := collector.Poll()
	if len(release) != 1 || release[0].Move != (vec.Vec3{Z: -1}) {
		t.Fatalf("release = %v, want AddMove -Z", release)
	}
}

func TestKeyboardRunKeySelectsPreset(t *testing.T) {
	keyboard := NewStateKeyboard()
	collector := NewCollector(keyboard, nil, nil)
	collector.Poll()

	keyboard.Set(KeyRun, true)
	press := collector.Poll()
	if len(press) != 1 || press[0].Kind != sim.ActionSetSpeed || press[0].Value != sim.WalkSpeed {
		t.Fatalf("run press = %v, want SetSpeed(walk)", press)
	}

	keyboard.Set(KeyRun, false)
	release := collector.Poll()
	if len(release) != 1 || release[0].Value != sim.RunSpeed {
		t.Fatalf("run release = %v, want SetSpeed(run)", release)
	}
}

func TestKeyboardJumpAndRotateEdges(t *testing.T) {
	keyboard := NewStateKeyboard()
	collector := NewCollector(keyboard, nil, nil)
	collector.Poll()

	keyboard.Set(KeyJump, true)
	keyboard.Set(KeyRotateLeft, true)
	actions := collector.Poll()
	if len(actions) != 2 {
		t.Fatalf("edges = %v, want jump and rotate", actions)
	}
	if actions[0].Kind != sim.ActionSetJump || !actions[0].On {
		t.Fatalf("first edge = %v, want SetJump(true)", actions[0])
	}
	if actions[1].Kind != sim.ActionRotateLeft || !actions[1].On {
		t.Fatalf("second edge = %v, want RotateLeft(true)", actions[1])
	}

	keyboard.Set(KeyJump, false)
	keyboard.Set(KeyRotateLeft, false)
	actions = collector.Poll()
	if len(actions) != 2 || actions[0].On || actions[1].On {
		t.Fatalf("release edges = %v, want both off", actions)
	}
}

func TestGamepadStickIsLevelDriven(t *testing.T) {
	gamepad := NewStateGamepad()
	collector := NewCollector(nil, gamepad, nil)
	collector.Poll()

	gamepad.SetState(GamepadSample{Connected: true, StickX: 0.5, StickY: 1})
	actions := collector.Poll()
	if len(actions) != 1 || actions[0].Kind != sim.ActionSetMove {
		t.Fatalf("stick move = %v, want one SetMove", actions)
	}
	if actions[0].Move != (vec.Vec3{X: 0.5, Z: 1}) {
		t.Fatalf("stick direction = %v", actions[0].Move)
	}

	// unchanged level emits nothing
	if got := collector.Poll(); len(got) != 0 {
		t.Fatalf("steady stick emitted %v", got)
	}

	gamepad.SetState(GamepadSample{})
	actions = collector.Poll()
	if len(actions) != 1 || actions[0].Move != vec.Zero {
		t.Fatalf("disconnect = %v, want SetMove(zero)", actions)
	}
}

func TestGamepadSouthButtonJumps(t *testing.T) {
	gamepad := NewStateGamepad()
	collector := NewCollector(nil, gamepad, nil)
	gamepad.SetState(GamepadSample{Connected: true})
	collector.Poll()

	gamepad.SetState(GamepadSample{Connected: true, South: true})
	actions := collector.Poll()
	if len(actions) != 1 || actions[0].Kind != sim.ActionSetJump || !actions[0].On {
		t.Fatalf("south press = %v, want SetJump(true)", actions)
	}

	gamepad.SetState(GamepadSample{Connected: true})
	actions = collector.Poll()
	if len(actions) != 1 || actions[0].On {
		t.Fatalf("south release = %v, want SetJump(false)", actions)
	}
}

func TestMouseRotatesOnlyWhileHeld(t *testing.T) {
	mouse := NewStateMouse()
	collector := NewCollector(nil, nil, mouse)
	collector.Poll()

	// motion with the button up is discarded
	mouse.Move(40)
	if got := collector.Poll(); len(got) != 0 {
		t.Fatalf("unheld motion emitted %v", got)
	}

	mouse.SetRightButton(true)
	mouse.Move(8)
	actions := collector.Poll()
	if len(actions) != 1 || actions[0].Kind != sim.ActionSetRotate {
		t.Fatalf("held motion = %v, want one SetRotate", actions)
	}
	if actions[0].Value != -1 {
		t.Fatalf("rotation rate = %v, want -1 (8 * %v)", actions[0].Value, MouseSensitivity)
	}

	// held without motion emits nothing
	if got := collector.Poll(); len(got) != 0 {
		t.Fatalf("held idle emitted %v", got)
	}

	mouse.SetRightButton(false)
	actions = collector.Poll()
	if len(actions) != 1 || actions[0].Kind != sim.ActionSetRotate || actions[0].Value != 0 {
		t.Fatalf("release = %v, want SetRotate(0)", actions)
	}
}
