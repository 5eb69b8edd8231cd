package sim

import (
	"testing"

	"merlo/server/internal/sim/vec"
)

func TestAddDirectionReversible(t *testing.T) {
	state := DefaultMovementState()
	steps := []vec.Vec3{
		{Z: 1},
		{X: -1},
		{Z: -1},
		{X: 1},
	}
	for _, step := range steps {
		state.AddDirection(step)
	}
	if !state.Direction.IsZero() {
		t.Fatalf("expected balanced press/release pairs to cancel, got %v", state.Direction)
	}
}

func TestAddDirectionClampsPerAxis(t *testing.T) {
	state := DefaultMovementState()
	state.AddDirection(vec.Vec3{Z: 1})
	state.AddDirection(vec.Vec3{Z: 1})
	if state.Direction.Z != 1 {
		t.Fatalf("expected z clamped to 1, got %v", state.Direction.Z)
	}
	state.AddDirection(vec.Vec3{Z: -1})
	state.AddDirection(vec.Vec3{Z: -1})
	if state.Direction.Z != -1 {
		t.Fatalf("expected z clamped to -1, got %v", state.Direction.Z)
	}
}

func TestApplyRightLeftRotation(t *testing.T) {
	cases := []struct {
		name  string
		right bool
		left  bool
		want  float64
	}{
		{"right only", true, false, -1},
		{"left only", false, true, 1},
		{"both", true, true, 0},
		{"neither", false, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := DefaultMovementState()
			state.RotatingRight = tc.right
			state.RotatingLeft = tc.left
			state.ApplyRightLeftRotation()
			if state.Rotating != tc.want {
				t.Fatalf("expected rotating=%v, got %v", tc.want, state.Rotating)
			}
		})
	}
}

func TestSetSpeedSnapsToPresets(t *testing.T) {
	cases := []struct {
		requested float64
		want      float64
	}{
		{0.05, WalkSpeed},
		{0.15, RunSpeed},
		{0.0, WalkSpeed},
		{0.07, WalkSpeed},
		{0.12, RunSpeed},
		{9000, RunSpeed},
	}
	for _, tc := range cases {
		state := DefaultMovementState()
		state.SetSpeed(tc.requested)
		if state.Speed != tc.want {
			t.Fatalf("SetSpeed(%v): expected %v, got %v", tc.requested, tc.want, state.Speed)
		}
	}
}

func TestMovementPredicates(t *testing.T) {
	state := DefaultMovementState()
	if state.IsMoving() {
		t.Fatalf("fresh state should not be moving")
	}
	if !state.IsRunning() {
		t.Fatalf("default preset should classify as running")
	}
	state.AddDirection(vec.Vec3{Z: -1})
	if !state.IsMoving() || !state.IsMovingBackwards() {
		t.Fatalf("expected backward movement, got %+v", state)
	}
	state.SetSpeed(WalkSpeed)
	if state.IsRunning() {
		t.Fatalf("walk preset should not classify as running")
	}
}
