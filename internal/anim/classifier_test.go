package anim

import (
	"testing"
	"time"

	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

type playCall struct {
	category Category
	blend    time.Duration
}

type recordingPlayer struct {
	calls []playCall
}

func (p *recordingPlayer) Play(category Category, blend time.Duration) {
	p.calls = append(p.calls, playCall{category: category, blend: blend})
}

func TestClassifyStatePrecedence(t *testing.T) {
	cases := []struct {
		name  string
		state sim.MovementState
		want  Category
	}{
		{
			name:  "airborne wins over movement",
			state: sim.MovementState{Speed: sim.RunSpeed, Direction: vec.Vec3{Z: 1}, Grounded: false},
			want:  Fall,
		},
		{
			name:  "grounded without intent idles",
			state: sim.MovementState{Speed: sim.RunSpeed, Grounded: true},
			want:  Idle,
		},
		{
			name:  "grounded at run preset runs",
			state: sim.MovementState{Speed: sim.RunSpeed, Direction: vec.Vec3{X: 1}, Grounded: true},
			want:  Run,
		},
		{
			name:  "grounded at walk preset walks",
			state: sim.MovementState{Speed: sim.WalkSpeed, Direction: vec.Vec3{X: 1}, Grounded: true},
			want:  Walk,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyState(tc.state); got != tc.want {
				t.Fatalf("ClassifyState = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifyVelocityThresholds(t *testing.T) {
	cases := []struct {
		name     string
		velocity vec.Vec3
		grounded bool
		want     Category
	}{
		{name: "airborne falls", velocity: vec.Vec3{Z: 10}, grounded: false, want: Fall},
		{name: "at rest idles", velocity: vec.Vec3{}, grounded: true, want: Idle},
		{name: "slow drift idles", velocity: vec.Vec3{Z: 1.4}, grounded: true, want: Idle},
		{name: "speed squared ten walks", velocity: vec.Vec3{X: 3, Z: 1}, grounded: true, want: Walk},
		{name: "speed squared thirty runs", velocity: vec.Vec3{X: 5, Z: 2.23607}, grounded: true, want: Run},
		{name: "vertical speed is ignored", velocity: vec.Vec3{Y: 40}, grounded: true, want: Idle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyVelocity(tc.velocity, tc.grounded); got != tc.want {
				t.Fatalf("ClassifyVelocity = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifierPlaysOnlyOnChange(t *testing.T) {
	player := &recordingPlayer{}
	classifier := NewClassifier(player)

	classifier.Update(Walk)
	classifier.Update(Walk)
	classifier.Update(Walk)
	classifier.Update(Run)
	classifier.Update(Run)

	want := []playCall{
		{category: Idle, blend: 0},
		{category: Walk, blend: BlendDuration},
		{category: Run, blend: BlendDuration},
	}
	if len(player.calls) != len(want) {
		t.Fatalf("Play called %d times, want %d: %v", len(player.calls), len(want), player.calls)
	}
	for i, call := range player.calls {
		if call != want[i] {
			t.Fatalf("call %d = %+v, want %+v", i, call, want[i])
		}
	}
}

func TestClassifierSpawnsIdleWithoutBlend(t *testing.T) {
	player := &recordingPlayer{}
	classifier := NewClassifier(player)

	classifier.Start()
	classifier.Start()

	if len(player.calls) != 1 {
		t.Fatalf("Play called %d times, want 1", len(player.calls))
	}
	if player.calls[0] != (playCall{category: Idle, blend: 0}) {
		t.Fatalf("spawn call = %+v, want idle at zero blend", player.calls[0])
	}
	if classifier.Current() != Idle {
		t.Fatalf("Current = %v, want Idle", classifier.Current())
	}
}

func TestClassifierUpdateToIdleAfterSpawnDoesNotReplay(t *testing.T) {
	player := &recordingPlayer{}
	classifier := NewClassifier(player)

	classifier.Update(Idle)

	if len(player.calls) != 1 {
		t.Fatalf("Play called %d times, want 1 (spawn only)", len(player.calls))
	}
}
