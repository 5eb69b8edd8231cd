package sim

import (
	"time"

	"merlo/server/internal/sim/vec"
)

// ActionKind enumerates the closed set of movement intents.
type ActionKind string

const (
	ActionAddMove     ActionKind = "AddMove"
	ActionSetMove     ActionKind = "SetMove"
	ActionSetSpeed    ActionKind = "SetSpeed"
	ActionRotateLeft  ActionKind = "RotateLeft"
	ActionRotateRight ActionKind = "RotateRight"
	ActionSetRotate   ActionKind = "SetRotate"
	ActionSetJump     ActionKind = "SetJump"
)

// MovementAction is a single per-tick movement intent. Actions live for one
// tick: the integrator folds them in arrival order and discards them.
type MovementAction struct {
	Kind  ActionKind `json:"kind"`
	Move  vec.Vec3   `json:"move,omitempty"`
	Value float64    `json:"value,omitempty"`
	On    bool       `json:"on,omitempty"`
}

// AddMove builds a directional accumulation action.
func AddMove(direction vec.Vec3) MovementAction {
	return MovementAction{Kind: ActionAddMove, Move: direction}
}

// SetMove builds an absolute direction action.
func SetMove(direction vec.Vec3) MovementAction {
	return MovementAction{Kind: ActionSetMove, Move: direction}
}

// SetSpeed builds a speed preset request.
func SetSpeed(speed float64) MovementAction {
	return MovementAction{Kind: ActionSetSpeed, Value: speed}
}

// RotateLeft builds a left rotation latch update.
func RotateLeft(on bool) MovementAction {
	return MovementAction{Kind: ActionRotateLeft, On: on}
}

// RotateRight builds a right rotation latch update.
func RotateRight(on bool) MovementAction {
	return MovementAction{Kind: ActionRotateRight, On: on}
}

// SetRotate builds an explicit yaw-rate request.
func SetRotate(rate float64) MovementAction {
	return MovementAction{Kind: ActionSetRotate, Value: rate}
}

// SetJump builds a jump latch update.
func SetJump(on bool) MovementAction {
	return MovementAction{Kind: ActionSetJump, On: on}
}

// Command wraps a movement action captured for processing on the next tick.
// Origin metadata is populated when the command is accepted for staging.
type Command struct {
	ActorID    string         `json:"actorId"`
	Seq        uint64         `json:"seq,omitempty"`
	OriginTick uint64         `json:"originTick"`
	IssuedAt   time.Time      `json:"issuedAt"`
	Action     MovementAction `json:"action"`
}
