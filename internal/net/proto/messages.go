// Package proto defines the versioned JSON wire protocol spoken over the
// movement websocket and the join endpoint.
package proto

import (
	"encoding/json"
	"fmt"

	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for outbound websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeState         = "state"
	typeKeyframe      = "keyframe"
)

// Client message type identifiers.
const (
	TypeAction    = "action"
	TypeHeartbeat = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeState         = typeState
	TypeKeyframe      = typeKeyframe
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// Wire names for movement actions carried by TypeAction messages.
const (
	ActionAddMove     = "addMove"
	ActionSetMove     = "setMove"
	ActionSetSpeed    = "setSpeed"
	ActionRotateLeft  = "rotateLeft"
	ActionRotateRight = "rotateRight"
	ActionSetRotate   = "setRotate"
	ActionSetJump     = "setJump"
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver        int     `json:"ver,omitempty"`
	Type       string  `json:"type"`
	Action     string  `json:"action,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Z          float64 `json:"z,omitempty"`
	Value      float64 `json:"value,omitempty"`
	On         bool    `json:"on,omitempty"`
	SentAt     int64   `json:"sentAt,omitempty"`
	CommandSeq *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientAction converts a TypeAction message into the simulation intent it
// names. The second result is false for unknown or non-action messages.
func ClientAction(msg ClientMessage) (sim.MovementAction, bool) {
	if msg.Type != TypeAction {
		return sim.MovementAction{}, false
	}
	switch msg.Action {
	case ActionAddMove:
		return sim.AddMove(vec3From(msg)), true
	case ActionSetMove:
		return sim.SetMove(vec3From(msg)), true
	case ActionSetSpeed:
		return sim.SetSpeed(msg.Value), true
	case ActionRotateLeft:
		return sim.RotateLeft(msg.On), true
	case ActionRotateRight:
		return sim.RotateRight(msg.On), true
	case ActionSetRotate:
		return sim.SetRotate(msg.Value), true
	case ActionSetJump:
		return sim.SetJump(msg.On), true
	default:
		return sim.MovementAction{}, false
	}
}

// ActionMessage renders a movement action as an outbound client message.
func ActionMessage(action sim.MovementAction, seq uint64, sentAt int64) ClientMessage {
	msg := ClientMessage{
		Ver:        Version,
		Type:       TypeAction,
		SentAt:     sentAt,
		CommandSeq: &seq,
	}
	switch action.Kind {
	case sim.ActionAddMove:
		msg.Action = ActionAddMove
		msg.X, msg.Y, msg.Z = action.Move.X, action.Move.Y, action.Move.Z
	case sim.ActionSetMove:
		msg.Action = ActionSetMove
		msg.X, msg.Y, msg.Z = action.Move.X, action.Move.Y, action.Move.Z
	case sim.ActionSetSpeed:
		msg.Action = ActionSetSpeed
		msg.Value = action.Value
	case sim.ActionRotateLeft:
		msg.Action = ActionRotateLeft
		msg.On = action.On
	case sim.ActionRotateRight:
		msg.Action = ActionRotateRight
		msg.On = action.On
	case sim.ActionSetRotate:
		msg.Action = ActionSetRotate
		msg.Value = action.Value
	case sim.ActionSetJump:
		msg.Action = ActionSetJump
		msg.On = action.On
	}
	return msg
}

func vec3From(msg ClientMessage) vec.Vec3 {
	return vec.Vec3{X: msg.X, Y: msg.Y, Z: msg.Z}
}

// CommandAck describes an acknowledgement of a processed command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// StateDeltaV1 captures the version 1 per-tick state broadcast: the diff
// patches produced by the tick plus replication cursors.
type StateDeltaV1 struct {
	Ver              int         `json:"ver"`
	Type             string      `json:"type"`
	Tick             uint64      `json:"t"`
	Sequence         uint64      `json:"sequence"`
	KeyframeSeq      uint64      `json:"keyframeSeq"`
	ServerTime       int64       `json:"serverTime"`
	Patches          []sim.Patch `json:"patches"`
	KeyframeInterval int         `json:"keyframeInterval,omitempty"`
}

// ProtoStateDelta tags the struct as a websocket state payload.
func (StateDeltaV1) ProtoStateDelta() {}

// EncodeStateDeltaV1 renders a versioned state delta payload.
func EncodeStateDeltaV1(msg StateDeltaV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = TypeState
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// KeyframeSnapshotV1 captures the version 1 keyframe payload layout.
type KeyframeSnapshotV1 struct {
	Ver      int                  `json:"ver"`
	Type     string               `json:"type"`
	Sequence uint64               `json:"sequence"`
	Tick     uint64               `json:"t"`
	Players  []sim.PlayerSnapshot `json:"players"`
	Doodads  []sim.DoodadSnapshot `json:"doodads"`
}

// ProtoKeyframeSnapshot tags the struct as a websocket keyframe payload.
func (KeyframeSnapshotV1) ProtoKeyframeSnapshot() {}

// EncodeKeyframeSnapshotV1 renders a versioned keyframe payload.
func EncodeKeyframeSnapshotV1(msg KeyframeSnapshotV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = TypeKeyframe
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// JoinResponseV1 captures the version 1 join response layout: the assigned
// identity plus a full snapshot so the client can seed its replica.
type JoinResponseV1 struct {
	Ver              int                  `json:"ver"`
	ID               string               `json:"id"`
	Tick             uint64               `json:"t"`
	Players          []sim.PlayerSnapshot `json:"players"`
	Doodads          []sim.DoodadSnapshot `json:"doodads"`
	KeyframeInterval int                  `json:"keyframeInterval,omitempty"`
}

// ProtoJoinResponse tags the struct as a join response payload.
func (JoinResponseV1) ProtoJoinResponse() {}

// EncodeJoinResponseV1 renders a versioned join response payload.
func EncodeJoinResponseV1(msg JoinResponseV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}
