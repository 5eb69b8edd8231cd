package sim

import "merlo/server/internal/sim/vec"

// PatchKind identifies the type of diff entry.
type PatchKind string

const (
	PatchMovementState PatchKind = "movement_state"
	PatchTransform     PatchKind = "transform"
	PatchVelocity      PatchKind = "velocity"
	PatchPlayerJoined  PatchKind = "player_joined"
	PatchPlayerRemoved PatchKind = "player_removed"
)

// Patch represents a diff entry that peers apply to their replicated state.
// Replication is last-write-wins per field; peers only need a recent,
// eventually consistent view.
type Patch struct {
	Kind     PatchKind `json:"kind"`
	EntityID string    `json:"entityId"`
	Payload  any       `json:"payload,omitempty"`
}

// MovementStatePayload carries a full movement state replacement.
type MovementStatePayload struct {
	State MovementState `json:"state"`
}

// TransformPayload carries the integrated position and yaw for an entity.
type TransformPayload struct {
	Position vec.Vec3 `json:"position"`
	Yaw      float64  `json:"yaw"`
}

// VelocityPayload carries the linear and yaw angular velocity for an entity.
type VelocityPayload struct {
	Linear   vec.Vec3 `json:"linear"`
	AngularY float64  `json:"angularY"`
}

// PlayerJoinedPayload carries the full snapshot of a newly spawned player.
type PlayerJoinedPayload struct {
	Player PlayerSnapshot `json:"player"`
}
