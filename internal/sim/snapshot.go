package sim

import "merlo/server/internal/sim/vec"

// PlayerSnapshot captures the replicated view of one character: the semantic
// movement state plus the integrated transform and velocity.
type PlayerSnapshot struct {
	ID       string        `json:"id"`
	State    MovementState `json:"state"`
	Position vec.Vec3      `json:"position"`
	Yaw      float64       `json:"yaw"`
	Velocity vec.Vec3      `json:"velocity"`
	AngularY float64       `json:"angularY"`
}

// DoodadSnapshot describes a static scenery body replicated once at join.
type DoodadSnapshot struct {
	ID       string   `json:"id"`
	Position vec.Vec3 `json:"position"`
	Yaw      float64  `json:"yaw"`
	Size     vec.Vec3 `json:"size"`
}

// Snapshot captures the state exposed to non-simulation callers.
type Snapshot struct {
	Tick    uint64           `json:"t"`
	Players []PlayerSnapshot `json:"players,omitempty"`
	Doodads []DoodadSnapshot `json:"doodads,omitempty"`
}
