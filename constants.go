package server

import (
	"time"

	"merlo/server/internal/net/proto"
)

// ProtocolVersion is the wire revision clients must speak.
const ProtocolVersion = proto.Version

// Command rejection reasons reported to clients. Queue reasons come from the
// simulation loop.
const (
	CommandRejectInvalidAction = "invalid_action"
	CommandRejectUnknownActor  = "unknown_actor"
)

const (
	writeWait = 10 * time.Second

	defaultTickRate         = 60
	defaultCatchupMaxTicks  = 4
	defaultCommandCapacity  = 1024
	defaultPerActorLimit    = 32
	defaultKeyframeInterval = 120 // ticks

	defaultHeartbeatInterval = 2 * time.Second
	defaultHeartbeatTimeout  = 3 * defaultHeartbeatInterval

	// Characters spawn with the capsule foot on the ground slab.
	spawnHeight = 1.5
)
