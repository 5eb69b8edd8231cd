// Package server hosts the authoritative movement hub: it owns the
// simulation core, the tick loop, and every live websocket subscriber.
package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"merlo/server/internal/net/proto"
	"merlo/server/internal/physics"
	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
	"merlo/server/internal/telemetry"
)

// HubConfig tunes the hub. Zero values fall back to defaults.
type HubConfig struct {
	TickRate         int
	CatchupMaxTicks  int
	CommandCapacity  int
	PerActorLimit    int
	KeyframeInterval int
	HeartbeatTimeout time.Duration
	Tuning           sim.Tuning

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   telemetry.Clock
}

func (cfg HubConfig) withDefaults() HubConfig {
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	if cfg.CatchupMaxTicks <= 0 {
		cfg.CatchupMaxTicks = defaultCatchupMaxTicks
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = defaultCommandCapacity
	}
	if cfg.PerActorLimit <= 0 {
		cfg.PerActorLimit = defaultPerActorLimit
	}
	if cfg.KeyframeInterval <= 0 {
		cfg.KeyframeInterval = defaultKeyframeInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if cfg.Tuning == (sim.Tuning{}) {
		cfg.Tuning = sim.DefaultTuning()
	}
	if cfg.Clock == nil {
		cfg.Clock = telemetry.SystemClock{}
	}
	return cfg
}

type session struct {
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// Hub owns the live players, their websocket subscribers, and the
// authoritative simulation they feed.
type Hub struct {
	cfg    HubConfig
	core   *sim.Core
	loop   *sim.Loop
	logger telemetry.Logger
	clock  telemetry.Clock

	mu          sync.Mutex
	subscribers map[string]*Subscriber
	sessions    map[string]*session

	stateSeq    atomic.Uint64
	keyframeSeq atomic.Uint64
}

// NewHub builds a hub with a flat ground world and an empty roster.
func NewHub(cfg HubConfig) *Hub {
	cfg = cfg.withDefaults()

	world := physics.NewWorld(0)
	world.AddGround(0)

	deps := sim.Deps{Logger: cfg.Logger, Metrics: cfg.Metrics, Clock: cfg.Clock}
	core := sim.NewCore(sim.RoleServer, world, cfg.Tuning, deps)

	h := &Hub{
		cfg:         cfg,
		core:        core,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
		subscribers: make(map[string]*Subscriber),
		sessions:    make(map[string]*session),
	}
	h.loop = sim.NewLoop(core, sim.LoopConfig{
		TickRate:        cfg.TickRate,
		CatchupMaxTicks: cfg.CatchupMaxTicks,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerActorLimit,
		WarningStep:     cfg.CommandCapacity / 2,
	}, deps, sim.LoopHooks{
		Prepare:   h.pruneStaleSessions,
		AfterStep: h.afterStep,
		OnQueueWarning: func(length int) {
			h.logf("[backpressure] command queue depth %d", length)
		},
	})
	return h
}

// AddDoodad registers scenery before the simulation starts.
func (h *Hub) AddDoodad(d sim.DoodadSnapshot) {
	if h == nil {
		return
	}
	h.core.AddDoodad(d)
}

// Join registers a new player and returns the join payload the client seeds
// its replica from.
func (h *Hub) Join() (proto.JoinResponseV1, error) {
	playerID := uuid.NewString()
	if err := h.core.SpawnCharacter(playerID, vec.Vec3{Y: spawnHeight}); err != nil {
		return proto.JoinResponseV1{}, err
	}

	h.mu.Lock()
	h.sessions[playerID] = &session{lastHeartbeat: h.clock.Now()}
	h.mu.Unlock()

	snapshot := h.core.Snapshot()
	return proto.JoinResponseV1{
		ID:               playerID,
		Tick:             snapshot.Tick,
		Players:          snapshot.Players,
		Doodads:          snapshot.Doodads,
		KeyframeInterval: h.cfg.KeyframeInterval,
	}, nil
}

// Subscribe associates a websocket connection with an existing player. An
// older connection for the same player is closed.
func (h *Hub) Subscribe(playerID string, conn *websocket.Conn) (*Subscriber, sim.Snapshot, bool) {
	if h == nil || !h.core.HasCharacter(playerID) {
		return nil, sim.Snapshot{}, false
	}

	h.mu.Lock()
	if existing, ok := h.subscribers[playerID]; ok {
		existing.Close()
	}
	sub := newSubscriber(conn)
	h.subscribers[playerID] = sub
	if state, ok := h.sessions[playerID]; ok {
		state.lastHeartbeat = h.clock.Now()
	}
	h.mu.Unlock()

	return sub, h.core.Snapshot(), true
}

// Disconnect removes a player, its session, and any live subscriber. The
// removal patch reaches the remaining peers on the next tick.
func (h *Hub) Disconnect(playerID string) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	sub, subOK := h.subscribers[playerID]
	if subOK {
		delete(h.subscribers, playerID)
	}
	_, known := h.sessions[playerID]
	delete(h.sessions, playerID)
	h.mu.Unlock()

	if subOK {
		sub.Close()
	}
	if !known && !h.core.HasCharacter(playerID) {
		return false
	}
	h.core.RemoveCharacter(playerID)
	h.logf("disconnected %s", playerID)
	return true
}

// HasCharacter reports whether the player is live in the simulation.
func (h *Hub) HasCharacter(playerID string) bool {
	if h == nil {
		return false
	}
	return h.core.HasCharacter(playerID)
}

// Tick reports the current simulation tick.
func (h *Hub) Tick() uint64 {
	if h == nil {
		return 0
	}
	return h.core.Tick()
}

// Queue exposes the staging queue commands are enqueued on.
func (h *Hub) Queue() sim.CommandQueue {
	if h == nil {
		return nil
	}
	return h.loop
}

// TickRate reports the configured simulation rate.
func (h *Hub) TickRate() int {
	if h == nil {
		return 0
	}
	return h.cfg.TickRate
}

// KeyframeInterval reports the keyframe cadence in ticks.
func (h *Hub) KeyframeInterval() int {
	if h == nil {
		return 0
	}
	return h.cfg.KeyframeInterval
}

// UpdateHeartbeat records the most recent heartbeat time and RTT for a player.
func (h *Hub) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.sessions[playerID]
	if !ok {
		return 0, false
	}
	state.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}
	return state.lastRTT, true
}

// RunSimulation drives the fixed-rate tick loop until the stop channel
// closes. Broadcasting happens from the loop's AfterStep hook.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	if h == nil {
		return
	}
	h.loop.Run(stop)
}

// AdvanceOnce advances a single tick outside the ticker loop. Exposed for
// harness-driven runs and tests.
func (h *Hub) AdvanceOnce(now time.Time, dt float64) sim.LoopStepResult {
	if h == nil {
		return sim.LoopStepResult{}
	}
	result := h.loop.Advance(sim.LoopTickContext{Tick: h.core.Tick() + 1, Now: now, Delta: dt})
	h.afterStep(result)
	return result
}

// pruneStaleSessions disconnects players whose heartbeat lapsed.
func (h *Hub) pruneStaleSessions(ctx sim.LoopTickContext) {
	h.mu.Lock()
	var stale []string
	for id, state := range h.sessions {
		if ctx.Now.Sub(state.lastHeartbeat) > h.cfg.HeartbeatTimeout {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		h.logf("disconnecting %s due to heartbeat timeout", id)
		h.Disconnect(id)
	}
}

// afterStep broadcasts the tick's patches and, on cadence, a full keyframe.
func (h *Hub) afterStep(result sim.LoopStepResult) {
	h.BroadcastDelta(result)
	if h.cfg.KeyframeInterval > 0 && result.Tick%uint64(h.cfg.KeyframeInterval) == 0 {
		h.BroadcastKeyframe(result.Snapshot)
	}
}

// BroadcastDelta sends the tick's patches to every subscriber. Quiescent
// ticks produce no traffic.
func (h *Hub) BroadcastDelta(result sim.LoopStepResult) {
	if h == nil || len(result.Patches) == 0 {
		return
	}
	data, err := proto.EncodeStateDeltaV1(proto.StateDeltaV1{
		Tick:             result.Tick,
		Sequence:         h.stateSeq.Add(1),
		KeyframeSeq:      h.keyframeSeq.Load(),
		ServerTime:       h.clock.Now().UnixMilli(),
		Patches:          result.Patches,
		KeyframeInterval: h.cfg.KeyframeInterval,
	})
	if err != nil {
		h.logf("failed to marshal state delta: %v", err)
		return
	}
	h.broadcast(data)
}

// BroadcastKeyframe sends a full snapshot so lossy links and late joiners
// converge without a patch history.
func (h *Hub) BroadcastKeyframe(snapshot sim.Snapshot) {
	if h == nil {
		return
	}
	data, err := proto.EncodeKeyframeSnapshotV1(proto.KeyframeSnapshotV1{
		Sequence: h.keyframeSeq.Add(1),
		Tick:     snapshot.Tick,
		Players:  snapshot.Players,
		Doodads:  snapshot.Doodads,
	})
	if err != nil {
		h.logf("failed to marshal keyframe: %v", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logf("failed to send update to %s: %v", id, err)
			h.Disconnect(id)
		}
	}
}

// DiagnosticsPlayer exposes per-player heartbeat data for diagnostics.
type DiagnosticsPlayer struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rtt"`
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []DiagnosticsPlayer {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	players := make([]DiagnosticsPlayer, 0, len(h.sessions))
	for id, state := range h.sessions {
		players = append(players, DiagnosticsPlayer{
			ID:            id,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
		})
	}
	return players
}

func (h *Hub) logf(format string, args ...any) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Printf(format, args...)
}
