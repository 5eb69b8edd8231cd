package sim

import (
	"fmt"
	"sync"

	"merlo/server/internal/physics"
	"merlo/server/internal/sim/vec"
)

// Character pairs a movement state with its physics body and per-character
// movement constants.
type Character struct {
	ID   string
	Body physics.BodyID

	State MovementState
}

// Core is the authoritative simulation engine. It owns every character's
// movement state and is the only writer of velocity commands. All methods
// are safe for concurrent use; the fixed-tick loop is the only caller of
// Step.
type Core struct {
	mu     sync.Mutex
	deps   Deps
	role   Role
	world  *physics.World
	tuning Tuning

	chars map[string]*Character
	order []string

	doodads []DoodadSnapshot

	pending []Command
	patches []Patch
	last    map[string]PlayerSnapshot
	tick    uint64

	stages []stageFunc
}

type stageFunc func(dt float64)

// NewCore constructs an engine over the given physics world. The stage list
// is the literal per-tick ordering: grounded detection, movement
// integration, then damping. Input collection happens upstream of the
// engine, and the engine only integrates on authoritative processes.
func NewCore(role Role, world *physics.World, tuning Tuning, deps Deps) *Core {
	c := &Core{
		deps:   deps,
		role:   role,
		world:  world,
		tuning: tuning,
		chars:  make(map[string]*Character),
		last:   make(map[string]PlayerSnapshot),
	}
	c.stages = []stageFunc{
		c.groundedStage,
		c.movementStage,
		c.dampingStage,
	}
	return c
}

// Role returns the process role the core was built for.
func (c *Core) Role() Role {
	if c == nil {
		return RoleClient
	}
	return c.role
}

// AddDoodad registers a static scenery body so ray casts have geometry to
// hit, and records it for the join snapshot.
func (c *Core) AddDoodad(d DoodadSnapshot) {
	if c == nil || c.world == nil {
		return
	}
	half := d.Size.Scale(0.5)
	c.world.AddBody(physics.Body{
		Position:    d.Position,
		Yaw:         d.Yaw,
		HalfExtents: half,
		Static:      true,
	})
	c.mu.Lock()
	c.doodads = append(c.doodads, d)
	c.mu.Unlock()
}

// SpawnCharacter creates a character with the default movement state and a
// dynamic physics body at the given position.
func (c *Core) SpawnCharacter(id string, position vec.Vec3) error {
	if c == nil {
		return fmt.Errorf("spawn %s: engine not initialised", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.chars[id]; exists {
		return fmt.Errorf("spawn %s: character already exists", id)
	}
	bodyID := c.world.AddBody(physics.Body{
		Position:     position,
		HalfExtents:  vec.Vec3{X: 0.5, Y: c.tuning.ProbeOriginToFoot, Z: 0.5},
		FootOffset:   c.tuning.ProbeOriginToFoot,
		GravityScale: 2,
	})
	char := &Character{
		ID:    id,
		Body:  bodyID,
		State: DefaultMovementState(),
	}
	c.chars[id] = char
	c.order = append(c.order, id)

	snapshot := c.snapshotCharacterLocked(char)
	c.last[id] = snapshot
	c.patches = append(c.patches, Patch{
		Kind:     PatchPlayerJoined,
		EntityID: id,
		Payload:  PlayerJoinedPayload{Player: snapshot},
	})
	return nil
}

// RemoveCharacter destroys a character and its body.
func (c *Core) RemoveCharacter(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	char, ok := c.chars[id]
	if !ok {
		return
	}
	c.world.RemoveBody(char.Body)
	delete(c.chars, id)
	delete(c.last, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.patches = append(c.patches, Patch{Kind: PatchPlayerRemoved, EntityID: id})
}

// HasCharacter reports whether the id is a live character.
func (c *Core) HasCharacter(id string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.chars[id]
	return ok
}

// Apply stages commands for folding during the next Step. Commands for
// unknown characters are dropped silently: input is best-effort and the
// entity may have despawned while the message was in flight.
func (c *Core) Apply(cmds []Command) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cmd := range cmds {
		if _, ok := c.chars[cmd.ActorID]; !ok {
			continue
		}
		c.pending = append(c.pending, cmd)
	}
	return nil
}

// Step advances the simulation one fixed tick: the stage pipeline runs in
// order, the physics world integrates, and replication patches are emitted
// for every changed field.
func (c *Core) Step(dt float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	for _, stage := range c.stages {
		stage(dt)
	}
	c.world.Step(dt)
	c.pending = c.pending[:0]
	c.emitPatchesLocked()
}

// Tick reports the number of completed steps.
func (c *Core) Tick() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Snapshot returns the replicated view of every character and doodad.
func (c *Core) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := Snapshot{Tick: c.tick}
	for _, id := range c.order {
		snapshot.Players = append(snapshot.Players, c.snapshotCharacterLocked(c.chars[id]))
	}
	if len(c.doodads) > 0 {
		snapshot.Doodads = append([]DoodadSnapshot(nil), c.doodads...)
	}
	return snapshot
}

// DrainPatches returns the accumulated diff entries and clears them.
func (c *Core) DrainPatches() []Patch {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.patches) == 0 {
		return nil
	}
	drained := c.patches
	c.patches = nil
	return drained
}

// MovementStateFor returns a copy of the character's movement state.
func (c *Core) MovementStateFor(id string) (MovementState, bool) {
	if c == nil {
		return MovementState{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	char, ok := c.chars[id]
	if !ok {
		return MovementState{}, false
	}
	return char.State, true
}

func (c *Core) snapshotCharacterLocked(char *Character) PlayerSnapshot {
	snapshot := PlayerSnapshot{ID: char.ID, State: char.State}
	if body, ok := c.world.Body(char.Body); ok {
		snapshot.Position = body.Position
		snapshot.Yaw = body.Yaw
		snapshot.Velocity = body.Velocity
		snapshot.AngularY = body.AngularY
	}
	return snapshot
}

// emitPatchesLocked diffs every character against its last emitted snapshot
// and appends one patch per changed field group.
func (c *Core) emitPatchesLocked() {
	for _, id := range c.order {
		char := c.chars[id]
		current := c.snapshotCharacterLocked(char)
		previous, seen := c.last[id]
		if !seen || current.State != previous.State {
			c.patches = append(c.patches, Patch{
				Kind:     PatchMovementState,
				EntityID: id,
				Payload:  MovementStatePayload{State: current.State},
			})
		}
		if !seen || current.Position != previous.Position || current.Yaw != previous.Yaw {
			c.patches = append(c.patches, Patch{
				Kind:     PatchTransform,
				EntityID: id,
				Payload:  TransformPayload{Position: current.Position, Yaw: current.Yaw},
			})
		}
		if !seen || current.Velocity != previous.Velocity || current.AngularY != previous.AngularY {
			c.patches = append(c.patches, Patch{
				Kind:     PatchVelocity,
				EntityID: id,
				Payload:  VelocityPayload{Linear: current.Velocity, AngularY: current.AngularY},
			})
		}
		c.last[id] = current
	}
}

// Ensure Core satisfies the Engine surface expected by callers.
var _ Engine = (*Core)(nil)
