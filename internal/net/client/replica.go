// Package client implements the forwarding peer: it joins a movement
// server, mirrors the replicated state, and forwards local input instead
// of integrating it.
package client

import (
	"fmt"
	"sort"
	"sync"

	"merlo/server/internal/anim"
	"merlo/server/internal/net/proto"
	"merlo/server/internal/sim"
)

// PlayerFactory builds the animation backend for a replicated player.
// A nil factory disables animation playback.
type PlayerFactory func(playerID string) anim.Player

// Replica mirrors the server's snapshot through keyframes and deltas, and
// drives one animation classifier per replicated player.
type Replica struct {
	mu      sync.Mutex
	tick    uint64
	players map[string]sim.PlayerSnapshot
	doodads []sim.DoodadSnapshot

	classifiers map[string]*anim.Classifier
	factory     PlayerFactory
}

// NewReplica builds an empty replica.
func NewReplica(factory PlayerFactory) *Replica {
	return &Replica{
		players:     make(map[string]sim.PlayerSnapshot),
		classifiers: make(map[string]*anim.Classifier),
		factory:     factory,
	}
}

// Seed resets the replica from the join payload.
func (r *Replica) Seed(join proto.JoinResponseV1) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked(join.Tick, join.Players, join.Doodads)
}

// ApplyKeyframe replaces the replica with a full snapshot. Keyframes are
// authoritative: players absent from the frame are dropped.
func (r *Replica) ApplyKeyframe(frame proto.KeyframeSnapshotV1) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked(frame.Tick, frame.Players, frame.Doodads)
}

func (r *Replica) resetLocked(tick uint64, players []sim.PlayerSnapshot, doodads []sim.DoodadSnapshot) {
	r.tick = tick
	seen := make(map[string]bool, len(players))
	for id := range r.players {
		delete(r.players, id)
	}
	for _, player := range players {
		r.players[player.ID] = player
		seen[player.ID] = true
	}
	if doodads != nil {
		r.doodads = append(r.doodads[:0], doodads...)
	}
	for id := range r.classifiers {
		if !seen[id] {
			delete(r.classifiers, id)
		}
	}
	r.classifyLocked()
}

// ApplyDelta folds one tick's patches into the replica. Patches are
// last-write-wins per field group.
func (r *Replica) ApplyDelta(delta proto.StateDeltaV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delta.Tick > 0 {
		r.tick = delta.Tick
	}
	for _, patch := range delta.Patches {
		if err := r.applyPatchLocked(patch); err != nil {
			return fmt.Errorf("apply %s for %q: %w", patch.Kind, patch.EntityID, err)
		}
	}
	r.classifyLocked()
	return nil
}

func (r *Replica) applyPatchLocked(patch sim.Patch) error {
	payload, err := proto.DecodePatchPayload(patch)
	if err != nil {
		return err
	}
	switch typed := payload.(type) {
	case sim.PlayerJoinedPayload:
		r.players[patch.EntityID] = typed.Player
	case sim.MovementStatePayload:
		player := r.players[patch.EntityID]
		player.ID = patch.EntityID
		player.State = typed.State
		r.players[patch.EntityID] = player
	case sim.TransformPayload:
		player := r.players[patch.EntityID]
		player.ID = patch.EntityID
		player.Position = typed.Position
		player.Yaw = typed.Yaw
		r.players[patch.EntityID] = player
	case sim.VelocityPayload:
		player := r.players[patch.EntityID]
		player.ID = patch.EntityID
		player.Velocity = typed.Linear
		player.AngularY = typed.AngularY
		r.players[patch.EntityID] = player
	case nil:
		if patch.Kind == sim.PatchPlayerRemoved {
			delete(r.players, patch.EntityID)
			delete(r.classifiers, patch.EntityID)
		}
	}
	return nil
}

// classifyLocked feeds every player's state to its animation classifier,
// creating classifiers lazily for newly seen players.
func (r *Replica) classifyLocked() {
	if r.factory == nil {
		return
	}
	for id, player := range r.players {
		classifier, ok := r.classifiers[id]
		if !ok {
			classifier = anim.NewClassifier(r.factory(id))
			classifier.Start()
			r.classifiers[id] = classifier
		}
		classifier.Update(anim.ClassifyState(player.State))
	}
}

// Tick reports the last applied server tick.
func (r *Replica) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

// Player returns the replicated snapshot for one id.
func (r *Replica) Player(id string) (sim.PlayerSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	return player, ok
}

// Players returns every replicated player sorted by id.
func (r *Replica) Players() []sim.PlayerSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	players := make([]sim.PlayerSnapshot, 0, len(r.players))
	for _, player := range r.players {
		players = append(players, player)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// Doodads returns the replicated scenery.
func (r *Replica) Doodads() []sim.DoodadSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sim.DoodadSnapshot(nil), r.doodads...)
}

// AnimationCategory reports the category last played for a player.
func (r *Replica) AnimationCategory(id string) (anim.Category, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	classifier, ok := r.classifiers[id]
	if !ok {
		return anim.Idle, false
	}
	return classifier.Current(), true
}
