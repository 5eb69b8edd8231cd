package server

import (
	"testing"
	"time"

	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

func forward() vec.Vec3 {
	return vec.Vec3{Z: 1}
}

func newTestHub() *Hub {
	return NewHub(HubConfig{
		TickRate:         60,
		KeyframeInterval: 4,
		HeartbeatTimeout: 100 * time.Millisecond,
	})
}

func TestJoinSpawnsCharacterWithDefaults(t *testing.T) {
	hub := newTestHub()

	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if join.ID == "" {
		t.Fatalf("join assigned empty id")
	}
	if !hub.HasCharacter(join.ID) {
		t.Fatalf("joined player missing from simulation")
	}
	if len(join.Players) != 1 {
		t.Fatalf("join snapshot players = %d, want 1", len(join.Players))
	}
	state := join.Players[0].State
	if state.Speed != sim.RunSpeed || !state.Grounded {
		t.Fatalf("unexpected default state %+v", state)
	}
	if join.KeyframeInterval != 4 {
		t.Fatalf("keyframe interval = %d, want 4", join.KeyframeInterval)
	}
}

func TestJoinAssignsDistinctIDs(t *testing.T) {
	hub := newTestHub()

	first, err := hub.Join()
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, err := hub.Join()
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("duplicate player id %q", first.ID)
	}
	if len(second.Players) != 2 {
		t.Fatalf("second join snapshot players = %d, want 2", len(second.Players))
	}
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	hub := newTestHub()
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if !hub.Disconnect(join.ID) {
		t.Fatalf("disconnect reported unknown player")
	}
	if hub.HasCharacter(join.ID) {
		t.Fatalf("player still live after disconnect")
	}
	if hub.Disconnect(join.ID) {
		t.Fatalf("second disconnect reported success")
	}
}

func TestUpdateHeartbeatMeasuresRTT(t *testing.T) {
	hub := newTestHub()
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	receivedAt := time.UnixMilli(10_000)
	rtt, ok := hub.UpdateHeartbeat(join.ID, receivedAt, 9_970)
	if !ok {
		t.Fatalf("heartbeat rejected for live player")
	}
	if rtt != 30*time.Millisecond {
		t.Fatalf("rtt = %v, want 30ms", rtt)
	}

	if _, ok := hub.UpdateHeartbeat("ghost", receivedAt, 9_970); ok {
		t.Fatalf("heartbeat accepted for unknown player")
	}
}

func TestStaleHeartbeatPrunesPlayer(t *testing.T) {
	hub := newTestHub()
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	// first tick inside the window keeps the player
	hub.AdvanceOnce(time.Now().Add(50*time.Millisecond), 1.0/60)
	if !hub.HasCharacter(join.ID) {
		t.Fatalf("player pruned while heartbeat current")
	}

	hub.AdvanceOnce(time.Now().Add(time.Second), 1.0/60)
	if hub.HasCharacter(join.ID) {
		t.Fatalf("player survived heartbeat timeout")
	}
}

func TestStagedActionMovesPlayer(t *testing.T) {
	hub := newTestHub()
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	ok, reason := hub.Queue().Enqueue(sim.Command{
		ActorID: join.ID,
		Action:  sim.SetMove(forward()),
	})
	if !ok {
		t.Fatalf("enqueue rejected: %s", reason)
	}

	start := time.Now()
	var moved bool
	for i := 0; i < 10; i++ {
		result := hub.AdvanceOnce(start.Add(time.Duration(i)*time.Millisecond), 1.0/60)
		for _, player := range result.Snapshot.Players {
			if player.ID == join.ID && player.Position.Z > 0 {
				moved = true
			}
		}
		// keep the intent alive for the next tick
		hub.Queue().Enqueue(sim.Command{ActorID: join.ID, Action: sim.SetMove(forward())})
	}
	if !moved {
		t.Fatalf("player never moved forward")
	}
}

func TestDiagnosticsSnapshotListsSessions(t *testing.T) {
	hub := newTestHub()
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	players := hub.DiagnosticsSnapshot()
	if len(players) != 1 || players[0].ID != join.ID {
		t.Fatalf("diagnostics = %+v", players)
	}
}

func TestAddDoodadAppearsInJoinSnapshot(t *testing.T) {
	hub := newTestHub()
	hub.AddDoodad(sim.DoodadSnapshot{
		ID:       "crate",
		Position: vec.Vec3{X: 2, Y: 0.5, Z: 2},
		Size:     vec.Vec3{X: 1, Y: 1, Z: 1},
	})

	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(join.Doodads) != 1 || join.Doodads[0].ID != "crate" {
		t.Fatalf("join doodads = %+v", join.Doodads)
	}
}
