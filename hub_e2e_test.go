package server_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	server "merlo/server"
	"merlo/server/internal/net"
	"merlo/server/internal/net/client"
	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

// TestForwardedInputMovesOnlySender joins two clients over a real loopback
// websocket, forwards movement and jump intents from the first, and checks
// that replication moves the first player while leaving the silent peer at
// its spawn transform.
func TestForwardedInputMovesOnlySender(t *testing.T) {
	hub := server.NewHub(server.HubConfig{
		TickRate:         60,
		KeyframeInterval: 1 << 20,
		HeartbeatTimeout: time.Minute,
	})
	ts := httptest.NewServer(net.NewHTTPHandler(hub, net.HTTPHandlerConfig{}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mover := client.New(client.Config{ServerURL: ts.URL})
	if err := mover.Join(ctx); err != nil {
		t.Fatalf("mover join: %v", err)
	}
	defer mover.Close()
	go mover.Run(ctx)

	watcher := client.New(client.Config{ServerURL: ts.URL})
	if err := watcher.Join(ctx); err != nil {
		t.Fatalf("watcher join: %v", err)
	}
	defer watcher.Close()
	go watcher.Run(ctx)

	if err := mover.Send(sim.AddMove(vec.Vec3{Z: 1})); err != nil {
		t.Fatalf("send move: %v", err)
	}
	if err := mover.Send(sim.SetJump(true)); err != nil {
		t.Fatalf("send jump: %v", err)
	}
	waitFor(t, "command acks", func() bool { return mover.LastAck() >= 2 })

	watcherStart, ok := watcher.Replica().Player(watcher.PlayerID())
	if !ok {
		t.Fatalf("watcher missing own snapshot")
	}

	dt := 1.0 / 60
	start := time.Now()
	var movedForward, leftGround bool
	for tick := 0; tick < 120 && !(movedForward && leftGround); tick++ {
		hub.AdvanceOnce(start.Add(time.Duration(tick)*16*time.Millisecond), dt)
		time.Sleep(2 * time.Millisecond)
		if player, ok := mover.Replica().Player(mover.PlayerID()); ok {
			if player.Position.Z > 0.01 {
				movedForward = true
			}
			if player.Position.Y > watcherStart.Position.Y+0.05 {
				leftGround = true
			}
		}
	}
	if !movedForward {
		t.Fatalf("mover never advanced along +Z")
	}
	if !leftGround {
		t.Fatalf("mover never left the ground after jump")
	}

	// the silent peer stayed at spawn
	waitFor(t, "watcher sees mover", func() bool {
		_, ok := watcher.Replica().Player(mover.PlayerID())
		return ok
	})
	watcherNow, ok := watcher.Replica().Player(watcher.PlayerID())
	if !ok {
		t.Fatalf("watcher snapshot lost")
	}
	if watcherNow.Position.X != watcherStart.Position.X || watcherNow.Position.Z != watcherStart.Position.Z {
		t.Fatalf("silent peer moved: %v -> %v", watcherStart.Position, watcherNow.Position)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
