package sim

import (
	"fmt"
	"testing"

	"merlo/server/internal/sim/vec"
	"merlo/server/internal/telemetry"
)

func TestCommandBufferDrainsInArrivalOrder(t *testing.T) {
	buffer := NewCommandBuffer(4, nil)
	actions := []MovementAction{
		AddMove(vec.Vec3{Z: 1}),
		SetJump(true),
		SetSpeed(WalkSpeed),
	}
	for i, action := range actions {
		cmd := Command{ActorID: "p1", Seq: uint64(i + 1), Action: action}
		if !buffer.Push(cmd) {
			t.Fatalf("push %d refused with %d/%d staged", i, buffer.Len(), buffer.Capacity())
		}
	}

	drained := buffer.Drain()
	if len(drained) != len(actions) {
		t.Fatalf("drained %d commands, want %d", len(drained), len(actions))
	}
	for i, cmd := range drained {
		if cmd.Seq != uint64(i+1) || cmd.Action.Kind != actions[i].Kind {
			t.Fatalf("drain[%d] = seq %d kind %s, want seq %d kind %s",
				i, cmd.Seq, cmd.Action.Kind, i+1, actions[i].Kind)
		}
	}
	if again := buffer.Drain(); again != nil {
		t.Fatalf("second drain returned %d commands", len(again))
	}
}

func TestCommandBufferWrapsAcrossDrains(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)

	// Fill, drain, then refill so the staged range straddles the slot end.
	for seq := uint64(1); seq <= 3; seq++ {
		buffer.Push(Command{ActorID: "p1", Seq: seq})
	}
	buffer.Drain()
	for seq := uint64(4); seq <= 5; seq++ {
		if !buffer.Push(Command{ActorID: "p1", Seq: seq}) {
			t.Fatalf("push seq %d refused after drain", seq)
		}
	}

	drained := buffer.Drain()
	if len(drained) != 2 || drained[0].Seq != 4 || drained[1].Seq != 5 {
		t.Fatalf("unexpected commands after wrap: %+v", drained)
	}
}

func TestCommandBufferRefusesWhenFullAndCountsDrops(t *testing.T) {
	counters := telemetry.NewCounters()
	buffer := NewCommandBuffer(2, counters)

	for seq := uint64(1); seq <= 2; seq++ {
		buffer.Push(Command{ActorID: "p1", Seq: seq})
	}
	if buffer.Push(Command{ActorID: "p2", Seq: 3}) {
		t.Fatalf("push succeeded with %d/%d staged", buffer.Len(), buffer.Capacity())
	}

	values := counters.Snapshot()
	if values[metricQueueDropped] != 1 {
		t.Fatalf("dropped counter = %d, want 1", values[metricQueueDropped])
	}
	if values[metricQueueDepth] != 2 {
		t.Fatalf("depth gauge = %d, want 2", values[metricQueueDepth])
	}

	drained := buffer.Drain()
	if len(drained) != 2 {
		t.Fatalf("drained %d commands, want the 2 accepted", len(drained))
	}
	if counters.Snapshot()[metricQueueDepth] != 0 {
		t.Fatalf("depth gauge = %d after drain, want 0", counters.Snapshot()[metricQueueDepth])
	}
}

func TestCommandBufferMinimumCapacity(t *testing.T) {
	for _, capacity := range []int{-1, 0, 1} {
		t.Run(fmt.Sprintf("capacity=%d", capacity), func(t *testing.T) {
			buffer := NewCommandBuffer(capacity, nil)
			if buffer.Capacity() != 1 {
				t.Fatalf("capacity = %d, want 1", buffer.Capacity())
			}
			if !buffer.Push(Command{ActorID: "p1"}) {
				t.Fatalf("push refused on single-slot buffer")
			}
		})
	}
}
