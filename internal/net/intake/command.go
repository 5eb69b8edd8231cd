// Package intake validates client messages and stages the resulting
// simulation commands on the tick queue.
package intake

import (
	"math"
	"time"

	"merlo/server"
	"merlo/server/internal/net/proto"
	"merlo/server/internal/sim"
)

// CommandContext supplies the collaborators staging needs. Nil funcs skip
// the corresponding step.
type CommandContext struct {
	Queue     sim.CommandQueue
	HasPlayer func(string) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand validates an inbound message and enqueues its action
// for the next tick. On rejection the reason names the failure the way the
// wire protocol reports it.
func StageClientCommand(ctx CommandContext, playerID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	action, ok := proto.ClientAction(msg)
	if !ok {
		return zero, false, server.CommandRejectInvalidAction
	}
	if !finiteAction(action) {
		return zero, false, server.CommandRejectInvalidAction
	}

	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, server.CommandRejectUnknownActor
	}

	command := sim.Command{
		ActorID: playerID,
		Action:  action,
	}
	if msg.CommandSeq != nil {
		command.Seq = *msg.CommandSeq
	}
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Queue == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Queue.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}

func finiteAction(action sim.MovementAction) bool {
	return finite(action.Move.X) && finite(action.Move.Y) && finite(action.Move.Z) && finite(action.Value)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
