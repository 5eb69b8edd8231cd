// Package ws serves the movement websocket: it upgrades connections,
// reads client messages, stages commands, and acks or rejects them by
// sequence number.
package ws

import (
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"merlo/server"
	"merlo/server/internal/net/intake"
	"merlo/server/internal/net/proto"
	"merlo/server/internal/sim"
	"merlo/server/internal/telemetry"
)

// HandlerConfig tunes the websocket handler.
type HandlerConfig struct {
	Logger telemetry.Logger
	Now    func() time.Time
}

// Handler coordinates websocket sessions for hub players.
type Handler struct {
	hub      *server.Hub
	logger   telemetry.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket session handler for the given hub.
func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	return &Handler{
		hub:      hub,
		logger:   cfg.Logger,
		now:      now,
		upgrader: upgrader,
	}
}

// Handle upgrades the request and runs the session until the peer drops.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("upgrade failed for %s: %v", playerID, err)
		return
	}

	h.Serve(playerID, conn)
}

// Serve subscribes the connection and pumps its messages. The initial frame
// is a full keyframe so the client replica seeds before any deltas arrive.
func (h *Handler) Serve(playerID string, conn *websocket.Conn) {
	if h == nil || h.hub == nil || conn == nil {
		return
	}

	sub, snapshot, ok := h.hub.Subscribe(playerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	initial, err := proto.EncodeKeyframeSnapshotV1(proto.KeyframeSnapshotV1{
		Tick:    snapshot.Tick,
		Players: snapshot.Players,
		Doodads: snapshot.Doodads,
	})
	if err != nil {
		h.logf("failed to marshal initial keyframe for %s: %v", playerID, err)
		h.hub.Disconnect(playerID)
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, initial); err != nil {
		h.hub.Disconnect(playerID)
		return
	}

	ctx := intake.CommandContext{
		Queue:     h.hub.Queue(),
		HasPlayer: h.hub.HasCharacter,
		Tick:      h.hub.Tick,
		Now:       h.now,
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(playerID)
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logf("discarding malformed message from %s: %v", playerID, err)
			continue
		}

		switch msg.Type {
		case proto.TypeHeartbeat:
			if !h.handleHeartbeat(playerID, sub, msg) {
				return
			}
		case proto.TypeAction:
			if !h.handleAction(ctx, playerID, sub, msg) {
				return
			}
		default:
			h.logf("unknown message type %q from %s", msg.Type, playerID)
		}
	}
}

// handleAction stages one client action. Duplicate sequences are re-acked
// without touching the queue; the returned bool is false when the session
// should end.
func (h *Handler) handleAction(ctx intake.CommandContext, playerID string, sub *server.Subscriber, msg proto.ClientMessage) bool {
	seq := uint64(0)
	if msg.CommandSeq != nil && *msg.CommandSeq > 0 {
		seq = *msg.CommandSeq
	}

	if seq > 0 {
		if last := sub.LastCommandSeq(); last > 0 && seq <= last {
			return h.writeAck(playerID, sub, proto.CommandAck{Seq: seq})
		}
	}

	cmd, ok, reason := intake.StageClientCommand(ctx, playerID, msg)
	if ok {
		if seq > 0 {
			if !h.writeAck(playerID, sub, proto.CommandAck{Seq: seq, Tick: cmd.OriginTick}) {
				return false
			}
			sub.StoreLastCommandSeq(seq)
		}
		return true
	}

	switch reason {
	case server.CommandRejectInvalidAction:
		h.logf("invalid action %q from %s", msg.Action, playerID)
	case server.CommandRejectUnknownActor:
		h.logf("action ignored for unknown player %s", playerID)
	}
	if seq > 0 {
		retry := reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
		data, err := proto.EncodeCommandReject(proto.CommandReject{Seq: seq, Reason: reason, Retry: retry})
		if err != nil {
			h.logf("failed to marshal reject for %s: %v", playerID, err)
			return true
		}
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.hub.Disconnect(playerID)
			return false
		}
	}
	return true
}

func (h *Handler) handleHeartbeat(playerID string, sub *server.Subscriber, msg proto.ClientMessage) bool {
	now := h.now()
	rtt, ok := h.hub.UpdateHeartbeat(playerID, now, msg.SentAt)
	if !ok {
		return true
	}

	data, err := proto.EncodeHeartbeat(proto.Heartbeat{
		ServerTime: now.UnixMilli(),
		ClientTime: msg.SentAt,
		RTTMillis:  rtt.Milliseconds(),
	})
	if err != nil {
		h.logf("failed to marshal heartbeat ack for %s: %v", playerID, err)
		return true
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.Disconnect(playerID)
		return false
	}
	return true
}

func (h *Handler) writeAck(playerID string, sub *server.Subscriber, ack proto.CommandAck) bool {
	data, err := proto.EncodeCommandAck(ack)
	if err != nil {
		h.logf("failed to marshal ack for %s: %v", playerID, err)
		return true
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.Disconnect(playerID)
		return false
	}
	return true
}

func (h *Handler) logf(format string, args ...any) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Printf(format, args...)
}
