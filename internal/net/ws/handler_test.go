package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"merlo/server"
	"merlo/server/internal/net/proto"
)

// The simulation loop is never started in these tests so queue depth stays
// observable between frames.
func newSessionHub(t *testing.T) *server.Hub {
	t.Helper()
	return server.NewHub(server.HubConfig{
		TickRate:         60,
		HeartbeatTimeout: time.Minute,
	})
}

func dialSession(t *testing.T, hub *server.Hub, playerID string) *websocket.Conn {
	t.Helper()

	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?" + url.Values{"id": {playerID}}.Encode()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

type serverFrame struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Tick   uint64 `json:"tick"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry"`
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame serverFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func sendAction(t *testing.T, conn *websocket.Conn, action string, seq uint64) {
	t.Helper()
	msg := proto.ClientMessage{
		Ver:        proto.Version,
		Type:       proto.TypeAction,
		Action:     action,
		Z:          1,
		CommandSeq: &seq,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal action: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("send action: %v", err)
	}
}

func TestServeSendsInitialKeyframe(t *testing.T) {
	hub := newSessionHub(t)
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	conn := dialSession(t, hub, join.ID)

	frame := readFrame(t, conn)
	if frame.Type != proto.TypeKeyframe {
		t.Fatalf("initial frame type = %q, want %q", frame.Type, proto.TypeKeyframe)
	}
}

// Resending an acknowledged sequence re-acks without staging the command a
// second time.
func TestHandleActionDuplicateSequenceIsNotRestaged(t *testing.T) {
	hub := newSessionHub(t)
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	conn := dialSession(t, hub, join.ID)
	readFrame(t, conn) // initial keyframe

	sendAction(t, conn, proto.ActionAddMove, 1)
	first := readFrame(t, conn)
	if first.Type != proto.TypeCommandAck || first.Seq != 1 {
		t.Fatalf("first frame = %+v, want ack for seq 1", first)
	}
	if pending := hub.Queue().Pending(); pending != 1 {
		t.Fatalf("staged commands = %d after first send, want 1", pending)
	}

	sendAction(t, conn, proto.ActionAddMove, 1)
	replay := readFrame(t, conn)
	if replay.Type != proto.TypeCommandAck || replay.Seq != 1 {
		t.Fatalf("replay frame = %+v, want re-ack for seq 1", replay)
	}
	if pending := hub.Queue().Pending(); pending != 1 {
		t.Fatalf("staged commands = %d after replay, want 1", pending)
	}

	sendAction(t, conn, proto.ActionAddMove, 2)
	next := readFrame(t, conn)
	if next.Type != proto.TypeCommandAck || next.Seq != 2 {
		t.Fatalf("next frame = %+v, want ack for seq 2", next)
	}
	if pending := hub.Queue().Pending(); pending != 2 {
		t.Fatalf("staged commands = %d after new sequence, want 2", pending)
	}
}

func TestHandleActionRejectsUnknownActionName(t *testing.T) {
	hub := newSessionHub(t)
	join, err := hub.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	conn := dialSession(t, hub, join.ID)
	readFrame(t, conn) // initial keyframe

	sendAction(t, conn, "teleport", 1)
	frame := readFrame(t, conn)
	if frame.Type != proto.TypeCommandReject || frame.Seq != 1 {
		t.Fatalf("frame = %+v, want reject for seq 1", frame)
	}
	if frame.Reason != server.CommandRejectInvalidAction {
		t.Fatalf("reject reason = %q, want %q", frame.Reason, server.CommandRejectInvalidAction)
	}
	if frame.Retry {
		t.Fatalf("invalid action marked retryable")
	}
	if pending := hub.Queue().Pending(); pending != 0 {
		t.Fatalf("staged commands = %d after reject, want 0", pending)
	}
}

func TestHandleRejectsUnknownPlayer(t *testing.T) {
	hub := newSessionHub(t)
	conn := dialSession(t, hub, "stranger")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the session to close for an unknown player")
	}
}
