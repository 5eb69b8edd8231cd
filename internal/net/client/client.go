package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"merlo/server/internal/net/proto"
	"merlo/server/internal/sim"
	"merlo/server/internal/telemetry"
)

// Config tunes a movement client.
type Config struct {
	ServerURL string
	Logger    telemetry.Logger

	HTTPClient *http.Client
	Dialer     *websocket.Dialer

	// Animations builds the playback backend per replicated player. Nil
	// disables animation.
	Animations PlayerFactory
}

// Client joins a movement server, forwards local actions, and keeps a
// replica current from the broadcast stream.
type Client struct {
	cfg    Config
	logger telemetry.Logger

	httpClient *http.Client
	dialer     *websocket.Dialer

	playerID string
	conn     *websocket.Conn
	writeMu  sync.Mutex

	seq     atomic.Uint64
	lastAck atomic.Uint64
	lastRTT atomic.Int64

	replica *Replica
}

// New builds an unconnected client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:        cfg,
		logger:     cfg.Logger,
		httpClient: httpClient,
		dialer:     dialer,
		replica:    NewReplica(cfg.Animations),
	}
}

// Join registers with the server and opens the websocket.
func (c *Client) Join(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client not initialised")
	}

	joinURL := strings.TrimSuffix(c.cfg.ServerURL, "/") + "/join"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL, nil)
	if err != nil {
		return fmt.Errorf("build join request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("join: unexpected status %d", resp.StatusCode)
	}

	var join proto.JoinResponseV1
	if err := json.NewDecoder(resp.Body).Decode(&join); err != nil {
		return fmt.Errorf("decode join response: %w", err)
	}
	if join.Ver != proto.Version {
		return fmt.Errorf("join: unsupported protocol version %d", join.Ver)
	}

	c.playerID = join.ID
	c.replica.Seed(join)

	wsURL, err := websocketURL(c.cfg.ServerURL, join.ID)
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	c.conn = conn
	return nil
}

func websocketURL(serverURL, playerID string) (string, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/ws"
	parsed.RawQuery = url.Values{"id": {playerID}}.Encode()
	return parsed.String(), nil
}

// PlayerID reports the identity assigned at join.
func (c *Client) PlayerID() string {
	if c == nil {
		return ""
	}
	return c.playerID
}

// Replica exposes the mirrored state.
func (c *Client) Replica() *Replica {
	if c == nil {
		return nil
	}
	return c.replica
}

// Send forwards one movement action with the next command sequence.
func (c *Client) Send(action sim.MovementAction) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("not connected")
	}
	msg := proto.ActionMessage(action, c.seq.Add(1), time.Now().UnixMilli())
	return c.writeJSON(msg)
}

// SendHeartbeat reports liveness and solicits an RTT measurement.
func (c *Client) SendHeartbeat() error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.writeJSON(proto.ClientMessage{
		Ver:    proto.Version,
		Type:   proto.TypeHeartbeat,
		SentAt: time.Now().UnixMilli(),
	})
}

func (c *Client) writeJSON(msg proto.ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// LastAck reports the highest command sequence the server acknowledged.
func (c *Client) LastAck() uint64 {
	if c == nil {
		return 0
	}
	return c.lastAck.Load()
}

// RTT reports the last measured round trip.
func (c *Client) RTT() time.Duration {
	if c == nil {
		return 0
	}
	return time.Duration(c.lastRTT.Load()) * time.Millisecond
}

// Run pumps inbound frames into the replica until the connection drops or
// the context ends.
func (c *Client) Run(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := c.handleFrame(payload); err != nil {
			c.logf("discarding frame: %v", err)
		}
	}
}

// handleFrame dispatches one server frame by its type field.
func (c *Client) handleFrame(payload []byte) error {
	var envelope struct {
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		RTT    int64  `json:"rtt"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch envelope.Type {
	case proto.TypeState:
		var delta proto.StateDeltaV1
		if err := json.Unmarshal(payload, &delta); err != nil {
			return fmt.Errorf("decode state delta: %w", err)
		}
		return c.replica.ApplyDelta(delta)
	case proto.TypeKeyframe:
		var frame proto.KeyframeSnapshotV1
		if err := json.Unmarshal(payload, &frame); err != nil {
			return fmt.Errorf("decode keyframe: %w", err)
		}
		c.replica.ApplyKeyframe(frame)
		return nil
	case proto.TypeCommandAck:
		if envelope.Seq > c.lastAck.Load() {
			c.lastAck.Store(envelope.Seq)
		}
		return nil
	case proto.TypeCommandReject:
		c.logf("command %d rejected: %s", envelope.Seq, envelope.Reason)
		return nil
	case proto.TypeHeartbeat:
		c.lastRTT.Store(envelope.RTT)
		return nil
	default:
		return fmt.Errorf("unknown frame type %q", envelope.Type)
	}
}

// Close tears the websocket down.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) logf(format string, args ...any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
