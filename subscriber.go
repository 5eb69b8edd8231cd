package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Subscriber wraps a player's websocket connection. Writes are serialized
// through a mutex because the broadcast loop and the session reader both
// send frames. The last acknowledged command sequence lives here so
// duplicate deliveries can be re-acked without re-staging.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex

	lastCommandSeq atomic.Uint64
}

func newSubscriber(conn *websocket.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// WriteMessage sends one frame under the write deadline.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	if s == nil || s.conn == nil {
		return websocket.ErrCloseSent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Close tears the connection down.
func (s *Subscriber) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// LastCommandSeq reports the highest acked command sequence.
func (s *Subscriber) LastCommandSeq() uint64 {
	if s == nil {
		return 0
	}
	return s.lastCommandSeq.Load()
}

// StoreLastCommandSeq records a newly acked command sequence.
func (s *Subscriber) StoreLastCommandSeq(seq uint64) {
	if s == nil {
		return
	}
	s.lastCommandSeq.Store(seq)
}
