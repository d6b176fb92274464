package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/marketmind/internal/logging"
)

// chatConn is one open /ws chat connection. Reads happen on a single
// goroutine; writes are serialized by mu.
type chatConn struct {
	id      string
	remote  string
	opened  time.Time
	ws      *websocket.Conn
	queries atomic.Int64

	mu     sync.Mutex
	closed bool
}

func newChatConn(ws *websocket.Conn, remote string) *chatConn {
	ws.SetReadLimit(maxFrame)
	return &chatConn{
		id:     uuid.NewString(),
		remote: remote,
		opened: time.Now(),
		ws:     ws,
	}
}

// next blocks for the next frame and decodes it. A frame that is not a
// ChatRequest yields errBadFrame wrapping the decode error; any other error
// means the connection is done.
func (c *chatConn) next() (ChatRequest, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return ChatRequest{}, err
	}
	var req ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ChatRequest{}, fmt.Errorf("%w: %v", errBadFrame, err)
	}
	c.queries.Add(1)
	return req, nil
}

// reply writes v as one JSON text frame.
func (c *chatConn) reply(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

// close is idempotent.
func (c *chatConn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

// connSet tracks open chat connections so shutdown can close them and
// /health can count them.
type connSet struct {
	mu    sync.Mutex
	conns map[string]*chatConn
	log   *logging.Logger
}

func newConnSet(log *logging.Logger) *connSet {
	return &connSet{conns: make(map[string]*chatConn), log: log}
}

func (s *connSet) add(c *chatConn) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	s.log.Info().Str("connId", c.id).Str("remote", c.remote).Msg("chat connection opened")
}

func (s *connSet) remove(c *chatConn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	s.log.Info().
		Str("connId", c.id).
		Int64("queries", c.queries.Load()).
		Dur("open", time.Since(c.opened)).
		Msg("chat connection closed")
}

func (s *connSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *connSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.conns {
		c.close()
		delete(s.conns, id)
	}
}
