package gateway

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

var errBadFrame = errors.New("invalid frame")

// handleWebSocket upgrades HTTP to WebSocket and runs the chat loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newChatConn(ws, r.RemoteAddr)
	s.clients.add(conn)
	defer func() {
		s.clients.remove(conn)
		conn.close()
	}()

	s.readLoop(r, conn)
}

// readLoop answers frames one at a time until the client goes away or the
// server shuts down. Every {"query": ...} frame gets exactly one reply: an
// AgentResponse or an ErrorResponse.
func (s *Server) readLoop(r *http.Request, conn *chatConn) {
	ctx := r.Context()
	for {
		req, err := conn.next()
		if errors.Is(err, errBadFrame) {
			if err := conn.reply(ErrorResponse{Message: err.Error()}); err != nil {
				return
			}
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("connId", conn.id).Msg("websocket read error")
			}
			return
		}

		var out any
		resp, err := s.chat(ctx, req)
		if err != nil {
			s.log.Debug().Err(err).Str("connId", conn.id).Msg("chat query failed")
			out = ErrorResponse{Message: err.Error()}
		} else {
			out = resp
		}
		if err := conn.reply(out); err != nil {
			s.log.Warn().Err(err).Str("connId", conn.id).Msg("failed to send reply")
			return
		}
	}
}
