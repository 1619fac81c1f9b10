package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/relaychat/relaychat/pkg/protocol"
)

// AnonymousUsername is used when a connection supplies no username.
const AnonymousUsername = "Anonymous"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients are served from arbitrary origins; identity is a
		// plain username and there is nothing to protect with an origin check.
		return true
	},
}

// HandleWebSocket upgrades the HTTP connection and runs it as a session.
// Identity arrives out-of-band as a "username" query parameter.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		errorLog.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		username = AnonymousUsername
	}
	if s.config.MaxUsernameLength > 0 && len(username) > s.config.MaxUsernameLength {
		username = username[:s.config.MaxUsernameLength]
	}

	connID := fmt.Sprintf("conn-%d", s.nextConnID.Add(1))
	conn := newWSConn(ws, s.config.SendQueueSize)

	// Cap inbound frames at the file limit plus envelope overhead.
	if s.config.MaxFileBytes > 0 {
		ws.SetReadLimit(int64(s.config.MaxFileBytes) + 64*1024)
	}

	sess, err := s.dispatcher.Connect(connID, username, conn)
	if err != nil {
		errorLog.Printf("Failed to register session %s: %v", connID, err)
		conn.Close()
		return
	}

	debugLog.Printf("Session %s: %q connected from %s", connID, username, ws.RemoteAddr())

	go conn.writePump()
	go s.readLoop(sess, conn)
}

// readLoop decodes inbound frames and feeds them to the dispatcher until the
// connection dies. A malformed frame is dropped without affecting the
// session; a read error ends it.
func (s *Server) readLoop(sess *Session, conn *wsConn) {
	defer func() {
		s.dispatcher.Disconnect(sess.ConnID)
		conn.Close()
	}()

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			debugLog.Printf("Session %s: read ended: %v", sess.ConnID, err)
			return
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			debugLog.Printf("Session %s: malformed frame dropped: %v", sess.ConnID, err)
			continue
		}

		s.dispatcher.Dispatch(sess, ev)
	}
}
