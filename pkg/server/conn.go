package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Sender delivers encoded frames to a single connection. Implementations
// must never block: a send either enqueues immediately or reports failure.
type Sender interface {
	TrySend(frame []byte) bool
	Close() error
}

// wsConn wraps a WebSocket connection with a bounded send queue and a single
// writer goroutine, so broadcasts never block on a slow reader and writes
// are never interleaved.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(ws *websocket.Conn, queueSize int) *wsConn {
	return &wsConn{
		ws:   ws,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// TrySend enqueues a frame for delivery. Returns false when the queue is
// full or the connection is closed; the frame is dropped either way.
func (c *wsConn) TrySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// writePump drains the send queue onto the wire. Runs as the connection's
// only writer; exits on close or the first write error.
func (c *wsConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				debugLog.Printf("write failed, closing connection: %v", err)
				c.Close()
				return
			}
		}
	}
}

// Close shuts the connection down. Idempotent.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
