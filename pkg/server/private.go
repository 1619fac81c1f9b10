package server

import (
	"github.com/relaychat/relaychat/pkg/protocol"
)

// PrivateRouter delivers direct messages between two live sessions,
// bypassing the room directory. Private messages are never stored; they
// exist only for the two live deliveries.
type PrivateRouter struct {
	registry *SessionRegistry
}

// NewPrivateRouter creates a private router over the registry.
func NewPrivateRouter(registry *SessionRegistry) *PrivateRouter {
	return &PrivateRouter{registry: registry}
}

// Route resolves the recipient and delivers an identical copy of the message
// to both the sender's and the recipient's connections. When the recipient
// has no live session the message is dropped and the sender is not told
// (best-effort delivery).
func (r *PrivateRouter) Route(from *Session, p protocol.SendPrivate) bool {
	target, ok := r.registry.GetByUsername(p.ToUsername)
	if !ok {
		debugLog.Printf("Session %s: private message to offline user %q dropped", from.ConnID, p.ToUsername)
		return false
	}

	msg := protocol.NewPrivateMessage(from.Username, p.Text, p.FileName, p.FileData)

	frame, err := protocol.EncodeEvent(protocol.EventPrivateMessage, msg)
	if err != nil {
		errorLog.Printf("encode %s: %v", protocol.EventPrivateMessage, err)
		return false
	}

	from.Conn.TrySend(frame)
	if target != from {
		target.Conn.TrySend(frame)
	}
	return true
}
