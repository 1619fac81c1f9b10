package server

import (
	"github.com/relaychat/relaychat/pkg/protocol"
)

// PresenceBroadcaster announces the online-username list to every connection
// whenever registry membership changes. It holds no state of its own; the
// list is derived from the registry on every broadcast.
type PresenceBroadcaster struct {
	registry *SessionRegistry
	metrics  *Metrics
}

// NewPresenceBroadcaster creates a presence broadcaster over the registry.
func NewPresenceBroadcaster(registry *SessionRegistry) *PresenceBroadcaster {
	return &PresenceBroadcaster{registry: registry}
}

// SetMetrics attaches metrics to the broadcaster.
func (p *PresenceBroadcaster) SetMetrics(metrics *Metrics) {
	p.metrics = metrics
}

// Broadcast sends the current de-duplicated username list to all sessions.
func (p *PresenceBroadcaster) Broadcast() {
	usernames := p.registry.Usernames()

	frame, err := protocol.EncodeEvent(protocol.EventPresenceUpdate, usernames)
	if err != nil {
		errorLog.Printf("encode %s: %v", protocol.EventPresenceUpdate, err)
		return
	}

	for _, sess := range p.registry.All() {
		if !sess.Conn.TrySend(frame) {
			if p.metrics != nil {
				p.metrics.RecordFrameDropped()
			}
			debugLog.Printf("Session %s: send queue full, presence dropped", sess.ConnID)
		}
	}
}
