package server

import (
	"sync"

	"github.com/relaychat/relaychat/pkg/protocol"
)

// Dispatcher is the single serialization point for all state transitions.
// Every inbound event is validated against the session registry, applied to
// the registry and room directory under one mutex, and answered with zero or
// more fire-and-forget broadcasts. Per the error-handling policy, nothing a
// client sends can produce a user-visible error: unknown sessions, missing
// rooms or messages, offline recipients and malformed payloads are all
// dropped silently.
type Dispatcher struct {
	mu       sync.Mutex
	registry *SessionRegistry
	rooms    *RoomDirectory
	presence *PresenceBroadcaster
	private  *PrivateRouter
	config   ServerConfig
	metrics  *Metrics
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(registry *SessionRegistry, rooms *RoomDirectory, config ServerConfig) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		rooms:    rooms,
		presence: NewPresenceBroadcaster(registry),
		private:  NewPrivateRouter(registry),
		config:   config,
	}
}

// SetMetrics attaches metrics to the dispatcher and its collaborators.
func (d *Dispatcher) SetMetrics(metrics *Metrics) {
	d.metrics = metrics
	d.registry.SetMetrics(metrics)
	d.rooms.SetMetrics(metrics)
	d.presence.SetMetrics(metrics)
}

// Connect registers a new session in the default room and announces it.
func (d *Dispatcher) Connect(connID, username string, conn Sender) (*Session, error) {
	d.mu.Lock()
	sess, err := d.registry.Register(connID, username, conn)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.rooms.Join(DefaultRoom, username)
	d.mu.Unlock()

	d.presence.Broadcast()
	d.broadcastToRoom(DefaultRoom, protocol.EventNotification, protocol.Notification{
		Type:     "join",
		Username: username,
	})
	return sess, nil
}

// Disconnect removes the session and announces the departure to its last
// room. Safe to call for an unknown connection id.
func (d *Dispatcher) Disconnect(connID string) {
	d.mu.Lock()
	sess, ok := d.registry.Remove(connID)
	d.mu.Unlock()
	if !ok {
		return
	}

	lastRoom := sess.Room()
	d.broadcastToRoom(lastRoom, protocol.EventNotification, protocol.Notification{
		Type:     "leave",
		Username: sess.Username,
	})
	d.presence.Broadcast()
}

// Dispatch routes one inbound event from a live session to its handler.
func (d *Dispatcher) Dispatch(sess *Session, ev protocol.Event) {
	if d.metrics != nil {
		d.metrics.RecordEventReceived(ev.Name)
	}

	switch ev.Name {
	case protocol.EventRoomJoin:
		var p protocol.JoinRoom
		if ev.DecodePayload(&p) != nil || p.Room == "" {
			return
		}
		d.handleJoin(sess, p)
	case protocol.EventRoomMessage:
		var p protocol.PostMessage
		if ev.DecodePayload(&p) != nil || p.Room == "" {
			return
		}
		d.handleMessage(sess, p)
	case protocol.EventRoomFile:
		var p protocol.PostFile
		if ev.DecodePayload(&p) != nil || p.Room == "" {
			return
		}
		d.handleFile(sess, p)
	case protocol.EventRoomTyping:
		var p protocol.Typing
		if ev.DecodePayload(&p) != nil || p.Room == "" {
			return
		}
		d.handleTyping(sess, p)
	case protocol.EventRoomReaction:
		var p protocol.React
		if ev.DecodePayload(&p) != nil || p.Room == "" {
			return
		}
		d.handleReaction(sess, p)
	case protocol.EventRoomRead:
		var p protocol.ReadRoom
		if ev.DecodePayload(&p) != nil || p.Room == "" {
			return
		}
		d.handleRead(sess, p)
	case protocol.EventPrivateMessage:
		var p protocol.SendPrivate
		if ev.DecodePayload(&p) != nil || p.ToUsername == "" {
			return
		}
		d.private.Route(sess, p)
	default:
		debugLog.Printf("Session %s: unknown event %q dropped", sess.ConnID, ev.Name)
	}
}

// handleJoin moves the session to a new room, replays that room's history to
// the requester and announces the join. Joining the current room again
// re-triggers both, matching the original service's behavior.
func (d *Dispatcher) handleJoin(sess *Session, p protocol.JoinRoom) {
	d.mu.Lock()
	prevRoom := sess.Room()
	d.rooms.Leave(prevRoom, sess.Username)
	d.registry.SetRoom(sess.ConnID, p.Room)
	d.rooms.Join(p.Room, sess.Username)
	history := d.rooms.History(p.Room)
	d.mu.Unlock()

	d.sendTo(sess, protocol.EventRoomHistory, protocol.History{
		Room:     p.Room,
		Messages: history,
	})
	d.broadcastToRoom(p.Room, protocol.EventNotification, protocol.Notification{
		Type:     "join",
		Username: sess.Username,
	})
	d.presence.Broadcast()
}

func (d *Dispatcher) handleMessage(sess *Session, p protocol.PostMessage) {
	if d.config.MaxMessageLength > 0 && len(p.Text) > d.config.MaxMessageLength {
		debugLog.Printf("Session %s: oversize message dropped (%d bytes)", sess.ConnID, len(p.Text))
		return
	}

	msg := protocol.NewTextMessage(sess.Username, p.Room, p.Text)

	d.mu.Lock()
	if err := d.rooms.Append(p.Room, msg); err != nil {
		d.mu.Unlock()
		return
	}
	out := msg.Clone()
	d.mu.Unlock()

	d.broadcastToRoom(p.Room, protocol.EventRoomMessage, out)
}

func (d *Dispatcher) handleFile(sess *Session, p protocol.PostFile) {
	if d.config.MaxFileBytes > 0 && len(p.FileData) > d.config.MaxFileBytes {
		debugLog.Printf("Session %s: oversize file dropped (%d bytes)", sess.ConnID, len(p.FileData))
		return
	}

	msg := protocol.NewFileMessage(sess.Username, p.Room, p.FileName, p.FileData)

	d.mu.Lock()
	if err := d.rooms.Append(p.Room, msg); err != nil {
		d.mu.Unlock()
		return
	}
	out := msg.Clone()
	d.mu.Unlock()

	d.broadcastToRoom(p.Room, protocol.EventRoomFile, out)
}

// handleTyping relays the indicator to everyone else in the room. No state
// is retained.
func (d *Dispatcher) handleTyping(sess *Session, p protocol.Typing) {
	d.broadcastToRoomExcept(p.Room, sess, protocol.EventRoomTyping, protocol.TypingNotice{
		Username: sess.Username,
		Typing:   p.Typing,
	})
}

func (d *Dispatcher) handleReaction(sess *Session, p protocol.React) {
	d.mu.Lock()
	ok := d.rooms.AddReaction(p.Room, p.MessageID, p.Reaction, sess.Username)
	var snapshot []*protocol.Message
	if ok {
		snapshot = d.rooms.History(p.Room)
	}
	d.mu.Unlock()

	if ok {
		d.broadcastToRoom(p.Room, protocol.EventRoomUpdate, snapshot)
	}
}

func (d *Dispatcher) handleRead(sess *Session, p protocol.ReadRoom) {
	d.mu.Lock()
	ok := d.rooms.MarkRead(p.Room, sess.Username)
	var snapshot []*protocol.Message
	if ok {
		snapshot = d.rooms.History(p.Room)
	}
	d.mu.Unlock()

	if ok {
		d.broadcastToRoom(p.Room, protocol.EventRoomUpdate, snapshot)
	}
}

// sendTo delivers one event to a single session, fire-and-forget.
func (d *Dispatcher) sendTo(sess *Session, name string, payload any) {
	frame, err := protocol.EncodeEvent(name, payload)
	if err != nil {
		errorLog.Printf("encode %s: %v", name, err)
		return
	}
	d.deliver(sess, frame)
}

// broadcastToRoom delivers one event to every session currently in a room.
// The frame is encoded once and shared across recipients.
func (d *Dispatcher) broadcastToRoom(roomName, name string, payload any) {
	d.broadcastToRoomExcept(roomName, nil, name, payload)
}

func (d *Dispatcher) broadcastToRoomExcept(roomName string, except *Session, name string, payload any) {
	frame, err := protocol.EncodeEvent(name, payload)
	if err != nil {
		errorLog.Printf("encode %s: %v", name, err)
		return
	}

	sessions := d.registry.InRoom(roomName)
	fanout := 0
	for _, sess := range sessions {
		if sess == except {
			continue
		}
		d.deliver(sess, frame)
		fanout++
	}
	if d.metrics != nil {
		d.metrics.RecordBroadcastFanout(fanout)
	}
}

// deliver attempts a single non-blocking send. A full queue drops the frame;
// there is no retry or acknowledgment.
func (d *Dispatcher) deliver(sess *Session, frame []byte) {
	if sess.Conn.TrySend(frame) {
		if d.metrics != nil {
			d.metrics.RecordMessageDelivered()
		}
		return
	}
	if d.metrics != nil {
		d.metrics.RecordFrameDropped()
	}
	debugLog.Printf("Session %s: send queue full, frame dropped", sess.ConnID)
}
