package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/relaychat/relaychat/pkg/protocol"
)

// ErrRoomMismatch is returned when a message is appended to a room other
// than the one recorded on the message itself.
var ErrRoomMismatch = errors.New("message room does not match target room")

// room holds a membership set and an append-only message log. Rooms are
// created lazily on first reference and never deleted; an empty room keeps
// its history.
type room struct {
	name     string
	members  map[string]struct{}
	messages []*protocol.Message
}

// RoomDirectory owns all rooms and their message logs. Reactions and read
// receipts are the only mutations applied to stored messages, and both only
// ever grow. Every read hands out deep copies so a snapshot taken for
// broadcast is never mutated concurrently.
type RoomDirectory struct {
	mu      sync.RWMutex
	rooms   map[string]*room
	metrics *Metrics
}

// NewRoomDirectory creates an empty room directory.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{
		rooms: make(map[string]*room),
	}
}

// SetMetrics attaches metrics to the directory.
func (d *RoomDirectory) SetMetrics(metrics *Metrics) {
	d.metrics = metrics
}

// ensureLocked returns the named room, creating it if absent. Callers must
// hold d.mu for writing.
func (d *RoomDirectory) ensureLocked(name string) *room {
	rm, ok := d.rooms[name]
	if !ok {
		rm = &room{
			name:    name,
			members: make(map[string]struct{}),
		}
		d.rooms[name] = rm
		if d.metrics != nil {
			d.metrics.RecordRooms(len(d.rooms))
		}
	}
	return rm
}

// Ensure creates the named room if it does not exist yet. Idempotent.
func (d *RoomDirectory) Ensure(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensureLocked(name)
}

// Join adds username to the room's membership set, creating the room if
// needed. Adding an existing member is a no-op.
func (d *RoomDirectory) Join(roomName, username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensureLocked(roomName).members[username] = struct{}{}
}

// Leave removes username from the room's membership set. No-op if the room
// or member is absent. The room survives even when it becomes empty.
func (d *RoomDirectory) Leave(roomName, username string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if rm, ok := d.rooms[roomName]; ok {
		delete(rm.members, username)
	}
}

// Append appends a message to the room's log, creating the room if needed.
// The message must have been created for this room.
func (d *RoomDirectory) Append(roomName string, msg *protocol.Message) error {
	if msg.Room == nil || *msg.Room != roomName {
		return ErrRoomMismatch
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rm := d.ensureLocked(roomName)
	rm.messages = append(rm.messages, msg)
	return nil
}

// History returns a deep snapshot of the room's message log, oldest first.
// An unknown room yields an empty history.
func (d *RoomDirectory) History(roomName string) []*protocol.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rm, ok := d.rooms[roomName]
	if !ok {
		return []*protocol.Message{}
	}

	messages := make([]*protocol.Message, len(rm.messages))
	for i, msg := range rm.messages {
		messages[i] = msg.Clone()
	}
	return messages
}

// AddReaction adds username to the reaction's user set on the identified
// message. Reacting twice with the same symbol is a no-op on the set, but
// still reports true so the room sees a consistent update broadcast. Returns
// false only when the room or message does not exist (silent-drop semantics).
func (d *RoomDirectory) AddReaction(roomName, messageID, reaction, username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	rm, ok := d.rooms[roomName]
	if !ok {
		return false
	}
	for _, msg := range rm.messages {
		if msg.ID == messageID {
			msg.React(reaction, username)
			return true
		}
	}
	return false
}

// MarkRead adds username to the read set of every message in the room.
// Idempotent and monotonic. Returns false when the room does not exist; a
// room with zero messages still reports true so the (empty) update broadcast
// goes out.
func (d *RoomDirectory) MarkRead(roomName, username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	rm, ok := d.rooms[roomName]
	if !ok {
		return false
	}
	for _, msg := range rm.messages {
		msg.MarkReadBy(username)
	}
	return true
}

// Members returns the sorted membership set of a room. Membership may be
// stale relative to live sessions (a user who switched rooms without an
// explicit leave remains listed).
func (d *RoomDirectory) Members(roomName string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rm, ok := d.rooms[roomName]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(rm.members))
	for name := range rm.members {
		members = append(members, name)
	}
	sort.Strings(members)
	return members
}

// Count returns the number of rooms, empty ones included.
func (d *RoomDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
