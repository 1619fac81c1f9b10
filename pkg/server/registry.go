package server

import (
	"errors"
	"sort"
	"sync"
)

// DefaultRoom is the room every connection starts in.
const DefaultRoom = "global"

// ErrSessionExists is returned when a connection id is already registered.
var ErrSessionExists = errors.New("session already registered for connection")

// Session represents an active client connection bound to a username and a
// current room. Username uniqueness is assumed, not enforced.
type Session struct {
	ConnID   string
	Username string
	Conn     Sender

	mu   sync.RWMutex // protects room
	room string
}

// Room returns the session's current room.
func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

func (s *Session) setRoom(room string) {
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()
}

// SessionRegistry tracks all live sessions by connection id. It exclusively
// owns Session instances; all mutation goes through the dispatcher.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  *Metrics
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// SetMetrics attaches metrics to the registry.
func (r *SessionRegistry) SetMetrics(metrics *Metrics) {
	r.metrics = metrics
}

// Register creates and stores a session in the default room. It fails only
// if the connection id is already registered.
func (r *SessionRegistry) Register(connID, username string, conn Sender) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; ok {
		return nil, ErrSessionExists
	}

	sess := &Session{
		ConnID:   connID,
		Username: username,
		Conn:     conn,
		room:     DefaultRoom,
	}
	r.sessions[connID] = sess

	if r.metrics != nil {
		r.metrics.RecordActiveSessions(len(r.sessions))
		r.metrics.RecordSessionCreated()
	}

	return sess, nil
}

// Get returns a session by connection id.
func (r *SessionRegistry) Get(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	return sess, ok
}

// GetByUsername returns a live session for a username. An O(n) scan is fine
// at the expected scale; if several sessions share a username, any one of
// them may be returned.
func (r *SessionRegistry) GetByUsername(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sess := range r.sessions {
		if sess.Username == username {
			return sess, true
		}
	}
	return nil, false
}

// SetRoom updates a session's current room. No-op if the session is absent.
func (r *SessionRegistry) SetRoom(connID, room string) {
	r.mu.RLock()
	sess, ok := r.sessions[connID]
	r.mu.RUnlock()

	if ok {
		sess.setRoom(room)
	}
}

// Remove deletes a session and returns it for use in leave notifications.
func (r *SessionRegistry) Remove(connID string) (*Session, bool) {
	r.mu.Lock()
	sess, ok := r.sessions[connID]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.sessions, connID)
	remaining := len(r.sessions)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordActiveSessions(remaining)
		r.metrics.RecordSessionDisconnected()
	}

	return sess, true
}

// All returns a snapshot of every live session.
func (r *SessionRegistry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// InRoom returns every session whose current room is room. This is the live
// broadcast audience; the directory's membership set may lag behind it.
func (r *SessionRegistry) InRoom(room string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*Session
	for _, sess := range r.sessions {
		if sess.Room() == room {
			sessions = append(sessions, sess)
		}
	}
	return sessions
}

// Usernames returns the sorted, de-duplicated set of online usernames.
func (r *SessionRegistry) Usernames() []string {
	r.mu.RLock()
	seen := make(map[string]struct{}, len(r.sessions))
	for _, sess := range r.sessions {
		seen[sess.Username] = struct{}{}
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every connection and empties the registry.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.sessions {
		sess.Conn.Close()
	}
	r.sessions = make(map[string]*Session)
}
