package protocol

import (
	"encoding/json"
	"errors"
)

var (
	ErrEmptyEventName = errors.New("event name is empty")
	ErrNoPayload      = errors.New("event has no payload")
)

// Event names (Client → Server)
const (
	EventRoomJoin       = "room:join"
	EventRoomMessage    = "room:message"
	EventRoomFile       = "room:file"
	EventRoomTyping     = "room:typing"
	EventRoomReaction   = "room:reaction"
	EventRoomRead       = "room:read"
	EventPrivateMessage = "private:message"
)

// Event names (Server → Client)
// EventRoomMessage, EventRoomFile and EventPrivateMessage are reused in this
// direction carrying a full Message as payload.
const (
	EventRoomHistory    = "room:history"
	EventRoomUpdate     = "room:update"
	EventPresenceUpdate = "presence:update"
	EventNotification   = "notification"
)

// Event is the wire envelope for every frame in both directions. The payload
// is kept raw so the dispatcher can decode it against the expected shape for
// the event name (arrays for presence/update, objects for everything else).
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEvent parses a raw frame into an Event envelope.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if ev.Name == "" {
		return Event{}, ErrEmptyEventName
	}
	return ev, nil
}

// DecodePayload unmarshals the event payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(e.Payload, v)
}

// EncodeEvent marshals an event name and payload into a wire frame.
func EncodeEvent(name string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Name: name, Payload: raw})
}

// Client → Server payloads

// JoinRoom asks to switch the session's current room.
type JoinRoom struct {
	Room string `json:"room"`
}

// PostMessage posts a text message to a room.
type PostMessage struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// PostFile posts a file message to a room. FileData is an opaque encoded
// blob; the server never inspects it.
type PostFile struct {
	Room     string `json:"room"`
	FileName string `json:"fileName"`
	FileData string `json:"fileData"`
}

// Typing signals that the sender started or stopped typing in a room.
type Typing struct {
	Room   string `json:"room"`
	Typing bool   `json:"typing"`
}

// React adds a reaction to a message in a room.
type React struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
}

// ReadRoom marks every message in a room as read by the sender.
type ReadRoom struct {
	Room string `json:"room"`
}

// SendPrivate routes a message directly to another user, bypassing rooms.
type SendPrivate struct {
	ToUsername string `json:"toUsername"`
	Text       string `json:"text,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	FileData   string `json:"fileData,omitempty"`
}

// Server → Client payloads

// History delivers the full message log of a room to one connection.
type History struct {
	Room     string     `json:"room"`
	Messages []*Message `json:"messages"`
}

// TypingNotice relays a typing indicator to the rest of a room.
type TypingNotice struct {
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}

// Notification announces a join or leave to a room.
type Notification struct {
	Type     string `json:"type"` // "join" or "leave"
	Username string `json:"username"`
}
