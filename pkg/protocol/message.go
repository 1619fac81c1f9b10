package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single chat message, either a room message or a private one
// (Room == nil). Exactly one content variant is populated: Text for text
// messages, FileName+FileData for file messages. Core fields are immutable
// after creation; only Reactions and ReadBy grow over the message's lifetime,
// and only through React and MarkReadBy.
type Message struct {
	ID        string              `json:"id"`
	From      string              `json:"from"`
	Room      *string             `json:"room"`
	Text      string              `json:"text,omitempty"`
	FileName  string              `json:"fileName,omitempty"`
	FileData  string              `json:"fileData,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	ReadBy    []string            `json:"readBy,omitempty"`
}

// NewMessageID returns an identifier unique for the process lifetime.
func NewMessageID() string {
	return uuid.NewString()
}

// NewTextMessage creates a room text message. The author is always the first
// reader of their own message.
func NewTextMessage(from, room, text string) *Message {
	return &Message{
		ID:        NewMessageID(),
		From:      from,
		Room:      &room,
		Text:      text,
		Timestamp: time.Now().UTC(),
		ReadBy:    []string{from},
	}
}

// NewFileMessage creates a room file message.
func NewFileMessage(from, room, fileName, fileData string) *Message {
	return &Message{
		ID:        NewMessageID(),
		From:      from,
		Room:      &room,
		FileName:  fileName,
		FileData:  fileData,
		Timestamp: time.Now().UTC(),
		ReadBy:    []string{from},
	}
}

// NewPrivateMessage creates a direct message with no room. When fileData is
// present the file variant wins and text is ignored. Private messages carry
// no read receipts; they exist only for the two live deliveries.
func NewPrivateMessage(from, text, fileName, fileData string) *Message {
	m := &Message{
		ID:        NewMessageID(),
		From:      from,
		Room:      nil,
		Timestamp: time.Now().UTC(),
	}
	if fileData != "" {
		m.FileName = fileName
		m.FileData = fileData
	} else {
		m.Text = text
	}
	return m
}

// IsFile reports whether the message carries the file variant.
func (m *Message) IsFile() bool {
	return m.FileData != ""
}

// React adds username to the reaction's user set. Returns false if the user
// already reacted with that symbol (set semantics, not a counter).
func (m *Message) React(reaction, username string) bool {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	for _, u := range m.Reactions[reaction] {
		if u == username {
			return false
		}
	}
	m.Reactions[reaction] = append(m.Reactions[reaction], username)
	return true
}

// MarkReadBy adds username to the read set. Returns false if already present.
func (m *Message) MarkReadBy(username string) bool {
	for _, u := range m.ReadBy {
		if u == username {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, username)
	return true
}

// Clone returns a deep copy. Broadcast snapshots are taken with Clone so a
// concurrent reaction or read receipt never mutates a message mid-encode.
func (m *Message) Clone() *Message {
	c := *m
	if m.Room != nil {
		room := *m.Room
		c.Room = &room
	}
	if m.Reactions != nil {
		c.Reactions = make(map[string][]string, len(m.Reactions))
		for reaction, users := range m.Reactions {
			c.Reactions[reaction] = append([]string(nil), users...)
		}
	}
	if m.ReadBy != nil {
		c.ReadBy = append([]string(nil), m.ReadBy...)
	}
	return &c
}
