package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent(t *testing.T) {
	frame, err := EncodeEvent(EventRoomMessage, PostMessage{Room: "room1", Text: "hi"})
	require.NoError(t, err)

	ev, err := DecodeEvent(frame)
	require.NoError(t, err)
	assert.Equal(t, EventRoomMessage, ev.Name)

	var p PostMessage
	require.NoError(t, ev.DecodePayload(&p))
	assert.Equal(t, "room1", p.Room)
	assert.Equal(t, "hi", p.Text)
}

func TestEncodeEventArrayPayload(t *testing.T) {
	// presence:update and room:update carry bare arrays, not objects
	frame, err := EncodeEvent(EventPresenceUpdate, []string{"alice", "bob"})
	require.NoError(t, err)

	ev, err := DecodeEvent(frame)
	require.NoError(t, err)

	var usernames []string
	require.NoError(t, ev.DecodePayload(&usernames))
	assert.Equal(t, []string{"alice", "bob"}, usernames)
}

func TestDecodeEventErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"empty object", "{}"},
		{"missing event name", `{"payload":{"room":"x"}}`},
		{"wrong envelope type", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	ev := Event{Name: EventRoomRead}

	var p ReadRoom
	assert.ErrorIs(t, ev.DecodePayload(&p), ErrNoPayload)
}

func TestDecodePayloadShapeMismatch(t *testing.T) {
	ev := Event{Name: EventRoomJoin, Payload: []byte(`"just a string"`)}

	var p JoinRoom
	assert.Error(t, ev.DecodePayload(&p))
}
