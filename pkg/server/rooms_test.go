package server

import (
	"testing"

	"github.com/relaychat/relaychat/pkg/protocol"
)

func TestJoinCreatesRoomLazily(t *testing.T) {
	dir := NewRoomDirectory()

	if dir.Count() != 0 {
		t.Fatal("Directory should start empty")
	}

	dir.Join("room1", "alice")

	if dir.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", dir.Count())
	}
	members := dir.Members("room1")
	if len(members) != 1 || members[0] != "alice" {
		t.Errorf("Expected [alice], got %v", members)
	}
}

func TestJoinIdempotent(t *testing.T) {
	dir := NewRoomDirectory()
	dir.Join("room1", "alice")
	dir.Join("room1", "alice")

	if got := dir.Members("room1"); len(got) != 1 {
		t.Errorf("Expected single membership entry, got %v", got)
	}
}

func TestLeaveKeepsEmptyRoom(t *testing.T) {
	dir := NewRoomDirectory()
	dir.Join("room1", "alice")
	dir.Append("room1", protocol.NewTextMessage("alice", "room1", "hi"))

	dir.Leave("room1", "alice")

	if got := len(dir.Members("room1")); got != 0 {
		t.Errorf("Expected empty membership, got %d", got)
	}
	if got := len(dir.History("room1")); got != 1 {
		t.Errorf("History should survive the last member leaving, got %d messages", got)
	}

	// Leaving an unknown room or member is a no-op
	dir.Leave("nowhere", "alice")
	dir.Leave("room1", "bob")
}

func TestAppendRejectsRoomMismatch(t *testing.T) {
	dir := NewRoomDirectory()

	msg := protocol.NewTextMessage("alice", "room1", "hi")
	if err := dir.Append("room2", msg); err != ErrRoomMismatch {
		t.Errorf("Expected ErrRoomMismatch, got %v", err)
	}

	private := protocol.NewPrivateMessage("alice", "hey", "", "")
	if err := dir.Append("room1", private); err != ErrRoomMismatch {
		t.Errorf("Private messages must never land in a room log, got %v", err)
	}
}

func TestHistoryOrderedOldestFirst(t *testing.T) {
	dir := NewRoomDirectory()
	dir.Append("room1", protocol.NewTextMessage("alice", "room1", "first"))
	dir.Append("room1", protocol.NewTextMessage("bob", "room1", "second"))
	dir.Append("room1", protocol.NewTextMessage("alice", "room1", "third"))

	history := dir.History("room1")
	if len(history) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(history))
	}
	for i, want := range []string{"first", "second", "third"} {
		if history[i].Text != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, history[i].Text)
		}
	}
}

func TestHistoryIsSnapshot(t *testing.T) {
	dir := NewRoomDirectory()
	msg := protocol.NewTextMessage("alice", "room1", "hi")
	dir.Append("room1", msg)

	snapshot := dir.History("room1")

	// Mutations after the snapshot must not show through it
	dir.AddReaction("room1", msg.ID, "👍", "bob")
	dir.MarkRead("room1", "carol")

	if len(snapshot[0].Reactions) != 0 {
		t.Error("Snapshot picked up a reaction added after it was taken")
	}
	if len(snapshot[0].ReadBy) != 1 {
		t.Errorf("Snapshot picked up a read receipt added after it was taken: %v", snapshot[0].ReadBy)
	}
}

func TestHistoryUnknownRoomEmpty(t *testing.T) {
	dir := NewRoomDirectory()
	if got := dir.History("nowhere"); len(got) != 0 {
		t.Errorf("Expected empty history, got %d messages", len(got))
	}
}

func TestAddReactionMissingRoomOrMessage(t *testing.T) {
	dir := NewRoomDirectory()

	if dir.AddReaction("nowhere", "msg-1", "👍", "bob") {
		t.Error("Reaction against a missing room should report false")
	}

	dir.Join("room1", "alice")
	if dir.AddReaction("room1", "msg-1", "👍", "bob") {
		t.Error("Reaction against a missing message should report false")
	}
}

func TestAddReactionDuplicateStillBroadcasts(t *testing.T) {
	dir := NewRoomDirectory()
	msg := protocol.NewTextMessage("alice", "room1", "hi")
	dir.Append("room1", msg)

	if !dir.AddReaction("room1", msg.ID, "👍", "bob") {
		t.Fatal("First reaction should succeed")
	}
	// Idempotent on the set, but the room still gets its update broadcast
	if !dir.AddReaction("room1", msg.ID, "👍", "bob") {
		t.Error("Duplicate reaction should still report true")
	}

	history := dir.History("room1")
	if got := history[0].Reactions["👍"]; len(got) != 1 || got[0] != "bob" {
		t.Errorf("Expected reactions[👍] = [bob], got %v", got)
	}
}

func TestMarkReadAllMessages(t *testing.T) {
	dir := NewRoomDirectory()
	dir.Append("room1", protocol.NewTextMessage("alice", "room1", "one"))
	dir.Append("room1", protocol.NewTextMessage("alice", "room1", "two"))

	if !dir.MarkRead("room1", "bob") {
		t.Fatal("MarkRead on an existing room should report true")
	}

	for i, msg := range dir.History("room1") {
		if len(msg.ReadBy) != 2 {
			t.Errorf("Message %d: expected readBy [alice bob], got %v", i, msg.ReadBy)
		}
	}
}

func TestMarkReadEmptyRoomStillBroadcasts(t *testing.T) {
	dir := NewRoomDirectory()
	dir.Ensure("room1")

	if !dir.MarkRead("room1", "bob") {
		t.Error("Reading an empty room is a no-op that still triggers the update broadcast")
	}
	if dir.MarkRead("nowhere", "bob") {
		t.Error("Reading a missing room should report false")
	}
}
