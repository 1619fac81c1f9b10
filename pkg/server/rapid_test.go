package server

import (
	"sort"
	"testing"

	"pgregory.net/rapid"

	"github.com/relaychat/relaychat/pkg/protocol"
)

var usernameGen = rapid.SampledFrom([]string{"alice", "bob", "carol", "dave", "erin"})
var reactionGen = rapid.SampledFrom([]string{"👍", "❤️", "😂", "🎉"})

// TestMembershipMatchesJoinLeaveModel checks that for any sequence of joins
// and leaves, the membership set equals the set of usernames that most
// recently joined and have not since left.
func TestMembershipMatchesJoinLeaveModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir := NewRoomDirectory()
		model := make(map[string]bool)

		ops := rapid.IntRange(1, 50).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			username := usernameGen.Draw(t, "username")
			if rapid.Bool().Draw(t, "join") {
				dir.Join("room1", username)
				model[username] = true
			} else {
				dir.Leave("room1", username)
				delete(model, username)
			}
		}

		want := make([]string, 0, len(model))
		for username := range model {
			want = append(want, username)
		}
		sort.Strings(want)

		got := dir.Members("room1")
		if len(got) == 0 && len(want) == 0 {
			return
		}
		if len(got) != len(want) {
			t.Fatalf("membership mismatch: got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("membership mismatch: got %v, want %v", got, want)
			}
		}
	})
}

// TestReactionIdempotence checks that applying the same reaction twice
// leaves the reaction's user set unchanged after the second call.
func TestReactionIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir := NewRoomDirectory()
		msg := protocol.NewTextMessage("alice", "room1", "hi")
		dir.Append("room1", msg)

		ops := rapid.IntRange(1, 30).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			username := usernameGen.Draw(t, "username")
			reaction := reactionGen.Draw(t, "reaction")

			dir.AddReaction("room1", msg.ID, reaction, username)
			before := dir.History("room1")[0].Reactions[reaction]

			dir.AddReaction("room1", msg.ID, reaction, username)
			after := dir.History("room1")[0].Reactions[reaction]

			if len(before) != len(after) {
				t.Fatalf("duplicate reaction changed the set: %v -> %v", before, after)
			}
		}
	})
}

// TestReadReceiptIdempotence checks that a second room:read for the same
// user leaves every readBy set unchanged.
func TestReadReceiptIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir := NewRoomDirectory()
		messages := rapid.IntRange(0, 10).Draw(t, "messages")
		for i := 0; i < messages; i++ {
			dir.Append("room1", protocol.NewTextMessage("alice", "room1", "msg"))
		}
		dir.Ensure("room1")

		readers := rapid.IntRange(1, 10).Draw(t, "readers")
		for i := 0; i < readers; i++ {
			username := usernameGen.Draw(t, "username")

			dir.MarkRead("room1", username)
			before := dir.History("room1")

			dir.MarkRead("room1", username)
			after := dir.History("room1")

			for j := range before {
				if len(before[j].ReadBy) != len(after[j].ReadBy) {
					t.Fatalf("duplicate read changed message %d: %v -> %v",
						j, before[j].ReadBy, after[j].ReadBy)
				}
			}
		}

		// readBy sets only ever grow and never hold duplicates
		for _, msg := range dir.History("room1") {
			seen := make(map[string]bool)
			for _, username := range msg.ReadBy {
				if seen[username] {
					t.Fatalf("duplicate username %q in readBy %v", username, msg.ReadBy)
				}
				seen[username] = true
			}
		}
	})
}

// TestPresenceReflectsRegistry checks that the presence list always equals
// the set of currently registered usernames with no duplicates.
func TestPresenceReflectsRegistry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := NewSessionRegistry()
		model := make(map[string]map[string]bool) // username -> conn ids

		ops := rapid.IntRange(1, 50).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			connID := rapid.SampledFrom([]string{"c1", "c2", "c3", "c4", "c5"}).Draw(t, "conn")
			if rapid.Bool().Draw(t, "register") {
				username := usernameGen.Draw(t, "username")
				if _, err := reg.Register(connID, username, newFakeConn()); err == nil {
					if model[username] == nil {
						model[username] = make(map[string]bool)
					}
					model[username][connID] = true
				}
			} else {
				if sess, ok := reg.Remove(connID); ok {
					delete(model[sess.Username], connID)
					if len(model[sess.Username]) == 0 {
						delete(model, sess.Username)
					}
				}
			}
		}

		want := make([]string, 0, len(model))
		for username := range model {
			want = append(want, username)
		}
		sort.Strings(want)

		got := reg.Usernames()
		if len(got) != len(want) {
			t.Fatalf("presence mismatch: got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("presence mismatch: got %v, want %v", got, want)
			}
		}
	})
}
