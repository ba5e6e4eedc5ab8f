package runtime

import (
	"chat-core/domain"
	"chat-core/domain/event"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(slog.Default(), NewRegistry(),
		[]string{"general", "random"}, 100, 50, nil, nil)
}

// join connects a session and completes the new-user handshake.
func join(d *Dispatcher, name string) domain.SessionID {
	id := d.Connect(&testSink{})
	d.Handle(domain.NewUser{From: id, Name: name})
	return id
}

func findEvent[E event.Event](outs []event.Outbound) (E, event.Audience, bool) {
	for _, out := range outs {
		if evt, ok := out.Event.(E); ok {
			return evt, out.Audience, true
		}
	}
	var zero E
	return zero, event.Audience{}, false
}

func TestDispatcher_NewUser_First_Join(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := d.Connect(&testSink{})

	// When alice names herself on a fresh server
	outs := d.Handle(domain.NewUser{From: alice, Name: "alice"})
	req.Len(outs, 3)

	// Then the join notice goes to the other room members (nobody yet)
	joined, audience, ok := findEvent[event.UserJoined](outs)
	req.True(ok)
	req.Equal("alice", joined.User)
	req.Empty(audience.Sessions)

	// And everyone gets the full roster
	list, audience, ok := findEvent[event.UserList](outs)
	req.True(ok)
	req.True(audience.Everyone)
	req.Equal([]string{"alice"}, list.Users)

	// And alice alone receives the empty default room history
	history, audience, ok := findEvent[event.RoomHistory](outs)
	req.True(ok)
	req.Equal([]domain.SessionID{alice}, audience.Sessions)
	req.Equal("general", history.Room)
	req.Empty(history.Messages)
	req.Empty(history.Pinned)
}

func TestDispatcher_Unnamed_Session_Is_Silent(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	id := d.Connect(&testSink{})

	// Every operation except the handshake is a silent no-op before naming
	req.Nil(d.Handle(domain.SendMessage{From: id, Body: "hello"}))
	req.Nil(d.Handle(domain.SwitchRoom{From: id, Room: "random"}))
	req.Nil(d.Handle(domain.Typing{From: id}))
	req.Nil(d.Handle(domain.RequestRoomHistory{From: id}))
	req.Nil(d.Handle(domain.DirectMessage{From: id, To: "bob", Body: "hi"}))
}

func TestDispatcher_SendMessage_Reaches_Whole_Room(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")
	bob := join(d, "bob")

	outs := d.Handle(domain.SendMessage{From: alice, Body: "hello room"})
	req.Len(outs, 1)

	// The sender is part of the audience: delivery is the echo
	msg, audience, ok := findEvent[event.NewMessage](outs)
	req.True(ok)
	req.ElementsMatch([]domain.SessionID{alice, bob}, audience.Sessions)
	req.Equal("alice", msg.Message.Author)
	req.Equal("hello room", msg.Message.Body)
	req.Equal(domain.KindText, msg.Message.Kind)
	req.NotEqual(uuid.Nil, msg.Message.ID)

	// And the room ledger retained it
	history, _, _ := findEvent[event.RoomHistory](d.Handle(domain.RequestRoomHistory{From: bob}))
	req.Len(history.Messages, 1)
	req.Equal("hello room", history.Messages[0].Body)
}

func TestDispatcher_SwitchRoom_Moves_Membership_Atomically(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")
	bob := join(d, "bob")

	outs := d.Handle(domain.SwitchRoom{From: alice, Room: "random"})
	req.Len(outs, 3)

	// bob, left behind in general, sees the departure
	left, audience, ok := findEvent[event.UserLeft](outs)
	req.True(ok)
	req.Equal("alice", left.User)
	req.Equal([]domain.SessionID{bob}, audience.Sessions)

	// alice receives the destination history
	history, audience, ok := findEvent[event.RoomHistory](outs)
	req.True(ok)
	req.Equal("random", history.Room)
	req.Equal([]domain.SessionID{alice}, audience.Sessions)

	// Messages now land in random, not general
	d.Handle(domain.SendMessage{From: alice, Body: "over here"})
	stats := d.ScopeStats()
	req.Equal(1, stats["room:random"].Messages)
	req.Equal(0, stats["room:general"].Messages)
	req.Equal(1, stats["room:random"].Users)
	req.Equal(1, stats["room:general"].Users)
}

func TestDispatcher_SwitchRoom_Unknown_Or_Same_Room(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")

	req.Nil(d.Handle(domain.SwitchRoom{From: alice, Room: "does-not-exist"}))
	req.Nil(d.Handle(domain.SwitchRoom{From: alice, Room: "general"}))
}

func TestDispatcher_ToggleReaction_Roundtrip(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")
	bob := join(d, "bob")

	d.Handle(domain.SendMessage{From: alice, Body: "react to me"})
	history, _, _ := findEvent[event.RoomHistory](d.Handle(domain.RequestRoomHistory{From: bob}))
	msgID := history.Messages[0].ID

	// First toggle adds bob under the emoji
	outs := d.Handle(domain.ToggleReaction{From: bob, MessageID: msgID, Emoji: "👍"})
	updated, audience, ok := findEvent[event.ReactionUpdated](outs)
	req.True(ok)
	req.ElementsMatch([]domain.SessionID{alice, bob}, audience.Sessions)
	req.Equal([]string{"bob"}, updated.Reactions["👍"])

	// Second toggle removes it and the broadcast map is empty again
	outs = d.Handle(domain.ToggleReaction{From: bob, MessageID: msgID, Emoji: "👍"})
	updated, _, ok = findEvent[event.ReactionUpdated](outs)
	req.True(ok)
	req.Empty(updated.Reactions)
}

func TestDispatcher_ToggleReaction_Evicted_Message_Is_Silent(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")

	req.Nil(d.Handle(domain.ToggleReaction{From: alice, MessageID: uuid.New(), Emoji: "👍"}))
}

func TestDispatcher_TogglePin_Roundtrip(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")

	d.Handle(domain.SendMessage{From: alice, Body: "pin me"})
	history, _, _ := findEvent[event.RoomHistory](d.Handle(domain.RequestRoomHistory{From: alice}))
	msgID := history.Messages[0].ID

	outs := d.Handle(domain.TogglePin{From: alice, MessageID: msgID})
	updated, _, ok := findEvent[event.PinUpdated](outs)
	req.True(ok)
	req.True(updated.Pinned)
	req.Equal("alice", updated.User)

	// The pin snapshot travels with the history
	history, _, _ = findEvent[event.RoomHistory](d.Handle(domain.RequestRoomHistory{From: alice}))
	req.Contains(history.Pinned, msgID)
	req.Equal("pin me", history.Pinned[msgID].Body)

	// Toggling again unpins
	outs = d.Handle(domain.TogglePin{From: alice, MessageID: msgID})
	updated, _, _ = findEvent[event.PinUpdated](outs)
	req.False(updated.Pinned)
}

func TestDispatcher_DirectMessage_Offline_Recipient(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")

	// When alice messages someone who is not online
	outs := d.Handle(domain.DirectMessage{From: alice, To: "ghost", Body: "anyone there?"})
	req.Len(outs, 1)

	// Then only alice hears about it
	dmErr, audience, ok := findEvent[event.DMError](outs)
	req.True(ok)
	req.Equal([]domain.SessionID{alice}, audience.Sessions)
	req.Equal("ghost", dmErr.To)

	// And nothing was stored
	history, _, _ := findEvent[event.DMHistory](d.Handle(domain.RequestDMHistory{From: alice, With: "ghost"}))
	req.Empty(history.Messages)
}

func TestDispatcher_DirectMessage_Delivers_And_Echoes(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")
	bob := join(d, "bob")
	providedID := uuid.New()

	outs := d.Handle(domain.DirectMessage{From: alice, To: "bob", Body: "psst", ProvidedID: providedID})
	req.Len(outs, 1)

	// Recipient and sender both get the stored copy
	msg, audience, ok := findEvent[event.NewMessage](outs)
	req.True(ok)
	req.ElementsMatch([]domain.SessionID{alice, bob}, audience.Sessions)
	req.Equal(providedID, msg.Message.ID)
	req.Equal(domain.DMKey("alice", "bob"), msg.Message.Scope)

	// The conversation reads the same from either side
	fromBob, _, _ := findEvent[event.DMHistory](d.Handle(domain.RequestDMHistory{From: bob, With: "alice"}))
	req.Len(fromBob.Messages, 1)
	req.Equal("psst", fromBob.Messages[0].Body)
}

func TestDispatcher_DirectMessage_To_Self_Delivers_Once(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")

	outs := d.Handle(domain.DirectMessage{From: alice, To: "alice", Body: "note to self"})
	_, audience, ok := findEvent[event.NewMessage](outs)
	req.True(ok)
	req.Equal([]domain.SessionID{alice}, audience.Sessions)
}

func TestDispatcher_Typing_Excludes_The_Typist(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")
	bob := join(d, "bob")

	outs := d.Handle(domain.Typing{From: alice})
	typing, audience, ok := findEvent[event.TypingStarted](outs)
	req.True(ok)
	req.Equal("alice", typing.User)
	req.Equal([]domain.SessionID{bob}, audience.Sessions)
}

func TestDispatcher_Disconnect_Named_User(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")
	bob := join(d, "bob")

	outs := d.Handle(domain.Disconnect{From: alice})
	req.Len(outs, 2)

	left, audience, ok := findEvent[event.UserLeft](outs)
	req.True(ok)
	req.Equal("alice", left.User)
	req.Equal([]domain.SessionID{bob}, audience.Sessions)

	list, audience, ok := findEvent[event.UserList](outs)
	req.True(ok)
	req.True(audience.Everyone)
	req.Equal([]string{"bob"}, list.Users)
}

func TestDispatcher_Disconnect_Unnamed_Is_Silent(t *testing.T) {
	d := newTestDispatcher()
	id := d.Connect(&testSink{})

	require.Nil(t, d.Handle(domain.Disconnect{From: id}))
}

func TestDispatcher_Disconnect_After_Name_Steal_Is_Silent(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	first := join(d, "alice")
	join(d, "alice")

	// The dispossessed session leaves without any broadcast: the name is
	// still online through its new owner
	req.Nil(d.Handle(domain.Disconnect{From: first}))

	_, online := d.registry.Resolve("alice")
	req.True(online)
}

func TestDispatcher_Rename_Moves_Identity(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	alice := join(d, "alice")
	join(d, "bob")

	outs := d.Handle(domain.NewUser{From: alice, Name: "alicia"})
	req.Len(outs, 3)

	list, _, ok := findEvent[event.UserList](outs)
	req.True(ok)
	req.ElementsMatch([]string{"bob", "alicia"}, list.Users)

	// The old name is gone from presence and membership
	_, online := d.registry.Resolve("alice")
	req.False(online)
	req.Equal(2, d.ScopeStats()["room:general"].Users)
}

func TestDispatcher_Rename_After_Name_Steal_Keeps_Owner_Membership(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	first := join(d, "alice")
	second := join(d, "alice")

	// When the dispossessed session renames itself
	outs := d.Handle(domain.NewUser{From: first, Name: "bob"})
	req.Len(outs, 3)

	// Then the stolen name stays roomed under its new owner: both alice
	// and bob are members of the default room
	req.Equal(2, d.ScopeStats()["room:general"].Users)
	owner, online := d.registry.Resolve("alice")
	req.True(online)
	req.Equal(second, owner)

	list, _, ok := findEvent[event.UserList](outs)
	req.True(ok)
	req.ElementsMatch([]string{"alice", "bob"}, list.Users)
}

func TestDispatcher_Dispossessed_Session_Acts_Unnamed(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	first := join(d, "alice")
	join(d, "alice")

	// Until it reintroduces itself, the dispossessed session cannot act
	// under the stolen name
	req.Nil(d.Handle(domain.SwitchRoom{From: first, Room: "random"}))
	req.Nil(d.Handle(domain.SendMessage{From: first, Body: "not mine anymore"}))
	req.Nil(d.Handle(domain.Typing{From: first}))
	req.Nil(d.Handle(domain.RequestRoomHistory{From: first}))

	// And the owner's membership never moved
	stats := d.ScopeStats()
	req.Equal(1, stats["room:general"].Users)
	req.Equal(0, stats["room:random"].Users)
}

type maskFilter struct{}

func (maskFilter) Censor(s string) string { return "***" }

func TestDispatcher_Filter_Applies_To_Bodies(t *testing.T) {
	req := require.New(t)
	d := NewDispatcher(slog.Default(), NewRegistry(),
		[]string{"general"}, 100, 50, maskFilter{}, nil)
	id := d.Connect(&testSink{})
	d.Handle(domain.NewUser{From: id, Name: "alice"})

	outs := d.Handle(domain.SendMessage{From: id, Body: "anything"})
	msg, _, ok := findEvent[event.NewMessage](outs)
	req.True(ok)
	req.Equal("***", msg.Message.Body)
}
