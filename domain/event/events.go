package event

import (
	"chat-core/domain"

	"github.com/google/uuid"
)

const (
	NameUserJoined      = "user joined"
	NameUserLeft        = "user left"
	NameUserList        = "get users"
	NameNewMessage      = "new message"
	NameReactionUpdated = "reaction updated"
	NamePinUpdated      = "pin updated"
	NameTyping          = "typing"
	NameStopTyping      = "stop typing"
	NameMessageRead     = "message read"
	NameRoomHistory     = "room history"
	NameDMHistory       = "dm history"
	NameDMError         = "dm error"
)

type UserJoined struct {
	User      string
	Timestamp string
}

type UserLeft struct {
	User      string
	Timestamp string
}

// UserList carries the full current display-name list, broadcast on every
// join and leave.
type UserList struct {
	Users []string
}

type NewMessage struct {
	Message domain.Message
}

// ReactionUpdated carries the full reaction map of the message, not a
// delta, so clients never reconcile partial state.
type ReactionUpdated struct {
	MessageID uuid.UUID
	Emoji     string
	Reactions domain.Reactions
	User      string
}

type PinUpdated struct {
	MessageID uuid.UUID
	Pinned    bool
	User      string
}

type TypingStarted struct {
	User string
}

type TypingStopped struct {
	User string
}

type MessageRead struct {
	User string
}

type RoomHistory struct {
	Room     string
	Messages []domain.Message
	Pinned   map[uuid.UUID]domain.PinnedMessage
}

type DMHistory struct {
	With     string
	Messages []domain.Message
	Pinned   map[uuid.UUID]domain.PinnedMessage
}

// DMError tells the sender, and only the sender, that the recipient is
// not online. Nothing is stored and nothing is retried.
type DMError struct {
	To     string
	Reason string
}

func (UserJoined) Name() string      { return NameUserJoined }
func (UserLeft) Name() string        { return NameUserLeft }
func (UserList) Name() string        { return NameUserList }
func (NewMessage) Name() string      { return NameNewMessage }
func (ReactionUpdated) Name() string { return NameReactionUpdated }
func (PinUpdated) Name() string      { return NamePinUpdated }
func (TypingStarted) Name() string   { return NameTyping }
func (TypingStopped) Name() string   { return NameStopTyping }
func (MessageRead) Name() string     { return NameMessageRead }
func (RoomHistory) Name() string     { return NameRoomHistory }
func (DMHistory) Name() string       { return NameDMHistory }
func (DMError) Name() string         { return NameDMError }
