package domain

import (
	"github.com/google/uuid"
)

// Command is one inbound client event, already decoded by the transport.
// Every command carries the session it arrived on.
type Command interface {
	Session() SessionID
}

type NewUser struct {
	From SessionID
	Name string
}

type SwitchRoom struct {
	From SessionID
	Room string
}

type SendMessage struct {
	From SessionID
	Body string
}

type SendVoiceMessage struct {
	From     SessionID
	Data     []byte
	MimeType string
	Duration float64
}

// ToggleReaction targets a message in the actor's current room unless an
// explicit scope is given (used for DM reactions).
type ToggleReaction struct {
	From      SessionID
	MessageID uuid.UUID
	Emoji     string
	Scope     ScopeKey
}

type TogglePin struct {
	From      SessionID
	MessageID uuid.UUID
	Scope     ScopeKey
}

type Typing struct {
	From SessionID
}

type StopTyping struct {
	From SessionID
}

type MessageRead struct {
	From SessionID
}

type RequestRoomHistory struct {
	From SessionID
}

// DirectMessage may carry a client-provided id; the router keeps it when
// set and stamps a fresh one otherwise.
type DirectMessage struct {
	From       SessionID
	To         string
	Body       string
	ProvidedID uuid.UUID
}

type RequestDMHistory struct {
	From SessionID
	With string
}

type Disconnect struct {
	From SessionID
}

func (c NewUser) Session() SessionID            { return c.From }
func (c SwitchRoom) Session() SessionID         { return c.From }
func (c SendMessage) Session() SessionID        { return c.From }
func (c SendVoiceMessage) Session() SessionID   { return c.From }
func (c ToggleReaction) Session() SessionID     { return c.From }
func (c TogglePin) Session() SessionID          { return c.From }
func (c Typing) Session() SessionID             { return c.From }
func (c StopTyping) Session() SessionID         { return c.From }
func (c MessageRead) Session() SessionID        { return c.From }
func (c RequestRoomHistory) Session() SessionID { return c.From }
func (c DirectMessage) Session() SessionID      { return c.From }
func (c RequestDMHistory) Session() SessionID   { return c.From }
func (c Disconnect) Session() SessionID         { return c.From }
