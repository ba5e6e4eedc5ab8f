package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindVoice MessageKind = "voice"
)

// VoiceAttachment carries an audio payload alongside its sniffed MIME type
// and the client-reported duration.
type VoiceAttachment struct {
	Data            []byte
	MimeType        string
	DurationSeconds float64
}

// Message is a stored chat event. Everything except Reactions is immutable
// after creation; Reactions mutate only through ToggleReaction.
type Message struct {
	ID        uuid.UUID
	Author    string
	Body      string
	Kind      MessageKind
	Voice     *VoiceAttachment
	Scope     ScopeKey
	CreatedAt time.Time
	Reactions Reactions
}

// Reactions maps an emoji to the display names that reacted with it, in
// reaction order. An absent key means nobody holds that reaction: empty
// reactor lists never persist.
type Reactions map[string][]string

// Toggle adds actor to the emoji's reactor list if absent, removes it if
// present, and drops the emoji key once its list empties. Toggling twice
// is the identity.
func (r Reactions) Toggle(emoji, actor string) Reactions {
	reactors := r[emoji]
	for i, name := range reactors {
		if name == actor {
			reactors = append(reactors[:i], reactors[i+1:]...)
			if len(reactors) == 0 {
				delete(r, emoji)
			} else {
				r[emoji] = reactors
			}
			return r
		}
	}
	r[emoji] = append(reactors, actor)
	return r
}

// Clone returns a deep copy safe to hand to the transport layer while the
// original keeps mutating under the dispatcher lock.
func (r Reactions) Clone() Reactions {
	if r == nil {
		return nil
	}
	out := make(Reactions, len(r))
	for emoji, reactors := range r {
		out[emoji] = append([]string(nil), reactors...)
	}
	return out
}
