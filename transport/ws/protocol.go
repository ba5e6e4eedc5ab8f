// Package ws is the WebSocket transport: it upgrades connections, turns
// inbound JSON frames into commands for the core, and pushes the core's
// outbound events back to clients. Frames are socket.io-shaped:
// {"event": "...", "data": ...}.
package ws

import (
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var validate = validator.New()

// Envelope is one wire frame in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type switchRoomPayload struct {
	Room string `json:"room" validate:"required"`
}

type voicePayload struct {
	Data     []byte  `json:"data" validate:"required"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

type reactionPayload struct {
	ID    string `json:"id" validate:"required,uuid"`
	Emoji string `json:"emoji" validate:"required"`
	Scope string `json:"scope,omitempty"`
}

type pinPayload struct {
	ID    string `json:"id" validate:"required,uuid"`
	Scope string `json:"scope,omitempty"`
}

type directMessagePayload struct {
	To  string `json:"to" validate:"required"`
	Msg string `json:"msg"`
	ID  string `json:"id,omitempty" validate:"omitempty,uuid"`
}

type dmHistoryPayload struct {
	With string `json:"with" validate:"required"`
}

// DecodeCommand maps one inbound frame to a core command. Malformed
// payloads degrade rather than fail where the protocol allows it: a bare
// string is accepted wherever the legacy clients sent one.
func DecodeCommand(from domain.SessionID, raw []byte) (domain.Command, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Event {
	case "new user":
		return domain.NewUser{From: from, Name: stringOrField(env.Data, "name")}, nil

	case "switch room":
		var p switchRoomPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.SwitchRoom{From: from, Room: p.Room}, nil

	case "send message":
		return domain.SendMessage{From: from, Body: stringOrField(env.Data, "msg")}, nil

	case "send voice message":
		var p voicePayload
		if err := decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		mime := mimetype.Detect(p.Data)
		if !strings.HasPrefix(mime.String(), "audio/") {
			return nil, fmt.Errorf("%w: got %s", errors.ErrNotAudioPayload, mime.String())
		}
		return domain.SendVoiceMessage{
			From:     from,
			Data:     p.Data,
			MimeType: mime.String(),
			Duration: p.Duration,
		}, nil

	case "toggle reaction":
		var p reactionPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.ToggleReaction{
			From:      from,
			MessageID: uuid.MustParse(p.ID),
			Emoji:     p.Emoji,
			Scope:     domain.ScopeKey(p.Scope),
		}, nil

	case "toggle pin":
		var p pinPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.TogglePin{
			From:      from,
			MessageID: uuid.MustParse(p.ID),
			Scope:     domain.ScopeKey(p.Scope),
		}, nil

	case "typing":
		return domain.Typing{From: from}, nil
	case "stop typing":
		return domain.StopTyping{From: from}, nil
	case "message read":
		return domain.MessageRead{From: from}, nil

	case "request room history", "request chat history":
		return domain.RequestRoomHistory{From: from}, nil

	case "direct message":
		var p directMessagePayload
		if err := decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		cmd := domain.DirectMessage{From: from, To: p.To, Body: p.Msg}
		if p.ID != "" {
			cmd.ProvidedID = uuid.MustParse(p.ID)
		}
		return cmd, nil

	case "request dm history":
		var p dmHistoryPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.RequestDMHistory{From: from, With: p.With}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

func decodePayload(raw json.RawMessage, into any) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if err := validate.Struct(into); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// stringOrField accepts both wire shapes the legacy clients produced: a
// bare JSON string, or an object with a named field. Anything else falls
// back to the raw payload text.
func stringOrField(raw json.RawMessage, field string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if err := json.Unmarshal(obj[field], &s); err == nil {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}

// wireMessage is the outbound JSON shape of a stored message.
type wireMessage struct {
	ID        string              `json:"id"`
	User      string              `json:"user"`
	Msg       string              `json:"msg,omitempty"`
	Kind      string              `json:"kind"`
	Voice     *wireVoice          `json:"voice,omitempty"`
	Scope     string              `json:"scope"`
	Timestamp string              `json:"timestamp"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

type wireVoice struct {
	Data     []byte  `json:"data"`
	Mime     string  `json:"mime"`
	Duration float64 `json:"duration"`
}

type wirePin struct {
	ID        string `json:"id"`
	Msg       string `json:"msg"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

// EncodeEvent maps one outbound event to its wire frame.
func EncodeEvent(e event.Event) ([]byte, error) {
	var data any

	switch evt := e.(type) {
	case event.UserJoined:
		data = map[string]string{"user": evt.User, "timestamp": evt.Timestamp}
	case event.UserLeft:
		data = map[string]string{"user": evt.User, "timestamp": evt.Timestamp}
	case event.UserList:
		data = evt.Users
	case event.NewMessage:
		data = toWireMessage(evt.Message)
	case event.ReactionUpdated:
		data = map[string]any{
			"id":        evt.MessageID.String(),
			"emoji":     evt.Emoji,
			"reactions": map[string][]string(evt.Reactions),
			"user":      evt.User,
		}
	case event.PinUpdated:
		data = map[string]any{
			"id":     evt.MessageID.String(),
			"pinned": evt.Pinned,
			"user":   evt.User,
		}
	case event.TypingStarted:
		data = map[string]string{"user": evt.User}
	case event.TypingStopped:
		data = map[string]string{"user": evt.User}
	case event.MessageRead:
		data = map[string]string{"user": evt.User}
	case event.RoomHistory:
		data = map[string]any{
			"room":     evt.Room,
			"messages": toWireMessages(evt.Messages),
			"pinned":   toWirePins(evt.Pinned),
		}
	case event.DMHistory:
		data = map[string]any{
			"with":     evt.With,
			"messages": toWireMessages(evt.Messages),
			"pinned":   toWirePins(evt.Pinned),
		}
	case event.DMError:
		data = map[string]string{"to": evt.To, "reason": evt.Reason}
	default:
		return nil, fmt.Errorf("unknown event type %T", e)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name(), Data: payload})
}

func toWireMessage(m domain.Message) wireMessage {
	out := wireMessage{
		ID:        m.ID.String(),
		User:      m.Author,
		Msg:       m.Body,
		Kind:      string(m.Kind),
		Scope:     string(m.Scope),
		Timestamp: m.CreatedAt.Format("15:04:05"),
		Reactions: m.Reactions,
	}
	if m.Voice != nil {
		out.Voice = &wireVoice{
			Data:     m.Voice.Data,
			Mime:     m.Voice.MimeType,
			Duration: m.Voice.DurationSeconds,
		}
	}
	return out
}

func toWireMessages(messages []domain.Message) []wireMessage {
	return lo.Map(messages, func(m domain.Message, _ int) wireMessage {
		return toWireMessage(m)
	})
}

func toWirePins(pins map[uuid.UUID]domain.PinnedMessage) []wirePin {
	out := make([]wirePin, 0, len(pins))
	for id, pin := range pins {
		out = append(out, wirePin{
			ID:        id.String(),
			Msg:       pin.Body,
			User:      pin.Author,
			Timestamp: pin.CreatedAt.Format("15:04:05"),
		})
	}
	return out
}
