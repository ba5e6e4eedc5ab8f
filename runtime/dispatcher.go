package runtime

import (
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"chat-core/observability"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ContentFilter masks forbidden content in message bodies. Satisfied by
// moderation.Moderator; nil disables filtering.
type ContentFilter interface {
	Censor(string) string
}

// Dispatcher is the state machine at the center of the core: it accepts
// inbound commands, mutates the session registry, room directory, ledgers
// and annotation stores, and produces the outbound events to publish.
//
// One lock serializes every mutation, which linearizes presence writes
// with room-membership writes for the same session and keeps FIFO
// eviction and reaction toggles atomic. Handlers for different
// connections may call Handle concurrently; delivery of the returned
// events is the caller's problem (fire-and-forget).
type Dispatcher struct {
	mu            sync.Mutex
	log           *slog.Logger
	registry      contract.IRegistry
	rooms         map[string]*domain.Room
	roomOrder     []string
	conversations map[domain.ScopeKey]*domain.Scope
	defaultRoom   string
	dmHistoryCap  int
	filter        ContentFilter
	stats         *observability.Stats
	now           func() time.Time
}

// NewDispatcher seeds the fixed room registry. The first room name is the
// default scope assigned to every new connection. filter and stats may be
// nil.
func NewDispatcher(log *slog.Logger, registry contract.IRegistry,
	roomNames []string, roomHistoryCap, dmHistoryCap int,
	filter ContentFilter, stats *observability.Stats) *Dispatcher {
	rooms := make(map[string]*domain.Room, len(roomNames))
	for _, name := range roomNames {
		rooms[name] = domain.NewRoom(name, roomHistoryCap)
	}
	return &Dispatcher{
		log:           log,
		registry:      registry,
		rooms:         rooms,
		roomOrder:     append([]string(nil), roomNames...),
		conversations: make(map[domain.ScopeKey]*domain.Scope),
		defaultRoom:   roomNames[0],
		dmHistoryCap:  dmHistoryCap,
		filter:        filter,
		stats:         stats,
		now:           time.Now,
	}
}

// Connect registers a fresh connection as an unnamed session. The default
// room is preset before any explicit switch; membership is only taken
// once the session names itself.
func (d *Dispatcher) Connect(sink contract.EventSink) domain.SessionID {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.registry.Register(sink)
	d.registry.SetRoom(id, d.defaultRoom)
	if d.stats != nil {
		d.stats.ConnectionOpened()
	}
	return id
}

// Handle reduces one inbound command into the outbound events to publish.
// Precondition failures (no display name yet, unknown room, evicted
// message id) are absorbed as silent no-ops; only RecipientOffline
// surfaces, and then only to the sender.
func (d *Dispatcher) Handle(cmd domain.Command) []event.Outbound {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch c := cmd.(type) {
	case domain.NewUser:
		return d.handleNewUser(c)
	case domain.SwitchRoom:
		return d.handleSwitchRoom(c)
	case domain.SendMessage:
		return d.handleSendMessage(c)
	case domain.SendVoiceMessage:
		return d.handleSendVoiceMessage(c)
	case domain.ToggleReaction:
		return d.handleToggleReaction(c)
	case domain.TogglePin:
		return d.handleTogglePin(c)
	case domain.Typing:
		return d.roomNotice(c.From, func(name string) event.Event {
			return event.TypingStarted{User: name}
		})
	case domain.StopTyping:
		return d.roomNotice(c.From, func(name string) event.Event {
			return event.TypingStopped{User: name}
		})
	case domain.MessageRead:
		return d.roomNotice(c.From, func(name string) event.Event {
			return event.MessageRead{User: name}
		})
	case domain.RequestRoomHistory:
		return d.handleRequestRoomHistory(c)
	case domain.DirectMessage:
		return d.handleDirectMessage(c)
	case domain.RequestDMHistory:
		return d.handleRequestDMHistory(c)
	case domain.Disconnect:
		return d.handleDisconnect(c)
	default:
		d.log.Warn(fmt.Sprintf("Unhandled command type %T", cmd))
		return nil
	}
}

func (d *Dispatcher) handleNewUser(c domain.NewUser) []event.Outbound {
	sess, ok := d.registry.Session(c.From)
	if !ok {
		return nil
	}
	previous := sess.Name
	ownedPrevious := false
	if previous != "" {
		owner, online := d.registry.Resolve(previous)
		ownedPrevious = online && owner == c.From
	}

	if err := d.registry.SetDisplayName(c.From, c.Name); err != nil {
		d.log.Debug("Rejected display name", "session", c.From, "error", err)
		return nil
	}

	room := d.rooms[sess.Room]
	if ownedPrevious {
		// Renaming: the old identity leaves the room before the new one
		// joins, so a name is never a member of two rooms or twice over.
		// A dispossessed session leaves nothing: its old name, and the
		// membership under it, belong to the session that took it.
		room.Leave(previous)
	}
	room.Join(c.Name)

	if d.stats != nil {
		d.stats.UserJoined()
	}
	d.log.Info("User joined", "user", c.Name, "room", room.Name)

	scope := room.Scope()
	return []event.Outbound{
		{
			Audience: event.ToSessions(d.sessionsInRoom(room, c.From)...),
			Event:    event.UserJoined{User: c.Name, Timestamp: d.clock()},
		},
		{
			Audience: event.ToEveryone(),
			Event:    event.UserList{Users: d.registry.DisplayNames()},
		},
		{
			Audience: event.ToSessions(c.From),
			Event: event.RoomHistory{
				Room:     room.Name,
				Messages: scope.Snapshot(),
				Pinned:   scope.Pinned(),
			},
		},
	}
}

func (d *Dispatcher) handleSwitchRoom(c domain.SwitchRoom) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil {
		return nil
	}
	next, ok := d.rooms[c.Room]
	if !ok {
		d.log.Debug("Switch room dropped", "user", sess.Name, "room", c.Room,
			"error", errors.ErrUnknownRoom)
		return nil
	}
	if c.Room == sess.Room {
		return nil
	}

	// Atomic leave-then-join under the dispatcher lock: no observer can
	// see the name in zero or two rooms.
	current := d.rooms[sess.Room]
	current.Leave(sess.Name)
	next.Join(sess.Name)
	d.registry.SetRoom(c.From, next.Name)

	scope := next.Scope()
	return []event.Outbound{
		{
			Audience: event.ToSessions(d.sessionsInRoom(current)...),
			Event:    event.UserLeft{User: sess.Name, Timestamp: d.clock()},
		},
		{
			Audience: event.ToSessions(d.sessionsInRoom(next, c.From)...),
			Event:    event.UserJoined{User: sess.Name, Timestamp: d.clock()},
		},
		{
			Audience: event.ToSessions(c.From),
			Event: event.RoomHistory{
				Room:     next.Name,
				Messages: scope.Snapshot(),
				Pinned:   scope.Pinned(),
			},
		},
	}
}

func (d *Dispatcher) handleSendMessage(c domain.SendMessage) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil {
		return nil
	}
	body := c.Body
	if d.filter != nil {
		body = d.filter.Censor(body)
	}
	room := d.rooms[sess.Room]
	msg := domain.Message{
		ID:        uuid.New(),
		Author:    sess.Name,
		Body:      body,
		Kind:      domain.KindText,
		Scope:     domain.RoomKey(room.Name),
		CreatedAt: d.now().UTC(),
	}
	room.Scope().Append(msg)
	if d.stats != nil {
		d.stats.MessageStored("room")
	}

	return []event.Outbound{{
		Audience: event.ToSessions(d.sessionsInRoom(room)...),
		Event:    event.NewMessage{Message: msg},
	}}
}

func (d *Dispatcher) handleSendVoiceMessage(c domain.SendVoiceMessage) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil {
		return nil
	}
	room := d.rooms[sess.Room]
	msg := domain.Message{
		ID:     uuid.New(),
		Author: sess.Name,
		Kind:   domain.KindVoice,
		Voice: &domain.VoiceAttachment{
			Data:            c.Data,
			MimeType:        c.MimeType,
			DurationSeconds: c.Duration,
		},
		Scope:     domain.RoomKey(room.Name),
		CreatedAt: d.now().UTC(),
	}
	room.Scope().Append(msg)
	if d.stats != nil {
		d.stats.MessageStored("room")
	}

	return []event.Outbound{{
		Audience: event.ToSessions(d.sessionsInRoom(room)...),
		Event:    event.NewMessage{Message: msg},
	}}
}

func (d *Dispatcher) handleToggleReaction(c domain.ToggleReaction) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil {
		return nil
	}
	scope, audience, ok := d.resolveScope(c.Scope, sess)
	if !ok {
		return nil
	}
	reactions, err := scope.ToggleReaction(c.MessageID, c.Emoji, sess.Name)
	if err != nil {
		d.log.Debug("Reaction toggle dropped", "message", c.MessageID, "error", err)
		return nil
	}

	return []event.Outbound{{
		Audience: audience,
		Event: event.ReactionUpdated{
			MessageID: c.MessageID,
			Emoji:     c.Emoji,
			Reactions: reactions,
			User:      sess.Name,
		},
	}}
}

func (d *Dispatcher) handleTogglePin(c domain.TogglePin) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil {
		return nil
	}
	scope, audience, ok := d.resolveScope(c.Scope, sess)
	if !ok {
		return nil
	}
	pinned, _, err := scope.TogglePin(c.MessageID)
	if err != nil {
		d.log.Debug("Pin toggle dropped", "message", c.MessageID, "error", err)
		return nil
	}

	return []event.Outbound{{
		Audience: audience,
		Event: event.PinUpdated{
			MessageID: c.MessageID,
			Pinned:    pinned,
			User:      sess.Name,
		},
	}}
}

func (d *Dispatcher) handleRequestRoomHistory(c domain.RequestRoomHistory) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil {
		return nil
	}
	scope := d.rooms[sess.Room].Scope()
	return []event.Outbound{{
		Audience: event.ToSessions(c.From),
		Event: event.RoomHistory{
			Room:     sess.Room,
			Messages: scope.Snapshot(),
			Pinned:   scope.Pinned(),
		},
	}}
}

func (d *Dispatcher) handleDirectMessage(c domain.DirectMessage) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil || c.To == "" {
		return nil
	}
	recipient, online := d.registry.Resolve(c.To)
	if !online {
		// Error notice to the sender only; the conversation ledger is
		// not touched.
		return []event.Outbound{{
			Audience: event.ToSessions(c.From),
			Event:    event.DMError{To: c.To, Reason: errors.ErrRecipientOffline.Error()},
		}}
	}

	body := c.Body
	if d.filter != nil {
		body = d.filter.Censor(body)
	}
	id := c.ProvidedID
	if id == uuid.Nil {
		id = uuid.New()
	}
	key := domain.DMKey(sess.Name, c.To)
	msg := domain.Message{
		ID:        id,
		Author:    sess.Name,
		Body:      body,
		Kind:      domain.KindText,
		Scope:     key,
		CreatedAt: d.now().UTC(),
	}
	d.conversation(key).Append(msg)
	if d.stats != nil {
		d.stats.MessageStored("dm")
	}

	// Self-echo is mandatory: the sender's client reflects the stored
	// copy with the server-assigned id and timestamp.
	targets := []domain.SessionID{recipient, c.From}
	if recipient == c.From {
		targets = targets[:1]
	}
	return []event.Outbound{{
		Audience: event.ToSessions(targets...),
		Event:    event.NewMessage{Message: msg},
	}}
}

func (d *Dispatcher) handleRequestDMHistory(c domain.RequestDMHistory) []event.Outbound {
	sess, err := d.namedSession(c.From)
	if err != nil || c.With == "" {
		return nil
	}
	history := event.DMHistory{With: c.With}
	if conv, ok := d.conversations[domain.DMKey(sess.Name, c.With)]; ok {
		history.Messages = conv.Snapshot()
		history.Pinned = conv.Pinned()
	}
	return []event.Outbound{{
		Audience: event.ToSessions(c.From),
		Event:    history,
	}}
}

func (d *Dispatcher) handleDisconnect(c domain.Disconnect) []event.Outbound {
	sess, ok := d.registry.Remove(c.From)
	if d.stats != nil && ok {
		d.stats.ConnectionClosed()
	}
	if !ok || !sess.Named() {
		// Disconnecting before "new user" produces no broadcast.
		return nil
	}
	if _, stillOnline := d.registry.Resolve(sess.Name); stillOnline {
		// Another session took over this name; the membership now
		// belongs to it.
		return nil
	}

	room := d.rooms[sess.Room]
	room.Leave(sess.Name)
	if d.stats != nil {
		d.stats.UserLeft()
	}
	d.log.Info("User left", "user", sess.Name, "room", room.Name)

	return []event.Outbound{
		{
			Audience: event.ToSessions(d.sessionsInRoom(room)...),
			Event:    event.UserLeft{User: sess.Name, Timestamp: d.clock()},
		},
		{
			Audience: event.ToEveryone(),
			Event:    event.UserList{Users: d.registry.DisplayNames()},
		},
	}
}

// roomNotice broadcasts an ephemeral per-user event (typing indicators,
// read receipts) to the other members of the sender's room.
func (d *Dispatcher) roomNotice(from domain.SessionID, build func(name string) event.Event) []event.Outbound {
	sess, err := d.namedSession(from)
	if err != nil {
		return nil
	}
	room := d.rooms[sess.Room]
	return []event.Outbound{{
		Audience: event.ToSessions(d.sessionsInRoom(room, from)...),
		Event:    build(sess.Name),
	}}
}

// namedSession is the shared precondition gate: every operation except
// connect and disconnect requires a display name the session still owns.
// A session whose name was stolen acts as unnamed until it reintroduces
// itself; its old name, and the room membership under it, belong to the
// new owner.
func (d *Dispatcher) namedSession(id domain.SessionID) (domain.Session, error) {
	sess, ok := d.registry.Session(id)
	if !ok {
		return domain.Session{}, errors.ErrUnknownSession
	}
	if !sess.Named() {
		return domain.Session{}, errors.ErrNoDisplayName
	}
	if owner, online := d.registry.Resolve(sess.Name); !online || owner != id {
		return domain.Session{}, errors.ErrNoDisplayName
	}
	return sess, nil
}

// resolveScope maps an optional explicit scope key (or the actor's
// current room when empty) to its store and audience. DM scopes are only
// readable by their participants.
func (d *Dispatcher) resolveScope(key domain.ScopeKey, sess domain.Session) (*domain.Scope, event.Audience, bool) {
	if key == "" || key == domain.RoomKey(sess.Room) {
		room := d.rooms[sess.Room]
		return room.Scope(), event.ToSessions(d.sessionsInRoom(room)...), true
	}
	if name, isRoom := strings.CutPrefix(string(key), "room:"); isRoom {
		room, ok := d.rooms[name]
		if !ok || !room.HasMember(sess.Name) {
			return nil, event.Audience{}, false
		}
		return room.Scope(), event.ToSessions(d.sessionsInRoom(room)...), true
	}
	conv, ok := d.conversations[key]
	if !ok {
		return nil, event.Audience{}, false
	}
	parts := strings.SplitN(strings.TrimPrefix(string(key), "dm:"), ":", 2)
	if !lo.Contains(parts, sess.Name) {
		return nil, event.Audience{}, false
	}
	return conv, event.ToSessions(d.dmParticipants(key)...), true
}

// conversation lazily creates the bounded DM scope for a canonical key.
func (d *Dispatcher) conversation(key domain.ScopeKey) *domain.Scope {
	conv, ok := d.conversations[key]
	if !ok {
		conv = domain.NewScope(key, d.dmHistoryCap)
		d.conversations[key] = conv
	}
	return conv
}

// dmParticipants resolves the online sessions of both names in a
// canonical DM key.
func (d *Dispatcher) dmParticipants(key domain.ScopeKey) []domain.SessionID {
	parts := strings.SplitN(strings.TrimPrefix(string(key), "dm:"), ":", 2)
	var ids []domain.SessionID
	for _, name := range parts {
		if id, ok := d.registry.Resolve(name); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// sessionsInRoom expands current room membership into session ids,
// skipping names whose presence entry is gone.
func (d *Dispatcher) sessionsInRoom(room *domain.Room, except ...domain.SessionID) []domain.SessionID {
	ids := lo.FilterMap(room.Members(), func(name string, _ int) (domain.SessionID, bool) {
		id, ok := d.registry.Resolve(name)
		if !ok {
			return "", false
		}
		for _, ex := range except {
			if id == ex {
				return "", false
			}
		}
		return id, true
	})
	return ids
}

// ScopeStats reports per-scope member and message counts for the health
// surface.
func (d *Dispatcher) ScopeStats() map[string]observability.ScopeStat {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]observability.ScopeStat, len(d.rooms)+len(d.conversations))
	for _, name := range d.roomOrder {
		room := d.rooms[name]
		out[string(domain.RoomKey(name))] = observability.ScopeStat{
			Users:    room.MemberCount(),
			Messages: room.Scope().MessageCount(),
		}
	}
	for key, conv := range d.conversations {
		out[string(key)] = observability.ScopeStat{Users: 2, Messages: conv.MessageCount()}
	}
	return out
}

// Rooms lists the seeded room names in configuration order.
func (d *Dispatcher) Rooms() []string {
	return append([]string(nil), d.roomOrder...)
}

func (d *Dispatcher) clock() string {
	return d.now().Format("15:04:05")
}
