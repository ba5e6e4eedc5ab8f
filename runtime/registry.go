// Package runtime wires the coordination core together: the presence
// registry, the dispatching state machine, and the engine that runs the
// delivery pipeline. It orchestrates without owning domain rules.
package runtime

import (
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"sync"
)

type entry struct {
	session domain.Session
	sink    contract.EventSink
}

// Registry is the presence index: it maps live sessions to their delivery
// sinks and display names to sessions. At most one session owns a display
// name at a time; a later claim steals the entry (last writer wins).
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*entry
	presence map[string]domain.SessionID
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*entry),
		presence: make(map[string]domain.SessionID),
	}
}

// Register creates an unnamed session for a freshly accepted connection
// and keeps its delivery sink.
func (r *Registry) Register(sink contract.EventSink) domain.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := domain.NewSessionID()
	r.sessions[id] = &entry{session: domain.Session{ID: id}, sink: sink}
	return id
}

// Remove evicts the session and, when it owned its presence entry, the
// display name with it. Safe no-op for unknown ids and unnamed sessions.
func (r *Registry) Remove(id domain.SessionID) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	delete(r.sessions, id)
	if e.session.Named() && r.presence[e.session.Name] == id {
		r.dropName(e.session.Name)
	}
	return e.session, true
}

// SetDisplayName names a session. Empty names are rejected; duplicate
// names across sessions are not, the presence entry just moves.
func (r *Registry) SetDisplayName(id domain.SessionID, name string) error {
	if name == "" {
		return errors.ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return errors.ErrUnknownSession
	}
	if e.session.Named() && r.presence[e.session.Name] == id {
		r.dropName(e.session.Name)
	}
	if _, taken := r.presence[name]; !taken {
		r.order = append(r.order, name)
	}
	r.presence[name] = id
	e.session.Name = name
	return nil
}

func (r *Registry) SetRoom(id domain.SessionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.session.Room = room
	}
}

// Resolve answers the online-status question: which session, if any,
// currently owns this display name.
func (r *Registry) Resolve(name string) (domain.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.presence[name]
	return id, ok
}

func (r *Registry) Session(id domain.SessionID) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	return e.session, true
}

// SinksFor expands an audience into delivery sinks. Unknown session ids
// are skipped: the session may have disconnected between dispatch and
// delivery, which is fine for fire-and-forget fanout.
func (r *Registry) SinksFor(audience event.Audience) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	if audience.Everyone {
		for id, e := range r.sessions {
			if audience.Excludes(id) {
				continue
			}
			sinks = append(sinks, e.sink)
		}
		return sinks
	}
	for _, id := range audience.Sessions {
		if audience.Excludes(id) {
			continue
		}
		if e, ok := r.sessions[id]; ok {
			sinks = append(sinks, e.sink)
		}
	}
	return sinks
}

// DisplayNames returns the current names in first-seen order, as a copy.
func (r *Registry) DisplayNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Counts() (sessions int, named int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions), len(r.presence)
}

// dropName removes a presence entry and its slot in the ordered name
// list. Callers hold the write lock.
func (r *Registry) dropName(name string) {
	delete(r.presence, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
