package domain

type Room struct {
	Name    string
	scope   *Scope
	members []string
	present map[string]struct{}
}

func NewRoom(name string, historyCap int) *Room {
	return &Room{
		Name:    name,
		scope:   NewScope(RoomKey(name), historyCap),
		present: make(map[string]struct{}),
	}
}

func (r *Room) Scope() *Scope {
	return r.scope
}

// Join adds the display name to the member list. Idempotent; reports
// whether membership actually changed.
func (r *Room) Join(name string) bool {
	if _, ok := r.present[name]; ok {
		return false
	}
	r.present[name] = struct{}{}
	r.members = append(r.members, name)
	return true
}

// Leave removes the display name if present. Idempotent no-op otherwise.
func (r *Room) Leave(name string) bool {
	if _, ok := r.present[name]; !ok {
		return false
	}
	delete(r.present, name)
	for i, member := range r.members {
		if member == name {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return true
}

func (r *Room) HasMember(name string) bool {
	_, ok := r.present[name]
	return ok
}

// Members returns the member names in join order, as a copy.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) MemberCount() int {
	return len(r.members)
}
